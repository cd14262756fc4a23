package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
)

// 基础协作实体的数据访问：教师 / 学员 / 课程 / 班级 / 报名
// 人员与课程管理由平台主站负责，本服务只读（报名校验、课程归属解析）

// TeacherRepository 教师数据访问接口
type TeacherRepository interface {
	GetByID(ctx context.Context, id string) (*model.Teacher, error)
}

// StudentRepository 学员数据访问接口
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Student, error)
}

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	GetByID(ctx context.Context, id string) (*model.Course, error)
}

// ClassRepository 班级数据访问接口
type ClassRepository interface {
	GetByID(ctx context.Context, id string) (*model.Class, error)
}

// EnrollmentRepository 报名数据访问接口
type EnrollmentRepository interface {
	Exists(ctx context.Context, classID, studentID string) (bool, error)
	ListStudentsByClass(ctx context.Context, classID string) ([]model.Student, error)
}

// ── Teacher Repository 实现 ──

type teacherRepo struct {
	db *gorm.DB
}

func NewTeacherRepo(db *gorm.DB) TeacherRepository {
	return &teacherRepo{db: db}
}

func (r *teacherRepo) GetByID(ctx context.Context, id string) (*model.Teacher, error) {
	var teacher model.Teacher
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", id).
		First(&teacher).Error
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ── Student Repository 实现 ──

type studentRepo struct {
	db *gorm.DB
}

func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// ── Course Repository 实现 ──

type courseRepo struct {
	db *gorm.DB
}

func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// ── Class Repository 实现 ──

type classRepo struct {
	db *gorm.DB
}

func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Teacher").
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

// ── Enrollment Repository 实现 ──

type enrollmentRepo struct {
	db *gorm.DB
}

func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Exists(ctx context.Context, classID, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepo) ListStudentsByClass(ctx context.Context, classID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.student_id = students.student_id").
		Where("enrollments.class_id = ?", classID).
		Order("students.name ASC").
		Find(&students).Error
	return students, err
}
