package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
	pkgerrors "github.com/drilonhametaj25/insegnami-sub002/pkg/errors"
)

// OccurrenceFilter 课节列表过滤条件
type OccurrenceFilter struct {
	TeacherID string
	ClassID   string
	From      *time.Time
	To        *time.Time
}

// LessonTemplateRepository 课程系列模板数据访问接口
type LessonTemplateRepository interface {
	GetByID(ctx context.Context, id string) (*model.LessonTemplate, error)
	// SoftDelete 软删除模板；已生成课节不受影响（孤儿策略）
	SoftDelete(ctx context.Context, id, deletedBy string) error
}

// LessonOccurrenceRepository 课节数据访问接口
//
// 冲突检测与写入必须共享同一事务范围（否则并发创建可双双通过检测）。
// CreateSeriesChecked / UpdateChecked 在事务内先取该教师的事务级咨询锁
// 串行化同教师的检测-写入区间，再回调纯函数检测，检测通过才落库。
type LessonOccurrenceRepository interface {
	// CreateSeriesChecked 原子创建模板 + 全部课节
	// check 收到教师当前全部未取消课节；返回非 nil 则整体回滚
	CreateSeriesChecked(ctx context.Context, tpl *model.LessonTemplate, occs []model.LessonOccurrence,
		check func(existing []model.LessonOccurrence) error) error
	GetByID(ctx context.Context, id string) (*model.LessonOccurrence, error)
	List(ctx context.Context, filter OccurrenceFilter, offset, limit int) ([]model.LessonOccurrence, int64, error)
	ListByTemplate(ctx context.Context, templateID string) ([]model.LessonOccurrence, error)
	ListByTeacherInRange(ctx context.Context, teacherID string, from, to time.Time) ([]model.LessonOccurrence, error)
	// UpdateChecked 乐观锁更新课节；check 语义同上（调用方负责排除自身 ID）
	UpdateChecked(ctx context.Context, occ *model.LessonOccurrence,
		check func(existing []model.LessonOccurrence) error) error
}

// ── LessonTemplate Repository 实现 ──

type lessonTemplateRepo struct {
	db *gorm.DB
}

func NewLessonTemplateRepo(db *gorm.DB) LessonTemplateRepository {
	return &lessonTemplateRepo{db: db}
}

func (r *lessonTemplateRepo) GetByID(ctx context.Context, id string) (*model.LessonTemplate, error) {
	var tpl model.LessonTemplate
	err := r.db.WithContext(ctx).
		Preload("Class").Preload("Class.Course").
		Preload("Teacher").
		Where("template_id = ?", id).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *lessonTemplateRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.LessonTemplate{}).
		Where("template_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"deleted_by": deletedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── LessonOccurrence Repository 实现 ──

type lessonOccurrenceRepo struct {
	db *gorm.DB
}

func NewLessonOccurrenceRepo(db *gorm.DB) LessonOccurrenceRepository {
	return &lessonOccurrenceRepo{db: db}
}

// lockTeacherOccurrences 事务内取得教师级互斥后返回其全部未取消课节。
// 行锁（FOR UPDATE）只能锁到已存在的行：并发创建各自新插入的课节互为幻影，
// 教师没有既有课节时更是无行可锁，两边都能通过检测后双双提交。
// 改用教师粒度的事务级咨询锁，把「扫描-检测-写入」整段串行化
func lockTeacherOccurrences(tx *gorm.DB, teacherID string) ([]model.LessonOccurrence, error) {
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", teacherID).Error; err != nil {
		return nil, err
	}
	var existing []model.LessonOccurrence
	err := tx.
		Where("teacher_id = ? AND status != ?", teacherID, model.OccurrenceStatusCancelled).
		Order("starts_at ASC").
		Find(&existing).Error
	return existing, err
}

func (r *lessonOccurrenceRepo) CreateSeriesChecked(ctx context.Context, tpl *model.LessonTemplate, occs []model.LessonOccurrence,
	check func(existing []model.LessonOccurrence) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockTeacherOccurrences(tx, tpl.TeacherID)
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}
		if err := tx.Create(tpl).Error; err != nil {
			return err
		}
		for i := range occs {
			occs[i].TemplateID = &tpl.TemplateID
		}
		return tx.Create(&occs).Error
	})
}

func (r *lessonOccurrenceRepo) GetByID(ctx context.Context, id string) (*model.LessonOccurrence, error) {
	var occ model.LessonOccurrence
	err := r.db.WithContext(ctx).
		Preload("Class").Preload("Class.Course").
		Preload("Teacher").
		Where("occurrence_id = ?", id).
		First(&occ).Error
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

func (r *lessonOccurrenceRepo) List(ctx context.Context, filter OccurrenceFilter, offset, limit int) ([]model.LessonOccurrence, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.LessonOccurrence{})

	if filter.TeacherID != "" {
		db = db.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.ClassID != "" {
		db = db.Where("class_id = ?", filter.ClassID)
	}
	if filter.From != nil {
		db = db.Where("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("starts_at < ?", *filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var occs []model.LessonOccurrence
	err := db.
		Preload("Class").
		Preload("Teacher").
		Offset(offset).Limit(limit).
		Order("starts_at ASC").
		Find(&occs).Error
	return occs, total, err
}

func (r *lessonOccurrenceRepo) ListByTemplate(ctx context.Context, templateID string) ([]model.LessonOccurrence, error) {
	var occs []model.LessonOccurrence
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("starts_at ASC").
		Find(&occs).Error
	return occs, err
}

func (r *lessonOccurrenceRepo) ListByTeacherInRange(ctx context.Context, teacherID string, from, to time.Time) ([]model.LessonOccurrence, error) {
	var occs []model.LessonOccurrence
	err := r.db.WithContext(ctx).
		Preload("Class").Preload("Class.Course").
		Where("teacher_id = ? AND starts_at >= ? AND starts_at < ?", teacherID, from, to).
		Order("starts_at ASC").
		Find(&occs).Error
	return occs, err
}

func (r *lessonOccurrenceRepo) UpdateChecked(ctx context.Context, occ *model.LessonOccurrence,
	check func(existing []model.LessonOccurrence) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockTeacherOccurrences(tx, occ.TeacherID)
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}

		oldVersion := occ.Version
		result := tx.
			Model(occ).
			Where("occurrence_id = ? AND version = ?", occ.OccurrenceID, oldVersion).
			Updates(map[string]interface{}{
				"title":       occ.Title,
				"description": occ.Description,
				"room":        occ.Room,
				"starts_at":   occ.StartsAt,
				"ends_at":     occ.EndsAt,
				"status":      occ.Status,
				"updated_by":  occ.UpdatedBy,
				"version":     oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		occ.Version = oldVersion + 1
		return nil
	})
}
