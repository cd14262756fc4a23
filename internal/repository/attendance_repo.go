package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
)

// AttendanceRepository 考勤数据访问接口
//
// 台账是一个小型财务系统：FIFO 选包与扣减必须发生在同一事务内
// （先 FOR UPDATE 再读改写），并发登记才不会基于同一余额各算各的。
type AttendanceRepository interface {
	// UpsertWithDeduction 原子执行：考勤 upsert + FIFO 课时扣减
	// (occurrence_id, student_id) 冲突时覆盖旧记录（唯一约束收口并发 upsert）。
	// deductHours > 0 时选取该 (学员, 课程) 最早购买的有效课时包扣减，
	// 余额下限为 0，不跨包补扣；扣空即停用。
	// 返回被扣减后的课时包；无可用包时返回 nil（非错误：学员可能不走课时制）
	UpsertWithDeduction(ctx context.Context, rec *model.AttendanceRecord, courseID string, deductHours float64) (*model.HoursPackage, error)
	GetByOccurrenceAndStudent(ctx context.Context, occurrenceID, studentID string) (*model.AttendanceRecord, error)
	ListByOccurrence(ctx context.Context, occurrenceID string) ([]model.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.AttendanceRecord, int64, error)
	// ListByClassInRange 按班级与时间范围列出考勤（导出用，预载课节与学员）
	ListByClassInRange(ctx context.Context, classID string, from, to time.Time) ([]model.AttendanceRecord, error)
}

// ── Attendance Repository 实现 ──

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) UpsertWithDeduction(ctx context.Context, rec *model.AttendanceRecord, courseID string, deductHours float64) (*model.HoursPackage, error) {
	var deducted *model.HoursPackage

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. upsert 考勤记录
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "occurrence_id"}, {Name: "student_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":         rec.Status,
				"hours_attended": rec.HoursAttended,
				"notes":          rec.Notes,
				"updated_by":     rec.UpdatedBy,
				"updated_at":     time.Now(),
			}),
		}).Create(rec).Error
		if err != nil {
			return err
		}

		// 冲突路径下 Create 不回填主键，重查拿到权威行
		var stored model.AttendanceRecord
		if err := tx.
			Where("occurrence_id = ? AND student_id = ?", rec.OccurrenceID, rec.StudentID).
			First(&stored).Error; err != nil {
			return err
		}
		*rec = stored

		if deductHours <= 0 {
			return nil
		}

		// 2. FIFO 选包：最早购买、激活、未过期，行锁防双花
		var pkg model.HoursPackage
		err = tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND course_id = ? AND is_active = ?", rec.StudentID, courseID, true).
			Where("expiry_date IS NULL OR expiry_date > ?", time.Now()).
			Order("purchase_date ASC").
			First(&pkg).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 无课时包不算错误：跳过扣减
				return nil
			}
			return err
		}

		// 3. 扣减：余额下限 0，不跨包补扣；扣空即停用。
		// 余额按列精度 numeric(6,2) 取整，浮点残差不得把 0 判成微小正数
		remaining := math.Round((pkg.RemainingHours-deductHours)*100) / 100
		if remaining < 0 {
			remaining = 0
		}
		active := pkg.IsActive
		if remaining == 0 {
			active = false
		}

		result := tx.
			Model(&pkg).
			Where("package_id = ?", pkg.PackageID).
			Updates(map[string]interface{}{
				"remaining_hours": remaining,
				"is_active":       active,
				"updated_by":      rec.UpdatedBy,
				"version":         pkg.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}

		pkg.RemainingHours = remaining
		pkg.IsActive = active
		pkg.Version++
		deducted = &pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deducted, nil
}

func (r *attendanceRepo) GetByOccurrenceAndStudent(ctx context.Context, occurrenceID, studentID string) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("occurrence_id = ? AND student_id = ?", occurrenceID, studentID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) ListByOccurrence(ctx context.Context, occurrenceID string) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("occurrence_id = ?", occurrenceID).
		Order("created_at ASC").
		Find(&recs).Error
	return recs, err
}

func (r *attendanceRepo) ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.AttendanceRecord, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("student_id = ?", studentID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []model.AttendanceRecord
	err := db.
		Preload("Occurrence").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, total, err
}

func (r *attendanceRepo) ListByClassInRange(ctx context.Context, classID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Occurrence").
		Preload("Student").
		Joins("JOIN lesson_occurrences ON lesson_occurrences.occurrence_id = attendance_records.occurrence_id").
		Where("lesson_occurrences.class_id = ?", classID).
		Where("lesson_occurrences.starts_at >= ? AND lesson_occurrences.starts_at < ?", from, to).
		Order("lesson_occurrences.starts_at ASC").
		Find(&recs).Error
	return recs, err
}
