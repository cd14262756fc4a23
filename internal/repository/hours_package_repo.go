package repository

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
)

// HoursPackageRepository 课时包数据访问接口
// 余额扣减路径在 AttendanceRepository.UpsertWithDeduction 中；
// 这里只承载购买、查询与管理员手工校正
type HoursPackageRepository interface {
	Create(ctx context.Context, pkg *model.HoursPackage) error
	GetByID(ctx context.Context, id string) (*model.HoursPackage, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.HoursPackage, error)
	// OldestActive 只读查询当前 FIFO 选包结果（预检/展示用，不加锁）
	OldestActive(ctx context.Context, studentID, courseID string, at time.Time) (*model.HoursPackage, error)
	// AdjustBalance 事务内行锁校正余额，钳制在 [0, total]；余额为 0 时停用，回正时重新激活
	AdjustBalance(ctx context.Context, id string, delta float64, updatedBy string) (*model.HoursPackage, error)
}

// ── HoursPackage Repository 实现 ──

type hoursPackageRepo struct {
	db *gorm.DB
}

func NewHoursPackageRepo(db *gorm.DB) HoursPackageRepository {
	return &hoursPackageRepo{db: db}
}

func (r *hoursPackageRepo) Create(ctx context.Context, pkg *model.HoursPackage) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *hoursPackageRepo) GetByID(ctx context.Context, id string) (*model.HoursPackage, error) {
	var pkg model.HoursPackage
	err := r.db.WithContext(ctx).
		Where("package_id = ?", id).
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *hoursPackageRepo) ListByStudent(ctx context.Context, studentID string) ([]model.HoursPackage, error) {
	var pkgs []model.HoursPackage
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("purchase_date ASC").
		Find(&pkgs).Error
	return pkgs, err
}

func (r *hoursPackageRepo) OldestActive(ctx context.Context, studentID, courseID string, at time.Time) (*model.HoursPackage, error) {
	var pkg model.HoursPackage
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND is_active = ?", studentID, courseID, true).
		Where("expiry_date IS NULL OR expiry_date > ?", at).
		Order("purchase_date ASC").
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *hoursPackageRepo) AdjustBalance(ctx context.Context, id string, delta float64, updatedBy string) (*model.HoursPackage, error) {
	var adjusted model.HoursPackage

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pkg model.HoursPackage
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("package_id = ?", id).
			First(&pkg).Error; err != nil {
			return err
		}

		// 同扣减路径：按列精度 numeric(6,2) 取整再钳制
		remaining := math.Round((pkg.RemainingHours+delta)*100) / 100
		if remaining < 0 {
			remaining = 0
		}
		if remaining > pkg.TotalHours {
			remaining = pkg.TotalHours
		}
		active := remaining > 0

		result := tx.
			Model(&pkg).
			Where("package_id = ?", id).
			Updates(map[string]interface{}{
				"remaining_hours": remaining,
				"is_active":       active,
				"updated_by":      updatedBy,
				"version":         pkg.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}

		pkg.RemainingHours = remaining
		pkg.IsActive = active
		pkg.Version++
		adjusted = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &adjusted, nil
}
