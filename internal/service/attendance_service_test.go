package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/drilonhametaj25/insegnami-sub002/internal/dto"
	"github.com/drilonhametaj25/insegnami-sub002/internal/model"
)

// ── 测试辅助 ──

func setupTestAttendanceService() (AttendanceService, *serviceFixture) {
	f := newServiceFixture()
	svc := NewAttendanceService(testConfig(), f.repo, f.notifier, zap.NewNop())
	return svc, f
}

// seedLedger 准备一节 2 小时课（class-1 / course-1）与已报名学员 s-1
func seedLedger(t *testing.T, f *serviceFixture) {
	t.Helper()
	seedClass(f)

	student := &model.Student{StudentID: "s-1", Name: "Marco", IsActive: true}
	f.students.students["s-1"] = student
	f.enrollments.enroll("class-1", student)

	occ := occurrence(t, "occ-1", "t-1", "2024-01-01T09:00:00Z", "2024-01-01T11:00:00Z", model.OccurrenceStatusScheduled)
	occ.ClassID = "class-1"
	occ.Class = f.classes.classes["class-1"]
	f.occurrences.occurrences["occ-1"] = &occ
}

func seedPackage(f *serviceFixture, id string, total, remaining float64, purchase time.Time) {
	f.packages.packages[id] = &model.HoursPackage{
		PackageID:      id,
		StudentID:      "s-1",
		CourseID:       "course-1",
		TotalHours:     total,
		RemainingHours: remaining,
		PurchaseDate:   purchase,
		IsActive:       true,
	}
}

func presentRequest() *dto.RecordAttendanceRequest {
	return &dto.RecordAttendanceRequest{
		OccurrenceID: "occ-1",
		StudentID:    "s-1",
		Status:       model.AttendanceStatusPresent,
	}
}

// ── RecordAttendance 测试 ──

func TestAttendanceService_Record_PresentDeductsFullDuration(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 10, mustParse(t, "2023-12-01T00:00:00Z"))

	result, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if result.HoursAttended == nil || *result.HoursAttended != 2 {
		t.Fatalf("出席 2 小时课应计 2 课时，实际=%v", result.HoursAttended)
	}
	if result.Deduction == nil {
		t.Fatal("应返回扣减结果")
	}
	if result.Deduction.RemainingHours != 8 {
		t.Errorf("期望余额 8，实际=%v", result.Deduction.RemainingHours)
	}
	if result.Deduction.LowBalance {
		t.Error("余额 8/10 不应判定为低位")
	}
	if f.notifier.eventCount() != 0 {
		t.Errorf("不应发出低余额事件，实际=%d", f.notifier.eventCount())
	}
}

func TestAttendanceService_Record_LateDeductsHalf(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 10, mustParse(t, "2023-12-01T00:00:00Z"))

	req := presentRequest()
	req.Status = model.AttendanceStatusLate

	result, err := svc.RecordAttendance(context.Background(), req, "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if *result.HoursAttended != 1 {
		t.Errorf("迟到应按半时长计 1 课时，实际=%v", *result.HoursAttended)
	}
	if result.Deduction.RemainingHours != 9 {
		t.Errorf("期望余额 9，实际=%v", result.Deduction.RemainingHours)
	}
}

func TestAttendanceService_Record_AbsentNoDeduction(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 10, mustParse(t, "2023-12-01T00:00:00Z"))

	req := presentRequest()
	req.Status = model.AttendanceStatusAbsent

	result, err := svc.RecordAttendance(context.Background(), req, "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if *result.HoursAttended != 0 {
		t.Errorf("缺席应计 0 课时，实际=%v", *result.HoursAttended)
	}
	if result.Deduction != nil {
		t.Error("零课时不应触发扣减")
	}
	if f.packages.packages["pkg-1"].RemainingHours != 10 {
		t.Errorf("余额不应变动，实际=%v", f.packages.packages["pkg-1"].RemainingHours)
	}
}

func TestAttendanceService_Record_ExplicitHoursOverride(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 10, mustParse(t, "2023-12-01T00:00:00Z"))

	hours := 1.5
	req := presentRequest()
	req.Hours = &hours

	result, err := svc.RecordAttendance(context.Background(), req, "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if *result.HoursAttended != 1.5 {
		t.Errorf("显式课时应覆盖状态推导，实际=%v", *result.HoursAttended)
	}
	if result.Deduction.RemainingHours != 8.5 {
		t.Errorf("期望余额 8.5，实际=%v", result.Deduction.RemainingHours)
	}
}

func TestAttendanceService_Record_NotEnrolled(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)

	outsider := &model.Student{StudentID: "s-2", Name: "Luca", IsActive: true}
	f.students.students["s-2"] = outsider

	req := presentRequest()
	req.StudentID = "s-2"

	_, err := svc.RecordAttendance(context.Background(), req, "staff-001")
	if !errors.Is(err, ErrStudentNotEnrolled) {
		t.Fatalf("期望 ErrStudentNotEnrolled，实际: %v", err)
	}
	// 校验失败在任何写入之前
	if len(f.attendance.records) != 0 {
		t.Error("未报名学员不应产生考勤记录")
	}
}

func TestAttendanceService_Record_OccurrenceNotFound(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)

	req := presentRequest()
	req.OccurrenceID = "missing"

	if _, err := svc.RecordAttendance(context.Background(), req, "staff-001"); !errors.Is(err, ErrOccurrenceNotFound) {
		t.Errorf("期望 ErrOccurrenceNotFound，实际: %v", err)
	}
}

func TestAttendanceService_Record_NoPackageSkipsDeduction(t *testing.T) {
	// 学员不走课时制：无可用包时跳过扣减，登记本身成功
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)

	result, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if result.Deduction != nil {
		t.Error("无课时包时不应返回扣减结果")
	}
	if len(f.attendance.records) != 1 {
		t.Errorf("考勤记录应已落库，实际=%d", len(f.attendance.records))
	}
}

func TestAttendanceService_Record_ExpiredPackageSkipped(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-old", 10, 5, mustParse(t, "2023-01-01T00:00:00Z"))
	expired := mustParse(t, "2023-06-01T00:00:00Z")
	f.packages.packages["pkg-old"].ExpiryDate = &expired

	result, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if result.Deduction != nil {
		t.Error("过期包不应被选中扣减")
	}
}

func TestAttendanceService_Record_FIFOSelectsOldest(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-new", 10, 10, mustParse(t, "2024-01-01T00:00:00Z"))
	seedPackage(f, "pkg-old", 10, 10, mustParse(t, "2023-06-01T00:00:00Z"))

	result, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if result.Deduction.PackageID != "pkg-old" {
		t.Errorf("FIFO 应选最早购买的 pkg-old，实际=%s", result.Deduction.PackageID)
	}
	if f.packages.packages["pkg-new"].RemainingHours != 10 {
		t.Error("较新课时包不应被扣减")
	}
}

func TestAttendanceService_Record_FloorAtZeroDeactivatesAndNotifies(t *testing.T) {
	// 出席 2 小时课，余额只剩 1.5 → 扣到 0、停用、发低余额事件
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 1.5, mustParse(t, "2023-12-01T00:00:00Z"))

	result, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	if result.Deduction.RemainingHours != 0 {
		t.Errorf("余额应扣到 0，实际=%v", result.Deduction.RemainingHours)
	}
	if !result.Deduction.Deactivated {
		t.Error("扣空的课时包应被停用")
	}
	if f.packages.packages["pkg-1"].IsActive {
		t.Error("库中课时包也应停用")
	}
	// 余额为 0 属耗尽而非低位，但扣空本身要发事件提醒续费
	if result.Deduction.LowBalance {
		t.Error("余额 0 属耗尽而非低位")
	}
	if f.notifier.eventCount() != 1 {
		t.Errorf("扣空应发出事件，实际=%d", f.notifier.eventCount())
	}
}

func TestAttendanceService_Record_LowBalanceEventEmitted(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 3.5, mustParse(t, "2023-12-01T00:00:00Z"))

	result, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("RecordAttendance 应成功: %v", err)
	}
	// 3.5 - 2 = 1.5，1.5/10 <= 0.20 且 > 0 → 低位
	if !result.Deduction.LowBalance {
		t.Fatal("余额 1.5/10 应判定为低位")
	}
	if f.notifier.eventCount() != 1 {
		t.Fatalf("期望发出 1 条低余额事件，实际=%d", f.notifier.eventCount())
	}

	event := f.notifier.events[0]
	if event.StudentID != "s-1" || event.CourseID != "course-1" || event.PackageID != "pkg-1" {
		t.Errorf("事件载荷不完整: %+v", event)
	}
	if event.RemainingHours != 1.5 || event.TotalHours != 10 {
		t.Errorf("事件余额字段错误: remaining=%v total=%v", event.RemainingHours, event.TotalHours)
	}
}

func TestAttendanceService_Record_LevelTriggeredReEmits(t *testing.T) {
	// 电平触发：余额持续低位期间，每次合格登记都重新发事件
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 2, mustParse(t, "2023-12-01T00:00:00Z"))

	hours := 0.25
	req := presentRequest()
	req.Hours = &hours

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordAttendance(context.Background(), req, "staff-001"); err != nil {
			t.Fatalf("第 %d 次登记应成功: %v", i+1, err)
		}
	}
	// 2 → 1.75 → 1.5 → 1.25，三次均处于低位
	if f.notifier.eventCount() != 3 {
		t.Errorf("低位期间每次登记都应发事件，期望 3，实际=%d", f.notifier.eventCount())
	}
}

func TestAttendanceService_Record_UpsertOneRecordButDoubleDeduct(t *testing.T) {
	// 重复登记：(课节, 学员) 维度只有一条记录，但扣减副作用不幂等
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 10, mustParse(t, "2023-12-01T00:00:00Z"))

	first, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("首次登记应成功: %v", err)
	}
	second, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err != nil {
		t.Fatalf("重复登记应成功: %v", err)
	}

	if len(f.attendance.records) != 1 {
		t.Errorf("期望唯一考勤记录，实际=%d", len(f.attendance.records))
	}
	if first.ID != second.ID {
		t.Errorf("重复登记应命中同一条记录: %s != %s", first.ID, second.ID)
	}
	// 各扣一次：10 - 2 - 2 = 6
	if got := f.packages.packages["pkg-1"].RemainingHours; got != 6 {
		t.Errorf("重复登记会再扣一次，期望余额 6，实际=%v", got)
	}
}

func TestAttendanceService_Record_MissingClassPreloadFails(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 10, 10, mustParse(t, "2023-12-01T00:00:00Z"))

	// 课节缺班级预载时不能拿 ClassID 冒充 CourseID 去选包
	f.occurrences.occurrences["occ-1"].Class = nil

	_, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001")
	if err == nil {
		t.Fatal("缺少班级关联应报错")
	}
	if len(f.attendance.records) != 0 {
		t.Errorf("报错前不应写入考勤记录，实际=%d", len(f.attendance.records))
	}
	if f.packages.packages["pkg-1"].RemainingHours != 10 {
		t.Errorf("不应发生扣减，实际余额=%v", f.packages.packages["pkg-1"].RemainingHours)
	}
}

func TestAttendanceService_Record_FloatResidueExhaustsPackage(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)
	seedPackage(f, "pkg-1", 2, 2, mustParse(t, "2023-12-01T00:00:00Z"))

	// 2 − 1.9 − 0.1 在二进制浮点下留下 ~1e-17 的正残差；
	// 按列精度 numeric(6,2) 取整后应判定为扣空并停用
	first := presentRequest()
	h1 := 1.9
	first.Hours = &h1
	if _, err := svc.RecordAttendance(context.Background(), first, "staff-001"); err != nil {
		t.Fatalf("第一次登记应成功: %v", err)
	}

	second := presentRequest()
	h2 := 0.1
	second.Hours = &h2
	result, err := svc.RecordAttendance(context.Background(), second, "staff-001")
	if err != nil {
		t.Fatalf("第二次登记应成功: %v", err)
	}
	if result.Deduction == nil {
		t.Fatal("应返回扣减结果")
	}
	if result.Deduction.RemainingHours != 0 {
		t.Errorf("期望余额取整到 0，实际=%v", result.Deduction.RemainingHours)
	}
	if !result.Deduction.Deactivated {
		t.Error("期望残差扣空后停用课时包")
	}
}

// ── 查询测试 ──

func TestAttendanceService_ListByOccurrence(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)

	if _, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001"); err != nil {
		t.Fatalf("登记应成功: %v", err)
	}

	result, err := svc.ListByOccurrence(context.Background(), "occ-1")
	if err != nil {
		t.Fatalf("ListByOccurrence 应成功: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("期望 1 条记录，实际=%d", len(result))
	}
	if result[0].Status != model.AttendanceStatusPresent {
		t.Errorf("期望状态 present，实际=%s", result[0].Status)
	}
}

func TestAttendanceService_ListByStudent(t *testing.T) {
	svc, f := setupTestAttendanceService()
	seedLedger(t, f)

	if _, err := svc.RecordAttendance(context.Background(), presentRequest(), "staff-001"); err != nil {
		t.Fatalf("登记应成功: %v", err)
	}

	page := &dto.PaginationRequest{Page: 1, PageSize: 10}
	result, total, err := svc.ListByStudent(context.Background(), "s-1", page)
	if err != nil {
		t.Fatalf("ListByStudent 应成功: %v", err)
	}
	if total != 1 || len(result) != 1 {
		t.Errorf("期望 1 条记录，实际 total=%d len=%d", total, len(result))
	}
}
