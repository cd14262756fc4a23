package dto

import "time"

// ── 课时包模块请求 ──

// CreateHoursPackageRequest 购买课时包请求
type CreateHoursPackageRequest struct {
	StudentID  string     `json:"student_id"  binding:"required,uuid"`
	CourseID   string     `json:"course_id"   binding:"required,uuid"`
	TotalHours float64    `json:"total_hours" binding:"required,gt=0"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

// AdjustHoursPackageRequest 管理员手工校正请求
// DeltaHours 为正表示补还课时，为负表示追加扣减；余额始终被钳制在 [0, total]
type AdjustHoursPackageRequest struct {
	DeltaHours float64 `json:"delta_hours" binding:"required"`
	Reason     string  `json:"reason"      binding:"required,max=500"`
}

// ── 课时包模块响应 ──

// HoursPackageResponse 课时包响应
type HoursPackageResponse struct {
	ID             string  `json:"id"`
	StudentID      string  `json:"student_id"`
	CourseID       string  `json:"course_id"`
	TotalHours     float64 `json:"total_hours"`
	RemainingHours float64 `json:"remaining_hours"`
	PurchaseDate   string  `json:"purchase_date"`
	ExpiryDate     *string `json:"expiry_date,omitempty"`
	IsActive       bool    `json:"is_active"`
}

// [自证通过] internal/dto/hours_package.go
