package dto

import "time"

// ── 排课模块请求 ──

// RecurrenceRuleRequest 重复规则
type RecurrenceRuleRequest struct {
	Frequency      string     `json:"frequency"       binding:"required,oneof=weekly monthly"`
	Interval       int        `json:"interval"        binding:"omitempty,min=1"` // 缺省为 1
	Weekdays       []int      `json:"weekdays"        binding:"omitempty,dive,min=1,max=7"`
	EndDate        *time.Time `json:"end_date"`
	MaxOccurrences *int       `json:"max_occurrences" binding:"omitempty,min=1"`
}

// CreateSeriesRequest 创建课程系列请求
type CreateSeriesRequest struct {
	ClassID     string                `json:"class_id"    binding:"required,uuid"`
	TeacherID   string                `json:"teacher_id"  binding:"omitempty,uuid"` // 缺省取班级绑定教师（代课场景可覆盖）
	Title       string                `json:"title"       binding:"required,max=200"`
	Description string                `json:"description" binding:"omitempty"`
	Room        string                `json:"room"        binding:"omitempty,max=100"`
	StartsAt    time.Time             `json:"starts_at"   binding:"required"`
	EndsAt      time.Time             `json:"ends_at"     binding:"required"`
	Recurrence  RecurrenceRuleRequest `json:"recurrence"  binding:"required"`
}

// UpdateOccurrenceRequest 课节调整请求（部分字段更新）
type UpdateOccurrenceRequest struct {
	Title       *string    `json:"title"       binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	Room        *string    `json:"room"        binding:"omitempty,max=100"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Status      *string    `json:"status"      binding:"omitempty,oneof=scheduled in_progress completed cancelled"`
}

// OccurrenceListRequest 课节列表查询
type OccurrenceListRequest struct {
	PaginationRequest
	TeacherID string     `form:"teacher_id" binding:"omitempty,uuid"`
	ClassID   string     `form:"class_id"   binding:"omitempty,uuid"`
	From      *time.Time `form:"from"       time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to"         time_format:"2006-01-02T15:04:05Z07:00"`
}

// ── 排课模块响应 ──

// RecurrenceRuleResponse 重复规则响应
type RecurrenceRuleResponse struct {
	Frequency      string  `json:"frequency"`
	Interval       int     `json:"interval"`
	Weekdays       []int   `json:"weekdays,omitempty"`
	EndDate        *string `json:"end_date,omitempty"`
	MaxOccurrences *int    `json:"max_occurrences,omitempty"`
}

// TemplateResponse 课程系列模板响应
type TemplateResponse struct {
	ID          string                 `json:"id"`
	ClassID     string                 `json:"class_id"`
	TeacherID   string                 `json:"teacher_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Room        string                 `json:"room,omitempty"`
	StartsAt    string                 `json:"starts_at"`
	EndsAt      string                 `json:"ends_at"`
	Recurrence  RecurrenceRuleResponse `json:"recurrence"`
	CreatedAt   string                 `json:"created_at"`
}

// OccurrenceResponse 课节响应
type OccurrenceResponse struct {
	ID          string        `json:"id"`
	TemplateID  *string       `json:"template_id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Room        string        `json:"room,omitempty"`
	StartsAt    string        `json:"starts_at"`
	EndsAt      string        `json:"ends_at"`
	Status      string        `json:"status"`
	Class       *ClassBrief   `json:"class,omitempty"`
	Teacher     *TeacherBrief `json:"teacher,omitempty"`
	UpdatedAt   string        `json:"updated_at"`
}

// SeriesResponse 课程系列创建响应（模板 + 全部课节）
type SeriesResponse struct {
	Template    TemplateResponse     `json:"template"`
	Occurrences []OccurrenceResponse `json:"occurrences"`
}

// [自证通过] internal/dto/lesson.go
