package model

// Course (courses). Catalog entry, read-only for the matching engine.
type Course struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"         json:"id"`
	Code         string `gorm:"type:varchar(20);not null;unique" json:"code"`
	Name         string `gorm:"type:varchar(200);not null"       json:"name"`
	DepartmentID *int64 `gorm:"index"                            json:"department_id,omitempty"`
}

// TableName courses
func (Course) TableName() string { return "courses" }

// TutorCourse (tutor_courses): a course a tutor currently offers.
type TutorCourse struct {
	TutorID  int64 `gorm:"primaryKey;autoIncrement:false" json:"tutor_id"`
	CourseID int64 `gorm:"primaryKey;autoIncrement:false" json:"course_id"`
}

// TableName tutor_courses
func (TutorCourse) TableName() string { return "tutor_courses" }

// TuteeCourse (tutee_courses): a course a tutee needs.
type TuteeCourse struct {
	TuteeID  int64 `gorm:"primaryKey;autoIncrement:false" json:"tutee_id"`
	CourseID int64 `gorm:"primaryKey;autoIncrement:false" json:"course_id"`
}

// TableName tutee_courses
func (TuteeCourse) TableName() string { return "tutee_courses" }
