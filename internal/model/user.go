package model

// User roles
const (
	RoleTutor = "tutor"
	RoleTutee = "tutee"
	RoleAdmin = "admin"
)

// User (users). Tutors and tutees are users with course edges.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"          json:"id"`
	Email        string `gorm:"type:varchar(255);not null;unique" json:"email"`
	FullName     string `gorm:"type:varchar(100);not null"        json:"full_name"`
	Role         string `gorm:"type:varchar(20);not null"         json:"role"`
	DepartmentID int64  `gorm:"index"                             json:"department_id"`
	Timestamps

	Department *Department `gorm:"foreignKey:DepartmentID;references:ID" json:"department,omitempty"`
}

// TableName users
func (User) TableName() string { return "users" }
