package model

import "time"

// Match (matches): one committed tutor/tutee pairing.
type Match struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"          json:"id"`
	TutorID   int64     `gorm:"not null;index"                    json:"tutor_id"`
	TuteeID   int64     `gorm:"not null;index"                    json:"tutee_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Courses []MatchCourse `gorm:"foreignKey:MatchID;references:ID" json:"courses,omitempty"`
}

// TableName matches
func (Match) TableName() string { return "matches" }

// MatchCourse (match_courses): a course covered by a match.
type MatchCourse struct {
	MatchID  int64 `gorm:"primaryKey;autoIncrement:false" json:"match_id"`
	CourseID int64 `gorm:"primaryKey;autoIncrement:false" json:"course_id"`

	Course *Course `gorm:"foreignKey:CourseID;references:ID" json:"course,omitempty"`
}

// TableName match_courses
func (MatchCourse) TableName() string { return "match_courses" }
