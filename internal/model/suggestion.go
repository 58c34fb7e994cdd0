package model

// Suggestion statuses
const (
	SuggestionPending  = "pending"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
)

// Suggestion (suggestions): a proposed course for a tutor's repertoire that
// would let them serve a specific tutee. Never deleted; terminates in
// accepted or rejected.
type Suggestion struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"                     json:"id"`
	TutorID  int64  `gorm:"not null"                                     json:"tutor_id"`
	TuteeID  int64  `gorm:"not null"                                     json:"tutee_id"`
	CourseID int64  `gorm:"not null"                                     json:"course_id"`
	Status   string `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Timestamps

	Course *Course `gorm:"foreignKey:CourseID;references:ID" json:"course,omitempty"`
}

// TableName suggestions
func (Suggestion) TableName() string { return "suggestions" }
