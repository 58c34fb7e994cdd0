package dto

import "time"

// ── Sweep results ──

// CreatedMatch a match created by a sweep or an accepted suggestion
type CreatedMatch struct {
	MatchID   int64   `json:"match_id"`
	TutorID   int64   `json:"tutor_id"`
	TuteeID   int64   `json:"tutee_id"`
	CourseIDs []int64 `json:"course_ids"`
}

// AutoMatchResult outcome of one auto-match sweep.
// When Aborted is true the whole sweep was rolled back and Matches is empty.
type AutoMatchResult struct {
	RunID          string         `json:"run_id"`
	TuteesScanned  int            `json:"tutees_scanned"`
	MatchesCreated int            `json:"matches_created"`
	Matches        []CreatedMatch `json:"matches"`
	Aborted        bool           `json:"aborted"`
	Cause          string         `json:"cause,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
}

// SuggestionSweepResult outcome of one suggestion-generation sweep.
// Suggestions are applied one by one, so SuggestionsCreated stays accurate
// even when Aborted is true.
type SuggestionSweepResult struct {
	RunID              string    `json:"run_id"`
	TuteesScanned      int       `json:"tutees_scanned"`
	SuggestionsCreated int       `json:"suggestions_created"`
	SkippedExisting    int       `json:"skipped_existing"`
	Aborted            bool      `json:"aborted"`
	Cause              string    `json:"cause,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

// AcceptSuggestionResponse POST /suggestions/:id/accept
type AcceptSuggestionResponse struct {
	Success bool  `json:"success"`
	MatchID int64 `json:"match_id"`
}

// RejectSuggestionResponse POST /suggestions/:id/reject
type RejectSuggestionResponse struct {
	Success bool `json:"success"`
}

// ── Events ──

// Match event sources
const (
	MatchSourceAutoMatch  = "auto_match"
	MatchSourceSuggestion = "suggestion"
)

// MatchCreatedEvent is published once per committed match.
type MatchCreatedEvent struct {
	MatchID      int64     `json:"match_id"`
	TutorID      int64     `json:"tutor_id"`
	TuteeID      int64     `json:"tutee_id"`
	CourseIDs    []int64   `json:"course_ids"`
	Source       string    `json:"source"`
	SuggestionID *int64    `json:"suggestion_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ── Read side ──

// CourseResponse catalog course
type CourseResponse struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// DepartmentResponse department
type DepartmentResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MatchResponse a match with the courses it covers
type MatchResponse struct {
	ID        int64            `json:"id"`
	TutorID   int64            `json:"tutor_id"`
	TuteeID   int64            `json:"tutee_id"`
	Courses   []CourseResponse `json:"courses"`
	CreatedAt string           `json:"created_at"`
}

// SuggestionResponse a suggestion with its course
type SuggestionResponse struct {
	ID        int64           `json:"id"`
	TutorID   int64           `json:"tutor_id"`
	TuteeID   int64           `json:"tutee_id"`
	CourseID  int64           `json:"course_id"`
	Course    *CourseResponse `json:"course,omitempty"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"created_at"`
}

// SuggestionListRequest query for suggestion listings
type SuggestionListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending accepted rejected"`
}

// GetStatus returns the requested status, pending by default.
func (r *SuggestionListRequest) GetStatus() string {
	if r.Status == "" {
		return "pending"
	}
	return r.Status
}

// CourseListRequest query for the course catalog
type CourseListRequest struct {
	DepartmentID *int64 `form:"department_id" binding:"omitempty,min=1"`
}
