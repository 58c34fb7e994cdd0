package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"peerbridge/internal/dto"
	"peerbridge/internal/model"
	"peerbridge/internal/repository"
	pkgerrors "peerbridge/pkg/errors"
)

var (
	ErrTutorNotFound = &pkgerrors.NotFoundError{Message: "Tutor not found"}
	ErrTuteeNotFound = &pkgerrors.NotFoundError{Message: "Tutee not found"}
)

// MatchService read side of matches and suggestions for dashboards
type MatchService interface {
	ListForTutor(ctx context.Context, tutorID int64) ([]dto.MatchResponse, error)
	ListForTutee(ctx context.Context, tuteeID int64) ([]dto.MatchResponse, error)
	ListSuggestionsForTutor(ctx context.Context, tutorID int64, status string) ([]dto.SuggestionResponse, error)
	ListSuggestionsForTutee(ctx context.Context, tuteeID int64, status string) ([]dto.SuggestionResponse, error)
}

type matchService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewMatchService creates a MatchService.
func NewMatchService(repo *repository.Repository, logger *zap.Logger) MatchService {
	return &matchService{repo: repo, logger: logger}
}

func (s *matchService) ListForTutor(ctx context.Context, tutorID int64) ([]dto.MatchResponse, error) {
	if err := requireRole(ctx, s.repo, tutorID, model.RoleTutor); err != nil {
		return nil, err
	}
	matches, err := s.repo.Match.ListByTutor(ctx, tutorID)
	if err != nil {
		s.logger.Error("list tutor matches failed", zap.Int64("tutor_id", tutorID), zap.Error(err))
		return nil, pkgerrors.NewStoreError("list tutor matches", err)
	}
	return toMatchResponses(matches), nil
}

func (s *matchService) ListForTutee(ctx context.Context, tuteeID int64) ([]dto.MatchResponse, error) {
	if err := requireRole(ctx, s.repo, tuteeID, model.RoleTutee); err != nil {
		return nil, err
	}
	matches, err := s.repo.Match.ListByTutee(ctx, tuteeID)
	if err != nil {
		s.logger.Error("list tutee matches failed", zap.Int64("tutee_id", tuteeID), zap.Error(err))
		return nil, pkgerrors.NewStoreError("list tutee matches", err)
	}
	return toMatchResponses(matches), nil
}

func (s *matchService) ListSuggestionsForTutor(ctx context.Context, tutorID int64, status string) ([]dto.SuggestionResponse, error) {
	if err := requireRole(ctx, s.repo, tutorID, model.RoleTutor); err != nil {
		return nil, err
	}
	list, err := s.repo.Suggestion.ListByTutor(ctx, tutorID, defaultStatus(status))
	if err != nil {
		s.logger.Error("list tutor suggestions failed", zap.Int64("tutor_id", tutorID), zap.Error(err))
		return nil, pkgerrors.NewStoreError("list tutor suggestions", err)
	}
	return toSuggestionResponses(list), nil
}

func (s *matchService) ListSuggestionsForTutee(ctx context.Context, tuteeID int64, status string) ([]dto.SuggestionResponse, error) {
	if err := requireRole(ctx, s.repo, tuteeID, model.RoleTutee); err != nil {
		return nil, err
	}
	list, err := s.repo.Suggestion.ListByTutee(ctx, tuteeID, defaultStatus(status))
	if err != nil {
		s.logger.Error("list tutee suggestions failed", zap.Int64("tutee_id", tuteeID), zap.Error(err))
		return nil, pkgerrors.NewStoreError("list tutee suggestions", err)
	}
	return toSuggestionResponses(list), nil
}

// ── helpers ──

// requireRole reports ErrTutorNotFound / ErrTuteeNotFound unless id is a user with role.
func requireRole(ctx context.Context, repo *repository.Repository, id int64, role string) error {
	notFound := ErrTuteeNotFound
	if role == model.RoleTutor {
		notFound = ErrTutorNotFound
	}

	user, err := repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound
		}
		return pkgerrors.NewStoreError("load user", err)
	}
	if user.Role != role {
		return notFound
	}
	return nil
}

func defaultStatus(status string) string {
	if status == "" {
		return model.SuggestionPending
	}
	return status
}

func toCourseResponse(c *model.Course) dto.CourseResponse {
	return dto.CourseResponse{
		ID:           c.ID,
		Code:         c.Code,
		Name:         c.Name,
		DepartmentID: c.DepartmentID,
	}
}

func toMatchResponses(matches []model.Match) []dto.MatchResponse {
	list := make([]dto.MatchResponse, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		courses := make([]dto.CourseResponse, 0, len(m.Courses))
		for _, mc := range m.Courses {
			if mc.Course != nil {
				courses = append(courses, toCourseResponse(mc.Course))
			} else {
				courses = append(courses, dto.CourseResponse{ID: mc.CourseID})
			}
		}
		list = append(list, dto.MatchResponse{
			ID:        m.ID,
			TutorID:   m.TutorID,
			TuteeID:   m.TuteeID,
			Courses:   courses,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	return list
}

func toSuggestionResponses(suggestions []model.Suggestion) []dto.SuggestionResponse {
	list := make([]dto.SuggestionResponse, 0, len(suggestions))
	for i := range suggestions {
		sg := &suggestions[i]
		resp := dto.SuggestionResponse{
			ID:        sg.ID,
			TutorID:   sg.TutorID,
			TuteeID:   sg.TuteeID,
			CourseID:  sg.CourseID,
			Status:    sg.Status,
			CreatedAt: sg.CreatedAt.Format(time.RFC3339),
		}
		if sg.Course != nil {
			c := toCourseResponse(sg.Course)
			resp.Course = &c
		}
		list = append(list, resp)
	}
	return list
}
