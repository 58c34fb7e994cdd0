package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peerbridge/internal/model"
	pkgerrors "peerbridge/pkg/errors"
)

// SuggestionRepository suggestion access
type SuggestionRepository interface {
	// GetPendingForUpdate loads a pending suggestion and locks its row.
	// Returns gorm.ErrRecordNotFound when missing or no longer pending.
	GetPendingForUpdate(ctx context.Context, id int64) (*model.Suggestion, error)
	ExistsPending(ctx context.Context, tutorID, tuteeID, courseID int64) (bool, error)
	// Create inserts a suggestion; created is false when an identical
	// pending suggestion already exists.
	Create(ctx context.Context, s *model.Suggestion) (created bool, err error)
	// UpdateStatus moves id from status from to status to. Returns
	// pkgerrors.ErrStatusChanged when the row is no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to string) error
	ListByTutor(ctx context.Context, tutorID int64, status string) ([]model.Suggestion, error)
	ListByTutee(ctx context.Context, tuteeID int64, status string) ([]model.Suggestion, error)
}

type suggestionRepo struct {
	db *gorm.DB
}

// NewSuggestionRepo creates a SuggestionRepository.
func NewSuggestionRepo(db *gorm.DB) SuggestionRepository {
	return &suggestionRepo{db: db}
}

func (r *suggestionRepo) GetPendingForUpdate(ctx context.Context, id int64) (*model.Suggestion, error) {
	var s model.Suggestion
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ?", id, model.SuggestionPending).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *suggestionRepo) ExistsPending(ctx context.Context, tutorID, tuteeID, courseID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Suggestion{}).
		Where("tutor_id = ? AND tutee_id = ? AND course_id = ? AND status = ?",
			tutorID, tuteeID, courseID, model.SuggestionPending).
		Count(&count).Error
	return count > 0, err
}

func (r *suggestionRepo) Create(ctx context.Context, s *model.Suggestion) (bool, error) {
	if s.Status == "" {
		s.Status = model.SuggestionPending
	}
	// uq_suggestions_pending turns a concurrent duplicate into a no-op
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(s)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *suggestionRepo) UpdateStatus(ctx context.Context, id int64, from, to string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Suggestion{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStatusChanged
	}
	return nil
}

func (r *suggestionRepo) ListByTutor(ctx context.Context, tutorID int64, status string) ([]model.Suggestion, error) {
	var list []model.Suggestion
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("tutor_id = ? AND status = ?", tutorID, status).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *suggestionRepo) ListByTutee(ctx context.Context, tuteeID int64, status string) ([]model.Suggestion, error) {
	var list []model.Suggestion
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("tutee_id = ? AND status = ?", tuteeID, status).
		Order("id ASC").
		Find(&list).Error
	return list, err
}
