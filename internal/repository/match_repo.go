package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peerbridge/internal/model"
)

// MatchRepository match access
type MatchRepository interface {
	// Create inserts the match row only; courses go through AddCourses.
	Create(ctx context.Context, match *model.Match) error
	AddCourses(ctx context.Context, matchID int64, courseIDs []int64) error
	CountByTutor(ctx context.Context, tutorID int64) (int64, error)
	CountByTutee(ctx context.Context, tuteeID int64) (int64, error)
	ExistsPair(ctx context.Context, tutorID, tuteeID int64) (bool, error)
	ListByTutor(ctx context.Context, tutorID int64) ([]model.Match, error)
	ListByTutee(ctx context.Context, tuteeID int64) ([]model.Match, error)
}

type matchRepo struct {
	db *gorm.DB
}

// NewMatchRepo creates a MatchRepository.
func NewMatchRepo(db *gorm.DB) MatchRepository {
	return &matchRepo{db: db}
}

func (r *matchRepo) Create(ctx context.Context, match *model.Match) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(match).Error
}

func (r *matchRepo) AddCourses(ctx context.Context, matchID int64, courseIDs []int64) error {
	if len(courseIDs) == 0 {
		return nil
	}
	rows := make([]model.MatchCourse, 0, len(courseIDs))
	for _, id := range courseIDs {
		rows = append(rows, model.MatchCourse{MatchID: matchID, CourseID: id})
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&rows).Error
}

func (r *matchRepo) CountByTutor(ctx context.Context, tutorID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("tutor_id = ?", tutorID).
		Count(&count).Error
	return count, err
}

func (r *matchRepo) CountByTutee(ctx context.Context, tuteeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("tutee_id = ?", tuteeID).
		Count(&count).Error
	return count, err
}

func (r *matchRepo) ExistsPair(ctx context.Context, tutorID, tuteeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("tutor_id = ? AND tutee_id = ?", tutorID, tuteeID).
		Count(&count).Error
	return count > 0, err
}

func (r *matchRepo) ListByTutor(ctx context.Context, tutorID int64) ([]model.Match, error) {
	var matches []model.Match
	err := r.db.WithContext(ctx).
		Preload("Courses.Course").
		Where("tutor_id = ?", tutorID).
		Order("id ASC").
		Find(&matches).Error
	return matches, err
}

func (r *matchRepo) ListByTutee(ctx context.Context, tuteeID int64) ([]model.Match, error) {
	var matches []model.Match
	err := r.db.WithContext(ctx).
		Preload("Courses.Course").
		Where("tutee_id = ?", tuteeID).
		Order("id ASC").
		Find(&matches).Error
	return matches, err
}
