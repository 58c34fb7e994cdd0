package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peerbridge/internal/model"
)

// UserRepository user access for the matching engine
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// ListTuteesUnderCapacity tutees with fewer than limit matches, ascending id.
	// requireCourses keeps only tutees with at least one needed course.
	ListTuteesUnderCapacity(ctx context.Context, limit int, requireCourses bool) ([]model.User, error)
	// ListEligibleTutors tutors of departmentID offering any of courseIDs, with
	// fewer than limit matches and no match with tuteeID yet, ascending id.
	ListEligibleTutors(ctx context.Context, departmentID int64, courseIDs []int64, tuteeID int64, limit int) ([]model.User, error)
	// ListTutorsUnderCapacity tutors of departmentID with fewer than limit matches, ascending id.
	ListTutorsUnderCapacity(ctx context.Context, departmentID int64, limit int) ([]model.User, error)
	// LockForUpdate takes row locks on the given users in ascending id order.
	// Only meaningful inside a transaction.
	LockForUpdate(ctx context.Context, ids ...int64) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a UserRepository.
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Department").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListTuteesUnderCapacity(ctx context.Context, limit int, requireCourses bool) ([]model.User, error) {
	var tutees []model.User
	q := r.db.WithContext(ctx).
		Where("users.role = ?", model.RoleTutee).
		Where("(SELECT COUNT(*) FROM matches m WHERE m.tutee_id = users.id) < ?", limit)
	if requireCourses {
		q = q.Where("EXISTS (SELECT 1 FROM tutee_courses tc WHERE tc.tutee_id = users.id)")
	}
	err := q.Order("users.id ASC").Find(&tutees).Error
	return tutees, err
}

func (r *userRepo) ListEligibleTutors(ctx context.Context, departmentID int64, courseIDs []int64, tuteeID int64, limit int) ([]model.User, error) {
	var tutors []model.User
	if len(courseIDs) == 0 {
		return tutors, nil
	}
	err := r.db.WithContext(ctx).
		Where("users.role = ? AND users.department_id = ?", model.RoleTutor, departmentID).
		Where("EXISTS (SELECT 1 FROM tutor_courses tc WHERE tc.tutor_id = users.id AND tc.course_id IN ?)", courseIDs).
		Where("(SELECT COUNT(*) FROM matches m WHERE m.tutor_id = users.id) < ?", limit).
		Where("NOT EXISTS (SELECT 1 FROM matches m WHERE m.tutor_id = users.id AND m.tutee_id = ?)", tuteeID).
		Order("users.id ASC").
		Find(&tutors).Error
	return tutors, err
}

func (r *userRepo) ListTutorsUnderCapacity(ctx context.Context, departmentID int64, limit int) ([]model.User, error) {
	var tutors []model.User
	err := r.db.WithContext(ctx).
		Where("users.role = ? AND users.department_id = ?", model.RoleTutor, departmentID).
		Where("(SELECT COUNT(*) FROM matches m WHERE m.tutor_id = users.id) < ?", limit).
		Order("users.id ASC").
		Find(&tutors).Error
	return tutors, err
}

func (r *userRepo) LockForUpdate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var locked []model.User
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&locked).Error
}
