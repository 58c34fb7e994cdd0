package repository

import (
	"context"

	"gorm.io/gorm"

	"peerbridge/internal/model"
)

// CourseRepository course catalog access (read-only)
type CourseRepository interface {
	List(ctx context.Context, departmentID *int64) ([]model.Course, error)
	ListByTutor(ctx context.Context, tutorID int64) ([]model.Course, error)
	ListByTutee(ctx context.Context, tuteeID int64) ([]model.Course, error)
}

// TutorCourseRepository courses a tutor offers
type TutorCourseRepository interface {
	ListCourseIDs(ctx context.Context, tutorID int64) ([]int64, error)
	// ListCommonCourseIDs the subset of courseIDs the tutor offers, ascending.
	ListCommonCourseIDs(ctx context.Context, tutorID int64, courseIDs []int64) ([]int64, error)
	DeleteByTutor(ctx context.Context, tutorID int64) error
	Create(ctx context.Context, tc *model.TutorCourse) error
}

// TuteeCourseRepository courses a tutee needs (never written by the engine)
type TuteeCourseRepository interface {
	ListCourseIDs(ctx context.Context, tuteeID int64) ([]int64, error)
}

// ── Course ──

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo creates a CourseRepository.
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) List(ctx context.Context, departmentID *int64) ([]model.Course, error) {
	var courses []model.Course
	q := r.db.WithContext(ctx)
	if departmentID != nil {
		q = q.Where("department_id = ?", *departmentID)
	}
	err := q.Order("code ASC").Find(&courses).Error
	return courses, err
}

func (r *courseRepo) ListByTutor(ctx context.Context, tutorID int64) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Joins("JOIN tutor_courses tc ON tc.course_id = courses.id").
		Where("tc.tutor_id = ?", tutorID).
		Order("courses.code ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) ListByTutee(ctx context.Context, tuteeID int64) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Joins("JOIN tutee_courses tc ON tc.course_id = courses.id").
		Where("tc.tutee_id = ?", tuteeID).
		Order("courses.code ASC").
		Find(&courses).Error
	return courses, err
}

// ── TutorCourse ──

type tutorCourseRepo struct {
	db *gorm.DB
}

// NewTutorCourseRepo creates a TutorCourseRepository.
func NewTutorCourseRepo(db *gorm.DB) TutorCourseRepository {
	return &tutorCourseRepo{db: db}
}

func (r *tutorCourseRepo) ListCourseIDs(ctx context.Context, tutorID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.TutorCourse{}).
		Where("tutor_id = ?", tutorID).
		Order("course_id ASC").
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *tutorCourseRepo) ListCommonCourseIDs(ctx context.Context, tutorID int64, courseIDs []int64) ([]int64, error) {
	var ids []int64
	if len(courseIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.TutorCourse{}).
		Where("tutor_id = ? AND course_id IN ?", tutorID, courseIDs).
		Order("course_id ASC").
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *tutorCourseRepo) DeleteByTutor(ctx context.Context, tutorID int64) error {
	return r.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Delete(&model.TutorCourse{}).Error
}

func (r *tutorCourseRepo) Create(ctx context.Context, tc *model.TutorCourse) error {
	return r.db.WithContext(ctx).Create(tc).Error
}

// ── TuteeCourse ──

type tuteeCourseRepo struct {
	db *gorm.DB
}

// NewTuteeCourseRepo creates a TuteeCourseRepository.
func NewTuteeCourseRepo(db *gorm.DB) TuteeCourseRepository {
	return &tuteeCourseRepo{db: db}
}

func (r *tuteeCourseRepo) ListCourseIDs(ctx context.Context, tuteeID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.TuteeCourse{}).
		Where("tutee_id = ?", tuteeID).
		Order("course_id ASC").
		Pluck("course_id", &ids).Error
	return ids, err
}
