package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrTxUnsupported is returned by BeginTx on a repository that has no
// transaction support, e.g. one already bound to a transaction.
var ErrTxUnsupported = errors.New("repository: transactions not supported here")

// Tx is an open transaction.
type Tx interface {
	Commit() error
	Rollback() error
}

// TxBeginner opens a transaction and returns the repositories bound to it.
type TxBeginner interface {
	Begin(ctx context.Context) (Tx, *Repository, error)
}

// Repository aggregates every repository.
type Repository struct {
	User        UserRepository
	Department  DepartmentRepository
	Course      CourseRepository
	TutorCourse TutorCourseRepository
	TuteeCourse TuteeCourseRepository
	Match       MatchRepository
	Suggestion  SuggestionRepository

	Tx TxBeginner
}

// NewRepository builds the aggregate over db.
func NewRepository(db *gorm.DB) *Repository {
	r := newRepository(db)
	r.Tx = &gormTxBeginner{db: db}
	return r
}

func newRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:        NewUserRepo(db),
		Department:  NewDepartmentRepo(db),
		Course:      NewCourseRepo(db),
		TutorCourse: NewTutorCourseRepo(db),
		TuteeCourse: NewTuteeCourseRepo(db),
		Match:       NewMatchRepo(db),
		Suggestion:  NewSuggestionRepo(db),
	}
}

// BeginTx opens a transaction. Writes through the returned repository are
// only visible to others after Commit.
func (r *Repository) BeginTx(ctx context.Context) (Tx, *Repository, error) {
	if r.Tx == nil {
		return nil, nil, ErrTxUnsupported
	}
	return r.Tx.Begin(ctx)
}

// ── gorm transactions ──

type gormTxBeginner struct {
	db *gorm.DB
}

func (b *gormTxBeginner) Begin(ctx context.Context) (Tx, *Repository, error) {
	tx := b.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, nil, tx.Error
	}
	// nested transactions are not used; the bound repository has no Tx
	return &gormTx{tx: tx}, newRepository(tx), nil
}

type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) Commit() error   { return t.tx.Commit().Error }
func (t *gormTx) Rollback() error { return t.tx.Rollback().Error }
