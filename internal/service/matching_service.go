package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"peerbridge/config"
	"peerbridge/internal/dto"
	"peerbridge/internal/model"
	"peerbridge/internal/repository"
	pkgerrors "peerbridge/pkg/errors"
)

// ── matching errors ──

var (
	ErrSuggestionNotFound = &pkgerrors.NotFoundError{Message: "Suggestion not found"}
	ErrSweepInProgress    = &pkgerrors.ConflictError{Message: "A matching sweep is already running"}
	ErrAlreadyMatched     = &pkgerrors.ConflictError{Message: "Tutor and tutee are already matched"}
)

// SweepLockKey serializes auto-match and suggestion sweeps across processes.
const SweepLockKey = "peerbridge:lock:sweep"

// SweepLocker hands out a non-blocking exclusive lock.
// pkg/redis.Client implements it across processes.
type SweepLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

// MatchEventPublisher receives one event per committed match.
type MatchEventPublisher interface {
	PublishMatchCreated(ctx context.Context, event interface{}) error
}

// MatchingService the matching engine
type MatchingService interface {
	// AutoMatch pairs tutees with tutors sharing a department and a course.
	// All-or-nothing: on failure nothing is kept and the aborted result is
	// returned together with a store error.
	AutoMatch(ctx context.Context) (*dto.AutoMatchResult, error)
	// GenerateSuggestions proposes course additions to tutors. Suggestions
	// are kept as they are created, even when a later one fails.
	GenerateSuggestions(ctx context.Context) (*dto.SuggestionSweepResult, error)
	// AcceptSuggestion replaces the tutor's courses with the suggested one and
	// creates the match. A failure changes nothing.
	AcceptSuggestion(ctx context.Context, suggestionID int64) (*dto.AcceptSuggestionResponse, error)
	// RejectSuggestion moves a pending suggestion to rejected.
	RejectSuggestion(ctx context.Context, suggestionID int64) error
}

type matchingService struct {
	cfg       config.MatchingConfig
	repo      *repository.Repository
	locker    SweepLocker
	publisher MatchEventPublisher
	logger    *zap.Logger
}

// NewMatchingService creates the engine. A nil locker falls back to an
// in-process lock; a nil publisher disables match events.
func NewMatchingService(
	cfg config.MatchingConfig,
	repo *repository.Repository,
	locker SweepLocker,
	publisher MatchEventPublisher,
	logger *zap.Logger,
) MatchingService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &matchingService{
		cfg:       cfg,
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		logger:    logger.Named("matching"),
	}
}

// ════════════════════════════════════════════════════════════
// AutoMatch: greedy pairing in one transaction
// ════════════════════════════════════════════════════════════

func (s *matchingService) AutoMatch(ctx context.Context) (*dto.AutoMatchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := &dto.AutoMatchResult{
		RunID:     uuid.NewString(),
		Matches:   []dto.CreatedMatch{},
		StartedAt: time.Now(),
	}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.String("sweep", "auto_match"))

	release, err := s.acquireSweepLock(ctx, log)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, txRepo, err := s.repo.BeginTx(ctx)
	if err != nil {
		return s.abortAutoMatch(result, log, pkgerrors.NewStoreError("begin transaction", err))
	}

	created, scanned, err := s.autoMatchIn(ctx, txRepo, log)
	result.TuteesScanned = scanned
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn("rollback failed", zap.Error(rbErr))
		}
		return s.abortAutoMatch(result, log, err)
	}
	if err := tx.Commit(); err != nil {
		return s.abortAutoMatch(result, log, pkgerrors.NewStoreError("commit", err))
	}

	result.Matches = created
	result.MatchesCreated = len(created)
	result.FinishedAt = time.Now()
	log.Info("auto match completed",
		zap.Int("tutees_scanned", result.TuteesScanned),
		zap.Int("matches_created", result.MatchesCreated),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)

	for _, m := range created {
		s.publishMatch(ctx, log, m, dto.MatchSourceAutoMatch, nil)
	}
	return result, nil
}

// autoMatchIn runs the sweep against a transaction-bound repository.
func (s *matchingService) autoMatchIn(ctx context.Context, repo *repository.Repository, log *zap.Logger) ([]dto.CreatedMatch, int, error) {
	created := []dto.CreatedMatch{}
	scanned := 0

	tutees, err := repo.User.ListTuteesUnderCapacity(ctx, s.cfg.MaxMatchesPerTutee, false)
	if err != nil {
		return nil, scanned, pkgerrors.NewStoreError("list tutees", err)
	}

	for _, tutee := range tutees {
		if err := ctx.Err(); err != nil {
			return nil, scanned, pkgerrors.NewStoreError("auto match", err)
		}
		scanned++

		needs, err := repo.TuteeCourse.ListCourseIDs(ctx, tutee.ID)
		if err != nil {
			log.Error("list tutee courses failed", zap.Int64("tutee_id", tutee.ID), zap.Error(err))
			return nil, scanned, pkgerrors.NewStoreError("list tutee courses", err)
		}
		if len(needs) == 0 {
			continue
		}

		tutors, err := repo.User.ListEligibleTutors(ctx, tutee.DepartmentID, needs, tutee.ID, s.cfg.MaxMatchesPerTutor)
		if err != nil {
			log.Error("list eligible tutors failed", zap.Int64("tutee_id", tutee.ID), zap.Error(err))
			return nil, scanned, pkgerrors.NewStoreError("list eligible tutors", err)
		}

		for _, tutor := range tutors {
			m, err := s.pair(ctx, repo, tutor.ID, tutee.ID, needs)
			if err != nil {
				log.Error("create match failed",
					zap.Int64("tutor_id", tutor.ID),
					zap.Int64("tutee_id", tutee.ID),
					zap.Error(err),
				)
				return nil, scanned, err
			}
			if m != nil {
				created = append(created, *m)
			}

			count, err := repo.Match.CountByTutee(ctx, tutee.ID)
			if err != nil {
				return nil, scanned, pkgerrors.NewStoreError("count tutee matches", err)
			}
			if count >= int64(s.cfg.MaxMatchesPerTutee) {
				break
			}
		}
	}
	return created, scanned, nil
}

// pair locks both users, re-validates capacity under the lock and creates
// the match with every shared course. Returns nil when the pair no longer
// qualifies.
func (s *matchingService) pair(ctx context.Context, repo *repository.Repository, tutorID, tuteeID int64, needs []int64) (*dto.CreatedMatch, error) {
	if err := repo.User.LockForUpdate(ctx, tutorID, tuteeID); err != nil {
		return nil, pkgerrors.NewStoreError("lock users", err)
	}

	tutorCount, err := repo.Match.CountByTutor(ctx, tutorID)
	if err != nil {
		return nil, pkgerrors.NewStoreError("count tutor matches", err)
	}
	if tutorCount >= int64(s.cfg.MaxMatchesPerTutor) {
		return nil, nil
	}
	tuteeCount, err := repo.Match.CountByTutee(ctx, tuteeID)
	if err != nil {
		return nil, pkgerrors.NewStoreError("count tutee matches", err)
	}
	if tuteeCount >= int64(s.cfg.MaxMatchesPerTutee) {
		return nil, nil
	}

	common, err := repo.TutorCourse.ListCommonCourseIDs(ctx, tutorID, needs)
	if err != nil {
		return nil, pkgerrors.NewStoreError("list common courses", err)
	}
	if len(common) == 0 {
		return nil, nil
	}

	match := &model.Match{TutorID: tutorID, TuteeID: tuteeID}
	if err := repo.Match.Create(ctx, match); err != nil {
		return nil, pkgerrors.NewStoreError("create match", err)
	}
	if err := repo.Match.AddCourses(ctx, match.ID, common); err != nil {
		return nil, pkgerrors.NewStoreError("add match courses", err)
	}

	return &dto.CreatedMatch{
		MatchID:   match.ID,
		TutorID:   tutorID,
		TuteeID:   tuteeID,
		CourseIDs: common,
	}, nil
}

func (s *matchingService) abortAutoMatch(result *dto.AutoMatchResult, log *zap.Logger, err error) (*dto.AutoMatchResult, error) {
	result.Aborted = true
	result.Cause = err.Error()
	result.Matches = []dto.CreatedMatch{}
	result.MatchesCreated = 0
	result.FinishedAt = time.Now()
	log.Error("auto match rolled back", zap.Int("tutees_scanned", result.TuteesScanned), zap.Error(err))
	return result, err
}

// ════════════════════════════════════════════════════════════
// GenerateSuggestions: course-addition proposals, applied one by one
// ════════════════════════════════════════════════════════════

func (s *matchingService) GenerateSuggestions(ctx context.Context) (*dto.SuggestionSweepResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := &dto.SuggestionSweepResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.String("sweep", "suggestions"))

	release, err := s.acquireSweepLock(ctx, log)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.generateSuggestions(ctx, result, log); err != nil {
		result.Aborted = true
		result.Cause = err.Error()
		result.FinishedAt = time.Now()
		log.Error("suggestion sweep aborted",
			zap.Int("tutees_scanned", result.TuteesScanned),
			zap.Int("suggestions_created", result.SuggestionsCreated),
			zap.Error(err),
		)
		return result, err
	}

	result.FinishedAt = time.Now()
	log.Info("suggestion sweep completed",
		zap.Int("tutees_scanned", result.TuteesScanned),
		zap.Int("suggestions_created", result.SuggestionsCreated),
		zap.Int("skipped_existing", result.SkippedExisting),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

func (s *matchingService) generateSuggestions(ctx context.Context, result *dto.SuggestionSweepResult, log *zap.Logger) error {
	tutees, err := s.repo.User.ListTuteesUnderCapacity(ctx, s.cfg.MaxMatchesPerTutee, true)
	if err != nil {
		return pkgerrors.NewStoreError("list tutees", err)
	}

	for _, tutee := range tutees {
		if err := ctx.Err(); err != nil {
			return pkgerrors.NewStoreError("generate suggestions", err)
		}
		result.TuteesScanned++

		needs, err := s.repo.TuteeCourse.ListCourseIDs(ctx, tutee.ID)
		if err != nil {
			return pkgerrors.NewStoreError("list tutee courses", err)
		}

		tutors, err := s.repo.User.ListTutorsUnderCapacity(ctx, tutee.DepartmentID, s.cfg.MaxMatchesPerTutor)
		if err != nil {
			return pkgerrors.NewStoreError("list tutors", err)
		}

		for _, tutor := range tutors {
			offered, err := s.repo.TutorCourse.ListCourseIDs(ctx, tutor.ID)
			if err != nil {
				return pkgerrors.NewStoreError("list tutor courses", err)
			}
			offeredSet := make(map[int64]struct{}, len(offered))
			for _, id := range offered {
				offeredSet[id] = struct{}{}
			}

			for _, courseID := range needs {
				if _, ok := offeredSet[courseID]; ok {
					continue
				}
				if err := s.suggest(ctx, result, tutor.ID, tutee.ID, courseID); err != nil {
					log.Error("create suggestion failed",
						zap.Int64("tutor_id", tutor.ID),
						zap.Int64("tutee_id", tutee.ID),
						zap.Int64("course_id", courseID),
						zap.Error(err),
					)
					return err
				}
			}
		}
	}
	return nil
}

func (s *matchingService) suggest(ctx context.Context, result *dto.SuggestionSweepResult, tutorID, tuteeID, courseID int64) error {
	exists, err := s.repo.Suggestion.ExistsPending(ctx, tutorID, tuteeID, courseID)
	if err != nil {
		return pkgerrors.NewStoreError("check pending suggestion", err)
	}
	if exists {
		result.SkippedExisting++
		return nil
	}

	created, err := s.repo.Suggestion.Create(ctx, &model.Suggestion{
		TutorID:  tutorID,
		TuteeID:  tuteeID,
		CourseID: courseID,
		Status:   model.SuggestionPending,
	})
	if err != nil {
		return pkgerrors.NewStoreError("create suggestion", err)
	}
	if created {
		result.SuggestionsCreated++
	} else {
		// lost the race to a concurrent insert
		result.SkippedExisting++
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// AcceptSuggestion / RejectSuggestion
// ════════════════════════════════════════════════════════════

func (s *matchingService) AcceptSuggestion(ctx context.Context, suggestionID int64) (*dto.AcceptSuggestionResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	log := s.logger.With(zap.Int64("suggestion_id", suggestionID))

	tx, txRepo, err := s.repo.BeginTx(ctx)
	if err != nil {
		log.Error("begin transaction failed", zap.Error(err))
		return nil, pkgerrors.NewStoreError("begin transaction", err)
	}

	created, err := s.acceptIn(ctx, txRepo, suggestionID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn("rollback failed", zap.Error(rbErr))
		}
		if pkgerrors.KindOf(err) == pkgerrors.KindStore {
			log.Error("accept suggestion failed", zap.Error(err))
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return nil, pkgerrors.NewStoreError("commit", err)
	}

	log.Info("suggestion accepted",
		zap.Int64("match_id", created.MatchID),
		zap.Int64("tutor_id", created.TutorID),
		zap.Int64("tutee_id", created.TuteeID),
	)
	id := suggestionID
	s.publishMatch(ctx, log, *created, dto.MatchSourceSuggestion, &id)

	return &dto.AcceptSuggestionResponse{Success: true, MatchID: created.MatchID}, nil
}

func (s *matchingService) acceptIn(ctx context.Context, repo *repository.Repository, suggestionID int64) (*dto.CreatedMatch, error) {
	// 1. pending suggestion
	sugg, err := repo.Suggestion.GetPendingForUpdate(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, pkgerrors.NewStoreError("load suggestion", err)
	}

	if err := repo.User.LockForUpdate(ctx, sugg.TutorID, sugg.TuteeID); err != nil {
		return nil, pkgerrors.NewStoreError("lock users", err)
	}

	// 2. capacity, tutor first
	tutorCount, err := repo.Match.CountByTutor(ctx, sugg.TutorID)
	if err != nil {
		return nil, pkgerrors.NewStoreError("count tutor matches", err)
	}
	if tutorCount >= int64(s.cfg.MaxMatchesPerTutor) {
		return nil, &pkgerrors.CapacityError{
			Message: fmt.Sprintf("Tutor already has %d tutees", s.cfg.MaxMatchesPerTutor),
		}
	}
	tuteeCount, err := repo.Match.CountByTutee(ctx, sugg.TuteeID)
	if err != nil {
		return nil, pkgerrors.NewStoreError("count tutee matches", err)
	}
	if tuteeCount >= int64(s.cfg.MaxMatchesPerTutee) {
		return nil, &pkgerrors.CapacityError{
			Message: fmt.Sprintf("Tutee already has %d tutors", s.cfg.MaxMatchesPerTutee),
		}
	}

	paired, err := repo.Match.ExistsPair(ctx, sugg.TutorID, sugg.TuteeID)
	if err != nil {
		return nil, pkgerrors.NewStoreError("check existing match", err)
	}
	if paired {
		return nil, ErrAlreadyMatched
	}

	// 3. replace the tutor's repertoire with the suggested course
	if err := repo.TutorCourse.DeleteByTutor(ctx, sugg.TutorID); err != nil {
		return nil, pkgerrors.NewStoreError("clear tutor courses", err)
	}
	if err := repo.TutorCourse.Create(ctx, &model.TutorCourse{TutorID: sugg.TutorID, CourseID: sugg.CourseID}); err != nil {
		return nil, pkgerrors.NewStoreError("add tutor course", err)
	}

	// 4. match + its single course
	match := &model.Match{TutorID: sugg.TutorID, TuteeID: sugg.TuteeID}
	if err := repo.Match.Create(ctx, match); err != nil {
		return nil, pkgerrors.NewStoreError("create match", err)
	}
	if err := repo.Match.AddCourses(ctx, match.ID, []int64{sugg.CourseID}); err != nil {
		return nil, pkgerrors.NewStoreError("add match course", err)
	}

	// 5. close the suggestion
	if err := repo.Suggestion.UpdateStatus(ctx, sugg.ID, model.SuggestionPending, model.SuggestionAccepted); err != nil {
		if errors.Is(err, pkgerrors.ErrStatusChanged) {
			return nil, ErrSuggestionNotFound
		}
		return nil, pkgerrors.NewStoreError("update suggestion", err)
	}

	return &dto.CreatedMatch{
		MatchID:   match.ID,
		TutorID:   sugg.TutorID,
		TuteeID:   sugg.TuteeID,
		CourseIDs: []int64{sugg.CourseID},
	}, nil
}

func (s *matchingService) RejectSuggestion(ctx context.Context, suggestionID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.repo.Suggestion.UpdateStatus(ctx, suggestionID, model.SuggestionPending, model.SuggestionRejected)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStatusChanged) {
			return ErrSuggestionNotFound
		}
		s.logger.Error("reject suggestion failed", zap.Int64("suggestion_id", suggestionID), zap.Error(err))
		return pkgerrors.NewStoreError("reject suggestion", err)
	}

	s.logger.Info("suggestion rejected", zap.Int64("suggestion_id", suggestionID))
	return nil
}

// ── helpers ──

func (s *matchingService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.SweepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.SweepTimeout)
}

// acquireSweepLock returns ErrSweepInProgress when another sweep holds the lock.
func (s *matchingService) acquireSweepLock(ctx context.Context, log *zap.Logger) (func(), error) {
	unlock, acquired, err := s.locker.TryLock(ctx, SweepLockKey, s.cfg.SweepLockTTL)
	if err != nil {
		log.Error("acquire sweep lock failed", zap.Error(err))
		return nil, pkgerrors.NewStoreError("acquire sweep lock", err)
	}
	if !acquired {
		log.Info("sweep skipped, lock held elsewhere")
		return nil, ErrSweepInProgress
	}
	return func() {
		// release even when the sweep context has expired
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlock(releaseCtx); err != nil {
			log.Warn("release sweep lock failed", zap.Error(err))
		}
	}, nil
}

func (s *matchingService) publishMatch(ctx context.Context, log *zap.Logger, m dto.CreatedMatch, source string, suggestionID *int64) {
	if s.publisher == nil {
		return
	}
	event := dto.MatchCreatedEvent{
		MatchID:      m.MatchID,
		TutorID:      m.TutorID,
		TuteeID:      m.TuteeID,
		CourseIDs:    m.CourseIDs,
		Source:       source,
		SuggestionID: suggestionID,
		CreatedAt:    time.Now(),
	}
	if err := s.publisher.PublishMatchCreated(ctx, event); err != nil {
		log.Warn("publish match event failed", zap.Int64("match_id", m.MatchID), zap.Error(err))
	}
}

// ── in-process lock ──

type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns a SweepLocker scoped to this process.
func NewLocalLocker() SweepLocker {
	return &localLocker{held: make(map[string]struct{})}
}

func (l *localLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, true, nil
}
