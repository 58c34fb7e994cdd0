package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"peerbridge/internal/model"
	"peerbridge/internal/repository"
	pkgerrors "peerbridge/pkg/errors"
)

// errInjected is returned by operations armed with failAt.
var errInjected = errors.New("injected store failure")

// ── memState ──

type memState struct {
	users        map[int64]model.User
	departments  map[int64]model.Department
	courses      map[int64]model.Course
	tutorCourses map[int64]map[int64]bool
	tuteeCourses map[int64]map[int64]bool
	matches      map[int64]model.Match
	suggestions  map[int64]model.Suggestion

	nextMatchID      int64
	nextSuggestionID int64
}

func newMemState() *memState {
	return &memState{
		users:            make(map[int64]model.User),
		departments:      make(map[int64]model.Department),
		courses:          make(map[int64]model.Course),
		tutorCourses:     make(map[int64]map[int64]bool),
		tuteeCourses:     make(map[int64]map[int64]bool),
		matches:          make(map[int64]model.Match),
		suggestions:      make(map[int64]model.Suggestion),
		nextMatchID:      1,
		nextSuggestionID: 1,
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, set := range s.tutorCourses {
		c.tutorCourses[k] = copySet(set)
	}
	for k, set := range s.tuteeCourses {
		c.tuteeCourses[k] = copySet(set)
	}
	for k, v := range s.matches {
		v.Courses = append([]model.MatchCourse(nil), v.Courses...)
		c.matches[k] = v
	}
	for k, v := range s.suggestions {
		c.suggestions[k] = v
	}
	c.nextMatchID = s.nextMatchID
	c.nextSuggestionID = s.nextSuggestionID
	return c
}

func copySet(set map[int64]bool) map[int64]bool {
	c := make(map[int64]bool, len(set))
	for k, v := range set {
		c[k] = v
	}
	return c
}

func sortedKeys(set map[int64]bool) []int64 {
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *memState) matchCount(pick func(model.Match) bool) int64 {
	var n int64
	for _, m := range s.matches {
		if pick(m) {
			n++
		}
	}
	return n
}

func (s *memState) usersByRole(role string, keep func(model.User) bool) []model.User {
	var list []model.User
	for _, u := range s.users {
		if u.Role == role && keep(u) {
			list = append(list, u)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// ── memStore ──

// memStore is an in-memory repository backend. Transactions snapshot the
// state on Begin and restore it on Rollback or a failed Commit.
type memStore struct {
	mu       sync.Mutex
	state    *memState
	snapshot *memState

	calls  map[string]int
	failOn map[string]int

	locks     [][]int64
	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		state:  newMemState(),
		calls:  make(map[string]int),
		failOn: make(map[string]int),
	}
}

// failAt makes the nth call (1-based) of op return errInjected.
func (m *memStore) failAt(op string, nth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[op] = nth
}

// check counts a call of op; callers hold m.mu.
func (m *memStore) check(op string) error {
	m.calls[op]++
	if nth, ok := m.failOn[op]; ok && m.calls[op] == nth {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:        &memUserRepo{m},
		Department:  &memDepartmentRepo{m},
		Course:      &memCourseRepo{m},
		TutorCourse: &memTutorCourseRepo{m},
		TuteeCourse: &memTuteeCourseRepo{m},
		Match:       &memMatchRepo{m},
		Suggestion:  &memSuggestionRepo{m},
		Tx:          m,
	}
}

func (m *memStore) Begin(_ context.Context) (repository.Tx, *repository.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("tx.begin"); err != nil {
		return nil, nil, err
	}
	m.snapshot = m.state.clone()

	repo := m.repository()
	repo.Tx = nil
	return &memTx{m: m}, repo, nil
}

type memTx struct {
	m    *memStore
	done bool
}

func (t *memTx) Commit() error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return gorm.ErrInvalidTransaction
	}
	t.done = true
	if err := t.m.check("tx.commit"); err != nil {
		t.m.state = t.m.snapshot
		t.m.snapshot = nil
		return err
	}
	t.m.snapshot = nil
	t.m.commits++
	return nil
}

func (t *memTx) Rollback() error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return gorm.ErrInvalidTransaction
	}
	t.done = true
	t.m.state = t.m.snapshot
	t.m.snapshot = nil
	t.m.rollbacks++
	return nil
}

// ── seeding ──

func (m *memStore) addDepartment(id int64, name string) {
	m.state.departments[id] = model.Department{ID: id, Name: name, CreatedAt: time.Now()}
}

func (m *memStore) addCourse(id int64, code string, deptID *int64) {
	m.state.courses[id] = model.Course{ID: id, Code: code, Name: "Course " + code, DepartmentID: deptID}
}

func (m *memStore) addTutor(id, deptID int64, offers ...int64) {
	m.state.users[id] = model.User{ID: id, Email: fmt.Sprintf("tutor%d@example.edu", id), Role: model.RoleTutor, DepartmentID: deptID}
	set := make(map[int64]bool)
	for _, c := range offers {
		set[c] = true
	}
	m.state.tutorCourses[id] = set
}

func (m *memStore) addTutee(id, deptID int64, needs ...int64) {
	m.state.users[id] = model.User{ID: id, Email: fmt.Sprintf("tutee%d@example.edu", id), Role: model.RoleTutee, DepartmentID: deptID}
	set := make(map[int64]bool)
	for _, c := range needs {
		set[c] = true
	}
	m.state.tuteeCourses[id] = set
}

func (m *memStore) addMatch(tutorID, tuteeID int64, courseIDs ...int64) int64 {
	id := m.state.nextMatchID
	m.state.nextMatchID++
	match := model.Match{ID: id, TutorID: tutorID, TuteeID: tuteeID, CreatedAt: time.Now()}
	for _, c := range courseIDs {
		match.Courses = append(match.Courses, model.MatchCourse{MatchID: id, CourseID: c})
	}
	m.state.matches[id] = match
	return id
}

func (m *memStore) addSuggestion(tutorID, tuteeID, courseID int64, status string) int64 {
	id := m.state.nextSuggestionID
	m.state.nextSuggestionID++
	m.state.suggestions[id] = model.Suggestion{
		ID: id, TutorID: tutorID, TuteeID: tuteeID, CourseID: courseID, Status: status,
		Timestamps: model.Timestamps{CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	return id
}

// ── inspection ──

func (m *memStore) allMatches() []model.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]model.Match, 0, len(m.state.matches))
	for _, v := range m.state.matches {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (m *memStore) matchCourseIDs(matchID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, mc := range m.state.matches[matchID].Courses {
		ids = append(ids, mc.CourseID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memStore) suggestionsWhere(status string) []model.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Suggestion
	for _, s := range m.state.suggestions {
		if s.Status == status {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (m *memStore) suggestion(id int64) model.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.suggestions[id]
}

func (m *memStore) tutorOffers(tutorID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.state.tutorCourses[tutorID])
}

// ── Mock UserRepository ──

type memUserRepo struct{ m *memStore }

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("user.get"); err != nil {
		return nil, err
	}
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) ListTuteesUnderCapacity(_ context.Context, limit int, requireCourses bool) ([]model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("user.list_tutees"); err != nil {
		return nil, err
	}
	st := r.m.state
	return st.usersByRole(model.RoleTutee, func(u model.User) bool {
		if st.matchCount(func(m model.Match) bool { return m.TuteeID == u.ID }) >= int64(limit) {
			return false
		}
		return !requireCourses || len(st.tuteeCourses[u.ID]) > 0
	}), nil
}

func (r *memUserRepo) ListEligibleTutors(_ context.Context, departmentID int64, courseIDs []int64, tuteeID int64, limit int) ([]model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("user.list_eligible_tutors"); err != nil {
		return nil, err
	}
	st := r.m.state
	return st.usersByRole(model.RoleTutor, func(u model.User) bool {
		if u.DepartmentID != departmentID {
			return false
		}
		offersAny := false
		for _, c := range courseIDs {
			if st.tutorCourses[u.ID][c] {
				offersAny = true
				break
			}
		}
		if !offersAny {
			return false
		}
		if st.matchCount(func(m model.Match) bool { return m.TutorID == u.ID }) >= int64(limit) {
			return false
		}
		return st.matchCount(func(m model.Match) bool { return m.TutorID == u.ID && m.TuteeID == tuteeID }) == 0
	}), nil
}

func (r *memUserRepo) ListTutorsUnderCapacity(_ context.Context, departmentID int64, limit int) ([]model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("user.list_tutors"); err != nil {
		return nil, err
	}
	st := r.m.state
	return st.usersByRole(model.RoleTutor, func(u model.User) bool {
		return u.DepartmentID == departmentID &&
			st.matchCount(func(m model.Match) bool { return m.TutorID == u.ID }) < int64(limit)
	}), nil
}

func (r *memUserRepo) LockForUpdate(_ context.Context, ids ...int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("user.lock"); err != nil {
		return err
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	r.m.locks = append(r.m.locks, sorted)
	return nil
}

// ── Mock DepartmentRepository ──

type memDepartmentRepo struct{ m *memStore }

func (r *memDepartmentRepo) GetByID(_ context.Context, id int64) (*model.Department, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.state.departments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r *memDepartmentRepo) List(_ context.Context) ([]model.Department, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("department.list"); err != nil {
		return nil, err
	}
	var list []model.Department
	for _, d := range r.m.state.departments {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// ── Mock CourseRepository ──

type memCourseRepo struct{ m *memStore }

func (r *memCourseRepo) List(_ context.Context, departmentID *int64) ([]model.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("course.list"); err != nil {
		return nil, err
	}
	var list []model.Course
	for _, c := range r.m.state.courses {
		if departmentID != nil && (c.DepartmentID == nil || *c.DepartmentID != *departmentID) {
			continue
		}
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (r *memCourseRepo) ListByTutor(_ context.Context, tutorID int64) ([]model.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.coursesOf(r.m.state.tutorCourses[tutorID]), nil
}

func (r *memCourseRepo) ListByTutee(_ context.Context, tuteeID int64) ([]model.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.coursesOf(r.m.state.tuteeCourses[tuteeID]), nil
}

func (r *memCourseRepo) coursesOf(set map[int64]bool) []model.Course {
	var list []model.Course
	for id := range set {
		if c, ok := r.m.state.courses[id]; ok {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}

// ── Mock TutorCourseRepository ──

type memTutorCourseRepo struct{ m *memStore }

func (r *memTutorCourseRepo) ListCourseIDs(_ context.Context, tutorID int64) ([]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("tutor_course.list"); err != nil {
		return nil, err
	}
	return sortedKeys(r.m.state.tutorCourses[tutorID]), nil
}

func (r *memTutorCourseRepo) ListCommonCourseIDs(_ context.Context, tutorID int64, courseIDs []int64) ([]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("tutor_course.common"); err != nil {
		return nil, err
	}
	common := make(map[int64]bool)
	for _, c := range courseIDs {
		if r.m.state.tutorCourses[tutorID][c] {
			common[c] = true
		}
	}
	return sortedKeys(common), nil
}

func (r *memTutorCourseRepo) DeleteByTutor(_ context.Context, tutorID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("tutor_course.delete"); err != nil {
		return err
	}
	r.m.state.tutorCourses[tutorID] = make(map[int64]bool)
	return nil
}

func (r *memTutorCourseRepo) Create(_ context.Context, tc *model.TutorCourse) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("tutor_course.create"); err != nil {
		return err
	}
	set, ok := r.m.state.tutorCourses[tc.TutorID]
	if !ok {
		set = make(map[int64]bool)
		r.m.state.tutorCourses[tc.TutorID] = set
	}
	set[tc.CourseID] = true
	return nil
}

// ── Mock TuteeCourseRepository ──

type memTuteeCourseRepo struct{ m *memStore }

func (r *memTuteeCourseRepo) ListCourseIDs(_ context.Context, tuteeID int64) ([]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("tutee_course.list"); err != nil {
		return nil, err
	}
	return sortedKeys(r.m.state.tuteeCourses[tuteeID]), nil
}

// ── Mock MatchRepository ──

type memMatchRepo struct{ m *memStore }

func (r *memMatchRepo) Create(_ context.Context, match *model.Match) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("match.create"); err != nil {
		return err
	}
	st := r.m.state
	if st.matchCount(func(m model.Match) bool { return m.TutorID == match.TutorID && m.TuteeID == match.TuteeID }) > 0 {
		return errors.New(`duplicate key value violates unique constraint "uq_matches_pair"`)
	}
	match.ID = st.nextMatchID
	st.nextMatchID++
	match.CreatedAt = time.Now()
	stored := *match
	stored.Courses = nil
	st.matches[match.ID] = stored
	return nil
}

func (r *memMatchRepo) AddCourses(_ context.Context, matchID int64, courseIDs []int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("match.add_courses"); err != nil {
		return err
	}
	m, ok := r.m.state.matches[matchID]
	if !ok {
		return errors.New("match_courses: foreign key violation")
	}
	for _, c := range courseIDs {
		m.Courses = append(m.Courses, model.MatchCourse{MatchID: matchID, CourseID: c})
	}
	r.m.state.matches[matchID] = m
	return nil
}

func (r *memMatchRepo) CountByTutor(_ context.Context, tutorID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("match.count_tutor"); err != nil {
		return 0, err
	}
	return r.m.state.matchCount(func(m model.Match) bool { return m.TutorID == tutorID }), nil
}

func (r *memMatchRepo) CountByTutee(_ context.Context, tuteeID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("match.count_tutee"); err != nil {
		return 0, err
	}
	return r.m.state.matchCount(func(m model.Match) bool { return m.TuteeID == tuteeID }), nil
}

func (r *memMatchRepo) ExistsPair(_ context.Context, tutorID, tuteeID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("match.exists_pair"); err != nil {
		return false, err
	}
	return r.m.state.matchCount(func(m model.Match) bool { return m.TutorID == tutorID && m.TuteeID == tuteeID }) > 0, nil
}

func (r *memMatchRepo) ListByTutor(_ context.Context, tutorID int64) ([]model.Match, error) {
	return r.list("match.list_tutor", func(m model.Match) bool { return m.TutorID == tutorID })
}

func (r *memMatchRepo) ListByTutee(_ context.Context, tuteeID int64) ([]model.Match, error) {
	return r.list("match.list_tutee", func(m model.Match) bool { return m.TuteeID == tuteeID })
}

func (r *memMatchRepo) list(op string, pick func(model.Match) bool) ([]model.Match, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(op); err != nil {
		return nil, err
	}
	var list []model.Match
	for _, m := range r.m.state.matches {
		if !pick(m) {
			continue
		}
		courses := make([]model.MatchCourse, 0, len(m.Courses))
		for _, mc := range m.Courses {
			if c, ok := r.m.state.courses[mc.CourseID]; ok {
				mc.Course = &c
			}
			courses = append(courses, mc)
		}
		m.Courses = courses
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// ── Mock SuggestionRepository ──

type memSuggestionRepo struct{ m *memStore }

func (r *memSuggestionRepo) GetPendingForUpdate(_ context.Context, id int64) (*model.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("suggestion.get_pending"); err != nil {
		return nil, err
	}
	s, ok := r.m.state.suggestions[id]
	if !ok || s.Status != model.SuggestionPending {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memSuggestionRepo) ExistsPending(_ context.Context, tutorID, tuteeID, courseID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("suggestion.exists_pending"); err != nil {
		return false, err
	}
	return r.pendingExists(tutorID, tuteeID, courseID), nil
}

func (r *memSuggestionRepo) pendingExists(tutorID, tuteeID, courseID int64) bool {
	for _, s := range r.m.state.suggestions {
		if s.TutorID == tutorID && s.TuteeID == tuteeID && s.CourseID == courseID && s.Status == model.SuggestionPending {
			return true
		}
	}
	return false
}

func (r *memSuggestionRepo) Create(_ context.Context, s *model.Suggestion) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("suggestion.create"); err != nil {
		return false, err
	}
	if s.Status == "" {
		s.Status = model.SuggestionPending
	}
	if s.Status == model.SuggestionPending && r.pendingExists(s.TutorID, s.TuteeID, s.CourseID) {
		return false, nil
	}
	s.ID = r.m.state.nextSuggestionID
	r.m.state.nextSuggestionID++
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.m.state.suggestions[s.ID] = *s
	return true, nil
}

func (r *memSuggestionRepo) UpdateStatus(_ context.Context, id int64, from, to string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("suggestion.update_status"); err != nil {
		return err
	}
	s, ok := r.m.state.suggestions[id]
	if !ok || s.Status != from {
		return pkgerrors.ErrStatusChanged
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	r.m.state.suggestions[id] = s
	return nil
}

func (r *memSuggestionRepo) ListByTutor(_ context.Context, tutorID int64, status string) ([]model.Suggestion, error) {
	return r.list(func(s model.Suggestion) bool { return s.TutorID == tutorID && s.Status == status })
}

func (r *memSuggestionRepo) ListByTutee(_ context.Context, tuteeID int64, status string) ([]model.Suggestion, error) {
	return r.list(func(s model.Suggestion) bool { return s.TuteeID == tuteeID && s.Status == status })
}

func (r *memSuggestionRepo) list(pick func(model.Suggestion) bool) ([]model.Suggestion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("suggestion.list"); err != nil {
		return nil, err
	}
	var list []model.Suggestion
	for _, s := range r.m.state.suggestions {
		if !pick(s) {
			continue
		}
		if c, ok := r.m.state.courses[s.CourseID]; ok {
			s.Course = &c
		}
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// ── Mock MatchEventPublisher ──

type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
	err    error
}

func (p *recordingPublisher) PublishMatchCreated(_ context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}
