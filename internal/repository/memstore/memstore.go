// Package memstore holds in-memory implementations of the service storage
// interfaces. They enforce the same constraints as the Postgres schema (one
// incomplete attempt per student, no writes into completed attempts, row-level
// atomic OTP resolution) so service and handler tests exercise real races.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
)

// DB is a single in-memory database. All views share its lock, which plays
// the role of the row locks taken by the SQL repositories.
type DB struct {
	mu  sync.Mutex
	now func() time.Time

	nextID int64

	students  map[int64]*model.Student
	colleges  map[int64]string
	branches  map[int64]string
	years     map[int64]int
	questions []model.Question
	otps      map[int64]*model.OneTimePasscode
	attempts  map[uuid.UUID]*model.ExamAttempt
	answers   map[uuid.UUID]map[int64]model.AnswerRecord
}

// New creates an empty DB using the wall clock.
func New() *DB {
	return &DB{
		now:      time.Now,
		students: map[int64]*model.Student{},
		colleges: map[int64]string{},
		branches: map[int64]string{},
		years:    map[int64]int{},
		otps:     map[int64]*model.OneTimePasscode{},
		attempts: map[uuid.UUID]*model.ExamAttempt{},
		answers:  map[uuid.UUID]map[int64]model.AnswerRecord{},
	}
}

// SetClock replaces the clock used for timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

func (db *DB) id() int64 {
	db.nextID++
	return db.nextID
}

// Students returns the identity directory view.
func (db *DB) Students() *Students { return &Students{db: db} }

// Master returns the reference data view.
func (db *DB) Master() *Master { return &Master{db: db} }

// Questions returns the question bank view.
func (db *DB) Questions() *Questions { return &Questions{db: db} }

// OTPs returns the passcode store view.
func (db *DB) OTPs() *OTPs { return &OTPs{db: db} }

// Attempts returns the exam attempt view.
func (db *DB) Attempts() *Attempts { return &Attempts{db: db} }

// Answers returns the answer ledger view.
func (db *DB) Answers() *Answers { return &Answers{db: db} }

// ─── Students ──────────────────────────────────────────────────────────

type Students struct{ db *DB }

func (s *Students) GetByID(_ context.Context, id int64) (*model.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st, ok := s.db.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Students) FindByPhoneAndName(_ context.Context, phone, name string) (*model.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, st := range s.db.students {
		if st.Phone == phone && st.Name == name {
			cp := *st
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Students) PhoneExists(_ context.Context, phone string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, st := range s.db.students {
		if st.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *Students) EmailExists(_ context.Context, email string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, st := range s.db.students {
		if st.Email != nil && strings.EqualFold(*st.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Students) Create(_ context.Context, st *model.Student, _ *int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.students {
		if other.Phone == st.Phone {
			return repository.ErrDuplicatePhone
		}
		if st.Email != nil && other.Email != nil && strings.EqualFold(*other.Email, *st.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	st.ID = s.db.id()
	st.CreatedAt = s.db.now()
	st.UpdatedAt = st.CreatedAt
	cp := *st
	s.db.students[st.ID] = &cp
	return nil
}

// Add inserts a student directly, bypassing registration checks.
func (s *Students) Add(name, phone string) *model.Student {
	st := &model.Student{Name: name, Phone: phone, Qualification: "Not Specified"}
	if err := s.Create(context.Background(), st, nil); err != nil {
		panic(err)
	}
	return st
}

// ─── Master data ───────────────────────────────────────────────────────

type Master struct{ db *DB }

func (m *Master) ListColleges(_ context.Context) ([]model.College, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := make([]model.College, 0, len(m.db.colleges))
	for id, name := range m.db.colleges {
		out = append(out, model.College{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Master) ListBranches(_ context.Context) ([]model.Branch, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := make([]model.Branch, 0, len(m.db.branches))
	for id, name := range m.db.branches {
		out = append(out, model.Branch{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Master) ListYears(_ context.Context) ([]model.YearOfPassing, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := make([]model.YearOfPassing, 0, len(m.db.years))
	for id, year := range m.db.years {
		out = append(out, model.YearOfPassing{ID: id, Year: year})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (m *Master) CollegeExists(_ context.Context, id int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	_, ok := m.db.colleges[id]
	return ok, nil
}

func (m *Master) BranchExists(_ context.Context, id int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	_, ok := m.db.branches[id]
	return ok, nil
}

func (m *Master) GetOrCreateYear(_ context.Context, year int) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for id, y := range m.db.years {
		if y == year {
			return id, nil
		}
	}
	id := m.db.id()
	m.db.years[id] = year
	return id, nil
}

// AddCollege inserts a college and returns its id.
func (m *Master) AddCollege(name string) int64 {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	id := m.db.id()
	m.db.colleges[id] = name
	return id
}

// AddBranch inserts a branch and returns its id.
func (m *Master) AddBranch(name string) int64 {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	id := m.db.id()
	m.db.branches[id] = name
	return id
}

// ─── Question bank ─────────────────────────────────────────────────────

type Questions struct{ db *DB }

func (q *Questions) ListAll(_ context.Context) ([]model.Question, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	return append([]model.Question(nil), q.db.questions...), nil
}

// Seed adds n questions whose correct answer is always Option1 ("A<id>").
func (q *Questions) Seed(n int) []model.Question {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	for i := 0; i < n; i++ {
		id := q.db.id()
		q.db.questions = append(q.db.questions, model.Question{
			ID:            id,
			QuestionText:  "Question " + itoa(id),
			Option1:       "A" + itoa(id),
			Option2:       "B" + itoa(id),
			Option3:       "C" + itoa(id),
			Option4:       "D" + itoa(id),
			CorrectAnswer: "A" + itoa(id),
		})
	}
	return append([]model.Question(nil), q.db.questions...)
}

// ─── OTPs ──────────────────────────────────────────────────────────────

// OTPs is the in-memory passcode store.
type OTPs struct{ db *DB }

func (o *OTPs) Replace(_ context.Context, otp *model.OneTimePasscode) error {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	for id, existing := range o.db.otps {
		if existing.StudentID == otp.StudentID && !existing.IsVerified {
			delete(o.db.otps, id)
		}
	}
	otp.ID = o.db.id()
	cp := *otp
	o.db.otps[otp.ID] = &cp
	return nil
}

func (o *OTPs) Resolve(_ context.Context, studentID int64, decide func(*model.OneTimePasscode) model.OTPAction) (*model.OneTimePasscode, error) {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()

	var latest *model.OneTimePasscode
	for _, otp := range o.db.otps {
		if otp.StudentID != studentID || otp.IsVerified {
			continue
		}
		if latest == nil || otp.CreatedAt.After(latest.CreatedAt) ||
			(otp.CreatedAt.Equal(latest.CreatedAt) && otp.ID > latest.ID) {
			latest = otp
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}

	cp := *latest
	switch decide(&cp) {
	case model.OTPActionDelete:
		delete(o.db.otps, latest.ID)
	case model.OTPActionIncrementAttempts:
		latest.Attempts++
		cp.Attempts = latest.Attempts
	case model.OTPActionMarkVerified:
		latest.IsVerified = true
		cp.IsVerified = true
	}
	return &cp, nil
}

func (o *OTPs) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	var n int64
	for id, otp := range o.db.otps {
		if !otp.IsVerified && otp.IsExpired(now) {
			delete(o.db.otps, id)
			n++
		}
	}
	return n, nil
}

// ForStudent returns copies of every stored passcode of the student.
func (o *OTPs) ForStudent(studentID int64) []model.OneTimePasscode {
	o.db.mu.Lock()
	defer o.db.mu.Unlock()
	var out []model.OneTimePasscode
	for _, otp := range o.db.otps {
		if otp.StudentID == studentID {
			out = append(out, *otp)
		}
	}
	return out
}

// ─── Attempts ──────────────────────────────────────────────────────────

// Attempts is the in-memory exam attempt store.
type Attempts struct{ db *DB }

func (a *Attempts) GetIncompleteByStudent(_ context.Context, studentID int64) (*model.ExamAttempt, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	if at := a.db.incomplete(studentID); at != nil {
		return cloneAttempt(at), nil
	}
	return nil, repository.ErrNotFound
}

func (db *DB) incomplete(studentID int64) *model.ExamAttempt {
	for _, at := range db.attempts {
		if at.StudentID == studentID && !at.IsCompleted {
			return at
		}
	}
	return nil
}

func (a *Attempts) Create(_ context.Context, at *model.ExamAttempt) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	if a.db.incomplete(at.StudentID) != nil {
		return repository.ErrConflict
	}
	at.ID = uuid.New()
	at.StartedAt = a.db.now()
	at.Score = 0
	at.IsCompleted = false
	a.db.attempts[at.ID] = cloneAttempt(at)
	return nil
}

func (a *Attempts) Complete(_ context.Context, studentID int64, score func(*model.ExamAttempt, []model.AnswerRecord) int) (*model.ExamAttempt, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	at := a.db.incomplete(studentID)
	if at == nil {
		return nil, repository.ErrNotFound
	}

	at.Score = score(cloneAttempt(at), a.db.answerList(at.ID))
	at.IsCompleted = true
	done := a.db.now()
	at.CompletedAt = &done
	return cloneAttempt(at), nil
}

func (a *Attempts) HasCompleted(_ context.Context, studentID int64) (bool, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	for _, at := range a.db.attempts {
		if at.StudentID == studentID && at.IsCompleted {
			return true, nil
		}
	}
	return false, nil
}

// CountIncomplete returns the number of incomplete attempts of the student.
func (a *Attempts) CountIncomplete(studentID int64) int {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	n := 0
	for _, at := range a.db.attempts {
		if at.StudentID == studentID && !at.IsCompleted {
			n++
		}
	}
	return n
}

func cloneAttempt(at *model.ExamAttempt) *model.ExamAttempt {
	cp := *at
	cp.QuestionIDs = append([]int64(nil), at.QuestionIDs...)
	return &cp
}

// ─── Answers ───────────────────────────────────────────────────────────

// Answers is the in-memory answer ledger.
type Answers struct{ db *DB }

func (a *Answers) Upsert(_ context.Context, attemptID uuid.UUID, questionID int64, answer string) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	at, ok := a.db.attempts[attemptID]
	if !ok || at.IsCompleted {
		return repository.ErrAttemptClosed
	}
	if a.db.answers[attemptID] == nil {
		a.db.answers[attemptID] = map[int64]model.AnswerRecord{}
	}
	a.db.answers[attemptID][questionID] = model.AnswerRecord{
		AttemptID:      attemptID,
		QuestionID:     questionID,
		SelectedAnswer: answer,
		UpdatedAt:      a.db.now(),
	}
	return nil
}

func (a *Answers) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	return a.db.answerList(attemptID), nil
}

func (db *DB) answerList(attemptID uuid.UUID) []model.AnswerRecord {
	out := make([]model.AnswerRecord, 0, len(db.answers[attemptID]))
	for _, rec := range db.answers[attemptID] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}
