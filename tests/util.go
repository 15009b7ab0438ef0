package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/storage/database/dummy"
)

// Store bundles the in-memory repositories behind one dummy DB.
type Store struct {
	DB       *dummydb.DB
	Users    user.Repository
	Attempts exam.Repository
	Overview exam.OverviewReader
	Catalog  interface {
		exam.Catalog
		CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error)
		Enroll(ctx context.Context, examID string, studentIDs ...string) error
	}
}

func NewStore(t *testing.T) *Store {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return &Store{
		DB:       db,
		Users:    dummydb.NewUserRepository(db),
		Attempts: dummydb.NewAttemptRepository(db),
		Overview: dummydb.NewOverviewRepository(db),
		Catalog:  dummydb.NewCatalogRepository(db),
	}
}

// NewService returns an exam service over s, configured by conf (nil for defaults).
func (s *Store) NewService(conf *core.Config, metrics exam.Metrics) *exam.Service {
	return exam.NewService(exam.Deps{
		Attempts: s.Attempts,
		Catalog:  s.Catalog,
		Overview: s.Overview,
		Logger:   NopLogger{},
		Metrics:  metrics,
		Conf:     conf,
	})
}

func CreateUser(t *testing.T, repo user.Repository, name string, roles ...string) user.User {
	active := true
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Username:  name,
		IsActive:  &active,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, s *Store, name string) user.User {
	return CreateUser(t, s.Users, name, user.RoleStudent)
}

// ExamOption tweaks the exam built by CreateExam.
type ExamOption func(*exam.Exam)

func WithTimeLimit(minutes int) ExamOption {
	return func(ex *exam.Exam) { ex.TimeLimitMinutes = &minutes }
}

func WithPassingScore(score int) ExamOption {
	return func(ex *exam.Exam) { ex.PassingScore = &score }
}

func WithMaxAttempts(n int) ExamOption {
	return func(ex *exam.Exam) { ex.MaxAttempts = n }
}

func WithRandomization() ExamOption {
	return func(ex *exam.Exam) {
		ex.RandomizeQuestions = true
		ex.RandomizeOptions = true
	}
}

// CreateExam stores an exam of nQuestions questions with nOptions options each.
// The correct option of every question is the first one.
func CreateExam(t *testing.T, s *Store, nQuestions, nOptions int, opts ...ExamOption) exam.Exam {
	ex := BuildExam(nQuestions, nOptions, opts...)
	ex, err := s.Catalog.CreateExam(context.Background(), ex)
	if err != nil {
		t.Fatalf("CreateExam() failed: %v", err)
	}
	return ex
}

// BuildExam builds, without storing, the exam CreateExam would store.
func BuildExam(nQuestions, nOptions int, opts ...ExamOption) exam.Exam {
	ex := exam.Exam{Title: fmt.Sprintf("Exam of %d questions", nQuestions)}
	for i := 0; i < nQuestions; i++ {
		q := exam.Question{Prompt: fmt.Sprintf("Question %d?", i+1)}
		for j := 0; j < nOptions; j++ {
			q.Options = append(q.Options, exam.Option{Text: fmt.Sprintf("Option %d.%d", i+1, j+1), IsCorrect: j == 0})
		}
		ex.Questions = append(ex.Questions, q)
	}
	for _, opt := range opts {
		opt(&ex)
	}
	return ex
}

func Enroll(t *testing.T, s *Store, ex exam.Exam, students ...user.User) {
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	if err := s.Catalog.Enroll(context.Background(), ex.ID, ids...); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}

// Answers answers every question of ex, the first nCorrect ones correctly and the rest wrongly.
func Answers(ex exam.Exam, nCorrect int) []exam.AnswerInput {
	inputs := make([]exam.AnswerInput, 0, len(ex.Questions))
	for i, q := range ex.Questions {
		opt := q.Options[len(q.Options)-1]
		if i < nCorrect {
			opt = q.Options[0]
		}
		inputs = append(inputs, exam.AnswerInput{QuestionID: q.ID, OptionID: opt.ID})
	}
	return inputs
}

// MockNow pins exam.NowFunc to the returned clock until the test ends.
func MockNow(t *testing.T, start time.Time) *Clock {
	clock := &Clock{now: start}
	orig := exam.NowFunc
	exam.NowFunc = clock.Now
	t.Cleanup(func() { exam.NowFunc = orig })
	return clock
}

type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// NopLogger discards every record.
type NopLogger struct{}

var _ core.Logger = NopLogger{} // interface compliance check

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
