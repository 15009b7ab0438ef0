package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/examguard/core/exam"
)

type catalogRepository struct {
	db *examTable
}

var _ exam.Catalog = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db.exam}
}

// CreateExam stores ex, assigning missing IDs and positions from slice order.
func (repo *catalogRepository) CreateExam(_ context.Context, ex exam.Exam) (exam.Exam, error) {
	if err := exam.CheckAnswerKey(assignIDs(&ex)); err != nil {
		return exam.Exam{}, err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	stored := copyExam(ex)
	repo.db.table[ex.ID] = &stored
	return copyExam(stored), nil
}

func (repo *catalogRepository) GetExam(_ context.Context, id string) (exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ex, ok := repo.db.table[id]; ok {
		return copyExam(*ex), nil
	}
	return exam.Exam{}, exam.ErrExamNotFound
}

func (repo *catalogRepository) Enroll(_ context.Context, examID string, studentIDs ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[examID]; !ok {
		return exam.ErrExamNotFound
	}
	students, ok := repo.db.enrollments[examID]
	if !ok {
		students = make(map[string]bool)
		repo.db.enrollments[examID] = students
	}
	for _, id := range studentIDs {
		students[id] = true
	}
	return nil
}

func (repo *catalogRepository) IsEnrolled(_ context.Context, examID, studentID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.db.enrollments[examID][studentID], nil
}

func (repo *catalogRepository) enrolled(examID string) []string {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0, len(repo.db.enrollments[examID]))
	for id := range repo.db.enrollments[examID] {
		ids = append(ids, id)
	}
	return ids
}

func assignIDs(ex *exam.Exam) exam.Exam {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	for i := range ex.Questions {
		q := &ex.Questions[i]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		q.Position = i
		for j := range q.Options {
			opt := &q.Options[j]
			if opt.ID == "" {
				opt.ID = uuid.New().String()
			}
			opt.Position = j
		}
	}
	return *ex
}

func copyExam(ex exam.Exam) exam.Exam {
	questions := make([]exam.Question, len(ex.Questions))
	for i, q := range ex.Questions {
		q.Options = append([]exam.Option(nil), q.Options...)
		questions[i] = q
	}
	ex.Questions = questions
	return ex
}
