package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/examguard/core/exam"
)

type attemptRepository struct {
	db      *attemptTable
	catalog *catalogRepository
}

var _ exam.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db *DB) *attemptRepository {
	return &attemptRepository{db: db.attempt, catalog: NewCatalogRepository(db)}
}

func (repo *attemptRepository) CreateAttempt(_ context.Context, att exam.Attempt, maxAttempts int) (exam.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	last := 0
	for _, a := range repo.db.table {
		if a.ExamID != att.ExamID || a.StudentID != att.StudentID {
			continue
		}
		if a.Status == exam.StatusInProgress {
			return exam.Attempt{}, exam.ErrAttemptConflict
		}
		if a.AttemptNumber > last {
			last = a.AttemptNumber
		}
	}
	if last+1 > maxAttempts {
		return exam.Attempt{}, exam.ErrAttemptLimitExceeded
	}

	att.AttemptNumber = last + 1
	att.Status = exam.StatusInProgress
	att.ViolationCount = 0
	att.IsFlagged = false
	repo.db.table[att.ID] = &att
	return att, nil
}

func (repo *attemptRepository) GetAttempt(_ context.Context, id string) (exam.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if att, ok := repo.db.table[id]; ok {
		return *att, nil
	}
	return exam.Attempt{}, exam.ErrAttemptNotFound
}

func (repo *attemptRepository) GetActiveAttempt(_ context.Context, examID, studentID string) (exam.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, att := range repo.db.table {
		if att.ExamID == examID && att.StudentID == studentID && att.Status == exam.StatusInProgress {
			return *att, nil
		}
	}
	return exam.Attempt{}, exam.ErrAttemptNotFound
}

func (repo *attemptRepository) RecordViolation(_ context.Context, v exam.Violation, threshold int, now time.Time) (exam.ViolationResult, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	att, ok := repo.db.table[v.AttemptID]
	if !ok {
		return exam.ViolationResult{}, exam.ErrAttemptNotFound
	}
	if att.Status != exam.StatusInProgress {
		return exam.ViolationResult{
			ViolationCount: att.ViolationCount,
			KickedOut:      att.Status == exam.StatusKickedOut,
		}, nil
	}

	att.ViolationCount++
	att.IsFlagged = true
	v.Detail = append([]byte(nil), v.Detail...)
	repo.db.violations[att.ID] = append(repo.db.violations[att.ID], v)

	res := exam.ViolationResult{ViolationCount: att.ViolationCount, Recorded: true}
	if att.ViolationCount >= threshold {
		ended := now
		att.Status = exam.StatusKickedOut
		att.EndedAt = &ended
		att.EndReason = exam.EndReasonViolationLimit
		res.KickedOut = true
		res.KickOutTriggered = true
	}
	return res, nil
}

func (repo *attemptRepository) FinalizeAttempt(_ context.Context, att exam.Attempt, answers []exam.Answer) (exam.Attempt, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[att.ID]
	if !ok {
		return exam.Attempt{}, false, exam.ErrAttemptNotFound
	}
	if stored.Status != exam.StatusInProgress {
		return *stored, false, nil
	}

	// counters and identity belong to the store, not to the caller's copy
	stored.Status = att.Status
	stored.SubmittedAt = att.SubmittedAt
	stored.EndedAt = att.EndedAt
	stored.EndReason = att.EndReason
	stored.Score = att.Score
	stored.CorrectCount = att.CorrectCount
	stored.TotalPoints = att.TotalPoints
	stored.Percentage = att.Percentage
	stored.Passed = att.Passed
	repo.db.answers[att.ID] = append([]exam.Answer(nil), answers...)
	return *stored, true, nil
}

func (repo *attemptRepository) QueryAnswers(_ context.Context, attemptID string) ([]exam.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return append([]exam.Answer{}, repo.db.answers[attemptID]...), nil
}

func (repo *attemptRepository) QueryViolations(_ context.Context, attemptID string) ([]exam.Violation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return append([]exam.Violation{}, repo.db.violations[attemptID]...), nil
}

func (repo *attemptRepository) QueryOverdueAttempts(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]exam.Attempt, error) {
	repo.db.RLock()
	active := make([]exam.Attempt, 0)
	for _, att := range repo.db.table {
		if att.Status == exam.StatusInProgress {
			active = append(active, *att)
		}
	}
	repo.db.RUnlock()

	sort.Slice(active, func(i, j int) bool { return active[i].StartedAt.Before(active[j].StartedAt) })

	overdue := make([]exam.Attempt, 0)
	for _, att := range active {
		if limit > 0 && len(overdue) >= limit {
			break
		}
		ex, err := repo.catalog.GetExam(ctx, att.ExamID)
		if err != nil {
			continue
		}
		if deadline, timed := att.Deadline(ex); timed && deadline.Add(grace).Before(now) {
			overdue = append(overdue, att)
		}
	}
	return overdue, nil
}

// attemptsOf returns the attempts of examID.
func (repo *attemptRepository) attemptsOf(examID string) []exam.Attempt {
	repo.db.RLock()
	defer repo.db.RUnlock()

	atts := make([]exam.Attempt, 0)
	for _, att := range repo.db.table {
		if att.ExamID == examID {
			atts = append(atts, *att)
		}
	}
	return atts
}
