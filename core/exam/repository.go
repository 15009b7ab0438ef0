package exam

import (
	"context"
	"time"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/user"
)

type (
	// Repository persists attempts. Every mutation is atomic at the storage
	// layer: implementations must not split a read-modify-write across calls.
	Repository interface {
		// CreateAttempt inserts att as in_progress with attempt_number = previous max + 1.
		// It fails with ErrAttemptLimitExceeded, writing nothing, when that number exceeds maxAttempts,
		// and with ErrAttemptConflict when another in-progress attempt exists for the pair.
		CreateAttempt(ctx context.Context, att Attempt, maxAttempts int) (Attempt, error)
		GetAttempt(ctx context.Context, id string) (Attempt, error)
		// GetActiveAttempt returns the in_progress attempt of the student, or ErrAttemptNotFound.
		GetActiveAttempt(ctx context.Context, examID, studentID string) (Attempt, error)
		// RecordViolation appends v and increments the counter of its attempt in one operation,
		// flipping the attempt to kicked_out when the new count reaches threshold.
		// On a terminal attempt nothing is written and the current snapshot is returned.
		RecordViolation(ctx context.Context, v Violation, threshold int, now time.Time) (ViolationResult, error)
		// FinalizeAttempt moves att (carrying its terminal fields) out of in_progress and stores answers
		// in the same transaction, returning the stored attempt.
		// It returns false, writing nothing, when the attempt was no longer in progress.
		FinalizeAttempt(ctx context.Context, att Attempt, answers []Answer) (Attempt, bool, error)
		QueryAnswers(ctx context.Context, attemptID string) ([]Answer, error)
		QueryViolations(ctx context.Context, attemptID string) ([]Violation, error)
		// QueryOverdueAttempts lists in_progress attempts of timed exams whose deadline plus grace is before now.
		QueryOverdueAttempts(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]Attempt, error)
	}

	// Catalog is the read-only source of exam definitions and enrollments.
	Catalog interface {
		GetExam(ctx context.Context, id string) (Exam, error)
		IsEnrolled(ctx context.Context, examID, studentID string) (bool, error)
	}

	// OverviewReader serves the proctor overview.
	OverviewReader interface {
		QueryRoster(ctx context.Context, examID string, ordering []core.DBOrdering) ([]RosterEntry, error)
		// QueryNotStarted lists enrolled students without any attempt.
		QueryNotStarted(ctx context.Context, examID string) ([]user.User, error)
	}
)

// RosterOrderingFields maps the ordering fields accepted by the overview to roster columns.
var RosterOrderingFields = map[string]string{
	"started_at":      "started_at",
	"student_name":    "student_name",
	"status":          "status",
	"violation_count": "violation_count",
	"score":           "score",
	"attempt_number":  "attempt_number",
}
