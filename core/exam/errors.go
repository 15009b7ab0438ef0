package exam

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrExamNotFound            = errors.New("exam not found")
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrNotEnrolled             = errors.New("student is not enrolled in this exam")
	ErrAttemptLimitExceeded    = errors.New("maximum number of attempts reached for this exam")
	ErrAttemptAlreadyFinalized = errors.New("attempt already finalized")
	// ErrAttemptConflict is returned by a Repository when a concurrent start won the race.
	ErrAttemptConflict = errors.New("attempt was started concurrently")
)

// GradingInconsistencyError aborts a submission: the answer set or the
// answer key cannot be graded as is.
type GradingInconsistencyError struct {
	AttemptID  string
	QuestionID string
	Reason     string
}

func newGradingInconsistency(attemptID, questionID, format string, args ...interface{}) error {
	return &GradingInconsistencyError{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Reason:     fmt.Sprintf(format, args...),
	}
}

func (e *GradingInconsistencyError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("grading inconsistency: %s", e.Reason)
	}
	return fmt.Sprintf("grading inconsistency on question %s: %s", e.QuestionID, e.Reason)
}

// IsGradingInconsistency reports whether err (or its cause) is a *GradingInconsistencyError.
func IsGradingInconsistency(err error) bool {
	_, ok := errors.Cause(err).(*GradingInconsistencyError)
	return ok
}
