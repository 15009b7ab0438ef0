package exam

import (
	"encoding/json"
	"time"

	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/core/violation"
)

// Status of an Attempt. An attempt only moves forward:
// not_started -> in_progress -> {submitted, kicked_out}.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusKickedOut  Status = "kicked_out"
)

func (s Status) IsTerminal() bool {
	return s == StatusSubmitted || s == StatusKickedOut
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusSubmitted, StatusKickedOut:
		return true
	}
	return false
}

// EndReason tells why an attempt reached its terminal state.
type EndReason string

const (
	EndReasonManual         EndReason = "manual"
	EndReasonTimeExpired    EndReason = "time_expired"
	EndReasonViolationLimit EndReason = "violation_limit"
)

// Unanswered is the SelectedOptionIndex of a question left blank.
const Unanswered = -1

type (
	Exam struct {
		ID                 string     `json:"id"`
		Title              string     `json:"title"`
		TimeLimitMinutes   *int       `json:"time_limit_minutes"` // nil: untimed
		PassingScore       *int       `json:"passing_score"`      // percentage; nil: no pass/fail verdict
		MaxAttempts        int        `json:"max_attempts"`
		RandomizeQuestions bool       `json:"randomize_questions"`
		RandomizeOptions   bool       `json:"randomize_options"`
		Questions          []Question `json:"questions"`
		CreatedAt          time.Time  `json:"created_at"`
	}

	Question struct {
		ID       string   `json:"id"`
		Position int      `json:"position"`
		Prompt   string   `json:"prompt"`
		Options  []Option `json:"options"`
	}

	// Option answers reference Option.ID, never its position.
	Option struct {
		ID        string `json:"id"`
		Position  int    `json:"position"`
		Text      string `json:"text"`
		IsCorrect bool   `json:"is_correct"`
	}
)

// TimeLimit returns 0 for untimed exams.
func (ex Exam) TimeLimit() time.Duration {
	if ex.TimeLimitMinutes == nil || *ex.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(*ex.TimeLimitMinutes) * time.Minute
}

// AttemptCap is the maximum attempt number a student may reach. Unset means a single attempt.
func (ex Exam) AttemptCap() int {
	if ex.MaxAttempts <= 0 {
		return 1
	}
	return ex.MaxAttempts
}

type Attempt struct {
	ID             string     `json:"id"`
	ExamID         string     `json:"exam_id"`
	StudentID      string     `json:"student_id"`
	AttemptNumber  int        `json:"attempt_number"`
	Status         Status     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	EndedAt        *time.Time `json:"ended_at"`
	EndReason      EndReason  `json:"end_reason,omitempty"`
	ViolationCount int        `json:"violation_count"`
	IsFlagged      bool       `json:"is_flagged"`
	Score          *int       `json:"score"`
	CorrectCount   *int       `json:"correct_count"`
	TotalPoints    *int       `json:"total_points"`
	Percentage     *float64   `json:"percentage"`
	Passed         *bool      `json:"passed"`
}

// Deadline returns the instant the attempt's time runs out, and false for untimed exams.
func (a Attempt) Deadline(ex Exam) (time.Time, bool) {
	limit := ex.TimeLimit()
	if limit == 0 {
		return time.Time{}, false
	}
	return a.StartedAt.Add(limit), true
}

// IsGraded reports whether grading fields were persisted.
func (a Attempt) IsGraded() bool {
	return a.Score != nil
}

type Violation struct {
	ID        string          `json:"id"`
	AttemptID string          `json:"attempt_id"`
	Kind      violation.Kind  `json:"kind"`
	Detail    json.RawMessage `json:"detail"`
	CreatedAt time.Time       `json:"created_at"`
}

type (
	// AnswerInput is one submitted answer. OptionID is the stable reference;
	// OptionIndex (canonical server order) is accepted when OptionID is empty.
	// Leaving both empty marks the question unanswered.
	AnswerInput struct {
		QuestionID  string `json:"question_id" validate:"required"`
		OptionID    string `json:"option_id,omitempty"`
		OptionIndex *int   `json:"selected_option_index,omitempty"`
	}

	Answer struct {
		AttemptID           string  `json:"attempt_id"`
		QuestionID          string  `json:"question_id"`
		SelectedOptionID    *string `json:"selected_option_id"`
		SelectedOptionIndex int     `json:"selected_option_index"`
		IsCorrect           bool    `json:"is_correct"`
	}
)

type (
	ViolationResult struct {
		ViolationCount int  `json:"violation_count"`
		KickedOut      bool `json:"kicked_out"`
		// Recorded is false when the attempt was already terminal and nothing was written.
		Recorded bool `json:"recorded"`
		// KickOutTriggered is true only for the report whose increment crossed the threshold.
		KickOutTriggered bool `json:"-"`
	}

	SubmitResult struct {
		Accepted bool    `json:"accepted"`
		Attempt  Attempt `json:"attempt"`
	}

	AttemptReport struct {
		Attempt    Attempt     `json:"attempt"`
		Answers    []Answer    `json:"answers"`
		Violations []Violation `json:"violations"`
	}
)

type (
	Stats struct {
		Started   int     `json:"started"`
		Completed int     `json:"completed"`
		Flagged   int     `json:"flagged"`
		AvgScore  float64 `json:"avg_score"`
	}

	RosterEntry struct {
		Attempt
		StudentName string `json:"student_name"`
	}

	Overview struct {
		ExamID     string        `json:"exam_id"`
		Stats      Stats         `json:"stats"`
		Attempts   []RosterEntry `json:"attempts"`
		NotStarted []user.User   `json:"not_started"`
	}
)
