package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/violation"
	"github.com/trezcool/examguard/storage/database"
)

const pgUniqueViolation = "23505"

var attemptFields = []string{
	"id", "exam_id", "student_id", "attempt_number", "status", "started_at", "submitted_at", "ended_at", "end_reason",
	"violation_count", "is_flagged", "score", "correct_count", "total_points", "percentage", "passed",
}

// attemptColumns lists the attempt columns, qualified with table when given.
func attemptColumns(table string) string {
	if table == "" {
		return strings.Join(attemptFields, ", ")
	}
	cols := make([]string, 0, len(attemptFields))
	for _, f := range attemptFields {
		cols = append(cols, fmt.Sprintf("%s.%s", table, f))
	}
	return strings.Join(cols, ", ")
}

type attemptRow struct {
	ID             string       `db:"id"`
	ExamID         string       `db:"exam_id"`
	StudentID      string       `db:"student_id"`
	AttemptNumber  int          `db:"attempt_number"`
	Status         string       `db:"status"`
	StartedAt      time.Time    `db:"started_at"`
	SubmittedAt    null.Time    `db:"submitted_at"`
	EndedAt        null.Time    `db:"ended_at"`
	EndReason      null.String  `db:"end_reason"`
	ViolationCount int          `db:"violation_count"`
	IsFlagged      bool         `db:"is_flagged"`
	Score          null.Int     `db:"score"`
	CorrectCount   null.Int     `db:"correct_count"`
	TotalPoints    null.Int     `db:"total_points"`
	Percentage     null.Float64 `db:"percentage"`
	Passed         null.Bool    `db:"passed"`
}

func toAttempt(row attemptRow) exam.Attempt {
	return exam.Attempt{
		ID:             row.ID,
		ExamID:         row.ExamID,
		StudentID:      row.StudentID,
		AttemptNumber:  row.AttemptNumber,
		Status:         exam.Status(row.Status),
		StartedAt:      row.StartedAt.UTC(),
		SubmittedAt:    utcPtr(row.SubmittedAt),
		EndedAt:        utcPtr(row.EndedAt),
		EndReason:      exam.EndReason(row.EndReason.String),
		ViolationCount: row.ViolationCount,
		IsFlagged:      row.IsFlagged,
		Score:          row.Score.Ptr(),
		CorrectCount:   row.CorrectCount.Ptr(),
		TotalPoints:    row.TotalPoints.Ptr(),
		Percentage:     row.Percentage.Ptr(),
		Passed:         row.Passed.Ptr(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

type violationRow struct {
	ID        string    `db:"id"`
	AttemptID string    `db:"attempt_id"`
	Kind      string    `db:"kind"`
	Detail    []byte    `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}

func toViolation(row violationRow) exam.Violation {
	return exam.Violation{
		ID:        row.ID,
		AttemptID: row.AttemptID,
		Kind:      violation.Kind(row.Kind),
		Detail:    json.RawMessage(row.Detail),
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type answerRow struct {
	AttemptID           string      `db:"attempt_id"`
	QuestionID          string      `db:"question_id"`
	SelectedOptionID    null.String `db:"selected_option_id"`
	SelectedOptionIndex int         `db:"selected_option_index"`
	IsCorrect           bool        `db:"is_correct"`
}

func toAnswerRow(a exam.Answer) answerRow {
	return answerRow{
		AttemptID:           a.AttemptID,
		QuestionID:          a.QuestionID,
		SelectedOptionID:    null.StringFromPtr(a.SelectedOptionID),
		SelectedOptionIndex: a.SelectedOptionIndex,
		IsCorrect:           a.IsCorrect,
	}
}

func toAnswer(row answerRow) exam.Answer {
	return exam.Answer{
		AttemptID:           row.AttemptID,
		QuestionID:          row.QuestionID,
		SelectedOptionID:    row.SelectedOptionID.Ptr(),
		SelectedOptionIndex: row.SelectedOptionIndex,
		IsCorrect:           row.IsCorrect,
	}
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == pgUniqueViolation
}

// trapNoRowsErr maps "no rows" to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return database.WrapErr(err, msg)
}
