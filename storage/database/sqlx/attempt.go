package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/storage/database"
)

type attemptRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db *sqlx.DB) *attemptRepository {
	return &attemptRepository{db: db}
}

// the attempt number is computed and checked against the cap in the INSERT itself;
// concurrent starts collide on the unique keys instead of over-allocating.
var insertAttemptQuery = `
INSERT INTO attempts (id, exam_id, student_id, attempt_number, status, started_at)
SELECT $1::uuid, $2::uuid, $3::uuid, n.next, 'in_progress', $4::timestamptz
FROM (
	SELECT COALESCE(MAX(attempt_number), 0) + 1 AS next
	FROM attempts
	WHERE exam_id = $2::uuid AND student_id = $3::uuid
) n
WHERE n.next <= $5::int
RETURNING ` + attemptColumns("")

func (repo *attemptRepository) CreateAttempt(ctx context.Context, att exam.Attempt, maxAttempts int) (exam.Attempt, error) {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}

	var row attemptRow
	err := repo.db.GetContext(ctx, &row, insertAttemptQuery, att.ID, att.ExamID, att.StudentID, att.StartedAt.UTC(), maxAttempts)
	switch {
	case err == nil:
		return toAttempt(row), nil
	case errors.Cause(err) == sql.ErrNoRows:
		return exam.Attempt{}, exam.ErrAttemptLimitExceeded
	case isUniqueViolation(err):
		return exam.Attempt{}, exam.ErrAttemptConflict
	}
	return exam.Attempt{}, database.WrapErr(err, "inserting attempt")
}

func (repo *attemptRepository) GetAttempt(ctx context.Context, id string) (exam.Attempt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Attempt{}, exam.ErrAttemptNotFound
	}

	var row attemptRow
	q := "SELECT " + attemptColumns("") + " FROM attempts WHERE id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return exam.Attempt{}, trapNoRowsErr(err, exam.ErrAttemptNotFound, "getting attempt")
	}
	return toAttempt(row), nil
}

func (repo *attemptRepository) GetActiveAttempt(ctx context.Context, examID, studentID string) (exam.Attempt, error) {
	var row attemptRow
	q := "SELECT " + attemptColumns("") + " FROM attempts WHERE exam_id = $1 AND student_id = $2 AND status = 'in_progress'"
	if err := repo.db.GetContext(ctx, &row, q, examID, studentID); err != nil {
		return exam.Attempt{}, trapNoRowsErr(err, exam.ErrAttemptNotFound, "getting active attempt")
	}
	return toAttempt(row), nil
}

// the counter bump, the kick-out transition and the log insert are one statement:
// the row lock taken by the UPDATE serializes concurrent reports of the same attempt.
const recordViolationQuery = `
WITH bumped AS (
	UPDATE attempts SET
		violation_count = violation_count + 1,
		is_flagged = TRUE,
		status = CASE WHEN violation_count + 1 >= $2::int THEN 'kicked_out' ELSE status END,
		ended_at = CASE WHEN violation_count + 1 >= $2::int THEN $3::timestamptz ELSE ended_at END,
		end_reason = CASE WHEN violation_count + 1 >= $2::int THEN 'violation_limit' ELSE end_reason END
	WHERE id = $1::uuid AND status = 'in_progress'
	RETURNING id, violation_count, status
), logged AS (
	INSERT INTO violations (id, attempt_id, kind, detail, created_at)
	SELECT $4::uuid, id, $5::text, $6::jsonb, $3::timestamptz FROM bumped
)
SELECT violation_count, status FROM bumped`

func (repo *attemptRepository) RecordViolation(ctx context.Context, v exam.Violation, threshold int, now time.Time) (exam.ViolationResult, error) {
	if _, err := uuid.Parse(v.AttemptID); err != nil {
		return exam.ViolationResult{}, exam.ErrAttemptNotFound
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	detail := string(v.Detail)
	if detail == "" {
		detail = "{}"
	}

	var bumped struct {
		ViolationCount int    `db:"violation_count"`
		Status         string `db:"status"`
	}
	err := repo.db.GetContext(ctx, &bumped, recordViolationQuery,
		v.AttemptID, threshold, now.UTC(), v.ID, string(v.Kind), detail)
	if err == nil {
		kicked := exam.Status(bumped.Status) == exam.StatusKickedOut
		return exam.ViolationResult{
			ViolationCount:   bumped.ViolationCount,
			KickedOut:        kicked,
			Recorded:         true,
			KickOutTriggered: kicked,
		}, nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return exam.ViolationResult{}, database.WrapErr(err, "recording violation")
	}

	// not in progress: report the current state without writing
	att, err := repo.GetAttempt(ctx, v.AttemptID)
	if err != nil {
		return exam.ViolationResult{}, err
	}
	return exam.ViolationResult{
		ViolationCount: att.ViolationCount,
		KickedOut:      att.Status == exam.StatusKickedOut,
	}, nil
}

var finalizeAttemptQuery = `
UPDATE attempts SET
	status = $2, submitted_at = $3, ended_at = $4, end_reason = $5,
	score = $6, correct_count = $7, total_points = $8, percentage = $9, passed = $10
WHERE id = $1 AND status = 'in_progress'
RETURNING ` + attemptColumns("")

const insertAnswerQuery = `
INSERT INTO answers (attempt_id, question_id, selected_option_id, selected_option_index, is_correct)
VALUES (:attempt_id, :question_id, :selected_option_id, :selected_option_index, :is_correct)`

func (repo *attemptRepository) FinalizeAttempt(ctx context.Context, att exam.Attempt, answers []exam.Answer) (_ exam.Attempt, ok bool, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return exam.Attempt{}, false, database.WrapErr(err, "beginning transaction")
	}
	defer func() {
		if !ok {
			_ = tx.Rollback()
		}
	}()

	var row attemptRow
	err = tx.GetContext(ctx, &row, finalizeAttemptQuery,
		att.ID, string(att.Status), nullTime(att.SubmittedAt), nullTime(att.EndedAt), null.NewString(string(att.EndReason), att.EndReason != ""),
		null.IntFromPtr(att.Score), null.IntFromPtr(att.CorrectCount), null.IntFromPtr(att.TotalPoints),
		null.Float64FromPtr(att.Percentage), null.BoolFromPtr(att.Passed))
	if err != nil {
		if errors.Cause(err) != sql.ErrNoRows {
			return exam.Attempt{}, false, database.WrapErr(err, "updating attempt")
		}
		current, err := repo.GetAttempt(ctx, att.ID)
		return current, false, err
	}

	for _, a := range answers {
		if _, err = tx.NamedExecContext(ctx, insertAnswerQuery, toAnswerRow(a)); err != nil {
			return exam.Attempt{}, false, database.WrapErr(err, "inserting answer")
		}
	}
	if err = tx.Commit(); err != nil {
		return exam.Attempt{}, false, database.WrapErr(err, "committing attempt")
	}
	return toAttempt(row), true, nil
}

func (repo *attemptRepository) QueryAnswers(ctx context.Context, attemptID string) ([]exam.Answer, error) {
	if _, err := uuid.Parse(attemptID); err != nil {
		return []exam.Answer{}, nil
	}

	var rows []answerRow
	q := `
SELECT a.attempt_id, a.question_id, a.selected_option_id, a.selected_option_index, a.is_correct
FROM answers a JOIN questions q ON q.id = a.question_id
WHERE a.attempt_id = $1
ORDER BY q.position`
	if err := repo.db.SelectContext(ctx, &rows, q, attemptID); err != nil {
		return nil, database.WrapErr(err, "querying answers")
	}

	answers := make([]exam.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, toAnswer(row))
	}
	return answers, nil
}

func (repo *attemptRepository) QueryViolations(ctx context.Context, attemptID string) ([]exam.Violation, error) {
	if _, err := uuid.Parse(attemptID); err != nil {
		return []exam.Violation{}, nil
	}

	var rows []violationRow
	q := "SELECT id, attempt_id, kind, detail, created_at FROM violations WHERE attempt_id = $1 ORDER BY created_at, id"
	if err := repo.db.SelectContext(ctx, &rows, q, attemptID); err != nil {
		return nil, database.WrapErr(err, "querying violations")
	}

	violations := make([]exam.Violation, 0, len(rows))
	for _, row := range rows {
		violations = append(violations, toViolation(row))
	}
	return violations, nil
}

var overdueAttemptsQuery = `
SELECT ` + attemptColumns("a") + `
FROM attempts a JOIN exams e ON e.id = a.exam_id
WHERE a.status = 'in_progress'
	AND e.time_limit_minutes IS NOT NULL
	AND a.started_at + make_interval(mins => e.time_limit_minutes) + ($2::bigint * interval '1 microsecond') < $1::timestamptz
ORDER BY a.started_at
LIMIT $3`

func (repo *attemptRepository) QueryOverdueAttempts(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]exam.Attempt, error) {
	// LIMIT NULL is LIMIT ALL
	lim := null.NewInt(limit, limit > 0)

	var rows []attemptRow
	if err := repo.db.SelectContext(ctx, &rows, overdueAttemptsQuery, now.UTC(), grace.Microseconds(), lim); err != nil {
		return nil, database.WrapErr(err, "querying overdue attempts")
	}

	atts := make([]exam.Attempt, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, toAttempt(row))
	}
	return atts, nil
}
