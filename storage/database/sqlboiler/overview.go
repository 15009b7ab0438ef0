package boiledrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/storage/database"
)

type overviewRepository struct {
	exec core.DBExecutor
}

var _ exam.OverviewReader = (*overviewRepository)(nil) // interface compliance check

func NewOverviewRepository(exec core.DBExecutor) *overviewRepository {
	return &overviewRepository{exec: exec}
}

type (
	rosterRow struct {
		ID             string       `boil:"id"`
		ExamID         string       `boil:"exam_id"`
		StudentID      string       `boil:"student_id"`
		AttemptNumber  int          `boil:"attempt_number"`
		Status         string       `boil:"status"`
		StartedAt      time.Time    `boil:"started_at"`
		SubmittedAt    null.Time    `boil:"submitted_at"`
		EndedAt        null.Time    `boil:"ended_at"`
		EndReason      null.String  `boil:"end_reason"`
		ViolationCount int          `boil:"violation_count"`
		IsFlagged      bool         `boil:"is_flagged"`
		Score          null.Int     `boil:"score"`
		CorrectCount   null.Int     `boil:"correct_count"`
		TotalPoints    null.Int     `boil:"total_points"`
		Percentage     null.Float64 `boil:"percentage"`
		Passed         null.Bool    `boil:"passed"`
		StudentName    string       `boil:"student_name"`
	}

	studentRow struct {
		ID        string            `boil:"id"`
		Name      string            `boil:"name"`
		Username  null.String       `boil:"username"`
		Email     null.String       `boil:"email"`
		IsActive  bool              `boil:"is_active"`
		Roles     types.StringArray `boil:"roles"`
		CreatedAt time.Time         `boil:"created_at"`
		UpdatedAt time.Time         `boil:"updated_at"`
	}
)

func (repo *overviewRepository) unboilRoster(row rosterRow) exam.RosterEntry {
	return exam.RosterEntry{
		Attempt: exam.Attempt{
			ID:             row.ID,
			ExamID:         row.ExamID,
			StudentID:      row.StudentID,
			AttemptNumber:  row.AttemptNumber,
			Status:         exam.Status(row.Status),
			StartedAt:      row.StartedAt.UTC(),
			SubmittedAt:    timePtr(row.SubmittedAt),
			EndedAt:        timePtr(row.EndedAt),
			EndReason:      exam.EndReason(row.EndReason.String),
			ViolationCount: row.ViolationCount,
			IsFlagged:      row.IsFlagged,
			Score:          row.Score.Ptr(),
			CorrectCount:   row.CorrectCount.Ptr(),
			TotalPoints:    row.TotalPoints.Ptr(),
			Percentage:     row.Percentage.Ptr(),
			Passed:         row.Passed.Ptr(),
		},
		StudentName: row.StudentName,
	}
}

func (repo *overviewRepository) unboilStudent(row studentRow) user.User {
	active := row.IsActive
	return user.User{
		ID:        row.ID,
		Name:      row.Name,
		Username:  row.Username.String,
		Email:     row.Email.String,
		IsActive:  &active,
		Roles:     []string(row.Roles),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

const rosterQuery = `
SELECT * FROM (
	SELECT a.id, a.exam_id, a.student_id, a.attempt_number, a.status, a.started_at, a.submitted_at, a.ended_at,
		a.end_reason, a.violation_count, a.is_flagged, a.score, a.correct_count, a.total_points, a.percentage,
		a.passed, COALESCE(u.name, '') AS student_name
	FROM attempts a LEFT JOIN "user" u ON u.id = a.student_id
	WHERE a.exam_id = $1
) roster
ORDER BY %s, id`

// QueryRoster lists every attempt of examID. ordering must hold roster columns only.
func (repo *overviewRepository) QueryRoster(ctx context.Context, examID string, ordering []core.DBOrdering) ([]exam.RosterEntry, error) {
	orderList := []string{"started_at ASC"}
	if len(ordering) > 0 {
		orderList = make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
	}

	var rows []rosterRow
	q := fmt.Sprintf(rosterQuery, strings.Join(orderList, ", "))
	if err := queries.Raw(q, examID).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, database.WrapErr(err, "querying roster")
	}

	roster := make([]exam.RosterEntry, 0, len(rows))
	for _, row := range rows {
		roster = append(roster, repo.unboilRoster(row))
	}
	return roster, nil
}

const notStartedQuery = `
SELECT u.id, u.name, u.username, u.email, u.is_active, u.roles, u.created_at, u.updated_at
FROM enrollments e JOIN "user" u ON u.id = e.student_id
WHERE e.exam_id = $1
	AND NOT EXISTS (SELECT 1 FROM attempts a WHERE a.exam_id = e.exam_id AND a.student_id = e.student_id)
ORDER BY u.name, u.id`

func (repo *overviewRepository) QueryNotStarted(ctx context.Context, examID string) ([]user.User, error) {
	var rows []studentRow
	if err := queries.Raw(notStartedQuery, examID).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, database.WrapErr(err, "querying students not started")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboilStudent(row))
	}
	return users, nil
}
