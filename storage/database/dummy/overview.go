package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
)

type overviewRepository struct {
	attempts *attemptRepository
	catalog  *catalogRepository
	users    *userRepository
}

var _ exam.OverviewReader = (*overviewRepository)(nil) // interface compliance check

func NewOverviewRepository(db *DB) *overviewRepository {
	return &overviewRepository{
		attempts: NewAttemptRepository(db),
		catalog:  NewCatalogRepository(db),
		users:    NewUserRepository(db),
	}
}

func (repo *overviewRepository) QueryRoster(_ context.Context, examID string, ordering []core.DBOrdering) ([]exam.RosterEntry, error) {
	atts := repo.attempts.attemptsOf(examID)
	ids := make([]string, 0, len(atts))
	for _, att := range atts {
		ids = append(ids, att.StudentID)
	}
	names := repo.users.lookup(ids)

	roster := make([]exam.RosterEntry, 0, len(atts))
	for _, att := range atts {
		roster = append(roster, exam.RosterEntry{Attempt: att, StudentName: names[att.StudentID].Name})
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "started_at", Ascending: true}}
	}
	sort.SliceStable(roster, func(i, j int) bool {
		for _, o := range ordering {
			c := compareRoster(roster[i], roster[j], o.Field)
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return roster[i].ID < roster[j].ID
	})
	return roster, nil
}

func (repo *overviewRepository) QueryNotStarted(_ context.Context, examID string) ([]user.User, error) {
	started := make(map[string]bool)
	for _, att := range repo.attempts.attemptsOf(examID) {
		started[att.StudentID] = true
	}

	var pending []string
	for _, id := range repo.catalog.enrolled(examID) {
		if !started[id] {
			pending = append(pending, id)
		}
	}

	users := make([]user.User, 0, len(pending))
	for _, usr := range repo.users.lookup(pending) {
		users = append(users, usr)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func compareRoster(a, b exam.RosterEntry, field string) int {
	switch field {
	case "started_at":
		return a.StartedAt.Compare(b.StartedAt)
	case "student_name":
		return strings.Compare(a.StudentName, b.StudentName)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "violation_count":
		return a.ViolationCount - b.ViolationCount
	case "attempt_number":
		return a.AttemptNumber - b.AttemptNumber
	case "score":
		return compareScores(a.Score, b.Score)
	}
	return 0
}

// compareScores orders ungraded attempts as the highest scores, like postgres orders NULLs.
func compareScores(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return *a - *b
}
