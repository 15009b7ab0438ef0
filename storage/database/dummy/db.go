package dummydb

import (
	"sync"

	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
)

type (
	// DB is an in-memory store. Each table's mutex is the serialization point
	// that a conditional UPDATE provides in the SQL stores.
	DB struct {
		user    *userTable
		exam    *examTable
		attempt *attemptTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	examTable struct {
		sync.RWMutex
		table       map[string]*exam.Exam
		enrollments map[string]map[string]bool // exam ID -> student IDs
	}

	attemptTable struct {
		sync.RWMutex
		table      map[string]*exam.Attempt
		violations map[string][]exam.Violation // attempt ID -> log
		answers    map[string][]exam.Answer    // attempt ID -> answers
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		exam: &examTable{
			table:       make(map[string]*exam.Exam),
			enrollments: make(map[string]map[string]bool),
		},
		attempt: &attemptTable{
			table:      make(map[string]*exam.Attempt),
			violations: make(map[string][]exam.Violation),
			answers:    make(map[string][]exam.Answer),
		},
	}
	return db, nil
}

// Close exists for symmetry with the SQL stores.
func (db *DB) Close() error { return nil }
