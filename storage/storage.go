// Package storage opens the repositories of the configured database engine.
package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/storage/database"
	dummydb "github.com/trezcool/examguard/storage/database/dummy"
	boiledrepos "github.com/trezcool/examguard/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/examguard/storage/database/sqlx"
)

type (
	// CatalogStore is the exam catalog along with its admin operations.
	CatalogStore interface {
		exam.Catalog
		CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error)
		Enroll(ctx context.Context, examID string, studentIDs ...string) error
	}

	Stores struct {
		Users    user.Repository
		Attempts exam.Repository
		Catalog  CatalogStore
		Overview exam.OverviewReader

		// DB is nil for the memory engine.
		DB *sqlx.DB
	}
)

// Open returns the repositories of conf.Database.Engine.
// With setUp, a postgres database is created when missing and migrated up.
func Open(ctx context.Context, conf *core.Config, setUp bool) (*Stores, error) {
	if conf.Database.InMemory() {
		db, err := dummydb.Open()
		if err != nil {
			return nil, errors.Wrap(err, "opening memory database")
		}
		return &Stores{
			Users:    dummydb.NewUserRepository(db),
			Attempts: dummydb.NewAttemptRepository(db),
			Catalog:  dummydb.NewCatalogRepository(db),
			Overview: dummydb.NewOverviewRepository(db),
		}, nil
	}

	if setUp {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if setUp {
		if err = database.Migrate(ctx, db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Stores{
		Users:    sqlxrepos.NewUserRepository(db),
		Attempts: sqlxrepos.NewAttemptRepository(db),
		Catalog:  sqlxrepos.NewCatalogRepository(db),
		Overview: boiledrepos.NewOverviewRepository(db),
		DB:       db,
	}, nil
}

func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
