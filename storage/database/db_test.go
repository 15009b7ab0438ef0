package database

import (
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examguard/core"
)

func TestWrapErr(t *testing.T) {
	db, err := sqlx.Open(driverName, "postgres://nobody@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	closedErr := db.Ping()
	require.Error(t, closedErr)

	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "closed pool", err: closedErr, wantShutdown: true},
		{name: "admin shutdown", err: &pq.Error{Code: "57P01"}, wantShutdown: true},
		{name: "crash shutdown", err: errors.WithStack(&pq.Error{Code: "57P02"}), wantShutdown: true},
		{name: "query canceled", err: &pq.Error{Code: "57014"}},
		{name: "unique violation", err: &pq.Error{Code: "23505"}},
		{name: "no rows", err: sql.ErrNoRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapErr(tt.err, "querying roster")
			require.Error(t, got)
			assert.Equal(t, tt.wantShutdown, core.IsShutdown(got))
			assert.Contains(t, got.Error(), "querying roster: ")
			if !tt.wantShutdown {
				assert.Equal(t, tt.err, errors.Cause(got))
			}
		})
	}

	assert.NoError(t, WrapErr(nil, "querying roster"))
}
