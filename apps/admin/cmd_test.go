package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/examguard/apps/api/echo"
	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/user"
	"github.com/trezcool/examguard/storage"
	"github.com/trezcool/examguard/tests"
)

func setup(t *testing.T) (*commandLine, *storage.Stores) {
	conf := &core.Config{
		AppName:   "ExamGuard",
		SecretKey: "secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Database:  core.DatabaseConfig{Engine: core.EngineMemory},
		Exam:      core.ExamConfig{SubmitGracePeriod: 30 * time.Second},
	}
	cli := newCommandLine(conf, testutil.NopLogger{})
	t.Cleanup(cli.close)

	stores, err := cli.store(context.Background())
	require.NoError(t, err)
	return cli, stores
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, cli *commandLine) string {
	var out bytes.Buffer
	err := cli.run(context.Background(), tt.args, &out)
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
	if tt.wantOut != "" {
		assert.Contains(t, out.String(), tt.wantOut)
	}
	return out.String()
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	origOpen, origMigrate := openDBFunc, migrateFunc
	t.Cleanup(func() { openDBFunc, migrateFunc = origOpen, origMigrate })

	openDBFunc = func(*core.Config) (*sql.DB, error) { return nil, nil }
	migrateFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "proctor_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}
}

func Test_openDB_memory(t *testing.T) {
	_, err := openDB(&core.Config{Database: core.DatabaseConfig{Engine: core.EngineMemory}})
	assert.EqualError(t, err, "migrations need a postgres database")
}

func Test_commandLine_help(t *testing.T) {
	cli, _ := setup(t)
	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}
}

func Test_commandLine_addUserAndToken(t *testing.T) {
	cli, stores := setup(t)

	out := cliTest{args: []string{"adduser", "--name", " Mrs Teacher ", "--username", "Teach", "--role", "teacher"}}.check(t, cli)
	id := strings.TrimSpace(out)
	usr, err := stores.Users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Mrs Teacher", usr.Name)
	assert.Equal(t, "teach", usr.Username)
	assert.True(t, usr.IsTeacher())

	tests := []cliTest{
		{name: "unknown role", args: []string{"adduser", "--username", "x", "--role", "janitor"}, wantErrStr: `unknown role "janitor"`},
		{name: "missing username", args: []string{"adduser"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "token: unknown user", args: []string{"token", "--user", "nope"}, wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}

	t.Run("token", func(t *testing.T) {
		out := cliTest{args: []string{"token", "--user", id}}.check(t, cli)

		claims := new(echoapi.Claims)
		_, err := jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (interface{}, error) {
			return []byte(cli.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, id, claims.Subject)
		assert.True(t, claims.IsTeacher)
		assert.False(t, claims.IsStudent)
	})
}

func Test_commandLine_importExam(t *testing.T) {
	cli, stores := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "missing file flag", args: []string{"import-exam"}, wantErrStr: `required flag(s) "file" not set`},
		{name: "unreadable file", args: []string{"import-exam", "-f", "testdata/nope.yaml"}, wantErrStr: "reading exam file: open testdata/nope.yaml: no such file or directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}

	t.Run("answer key with two correct options", func(t *testing.T) {
		var out bytes.Buffer
		err := cli.run(ctx, []string{"import-exam", "-f", "testdata/broken.yaml"}, &out)
		require.Error(t, err)
		assert.True(t, exam.IsGradingInconsistency(err))
	})

	t.Run("import", func(t *testing.T) {
		out := cliTest{args: []string{"import-exam", "--file", "testdata/exam.yaml"}}.check(t, cli)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		fields := strings.Fields(lines[0])
		require.True(t, len(fields) > 2)
		assert.Equal(t, "exam", fields[0])

		ex, err := stores.Catalog.GetExam(ctx, fields[1])
		require.NoError(t, err)
		assert.Equal(t, "Geography quiz", ex.Title)
		assert.Equal(t, 2, ex.MaxAttempts)
		require.NotNil(t, ex.TimeLimitMinutes)
		assert.Equal(t, 20, *ex.TimeLimitMinutes)
		require.Len(t, ex.Questions, 2)
		assert.True(t, ex.Questions[1].Options[1].IsCorrect)

		for _, line := range lines[1:] {
			fields := strings.Fields(line)
			require.Len(t, fields, 3)
			enrolled, err := stores.Catalog.IsEnrolled(ctx, ex.ID, fields[1])
			require.NoError(t, err)
			assert.True(t, enrolled, fields[2])
		}
		assert.Equal(t, "student", strings.Fields(lines[2])[0])
		assert.Equal(t, "bob", strings.Fields(lines[2])[2])
	})
}

func Test_commandLine_sweepAndOverview(t *testing.T) {
	cli, stores := setup(t)
	ctx := context.Background()
	clock := testutil.MockNow(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	ex, err := stores.Catalog.CreateExam(ctx, testutil.BuildExam(2, 2, testutil.WithTimeLimit(10)))
	require.NoError(t, err)
	alice := testutil.CreateUser(t, stores.Users, "Alice", user.RoleStudent)
	bob := testutil.CreateUser(t, stores.Users, "Bob", user.RoleStudent)
	require.NoError(t, stores.Catalog.Enroll(ctx, ex.ID, alice.ID, bob.ID))

	svc, err := cli.service(ctx)
	require.NoError(t, err)
	snap, err := svc.StartAttempt(ctx, alice.ID, ex.ID)
	require.NoError(t, err)

	cliTest{args: []string{"sweep"}, wantOut: "0 attempt(s) expired"}.check(t, cli)

	clock.Advance(11 * time.Minute)
	cliTest{args: []string{"sweep"}, wantOut: "1 attempt(s) expired"}.check(t, cli)

	att, err := stores.Attempts.GetAttempt(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.StatusSubmitted, att.Status)
	assert.Equal(t, exam.EndReasonTimeExpired, att.EndReason)

	tests := []cliTest{
		{name: "missing exam flag", args: []string{"overview"}, wantErrStr: `required flag(s) "exam" not set`},
		{name: "unknown exam", args: []string{"overview", "--exam", "nope"}, wantErr: exam.ErrExamNotFound},
		{name: "roster", args: []string{"overview", "--exam", ex.ID, "--ordering", "-score"}, wantOut: "Alice"},
		{name: "stats", args: []string{"overview", "--exam", ex.ID}, wantOut: "1 started, 1 completed, 0 flagged, average 0.00%"},
		{name: "not started", args: []string{"overview", "--exam", ex.ID}, wantOut: "Not started: Bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli)
		})
	}
}

func Test_parseOrdering(t *testing.T) {
	assert.Equal(t,
		[]core.DBOrdering{{Field: "score", Ascending: false}, {Field: "student_name", Ascending: true}},
		parseOrdering("-score, student_name,,"),
	)
	assert.Nil(t, parseOrdering(""))
}

func Test_truncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
}
