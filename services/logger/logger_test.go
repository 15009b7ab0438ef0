package logsvc

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/user"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Warn("attempt kicked out",
		errors.New("boom"),
		map[string]interface{}{"attempt_id": "a1", "violation_count": 5},
		user.User{ID: "u1", Username: "alice"},
	)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "attempt kicked out", rec["msg"])
	assert.Equal(t, "a1", rec["attempt_id"])
	assert.EqualValues(t, 5, rec["violation_count"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.True(t, strings.HasPrefix(rec["error"].(string), "boom"))
}

func TestSlogLogger_Fatal(t *testing.T) {
	orig := exitFunc
	t.Cleanup(func() { exitFunc = orig })
	var code int
	exitFunc = func(c int) { code = c }

	var buf bytes.Buffer
	NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))).Fatal("cannot start")
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "cannot start")
}

func TestConsoleHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelInfo)).With(slog.String("app", "examguard"))

	logger.Debug("hidden")
	logger.Info("attempt started", slog.String("attempt_id", "a1"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO: attempt started app=examguard attempt_id=a1")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNewStdLogger(t *testing.T) {
	orig := isTerminal
	t.Cleanup(func() { isTerminal = orig })

	conf := &core.Config{AppName: "examguard", Env: "TEST"}

	isTerminal = func(int) bool { return true }
	_, ok := NewStdLogger(conf).Handler().(*ConsoleHandler)
	assert.True(t, ok)

	isTerminal = func(int) bool { return false }
	_, ok = NewStdLogger(conf).Handler().(*slog.JSONHandler)
	assert.True(t, ok)
}
