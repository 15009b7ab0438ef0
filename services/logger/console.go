package logsvc

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/trezcool/examguard/core"
)

// ConsoleHandler writes one coloured line per record, for humans at a terminal.
type ConsoleHandler struct {
	l     *log.Logger
	level slog.Level
	attrs []slog.Attr
}

var _ slog.Handler = (*ConsoleHandler)(nil) // interface compliance check

func NewConsoleHandler(out io.Writer, level slog.Level) *ConsoleHandler {
	return &ConsoleHandler{l: log.New(out, "", 0), level: level}
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch {
	case r.Level >= slog.LevelError:
		level = color.RedString(level)
	case r.Level >= slog.LevelWarn:
		level = color.YellowString(level)
	case r.Level >= slog.LevelInfo:
		level = color.HiBlueString(level)
	default:
		level = color.MagentaString(level)
	}

	var attrs strings.Builder
	write := func(a slog.Attr) bool {
		attrs.WriteString(color.GreenString(a.Key))
		attrs.WriteString("=")
		attrs.WriteString(fmt.Sprint(a.Value.Any()))
		attrs.WriteString(" ")
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	h.l.Println(r.Time.Format("15:04:05.000"), level, r.Message, strings.TrimSpace(attrs.String()))
	return nil
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup is not supported: groups are flattened.
func (h *ConsoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

var isTerminal = term.IsTerminal // mockable

// NewStdLogger logs to stdout: coloured lines on a terminal, JSON otherwise.
func NewStdLogger(conf *core.Config) *slog.Logger {
	level := slog.LevelInfo
	if conf.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isTerminal(int(os.Stdout.Fd())) {
		handler = NewConsoleHandler(os.Stdout, level)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With(slog.String("app", conf.AppName), slog.String("env", conf.Env))
}
