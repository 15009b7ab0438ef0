package logsvc

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/user"
)

var exitFunc = os.Exit // mockable

// SlogLogger is a core.Logger writing to a *slog.Logger only.
type SlogLogger struct {
	std *slog.Logger
}

var _ core.Logger = (*SlogLogger)(nil) // interface compliance check

func NewSlogLogger(std *slog.Logger) *SlogLogger {
	return &SlogLogger{std: std}
}

func (l SlogLogger) Debug(msg string, args ...interface{}) { l.std.Debug(msg, attrsOf(args)...) }
func (l SlogLogger) Info(msg string, args ...interface{})  { l.std.Info(msg, attrsOf(args)...) }
func (l SlogLogger) Warn(msg string, args ...interface{})  { l.std.Warn(msg, attrsOf(args)...) }
func (l SlogLogger) Error(msg string, args ...interface{}) { l.std.Error(msg, attrsOf(args)...) }

func (l SlogLogger) Fatal(msg string, args ...interface{}) {
	l.std.Error(msg, attrsOf(args)...)
	exitFunc(1)
}

// attrsOf turns logger args (error, map[string]interface{}, user.User, ...) into slog attributes.
func attrsOf(args []interface{}) []any {
	attrs := make([]any, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			attrs = append(attrs, slog.String("error", fmt.Sprintf("%+v", v)))
		case map[string]interface{}:
			for k, val := range v {
				attrs = append(attrs, slog.Any(k, val))
			}
		case user.User:
			attrs = append(attrs, slog.String("user_id", v.ID))
		case *user.User:
			if v != nil {
				attrs = append(attrs, slog.String("user_id", v.ID))
			}
		default:
			attrs = append(attrs, slog.Any(fmt.Sprintf("arg%d", i), v))
		}
	}
	return attrs
}
