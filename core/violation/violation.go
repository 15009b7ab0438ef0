// Package violation is the closed catalog of integrity violations an exam
// client can detect and report.
package violation

import (
	"strings"

	"github.com/pkg/errors"
)

type Kind string

const (
	TabSwitch          Kind = "tab_switch"
	WindowBlur         Kind = "window_blur"
	ContextMenu        Kind = "context_menu"
	CopyPaste          Kind = "copy_paste"
	FullscreenExit     Kind = "fullscreen_exit"
	DeveloperTools     Kind = "developer_tools"
	SuspiciousActivity Kind = "suspicious_activity"
)

var ErrUnknownKind = errors.New("unknown violation kind")

var signals = map[Kind]string{
	TabSwitch:          "page visibility becomes hidden, or Alt+Tab keystroke intercepted",
	WindowBlur:         "window loses focus",
	ContextMenu:        "right-click / context-menu request (suppressed)",
	CopyPaste:          "copy, cut or paste action (suppressed)",
	FullscreenExit:     "fullscreen mode exited while the exam requires it",
	DeveloperTools:     "dev-tool shortcut keys, or viewport size jump above the threshold",
	SuspiciousActivity: "navigation away or tab close while the attempt is active (blocked with a prompt)",
}

// All returns every kind in catalog order.
func All() []Kind {
	return []Kind{TabSwitch, WindowBlur, ContextMenu, CopyPaste, FullscreenExit, DeveloperTools, SuspiciousActivity}
}

func (k Kind) Valid() bool {
	_, ok := signals[k]
	return ok
}

// Signal describes the browser signal that triggers k.
func (k Kind) Signal() string {
	return signals[k]
}

func (k Kind) String() string { return string(k) }

func Parse(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.Wrapf(ErrUnknownKind, "%q", s)
	}
	return k, nil
}
