package monitor

import (
	"strings"

	"github.com/trezcool/examguard/core/violation"
)

// SignalType is the browser event a Signal stands for.
type SignalType string

const (
	SignalVisibilityHidden SignalType = "visibilitychange"
	SignalBlur             SignalType = "blur"
	SignalKeyDown          SignalType = "keydown"
	SignalContextMenu      SignalType = "contextmenu"
	SignalCopy             SignalType = "copy"
	SignalCut              SignalType = "cut"
	SignalPaste            SignalType = "paste"
	SignalFullscreenExit   SignalType = "fullscreenchange"
	SignalResize           SignalType = "resize"
	SignalBeforeUnload     SignalType = "beforeunload"
)

type (
	// Key is a keystroke. Code follows KeyboardEvent.key ("F12", "i", "Tab", ...).
	Key struct {
		Code  string `json:"code"`
		Ctrl  bool   `json:"ctrl,omitempty"`
		Shift bool   `json:"shift,omitempty"`
		Alt   bool   `json:"alt,omitempty"`
		Meta  bool   `json:"meta,omitempty"`
	}

	// Viewport is the inner size of the window, in CSS pixels.
	Viewport struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	Signal struct {
		Type SignalType
		Key  Key      // SignalKeyDown
		Size Viewport // SignalResize: the new viewport
	}
)

// Classification tells whether a signal is a violation and whether its default action must be blocked.
type Classification struct {
	Kind    violation.Kind
	Prevent bool
}

// Violation reports whether the signal maps to a violation kind.
func (c Classification) Violation() bool {
	return c.Kind != ""
}

// ClassifyOptions tunes the heuristics of Classify.
type ClassifyOptions struct {
	// ResizeThreshold is the viewport delta, in either dimension, above which a resize
	// is taken for a docked developer console.
	ResizeThreshold int
	// RequireFullscreen makes leaving fullscreen a violation.
	RequireFullscreen bool
}

const DefaultResizeThreshold = 100

// Classify maps sig to a violation kind. prev is the viewport before sig, used for resizes.
func Classify(sig Signal, prev Viewport, opts ClassifyOptions) Classification {
	switch sig.Type {
	case SignalVisibilityHidden:
		return Classification{Kind: violation.TabSwitch}
	case SignalBlur:
		return Classification{Kind: violation.WindowBlur}
	case SignalContextMenu:
		return Classification{Kind: violation.ContextMenu, Prevent: true}
	case SignalCopy, SignalCut, SignalPaste:
		return Classification{Kind: violation.CopyPaste, Prevent: true}
	case SignalFullscreenExit:
		if opts.RequireFullscreen {
			return Classification{Kind: violation.FullscreenExit}
		}
	case SignalBeforeUnload:
		return Classification{Kind: violation.SuspiciousActivity, Prevent: true}
	case SignalResize:
		threshold := opts.ResizeThreshold
		if threshold <= 0 {
			threshold = DefaultResizeThreshold
		}
		if prev.Width > 0 && prev.Height > 0 &&
			(abs(sig.Size.Width-prev.Width) > threshold || abs(sig.Size.Height-prev.Height) > threshold) {
			return Classification{Kind: violation.DeveloperTools}
		}
	case SignalKeyDown:
		return classifyKey(sig.Key)
	}
	return Classification{}
}

func classifyKey(k Key) Classification {
	code := strings.ToLower(k.Code)
	switch {
	case code == "f12",
		k.Ctrl && k.Shift && isOneOf(code, "i", "j", "c"),
		k.Ctrl && !k.Shift && code == "u",
		k.Meta && k.Alt && isOneOf(code, "i", "j", "c"):
		return Classification{Kind: violation.DeveloperTools, Prevent: true}
	case k.Alt && code == "tab":
		return Classification{Kind: violation.TabSwitch, Prevent: true}
	case code == "printscreen":
		return Classification{Kind: violation.SuspiciousActivity, Prevent: true}
	}
	return Classification{}
}

func isOneOf(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
