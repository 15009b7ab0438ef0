package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/examguard/core/violation"
)

func TestClassify(t *testing.T) {
	prev := Viewport{Width: 1280, Height: 800}
	tests := []struct {
		name string
		sig  Signal
		opts ClassifyOptions
		want Classification
	}{
		{name: "tab hidden", sig: Signal{Type: SignalVisibilityHidden}, want: Classification{Kind: violation.TabSwitch}},
		{name: "alt+tab", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "Tab", Alt: true}}, want: Classification{Kind: violation.TabSwitch, Prevent: true}},
		{name: "blur", sig: Signal{Type: SignalBlur}, want: Classification{Kind: violation.WindowBlur}},
		{name: "context menu", sig: Signal{Type: SignalContextMenu}, want: Classification{Kind: violation.ContextMenu, Prevent: true}},
		{name: "copy", sig: Signal{Type: SignalCopy}, want: Classification{Kind: violation.CopyPaste, Prevent: true}},
		{name: "cut", sig: Signal{Type: SignalCut}, want: Classification{Kind: violation.CopyPaste, Prevent: true}},
		{name: "paste", sig: Signal{Type: SignalPaste}, want: Classification{Kind: violation.CopyPaste, Prevent: true}},
		{name: "fullscreen not required", sig: Signal{Type: SignalFullscreenExit}},
		{
			name: "fullscreen required",
			sig:  Signal{Type: SignalFullscreenExit},
			opts: ClassifyOptions{RequireFullscreen: true},
			want: Classification{Kind: violation.FullscreenExit},
		},
		{name: "F12", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "F12"}}, want: Classification{Kind: violation.DeveloperTools, Prevent: true}},
		{name: "ctrl+shift+i", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "I", Ctrl: true, Shift: true}}, want: Classification{Kind: violation.DeveloperTools, Prevent: true}},
		{name: "ctrl+u", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "u", Ctrl: true}}, want: Classification{Kind: violation.DeveloperTools, Prevent: true}},
		{name: "cmd+alt+j", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "j", Meta: true, Alt: true}}, want: Classification{Kind: violation.DeveloperTools, Prevent: true}},
		{name: "print screen", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "PrintScreen"}}, want: Classification{Kind: violation.SuspiciousActivity, Prevent: true}},
		{name: "plain typing", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "a"}}},
		{name: "ctrl+i", sig: Signal{Type: SignalKeyDown, Key: Key{Code: "i", Ctrl: true}}},
		{name: "leaving the page", sig: Signal{Type: SignalBeforeUnload}, want: Classification{Kind: violation.SuspiciousActivity, Prevent: true}},
		{name: "small resize", sig: Signal{Type: SignalResize, Size: Viewport{Width: 1200, Height: 760}}},
		{name: "exact threshold", sig: Signal{Type: SignalResize, Size: Viewport{Width: 1180, Height: 800}}},
		{name: "docked console", sig: Signal{Type: SignalResize, Size: Viewport{Width: 1280, Height: 450}}, want: Classification{Kind: violation.DeveloperTools}},
		{name: "side console", sig: Signal{Type: SignalResize, Size: Viewport{Width: 900, Height: 800}}, want: Classification{Kind: violation.DeveloperTools}},
		{
			name: "custom threshold",
			sig:  Signal{Type: SignalResize, Size: Viewport{Width: 1230, Height: 800}},
			opts: ClassifyOptions{ResizeThreshold: 40},
			want: Classification{Kind: violation.DeveloperTools},
		},
		{name: "unknown signal", sig: Signal{Type: "scroll"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.sig, prev, tt.opts)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind != "", got.Violation())
		})
	}
}

func TestClassify_firstResize(t *testing.T) {
	// no known viewport yet: nothing to compare with
	got := Classify(Signal{Type: SignalResize, Size: Viewport{Width: 400, Height: 300}}, Viewport{}, ClassifyOptions{})
	assert.False(t, got.Violation())
}
