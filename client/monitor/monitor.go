package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/violation"
)

// ErrViolationReportFailed wraps report failures. They are logged, never surfaced to the student.
var ErrViolationReportFailed = errors.New("violation report failed")

// Reporter forwards a violation to the attempt state machine.
type Reporter interface {
	RecordViolation(ctx context.Context, attemptID string, kind violation.Kind, detail json.RawMessage) (exam.ViolationResult, error)
}

type (
	Options struct {
		ClassifyOptions

		// Viewport is the initial window size.
		Viewport Viewport
		// ReportTimeout bounds each report. Defaults to 10s.
		ReportTimeout time.Duration
		// OnViolation is called with the server count after each recorded report.
		OnViolation func(kind violation.Kind, count int)
		// OnKickOut is called once, when the server reports the attempt kicked out. It must lock the answering UI.
		OnKickOut func()
	}

	// Decision is what the monitor did with a signal.
	Decision struct {
		Kind     violation.Kind
		Prevent  bool // the caller must block the default action
		Reported bool // a report was sent
		Dropped  bool // a violation was detected but another report was in flight, or the monitor is stopped
	}

	// Monitor turns integrity signals into violation reports, at most one in flight at a time.
	Monitor struct {
		attemptID string
		reporter  Reporter
		logger    core.Logger
		opts      Options

		inFlight atomic.Bool
		stopped  atomic.Bool
		kickOnce sync.Once
		wg       sync.WaitGroup

		mu       sync.Mutex
		viewport Viewport
	}
)

func New(attemptID string, reporter Reporter, logger core.Logger, opts Options) *Monitor {
	if opts.ReportTimeout <= 0 {
		opts.ReportTimeout = 10 * time.Second
	}
	return &Monitor{
		attemptID: attemptID,
		reporter:  reporter,
		logger:    logger,
		opts:      opts,
		viewport:  opts.Viewport,
	}
}

// Handle classifies sig and, when it is a violation and no report is in flight, reports it asynchronously.
func (m *Monitor) Handle(ctx context.Context, sig Signal) Decision {
	prev := m.trackViewport(sig)
	class := Classify(sig, prev, m.opts.ClassifyOptions)
	if !class.Violation() {
		return Decision{}
	}

	dec := Decision{Kind: class.Kind, Prevent: class.Prevent}
	if m.stopped.Load() || !m.inFlight.CompareAndSwap(false, true) {
		dec.Dropped = true
		return dec
	}

	detail := detailOf(sig, prev)
	m.wg.Add(1)
	go m.report(ctx, class.Kind, detail)
	dec.Reported = true
	return dec
}

func (m *Monitor) report(ctx context.Context, kind violation.Kind, detail json.RawMessage) {
	defer m.wg.Done()
	defer m.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(ctx, m.opts.ReportTimeout)
	defer cancel()

	res, err := m.reporter.RecordViolation(ctx, m.attemptID, kind, detail)
	if err != nil {
		m.logger.Warn("violation not reported", errors.Wrapf(ErrViolationReportFailed, "%s: %v", kind, err),
			map[string]interface{}{"attempt_id": m.attemptID, "kind": kind})
		return
	}

	if res.Recorded && m.opts.OnViolation != nil {
		m.opts.OnViolation(kind, res.ViolationCount)
	}
	if res.KickedOut {
		m.Stop()
		m.kickOnce.Do(func() {
			m.logger.Warn("attempt kicked out", map[string]interface{}{
				"attempt_id": m.attemptID, "violation_count": res.ViolationCount,
			})
			if m.opts.OnKickOut != nil {
				m.opts.OnKickOut()
			}
		})
	}
}

// trackViewport records the viewport of a resize signal and returns the previous one.
func (m *Monitor) trackViewport(sig Signal) Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.viewport
	if sig.Type == SignalResize {
		m.viewport = sig.Size
	}
	return prev
}

// Stop makes the monitor drop every later signal.
func (m *Monitor) Stop() {
	m.stopped.Store(true)
}

func (m *Monitor) Stopped() bool {
	return m.stopped.Load()
}

// Wait blocks until the report in flight, if any, is done.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

func detailOf(sig Signal, prev Viewport) json.RawMessage {
	detail := map[string]interface{}{"signal": sig.Type}
	switch sig.Type {
	case SignalKeyDown:
		detail["key"] = sig.Key
	case SignalResize:
		detail["from"] = prev
		detail["to"] = sig.Size
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
