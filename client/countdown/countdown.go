package countdown

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/exam"
)

var (
	NowFunc = time.Now // mockable

	// newTicker returns the tick channel and its stop func.
	newTicker = func(d time.Duration) (<-chan time.Time, func()) { // mockable
		t := time.NewTicker(d)
		return t.C, t.Stop
	}
)

var (
	ErrAlreadySubmitted   = errors.New("attempt already submitted")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// permanentError marks a submission failure that sending the same request again cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Cause() error  { return e.err }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the timer stops retrying it. It returns nil when err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// SubmitFunc sends the submission. It is called at most once at a time.
type SubmitFunc func(ctx context.Context, reason exam.EndReason) error

type (
	// Clock is the server's view of the attempt timing.
	Clock struct {
		StartedAt  time.Time
		ServerTime time.Time     // server clock when the snapshot was taken; zero to trust the local clock
		TimeLimit  time.Duration // 0: untimed
	}

	Options struct {
		Logger       core.Logger
		TickInterval time.Duration // defaults to 1s
		MaxBackoff   time.Duration // cap of the delay between auto-submit retries; defaults to 30s
		OnTick       func(remaining time.Duration)
		OnSubmitted  func(reason exam.EndReason)
		// OnSubmitFailed is called after every failed auto-submit. permanent is true
		// when the timer gave up and only a manual Submit can retry.
		OnSubmitFailed func(err error, permanent bool)
	}

	state int

	// Controller issues exactly one successful submission, when time runs out or on Submit,
	// whichever comes first.
	Controller struct {
		submit   SubmitFunc
		opts     Options
		deadline time.Time
		timed    bool
		offset   time.Duration // server clock - local clock

		mu    sync.Mutex
		state state

		// auto-submit retries, owned by Run
		failures int
		retryAt  time.Time
	}
)

const (
	stateIdle state = iota
	stateSubmitting
	stateDone
)

// New builds a controller from a server snapshot. The deadline derives from the
// server's started_at, so reloading never extends the time budget.
func New(clock Clock, submit SubmitFunc, opts Options) *Controller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	c := &Controller{
		submit: submit,
		opts:   opts,
		timed:  clock.TimeLimit > 0,
	}
	if c.timed {
		c.deadline = clock.StartedAt.Add(clock.TimeLimit)
	}
	if !clock.ServerTime.IsZero() {
		c.offset = clock.ServerTime.Sub(NowFunc())
	}
	return c
}

// FromSnapshot builds a controller for an attempt snapshot returned by the server.
func FromSnapshot(snap exam.AttemptSnapshot, submit SubmitFunc, opts Options) *Controller {
	clock := Clock{StartedAt: snap.StartedAt, ServerTime: snap.ServerTime}
	if snap.TimeLimitMinutes != nil && *snap.TimeLimitMinutes > 0 {
		clock.TimeLimit = time.Duration(*snap.TimeLimitMinutes) * time.Minute
	}
	return New(clock, submit, opts)
}

func (c *Controller) now() time.Time {
	return NowFunc().Add(c.offset)
}

// Remaining returns the time left, never negative. ok is false for untimed attempts.
func (c *Controller) Remaining() (remaining time.Duration, ok bool) {
	if !c.timed {
		return 0, false
	}
	remaining = c.deadline.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Done reports whether a submission succeeded.
func (c *Controller) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateDone
}

// Run ticks until the attempt is submitted or ctx is done. When time is up it submits
// with reason time_expired. Transient failures are retried with exponential backoff;
// a permanent failure stops the timer and is returned, leaving the retry to Submit.
func (c *Controller) Run(ctx context.Context) error {
	if !c.timed {
		return nil
	}

	ticks, stop := newTicker(c.opts.TickInterval)
	defer stop()

	for {
		if done, err := c.tick(ctx); done {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
		}
	}
}

// tick reports whether the timer is done, with the permanent failure that stopped it.
func (c *Controller) tick(ctx context.Context) (bool, error) {
	remaining, _ := c.Remaining()
	if c.opts.OnTick != nil {
		c.opts.OnTick(remaining)
	}
	if remaining > 0 {
		return c.Done(), nil
	}
	if !c.retryAt.IsZero() && c.now().Before(c.retryAt) {
		return false, nil
	}

	err := c.trySubmit(ctx, exam.EndReasonTimeExpired)
	switch errors.Cause(err) {
	case nil, ErrAlreadySubmitted:
		return true, nil
	case ErrSubmissionInFlight:
		// a manual submission is running; its outcome decides
		return false, nil
	}

	permanent := IsPermanent(err)
	c.logError("auto-submit failed", err)
	if c.opts.OnSubmitFailed != nil {
		c.opts.OnSubmitFailed(err, permanent)
	}
	if permanent {
		return true, err
	}
	c.failures++
	c.retryAt = c.now().Add(c.backoff())
	return false, nil
}

// backoff doubles the tick interval with every consecutive failure, up to MaxBackoff.
func (c *Controller) backoff() time.Duration {
	d := c.opts.TickInterval
	for i := 1; i < c.failures && d < c.opts.MaxBackoff; i++ {
		d *= 2
	}
	if d > c.opts.MaxBackoff {
		d = c.opts.MaxBackoff
	}
	return d
}

// Submit sends a manual submission. It fails with ErrAlreadySubmitted once a
// submission succeeded and with ErrSubmissionInFlight while another is running.
func (c *Controller) Submit(ctx context.Context) error {
	return c.trySubmit(ctx, exam.EndReasonManual)
}

func (c *Controller) trySubmit(ctx context.Context, reason exam.EndReason) error {
	c.mu.Lock()
	switch c.state {
	case stateDone:
		c.mu.Unlock()
		return ErrAlreadySubmitted
	case stateSubmitting:
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	c.state = stateSubmitting
	c.mu.Unlock()

	err := c.submit(ctx, reason)

	c.mu.Lock()
	if err != nil {
		c.state = stateIdle
	} else {
		c.state = stateDone
	}
	c.mu.Unlock()

	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	if c.opts.OnSubmitted != nil {
		c.opts.OnSubmitted(reason)
	}
	return nil
}

func (c *Controller) logError(msg string, err error) {
	if c.opts.Logger != nil {
		c.opts.Logger.Error(msg, err)
	}
}
