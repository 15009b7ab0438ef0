package countdown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examguard/core/exam"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// mockTime pins NowFunc and replaces the ticker with a channel the test drives.
func mockTime(t *testing.T) (*fakeClock, chan time.Time) {
	clock := &fakeClock{now: start}
	ticks := make(chan time.Time, 100)

	origNow, origTicker := NowFunc, newTicker
	NowFunc = clock.Now
	newTicker = func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} }
	t.Cleanup(func() { NowFunc, newTicker = origNow, origTicker })
	return clock, ticks
}

type recordingSubmit struct {
	calls   atomic.Int32
	reasons chan exam.EndReason
	fail    atomic.Int32 // number of calls left to fail
	delay   time.Duration
}

func newRecordingSubmit() *recordingSubmit {
	return &recordingSubmit{reasons: make(chan exam.EndReason, 100)}
}

func (s *recordingSubmit) submit(_ context.Context, reason exam.EndReason) error {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fail.Add(-1) >= 0 {
		return errors.New("503 service unavailable")
	}
	s.reasons <- reason
	return nil
}

func runAsync(ctx context.Context, c *Controller) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestController_autoSubmit(t *testing.T) {
	clock, ticks := mockTime(t)
	sub := newRecordingSubmit()
	c := New(Clock{StartedAt: start, ServerTime: start, TimeLimit: time.Minute}, sub.submit, Options{})

	remaining, ok := c.Remaining()
	require.True(t, ok)
	assert.Equal(t, time.Minute, remaining)

	done := runAsync(context.Background(), c)
	for i := 0; i < 60; i++ {
		clock.Advance(time.Second)
		ticks <- clock.Now()
	}
	waitDone(t, done)

	assert.EqualValues(t, 1, sub.calls.Load())
	assert.Equal(t, exam.EndReasonTimeExpired, <-sub.reasons)
	assert.True(t, c.Done())

	assert.Equal(t, ErrAlreadySubmitted, errors.Cause(c.Submit(context.Background())))
	assert.EqualValues(t, 1, sub.calls.Load())
}

func TestController_reloadAfterDeadline(t *testing.T) {
	mockTime(t)
	sub := newRecordingSubmit()

	// reloaded two minutes into a one minute exam
	c := New(Clock{StartedAt: start.Add(-2 * time.Minute), ServerTime: start, TimeLimit: time.Minute}, sub.submit, Options{})
	remaining, _ := c.Remaining()
	assert.Zero(t, remaining)

	waitDone(t, runAsync(context.Background(), c))
	assert.EqualValues(t, 1, sub.calls.Load())
}

func TestController_serverClockOffset(t *testing.T) {
	mockTime(t)

	// the local clock is 10s behind the server
	c := New(Clock{StartedAt: start, ServerTime: start.Add(10 * time.Second), TimeLimit: time.Minute}, nil, Options{})
	remaining, ok := c.Remaining()
	require.True(t, ok)
	assert.Equal(t, 50*time.Second, remaining)
}

func TestController_untimed(t *testing.T) {
	mockTime(t)
	sub := newRecordingSubmit()
	c := FromSnapshot(exam.AttemptSnapshot{Attempt: exam.Attempt{StartedAt: start}, ServerTime: start}, sub.submit, Options{})

	_, ok := c.Remaining()
	assert.False(t, ok)
	assert.NoError(t, c.Run(context.Background()))
	assert.Zero(t, sub.calls.Load())

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, exam.EndReasonManual, <-sub.reasons)
}

func TestController_retryAfterFailure(t *testing.T) {
	clock, ticks := mockTime(t)
	sub := newRecordingSubmit()
	sub.fail.Store(2)

	var logged atomic.Int32
	c := New(Clock{StartedAt: start, TimeLimit: time.Minute}, sub.submit, Options{Logger: countingLogger{&logged}})

	clock.Advance(time.Minute)
	done := runAsync(context.Background(), c)
	require.Eventually(t, func() bool { return sub.calls.Load() == 1 }, time.Second, time.Millisecond)

	clock.Advance(time.Second)
	ticks <- clock.Now() // second try
	require.Eventually(t, func() bool { return sub.calls.Load() == 2 }, time.Second, time.Millisecond)

	clock.Advance(2 * time.Second)
	ticks <- clock.Now() // third try succeeds
	waitDone(t, done)

	assert.EqualValues(t, 3, sub.calls.Load())
	assert.EqualValues(t, 2, logged.Load())
	assert.True(t, c.Done())
}

func TestController_backoff(t *testing.T) {
	clock, _ := mockTime(t)
	sub := newRecordingSubmit()
	sub.fail.Store(100)

	var failures []bool
	c := New(Clock{StartedAt: start, TimeLimit: time.Minute}, sub.submit, Options{
		TickInterval:   time.Second,
		MaxBackoff:     4 * time.Second,
		OnSubmitFailed: func(_ error, permanent bool) { failures = append(failures, permanent) },
	})
	clock.Advance(time.Minute)

	var triedAt []int
	for sec := 0; sec < 12; sec++ {
		before := sub.calls.Load()
		done, err := c.tick(context.Background())
		require.False(t, done)
		require.NoError(t, err)
		if sub.calls.Load() > before {
			triedAt = append(triedAt, sec)
		}
		clock.Advance(time.Second)
	}

	// delays of 1s, 2s, 4s, then capped at 4s
	assert.Equal(t, []int{0, 1, 3, 7, 11}, triedAt)
	assert.Equal(t, []bool{false, false, false, false, false}, failures)
}

func TestController_permanentFailureStopsTimer(t *testing.T) {
	clock, ticks := mockTime(t)

	var (
		calls    atomic.Int32
		reject   atomic.Bool
		gotErr   error
		gotPerm  bool
		rejected = errors.New("422 grading inconsistency")
	)
	reject.Store(true)
	submit := func(context.Context, exam.EndReason) error {
		calls.Add(1)
		if reject.Load() {
			return Permanent(rejected)
		}
		return nil
	}
	c := New(Clock{StartedAt: start, TimeLimit: time.Minute}, submit, Options{
		OnSubmitFailed: func(err error, permanent bool) { gotErr, gotPerm = err, permanent },
	})

	clock.Advance(time.Minute)
	for i := 0; i < 30; i++ {
		ticks <- clock.Now()
	}
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, rejected, errors.Cause(err))
	assert.EqualValues(t, 1, calls.Load())
	assert.True(t, gotPerm)
	assert.Equal(t, rejected, errors.Cause(gotErr))
	assert.False(t, c.Done())

	// the student can still retry by hand
	reject.Store(false)
	require.NoError(t, c.Submit(context.Background()))
	assert.True(t, c.Done())
	assert.EqualValues(t, 2, calls.Load())
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("timeout")))

	cause := errors.New("forbidden")
	err := errors.Wrap(Permanent(cause), "submitting attempt")
	assert.True(t, IsPermanent(err))
	assert.Equal(t, cause, errors.Cause(err))
	assert.Equal(t, "submitting attempt: forbidden", err.Error())
}

func TestController_manualFailureCanBeRetried(t *testing.T) {
	mockTime(t)
	sub := newRecordingSubmit()
	sub.fail.Store(1)
	c := New(Clock{StartedAt: start, TimeLimit: time.Hour}, sub.submit, Options{})

	err := c.Submit(context.Background())
	require.Error(t, err)
	assert.False(t, c.Done())

	require.NoError(t, c.Submit(context.Background()))
	assert.True(t, c.Done())
}

func TestController_manualRacesTimer(t *testing.T) {
	clock, ticks := mockTime(t)
	sub := newRecordingSubmit()
	sub.delay = 10 * time.Millisecond
	c := New(Clock{StartedAt: start, TimeLimit: time.Minute}, sub.submit, Options{})

	clock.Advance(59 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, c)

	// the student clicks submit in the very tick the timer expires
	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	clock.Advance(time.Second)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Submit(ctx)
			if err == nil {
				success.Add(1)
				return
			}
			cause := errors.Cause(err)
			assert.True(t, cause == ErrAlreadySubmitted || cause == ErrSubmissionInFlight, err)
		}()
	}
	select {
	case ticks <- clock.Now():
	case <-done:
		t.Fatal("Run returned before the deadline")
	}
	wg.Wait()

	// whichever won, exactly one submission reached the server
	require.Eventually(t, c.Done, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, sub.calls.Load())
	assert.LessOrEqual(t, success.Load(), int32(1))

	cancel()
	waitDone(t, done)
}

type countingLogger struct{ n *atomic.Int32 }

func (l countingLogger) Debug(string, ...interface{}) {}
func (l countingLogger) Info(string, ...interface{})  {}
func (l countingLogger) Warn(string, ...interface{})  {}
func (l countingLogger) Error(string, ...interface{}) { l.n.Add(1) }
func (l countingLogger) Fatal(string, ...interface{}) {}
