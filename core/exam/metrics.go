package exam

import "github.com/trezcool/examguard/core/violation"

// Metrics receives the state machine's counters.
type Metrics interface {
	AttemptStarted(resumed bool)
	ViolationRecorded(kind violation.Kind, recorded bool)
	KickedOut()
	SubmissionFinalized(reason EndReason, accepted bool)
	GradingFailed()
	SweepCompleted(expired int)
}

type nopMetrics struct{}

func (nopMetrics) AttemptStarted(bool)                    {}
func (nopMetrics) ViolationRecorded(violation.Kind, bool) {}
func (nopMetrics) KickedOut()                             {}
func (nopMetrics) SubmissionFinalized(EndReason, bool)    {}
func (nopMetrics) GradingFailed()                         {}
func (nopMetrics) SweepCompleted(int)                     {}
