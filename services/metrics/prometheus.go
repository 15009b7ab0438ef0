package metricsvc

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/violation"
)

const namespace = "examguard"

// Prometheus counts attempt state machine events.
type Prometheus struct {
	registry *prometheus.Registry

	attemptsStarted *prometheus.CounterVec
	violations      *prometheus.CounterVec
	kickOuts        prometheus.Counter
	submissions     *prometheus.CounterVec
	gradingFailures prometheus.Counter
	expired         prometheus.Counter
}

var _ exam.Metrics = (*Prometheus)(nil) // interface compliance check

// NewPrometheus registers the exam counters on a dedicated registry.
func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		attemptsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_started_total",
			Help:      "Attempts started, by whether an attempt in progress was resumed.",
		}, []string{"resumed"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violation reports, by kind and whether they were recorded.",
		}, []string{"kind", "recorded"}),
		kickOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kick_outs_total",
			Help:      "Attempts ended by reaching the violation threshold.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submissions, by end reason and whether they were accepted.",
		}, []string{"reason", "accepted"}),
		gradingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grading_inconsistencies_total",
			Help:      "Submissions aborted because they could not be graded.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_expired_total",
			Help:      "Overdue attempts finalized by the expiry sweep.",
		}),
	}
	m.registry.MustRegister(
		m.attemptsStarted, m.violations, m.kickOuts, m.submissions, m.gradingFailures, m.expired,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Prometheus) AttemptStarted(resumed bool) {
	m.attemptsStarted.WithLabelValues(strconv.FormatBool(resumed)).Inc()
}

func (m *Prometheus) ViolationRecorded(kind violation.Kind, recorded bool) {
	m.violations.WithLabelValues(kind.String(), strconv.FormatBool(recorded)).Inc()
}

func (m *Prometheus) KickedOut() {
	m.kickOuts.Inc()
}

func (m *Prometheus) SubmissionFinalized(reason exam.EndReason, accepted bool) {
	m.submissions.WithLabelValues(string(reason), strconv.FormatBool(accepted)).Inc()
}

func (m *Prometheus) GradingFailed() {
	m.gradingFailures.Inc()
}

func (m *Prometheus) SweepCompleted(expired int) {
	m.expired.Add(float64(expired))
}
