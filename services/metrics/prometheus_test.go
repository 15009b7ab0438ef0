package metricsvc

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/violation"
)

func TestPrometheus(t *testing.T) {
	m := NewPrometheus()

	m.AttemptStarted(false)
	m.AttemptStarted(true)
	m.AttemptStarted(false)
	m.ViolationRecorded(violation.TabSwitch, true)
	m.ViolationRecorded(violation.TabSwitch, true)
	m.ViolationRecorded(violation.TabSwitch, false)
	m.KickedOut()
	m.SubmissionFinalized(exam.EndReasonManual, true)
	m.SubmissionFinalized(exam.EndReasonManual, false)
	m.GradingFailed()
	m.SweepCompleted(3)
	m.SweepCompleted(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.attemptsStarted.WithLabelValues("false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.attemptsStarted.WithLabelValues("true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.violations.WithLabelValues("tab_switch", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.violations.WithLabelValues("tab_switch", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.kickOuts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.submissions.WithLabelValues("manual", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.gradingFailures))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.expired))
}

func TestPrometheus_Handler(t *testing.T) {
	m := NewPrometheus()
	m.KickedOut()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "examguard_kick_outs_total 1")
}
