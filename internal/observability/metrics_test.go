package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/config"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordClassification(OutcomeSucceeded)
	m.RecordClassification(OutcomeFailed)
	m.RecordClassification(OutcomeFailed)
	m.RecordWorkflowTrigger(OutcomeSucceeded)
	m.RecordTaskDropped("classify")
	m.SetQueueDepth(7)
	m.RecordRequest("/tickets", "POST", 201, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.classifications.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workflows.WithLabelValues(OutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksDropped.WithLabelValues("classify")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/tickets", "POST", "201")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordClassification(OutcomeFailed)
		m.RecordWorkflowTrigger(OutcomeSkipped)
		m.RecordError("/", "GET", "X")
		m.SetQueueDepth(1)
	})
	assert.Nil(t, m.Registry())
}

func TestNewLoggerFallsBackOnBadLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(0), "info level stays enabled")
}
