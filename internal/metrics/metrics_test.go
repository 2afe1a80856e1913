package metrics_test

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdmbridge/internal/metrics"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Op("run", "SUCCESS")
	m.Sink("message")
	m.Dropped("individualization-request")
	m.Decrypt("SUCCESS", 10)
	m.SessionOpened()
	m.SessionClosed()
	m.License("ok", 0.1)
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Op("update", "GENERIC_FAILURE")
	m.Op("update", "GENERIC_FAILURE")
	m.Decrypt("SUCCESS", 32)
	m.Decrypt("GENERIC_FAILURE", 0)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionOps.WithLabelValues("update", "GENERIC_FAILURE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decrypts.WithLabelValues("SUCCESS")))
	assert.Equal(t, 32.0, testutil.ToFloat64(m.DecryptedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenSessions))
}

func TestDump(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Dropped("individualization-request")

	var buf bytes.Buffer
	require.NoError(t, metrics.Dump(&buf, reg))
	assert.Contains(t, buf.String(), `cdmbridge_session_dropped_messages_total{type="individualization-request"} 1`)
}
