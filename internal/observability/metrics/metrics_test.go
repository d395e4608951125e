package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEngineMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.ObserveEvaluation("DANGER", 2*time.Millisecond)
	m.ObserveEvaluation("DANGER", time.Millisecond)
	m.ObserveEscalation("call_otp_correlation")
	m.ObserveStoreError("hset")
	m.ObserveDroppedWrite()
	m.ObserveLearned("keyword", 3)
	m.ObserveLearned("phrase", 0)
	m.ObserveAlert("repeat", "sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues("DANGER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.escalations.WithLabelValues("call_otp_correlation")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.learned.WithLabelValues("keyword")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedWrite))
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveEvaluation("SAFE", time.Millisecond)
	m.ObserveEscalation("remote_access")
	m.ObserveStoreError("sadd")
	m.ObserveDroppedWrite()
	m.ObserveLearned("keyword", 1)
	m.ObserveAlert("danger", "failed")
}
