package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordHistoryStep("3M/1H", "failed")
	r.RecordHistoryStep("3M/1H", "failed")
	r.RecordCacheLookup("bars", true)
	r.RecordBars("SPY", "snapshot")
	r.RecordRefresh("ok", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.historySteps.WithLabelValues("3M/1H", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("bars", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.barsServed.WithLabelValues("SPY", "snapshot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshes.WithLabelValues("ok")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordHistoryStep("x", "y")
		r.RecordCacheLookup("x", false)
		r.RecordBars("x", "y")
		r.RecordRefresh("x", 1)
	})
	assert.NotNil(t, r.Handler())
}
