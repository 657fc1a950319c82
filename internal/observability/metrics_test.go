package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}

func TestRecordBufferAccumulates(t *testing.T) {
	before := testutil.ToFloat64(cellsTotal.WithLabelValues("out"))
	RecordBuffer("out", 12, 3*time.Millisecond)
	RecordBuffer("out", 8, time.Millisecond)
	after := testutil.ToFloat64(cellsTotal.WithLabelValues("out"))
	if after-before != 20 {
		t.Fatalf("cells counter moved by %v, want 20", after-before)
	}
}

func TestRecordSessionAndFailure(t *testing.T) {
	before := testutil.ToFloat64(sessionsTotal.WithLabelValues("service"))
	RecordSession("service")
	if got := testutil.ToFloat64(sessionsTotal.WithLabelValues("service")); got-before != 1 {
		t.Fatalf("sessions counter moved by %v, want 1", got-before)
	}
	RecordHandshakeFailure("dial")
}
