package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCall_IncrementsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(calls.WithLabelValues("metricsTestMethod", "ok"))
	RecordCall("metricsTestMethod", "ok", 10*time.Millisecond)
	RecordCall("metricsTestMethod", "ok", 20*time.Millisecond)
	after := testutil.ToFloat64(calls.WithLabelValues("metricsTestMethod", "ok"))
	if after-before != 2 {
		t.Fatalf("calls delta = %v, want 2", after-before)
	}
}

func TestRecordReplayAndFaults(t *testing.T) {
	before := testutil.ToFloat64(replays.WithLabelValues("invalid_token"))
	RecordReplay("invalid_token")
	if got := testutil.ToFloat64(replays.WithLabelValues("invalid_token")) - before; got != 1 {
		t.Fatalf("replays delta = %v, want 1", got)
	}

	faultsBefore := testutil.ToFloat64(handshakeFaults)
	RecordHandshakeFault()
	if got := testutil.ToFloat64(handshakeFaults) - faultsBefore; got != 1 {
		t.Fatalf("handshake faults delta = %v, want 1", got)
	}
}

func TestSetPending(t *testing.T) {
	SetPending(3)
	if got := testutil.ToFloat64(pending); got != 3 {
		t.Fatalf("pending = %v, want 3", got)
	}
	SetPending(0)
	if got := testutil.ToFloat64(pending); got != 0 {
		t.Fatalf("pending = %v, want 0", got)
	}
}
