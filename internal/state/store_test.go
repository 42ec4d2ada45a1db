package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/gsclient/internal/session"
)

func TestStore_UpdateStatusAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.UpdateStatus(session.Status{State: session.StateLoggedIn, UserID: "42", Pending: 3})
	s.Record(Activity{Method: "getSongs", Outcome: "ok"})

	snap := s.Snapshot()
	if !snap.HasStatus || snap.Status.UserID != "42" || snap.Status.State != session.StateLoggedIn {
		t.Fatalf("snapshot status = %#v, want logged in as 42", snap.Status)
	}
	if len(snap.Activity) != 1 || snap.Activity[0].Method != "getSongs" {
		t.Fatalf("snapshot activity = %#v, want 1 item", snap.Activity)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Activity[0].Method = "mutated"
	if got := s.Snapshot().Activity[0].Method; got != "getSongs" {
		t.Fatalf("Snapshot should clone activity; got %q want getSongs", got)
	}
}

func TestStore_ActivityIsNewestFirstAndBounded(t *testing.T) {
	var s Store
	for i := 0; i < MaxActivity+10; i++ {
		s.Record(Activity{Method: "m", Duration: time.Duration(i)})
	}

	snap := s.Snapshot()
	if len(snap.Activity) != MaxActivity {
		t.Fatalf("activity len = %d, want %d", len(snap.Activity), MaxActivity)
	}
	if got := snap.Activity[0].Duration; got != time.Duration(MaxActivity+9) {
		t.Fatalf("newest duration = %v, want %v", got, time.Duration(MaxActivity+9))
	}
}

func TestStore_RecordErrorKeepsPreviousData(t *testing.T) {
	var s Store
	s.UpdateStatus(session.Status{State: session.StateLoggedOut, SessionID: "abc"})

	origErr := errors.New("boom")
	s.RecordError(origErr)

	snap := s.Snapshot()
	if snap.Status.SessionID != "abc" {
		t.Fatalf("status changed on error: got %#v", snap.Status)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.Record(Activity{Method: "a", Err: "timeout"})
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.RecordError(errors.New("handshake failed"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Record(Activity{Method: "b", Outcome: "ok"})
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() || snap.LastError != nil {
		t.Fatalf("after success: failures=%d offline=%v err=%v", snap.ConsecutiveFailures, snap.IsOffline(), snap.LastError)
	}
}
