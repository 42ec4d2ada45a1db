package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/gsclient/internal/session"
)

// MaxActivity bounds the number of calls kept in the activity ring.
const MaxActivity = 100

// Activity is one finished call as shown in the console.
type Activity struct {
	Time     time.Time
	Method   string
	Outcome  string
	Duration time.Duration
	Result   string
	Err      string
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Status              session.Status
	HasStatus           bool
	Activity            []Activity // newest first
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // calls or handshakes that failed in a row
}

// IsOffline returns true when the endpoint has failed repeatedly.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// UpdateStatus replaces the session status.
func (s *Store) UpdateStatus(st session.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Status = st
	s.snapshot.HasStatus = true
	s.snapshot.LastUpdated = time.Now()
}

// Record adds a finished call to the activity ring. A failed call is also
// recorded as the last error.
func (s *Store) Record(a Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	s.snapshot.Activity = append([]Activity{a}, s.snapshot.Activity...)
	if len(s.snapshot.Activity) > MaxActivity {
		s.snapshot.Activity = s.snapshot.Activity[:MaxActivity]
	}
	s.snapshot.LastUpdated = a.Time
	if a.Err != "" {
		s.snapshot.LastError = fmt.Errorf("%s: %s", a.Method, a.Err)
		s.snapshot.ConsecutiveFailures++
		return
	}
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// RecordError keeps previous data but records err for visibility.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Activity = cloneActivity(s.snapshot.Activity)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneActivity(items []Activity) []Activity {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Activity, len(items))
	copy(dup, items)
	return dup
}
