package app

import (
	"context"
	"time"

	"github.com/five82/gsclient/internal/session"
	"github.com/five82/gsclient/internal/state"
)

const defaultPollInterval = 500 * time.Millisecond

// StatusSource reports the session manager's current status.
type StatusSource interface {
	Status() session.Status
}

// StartPoller launches a background goroutine that copies the manager status
// into the store at a fixed cadence. It returns immediately.
func StartPoller(ctx context.Context, store *state.Store, src StatusSource, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			refresh(store, src)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func refresh(store *state.Store, src StatusSource) {
	store.UpdateStatus(src.Status())
}
