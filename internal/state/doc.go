// Package state provides thread-safe state sharing between the session
// manager and the console UI.
//
// # Overview
//
// The poller copies the manager's Status into the Store at a fixed cadence,
// and the app records every finished call into a bounded activity ring. The
// UI reads immutable snapshots on its own schedule:
//
//	Producers:                      Consumer (UI):
//	┌──────────────────────┐       ┌────────────────┐
//	│ poller: UpdateStatus │       │                │
//	│ app:    Record       │──────→│ Snapshot()     │
//	│ hooks:  RecordError  │(mutex)│   ↓ render     │
//	└──────────────────────┘       └────────────────┘
//
// # Update Semantics
//
// RecordError keeps the last known status and activity and only records the
// error, so the UI can keep showing the most recent data while flagging the
// failure. A successful call clears LastError and resets the failure count;
// two failures in a row mark the snapshot offline.
//
// # Copying
//
// Snapshot clones the activity slice and wraps the error so callers never
// share memory with the store.
//
// The zero Store is ready to use.
package state
