package session

import (
	"sync"

	"github.com/eapache/queue"
)

type event interface{}

type (
	submitEvent struct{ req *PendingRequest }
	logoutEvent struct{ req *PendingRequest }
	cancelEvent struct{ reply *Reply }
	startEvent  struct{}

	completionEvent struct {
		req     *PendingRequest
		attempt int
		body    []byte
		status  int
		err     error
	}

	tokenExpiredEvent struct{ gen uint64 }
)

// mailbox feeds the manager loop. Posting never blocks, so hooks running on
// the loop may submit new requests.
type mailbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	wake   chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{q: queue.New(), wake: make(chan struct{}, 1)}
}

// post reports false once the mailbox is closed.
func (mb *mailbox) post(ev event) bool {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return false
	}
	mb.q.Add(ev)
	mb.mu.Unlock()

	select {
	case mb.wake <- struct{}{}:
	default:
	}
	return true
}

func (mb *mailbox) ready() <-chan struct{} {
	return mb.wake
}

func (mb *mailbox) next() (event, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.q.Length() == 0 {
		return nil, false
	}
	return mb.q.Remove(), true
}

// close rejects further posts and returns whatever was still queued.
func (mb *mailbox) close() []event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.closed = true
	out := make([]event, 0, mb.q.Length())
	for mb.q.Length() > 0 {
		out = append(out, mb.q.Remove())
	}
	return out
}
