package session

import (
	"encoding/json"
	"sort"

	"github.com/eapache/queue"

	"github.com/five82/gsclient/internal/gsapi"
)

// PendingRequest is the intent behind a Reply. The manager owns it until it
// is dispatched, and again whenever a fault sends it back for replay.
type PendingRequest struct {
	Method       string
	Params       gsapi.Params
	AuthRequired bool
	Priority     Priority

	seq     uint64 // arrival order, assigned by the loop
	attempt int    // bumped on every dispatch and teardown; stale completions are dropped
	replays int
	// internal requests (handshake, re-authentication) are dropped on teardown
	// instead of replayed.
	internal bool
	reply    *Reply
	onDone   func(result json.RawMessage, err error)
}

// pendingQueue is the FIFO of requests waiting for a dispatchable state.
type pendingQueue struct {
	q *queue.Queue
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{q: queue.New()}
}

func (p *pendingQueue) Len() int {
	return p.q.Length()
}

func (p *pendingQueue) push(req *PendingRequest) {
	p.q.Add(req)
}

// drain visits every queued request once in arrival order. Requests for which
// keep returns true stay queued, in their original order.
func (p *pendingQueue) drain(keep func(*PendingRequest) bool) {
	n := p.q.Length()
	for i := 0; i < n; i++ {
		req := p.q.Remove().(*PendingRequest)
		if keep(req) {
			p.q.Add(req)
		}
	}
}

// requeue merges reqs back into the queue by arrival order.
func (p *pendingQueue) requeue(reqs []*PendingRequest) {
	if len(reqs) == 0 {
		return
	}
	merged := append(p.takeAll(), reqs...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].seq < merged[j].seq })
	for _, req := range merged {
		p.q.Add(req)
	}
}

// remove drops the request owning reply and reports whether it was queued.
func (p *pendingQueue) remove(reply *Reply) bool {
	found := false
	p.drain(func(req *PendingRequest) bool {
		if req.reply == reply {
			found = true
			return false
		}
		return true
	})
	return found
}

func (p *pendingQueue) takeAll() []*PendingRequest {
	out := make([]*PendingRequest, 0, p.q.Length())
	for p.q.Length() > 0 {
		out = append(out, p.q.Remove().(*PendingRequest))
	}
	return out
}
