package session

import "testing"

func queued(seqs ...uint64) []*PendingRequest {
	out := make([]*PendingRequest, len(seqs))
	for i, s := range seqs {
		out[i] = &PendingRequest{Method: "m", seq: s, reply: newReply("m", nil)}
	}
	return out
}

func seqsOf(p *pendingQueue) []uint64 {
	var out []uint64
	p.drain(func(req *PendingRequest) bool {
		out = append(out, req.seq)
		return true
	})
	return out
}

func equalSeqs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPendingQueue_DrainKeepsOrder(t *testing.T) {
	p := newPendingQueue()
	for _, req := range queued(1, 2, 3, 4) {
		p.push(req)
	}

	p.drain(func(req *PendingRequest) bool { return req.seq%2 == 0 })
	if got := seqsOf(p); !equalSeqs(got, []uint64{2, 4}) {
		t.Fatalf("queue = %v, want [2 4]", got)
	}
}

func TestPendingQueue_RequeueMergesByArrival(t *testing.T) {
	p := newPendingQueue()
	for _, req := range queued(2, 5) {
		p.push(req)
	}

	p.requeue(queued(4, 1))
	if got := seqsOf(p); !equalSeqs(got, []uint64{1, 2, 4, 5}) {
		t.Fatalf("queue = %v, want [1 2 4 5]", got)
	}
}

func TestPendingQueue_Remove(t *testing.T) {
	p := newPendingQueue()
	reqs := queued(1, 2, 3)
	for _, req := range reqs {
		p.push(req)
	}

	if !p.remove(reqs[1].reply) {
		t.Fatalf("remove returned false for a queued reply")
	}
	if p.remove(reqs[1].reply) {
		t.Fatalf("remove returned true twice")
	}
	if got := seqsOf(p); !equalSeqs(got, []uint64{1, 3}) {
		t.Fatalf("queue = %v, want [1 3]", got)
	}
	if all := p.takeAll(); len(all) != 2 || p.Len() != 0 {
		t.Fatalf("takeAll = %d items, Len = %d, want 2 and 0", len(all), p.Len())
	}
}

func TestMailbox_PostAfterCloseIsRejected(t *testing.T) {
	mb := newMailbox()
	if !mb.post(startEvent{}) || !mb.post(startEvent{}) {
		t.Fatalf("post on open mailbox returned false")
	}
	select {
	case <-mb.ready():
	default:
		t.Fatalf("ready not signalled after post")
	}

	if ev, ok := mb.next(); !ok || ev == nil {
		t.Fatalf("next = %v, %v, want an event", ev, ok)
	}
	left := mb.close()
	if len(left) != 1 {
		t.Fatalf("close returned %d events, want 1", len(left))
	}
	if mb.post(startEvent{}) {
		t.Fatalf("post after close returned true")
	}
}
