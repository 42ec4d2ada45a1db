package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultWaitCeiling bounds Await when no ceiling is given.
const DefaultWaitCeiling = 10 * time.Second

// ReplyState is the lifecycle position of a Reply.
type ReplyState int

const (
	ReplyUnresolved ReplyState = iota
	ReplyResolved
	ReplyFailed
	ReplyCancelled
)

func (s ReplyState) String() string {
	switch s {
	case ReplyResolved:
		return "resolved"
	case ReplyFailed:
		return "failed"
	case ReplyCancelled:
		return "cancelled"
	default:
		return "unresolved"
	}
}

var errUnresolved = errors.New("session: reply not resolved")

// Reply is the caller's handle on one logical request. It reaches exactly one
// terminal state; replays after credential faults are invisible to it.
type Reply struct {
	method   string
	created  time.Time
	onCancel func(*Reply)

	mu     sync.Mutex
	state  ReplyState
	result json.RawMessage
	err    error
	done   chan struct{}
}

func newReply(method string, onCancel func(*Reply)) *Reply {
	return &Reply{
		method:   method,
		created:  time.Now(),
		onCancel: onCancel,
		done:     make(chan struct{}),
	}
}

// Method returns the remote method this reply belongs to.
func (r *Reply) Method() string {
	return r.method
}

// Done is closed on the terminal transition.
func (r *Reply) Done() <-chan struct{} {
	return r.done
}

// State returns the reply's current state.
func (r *Reply) State() ReplyState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the "result" payload of a resolved reply, or nil.
func (r *Reply) Result() json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Err returns the terminal error, nil while unresolved or after success.
func (r *Reply) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Decode unmarshals the result payload into v.
func (r *Reply) Decode(v any) error {
	r.mu.Lock()
	state, result, err := r.state, r.result, r.err
	r.mu.Unlock()

	switch state {
	case ReplyUnresolved:
		return errUnresolved
	case ReplyResolved:
		if err := json.Unmarshal(result, v); err != nil {
			return fmt.Errorf("%w: decode %s result: %v", ErrParse, r.method, err)
		}
		return nil
	default:
		return err
	}
}

// Wait blocks until the reply resolves or ctx ends.
func (r *Reply) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel moves an unresolved reply to Cancelled. It is a no-op on a terminal
// reply. A request already sent is not aborted; its response is discarded.
func (r *Reply) Cancel() {
	if !r.finish(ReplyCancelled, nil, ErrCancelled) {
		return
	}
	if r.onCancel != nil {
		r.onCancel(r)
	}
}

func (r *Reply) terminal() bool {
	return r.State() != ReplyUnresolved
}

func (r *Reply) resolve(result json.RawMessage) bool {
	return r.finish(ReplyResolved, result, nil)
}

func (r *Reply) fail(err error) bool {
	if errors.Is(err, ErrCancelled) {
		return r.finish(ReplyCancelled, nil, err)
	}
	return r.finish(ReplyFailed, nil, err)
}

func (r *Reply) finish(state ReplyState, result json.RawMessage, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != ReplyUnresolved {
		return false
	}
	r.state = state
	r.result = result
	r.err = err
	close(r.done)
	return true
}

// Await blocks for at most ceiling waiting on r. On timeout it returns
// ErrWaitTimeout and leaves r untouched.
func Await(r *Reply, ceiling time.Duration) (json.RawMessage, error) {
	if ceiling <= 0 {
		ceiling = DefaultWaitCeiling
	}
	timer := time.NewTimer(ceiling)
	defer timer.Stop()

	select {
	case <-r.Done():
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.result, r.err
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrWaitTimeout, r.method, ceiling)
	}
}
