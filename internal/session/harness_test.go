package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/testutil/fakeserver"
	"github.com/five82/gsclient/internal/testutil/testlog"
)

const waitTimeout = 3 * time.Second

// recordingSender remembers the order in which the loop handed calls to the
// transport, which is stable where server arrival order is not.
type recordingSender struct {
	inner gsapi.Sender

	mu      sync.Mutex
	methods []string
	envs    []gsapi.Envelope
}

func (r *recordingSender) Send(ctx context.Context, env gsapi.Envelope) *gsapi.Call {
	r.mu.Lock()
	r.methods = append(r.methods, env.Method)
	r.envs = append(r.envs, env)
	r.mu.Unlock()
	return r.inner.Send(ctx, env)
}

func (r *recordingSender) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...)
}

func (r *recordingSender) Envelopes() []gsapi.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gsapi.Envelope(nil), r.envs...)
}

type memPersister struct {
	mu    sync.Mutex
	saves [][2]string
}

func (p *memPersister) Persist(sessionID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, [2]string{sessionID, userID})
	return nil
}

func (p *memPersister) Last() [2]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) == 0 {
		return [2]string{}
	}
	return p.saves[len(p.saves)-1]
}

type harness struct {
	srv       *fakeserver.Server
	sender    *recordingSender
	persister *memPersister
	m         *Manager
	events    chan string
	cancel    context.CancelFunc
}

// newHarness starts a manager against a fresh fake server. tune may adjust
// the options before the manager is built.
func newHarness(t *testing.T, tune func(*Options, *gsapi.Options)) *harness {
	t.Helper()

	srv := fakeserver.New(t)
	clientOpts := gsapi.Options{Endpoint: srv.Endpoint(), Timeout: 2 * time.Second}
	logger := testlog.New(t)
	h := &harness{
		srv:       srv,
		persister: &memPersister{},
		events:    make(chan string, 256),
	}
	opts := Options{
		Salt:      fakeserver.Salt,
		Persister: h.persister,
		Logger:    &logger,
		Hooks: Hooks{
			OnReady:          func() { h.emit("ready") },
			OnLoginCompleted: func(ok bool) { h.emit(fmt.Sprintf("login:%t", ok)) },
			OnFault:          func(error) { h.emit("fault") },
		},
	}
	if tune != nil {
		tune(&opts, &clientOpts)
	}

	client, err := gsapi.NewClient(clientOpts)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	h.sender = &recordingSender{inner: client}
	h.m = New(h.sender, opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.m.Start(ctx)
	t.Cleanup(h.stop)
	return h
}

func (h *harness) emit(ev string) {
	select {
	case h.events <- ev:
	default:
	}
}

func (h *harness) stop() {
	h.cancel()
	<-h.m.Done()
}

// waitEvent consumes hook events until want shows up.
func (h *harness) waitEvent(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case got := <-h.events:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for hook event %q", want)
		}
	}
}

func (h *harness) await(t *testing.T, r *Reply) []byte {
	t.Helper()
	result, err := Await(r, waitTimeout)
	if err != nil {
		t.Fatalf("%s returned error: %v", r.Method(), err)
	}
	return result
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func equalStrings(a, b []string) bool {
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
