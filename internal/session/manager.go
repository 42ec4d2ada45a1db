package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/metrics"
	"github.com/five82/gsclient/internal/token"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultTokenTTL       = 10 * time.Minute
	DefaultClient         = "htmlshark"
	DefaultClientRevision = 20130520
	DefaultSalt           = "nuggetsOfBaller"
)

// maxReplays caps transparent replays per request after credential faults.
const maxReplays = 1

// Persister stores the anonymous session id and the remembered user id so a
// later run can skip the handshake and re-authenticate.
type Persister interface {
	Persist(sessionID, userID string) error
}

// Hooks are invoked on the manager goroutine. They must not block; posting
// new requests from a hook is fine.
type Hooks struct {
	OnReady          func()
	OnLoginCompleted func(success bool)
	OnFault          func(err error)
	OnStateChange    func(State)
}

// Options configure a Manager.
type Options struct {
	Client         string
	ClientRevision int
	Salt           string

	// SessionID and UserID restore state saved by a previous run.
	SessionID string
	UserID    string

	TokenTTL    time.Duration
	WaitCeiling time.Duration
	// InstanceID is sent as the uuid header. Generated when empty.
	InstanceID string

	Persister Persister
	Hooks     Hooks
	Logger    *zerolog.Logger
	Signer    *token.Signer
}

// Status is a point-in-time copy of the manager's state, safe to read from
// any goroutine.
type Status struct {
	State          State
	History        State
	SessionID      string
	UserID         string
	Identity       string
	HasToken       bool
	TokenExpiresAt time.Time
	Pending        int
	InFlight       int
	InstanceID     string
}

// Manager runs the session state machine. All state below the mailbox is
// owned by the loop goroutine started by Start.
type Manager struct {
	transport   gsapi.Sender
	signer      *token.Signer
	log         zerolog.Logger
	hooks       Hooks
	persister   Persister
	client      string
	revision    int
	salt        string
	instanceID  string
	tokenTTL    time.Duration
	waitCeiling time.Duration

	mailbox *mailbox
	started atomic.Bool
	done    chan struct{}

	statusMu sync.RWMutex
	status   Status

	// loop-owned
	ctx           context.Context
	state         State
	history       State // last ready sub-state; StateIdle when none
	sessionID     string
	commToken     string
	tokenDeadline time.Time
	tokenTimer    *time.Timer
	timerGen      uint64
	userID        string // verified for the current session
	identity      string // remembered user id, re-authenticated on connect
	loginGen      uint64 // bumped by explicit logins and demotions; stale re-auth replies are ignored
	country       json.RawMessage
	seq           uint64
	pending       *pendingQueue
	inflight      map[uint64]*PendingRequest
	persisted     [2]string
}

// New builds a Manager on top of transport. Call Start before expecting
// any request to make progress.
func New(transport gsapi.Sender, opts Options) *Manager {
	m := &Manager{
		transport:   transport,
		signer:      opts.Signer,
		hooks:       opts.Hooks,
		persister:   opts.Persister,
		client:      opts.Client,
		revision:    opts.ClientRevision,
		salt:        opts.Salt,
		instanceID:  strings.TrimSpace(opts.InstanceID),
		tokenTTL:    opts.TokenTTL,
		waitCeiling: opts.WaitCeiling,
		mailbox:     newMailbox(),
		done:        make(chan struct{}),
		ctx:         context.Background(),
		state:       StateIdle,
		history:     StateIdle,
		sessionID:   strings.TrimSpace(opts.SessionID),
		identity:    strings.TrimSpace(opts.UserID),
		pending:     newPendingQueue(),
		inflight:    make(map[uint64]*PendingRequest),
	}
	if opts.Logger != nil {
		m.log = opts.Logger.With().Str("component", "session").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	if m.signer == nil {
		m.signer = token.NewSigner()
	}
	if m.client == "" {
		m.client = DefaultClient
	}
	if m.revision == 0 {
		m.revision = DefaultClientRevision
	}
	if m.salt == "" {
		m.salt = DefaultSalt
	}
	if m.instanceID == "" {
		m.instanceID = strings.ToUpper(uuid.New().String())
	}
	if m.tokenTTL <= 0 {
		m.tokenTTL = DefaultTokenTTL
	}
	if m.waitCeiling <= 0 {
		m.waitCeiling = DefaultWaitCeiling
	}
	m.persisted = [2]string{m.sessionID, m.identity}
	m.publish()
	return m
}

// Start launches the event loop. It returns immediately; the loop stops when
// ctx is cancelled, cancelling every outstanding reply.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	m.ctx = ctx
	go m.run(ctx)
}

// Done is closed once the loop has shut down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// StartSession begins the handshake without waiting for a request.
func (m *Manager) StartSession() {
	m.mailbox.post(startEvent{})
}

// Request submits an ordinary call. Requests that need a logged-in user are
// held until a login succeeds.
func (m *Manager) Request(method string, params gsapi.Params, authRequired bool) *Reply {
	return m.submit(&PendingRequest{
		Method:       method,
		Params:       params,
		AuthRequired: authRequired,
		Priority:     PriorityNormal,
	})
}

// Do submits a call and waits for it, bounded by the wait ceiling.
func (m *Manager) Do(method string, params gsapi.Params, authRequired bool) (json.RawMessage, error) {
	return Await(m.Request(method, params, authRequired), m.waitCeiling)
}

// Login authenticates with a username and password. The reply carries the
// raw result; LoginCompleted reports the outcome.
func (m *Manager) Login(username, password string) *Reply {
	req := &PendingRequest{
		Method: "authenticateUser",
		Params: gsapi.Params{
			{Key: "username", Value: username},
			{Key: "password", Value: password},
		},
		Priority: PriorityNormal,
	}
	req.onDone = func(result json.RawMessage, err error) {
		m.loginFinished(result, err, true)
	}
	return m.submit(req)
}

// Logout forgets the user immediately and tells the server.
func (m *Manager) Logout() *Reply {
	req := &PendingRequest{Method: "logoutUser", Priority: PriorityNormal}
	req.reply = newReply(req.Method, m.replyCancelled)
	if !m.mailbox.post(logoutEvent{req: req}) {
		req.reply.fail(ErrCancelled)
	}
	return req.reply
}

// CurrentUserID returns the user id authenticated for the current session.
func (m *Manager) CurrentUserID() string {
	return m.Status().UserID
}

// CurrentSessionID returns the anonymous session id, empty when none is held.
func (m *Manager) CurrentSessionID() string {
	return m.Status().SessionID
}

// State returns the current state machine mode.
func (m *Manager) State() State {
	return m.Status().State
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

func (m *Manager) submit(req *PendingRequest) *Reply {
	req.reply = newReply(req.Method, m.replyCancelled)
	if !m.mailbox.post(submitEvent{req: req}) {
		req.reply.fail(ErrCancelled)
	}
	return req.reply
}

func (m *Manager) replyCancelled(r *Reply) {
	m.mailbox.post(cancelEvent{reply: r})
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	m.log.Debug().Str("instance", m.instanceID).Msg("session loop started")

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-m.mailbox.ready():
			for {
				ev, ok := m.mailbox.next()
				if !ok {
					break
				}
				m.handle(ev)
			}
			m.publish()
		}
	}
}

func (m *Manager) handle(ev event) {
	if m.state.Connected() && m.tokenExpired() {
		m.teardown("token expired")
	}

	switch ev := ev.(type) {
	case submitEvent:
		m.handleSubmit(ev.req)
	case logoutEvent:
		m.handleLogout(ev.req)
	case completionEvent:
		m.handleCompletion(ev)
	case cancelEvent:
		m.handleCancel(ev.reply)
	case startEvent:
		if m.state == StateIdle {
			m.connect()
		}
	case tokenExpiredEvent:
		if ev.gen == m.timerGen && m.state.Connected() {
			m.teardown("token expired")
		}
	}
}

func (m *Manager) shutdown() {
	for _, ev := range m.mailbox.close() {
		switch ev := ev.(type) {
		case submitEvent:
			m.cancelRequest(ev.req)
		case logoutEvent:
			m.cancelRequest(ev.req)
		}
	}
	for _, req := range m.pending.takeAll() {
		m.cancelRequest(req)
	}
	for seq, req := range m.inflight {
		delete(m.inflight, seq)
		m.cancelRequest(req)
	}
	m.stopTokenTimer()
	m.commToken = ""
	m.setState(StateIdle)
	m.publish()
	m.log.Debug().Msg("session loop stopped")
}

func (m *Manager) setState(s State) {
	if s == m.state {
		return
	}
	m.log.Debug().Stringer("from", m.state).Stringer("to", s).Msg("state transition")
	m.state = s
	metrics.RecordTransition(s.String())
	if m.hooks.OnStateChange != nil {
		m.hooks.OnStateChange(s)
	}
	m.publish()
}

func (m *Manager) publish() {
	st := Status{
		State:          m.state,
		History:        m.history,
		SessionID:      m.sessionID,
		UserID:         m.userID,
		Identity:       m.identity,
		HasToken:       m.commToken != "",
		TokenExpiresAt: m.tokenDeadline,
		Pending:        m.pending.Len(),
		InFlight:       len(m.inflight),
		InstanceID:     m.instanceID,
	}
	m.statusMu.Lock()
	m.status = st
	m.statusMu.Unlock()
	metrics.SetPending(st.Pending)
}

func (m *Manager) persist() {
	if m.persister == nil {
		return
	}
	next := [2]string{m.sessionID, m.identity}
	if next == m.persisted {
		return
	}
	if err := m.persister.Persist(next[0], next[1]); err != nil {
		m.log.Warn().Err(err).Msg("persist credentials failed")
		return
	}
	m.persisted = next
}

func (m *Manager) armTokenTimer() {
	m.stopTokenTimer()
	gen := m.timerGen
	m.tokenDeadline = time.Now().Add(m.tokenTTL)
	m.tokenTimer = time.AfterFunc(m.tokenTTL, func() {
		m.mailbox.post(tokenExpiredEvent{gen: gen})
	})
}

func (m *Manager) stopTokenTimer() {
	if m.tokenTimer != nil {
		m.tokenTimer.Stop()
		m.tokenTimer = nil
	}
	m.timerGen++
	m.tokenDeadline = time.Time{}
}

func (m *Manager) tokenExpired() bool {
	return m.commToken != "" && !m.tokenDeadline.IsZero() && !time.Now().Before(m.tokenDeadline)
}
