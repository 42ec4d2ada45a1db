package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/metrics"
	"github.com/five82/gsclient/internal/token"
)

// connect enters Connecting. A session id restored from a previous run skips
// session creation.
func (m *Manager) connect() {
	m.setState(StateCreatingSession)
	if m.sessionID != "" {
		m.log.Debug().Str("session", m.sessionID).Msg("reusing held session")
		m.afterSession()
		return
	}
	m.system("initiateSession", nil, func(result json.RawMessage, err error) {
		if err != nil {
			m.fault("create session", err)
			return
		}
		var sid string
		if err := json.Unmarshal(result, &sid); err != nil || strings.TrimSpace(sid) == "" {
			m.fault("create session", fmt.Errorf("%w: session id %s", ErrParse, result))
			return
		}
		m.sessionID = sid
		m.persist()
		m.log.Info().Str("session", sid).Msg("session created")
		m.afterSession()
	})
}

func (m *Manager) afterSession() {
	if len(m.country) > 0 {
		m.updateToken()
		return
	}
	m.setState(StateRetrievingConfig)
	m.system("getGSConfig", nil, func(result json.RawMessage, err error) {
		if err != nil {
			m.fault("retrieve config", err)
			return
		}
		var cfg struct {
			Country json.RawMessage `json:"country"`
		}
		if err := json.Unmarshal(result, &cfg); err != nil {
			m.fault("retrieve config", fmt.Errorf("%w: config %v", ErrParse, err))
			return
		}
		m.country = cfg.Country
		if len(m.country) == 0 || string(m.country) == "null" {
			m.country = json.RawMessage("{}")
		}
		m.updateToken()
	})
}

func (m *Manager) updateToken() {
	m.setState(StateUpdatingToken)
	params := gsapi.Params{{Key: "secretKey", Value: token.SecretKey(m.sessionID)}}
	m.system("getCommunicationToken", params, func(result json.RawMessage, err error) {
		if err != nil {
			m.fault("update token", err)
			return
		}
		var tok string
		if err := json.Unmarshal(result, &tok); err != nil || tok == "" {
			m.fault("update token", fmt.Errorf("%w: token %s", ErrParse, result))
			return
		}
		m.commToken = tok
		m.armTokenTimer()
		m.log.Debug().Time("expires", m.tokenDeadline).Msg("communication token acquired")
		m.enterConnected()
	})
}

// enterConnected resumes the remembered ready sub-state, unless the user has
// to be (re)verified for this session first.
func (m *Manager) enterConnected() {
	target := m.history
	switch {
	case target == StateIdle:
		target = StateAuthenticating
	case m.identity != "" && m.userID == "":
		target = StateAuthenticating
	case target == StateLoggedIn && m.userID == "":
		target = StateAuthenticating
	}
	if target == StateAuthenticating {
		m.authenticate()
		return
	}
	m.enterReady(target)
}

func (m *Manager) authenticate() {
	m.setState(StateAuthenticating)
	if m.identity == "" {
		m.loginFinished(nil, nil, false)
		return
	}
	req := &PendingRequest{
		Method:   "authenticateAsAuthorizedUser",
		Params:   gsapi.Params{{Key: "userID", Value: m.identity}},
		Priority: PriorityNormal,
		internal: true,
	}
	gen, identity := m.loginGen, m.identity
	req.onDone = func(result json.RawMessage, err error) {
		if gen != m.loginGen || m.state != StateAuthenticating {
			m.log.Debug().Str("user", identity).Msg("stale re-authentication ignored")
			return
		}
		m.loginFinished(result, err, false)
	}
	req.reply = newReply(req.Method, nil)
	m.handleSubmit(req)
}

func (m *Manager) enterReady(target State) {
	wasReady := m.state.Ready()
	m.setState(target)
	m.history = target
	if !wasReady && m.hooks.OnReady != nil {
		m.hooks.OnReady()
	}
	m.flush()
}

// loginFinished handles the outcome of authenticateUser (explicit) and
// authenticateAsAuthorizedUser. A nil result with nil err means there was no
// identity to authenticate.
func (m *Manager) loginFinished(result json.RawMessage, err error, explicit bool) {
	if errors.Is(err, ErrCancelled) {
		return
	}
	if explicit {
		m.loginGen++
	}
	uid := ""
	if err == nil && result != nil {
		uid = parseUserID(result)
	}

	if uid != "" {
		m.userID = uid
		m.identity = uid
		m.persist()
		m.log.Info().Str("user", uid).Bool("explicit", explicit).Msg("logged in")
		if m.state.Connected() {
			m.enterReady(StateLoggedIn)
		}
		if m.hooks.OnLoginCompleted != nil {
			m.hooks.OnLoginCompleted(true)
		}
		return
	}

	// A transport failure while re-verifying keeps the identity for the next
	// session; a definite rejection forgets it.
	if err == nil || explicit {
		m.identity = ""
	}
	m.userID = ""
	m.persist()
	if result != nil || err != nil {
		m.log.Info().Err(err).Bool("explicit", explicit).Msg("login failed")
	}
	if explicit {
		m.failParkedAuth()
	}
	if m.state.Connected() {
		m.enterReady(StateLoggedOut)
	}
	if m.hooks.OnLoginCompleted != nil {
		m.hooks.OnLoginCompleted(false)
	}
}

// demote drops to LoggedOut and forgets the user.
func (m *Manager) demote(reason string) {
	wasLoggedIn := m.state == StateLoggedIn || m.userID != "" || m.identity != ""
	m.loginGen++
	m.userID = ""
	m.identity = ""
	m.persist()
	if m.state == StateLoggedIn || m.state == StateAuthenticating {
		m.enterReady(StateLoggedOut)
	} else if m.history == StateLoggedIn {
		m.history = StateLoggedOut
	}
	if !wasLoggedIn {
		return
	}
	m.log.Info().Str("reason", reason).Msg("logged out")
	if m.hooks.OnLoginCompleted != nil {
		m.hooks.OnLoginCompleted(false)
	}
}

// failParkedAuth fails every parked request that needs a logged-in user.
func (m *Manager) failParkedAuth() {
	m.pending.drain(func(req *PendingRequest) bool {
		if !req.AuthRequired {
			return true
		}
		m.finish(req, nil, fmt.Errorf("%w: login failed", ErrMustBeLoggedIn))
		return false
	})
}

// teardown discards the session and token and parks every in-flight
// replayable request until a new session is ready.
func (m *Manager) teardown(reason string) {
	m.log.Info().Str("reason", reason).Str("session", m.sessionID).Msg("session torn down")
	m.stopTokenTimer()
	m.commToken = ""
	m.sessionID = ""
	m.userID = ""

	var replay []*PendingRequest
	for seq, req := range m.inflight {
		delete(m.inflight, seq)
		req.attempt++
		if req.reply.terminal() {
			continue
		}
		if req.internal {
			req.reply.fail(ErrCancelled)
			continue
		}
		replay = append(replay, req)
	}
	m.pending.requeue(replay)
	m.persist()
	m.setState(StateIdle)

	if m.pending.Len() > 0 {
		m.connect()
	}
}

// fault handles a failed handshake step: back to Idle, and everything parked
// is cancelled.
func (m *Manager) fault(step string, err error) {
	m.log.Error().Err(err).Str("step", step).Msg("handshake failed")
	metrics.RecordHandshakeFault()
	m.stopTokenTimer()
	m.commToken = ""
	if errors.Is(err, ErrInvalidSession) || errors.Is(err, ErrInvalidToken) {
		m.sessionID = ""
		m.userID = ""
		m.persist()
	}
	for _, req := range m.pending.takeAll() {
		m.cancelRequest(req)
	}
	m.setState(StateIdle)
	if m.hooks.OnFault != nil {
		m.hooks.OnFault(fmt.Errorf("%s: %w", step, err))
	}
}

// parseUserID accepts {"userID": 42} or {"userID": "42"}; zero means rejected.
func parseUserID(result json.RawMessage) string {
	var body struct {
		UserID json.RawMessage `json:"userID"`
	}
	if err := json.Unmarshal(result, &body); err != nil || len(body.UserID) == 0 {
		return ""
	}
	raw := strings.Trim(string(body.UserID), `"`)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
