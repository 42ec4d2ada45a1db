package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/metrics"
)

func (m *Manager) handleSubmit(req *PendingRequest) {
	if req.reply.terminal() {
		return
	}
	if req.seq == 0 {
		m.seq++
		req.seq = m.seq
	}

	switch {
	case m.state == StateIdle:
		m.pending.push(req)
		m.connect()
	case m.canDispatch(req):
		m.dispatch(req)
	default:
		m.pending.push(req)
	}
}

// handleLogout forgets the user before telling the server, so nothing queued
// behind it runs as the old user.
func (m *Manager) handleLogout(req *PendingRequest) {
	if req.reply.terminal() {
		return
	}
	m.seq++
	req.seq = m.seq
	m.demote("logout requested")

	if m.state == StateIdle && m.sessionID == "" {
		m.finish(req, json.RawMessage("null"), nil)
		return
	}
	m.handleSubmit(req)
}

func (m *Manager) handleCancel(reply *Reply) {
	if m.pending.remove(reply) {
		m.log.Debug().Str("method", reply.Method()).Msg("queued request cancelled")
		metrics.RecordCall(reply.Method(), outcomeLabel(ErrCancelled), time.Since(reply.created))
	}
}

func (m *Manager) canDispatch(req *PendingRequest) bool {
	if req.Priority == PrioritySystem {
		return true
	}
	switch m.state {
	case StateAuthenticating, StateLoggedOut:
		return !req.AuthRequired
	case StateLoggedIn:
		return true
	default:
		return false
	}
}

// system dispatches a handshake step immediately, bypassing the queue.
func (m *Manager) system(method string, params gsapi.Params, onDone func(json.RawMessage, error)) {
	req := &PendingRequest{
		Method:   method,
		Params:   params,
		Priority: PrioritySystem,
		internal: true,
		onDone:   onDone,
	}
	req.reply = newReply(method, nil)
	m.seq++
	req.seq = m.seq
	m.dispatch(req)
}

func (m *Manager) dispatch(req *PendingRequest) {
	req.attempt++
	attempt := req.attempt
	m.inflight[req.seq] = req

	env := gsapi.Envelope{
		Method:     req.Method,
		Parameters: req.Params,
		Header: gsapi.Header{
			Client:         m.client,
			ClientRevision: m.revision,
			Token:          m.signer.Sign(req.Method, m.commToken, m.salt),
			Country:        m.country,
			Session:        m.sessionID,
			Privacy:        0,
			UUID:           m.instanceID,
		},
	}
	call := m.transport.Send(m.ctx, env)
	m.log.Debug().
		Str("method", req.Method).
		Uint64("seq", req.seq).
		Int("attempt", attempt).
		Stringer("state", m.state).
		Msg("request dispatched")

	go func() {
		<-call.Done()
		body, status, err := call.Result()
		m.mailbox.post(completionEvent{req: req, attempt: attempt, body: body, status: status, err: err})
	}()
}

func (m *Manager) handleCompletion(ev completionEvent) {
	req := ev.req
	if cur, ok := m.inflight[req.seq]; !ok || cur != req || req.attempt != ev.attempt {
		m.log.Debug().Str("method", req.Method).Int("attempt", ev.attempt).Msg("stale response dropped")
		return
	}
	delete(m.inflight, req.seq)
	if req.reply.terminal() {
		m.log.Debug().Str("method", req.Method).Msg("response for cancelled request discarded")
		return
	}

	result, err := classify(ev.body, ev.status, ev.err)
	switch {
	case err == nil:
		m.finish(req, result, nil)

	case req.Priority == PrioritySystem:
		m.finish(req, nil, err)

	case errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrInvalidSession):
		if req.replays >= maxReplays {
			m.log.Warn().Err(err).Str("method", req.Method).Msg("credential fault after replay")
			m.finish(req, nil, err)
			return
		}
		req.replays++
		reason := "invalid_token"
		if errors.Is(err, ErrInvalidSession) {
			reason = "invalid_session"
		}
		metrics.RecordReplay(reason)
		if req.internal {
			req.reply.fail(ErrCancelled)
		} else {
			m.pending.requeue([]*PendingRequest{req})
		}
		m.teardown(reason)

	case errors.Is(err, ErrMustBeLoggedIn):
		m.demote("server requires login")
		m.finish(req, nil, err)

	default:
		m.log.Debug().Err(err).Str("method", req.Method).Msg("request failed")
		m.finish(req, nil, err)
	}
}

// finish runs the completion hook, then moves the reply to its terminal
// state. Callers woken by the reply observe the state the hook left behind.
func (m *Manager) finish(req *PendingRequest, result json.RawMessage, err error) {
	if req.reply.terminal() {
		return
	}
	if req.onDone != nil {
		req.onDone(result, err)
		m.publish()
	}
	var ok bool
	if err == nil {
		ok = req.reply.resolve(result)
	} else {
		ok = req.reply.fail(err)
	}
	if ok {
		metrics.RecordCall(req.Method, outcomeLabel(err), time.Since(req.reply.created))
	}
}

func (m *Manager) cancelRequest(req *PendingRequest) {
	if req.reply.fail(ErrCancelled) {
		metrics.RecordCall(req.Method, outcomeLabel(ErrCancelled), time.Since(req.reply.created))
	}
}

// flush sends every queued request the current state allows, keeping the rest
// in order.
func (m *Manager) flush() {
	m.pending.drain(func(req *PendingRequest) bool {
		if req.reply.terminal() {
			return false
		}
		if m.canDispatch(req) {
			m.dispatch(req)
			return false
		}
		return true
	})
}
