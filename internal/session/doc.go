// Package session keeps a client session against the JSON-RPC endpoint alive
// on behalf of its callers.
//
// # Overview
//
// Every remote call needs three things the server hands out in turn: an
// anonymous session id, a short-lived communication token bound to that
// session, and (for some methods) a logged-in user. The Manager acquires them
// lazily, signs each request with the token, and recovers transparently when
// the server reports that the token or session went stale.
//
// Callers never see the handshake. They submit a call and get a *Reply back:
//
//	reply := mgr.Request("getSongs", gsapi.Params{{Key: "query", Value: q}}, false)
//	result, err := session.Await(reply, 5*time.Second)
//
// # State Machine
//
//	Idle
//	  │ first request / StartSession
//	  ▼
//	CreatingSession ──► RetrievingConfig ──► UpdatingToken      (Connecting)
//	  │ (skipped when a session id was restored)         │
//	  ▼                                                  ▼
//	Authenticating ──► LoggedOut ◄──► LoggedIn                    (Connected)
//
// Connecting states only ever dispatch handshake calls. Authenticating and
// LoggedOut dispatch calls that do not require a user. LoggedIn dispatches
// everything. The manager remembers the last ready sub-state and returns to
// it after a reconnect, re-verifying the user when one was logged in.
//
// # Concurrency Model
//
// All state is owned by a single goroutine started by Start. Public methods
// only post events into an unbounded mailbox, so they never block and may be
// called from hooks. Transport completions come back through the same
// mailbox, tagged with the attempt number they belong to; a completion for
// an attempt that a teardown superseded is dropped.
//
// # Recovery
//
//   - InvalidToken / InvalidSession on an ordinary call: the session is torn
//     down, the call goes back into the queue at its original position and is
//     replayed once after a fresh handshake. A second credential fault fails
//     the reply.
//   - MustBeLoggedIn: the user is forgotten and the manager drops to LoggedOut.
//   - An explicit Login or Logout while a remembered user is being
//     re-verified wins; the late re-verification reply is ignored.
//   - Any fault during the handshake: the manager returns to Idle and every
//     queued reply is cancelled. The next request starts over.
//   - Token expiry: a timer armed on every token acquisition triggers the same
//     teardown as a credential fault, and an expired token is also caught
//     before handling any event.
//
// # Replies
//
// A Reply reaches exactly one terminal state: resolved, failed or cancelled.
// Cancelling a queued reply keeps it from ever reaching the transport;
// cancelling one in flight only discards its response. Await bounds how long
// a caller blocks without affecting the request.
//
// # Persistence
//
// A Persister, when set, receives the session id and the remembered user id
// whenever either changes, so the next run can skip session creation and
// re-authenticate with authenticateAsAuthorizedUser.
package session
