// Package fakeserver is an in-process stand-in for the JSON-RPC endpoint. It
// tracks sessions, communication tokens and logged-in users the way the real
// service does, and lets tests inject faults and stall responses.
package fakeserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/token"
)

// Salt is the salt the server expects request signatures to use.
const Salt = "nuggetsOfBaller"

// Request is one decoded call as the server received it.
type Request struct {
	Method  string
	Params  map[string]json.RawMessage
	Header  gsapi.Header
	Session string
	UserID  int64
}

// Param decodes the named parameter into v.
func (r Request) Param(key string, v any) error {
	raw, ok := r.Params[key]
	if !ok {
		return fmt.Errorf("missing param %q", key)
	}
	return json.Unmarshal(raw, v)
}

// Reply is what a handler answers. Raw, when set, is written verbatim; Status
// defaults to 200.
type Reply struct {
	Result any
	Fault  *gsapi.Fault
	Status int
	Raw    string
}

// Fault builds a fault reply.
func Fault(code int, msg string) Reply {
	return Reply{Fault: &gsapi.Fault{Code: code, Message: msg}}
}

// Handler answers a call that passed session and token validation.
type Handler func(Request) Reply

type session struct {
	token  string
	userID int64
}

type user struct {
	password string
	id       int64
}

// Server is the fake endpoint. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	nextID       int
	sessions     map[string]*session
	users        map[string]user
	handlers     map[string]Handler
	oneShot      map[string][]Reply
	requireLogin map[string]bool
	blocks       map[string]chan struct{}
	calls        []Request
	country      json.RawMessage
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		sessions:     make(map[string]*session),
		users:        make(map[string]user),
		handlers:     make(map[string]Handler),
		oneShot:      make(map[string][]Reply),
		requireLogin: make(map[string]bool),
		blocks:       make(map[string]chan struct{}),
		country:      json.RawMessage(`{"ID":223,"CC1":0,"CC2":0,"CC3":0,"CC4":1073741824,"DMA":0,"IPR":0}`),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(func() {
		s.releaseAll()
		s.Server.Close()
	})
	return s
}

// Endpoint returns the URL a gsapi.Client should post to.
func (s *Server) Endpoint() string {
	return s.URL + "/more.php"
}

// Handle installs h for method, replacing the default echo.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// FailNext makes the next call to method answer r instead of running its
// handler. Calls queue up in order.
func (s *Server) FailNext(method string, r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oneShot[method] = append(s.oneShot[method], r)
}

// AddUser registers credentials accepted by authenticateUser.
func (s *Server) AddUser(username, password string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user{password: password, id: id}
}

// RequireLogin answers fault 8 to method unless the session has a user.
func (s *Server) RequireLogin(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireLogin[method] = true
}

// Block stalls every call to method until the returned release func runs.
func (s *Server) Block(method string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.blocks[method] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.blocks[method] == ch {
				delete(s.blocks, method)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// InvalidateTokens forgets every issued communication token.
func (s *Server) InvalidateTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.token = ""
	}
}

// InvalidateSessions forgets every session.
func (s *Server) InvalidateSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*session)
}

// AddSession registers a session id as if a previous run had created it.
func (s *Server) AddSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{}
}

// Calls returns every request received so far, in arrival order.
func (s *Server) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}

// Methods returns the method names of Calls.
func (s *Server) Methods() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// Count returns how many times method was called.
func (s *Server) Count(method string) int {
	n := 0
	for _, m := range s.Methods() {
		if m == method {
			n++
		}
	}
	return n
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	blocks := s.blocks
	s.blocks = make(map[string]chan struct{})
	s.mu.Unlock()
	for _, ch := range blocks {
		close(ch)
	}
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var body struct {
		Method     string                     `json:"method"`
		Parameters map[string]json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req := Request{Method: body.Method, Params: body.Parameters}
	if hdr, ok := body.Parameters["header"]; ok {
		_ = json.Unmarshal(hdr, &req.Header)
		delete(req.Params, "header")
	}
	req.Session = req.Header.Session
	if r.URL.RawQuery != req.Method {
		http.Error(w, "query does not name the method", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if sess := s.sessions[req.Session]; sess != nil {
		req.UserID = sess.userID
	}
	s.calls = append(s.calls, req)
	block := s.blocks[req.Method]
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}

	writeReply(w, s.answer(req))
}

func (s *Server) answer(req Request) Reply {
	s.mu.Lock()
	if queued := s.oneShot[req.Method]; len(queued) > 0 {
		s.oneShot[req.Method] = queued[1:]
		s.mu.Unlock()
		return queued[0]
	}
	s.mu.Unlock()

	switch req.Method {
	case "initiateSession":
		return s.initiateSession()
	case "getGSConfig":
		s.mu.Lock()
		defer s.mu.Unlock()
		return Reply{Result: map[string]any{"country": s.country}}
	case "getCommunicationToken":
		return s.communicationToken(req)
	}

	s.mu.Lock()
	sess := s.sessions[req.Session]
	if sess == nil {
		s.mu.Unlock()
		return Fault(gsapi.FaultInvalidSession, "invalid session")
	}
	if sess.token == "" || !token.Verify(req.Header.Token, req.Method, sess.token, Salt) {
		s.mu.Unlock()
		return Fault(gsapi.FaultInvalidToken, "invalid token")
	}
	if s.requireLogin[req.Method] && sess.userID == 0 {
		s.mu.Unlock()
		return Fault(gsapi.FaultMustBeLoggedIn, "must be logged in")
	}
	handler := s.handlers[req.Method]
	s.mu.Unlock()

	if handler != nil {
		return handler(req)
	}

	switch req.Method {
	case "authenticateUser":
		return s.authenticateUser(req, sess)
	case "authenticateAsAuthorizedUser":
		return s.authenticateAuthorized(req, sess)
	case "logoutUser":
		s.mu.Lock()
		sess.userID = 0
		s.mu.Unlock()
		return Reply{Result: true}
	}
	return Reply{Result: map[string]any{"method": req.Method, "params": req.Params}}
}

func (s *Server) initiateSession() Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("sess%04d", s.nextID)
	s.sessions[id] = &session{}
	return Reply{Result: id}
}

func (s *Server) communicationToken(req Request) Reply {
	var secret string
	if err := req.Param("secretKey", &secret); err != nil {
		return Fault(gsapi.FaultInvalidClient, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[req.Session]
	if sess == nil {
		return Fault(gsapi.FaultInvalidSession, "invalid session")
	}
	if secret != token.SecretKey(req.Session) {
		return Fault(gsapi.FaultInvalidToken, "secret key mismatch")
	}
	s.nextID++
	sess.token = fmt.Sprintf("ctok%04d", s.nextID)
	return Reply{Result: sess.token}
}

func (s *Server) authenticateUser(req Request, sess *session) Reply {
	var username, password string
	_ = req.Param("username", &username)
	_ = req.Param("password", &password)

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok || u.password != password {
		return Reply{Result: map[string]any{"userID": 0}}
	}
	sess.userID = u.id
	return Reply{Result: map[string]any{"userID": u.id, "username": username}}
}

func (s *Server) authenticateAuthorized(req Request, sess *session) Reply {
	var raw json.RawMessage
	_ = req.Param("userID", &raw)
	id, _ := strconv.ParseInt(strings.Trim(string(raw), `"`), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if id != 0 && u.id == id {
			sess.userID = id
			return Reply{Result: map[string]any{"userID": id}}
		}
	}
	return Reply{Result: map[string]any{"userID": 0}}
}

func writeReply(w http.ResponseWriter, r Reply) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	if r.Raw != "" {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, r.Raw)
		return
	}

	out := map[string]any{"header": map[string]any{"session": ""}}
	if r.Fault != nil {
		out["fault"] = r.Fault
	} else {
		out["result"] = r.Result
	}
	data, err := json.Marshal(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
