package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/session"
)

type commandKind int

const (
	cmdCall commandKind = iota
	cmdAuth
	cmdLogin
	cmdLogout
	cmdConnect
	cmdLogs
	cmdHelp
	cmdQuit
)

type command struct {
	kind     commandKind
	method   string
	params   gsapi.Params
	username string
	password string
}

var errEmptyCommand = errors.New("empty command")

// parseCommand reads one console line:
//
//	call <method> [json]
//	auth <method> [json]
//	login <user> <pass>
//	logout | connect | logs | help | quit
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, errEmptyCommand
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "call", "auth":
		method, raw, _ := strings.Cut(rest, " ")
		if method == "" {
			return command{}, fmt.Errorf("usage: %s <method> [json]", verb)
		}
		params, err := gsapi.ParseParams([]byte(raw))
		if err != nil {
			return command{}, err
		}
		kind := cmdCall
		if strings.EqualFold(verb, "auth") {
			kind = cmdAuth
		}
		return command{kind: kind, method: method, params: params}, nil
	case "login":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: login <user> <pass>")
		}
		return command{kind: cmdLogin, username: fields[0], password: fields[1]}, nil
	case "logout":
		return command{kind: cmdLogout}, nil
	case "connect":
		return command{kind: cmdConnect}, nil
	case "logs":
		return command{kind: cmdLogs}, nil
	case "help", "?":
		return command{kind: cmdHelp}, nil
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", verb)
}

// replyMsg carries a finished call back to the model.
type replyMsg struct {
	method   string
	result   json.RawMessage
	err      error
	duration time.Duration
}

func awaitCmd(reply *session.Reply, ceiling time.Duration) tea.Cmd {
	started := time.Now()
	return func() tea.Msg {
		result, err := session.Await(reply, ceiling)
		return replyMsg{
			method:   reply.Method(),
			result:   result,
			err:      err,
			duration: time.Since(started),
		}
	}
}

// prettyJSON indents raw for the result pane, falling back to the raw text.
func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// outcomeOf names err the way the activity list shows it.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, session.ErrWaitTimeout):
		return "waiting"
	case errors.Is(err, session.ErrCancelled):
		return "cancelled"
	case errors.Is(err, session.ErrTransportTimeout):
		return "timeout"
	case errors.Is(err, session.ErrMustBeLoggedIn):
		return "login required"
	default:
		var fe *session.FaultError
		if errors.As(err, &fe) {
			return fmt.Sprintf("fault %d", fe.Code)
		}
		return "error"
	}
}
