package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/logtail"
	"github.com/five82/gsclient/internal/session"
	"github.com/five82/gsclient/internal/state"
)

// View represents the current main pane.
type View int

const (
	ViewActivity View = iota
	ViewLogs
)

const logFetchLimit = 400

// Controller is the slice of the session manager the console drives.
type Controller interface {
	Request(method string, params gsapi.Params, authRequired bool) *session.Reply
	Login(username, password string) *session.Reply
	Logout() *session.Reply
	StartSession()
}

// Options configures the UI.
type Options struct {
	Context     context.Context
	Controller  Controller
	Store       *state.Store
	LogPath     string
	PollTick    time.Duration
	WaitCeiling time.Duration
	ThemeName   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx         context.Context
	ctrl        Controller
	store       *state.Store
	logPath     string
	pollTick    time.Duration
	waitCeiling time.Duration

	theme       Theme
	keys        keyMap
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	input      textinput.Model
	resultView viewport.Model
	logView    viewport.Model
	logEntries []logtail.Entry

	status   string
	statusOK bool
	inflight int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}
	ceiling := opts.WaitCeiling
	if ceiling <= 0 {
		ceiling = session.DefaultWaitCeiling
	}

	in := textinput.New()
	in.Prompt = "› "
	in.Placeholder = `call getCountry {}   (help for commands)`
	in.CharLimit = 4096
	in.Focus()

	return Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		store:       opts.Store,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		waitCeiling: ceiling,
		theme:       GetTheme(opts.ThemeName),
		keys:        DefaultKeyMap(),
		currentView: ViewActivity,
		input:       in,
		statusOK:    true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		return m, nil

	case replyMsg:
		return m.handleReply(msg), nil

	case logsMsg:
		m.logEntries = msg.entries
		m.refreshLogView()
		return m, nil

	case logErrorMsg:
		m.setStatus(false, "read log: %v", msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, nil
	case key.Matches(msg, m.keys.SwitchView):
		if m.currentView == ViewActivity {
			m.currentView = ViewLogs
			return m, m.refreshLogs()
		}
		m.currentView = ViewActivity
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.input.SetValue("")
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.activeViewport().ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.activeViewport().ViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Run):
		line := m.input.Value()
		m.input.SetValue("")
		return m.runLine(line)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) runLine(line string) (tea.Model, tea.Cmd) {
	c, err := parseCommand(line)
	if err != nil {
		if err != errEmptyCommand {
			m.setStatus(false, "%v", err)
		}
		return m, nil
	}

	switch c.kind {
	case cmdQuit:
		return m, tea.Quit
	case cmdHelp:
		m.showHelp = true
		return m, nil
	case cmdLogs:
		m.currentView = ViewLogs
		return m, m.refreshLogs()
	}
	if m.ctrl == nil {
		m.setStatus(false, "no session manager")
		return m, nil
	}

	var reply *session.Reply
	switch c.kind {
	case cmdCall:
		reply = m.ctrl.Request(c.method, c.params, false)
	case cmdAuth:
		reply = m.ctrl.Request(c.method, c.params, true)
	case cmdLogin:
		reply = m.ctrl.Login(c.username, c.password)
	case cmdLogout:
		reply = m.ctrl.Logout()
	case cmdConnect:
		m.ctrl.StartSession()
		m.setStatus(true, "connecting")
		return m, nil
	}

	m.inflight++
	m.setStatus(true, "%s sent", reply.Method())
	m.currentView = ViewActivity
	return m, awaitCmd(reply, m.waitCeiling)
}

func (m Model) handleReply(msg replyMsg) Model {
	if m.inflight > 0 {
		m.inflight--
	}
	activity := state.Activity{
		Method:   msg.method,
		Outcome:  outcomeOf(msg.err),
		Duration: msg.duration,
	}
	if msg.err != nil {
		activity.Err = msg.err.Error()
		m.setStatus(false, "%s: %v", msg.method, msg.err)
	} else {
		activity.Result = string(msg.result)
		m.setStatus(true, "%s ok in %s", msg.method, msg.duration.Round(time.Millisecond))
		m.resultView.SetContent(prettyJSON(msg.result))
		m.resultView.GotoTop()
	}
	if m.store != nil {
		m.store.Record(activity)
		m.snapshot = m.store.Snapshot()
	}
	return m
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) setStatus(ok bool, format string, args ...any) {
	m.statusOK = ok
	m.status = fmt.Sprintf(format, args...)
}

func (m *Model) activeViewport() *viewport.Model {
	if m.currentView == ViewLogs {
		return &m.logView
	}
	return &m.resultView
}

// layout sizes the panes: header and input/footer take four lines; the rest
// is split between the activity list and the result pane.
func (m *Model) layout() {
	body := m.height - 4
	if body < 4 {
		body = 4
	}
	resultHeight := body / 2
	if !m.ready {
		m.resultView = viewport.New(m.width, resultHeight)
		m.logView = viewport.New(m.width, body)
	} else {
		m.resultView.Width, m.resultView.Height = m.width, resultHeight
		m.logView.Width, m.logView.Height = m.width, body
	}
	m.input.Width = m.width - 4
	m.refreshLogView()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type logsMsg struct{ entries []logtail.Entry }

type logErrorMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) refreshLogs() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	path := m.logPath
	return func() tea.Msg {
		entries, err := logtail.ReadEntries(path, logFetchLimit)
		if err != nil {
			return logErrorMsg{err: err}
		}
		return logsMsg{entries: entries}
	}
}

// Run starts the Bubble Tea program and stops it when ctx ends.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
