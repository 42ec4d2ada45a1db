package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/gsclient/internal/logtail"
)

// renderContent renders the main pane for the current view.
func (m Model) renderContent() string {
	if m.currentView == ViewLogs {
		return m.logView.View()
	}
	styles := m.theme.Styles()
	activityHeight := m.height - 4 - m.resultView.Height - 1
	if activityHeight < 1 {
		activityHeight = 1
	}

	var b strings.Builder
	b.WriteString(m.renderActivity(activityHeight))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", max(0, m.width))))
	b.WriteString("\n")
	b.WriteString(m.resultView.View())
	return b.String()
}

// renderActivity lists the most recent calls, one per line.
func (m Model) renderActivity(height int) string {
	styles := m.theme.Styles()
	items := m.snapshot.Activity
	if len(items) == 0 {
		return padLines(styles.FaintText.Render("No calls yet. Type a command below."), height)
	}
	if len(items) > height {
		items = items[:height]
	}

	lines := make([]string, 0, len(items))
	for _, a := range items {
		outcome := styles.SuccessText.Render(fmt.Sprintf("%-14s", a.Outcome))
		if a.Err != "" {
			outcome = styles.DangerText.Render(fmt.Sprintf("%-14s", a.Outcome))
		}
		line := fmt.Sprintf("%s  %s  %s  %s",
			styles.FaintText.Render(a.Time.Format("15:04:05")),
			outcome,
			styles.Text.Render(fmt.Sprintf("%-28s", truncate(a.Method, 28))),
			styles.MutedText.Render(a.Duration.Round(time.Millisecond).String()),
		)
		if a.Err != "" {
			line += "  " + styles.DangerText.Render(truncate(a.Err, max(0, m.width-70)))
		}
		lines = append(lines, line)
	}
	return padLines(strings.Join(lines, "\n"), height)
}

// refreshLogView re-renders the parsed log entries into the logs viewport,
// keeping the view pinned to the bottom.
func (m *Model) refreshLogView() {
	if !m.ready && m.logView.Width == 0 {
		return
	}
	styles := m.theme.Styles()
	if len(m.logEntries) == 0 {
		msg := "No log entries."
		if m.logPath == "" {
			msg = "Logging to a file is disabled."
		}
		m.logView.SetContent(styles.FaintText.Render(msg))
		return
	}

	lines := make([]string, 0, len(m.logEntries))
	for _, e := range m.logEntries {
		if e.Fields == nil {
			lines = append(lines, styles.MutedText.Render(e.Raw))
			continue
		}
		ts := ""
		if !e.Time.IsZero() {
			ts = e.Time.Format("15:04:05") + " "
		}
		level := styles.LevelStyle(e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level)))
		line := styles.FaintText.Render(ts) + level + " " + styles.Text.Render(e.Message)
		if len(e.Fields) > 0 {
			line += " " + styles.MutedText.Render(formatFields(e))
		}
		lines = append(lines, line)
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
	m.logView.GotoBottom()
}

func formatFields(e logtail.Entry) string {
	keys := e.FieldKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Fields[k]
	}
	return strings.Join(parts, " ")
}

func padLines(s string, height int) string {
	n := strings.Count(s, "\n") + 1
	if n >= height {
		return s
	}
	return s + strings.Repeat("\n", height-n)
}
