package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	sep := "  "

	if !m.snapshot.HasStatus {
		return styles.Header.Width(m.width).Render(
			styles.Logo.Render("gsclient") + sep +
				styles.WarningText.Render("Waiting for session manager..."))
	}

	st := m.snapshot.Status
	parts := []string{
		styles.Logo.Render("gsclient"),
		styles.StateStyle(st.State.String()).Render(st.State.String()),
	}

	if st.SessionID != "" {
		parts = append(parts, styles.FaintText.Render("session ")+styles.Text.Render(truncateMiddle(st.SessionID, 16)))
	}
	switch {
	case st.UserID != "":
		parts = append(parts, styles.FaintText.Render("user ")+styles.SuccessText.Render(st.UserID))
	case st.Identity != "":
		parts = append(parts, styles.FaintText.Render("user ")+styles.WarningText.Render(st.Identity+"?"))
	}
	if st.HasToken && !st.TokenExpiresAt.IsZero() {
		parts = append(parts, styles.FaintText.Render("token ")+styles.MutedText.Render(formatRemaining(time.Until(st.TokenExpiresAt))))
	}
	if st.Pending > 0 || st.InFlight > 0 {
		parts = append(parts, styles.InfoText.Render(fmt.Sprintf("%d queued · %d in flight", st.Pending, st.InFlight)))
	}
	if m.snapshot.IsOffline() {
		parts = append(parts, styles.DangerText.Render("OFFLINE"))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// renderFooter shows the last status line and the key hints.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()

	status := m.status
	statusStyle := styles.MutedText
	if !m.statusOK {
		statusStyle = styles.DangerText
	}
	if status == "" && m.snapshot.LastError != nil {
		status = m.snapshot.LastError.Error()
		statusStyle = styles.DangerText
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, styles.AccentText.Render(h.Key)+" "+styles.FaintText.Render(h.Desc))
	}
	right := strings.Join(hints, "  ")
	left := statusStyle.Render(truncate(status, max(0, m.width-lipgloss.Width(right)-2)))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return styles.Footer.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// formatRemaining renders a countdown as "4m05s", or "expired".
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	d = d.Round(time.Second)
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func truncateMiddle(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width < 3 {
		return string(r[:width])
	}
	left := (width - 1) / 2
	right := width - 1 - left
	return string(r[:left]) + "…" + string(r[len(r)-right:])
}
