package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []helpSection{
		{
			title: "Commands",
			items: []helpItem{
				{"call <m> [json]", "Call a method"},
				{"auth <m> [json]", "Call as logged-in user"},
				{"login <u> <p>", "Log in"},
				{"logout", "Log out"},
				{"connect", "Start a session now"},
				{"logs", "Show the log file"},
				{"quit", "Exit"},
			},
		},
	}
	var keys []helpItem
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			keys = append(keys, helpItem{h.Key, h.Desc})
		}
	}
	sections = append(sections, helpSection{title: "Keys", items: keys})

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("gsclient console"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")

	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			keyStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color(m.theme.Warning)).
				Width(18)
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("Params are a JSON object; key order is kept."))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(50)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
