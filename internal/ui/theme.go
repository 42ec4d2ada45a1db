package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the console palette.
type Theme struct {
	Name string

	Background string
	Surface    string
	SurfaceAlt string
	Border     string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StateColors are keyed by session.State.String().
	StateColors map[string]string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style
	Pane   lipgloss.Style

	stateColors map[string]string
	background  string
	muted       string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: fg(t.Warning).Bold(true),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)),

		stateColors: t.StateColors,
		background:  t.Background,
		muted:       t.Muted,
	}
}

// StateStyle returns the chip style for a session state name.
func (s Styles) StateStyle(state string) lipgloss.Style {
	color := s.stateColors[strings.TrimSpace(state)]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// LevelStyle colors a zerolog level name.
func (s Styles) LevelStyle(level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		return s.DangerText
	case "warn":
		return s.WarningText
	case "info":
		return s.SuccessText
	case "debug", "trace":
		return s.InfoText
	default:
		return s.MutedText
	}
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func stateColors(idle, connecting, auth, loggedOut, loggedIn string) map[string]string {
	return map[string]string{
		"idle":              idle,
		"creating_session":  connecting,
		"retrieving_config": connecting,
		"updating_token":    connecting,
		"authenticating":    auth,
		"logged_out":        loggedOut,
		"logged_in":         loggedIn,
	}
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name:       "Nightfox",
		Background: "#131a24",
		Surface:    "#192330",
		SurfaceAlt: "#212e3f",
		Border:     "#39506d",
		Text:       "#cdcecf",
		Muted:      "#738091",
		Faint:      "#71839b",
		Accent:     "#719cd6",
		Success:    "#81b29a",
		Warning:    "#dbc074",
		Danger:     "#c94f6d",
		Info:       "#63cdcf",
		StateColors: stateColors(
			"#738091", // comment
			"#63cdcf", // cyan
			"#9d79d6", // magenta
			"#dbc074", // yellow
			"#81b29a", // green
		),
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name:       "Kanagawa",
		Background: "#16161D",
		Surface:    "#1F1F28",
		SurfaceAlt: "#2A2A37",
		Border:     "#54546D",
		Text:       "#DCD7BA",
		Muted:      "#C8C093",
		Faint:      "#727169",
		Accent:     "#7E9CD8",
		Success:    "#98BB6C",
		Warning:    "#E6C384",
		Danger:     "#E46876",
		Info:       "#7FB4CA",
		StateColors: stateColors(
			"#727169", // fujiGray
			"#7FB4CA", // springBlue
			"#957FB8", // oniViolet
			"#E6C384", // carpYellow
			"#98BB6C", // springGreen
		),
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name:       "Slate",
		Background: "#020617",
		Surface:    "#0f172a",
		SurfaceAlt: "#1e293b",
		Border:     "#334155",
		Text:       "#f1f5f9",
		Muted:      "#94a3b8",
		Faint:      "#64748b",
		Accent:     "#38bdf8",
		Success:    "#22c55e",
		Warning:    "#f59e0b",
		Danger:     "#ef4444",
		Info:       "#06b6d4",
		StateColors: stateColors(
			"#64748b", // slate-500
			"#38bdf8", // sky-400
			"#06b6d4", // cyan-500
			"#f59e0b", // amber-500
			"#16a34a", // green-600
		),
	}
}
