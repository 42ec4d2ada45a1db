package ui

import (
	"testing"

	"github.com/five82/gsclient/internal/session"
)

func TestThemesCoverEveryState(t *testing.T) {
	states := []session.State{
		session.StateIdle, session.StateCreatingSession, session.StateRetrievingConfig,
		session.StateUpdatingToken, session.StateAuthenticating, session.StateLoggedOut,
		session.StateLoggedIn,
	}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, st := range states {
			if th.StateColors[st.String()] == "" {
				t.Fatalf("theme %s has no color for %s", name, st)
			}
		}
	}
}

func TestGetTheme_UnknownFallsBack(t *testing.T) {
	if got := GetTheme("nope").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(nope) = %q, want Nightfox", got)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Nightfox"); got != "Kanagawa" {
		t.Fatalf("NextTheme(Nightfox) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Slate"); got != "Nightfox" {
		t.Fatalf("NextTheme(Slate) = %q, want Nightfox", got)
	}
	if got := NextTheme("unknown"); got != "Nightfox" {
		t.Fatalf("NextTheme(unknown) = %q, want Nightfox", got)
	}
}
