package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/gsclient/internal/credstore"
	"github.com/five82/gsclient/internal/testutil/fakeserver"
)

type fixture struct {
	srv       *fakeserver.Server
	config    string
	statePath string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	srv := fakeserver.New(t)
	dir := t.TempDir()
	statePath := filepath.Join(dir, "session.toml")
	config := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf(`
endpoint = %q
salt = %q
state_path = %q
log_file = %q
request_timeout_seconds = 2
wait_ceiling_seconds = 5
`, srv.Endpoint(), fakeserver.Salt, statePath, filepath.Join(dir, "gsclient.log"))
	if err := os.WriteFile(config, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return fixture{srv: srv, config: config, statePath: statePath}
}

func (f fixture) run(t *testing.T, opts Options) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts.ConfigPath = f.config
	opts.Stdout = &out
	opts.Stderr = io.Discard
	err := Run(context.Background(), opts)
	return out.String(), err
}

func TestRun_OneShotPrintsResultAndPersistsSession(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, Options{Method: "getCountry", Params: `{"b":1,"a":2}`})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out, `"method": "getCountry"`) {
		t.Fatalf("output = %q, want the echoed method", out)
	}
	if !strings.Contains(out, `"b": 1`) {
		t.Fatalf("output = %q, want the echoed params", out)
	}

	creds, _ := credstore.Load(f.statePath)
	if creds.SessionID == "" || creds.InstanceID == "" {
		t.Fatalf("credentials = %+v, want session and instance ids", creds)
	}
}

func TestRun_SecondRunReusesSession(t *testing.T) {
	f := newFixture(t)

	if _, err := f.run(t, Options{Method: "getCountry"}); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first, _ := credstore.Load(f.statePath)
	if _, err := f.run(t, Options{Method: "getCountry"}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second, _ := credstore.Load(f.statePath)

	if got := f.srv.Count("initiateSession"); got != 1 {
		t.Fatalf("initiateSession calls = %d, want 1", got)
	}
	if second.SessionID != first.SessionID || second.InstanceID != first.InstanceID {
		t.Fatalf("credentials changed across runs: %+v -> %+v", first, second)
	}
}

func TestRun_LoginThenAuthenticatedCall(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("alice", "secret", 42)
	f.srv.RequireLogin("getFavorites")

	out, err := f.run(t, Options{Login: "alice:secret", Method: "getFavorites", Auth: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out, "getFavorites") {
		t.Fatalf("output = %q", out)
	}
	creds, _ := credstore.Load(f.statePath)
	if creds.UserID != "42" {
		t.Fatalf("UserID = %q, want 42", creds.UserID)
	}

	// The remembered user is re-verified on the next run without a password.
	if _, err := f.run(t, Options{Method: "getFavorites", Auth: true}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := f.srv.Count("authenticateAsAuthorizedUser"); got != 1 {
		t.Fatalf("authenticateAsAuthorizedUser calls = %d, want 1", got)
	}
}

func TestRun_RejectedLogin(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("alice", "secret", 42)

	_, err := f.run(t, Options{Login: "alice:wrong", Method: "getCountry"})
	if !errors.Is(err, errLoginRejected) {
		t.Fatalf("Run error = %v, want errLoginRejected", err)
	}
}

func TestRun_BadParams(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, Options{Method: "getCountry", Params: `[1,2]`})
	if err == nil || !strings.Contains(err.Error(), "parse params") {
		t.Fatalf("Run error = %v, want a params error", err)
	}
}

func TestRun_FaultIsReported(t *testing.T) {
	f := newFixture(t)
	f.srv.Handle("getBroken", func(fakeserver.Request) fakeserver.Reply {
		return fakeserver.Fault(512, "slow down")
	})

	_, err := f.run(t, Options{Method: "getBroken"})
	if err == nil || !strings.Contains(err.Error(), "getBroken") || !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("Run error = %v, want the fault", err)
	}
}
