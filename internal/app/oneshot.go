package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/session"
)

var errLoginRejected = errors.New("login rejected")

// runOnce performs the optional login and a single call, printing the
// indented result.
func runOnce(ctx context.Context, mgr *session.Manager, opts Options, ceiling time.Duration) error {
	params, err := gsapi.ParseParams([]byte(opts.Params))
	if err != nil {
		return err
	}

	if opts.Login != "" {
		user, pass, ok := strings.Cut(opts.Login, ":")
		if !ok || user == "" {
			return fmt.Errorf("login: want user:pass")
		}
		if _, err := wait(ctx, mgr.Login(user, pass), ceiling); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if mgr.CurrentUserID() == "" {
			return errLoginRejected
		}
	}

	method := strings.TrimSpace(opts.Method)
	result, err := wait(ctx, mgr.Request(method, params, opts.Auth), ceiling)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, result, "", "  "); err != nil {
		out.Reset()
		out.Write(result)
	}
	out.WriteByte('\n')
	_, err = opts.Stdout.Write(out.Bytes())
	return err
}

// wait bounds the reply by ceiling and cancels it when ctx ends first.
func wait(ctx context.Context, reply *session.Reply, ceiling time.Duration) (json.RawMessage, error) {
	stop := context.AfterFunc(ctx, reply.Cancel)
	defer stop()
	return session.Await(reply, ceiling)
}
