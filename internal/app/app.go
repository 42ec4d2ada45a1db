package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/gsclient/internal/config"
	"github.com/five82/gsclient/internal/credstore"
	"github.com/five82/gsclient/internal/gsapi"
	"github.com/five82/gsclient/internal/logging"
	"github.com/five82/gsclient/internal/metrics"
	"github.com/five82/gsclient/internal/session"
	"github.com/five82/gsclient/internal/state"
	"github.com/five82/gsclient/internal/ui"
)

const shutdownGrace = 2 * time.Second

// Options configure a gsclient run.
type Options struct {
	ConfigPath string
	PollEvery  int // seconds; zero uses default

	// Method selects one-shot mode: run a single call, print the result and
	// exit. The console starts when Method is empty.
	Method string
	Params string // JSON object
	Auth   bool
	Login  string // "user:pass", performed before Method

	Theme  string
	Stdout io.Writer
	Stderr io.Writer
}

// Run boots the session manager and either the console or a one-shot call,
// and returns once that finishes or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	oneShot := strings.TrimSpace(opts.Method) != ""

	store := &state.Store{}
	logger, closeLog := openLogger(cfg, oneShot, opts.Stderr, store)
	defer closeLog()

	creds, _ := credstore.Load(cfg.StatePath)
	if creds.InstanceID == "" {
		creds.InstanceID = strings.ToUpper(uuid.New().String())
	}

	client, err := gsapi.NewClient(gsapi.Options{
		Endpoint:  cfg.Endpoint,
		HomeURL:   cfg.HomeURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	mgr := session.New(client, session.Options{
		Client:         cfg.Client,
		ClientRevision: cfg.ClientRevision,
		Salt:           cfg.Salt,
		SessionID:      creds.SessionID,
		UserID:         creds.UserID,
		TokenTTL:       cfg.TokenTTL,
		WaitCeiling:    cfg.WaitCeiling,
		InstanceID:     creds.InstanceID,
		Persister:      &credstore.Store{Path: cfg.StatePath, InstanceID: creds.InstanceID},
		Logger:         &logger,
		Hooks: session.Hooks{
			OnFault: store.RecordError,
			OnLoginCompleted: func(success bool) {
				logger.Debug().Bool("success", success).Msg("login completed")
			},
		},
	})

	runCtx, cancel := context.WithCancel(ctx)
	mgr.Start(runCtx)
	defer func() {
		cancel()
		select {
		case <-mgr.Done():
		case <-time.After(shutdownGrace):
			logger.Warn().Msg("session manager did not stop in time")
		}
	}()

	if addr := strings.TrimSpace(cfg.MetricsAddr); addr != "" {
		go func() {
			if err := metrics.Serve(runCtx, addr); err != nil {
				logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
			}
		}()
	}

	logger.Info().
		Str("endpoint", client.Endpoint()).
		Bool("restored_session", creds.SessionID != "").
		Bool("restored_user", creds.UserID != "").
		Msg("gsclient started")

	if oneShot {
		return runOnce(runCtx, mgr, opts, cfg.WaitCeiling)
	}

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}
	StartPoller(runCtx, store, mgr, interval)
	refresh(store, mgr)

	return ui.Run(ui.Options{
		Context:     runCtx,
		Controller:  mgr,
		Store:       store,
		LogPath:     cfg.LogFile,
		PollTick:    time.Second,
		WaitCeiling: cfg.WaitCeiling,
		ThemeName:   opts.Theme,
	})
}

// openLogger logs to the console for one-shot runs and to the log file
// otherwise, since the console owns the terminal.
func openLogger(cfg config.Config, oneShot bool, stderr io.Writer, store *state.Store) (zerolog.Logger, func()) {
	if oneShot {
		return logging.Console("gsclient", stderr, cfg.LogLevel), func() {}
	}
	f, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		store.RecordError(err)
		return logging.New("gsclient", io.Discard, cfg.LogLevel), func() {}
	}
	return logging.New("gsclient", f, cfg.LogLevel), func() { _ = f.Close() }
}
