package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/gsclient/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	pollSeconds := flag.Int("poll", 0, "status refresh interval in seconds (optional)")
	method := flag.String("method", "", "call a single method and print its result")
	params := flag.String("params", "", "JSON object of parameters for -method")
	auth := flag.Bool("auth", false, "the -method call requires a logged-in user")
	login := flag.String("login", "", "log in as user:pass before -method")
	theme := flag.String("theme", "", "console theme (Nightfox, Kanagawa, Slate)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		Method:     *method,
		Params:     *params,
		Auth:       *auth,
		Login:      *login,
		Theme:      *theme,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "gsclient: %v\n", err)
		return 1
	}
	return 0
}
