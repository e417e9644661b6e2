package tui

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"procwatch/internal/config"
	"procwatch/internal/daemon"
	"procwatch/internal/logging"
	"procwatch/internal/remote"
)

// LaunchOptions selects where the TUI gets its state from.
type LaunchOptions struct {
	Config  config.Config
	Version string
	// Attach requires a running daemon instead of hosting one.
	Attach  bool
	Timeout time.Duration
}

// Launch runs the TUI against the running daemon, or hosts the watchdog in
// this process when none is running and Attach is false. A hosted watchdog
// also serves the control socket until the TUI exits.
func Launch(opts LaunchOptions) error {
	if opts.Attach || daemon.IsRunning() {
		if !daemon.IsRunning() {
			return remote.ErrNotRunning
		}
		client := remote.New(opts.Timeout)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		// Without the event stream the panel still shows command results.
		events, _ := client.Events(ctx)
		return Run(Options{
			Controller: client,
			Events:     events,
			Refresh:    time.Second,
			Title:      fmt.Sprintf("procwatch (attached to %s)", daemon.SocketPath()),
		})
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	log := zap.NewNop()
	if opts.Config.LogFile != "" {
		l, err := logging.New(opts.Config.LogLevel, opts.Config.LogFile)
		if err != nil {
			return err
		}
		log = l
		defer func() { _ = log.Sync() }()
	}

	srv, err := daemon.StartDaemon(daemon.Options{Config: opts.Config, Logger: log, Version: opts.Version})
	if err != nil {
		return err
	}
	runErr := Run(Options{
		Controller: srv.App(),
		Events:     srv.App().Events(),
		Refresh:    time.Second,
	})
	if err := srv.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
