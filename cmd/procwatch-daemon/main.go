package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"procwatch/internal/config"
	"procwatch/internal/daemon"
	"procwatch/internal/logging"
)

var version = "dev"

type flagOptions struct {
	Config   string `short:"c" long:"config" description:"Path to YAML config file"`
	LogLevel string `long:"log-level" description:"Log level (debug, info, warn, error)"`
	Force    bool   `long:"force" description:"Stop an existing daemon before starting"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	daemon.UseSocket(cfg.SocketPath)

	if daemon.IsRunning() {
		if !opts.Force {
			pid, err := daemon.RunningPID()
			if err != nil {
				log.Fatal("daemon appears running but pid check failed", zap.Error(err))
			}
			log.Info("daemon is already running; use --force to restart", zap.Int("pid", pid))
			return
		}
		log.Info("stopping existing daemon")
		if err := daemon.StopRunningDaemon(true); err != nil {
			log.Fatal("failed to stop running daemon", zap.Error(err))
		}
	}

	srv, err := daemon.StartDaemon(daemon.Options{Config: cfg, Logger: log, Version: version})
	if err != nil {
		log.Fatal("failed to start daemon", zap.Error(err))
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Info("stopping daemon", zap.String("signal", sig.String()))
	if err := srv.Close(); err != nil {
		log.Fatal("error shutting down daemon", zap.Error(err))
	}
}
