package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"

	"procwatch/internal/config"
	"procwatch/internal/daemon"
	"procwatch/internal/tui"
)

var version = "dev"

type flagOptions struct {
	Config  string `short:"c" long:"config" description:"Path to YAML config file"`
	Attach  bool   `long:"attach" description:"Require a running daemon instead of hosting the watchdog"`
	Timeout int    `long:"timeout" default:"3" description:"Timeout in seconds for daemon calls"`
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
	daemon.UseSocket(cfg.SocketPath)

	err = tui.Launch(tui.LaunchOptions{
		Config:  cfg,
		Version: version,
		Attach:  opts.Attach,
		Timeout: time.Duration(opts.Timeout) * time.Second,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tui exited with error: %v\n", err)
		os.Exit(1)
	}
}
