package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"procwatch/internal/app"
	"procwatch/internal/daemon"
	"procwatch/internal/logging"
)

var (
	runTarget    string
	runFrequency float64
	runLifetime  float64
	runRestart   bool
)

func init() {
	rootCmd.AddCommand(cmdRun)

	cmdRun.Flags().StringVarP(&runTarget, "process", "p", "", "Pid or name pattern to watch from the start")
	cmdRun.Flags().Float64VarP(&runFrequency, "frequency", "f", 0, "Checks per minute for --process (default from config)")
	cmdRun.Flags().Float64VarP(&runLifetime, "lifetime", "t", 0, "Max lifetime in seconds for --process (default from config)")
	cmdRun.Flags().BoolVar(&runRestart, "restart", false, "Stop an already running daemon first")
}

var cmdRun = &cobra.Command{
	Use:   "run",
	Short: "Run the watchdog and its control socket in the foreground",
	Long:  `Starts the watchdog with the configured targets, serves the control socket used by the other commands and prints watchdog events until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if daemon.IsRunning() {
			if !runRestart {
				pid, _ := daemon.RunningPID()
				if pid != 0 {
					fmt.Fprintf(out, "Watchdog is already running (pid %d). Stop it or re-run with --restart.\n", pid)
				} else {
					fmt.Fprintln(out, "Watchdog is already running. Stop it or re-run with --restart.")
				}
				return nil
			}
			fmt.Fprintln(out, "Stopping existing watchdog...")
			if err := daemon.StopRunningDaemon(true); err != nil {
				return err
			}
		}

		logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		srv, err := daemon.StartDaemon(daemon.Options{Config: cfg, Logger: logger, Version: version})
		if err != nil {
			return err
		}
		if runTarget != "" {
			res, err := srv.App().Add(cmd.Context(), app.AddParams{
				Target:      runTarget,
				Frequency:   runFrequency,
				MaxLifetime: runLifetime,
				Force:       true,
			})
			if err != nil {
				_ = srv.Close()
				return err
			}
			fmt.Fprintln(out, res.Message)
		}
		fmt.Fprintf(out, "Watchdog started (pid %d), socket %s\n", os.Getpid(), daemon.SocketPath())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		printEvents(ctx, out, srv.App().Events(), logger)
		return srv.Close()
	},
}

func printEvents(ctx context.Context, out io.Writer, events <-chan app.Event, log *zap.Logger) {
	runSpin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(out))
	runSpin.Suffix = " Watching..."
	runSpin.Start()
	defer runSpin.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
			return
		case ev := <-events:
			runSpin.Stop()
			fmt.Fprintf(out, "%s %s\n", ev.At.Format(time.TimeOnly), ev.String())
			runSpin.Start()
		}
	}
}
