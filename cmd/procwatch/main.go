package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"procwatch/internal/app"
	"procwatch/internal/config"
	"procwatch/internal/daemon"
	"procwatch/internal/remote"
)

var version = "dev"

var (
	configPath     string
	logLevelFlag   string
	timeoutSeconds int

	cfg = config.Default()
)

// controllerAPI is what the client commands need from the daemon.
type controllerAPI interface {
	app.Controller
	Ping(ctx context.Context) (remote.Status, error)
}

var controllerFactory = func() controllerAPI {
	return remote.New(time.Duration(timeoutSeconds) * time.Second)
}

func controller() controllerAPI {
	return controllerFactory()
}

var rootCmd = &cobra.Command{
	Use:           "procwatch [command]",
	Short:         "procwatch: process lifetime watchdog",
	Long:          `procwatch watches processes by pid or name pattern and terminates any that run longer than their configured lifetime.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevelFlag != "" {
			loaded.LogLevel = logLevelFlag
		}
		cfg = loaded
		daemon.UseSocket(cfg.SocketPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 3, "Timeout in seconds for contacting the daemon")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
