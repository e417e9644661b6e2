package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"procwatch/internal/tui"
)

var tuiAttach bool

func init() {
	rootCmd.AddCommand(cmdTUI)
	cmdTUI.Flags().BoolVar(&tuiAttach, "attach", false, "Require a running watchdog instead of hosting one")
}

var cmdTUI = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := tui.Launch(tui.LaunchOptions{
			Config:  cfg,
			Version: version,
			Attach:  tuiAttach,
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("tui exited with error: %w", err)
		}
		return nil
	},
}
