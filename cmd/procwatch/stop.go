package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"procwatch/internal/remote"
)

var stopForce bool

func init() {
	rootCmd.AddCommand(cmdStop)
	cmdStop.Flags().BoolVarP(&stopForce, "force", "f", false, "Send SIGKILL if the watchdog ignores SIGTERM")
}

var cmdStop = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running watchdog",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := remote.CurrentStatus()
		if err != nil {
			return err
		}
		if !st.Running {
			fmt.Fprintln(cmd.OutOrStdout(), "Watchdog is not running")
			return nil
		}
		if err := remote.StopDaemon(stopForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Watchdog (pid %d) stopped\n", st.PID)
		return nil
	},
}
