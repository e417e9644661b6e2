package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdPing)
}

// `procwatch ping` checks that the watchdog answers on its socket and
// prints a one-line status.
var cmdPing = &cobra.Command{
	Use:   "ping",
	Short: "Check that the watchdog answers on its control socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := controller().Ping(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pong: procwatch %s pid %d, %d entries, up %s\n",
			st.Version, st.PID, st.Entries, time.Since(st.StartedAt).Round(time.Second))
		return nil
	},
}
