package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"procwatch/internal/app"
)

var (
	addFrequency float64
	addLifetime  float64
	addForce     bool
)

func init() {
	rootCmd.AddCommand(cmdAdd)

	cmdAdd.Flags().Float64VarP(&addFrequency, "frequency", "f", 0, "Checks per minute (default from config)")
	cmdAdd.Flags().Float64VarP(&addLifetime, "lifetime", "t", 0, "Max lifetime in seconds (default from config)")
	cmdAdd.Flags().BoolVar(&addForce, "force", false, "Watch the pattern even if it matches zero or several processes")
}

var cmdAdd = &cobra.Command{
	Use:   "add <pid|pattern>",
	Short: "Watch a process by pid or name pattern",
	Long: `Registers a watch target with the running watchdog. A numeric target is a pid;
anything else is a regular expression over process names that must match
exactly one process unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := controller().Add(cmd.Context(), app.AddParams{
			Target:      args[0],
			Frequency:   addFrequency,
			MaxLifetime: addLifetime,
			Force:       addForce,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Message)
		if !res.Added && len(res.Matches) > 0 {
			return renderProcesses(out, res.Matches)
		}
		return nil
	},
}
