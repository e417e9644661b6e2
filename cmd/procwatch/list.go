package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"procwatch/internal/app"
)

func init() {
	rootCmd.AddCommand(cmdList)
	rootCmd.AddCommand(cmdPs)
}

var cmdList = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List watch entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := controller().List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No watch entries")
			return nil
		}
		return renderEntries(out, entries)
	},
}

var cmdPs = &cobra.Command{
	Use:   "ps [pattern]",
	Short: "List running processes, optionally filtered by a name pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		procs, err := controller().Processes(cmd.Context(), pattern)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(procs) == 0 {
			fmt.Fprintln(out, "No matching processes")
			return nil
		}
		return renderProcesses(out, procs)
	},
}

func renderEntries(w io.Writer, entries []app.Entry) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Pattern", "PID", "Name", "Age", "Limit", "Left", "Every")
	for _, e := range entries {
		pid, name, age, left := "-", "-", "-", "-"
		if e.Process != nil {
			pid = strconv.Itoa(e.Process.PID)
			name = e.Process.Name
			age = app.FormatLifetime(e.Age)
			left = app.FormatLifetime(e.Remaining())
		}
		if err := table.Append(
			fmt.Sprintf("#%d", e.ID),
			e.Pattern,
			pid,
			name,
			age,
			app.FormatLifetime(seconds(e.MaxLifetime)),
			left,
			e.Interval.Round(time.Millisecond).String(),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderProcesses(w io.Writer, procs []app.Process) error {
	table := tablewriter.NewWriter(w)
	table.Header("PID", "Name", "Started", "Watched by", "Command")
	for _, p := range procs {
		watched := "-"
		if p.WatchedBy > 0 {
			watched = fmt.Sprintf("#%d", p.WatchedBy)
		}
		started := "-"
		if !p.StartTime.IsZero() {
			started = p.StartTime.Local().Format(time.DateTime)
		}
		if err := table.Append(strconv.Itoa(p.PID), p.Name, started, watched, p.Cmdline); err != nil {
			return err
		}
	}
	return table.Render()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
