package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"procwatch/internal/app"
)

func init() {
	rootCmd.AddCommand(cmdRm)
	rootCmd.AddCommand(cmdShow)
}

const selectorHelp = `The selector is "#N" or "id:N" for an entry id, a bare number for the
watched pid, or a regular expression over entry patterns and process names.`

var cmdRm = &cobra.Command{
	Use:   "rm <selector>",
	Short: "Stop watching an entry; the process keeps running",
	Long:  "Removes one watch entry.\n\n" + selectorHelp,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := app.ParseSelector(args[0])
		if err != nil {
			return err
		}
		e, err := controller().Remove(cmd.Context(), sel)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed #%d (%s)\n", e.ID, e.Pattern)
		return nil
	},
}

var cmdShow = &cobra.Command{
	Use:   "show <selector>",
	Short: "Show one watch entry",
	Long:  "Prints the state of one watch entry.\n\n" + selectorHelp,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := app.ParseSelector(args[0])
		if err != nil {
			return err
		}
		e, err := controller().Select(cmd.Context(), sel)
		if err != nil {
			return err
		}
		return renderEntries(cmd.OutOrStdout(), []app.Entry{e})
	},
}
