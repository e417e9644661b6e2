package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"procwatch/internal/app"
)

var (
	setFrequency float64
	setLifetime  float64
)

func init() {
	rootCmd.AddCommand(cmdSet)

	cmdSet.Flags().Float64VarP(&setFrequency, "frequency", "f", 0, "New checks per minute")
	cmdSet.Flags().Float64VarP(&setLifetime, "lifetime", "t", 0, "New max lifetime in seconds")
}

var cmdSet = &cobra.Command{
	Use:   "set <selector> [--frequency N] [--lifetime S]",
	Short: "Change the check frequency or max lifetime of an entry",
	Long:  "Updates one watch entry; the new frequency takes effect immediately.\n\n" + selectorHelp,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := app.ParseSelector(args[0])
		if err != nil {
			return err
		}
		params := app.ConfigureParams{Selector: sel}
		if cmd.Flags().Changed("frequency") {
			params.Frequency = &setFrequency
		}
		if cmd.Flags().Changed("lifetime") {
			params.MaxLifetime = &setLifetime
		}
		if params.Frequency == nil && params.MaxLifetime == nil {
			return errors.New("provide --frequency and/or --lifetime")
		}
		e, err := controller().Configure(cmd.Context(), params)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "#%d %s: %g checks/min (every %s), max lifetime %s\n",
			e.ID, e.Pattern, e.Frequency, e.Interval, app.FormatLifetime(seconds(e.MaxLifetime)))
		return nil
	},
}
