package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate [institution...]",
	Short: "Checks that every value the flows need is configured, all institutions are checked when none are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		names := args
		if len(names) == 0 {
			names = cli.cfg.InstitutionNames()
		}

		t := newTable("Configuration")
		t.AppendHeader(table.Row{"Institution", "Problem"})
		problems := 0
		for _, name := range names {
			inst, err := cli.institution(ctx, name)
			if err != nil {
				return err
			}
			errs := inst.Validate()
			if len(errs) == 0 {
				t.AppendRow(table.Row{name, "ok"})
				continue
			}
			for _, err := range errs {
				t.AppendRow(table.Row{name, err.Error()})
			}
			problems += len(errs)
		}
		t.Render()

		if problems > 0 {
			return fmt.Errorf("configuration has %d problem(s)", problems)
		}
		return nil
	},
}
