package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	errorsCmd.AddCommand(errorsClearCmd)
	rootCmd.AddCommand(errorsCmd)
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Manages the error log.",
}

var errorsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Archives the error log and empties it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		archived, err := cli.errs.Archive(cli.cfg.ErrorLog.ArchiveDir)
		if err != nil {
			return err
		}
		if archived == "" {
			archived = "(no error log found, created an empty one)"
		}
		summary(
			"Error Log",
			table.Row{"Log", cli.errs.Path()},
			table.Row{"Archived to", archived},
		)
		return nil
	},
}
