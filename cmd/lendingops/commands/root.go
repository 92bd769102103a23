package commands

import (
	"context"
	"log/slog"

	"lendingops/internal/config"
	"lendingops/internal/state"

	"github.com/spf13/cobra"
)

var cli = &env{}

var rootCmd = &cobra.Command{
	Use:   "lendingops",
	Short: "lendingops drives account, drawdown and smart contract flows against the digital lending platform.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.load(cmd.Context())
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cli.configPath, "config", config.DefaultFile, "config file, <name>.local.json5 next to it overrides values")
	flags.StringVar(&cli.statePath, "state", "", "state database file (default: state.file in config, else "+state.DefaultFile+")")
	flags.StringVar(&cli.logDir, "log-dir", "", "also write logs to a timestamped file in this directory")
	flags.BoolVarP(&cli.verbose, "verbose", "v", false, "show debug logs")
}

// ExecuteContext runs the command line and returns the error of a failed
// command after writing it to the error log.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		cli.fail(err)
	}
	closeErr := cli.close(context.Background())
	if closeErr != nil {
		slog.Warn("cleanup", "err", closeErr)
	}
	return err
}
