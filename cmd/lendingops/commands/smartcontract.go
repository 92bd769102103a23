package commands

import (
	"fmt"

	"lendingops/internal/config"
	"lendingops/internal/contractcache"
	"lendingops/internal/loandb"
	"lendingops/internal/smartcontract"
	"lendingops/internal/wiki"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var pullEnv string

func init() {
	smartContractPullCmd.Flags().StringVar(&pullEnv, "env", "", "environment row to read (default: wiki.env in config)")

	smartContractCmd.AddCommand(smartContractPullCmd)
	smartContractCmd.AddCommand(smartContractApplyCmd)
	rootCmd.AddCommand(smartContractCmd)
}

var smartContractCmd = &cobra.Command{
	Use:   "smart-contract",
	Short: "Keeps the smart contract versions of the processing database in sync with the release note.",
}

var smartContractPullCmd = &cobra.Command{
	Use:   "pull <institution>",
	Short: "Reads the smart contract versions of an environment from the release note and saves them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		err := cli.startLog("smart-contract-pull-" + args[0])
		if err != nil {
			return err
		}
		inst, err := cli.institution(ctx, args[0])
		if err != nil {
			return err
		}
		if cli.cfg.Wiki.BaseUrl == "" {
			return &config.ConfigError{Key: "wiki.base_url", Reason: "missing"}
		}

		env := pullEnv
		if env == "" {
			env = cli.cfg.Wiki.Env
		}

		client := wiki.NewClient(cli.cfg.Wiki, wiki.ClientOptions{
			Timeout:    cli.cfg.Http.Timeout(),
			VerifyTLS:  cli.cfg.Http.VerifyTLS,
			DumpOutput: cli.dumpOutput(),
		}, cli.tel)
		pulled, err := smartcontract.Pull(ctx, cli.tel, client, cli.repo, inst, env)
		if err != nil {
			return err
		}

		summary(
			fmt.Sprintf("%s (%s)", pulled.PageTitle, wiki.Heading(inst.Name)),
			table.Row{"Environment", env},
			table.Row{smartcontract.ColumnSupervisor, pulled.Versions.SupervisorContractId},
			table.Row{smartcontract.ColumnLoc, pulled.Versions.LocSmartContractId},
			table.Row{smartcontract.ColumnDrawdown, pulled.Versions.DrawdownSmartContractId},
		)
		return nil
	},
}

var smartContractApplyCmd = &cobra.Command{
	Use:   "apply <institution>",
	Short: "Points proc_loan_account and loan_smart_contract at the saved versions and invalidates the cache key.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		err := cli.startLog("smart-contract-apply-" + args[0])
		if err != nil {
			return err
		}
		inst, err := cli.institution(ctx, args[0])
		if err != nil {
			return err
		}
		versions, err := smartcontract.Versions(inst)
		if err != nil {
			return err
		}
		if inst.RedisKey == "" {
			return &config.ConfigError{Key: fmt.Sprintf("institutions.%s.redis_key", inst.Name), Reason: "missing"}
		}

		conn, err := cli.loanDB(ctx, inst, loandb.DatabaseProcessing)
		if err != nil {
			return err
		}
		defer conn.Close(ctx)

		redisClient, err := contractcache.Open(ctx, inst.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		applied, err := smartcontract.Apply(
			ctx,
			cli.tel,
			versions,
			inst.RedisKey,
			conn,
			contractcache.NewCache(redisClient),
		)
		if err != nil {
			return err
		}

		summary(
			"Smart Contract Update Summary",
			table.Row{"Supervisor Contract ID", versions.SupervisorContractId},
			table.Row{"LOC Smart Contract ID", versions.LocSmartContractId},
			table.Row{"Drawdown Smart Contract ID", versions.DrawdownSmartContractId},
			table.Row{"Updated proc_loan_account", fmt.Sprintf("%d rows", applied.ProcLoanAccountRows)},
			table.Row{"Updated loan_smart_contract", fmt.Sprintf("%d rows", applied.LoanSmartContractRows)},
			table.Row{"Redis key " + applied.CacheKey, applied.CacheStatus},
		)
		return nil
	},
}
