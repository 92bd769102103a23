package commands

import (
	"encoding/json"

	"lendingops/internal/account"
	"lendingops/internal/balance"
	"lendingops/internal/loandb"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(balanceCmd)
}

var balanceCmd = &cobra.Command{
	Use:   "balance <institution>",
	Short: "Queries the balance of the account of the current contract_ref_id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		err := cli.startLog("balance-" + args[0])
		if err != nil {
			return err
		}
		inst, err := cli.institution(ctx, args[0])
		if err != nil {
			return err
		}
		contractRefId, err := account.ContractRefId(ctx, cli.repo, inst)
		if err != nil {
			return err
		}

		conn, err := cli.loanDB(ctx, inst, loandb.DatabaseProcessing)
		if err != nil {
			return err
		}
		defer conn.Close(ctx)

		inquiry := balance.NewInquiry(cli.executor(), cli.extractor(), cli.tel)
		result, err := inquiry.Run(ctx, inst, conn, contractRefId)
		if err != nil {
			return err
		}

		balances, _ := json.MarshalIndent(result.Balances, "", "  ")
		summary(
			"Balance Inquiry Summary",
			table.Row{"Contract Reference ID", result.ContractRefId},
			table.Row{"TM Account ID", result.TmAccountId},
			table.Row{"Balances", string(balances)},
		)
		return nil
	},
}
