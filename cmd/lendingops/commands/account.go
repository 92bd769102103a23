package commands

import (
	"strings"

	"lendingops/internal/account"
	"lendingops/internal/loandb"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deleteCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <institution>",
	Short: "Creates a line of credit account and remembers its contract_ref_id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		err := cli.startLog("create-" + args[0])
		if err != nil {
			return err
		}
		inst, err := cli.institution(ctx, args[0])
		if err != nil {
			return err
		}

		service := account.NewService(cli.executor(), cli.extractor(), cli.repo, cli.tel)
		created, err := service.Create(ctx, inst)
		if err != nil {
			return err
		}

		summary(
			"Account Creation Summary",
			table.Row{"Contract Reference ID", created.ContractRefId},
			table.Row{"Product Market Code", created.ProductMarketCode},
			table.Row{"Account Name", created.AccountName},
			table.Row{"Account Number", created.AccountNumber},
			table.Row{"Saved", strings.Join(created.Persisted, ", ")},
		)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <institution>",
	Short: "Deletes the loan_account rows of the current contract_ref_id from the orchestration and processing databases.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		err := cli.startLog("delete-" + args[0])
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

		var targets []account.Target
		for _, database := range []string{loandb.DatabaseOrchestration, loandb.DatabaseProcessing} {
			conn, err := cli.loanDB(ctx, inst, database)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)
			targets = append(targets, account.Target{Database: database, Store: conn})
		}

		deleted, err := account.Delete(ctx, cli.tel, contractRefId, targets...)
		if err != nil {
			return err
		}

		rows := []table.Row{{"Contract Reference ID", contractRefId}}
		for _, d := range deleted {
			rows = append(rows, table.Row{"Deleted from " + d.Database, d.Rows})
		}
		summary("Account Deletion Summary", rows...)
		return nil
	},
}
