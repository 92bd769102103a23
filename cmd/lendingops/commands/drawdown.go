package commands

import (
	"encoding/json"
	"fmt"

	"lendingops/internal/drawdown"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(drawdownCmd)
}

var drawdownCmd = &cobra.Command{
	Use:   "drawdown <institution>",
	Short: "Runs installmentation, plan selection, confirmation and the amortization table for the configured line of credit.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		inst, err := cli.institution(ctx, args[0])
		if err != nil {
			return err
		}
		name := inst.LocAccountNo
		if name == "" {
			name = "drawdown-" + inst.Name
		}
		err = cli.startLog(name)
		if err != nil {
			return err
		}

		orchestrator := drawdown.NewOrchestrator(cli.executor(), cli.extractor(), cli.tel)
		session, err := orchestrator.Run(ctx, inst)

		steps := newTable("Drawdown Steps")
		steps.AppendHeader(table.Row{"#", "Step", "Request ID", "Status", "Code"})
		for i, step := range session.Steps {
			steps.AppendRow(table.Row{i + 1, step.Name, step.RequestId, step.StatusCode, step.Code})
		}
		steps.Render()

		if err != nil {
			return fmt.Errorf("drawdown %s aborted in state %s: %w", inst.Name, session.State, err)
		}

		if session.Amortization != nil {
			out, _ := json.MarshalIndent(session.Amortization, "", "  ")
			cli.tel.ReportDebug("amortization table", "data", string(out))
		}

		summary(
			"Flow Execution Summary",
			table.Row{"LOC Account Number", inst.LocAccountNo},
			table.Row{"Disbursement Amount", inst.DisburseAmount},
			table.Row{"To Account Number", inst.ToAccountNo},
			table.Row{"Product Market Code", inst.ProductMarketCode},
			table.Row{"Confirmation", inst.Drawdown()},
			table.Row{"Drawdown Token", session.DrawdownToken},
			table.Row{"Selected Plan", fmt.Sprintf("%d (tenor %s)", session.SelectedPlanId, session.SelectedPlanTenor)},
			table.Row{"Trace Parent", session.TraceParent},
			table.Row{"State", session.State},
		)
		return nil
	},
}
