package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caixa-dev/caixa/internal/audit"
	"github.com/caixa-dev/caixa/internal/validation"
)

func newCheckCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the whole system's integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}

			check, err := a.engine.CheckSystem(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s (score %d/100, %d transactions)\n",
				check.Report.Status, check.Report.Score, check.Report.CheckedTransactions)
			if check.Trial.IsBalanced {
				fmt.Fprintln(out, "Trial balance: balanced")
			} else {
				fmt.Fprintf(out, "Trial balance: OFF BY %s\n", a.formatMoney(check.Trial.Difference))
			}

			for _, issue := range check.Report.CriticalIssues {
				fix := ""
				if issue.AutoFixAvailable {
					fix = " (auto-fixable)"
				}
				fmt.Fprintf(out, "critical p%d: %s%s\n", issue.Priority, issue.Message, fix)
			}
			for _, e := range check.Report.Errors {
				fmt.Fprintf(out, "error [%s] %s: %s\n", e.Severity, e.Code, e.Message)
			}
			for _, w := range check.Report.Warnings {
				fmt.Fprintf(out, "warning [%s] %s: %s\n", w.Impact, w.Code, w.Message)
			}
			for _, issue := range check.Integrity.Issues {
				fmt.Fprintf(out, "journal %s: %s\n", issue.Code, issue.Detail)
			}

			if a.cfg.Audit.Enabled {
				events, err := audit.Read(a.root)
				if err != nil {
					return err
				}
				for _, ev := range events {
					if ev.Severity == audit.SeverityCritical {
						fmt.Fprintf(out, "audit %s %s: %s\n",
							ev.Timestamp.Format("2006-01-02 15:04"), ev.Action, ev.Details)
					}
				}
			}

			if check.Report.Status != validation.StatusHealthy {
				return fmt.Errorf("system is %s", check.Report.Status)
			}
			return nil
		},
	}
}
