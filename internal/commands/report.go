package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newBalanceCommand(flags *rootFlags) *cobra.Command {
	var asOfRaw string

	cmd := &cobra.Command{
		Use:   "balance [account-code]",
		Short: "Show account balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}

			var asOf time.Time
			if asOfRaw != "" {
				if asOf, err = parseDate(asOfRaw); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tACCOUNT\tSIDE\tBALANCE")

			accts := a.accounts.All()
			if len(args) == 1 {
				acct, ok := a.accounts.Get(args[0])
				if !ok {
					return fmt.Errorf("account %s not in chart", args[0])
				}
				accts = accts[:0]
				accts = append(accts, acct)
			}

			for _, acct := range accts {
				bal, err := a.ledger.AccountBalance(ctx, acct.Code, asOf)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					acct.Code, acct.Name, acct.NormalBalance, a.formatMoney(bal.Balance))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&asOfRaw, "as-of", "", "balance cut-off date (YYYY-MM-DD)")

	return cmd
}

func newTrialCommand(flags *rootFlags) *cobra.Command {
	var asOfRaw string

	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Show the trial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}

			var asOf time.Time
			if asOfRaw != "" {
				if asOf, err = parseDate(asOfRaw); err != nil {
					return err
				}
			}

			trial, err := a.ledger.TrialBalance(ctx, asOf)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tACCOUNT\tDEBIT\tCREDIT")
			for _, bal := range trial.Accounts {
				acct, _ := a.accounts.Get(bal.AccountCode)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					bal.AccountCode, acct.Name, a.formatMoney(bal.DebitTotal), a.formatMoney(bal.CreditTotal))
			}
			fmt.Fprintf(w, "\tTOTAL\t%s\t%s\n",
				a.formatMoney(trial.TotalDebit), a.formatMoney(trial.TotalCredit))
			if err := w.Flush(); err != nil {
				return err
			}

			if trial.IsBalanced {
				fmt.Fprintln(cmd.OutOrStdout(), "Balanced.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "NOT BALANCED: off by %s\n", a.formatMoney(trial.Difference))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOfRaw, "as-of", "", "cut-off date (YYYY-MM-DD)")

	return cmd
}
