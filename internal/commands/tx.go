package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/caixa-dev/caixa/internal/model"
	"github.com/caixa-dev/caixa/internal/txengine"
	"github.com/caixa-dev/caixa/internal/validation"
)

const dateLayout = "2006-01-02"

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return d, nil
}

func newExpenseCommand(flags *rootFlags) *cobra.Command {
	var account, category, date string

	cmd := &cobra.Command{
		Use:   "expense <amount> <description>",
		Short: "Record an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, flags, model.TransactionTypeExpense, args[0], args[1], account, category, date)
		},
	}

	cmd.Flags().StringVar(&account, "account", "1.1.02", "paying account code")
	cmd.Flags().StringVar(&category, "category", "", "expense account code, e.g. 5.1.02")
	cmd.Flags().StringVar(&date, "date", "", "transaction date (YYYY-MM-DD, default today)")

	return cmd
}

func newIncomeCommand(flags *rootFlags) *cobra.Command {
	var account, category, date string

	cmd := &cobra.Command{
		Use:   "income <amount> <description>",
		Short: "Record an income",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, flags, model.TransactionTypeIncome, args[0], args[1], account, category, date)
		},
	}

	cmd.Flags().StringVar(&account, "account", "1.1.02", "receiving account code")
	cmd.Flags().StringVar(&category, "category", "", "revenue account code, e.g. 4.1.01")
	cmd.Flags().StringVar(&date, "date", "", "transaction date (YYYY-MM-DD, default today)")

	return cmd
}

func runRecord(cmd *cobra.Command, flags *rootFlags, kind model.TransactionType, rawAmount, description, account, category, rawDate string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, flags)
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", rawAmount, err)
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return err
	}

	saved, _, err := a.engine.CreateTransaction(ctx, model.Transaction{
		Type:        kind,
		Description: description,
		Amount:      amount,
		AccountCode: account,
		Category:    category,
		Date:        date,
	})
	if err != nil {
		return describeFailure(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s %s (%s)\n",
		kind, a.formatMoney(amount), description, saved.ID)
	return nil
}

func newTransferCommand(flags *rootFlags) *cobra.Command {
	var from, to, date string

	cmd := &cobra.Command{
		Use:   "transfer <amount> <description>",
		Short: "Move money between your accounts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			when, err := parseDate(date)
			if err != nil {
				return err
			}

			saved, _, err := a.engine.TransferBetweenAccounts(ctx, txengine.TransferRequest{
				FromAccount: from,
				ToAccount:   to,
				Amount:      amount,
				Description: args[1],
				Date:        when,
			})
			if err != nil {
				return describeFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s from %s to %s (%s)\n",
				a.formatMoney(amount), from, to, saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source account code (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&to, "to", "", "destination account code (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&date, "date", "", "transaction date (YYYY-MM-DD, default today)")

	return cmd
}

func newUpdateCommand(flags *rootFlags) *cobra.Command {
	var rawAmount, description, category, account, rawDate string

	cmd := &cobra.Command{
		Use:   "update <transaction-id>",
		Short: "Correct a transaction by reversal and re-entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}

			var upd txengine.Update
			if cmd.Flags().Changed("amount") {
				amount, err := decimal.NewFromString(rawAmount)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", rawAmount, err)
				}
				upd.Amount = &amount
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			if cmd.Flags().Changed("category") {
				upd.Category = &category
			}
			if cmd.Flags().Changed("account") {
				upd.AccountCode = &account
			}
			if cmd.Flags().Changed("date") {
				when, err := parseDate(rawDate)
				if err != nil {
					return err
				}
				upd.Date = &when
			}

			updated, _, err := a.engine.UpdateTransaction(ctx, args[0], upd)
			if err != nil {
				return describeFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s %s\n",
				updated.ID, a.formatMoney(updated.Amount), updated.Description)
			return nil
		},
	}

	cmd.Flags().StringVar(&rawAmount, "amount", "", "new amount")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&category, "category", "", "new category account code")
	cmd.Flags().StringVar(&account, "account", "", "new account code")
	cmd.Flags().StringVar(&rawDate, "date", "", "new date (YYYY-MM-DD)")

	return cmd
}

func newDeleteCommand(flags *rootFlags) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction, reversing its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}
			if _, err := a.engine.DeleteTransaction(ctx, args[0], reason); err != nil {
				return describeFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (entries reversed, not erased)\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the transaction is being removed")

	return cmd
}

func newListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}
			txns, err := a.store.Transactions(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tID\tTYPE\tAMOUNT\tDESCRIPTION")
			for _, t := range txns {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.Date.Format(dateLayout), t.ID, t.Type, a.formatMoney(t.Amount), t.Description)
			}
			return w.Flush()
		},
	}
}

// describeFailure turns engine errors into messages that name what the
// user can act on.
func describeFailure(err error) error {
	var verr *txengine.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("%w\n%s", err, describeResult(verr.Result))
	}
	if errors.Is(err, txengine.ErrRollbackFailed) {
		return fmt.Errorf("%w\nthe books may be inconsistent, run: caixa check", err)
	}
	return err
}

func describeResult(res validation.Result) string {
	out := ""
	for _, e := range res.Errors {
		out += fmt.Sprintf("  error [%s] %s: %s\n", e.Severity, e.Code, e.Message)
	}
	for _, w := range res.Warnings {
		out += fmt.Sprintf("  warning [%s] %s: %s\n", w.Impact, w.Code, w.Message)
	}
	return out
}
