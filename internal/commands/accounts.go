package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/model"
)

func newAccountsCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountsListCommand(flags),
		newAccountsAddCommand(flags),
		newAccountsDeactivateCommand(flags),
	)
	return cmd
}

func newAccountsListCommand(flags *rootFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tTYPE\tPOSTS")
			for _, acct := range a.accounts.All() {
				if !all && !acct.IsActive {
					continue
				}
				posts := ""
				if acct.AcceptsEntries {
					posts = "yes"
				}
				indent := strings.Repeat("  ", acct.Level-1)
				fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\n", acct.Code, indent, acct.Name, acct.Type, posts)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include deactivated accounts")

	return cmd
}

func newAccountsAddCommand(flags *rootFlags) *cobra.Command {
	var parent, name, accountType string
	var aggregate bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account under an existing parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}

			acct, err := a.accounts.Add(coa.AddSpec{
				ParentCode: parent,
				Name:       name,
				Type:       model.AccountType(accountType),
				Aggregate:  aggregate,
			})
			if err != nil {
				return err
			}
			if err := a.accounts.Save(a.root); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", acct.Code, acct.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent account code (required)")
	_ = cmd.MarkFlagRequired("parent")
	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&accountType, "type", "", "account type (defaults to the parent's)")
	cmd.Flags().BoolVar(&aggregate, "aggregate", false, "create a rollup node instead of a posting account")

	return cmd
}

func newAccountsDeactivateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <code>",
		Short: "Deactivate an account, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := a.accounts.Deactivate(args[0]); err != nil {
				return err
			}
			if err := a.accounts.Save(a.root); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated %s\n", args[0])
			return nil
		},
	}
}
