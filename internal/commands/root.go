// Package commands wires the caixa CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caixa-dev/caixa/internal/buildinfo"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	dir     string
	verbose bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:     "caixa",
		Short:   "Personal double-entry bookkeeping",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", ".", "ledger repository directory")
	rootCmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "log engine activity to stderr")

	rootCmd.AddCommand(
		newInitCommand(flags),
		newExpenseCommand(flags),
		newIncomeCommand(flags),
		newTransferCommand(flags),
		newUpdateCommand(flags),
		newDeleteCommand(flags),
		newListCommand(flags),
		newReverseCommand(flags),
		newBalanceCommand(flags),
		newTrialCommand(flags),
		newCheckCommand(flags),
		newAccountsCommand(flags),
	)

	return rootCmd
}
