package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caixa-dev/caixa/internal/identity"
)

func newReverseCommand(flags *rootFlags) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reverse <batch-id>",
		Short: "Reverse a posted batch with a compensating one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, flags)
			if err != nil {
				return err
			}
			reversal, err := a.ledger.ReverseBatch(ctx, args[0], reason, identity.FromEnv().CurrentUserID())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reversed %s with %s\n", args[0], reversal.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "correção manual", "why the batch is being reversed")

	return cmd
}
