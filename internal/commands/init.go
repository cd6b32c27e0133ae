package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/config"
)

func newInitCommand(flags *rootFlags) *cobra.Command {
	var owner string
	var lenient bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new ledger repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(flags.dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(cmd, root, owner, lenient)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner name (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "start in lenient validation mode")

	return cmd
}

func runInit(cmd *cobra.Command, root, owner string, lenient bool) error {
	cfgPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	for _, d := range []string{"accounts", "logs"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(owner)
	if lenient {
		cfg.Validation.Mode = "lenient"
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	svc := coa.NewService(coa.DefaultChart())
	if err := svc.Save(root); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized caixa repository at %s (%d accounts)\n",
		root, len(svc.All()))
	return nil
}
