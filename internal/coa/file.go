package coa

import (
	"fmt"
	"os"
	"path/filepath"
)

const chartFile = "accounts/chart-of-accounts.csv"

// Load reads the chart of accounts from a ledger repo root.
func Load(repoRoot string) (*Service, error) {
	path := filepath.Join(repoRoot, chartFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewService(accts), nil
}

// Save writes the chart of accounts under a ledger repo root.
func (s *Service) Save(repoRoot string) error {
	path := filepath.Join(repoRoot, chartFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.All()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
