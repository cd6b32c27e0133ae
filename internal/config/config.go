// Package config reads and writes caixa.yaml, the per-repository
// configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file at the repository root.
const FileName = "caixa.yaml"

// Config represents the top-level caixa.yaml configuration.
type Config struct {
	Owner      OwnerConfig      `yaml:"owner"`
	Validation ValidationConfig `yaml:"validation"`
	Policy     PolicyConfig     `yaml:"policy"`
	Display    DisplayConfig    `yaml:"display"`
	Storage    StorageConfig    `yaml:"storage"`
	Audit      AuditConfig      `yaml:"audit"`
}

// OwnerConfig identifies whose books these are.
type OwnerConfig struct {
	Name string `yaml:"name"`
}

// ValidationConfig selects how strictly operations are gated.
type ValidationConfig struct {
	Mode string `yaml:"mode"` // "strict" or "lenient"
}

// PolicyConfig holds the balance policies the transaction engine
// enforces.
type PolicyConfig struct {
	NonNegativeBalances bool `yaml:"non_negative_balances"`
	// CreditLimits caps liability accounts, keyed by account code.
	// Values are decimal strings, e.g. "2500.00".
	CreditLimits map[string]string `yaml:"credit_limits,omitempty"`
}

// DisplayConfig controls report formatting.
type DisplayConfig struct {
	Currency string `yaml:"currency"` // ISO 4217 code, e.g. "BRL"
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // "file", "redis" or "memory"
	RedisAddr string `yaml:"redis_addr,omitempty"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a caixa.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new repository.
func Default(ownerName string) *Config {
	return &Config{
		Owner:      OwnerConfig{Name: ownerName},
		Validation: ValidationConfig{Mode: "strict"},
		Policy:     PolicyConfig{NonNegativeBalances: true},
		Display:    DisplayConfig{Currency: "BRL"},
		Storage:    StorageConfig{Backend: "file"},
		Audit:      AuditConfig{Enabled: true},
	}
}

// CreditLimits parses the configured limits into decimals.
func (c *Config) CreditLimits() (map[string]decimal.Decimal, error) {
	if len(c.Policy.CreditLimits) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(c.Policy.CreditLimits))
	for code, raw := range c.Policy.CreditLimits {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("credit limit for %s: %w", code, err)
		}
		out[code] = limit
	}
	return out, nil
}
