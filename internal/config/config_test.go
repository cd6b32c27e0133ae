package config

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg := Default("Maria")
	cfg.Policy.CreditLimits = map[string]string{"2.1.01": "2500.00"}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Maria", got.Owner.Name)
	assert.Equal(t, "strict", got.Validation.Mode)
	assert.True(t, got.Policy.NonNegativeBalances)
	assert.Equal(t, "BRL", got.Display.Currency)
	assert.Equal(t, "file", got.Storage.Backend)
	assert.True(t, got.Audit.Enabled)

	limits, err := got.CreditLimits()
	require.NoError(t, err)
	require.Len(t, limits, 1)
	assert.True(t, limits["2.1.01"].Equal(decimal.RequireFromString("2500.00")))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.Error(t, err)
}

func TestCreditLimitsInvalid(t *testing.T) {
	cfg := Default("Maria")
	cfg.Policy.CreditLimits = map[string]string{"2.1.01": "muito"}
	_, err := cfg.CreditLimits()
	assert.Error(t, err)
}

func TestCreditLimitsEmpty(t *testing.T) {
	limits, err := Default("Maria").CreditLimits()
	require.NoError(t, err)
	assert.Nil(t, limits)
}
