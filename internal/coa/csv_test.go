package coa

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caixa-dev/caixa/internal/model"
)

func TestWriteReadAccounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, DefaultChart()))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Len(t, got, len(DefaultChart()))
	assert.Equal(t, "1.1.02", got[3].Code)
	assert.Equal(t, model.AccountTypeAsset, got[3].Type)
	assert.True(t, got[3].AcceptsEntries)
}

func TestUnmarshalAccountErrors(t *testing.T) {
	_, err := UnmarshalAccount([]string{"1.1.02", "Conta Corrente", "asset", "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 5 fields")

	_, err = UnmarshalAccount([]string{"1.1.02", "Conta Corrente", "cashish", "true", "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account type")

	_, err = UnmarshalAccount([]string{"1.1.02", "Conta Corrente", "asset", "yep", "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing active")
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(DefaultChart())
	require.NoError(t, svc.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, loaded.All(), len(DefaultChart()))
	assert.True(t, loaded.AcceptsEntries("5.1.02"))
}

func TestReadAccountsEmpty(t *testing.T) {
	got, err := ReadAccounts(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
