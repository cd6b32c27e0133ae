package coa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caixa-dev/caixa/internal/model"
)

func TestNewServiceNormalizes(t *testing.T) {
	svc := NewService(DefaultChart())

	a, ok := svc.Get("1.1.02")
	require.True(t, ok)
	assert.Equal(t, model.SideDebit, a.NormalBalance)
	assert.Equal(t, 3, a.Level)
	assert.Equal(t, "1.1", a.ParentCode)

	rev, ok := svc.Get("4.1.01")
	require.True(t, ok)
	assert.Equal(t, model.SideCredit, rev.NormalBalance)
}

func TestAcceptsEntries(t *testing.T) {
	svc := NewService(DefaultChart())

	assert.True(t, svc.AcceptsEntries("1.1.02"), "leaf account posts")
	assert.False(t, svc.AcceptsEntries("1.1"), "aggregate never posts")
	assert.False(t, svc.AcceptsEntries("9.9.99"), "unknown code")

	require.NoError(t, svc.Deactivate("1.1.02"))
	assert.False(t, svc.AcceptsEntries("1.1.02"), "deactivated account stops posting")
	_, ok := svc.Get("1.1.02")
	assert.True(t, ok, "deactivated account still exists")
}

func TestAddComputesNextSiblingCode(t *testing.T) {
	svc := NewService(DefaultChart())

	a, err := svc.Add(AddSpec{ParentCode: "1.1", Name: "Carteira Digital"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.05", a.Code)
	assert.Equal(t, model.AccountTypeAsset, a.Type, "type inherited from parent")
	assert.True(t, a.AcceptsEntries, "new leaf must accept entries")
	assert.True(t, a.IsActive)

	b, err := svc.Add(AddSpec{ParentCode: "1.1", Name: "Outra Conta"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.06", b.Code)
}

func TestAddErrors(t *testing.T) {
	svc := NewService(DefaultChart())

	_, err := svc.Add(AddSpec{ParentCode: "8.8", Name: "Órfã"})
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = svc.Add(AddSpec{ParentCode: "1.1.02", Name: "Filho de Folha"})
	assert.ErrorIs(t, err, ErrInvalidParent, "posting leaf cannot have children")

	_, err = svc.Add(AddSpec{Code: "1.1.02", ParentCode: "1.1", Name: "Repetida"})
	assert.ErrorIs(t, err, ErrDuplicateCode)

	_, err = svc.Add(AddSpec{ParentCode: "1.1", Name: "Errada", Type: model.AccountTypeExpense})
	assert.ErrorIs(t, err, ErrInvalidType, "child type must match parent")

	_, err = svc.Add(AddSpec{Code: "7", Name: "Sem Tipo"})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestAddAggregate(t *testing.T) {
	svc := NewService(DefaultChart())

	agg, err := svc.Add(AddSpec{ParentCode: "5", Name: "Despesas Financeiras", Aggregate: true})
	require.NoError(t, err)
	assert.False(t, agg.AcceptsEntries)

	leaf, err := svc.Add(AddSpec{ParentCode: agg.Code, Name: "Juros"})
	require.NoError(t, err)
	assert.Equal(t, agg.Code+".01", leaf.Code)
}

func TestAllSortsHierarchically(t *testing.T) {
	svc := NewService([]model.Account{
		{Code: "1.1.10", Name: "dez", Type: model.AccountTypeAsset, IsActive: true, AcceptsEntries: true},
		{Code: "1.1.2", Name: "dois", Type: model.AccountTypeAsset, IsActive: true, AcceptsEntries: true},
		{Code: "1.1", Name: "pai", Type: model.AccountTypeAsset, IsActive: true},
		{Code: "1", Name: "raiz", Type: model.AccountTypeAsset, IsActive: true},
	})

	all := svc.All()
	codes := make([]string, len(all))
	for i, a := range all {
		codes[i] = a.Code
	}
	assert.Equal(t, []string{"1", "1.1", "1.1.2", "1.1.10"}, codes)
}

func TestByTypeAndPostingAccounts(t *testing.T) {
	svc := NewService(DefaultChart())

	for _, a := range svc.ByType(model.AccountTypeExpense) {
		assert.Equal(t, model.AccountTypeExpense, a.Type)
	}

	for _, a := range svc.PostingAccounts() {
		assert.True(t, a.AcceptsEntries)
		assert.True(t, a.IsActive)
	}
}
