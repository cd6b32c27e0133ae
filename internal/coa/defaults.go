package coa

import "github.com/caixa-dev/caixa/internal/model"

// DefaultChart returns the default personal-finance chart of accounts.
// Aggregate nodes carry AcceptsEntries=false and exist for rollup only.
func DefaultChart() []model.Account {
	acct := func(code, name string, t model.AccountType, leaf bool) model.Account {
		return model.Account{
			Code:           code,
			Name:           name,
			Type:           t,
			IsActive:       true,
			AcceptsEntries: leaf,
		}
	}
	return []model.Account{
		acct("1", "Ativos", model.AccountTypeAsset, false),
		acct("1.1", "Ativo Circulante", model.AccountTypeAsset, false),
		acct("1.1.01", "Dinheiro em Espécie", model.AccountTypeAsset, true),
		acct("1.1.02", "Conta Corrente", model.AccountTypeAsset, true),
		acct("1.1.03", "Poupança", model.AccountTypeAsset, true),
		acct("1.1.04", "Investimentos", model.AccountTypeAsset, true),

		acct("2", "Passivos", model.AccountTypeLiability, false),
		acct("2.1", "Passivo Circulante", model.AccountTypeLiability, false),
		acct("2.1.01", "Cartão de Crédito", model.AccountTypeLiability, true),
		acct("2.1.02", "Empréstimos", model.AccountTypeLiability, true),

		acct("3", "Patrimônio Líquido", model.AccountTypeEquity, false),
		acct("3.1", "Capital Próprio", model.AccountTypeEquity, false),
		acct("3.1.01", "Saldo Inicial", model.AccountTypeEquity, true),

		acct("4", "Receitas", model.AccountTypeRevenue, false),
		acct("4.1", "Receitas Operacionais", model.AccountTypeRevenue, false),
		acct("4.1.01", "Salário", model.AccountTypeRevenue, true),
		acct("4.1.02", "Freelance", model.AccountTypeRevenue, true),
		acct("4.1.03", "Rendimentos", model.AccountTypeRevenue, true),
		acct("4.1.99", "Outras Receitas", model.AccountTypeRevenue, true),

		acct("5", "Despesas", model.AccountTypeExpense, false),
		acct("5.1", "Despesas Essenciais", model.AccountTypeExpense, false),
		acct("5.1.01", "Moradia", model.AccountTypeExpense, true),
		acct("5.1.02", "Alimentação", model.AccountTypeExpense, true),
		acct("5.1.03", "Transporte", model.AccountTypeExpense, true),
		acct("5.1.04", "Saúde", model.AccountTypeExpense, true),
		acct("5.2", "Despesas de Estilo de Vida", model.AccountTypeExpense, false),
		acct("5.2.01", "Lazer", model.AccountTypeExpense, true),
		acct("5.2.02", "Educação", model.AccountTypeExpense, true),
		acct("5.2.99", "Outras Despesas", model.AccountTypeExpense, true),
	}
}
