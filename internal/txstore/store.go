// Package txstore is the domain transaction store boundary: user-visible
// transactions and the cached per-account balances the application shows.
// The KV-backed implementation here serves the CLI and tests; a host
// application may supply its own.
package txstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caixa-dev/caixa/internal/model"
	"github.com/caixa-dev/caixa/internal/storage"
)

const (
	txnPrefix     = "domain/txn/"
	balancePrefix = "domain/balance/"
)

// ErrTransactionNotFound means no transaction has the given id.
var ErrTransactionNotFound = errors.New("transaction not found")

// Store persists domain transactions and cached balances in a KV backend.
type Store struct {
	kv storage.KV
}

// NewStore creates a Store over a KV backend.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

type txnRecord struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	AccountCode string          `json:"account_code"`
	Category    string          `json:"category,omitempty"`
	Date        time.Time       `json:"date"`
	BatchID     string          `json:"batch_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by"`
}

func toRecord(t model.Transaction) txnRecord {
	return txnRecord{
		ID:          t.ID,
		Type:        string(t.Type),
		Description: t.Description,
		Amount:      t.Amount,
		AccountCode: t.AccountCode,
		Category:    t.Category,
		Date:        t.Date,
		BatchID:     t.BatchID,
		CreatedAt:   t.CreatedAt,
		CreatedBy:   t.CreatedBy,
	}
}

func fromRecord(rec txnRecord) model.Transaction {
	return model.Transaction{
		ID:          rec.ID,
		Type:        model.TransactionType(rec.Type),
		Description: rec.Description,
		Amount:      rec.Amount,
		AccountCode: rec.AccountCode,
		Category:    rec.Category,
		Date:        rec.Date,
		BatchID:     rec.BatchID,
		CreatedAt:   rec.CreatedAt,
		CreatedBy:   rec.CreatedBy,
	}
}

// SaveTransaction inserts or replaces a transaction.
func (s *Store) SaveTransaction(ctx context.Context, t model.Transaction) error {
	data, err := json.Marshal(toRecord(t))
	if err != nil {
		return fmt.Errorf("marshaling transaction %s: %w", t.ID, err)
	}
	if err := s.kv.Put(ctx, txnPrefix+t.ID, data); err != nil {
		return fmt.Errorf("saving transaction %s: %w", t.ID, err)
	}
	return nil
}

// Transaction returns one transaction by id.
func (s *Store) Transaction(ctx context.Context, id string) (model.Transaction, error) {
	data, err := s.kv.Get(ctx, txnPrefix+id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("reading transaction %s: %w", id, err)
	}
	var rec txnRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Transaction{}, fmt.Errorf("unmarshaling transaction %s: %w", id, err)
	}
	return fromRecord(rec), nil
}

// DeleteTransaction removes a transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, txnPrefix+id); err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a transaction id exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.kv.Get(ctx, txnPrefix+id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Transactions returns all transactions ordered by date, then creation time.
func (s *Store) Transactions(ctx context.Context) ([]model.Transaction, error) {
	pairs, err := s.kv.List(ctx, txnPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	out := make([]model.Transaction, 0, len(pairs))
	for _, p := range pairs {
		var rec txnRecord
		if err := json.Unmarshal(p.Value, &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling transaction %s: %w", p.Key, err)
		}
		out = append(out, fromRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetCachedBalance stores the application-visible balance of an account.
func (s *Store) SetCachedBalance(ctx context.Context, code string, balance decimal.Decimal) error {
	if err := s.kv.Put(ctx, balancePrefix+code, []byte(balance.String())); err != nil {
		return fmt.Errorf("caching balance of %s: %w", code, err)
	}
	return nil
}

// CachedBalance returns the cached balance of one account; ok is false
// when no balance has been cached yet.
func (s *Store) CachedBalance(ctx context.Context, code string) (decimal.Decimal, bool, error) {
	data, err := s.kv.Get(ctx, balancePrefix+code)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("reading cached balance of %s: %w", code, err)
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parsing cached balance of %s: %w", code, err)
	}
	return d, true, nil
}

// CachedBalances returns every cached balance keyed by account code.
func (s *Store) CachedBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	pairs, err := s.kv.List(ctx, balancePrefix)
	if err != nil {
		return nil, fmt.Errorf("listing cached balances: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(pairs))
	for _, p := range pairs {
		d, err := decimal.NewFromString(string(p.Value))
		if err != nil {
			return nil, fmt.Errorf("parsing cached balance %s: %w", p.Key, err)
		}
		out[p.Key[len(balancePrefix):]] = d
	}
	return out, nil
}
