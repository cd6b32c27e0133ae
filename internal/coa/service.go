// Package coa maintains the chart of accounts: a hierarchy of dotted
// account codes ("1.1.02") whose leaves accept ledger postings and whose
// aggregate nodes exist only for rollup reporting.
package coa

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/caixa-dev/caixa/internal/model"
)

var (
	// ErrDuplicateCode means an account with the requested code already exists.
	ErrDuplicateCode = errors.New("duplicate account code")
	// ErrInvalidParent means the parent account is missing or cannot have children.
	ErrInvalidParent = errors.New("invalid parent account")
	// ErrInvalidType means the account type is unknown or conflicts with the parent.
	ErrInvalidType = errors.New("invalid account type")
	// ErrNotFound means no account has the given code.
	ErrNotFound = errors.New("account not found")
)

// Service provides lookup and mutation over the chart of accounts.
// Mutations and reads are safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	byCode map[string]model.Account
}

// NewService creates a Service from a slice of accounts, normalizing the
// derived fields (normal balance, level, parent code) from each code and type.
func NewService(accounts []model.Account) *Service {
	byCode := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = normalize(a)
	}
	return &Service{byCode: byCode}
}

func normalize(a model.Account) model.Account {
	a.NormalBalance = model.NormalBalanceFor(a.Type)
	a.Level = model.CodeLevel(a.Code)
	a.ParentCode = model.ParentCode(a.Code)
	return a
}

// Get returns an account by code.
func (s *Service) Get(code string) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byCode[code]
	return a, ok
}

// Exists reports whether an account code exists.
func (s *Service) Exists(code string) bool {
	_, ok := s.Get(code)
	return ok
}

// AcceptsEntries reports whether the account exists, is active, and is a
// posting-eligible leaf.
func (s *Service) AcceptsEntries(code string) bool {
	a, ok := s.Get(code)
	return ok && a.IsActive && a.AcceptsEntries
}

// All returns every account, ordered by hierarchical code.
func (s *Service) All() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, 0, len(s.byCode))
	for _, a := range s.byCode {
		out = append(out, a)
	}
	sortAccounts(out)
	return out
}

// PostingAccounts returns all active accounts that accept entries,
// ordered by code.
func (s *Service) PostingAccounts() []model.Account {
	var out []model.Account
	for _, a := range s.All() {
		if a.IsActive && a.AcceptsEntries {
			out = append(out, a)
		}
	}
	return out
}

// ByType returns all accounts of the given type, ordered by code.
func (s *Service) ByType(t model.AccountType) []model.Account {
	var out []model.Account
	for _, a := range s.All() {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// AddSpec describes a new account. When Code is empty the next sibling
// code under ParentCode is computed. Type may be empty for child accounts,
// in which case the parent's type is inherited. Aggregate accounts never
// accept entries; leaves always do.
type AddSpec struct {
	Code       string
	ParentCode string
	Name       string
	Type       model.AccountType
	Aggregate  bool
}

// Add creates a new account under a parent (or at top level when
// ParentCode is empty and an explicit Code is given).
func (s *Service) Add(spec AddSpec) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acctType := spec.Type
	if spec.ParentCode != "" {
		parent, ok := s.byCode[spec.ParentCode]
		if !ok {
			return model.Account{}, fmt.Errorf("%w: %s not found", ErrInvalidParent, spec.ParentCode)
		}
		if parent.AcceptsEntries {
			return model.Account{}, fmt.Errorf("%w: %s is a posting leaf and cannot have children", ErrInvalidParent, spec.ParentCode)
		}
		if acctType == "" {
			acctType = parent.Type
		} else if acctType != parent.Type {
			return model.Account{}, fmt.Errorf("%w: child type %s conflicts with parent type %s", ErrInvalidType, acctType, parent.Type)
		}
	}
	if !acctType.Valid() {
		return model.Account{}, fmt.Errorf("%w: %q", ErrInvalidType, spec.Type)
	}

	code := spec.Code
	if code == "" {
		if spec.ParentCode == "" {
			return model.Account{}, fmt.Errorf("%w: top-level accounts need an explicit code", ErrInvalidParent)
		}
		code = s.nextChildCodeLocked(spec.ParentCode)
	} else {
		if _, exists := s.byCode[code]; exists {
			return model.Account{}, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		if model.ParentCode(code) != spec.ParentCode {
			return model.Account{}, fmt.Errorf("%w: code %s is not a child of %s", ErrInvalidParent, code, spec.ParentCode)
		}
	}

	a := normalize(model.Account{
		Code:           code,
		Name:           spec.Name,
		Type:           acctType,
		IsActive:       true,
		AcceptsEntries: !spec.Aggregate,
	})
	s.byCode[code] = a
	return a, nil
}

// Deactivate marks an account inactive. Accounts are never removed;
// historical entries keep referencing the code.
func (s *Service) Deactivate(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byCode[code]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	a.IsActive = false
	s.byCode[code] = a
	return nil
}

// NextChildCode computes the next free sibling code under a parent,
// e.g. "1.1" with children "1.1.01".."1.1.03" yields "1.1.04".
func (s *Service) NextChildCode(parentCode string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextChildCodeLocked(parentCode)
}

func (s *Service) nextChildCodeLocked(parentCode string) string {
	max := 0
	prefix := parentCode + "."
	for code := range s.byCode {
		if !strings.HasPrefix(code, prefix) {
			continue
		}
		rest := code[len(prefix):]
		if strings.Contains(rest, ".") {
			continue // grandchild
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s.%02d", parentCode, max+1)
}

// sortAccounts orders accounts by code, comparing dotted segments
// numerically so "1.1.2" sorts before "1.1.10".
func sortAccounts(accounts []model.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return compareCodes(accounts[i].Code, accounts[j].Code) < 0
	})
}

func compareCodes(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if an != bn {
				return an - bn
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}
