package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/audit"
	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/config"
	"github.com/caixa-dev/caixa/internal/identity"
	"github.com/caixa-dev/caixa/internal/journal"
	"github.com/caixa-dev/caixa/internal/ledger"
	"github.com/caixa-dev/caixa/internal/storage"
	"github.com/caixa-dev/caixa/internal/txengine"
	"github.com/caixa-dev/caixa/internal/txstore"
	"github.com/caixa-dev/caixa/internal/validation"
)

// storeFile is the file-backend database, relative to the repo root.
const storeFile = "caixa.db.json"

// app is one opened ledger repository with every engine wired.
type app struct {
	root     string
	cfg      *config.Config
	accounts *coa.Service
	journal  *journal.Store
	ledger   *ledger.Engine
	store    *txstore.Store
	engine   *txengine.Engine
	currency string
}

// openApp loads the repository at flags.dir and wires the engines from
// its configuration.
func openApp(ctx context.Context, flags *rootFlags) (*app, error) {
	root, err := filepath.Abs(flags.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("not a caixa repository (run caixa init): %w", err)
	}

	accounts, err := coa.Load(root)
	if err != nil {
		return nil, err
	}

	kv, err := openKV(ctx, root, cfg)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(flags.verbose)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	jstore := journal.NewStore(kv)
	ldg := ledger.NewEngine(jstore, accounts, log)
	dstore := txstore.NewStore(kv)

	mode := validation.ModeStrict
	if cfg.Validation.Mode == string(validation.ModeLenient) {
		mode = validation.ModeLenient
	}
	validator := validation.New(accounts, ldg, mode, log)

	var sink audit.Sink
	if cfg.Audit.Enabled {
		sink = audit.NewFileSink(root)
	}

	limits, err := cfg.CreditLimits()
	if err != nil {
		return nil, err
	}

	engine := txengine.New(txengine.Deps{
		Ledger:    ldg,
		Journal:   jstore,
		Store:     dstore,
		Accounts:  accounts,
		Validator: validator,
		Audit:     audit.NewRecorder(sink, log),
		Identity:  identity.FromEnv(),
	}, txengine.Options{
		NonNegativeBalances: cfg.Policy.NonNegativeBalances,
		CreditLimits:        limits,
	}, log)

	currency := cfg.Display.Currency
	if currency == "" {
		currency = "BRL"
	}

	return &app{
		root:     root,
		cfg:      cfg,
		accounts: accounts,
		journal:  jstore,
		ledger:   ldg,
		store:    dstore,
		engine:   engine,
		currency: currency,
	}, nil
}

// newLogger builds the CLI logger. Verbose runs give the full
// development logger; otherwise only warnings and above reach stderr,
// so skipped balance checks and rollback trouble still surface.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func openKV(ctx context.Context, root string, cfg *config.Config) (storage.KV, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return storage.NewFile(filepath.Join(root, storeFile))
	case "redis":
		return storage.NewRedis(ctx, storage.RedisOptions{Addr: cfg.Storage.RedisAddr})
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// formatMoney renders a decimal amount in the repository's display
// currency.
func (a *app) formatMoney(d decimal.Decimal) string {
	cur := money.GetCurrency(a.currency)
	if cur == nil {
		return d.StringFixed(2)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
