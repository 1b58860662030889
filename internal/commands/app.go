package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/accounts"
	"github.com/cleared-dev/spendlens/internal/categorize"
	"github.com/cleared-dev/spendlens/internal/config"
	"github.com/cleared-dev/spendlens/internal/ledger"
	"github.com/cleared-dev/spendlens/internal/logger"
	"github.com/cleared-dev/spendlens/internal/model"
	"github.com/cleared-dev/spendlens/internal/oracle"
	"github.com/cleared-dev/spendlens/internal/store"
	"github.com/cleared-dev/spendlens/internal/store/boltstore"
	"github.com/cleared-dev/spendlens/internal/store/sqlite"
)

// app is what a command needs once the data directory is loaded.
type app struct {
	dir    string
	cfg    *config.Config
	store  store.Store
	ledger *ledger.Service
	now    func() time.Time
}

func dataDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// loadApp reads the config in --dir, opens storage and puts the configured
// logger on the command's context.
func loadApp(cmd *cobra.Command) (*app, error) {
	dir, err := dataDir(cmd)
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnv(dir); err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no spendlens data in %s, run spendlens init first", dir)
	}
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg.Storage.Driver, config.Resolve(dir, cfg.Storage.Path))
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format).With().Str("user", cfg.User.ID).Logger()
	cmd.SetContext(logger.WithContext(cmd.Context(), log))

	return &app{
		dir:    dir,
		cfg:    cfg,
		store:  st,
		ledger: ledger.NewService(st),
		now:    time.Now,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func openStore(driver, path string) (store.Store, error) {
	switch driver {
	case store.DriverSQLite:
		return sqlite.Open(path)
	case store.DriverBolt:
		return boltstore.Open(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func (a *app) accounts(ctx context.Context) (*accounts.Service, error) {
	return a.ledger.Accounts(ctx, a.cfg.User.ID)
}

// scope resolves --scope and --account into a ledger scope. account is
// "all" or a query accepted by accounts.Service.Find.
func (a *app) scope(ctx context.Context, kind, account string) (ledger.Scope, error) {
	accts, err := a.accounts(ctx)
	if err != nil {
		return ledger.Scope{}, err
	}
	filter := accounts.FilterAll
	if q := accounts.ParseQuery(account); q != "" && q != accounts.FilterAll {
		acct, err := accts.Find(q)
		if err != nil {
			return ledger.Scope{}, err
		}
		filter = acct.ID
	}
	return ledger.Scope{UserID: a.cfg.User.ID, InstitutionIDs: accts.ScopeIDs(kind, filter)}, nil
}

// coordinator builds the categorization pipeline for the configured oracle.
// The offline provider is trained on the user's categorized history.
func (a *app) coordinator(ctx context.Context) (*categorize.Coordinator, error) {
	oc := a.cfg.Oracle

	var history []model.Transaction
	if oc.Provider == config.ProviderBayes {
		sc, err := a.scope(ctx, accounts.KindAll, accounts.FilterAll)
		if err != nil {
			return nil, err
		}
		if history, err = a.ledger.Transactions(ctx, sc); err != nil {
			return nil, err
		}
	}

	o, err := oracle.New(oracle.Settings{
		Provider:    oc.Provider,
		Model:       oc.Model,
		APIKey:      config.APIKey(oc.Provider),
		Temperature: oc.Temperature,
	}, history)
	if err != nil {
		return nil, fmt.Errorf("creating %s oracle: %w", oc.Provider, err)
	}

	return categorize.NewCoordinator(o,
		categorize.WithBatchSize(oc.BatchSize),
		categorize.WithThreshold(oc.ConfidenceThreshold),
		categorize.WithTimeout(oc.Timeout),
	), nil
}
