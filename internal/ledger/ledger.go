// Package ledger applies user operations to the store: imports, manual
// category changes, stored categorization, insights and search.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cleared-dev/spendlens/internal/accounts"
	"github.com/cleared-dev/spendlens/internal/activity"
	"github.com/cleared-dev/spendlens/internal/category"
	"github.com/cleared-dev/spendlens/internal/export"
	"github.com/cleared-dev/spendlens/internal/logger"
	"github.com/cleared-dev/spendlens/internal/model"
	"github.com/cleared-dev/spendlens/internal/store"
)

var (
	ErrUnknownAccount      = errors.New("unknown institution")
	ErrUserMismatch        = errors.New("transaction user does not match selected institution user")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNothingToImport     = errors.New("no transactions to import")
	ErrInvalidExport       = errors.New("export cannot be restored")
)

// Service runs ledger operations against a store.
type Service struct {
	store store.Store
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportResult reports what Import stored for one institution.
type ImportResult struct {
	Count       int
	AccountName string
	Activity    model.Activity
}

// AddAccount stores a new institution.
func (s *Service) AddAccount(ctx context.Context, acct model.Account) error {
	return s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if err := tx.UpsertAccount(ctx, acct); err != nil {
			return fmt.Errorf("saving account %s: %w", acct.Name, err)
		}
		return nil
	})
}

// Accounts returns a lookup service over the user's institutions.
func (s *Service) Accounts(ctx context.Context, userID string) (*accounts.Service, error) {
	var owned []model.Account
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		all, err := tx.AllAccounts(ctx)
		if err != nil {
			return fmt.Errorf("loading accounts: %w", err)
		}
		for _, a := range all {
			if a.UserID == userID {
				owned = append(owned, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts.NewService(owned), nil
}

// Import stores txns under accountID together with the rebuilt category
// forest and an activity entry, as one unit of work.
func (s *Service) Import(ctx context.Context, accountID string, txns []model.Transaction, fileName string) (*ImportResult, error) {
	if len(txns) == 0 {
		return nil, ErrNothingToImport
	}
	if fileName == "" {
		fileName = activity.DefaultFileName
	}

	now := s.now()
	var result ImportResult
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		all, err := tx.AllAccounts(ctx)
		if err != nil {
			return fmt.Errorf("loading accounts: %w", err)
		}
		acct, ok := accounts.NewService(all).Get(accountID)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownAccount, accountID)
		}

		result, err = storeImport(ctx, tx, acct, txns, fileName, now)
		if err != nil {
			return err
		}
		return rederive(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	logImport(ctx, result, fileName)
	return &result, nil
}

// Restore loads rows read back from an export into the user's store. Every
// row must pass the export record rules against the user's institutions.
// Rows are then stored per institution like Import, in order of first
// appearance, all as one unit of work.
func (s *Service) Restore(ctx context.Context, userID string, txns []model.Transaction, fileName string) ([]ImportResult, error) {
	if len(txns) == 0 {
		return nil, ErrNothingToImport
	}
	if fileName == "" {
		fileName = activity.DefaultFileName
	}

	now := s.now()
	var results []ImportResult
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		all, err := tx.AllAccounts(ctx)
		if err != nil {
			return fmt.Errorf("loading accounts: %w", err)
		}
		var owned []model.Account
		for _, a := range all {
			if a.UserID == userID {
				owned = append(owned, a)
			}
		}
		known := accounts.NewService(owned)
		if problems := export.Validate(txns, known); len(problems) > 0 {
			return fmt.Errorf("%w: %d problems, first %s", ErrInvalidExport, len(problems), problems[0].Error())
		}

		groups := map[string][]model.Transaction{}
		var order []string
		for _, t := range txns {
			if _, ok := groups[t.InstitutionID]; !ok {
				order = append(order, t.InstitutionID)
			}
			t.UserID = userID
			groups[t.InstitutionID] = append(groups[t.InstitutionID], t)
		}

		for _, instID := range order {
			acct, _ := known.Get(instID)
			res, err := storeImport(ctx, tx, acct, groups[instID], fileName, now)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return rederive(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		logImport(ctx, res, fileName)
	}
	return results, nil
}

// storeImport inserts txns under acct and records the activity entry.
// The caller rebuilds the category forest.
func storeImport(ctx context.Context, tx store.Tx, acct model.Account, txns []model.Transaction, fileName string, now time.Time) (ImportResult, error) {
	rows := make([]model.Transaction, len(txns))
	copy(rows, txns)

	for i := range rows {
		r := &rows[i]
		if r.UserID != acct.UserID {
			return ImportResult{}, fmt.Errorf("transaction %s: %w", r.ID, ErrUserMismatch)
		}
		r.InstitutionID = acct.ID
		if r.Source == nil {
			r.Source = &model.Source{Type: model.SourceTypeCSV, FileName: fileName}
		}
		r.CategoryPath = canonicalPath(r.CategoryPath)
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	}

	if err := tx.InsertTransactions(ctx, rows); err != nil {
		return ImportResult{}, fmt.Errorf("inserting transactions: %w", err)
	}

	entry := activity.NewImport(acct, rows, fileName, now)
	if err := tx.AppendActivity(ctx, entry); err != nil {
		return ImportResult{}, fmt.Errorf("recording activity: %w", err)
	}
	return ImportResult{Count: len(rows), AccountName: acct.Name, Activity: entry}, nil
}

func logImport(ctx context.Context, res ImportResult, fileName string) {
	log := logger.FromContext(ctx)
	log.Info().
		Str("institution", res.AccountName).
		Int("count", res.Count).
		Str("file", fileName).
		Msg("transactions imported")
}

// SetCategory moves one transaction to rawPath and rebuilds the forest.
func (s *Service) SetCategory(ctx context.Context, txID, rawPath string) (model.Transaction, error) {
	path := canonicalPath(rawPath)
	var updated model.Transaction
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		t, err := tx.TransactionByID(ctx, txID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, txID)
		}
		if err != nil {
			return fmt.Errorf("loading transaction %s: %w", txID, err)
		}

		t.CategoryPath = path
		t.UpdatedAt = s.now()
		if err := tx.UpdateTransactionCategory(ctx, t.ID, t.CategoryPath, t.UpdatedAt); err != nil {
			return fmt.Errorf("updating transaction %s: %w", txID, err)
		}
		updated = t
		return rederive(ctx, tx)
	})
	return updated, err
}

// Categories returns the stored category forest.
func (s *Service) Categories(ctx context.Context) (*category.Forest, error) {
	var forest *category.Forest
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		cats, err := tx.AllCategories(ctx)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		forest = category.New(cats...)
		return nil
	})
	return forest, err
}

// Transactions returns the transactions in scope, newest posted first.
func (s *Service) Transactions(ctx context.Context, scope Scope) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		all, err := tx.AllTransactions(ctx)
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}
		txns = filterScope(scope, all)
		return nil
	})
	return txns, err
}

// Activity returns the user's activity feed, newest first.
func (s *Service) Activity(ctx context.Context, userID string) ([]model.Activity, error) {
	var entries []model.Activity
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		var err error
		entries, err = tx.Activity(ctx, userID)
		if err != nil {
			return fmt.Errorf("loading activity: %w", err)
		}
		return nil
	})
	return entries, err
}

// Export writes the transactions in scope as CSV. Rows that break a record
// rule are still written; the problems are returned for the caller to show.
func (s *Service) Export(ctx context.Context, w io.Writer, scope Scope) ([]export.Problem, error) {
	var (
		txns  []model.Transaction
		known *accounts.Service
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		all, err := tx.AllTransactions(ctx)
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}
		accts, err := tx.AllAccounts(ctx)
		if err != nil {
			return fmt.Errorf("loading accounts: %w", err)
		}
		txns = filterScope(scope, all)
		known = accounts.NewService(accts)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := export.WriteTransactions(w, txns); err != nil {
		return nil, fmt.Errorf("writing export: %w", err)
	}
	return export.Validate(txns, known), nil
}

// rederive replaces the stored categories with the forest of every
// stored transaction.
func rederive(ctx context.Context, tx store.Tx) error {
	all, err := tx.AllTransactions(ctx)
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}
	if err := tx.ReplaceCategories(ctx, category.Derive(all).List()); err != nil {
		return fmt.Errorf("replacing categories: %w", err)
	}
	return nil
}
