package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cleared-dev/spendlens/internal/categorize"
	"github.com/cleared-dev/spendlens/internal/insights"
	"github.com/cleared-dev/spendlens/internal/logger"
	"github.com/cleared-dev/spendlens/internal/model"
	"github.com/cleared-dev/spendlens/internal/store"
)

// CategorizeStored runs c over the uncategorized transactions in scope and
// saves what it assigned. When c stops early, with a *categorize.OracleError
// or a cancelled ctx, the completed batches are still saved before the error
// is returned.
func (s *Service) CategorizeStored(ctx context.Context, c *categorize.Coordinator, scope Scope) (*categorize.Result, error) {
	var (
		pending  []model.Transaction
		existing []model.Category
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		all, err := tx.AllTransactions(ctx)
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}
		for _, t := range filterScope(scope, all) {
			if t.IsUncategorized() {
				pending = append(pending, t)
			}
		}
		existing, err = tx.AllCategories(ctx)
		if err != nil {
			return fmt.Errorf("loading categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Oldest first, so batches follow the order rows were posted.
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].PostedAt < pending[j].PostedAt })

	res, runErr := c.Categorize(ctx, pending, existing)

	var changed []model.Transaction
	for _, t := range res.Transactions {
		if !t.IsUncategorized() {
			changed = append(changed, t)
		}
	}

	if len(changed) > 0 {
		now := s.now()
		saveCtx := context.WithoutCancel(ctx)
		err = s.store.RunInTransaction(saveCtx, func(tx store.Tx) error {
			for _, t := range changed {
				if err := tx.UpdateTransactionCategory(saveCtx, t.ID, canonicalPath(t.CategoryPath), now); err != nil {
					return fmt.Errorf("updating transaction %s: %w", t.ID, err)
				}
			}
			return rederive(saveCtx, tx)
		})
		if err != nil {
			return res, errors.Join(runErr, err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int("categorized", res.Summary.Categorized).
		Int("uncategorized", res.Summary.Uncategorized).
		Int("batches", res.Summary.Completed).
		Msg("stored transactions categorized")
	return res, runErr
}

// Insights builds the spend report for scope.
func (s *Service) Insights(ctx context.Context, scope Scope, now time.Time) (*insights.Report, error) {
	var report *insights.Report
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		all, err := tx.AllTransactions(ctx)
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}
		report = insights.Build(all, scope, now)
		return nil
	})
	return report, err
}

// Search returns transactions in scope whose category matches query, newest
// posted first. Every query token must be contained in some token of the
// category path; an empty query matches everything. limit <= 0 means no limit.
func (s *Service) Search(ctx context.Context, scope Scope, query string, limit int) ([]model.Transaction, error) {
	txns, err := s.Transactions(ctx, scope)
	if err != nil {
		return nil, err
	}

	queryTokens := searchTokens(query)
	matched := []model.Transaction{}
	for _, t := range txns {
		if matchesCategory(t.CategoryPath, queryTokens) {
			matched = append(matched, t)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].PostedAt > matched[j].PostedAt })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func searchTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
}

func matchesCategory(path string, queryTokens []string) bool {
	if len(queryTokens) == 0 {
		return true
	}
	categoryTokens := searchTokens(path)
	for _, q := range queryTokens {
		found := false
		for _, c := range categoryTokens {
			if strings.Contains(c, q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
