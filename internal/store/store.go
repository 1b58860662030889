// Package store defines the storage collaborator: an all-or-nothing unit of
// work over transactions, categories, accounts and the activity log.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cleared-dev/spendlens/internal/model"
)

// Driver names.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("not found")

// Tx is the set of operations available inside one unit of work.
type Tx interface {
	// AllTransactions returns every transaction, newest posted first.
	AllTransactions(ctx context.Context) ([]model.Transaction, error)
	TransactionByID(ctx context.Context, id string) (model.Transaction, error)
	// InsertTransactions inserts or replaces by id.
	InsertTransactions(ctx context.Context, txns []model.Transaction) error
	UpdateTransactionCategory(ctx context.Context, id, path string, updatedAt time.Time) error

	// AllCategories returns every category ordered by id.
	AllCategories(ctx context.Context) ([]model.Category, error)
	// ReplaceCategories swaps the whole category set.
	ReplaceCategories(ctx context.Context, cats []model.Category) error

	AllAccounts(ctx context.Context) ([]model.Account, error)
	UpsertAccount(ctx context.Context, a model.Account) error

	AppendActivity(ctx context.Context, a model.Activity) error
	// Activity returns a user's activity, newest first.
	Activity(ctx context.Context, userID string) ([]model.Activity, error)
}

// Store runs units of work. If fn returns an error nothing it did is kept.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// SortTransactions orders by posted_at then created_at, both descending.
func SortTransactions(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if txns[i].PostedAt != txns[j].PostedAt {
			return txns[i].PostedAt > txns[j].PostedAt
		}
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
}

// SortAccounts orders by creation time, then name.
func SortAccounts(accts []model.Account) {
	sort.SliceStable(accts, func(i, j int) bool {
		if !accts[i].CreatedAt.Equal(accts[j].CreatedAt) {
			return accts[i].CreatedAt.Before(accts[j].CreatedAt)
		}
		return accts[i].Name < accts[j].Name
	})
}
