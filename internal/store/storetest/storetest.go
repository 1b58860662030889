// Package storetest is a conformance suite run against every storage driver.
package storetest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/spendlens/internal/model"
	"github.com/cleared-dev/spendlens/internal/store"
)

// Opener opens (or reopens) a store at path.
type Opener func(path string) (store.Store, error)

var (
	t0 = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

// Account returns a fixture account.
func Account(id string) model.Account {
	return model.Account{
		ID: id, UserID: "u1", Type: model.AccountTypeCreditCard, Name: "Visa " + id,
		Aliases:   model.Aliases{Nickname: "travel", Last4: "4242", SwitchTokens: []string{"vis"}},
		CreatedAt: t0, UpdatedAt: t0,
	}
}

// Transaction returns a fixture transaction owned by institution.
func Transaction(id, institution, posted string, amount int64, created time.Time) model.Transaction {
	return model.Transaction{
		ID: id, UserID: "u1", InstitutionID: institution, PostedAt: posted,
		DescriptionRaw: "DESC " + id, AmountCents: amount, Currency: "CAD",
		Direction: model.DirectionDebit, CategoryPath: model.UncategorizedPath,
		Source:    &model.Source{Type: model.SourceTypeCSV, FileName: "a.csv"},
		CreatedAt: created, UpdatedAt: created,
	}
}

// Run runs the whole suite.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store, path string, open Opener)
	}{
		{"SeedsRootCategory", testSeedsRoot},
		{"Accounts", testAccounts},
		{"Transactions", testTransactions},
		{"UpdateCategory", testUpdateCategory},
		{"ReplaceCategories", testReplaceCategories},
		{"Activity", testActivity},
		{"Rollback", testRollback},
		{"UnknownInstitution", testUnknownInstitution},
		{"Persistence", testPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data", "spendlens.db")
			s, err := open(path)
			require.NoError(t, err)
			defer s.Close()
			tt.fn(t, s, path, open)
		})
	}
}

func run(t *testing.T, s store.Store, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, s.RunInTransaction(context.Background(), fn))
}

func testSeedsRoot(t *testing.T, s store.Store, _ string, _ Opener) {
	run(t, s, func(tx store.Tx) error {
		cats, err := tx.AllCategories(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []model.Category{model.Root()}, cats)
		return nil
	})
}

func testAccounts(t *testing.T, s store.Store, _ string, _ Opener) {
	ctx := context.Background()
	b := Account("b")
	b.CreatedAt = t1
	run(t, s, func(tx store.Tx) error {
		require.NoError(t, tx.UpsertAccount(ctx, b))
		require.NoError(t, tx.UpsertAccount(ctx, Account("a")))
		return nil
	})

	run(t, s, func(tx store.Tx) error {
		accts, err := tx.AllAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accts, 2)
		assert.Equal(t, Account("a"), accts[0])
		assert.Equal(t, "b", accts[1].ID)

		// Update keeps the original creation time.
		changed := Account("a")
		changed.Name = "Renamed"
		changed.Aliases.SwitchTokens = nil
		changed.CreatedAt = t2
		changed.UpdatedAt = t2
		return tx.UpsertAccount(ctx, changed)
	})

	run(t, s, func(tx store.Tx) error {
		accts, err := tx.AllAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accts, 2)
		assert.Equal(t, "Renamed", accts[0].Name)
		assert.Equal(t, t0, accts[0].CreatedAt)
		assert.Equal(t, t2, accts[0].UpdatedAt)
		assert.Empty(t, accts[0].Aliases.SwitchTokens)
		return nil
	})
}

func testTransactions(t *testing.T, s store.Store, _ string, _ Opener) {
	ctx := context.Background()
	noSource := Transaction("t4", "a", "2026-01-05", -400, t0)
	noSource.Source = nil
	run(t, s, func(tx store.Tx) error {
		require.NoError(t, tx.UpsertAccount(ctx, Account("a")))
		return tx.InsertTransactions(ctx, []model.Transaction{
			Transaction("t1", "a", "2026-01-05", -100, t0),
			Transaction("t2", "a", "2026-01-07", -200, t0),
			Transaction("t3", "a", "2026-01-05", -300, t1),
			noSource,
		})
	})

	run(t, s, func(tx store.Tx) error {
		txns, err := tx.AllTransactions(ctx)
		require.NoError(t, err)
		var ids []string
		for _, txn := range txns {
			ids = append(ids, txn.ID)
		}
		require.Len(t, ids, 4)
		assert.Equal(t, "t2", ids[0])
		assert.Equal(t, "t3", ids[1])
		assert.ElementsMatch(t, []string{"t1", "t4"}, ids[2:])

		got, err := tx.TransactionByID(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, Transaction("t1", "a", "2026-01-05", -100, t0), got)

		got, err = tx.TransactionByID(ctx, "t4")
		require.NoError(t, err)
		assert.Nil(t, got.Source)

		_, err = tx.TransactionByID(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)

		// Insert replaces by id.
		replaced := Transaction("t1", "a", "2026-01-05", -999, t0)
		return tx.InsertTransactions(ctx, []model.Transaction{replaced})
	})

	run(t, s, func(tx store.Tx) error {
		txns, err := tx.AllTransactions(ctx)
		require.NoError(t, err)
		assert.Len(t, txns, 4)
		got, err := tx.TransactionByID(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(-999), got.AmountCents)
		return nil
	})
}

func testUpdateCategory(t *testing.T, s store.Store, _ string, _ Opener) {
	ctx := context.Background()
	run(t, s, func(tx store.Tx) error {
		require.NoError(t, tx.UpsertAccount(ctx, Account("a")))
		return tx.InsertTransactions(ctx, []model.Transaction{Transaction("t1", "a", "2026-01-05", -100, t0)})
	})

	run(t, s, func(tx store.Tx) error {
		require.NoError(t, tx.UpdateTransactionCategory(ctx, "t1", "Food > Coffee", t2))
		err := tx.UpdateTransactionCategory(ctx, "nope", "Food", t2)
		assert.ErrorIs(t, err, store.ErrNotFound)

		got, err := tx.TransactionByID(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Food > Coffee", got.CategoryPath)
		assert.Equal(t, t2, got.UpdatedAt)
		assert.Equal(t, t0, got.CreatedAt)
		return nil
	})
}

func testReplaceCategories(t *testing.T, s store.Store, _ string, _ Opener) {
	ctx := context.Background()
	cats := []model.Category{
		{ID: "food.coffee", Name: "Coffee", ParentID: "food"},
		model.Root(),
		{ID: "food", Name: "Food"},
	}
	run(t, s, func(tx store.Tx) error { return tx.ReplaceCategories(ctx, cats) })
	run(t, s, func(tx store.Tx) error {
		got, err := tx.AllCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.Category{cats[2], cats[0], cats[1]}, got)

		return tx.ReplaceCategories(ctx, []model.Category{model.Root()})
	})
	run(t, s, func(tx store.Tx) error {
		got, err := tx.AllCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.Category{model.Root()}, got)
		return nil
	})
}

func testActivity(t *testing.T, s store.Store, _ string, _ Opener) {
	ctx := context.Background()
	meta := &model.ImportMetadata{
		InstitutionID: "a", InstitutionName: "Visa", DateFrom: "2026-01-01", DateTo: "2026-01-31",
		TransactionCount: 3, FileName: "jan.csv",
	}
	run(t, s, func(tx store.Tx) error {
		require.NoError(t, tx.AppendActivity(ctx, model.Activity{ID: "x1", UserID: "u1", Datetime: t0, Type: model.ActivityCSVImport, Message: "first", Metadata: meta}))
		require.NoError(t, tx.AppendActivity(ctx, model.Activity{ID: "x2", UserID: "u1", Datetime: t2, Message: "second"}))
		return tx.AppendActivity(ctx, model.Activity{ID: "x3", UserID: "u2", Datetime: t1, Message: "other"})
	})
	run(t, s, func(tx store.Tx) error {
		got, err := tx.Activity(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "second", got[0].Message)
		assert.Nil(t, got[0].Metadata)
		assert.Equal(t, model.Activity{ID: "x1", UserID: "u1", Datetime: t0, Type: model.ActivityCSVImport, Message: "first", Metadata: meta}, got[1])

		none, err := tx.Activity(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
}

func testRollback(t *testing.T, s store.Store, _ string, _ Opener) {
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.UpsertAccount(ctx, Account("a")))
		require.NoError(t, tx.InsertTransactions(ctx, []model.Transaction{Transaction("t1", "a", "2026-01-05", -100, t0)}))
		require.NoError(t, tx.ReplaceCategories(ctx, []model.Category{model.Root(), {ID: "food", Name: "Food"}}))
		require.NoError(t, tx.AppendActivity(ctx, model.Activity{ID: "x1", UserID: "u1", Datetime: t0, Message: "m"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	run(t, s, func(tx store.Tx) error {
		txns, err := tx.AllTransactions(ctx)
		require.NoError(t, err)
		assert.Empty(t, txns)
		accts, err := tx.AllAccounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accts)
		cats, err := tx.AllCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.Category{model.Root()}, cats)
		acts, err := tx.Activity(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, acts)
		return nil
	})
}

func testUnknownInstitution(t *testing.T, s store.Store, _ string, _ Opener) {
	ctx := context.Background()
	err := s.RunInTransaction(ctx, func(tx store.Tx) error {
		return tx.InsertTransactions(ctx, []model.Transaction{Transaction("t1", "ghost", "2026-01-05", -100, t0)})
	})
	assert.Error(t, err)
}

func testPersistence(t *testing.T, s store.Store, path string, open Opener) {
	ctx := context.Background()
	run(t, s, func(tx store.Tx) error {
		require.NoError(t, tx.UpsertAccount(ctx, Account("a")))
		return tx.InsertTransactions(ctx, []model.Transaction{Transaction("t1", "a", "2026-01-05", -100, t0)})
	})
	require.NoError(t, s.Close())

	reopened, err := open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.RunInTransaction(ctx, func(tx store.Tx) error {
		txns, err := tx.AllTransactions(ctx)
		require.NoError(t, err)
		assert.Len(t, txns, 1)
		cats, err := tx.AllCategories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.Category{model.Root()}, cats)
		return nil
	}))
}
