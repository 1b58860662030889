package ledger

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/spendlens/internal/categorize"
	"github.com/cleared-dev/spendlens/internal/export"
	"github.com/cleared-dev/spendlens/internal/model"
	"github.com/cleared-dev/spendlens/internal/store"
	"github.com/cleared-dev/spendlens/internal/store/boltstore"
	"github.com/cleared-dev/spendlens/internal/store/sqlite"
	"github.com/cleared-dev/spendlens/internal/store/storetest"
)

var clock = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

var drivers = map[string]storetest.Opener{
	"sqlite": func(p string) (store.Store, error) { return sqlite.Open(p) },
	"bolt":   func(p string) (store.Store, error) { return boltstore.Open(p) },
}

// eachDriver runs fn against a fresh service per storage driver, with
// institutions b1 (bank) and c1 (credit) owned by u1.
func eachDriver(t *testing.T, fn func(t *testing.T, svc *Service)) {
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			st, err := open(filepath.Join(t.TempDir(), "spendlens.db"))
			require.NoError(t, err)
			defer st.Close()

			svc := NewService(st, WithClock(func() time.Time { return clock }))
			ctx := context.Background()
			bank := storetest.Account("b1")
			bank.Type = model.AccountTypeBank
			bank.Name = "Simplii"
			require.NoError(t, svc.AddAccount(ctx, bank))
			require.NoError(t, svc.AddAccount(ctx, storetest.Account("c1")))
			fn(t, svc)
		})
	}
}

func draft(id, posted, desc string, cents int64, path string) model.Transaction {
	dir := model.DirectionDebit
	if cents > 0 {
		dir = model.DirectionCredit
	}
	return model.Transaction{
		ID: id, UserID: "u1", PostedAt: posted, DescriptionRaw: desc,
		AmountCents: cents, Currency: "CAD", Direction: dir, CategoryPath: path,
	}
}

func scope(ids ...string) Scope {
	return Scope{UserID: "u1", InstitutionIDs: ids}
}

func TestImport(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		res, err := svc.Import(ctx, "b1", []model.Transaction{
			draft("t1", "2026-02-01", "COFFEE", -450, "Food > Coffee"),
			draft("t2", "2026-02-03", "PAYROLL", 200000, ""),
		}, "")
		require.NoError(t, err)

		assert.Equal(t, 2, res.Count)
		assert.Equal(t, "Simplii", res.AccountName)
		assert.Equal(t, model.ActivityCSVImport, res.Activity.Type)
		assert.Equal(t, "Imported 2 transactions into Simplii (2026-02-01 to 2026-02-03) from unknown.csv", res.Activity.Message)

		txns, err := svc.Transactions(ctx, scope("b1"))
		require.NoError(t, err)
		require.Len(t, txns, 2)
		assert.Equal(t, "t2", txns[0].ID)
		assert.Equal(t, model.UncategorizedPath, txns[0].CategoryPath)
		assert.Equal(t, "b1", txns[1].InstitutionID)
		assert.Equal(t, &model.Source{Type: model.SourceTypeCSV, FileName: "unknown.csv"}, txns[1].Source)

		forest, err := svc.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Food > Coffee", forest.PathOf("food.coffee"))

		feed, err := svc.Activity(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, 2, feed[0].Metadata.TransactionCount)
		assert.Equal(t, "b1", feed[0].Metadata.InstitutionID)
	})
}

func TestImport_Errors(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()

		_, err := svc.Import(ctx, "b1", nil, "x.csv")
		assert.ErrorIs(t, err, ErrNothingToImport)

		_, err = svc.Import(ctx, "nope", []model.Transaction{draft("t1", "2026-02-01", "A", -1, "")}, "x.csv")
		assert.ErrorIs(t, err, ErrUnknownAccount)

		stranger := draft("t2", "2026-02-01", "B", -1, "")
		stranger.UserID = "u2"
		_, err = svc.Import(ctx, "b1", []model.Transaction{draft("t1", "2026-02-01", "A", -1, ""), stranger}, "x.csv")
		require.ErrorIs(t, err, ErrUserMismatch)
		assert.Contains(t, err.Error(), "does not match selected institution user")

		// Nothing from the rejected import is kept.
		txns, err := svc.Transactions(ctx, scope("b1"))
		require.NoError(t, err)
		assert.Empty(t, txns)
		feed, err := svc.Activity(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, feed)
	})
}

func TestSetCategory(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.Import(ctx, "c1", []model.Transaction{draft("t1", "2026-02-01", "BUS", -300, "")}, "feb.csv")
		require.NoError(t, err)

		got, err := svc.SetCategory(ctx, "t1", "  transport >  transit ")
		require.NoError(t, err)
		assert.Equal(t, "transport > transit", got.CategoryPath)
		assert.True(t, clock.Equal(got.UpdatedAt))

		forest, err := svc.Categories(ctx)
		require.NoError(t, err)
		_, ok := forest.Get("transport.transit")
		assert.True(t, ok)

		got, err = svc.SetCategory(ctx, "t1", "UNCATEGORIZED")
		require.NoError(t, err)
		assert.Equal(t, model.UncategorizedPath, got.CategoryPath)
		forest, err = svc.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, forest.Len())

		_, err = svc.SetCategory(ctx, "missing", "Food")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestCategorizeStored(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.Import(ctx, "b1", []model.Transaction{
			draft("t1", "2026-02-01", "COFFEE", -450, ""),
			draft("t2", "2026-02-02", "GROCER", -9000, ""),
			draft("t3", "2026-02-03", "RENT", -150000, "Housing"),
		}, "feb.csv")
		require.NoError(t, err)
		_, err = svc.Import(ctx, "c1", []model.Transaction{draft("t4", "2026-02-04", "TAXI", -2000, "")}, "card.csv")
		require.NoError(t, err)

		var seen []string
		oracle := categorize.OracleFunc(func(_ context.Context, req *categorize.Request) (*categorize.Response, error) {
			resp := &categorize.Response{}
			for _, ref := range req.Data.Transactions {
				seen = append(seen, ref.TransactionID)
				conf := 0.9
				if ref.TransactionID == "t2" {
					conf = 0.2
				}
				resp.Assignments = append(resp.Assignments, categorize.Assignment{
					TransactionID: ref.TransactionID, CategoryPath: "Food > " + ref.DescriptionRaw, Confidence: conf,
				})
			}
			return resp, nil
		})

		res, err := svc.CategorizeStored(ctx, categorize.NewCoordinator(oracle), scope("b1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2"}, seen, "only uncategorized rows in scope")
		assert.Equal(t, 1, res.Summary.Categorized)
		assert.Equal(t, 1, res.Summary.Uncategorized)

		txns, err := svc.Transactions(ctx, scope("b1", "c1"))
		require.NoError(t, err)
		paths := map[string]string{}
		for _, tx := range txns {
			paths[tx.ID] = tx.CategoryPath
		}
		assert.Equal(t, map[string]string{
			"t1": "Food > COFFEE",
			"t2": model.UncategorizedPath,
			"t3": "Housing",
			"t4": model.UncategorizedPath,
		}, paths)

		forest, err := svc.Categories(ctx)
		require.NoError(t, err)
		_, ok := forest.Get("food.coffee")
		assert.True(t, ok)
	})
}

func TestCategorizeStored_PartialFailure(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.Import(ctx, "b1", []model.Transaction{
			draft("t1", "2026-02-01", "A", -100, ""),
			draft("t2", "2026-02-02", "B", -100, ""),
			draft("t3", "2026-02-03", "C", -100, ""),
		}, "feb.csv")
		require.NoError(t, err)

		calls := 0
		oracle := categorize.OracleFunc(func(_ context.Context, req *categorize.Request) (*categorize.Response, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("quota exceeded")
			}
			ref := req.Data.Transactions[0]
			return &categorize.Response{Assignments: []categorize.Assignment{
				{TransactionID: ref.TransactionID, CategoryPath: "Shopping", Confidence: 1},
			}}, nil
		})

		_, err = svc.CategorizeStored(ctx, categorize.NewCoordinator(oracle, categorize.WithBatchSize(1)), scope("b1"))
		var oe *categorize.OracleError
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, 2, oe.Batch)

		results, err := svc.Search(ctx, scope("b1"), "shop", 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "t1", results[0].ID)
	})
}

func TestInsights(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.Import(ctx, "b1", []model.Transaction{
			draft("t1", "2026-01-05", "COFFEE", -500, "Food"),
			draft("t2", "2026-02-05", "COFFEE", -700, "Food"),
			draft("t3", "2026-02-06", "REFUND", 200, ""),
		}, "feb.csv")
		require.NoError(t, err)

		report, err := svc.Insights(ctx, scope("b1"), clock)
		require.NoError(t, err)
		assert.Equal(t, "2026-02", report.Window.EndMonth)
		assert.Equal(t, int64(1200), report.Totals.SpendCents)
		assert.Equal(t, int64(200), report.Totals.PaymentCents)
		require.Len(t, report.TopCategories, 1)
		assert.Equal(t, "Food", report.TopCategories[0].CategoryPath)

		empty, err := svc.Insights(ctx, scope(), clock)
		require.NoError(t, err)
		assert.Zero(t, empty.Totals.TxCount)
		assert.Empty(t, empty.MonthTrend)
	})
}

func TestSearch(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.Import(ctx, "b1", []model.Transaction{
			draft("t1", "2026-02-01", "A", -100, "Food > Coffee"),
			draft("t2", "2026-02-03", "B", -100, "Food > Groceries"),
			draft("t3", "2026-02-02", "C", -100, "Travel > Air"),
		}, "feb.csv")
		require.NoError(t, err)

		ids := func(txns []model.Transaction) []string {
			var out []string
			for _, tx := range txns {
				out = append(out, tx.ID)
			}
			return out
		}

		got, err := svc.Search(ctx, scope("b1"), "FOOD", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"t2", "t1"}, ids(got))

		got, err = svc.Search(ctx, scope("b1"), "foo cof", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, ids(got))

		got, err = svc.Search(ctx, scope("b1"), "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"t2", "t3"}, ids(got))

		got, err = svc.Search(ctx, scope("c1"), "food", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestExport(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		_, err := svc.Import(ctx, "b1", []model.Transaction{draft("t1", "2026-02-01", "COFFEE", -450, "Food")}, "feb.csv")
		require.NoError(t, err)

		var buf bytes.Buffer
		problems, err := svc.Export(ctx, &buf, scope("b1"))
		require.NoError(t, err)
		assert.Empty(t, problems)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "t1,2026-02-01,COFFEE,-4.50,CAD,DEBIT,Food,b1,feb.csv", lines[1])
	})
}

func TestRestore(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		in := export.Header + "\n" +
			"t1,2026-02-01,COFFEE,-4.50,CAD,DEBIT,Food > Coffee,b1,feb.csv\n" +
			"t2,2026-02-02,HOTEL,-30.00,CAD,DEBIT,Travel,c1,\n" +
			"t3,2026-02-03,PAYROLL,2000.00,CAD,CREDIT,Income,b1,feb.csv\n"
		txns, err := export.ReadTransactions(strings.NewReader(in))
		require.NoError(t, err)

		results, err := svc.Restore(ctx, "u1", txns, "backup.csv")
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "Simplii", results[0].AccountName)
		assert.Equal(t, 2, results[0].Count)
		assert.Equal(t, "Visa c1", results[1].AccountName)
		assert.Equal(t, 1, results[1].Count)

		bank, err := svc.Transactions(ctx, scope("b1"))
		require.NoError(t, err)
		require.Len(t, bank, 2)
		for _, txn := range bank {
			assert.Equal(t, "u1", txn.UserID)
			assert.Equal(t, "feb.csv", txn.Source.FileName)
		}
		card, err := svc.Transactions(ctx, scope("c1"))
		require.NoError(t, err)
		require.Len(t, card, 1)
		assert.Equal(t, "backup.csv", card[0].Source.FileName)

		forest, err := svc.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Food > Coffee", forest.PathOf("food.coffee"))

		feed, err := svc.Activity(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, feed, 2)

		// Restoring the same export again replaces rows by id.
		_, err = svc.Restore(ctx, "u1", txns, "backup.csv")
		require.NoError(t, err)
		bank, err = svc.Transactions(ctx, scope("b1"))
		require.NoError(t, err)
		assert.Len(t, bank, 2)
	})
}

func TestRestore_RejectsInvalidRows(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		gone := draft("t2", "2026-02-02", "GONE", -100, "Food")
		gone.InstitutionID = "acct_gone"
		ok := draft("t1", "2026-02-01", "COFFEE", -450, "Food")
		ok.InstitutionID = "b1"

		_, err := svc.Restore(ctx, "u1", []model.Transaction{ok, gone}, "backup.csv")
		require.ErrorIs(t, err, ErrInvalidExport)
		assert.Contains(t, err.Error(), `unknown institution "acct_gone"`)

		// Institutions of another user are not restore targets.
		_, err = svc.Restore(ctx, "u2", []model.Transaction{ok}, "backup.csv")
		require.ErrorIs(t, err, ErrInvalidExport)

		_, err = svc.Restore(ctx, "u1", nil, "backup.csv")
		assert.ErrorIs(t, err, ErrNothingToImport)

		txns, err := svc.Transactions(ctx, scope("b1"))
		require.NoError(t, err)
		assert.Empty(t, txns)
		feed, err := svc.Activity(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, feed)
	})
}

func TestAccounts(t *testing.T) {
	eachDriver(t, func(t *testing.T, svc *Service) {
		accts, err := svc.Accounts(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"b1"}, accts.ScopeIDs("bank", "all"))
		assert.Equal(t, []string{"c1"}, accts.ScopeIDs("credit", "all"))

		none, err := svc.Accounts(context.Background(), "u2")
		require.NoError(t, err)
		assert.Empty(t, none.All())
	})
}
