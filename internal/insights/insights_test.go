package insights

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/spendlens/internal/model"
)

func txn(id, user, inst, posted, desc string, amount int64, path string) model.Transaction {
	dir := model.DirectionDebit
	if amount > 0 {
		dir = model.DirectionCredit
	}
	return model.Transaction{
		ID: id, UserID: user, InstitutionID: inst, PostedAt: posted,
		DescriptionRaw: desc, AmountCents: amount, CategoryPath: path, Direction: dir,
	}
}

var base = []model.Transaction{
	txn("t1", "u1", "cc1", "2025-12-10", "A", -1000, "Food"),
	txn("t2", "u1", "cc1", "2026-01-10", "A", -1500, "Food"),
	txn("t3", "u1", "cc1", "2026-02-10", "A", -1800, "Food"),
	txn("t4", "u1", "cc1", "2026-02-11", "Payment", 2200, "Transfers"),
	txn("t5", "u1", "cc1", "2025-11-15", "old window", -9999, "Ignore"),
	txn("t6", "u1", "cc2", "2026-02-12", "Other account", -1200, "Travel"),
	txn("t7", "u2", "cc1", "2026-02-12", "Other user", -1200, "Travel"),
	txn("t8", "u1", "cc1", "2026-02-15", "A", -1800, "Food"),
	txn("t9", "u1", "cc1", "2026-02-15", "A", -1800, "Food"),
	txn("t10", "u1", "cc1", "2026-02-16", "", -400, ""),
}

var scope = Scope{UserID: "u1", InstitutionIDs: []string{"cc1"}}

var now = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

func TestBuild_Window(t *testing.T) {
	r := Build(base, scope, now)

	assert.Equal(t, Window{StartMonth: "2025-12", EndMonth: "2026-02", Months: 3}, r.Window)
	assert.Equal(t, Totals{SpendCents: 8300, PaymentCents: 2200, NetCents: -6100, TxCount: 7}, r.Totals)

	var months []string
	for _, m := range r.MonthTrend {
		months = append(months, m.Month)
	}
	assert.Equal(t, []string{"2025-12", "2026-01", "2026-02"}, months)
	assert.Equal(t, MonthSummary{Month: "2026-02", SpendCents: 5800, PaymentCents: 2200, NetCents: -3600}, r.MonthTrend[2])
}

func TestBuild_FourRowExample(t *testing.T) {
	txns := []model.Transaction{
		txn("a", "u1", "i1", "2025-12-05", "X", -1000, ""),
		txn("b", "u1", "i1", "2026-01-05", "Y", -1500, ""),
		txn("c", "u1", "i1", "2026-02-05", "Z", -1800, ""),
		txn("d", "u1", "i1", "2026-02-06", "P", 2200, ""),
	}
	r := Build(txns, Scope{UserID: "u1", InstitutionIDs: []string{"i1"}}, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-12", r.Window.StartMonth)
	assert.Equal(t, "2026-02", r.Window.EndMonth)
	assert.Equal(t, Totals{SpendCents: 4300, PaymentCents: 2200, NetCents: -2100, TxCount: 4}, r.Totals)
}

func TestBuild_TopCategories(t *testing.T) {
	r := Build(base, scope, now)

	require.Len(t, r.TopCategories, 2)
	assert.Equal(t, CategorySpend{CategoryPath: "Food", SpendCents: 7900, PctOfSpend: 95.2, TxCount: 5}, r.TopCategories[0])
	assert.Equal(t, CategorySpend{CategoryPath: "Uncategorized", SpendCents: 400, PctOfSpend: 4.8, TxCount: 1}, r.TopCategories[1])
}

func TestBuild_TopCategoriesTieBreakAndLimit(t *testing.T) {
	var txns []model.Transaction
	add := func(path string, amounts ...int64) {
		for _, a := range amounts {
			txns = append(txns, txn(fmt.Sprint(len(txns)), "u1", "cc1", "2026-02-01", fmt.Sprint(len(txns)), a, path))
		}
	}
	add("One", -600)
	add("Two", -300, -300) // same spend as One, more rows
	add("Three", -500)
	add("Four", -400)
	add("Five", -200)
	add("Six", -100)
	add("  Seven  ", -50)

	r := Build(txns, scope, now)
	require.Len(t, r.TopCategories, MaxTopCategories)
	var got []string
	for _, c := range r.TopCategories {
		got = append(got, c.CategoryPath)
	}
	assert.Equal(t, []string{"Two", "One", "Three", "Four", "Five"}, got)
}

func TestBuild_Recurring(t *testing.T) {
	r := Build(base, scope, now)

	require.Len(t, r.Recurring, 1)
	assert.Equal(t, Recurring{Merchant: "A", MonthsSeen: 3, AvgMonthlySpendCents: 2633, TotalSpendCents: 7900}, r.Recurring[0])
}

func TestBuild_RecurringOrderAndLimit(t *testing.T) {
	var txns []model.Transaction
	for i, m := range []struct {
		name  string
		spend int64
	}{{"SMALL", 100}, {"BIG", 900}, {"MID", 500}, {"TINY", 50}} {
		txns = append(txns,
			txn(fmt.Sprintf("%d-a", i), "u1", "cc1", "2026-01-03", m.name, -m.spend, "Bills"),
			txn(fmt.Sprintf("%d-b", i), "u1", "cc1", "2026-02-03", m.name, -m.spend, "Bills"),
		)
	}
	// One month only: not recurring.
	txns = append(txns, txn("once", "u1", "cc1", "2026-02-04", "ONCE", -99999, "Bills"))

	r := Build(txns, scope, now)
	require.Len(t, r.Recurring, MaxRecurring)
	assert.Equal(t, "BIG", r.Recurring[0].Merchant)
	assert.Equal(t, "MID", r.Recurring[1].Merchant)
	assert.Equal(t, "SMALL", r.Recurring[2].Merchant)
	assert.Equal(t, int64(900), r.Recurring[0].AvgMonthlySpendCents)
}

func TestBuild_Duplicates(t *testing.T) {
	r := Build(base, scope, now)
	assert.Equal(t, Duplicates{SignatureCount: 1, RowCount: 2, SpendImpactCents: 3600}, r.Duplicates)
}

func TestBuild_DuplicateCreditsHaveNoImpact(t *testing.T) {
	txns := []model.Transaction{
		txn("a", "u1", "cc1", "2026-02-01", "REFUND", 500, ""),
		txn("b", "u1", "cc1", "2026-02-01", "REFUND", 500, ""),
		txn("c", "u1", "cc1", "2026-02-01", "  COFFEE  SHOP ", -300, ""),
		txn("d", "u1", "cc1", "2026-02-01", "COFFEE SHOP", -300, ""),
		txn("e", "u1", "cc1", "2026-02-01", "COFFEE SHOP", -300, ""),
	}
	r := Build(txns, scope, now)
	assert.Equal(t, Duplicates{SignatureCount: 2, RowCount: 5, SpendImpactCents: 900}, r.Duplicates)
}

func TestBuild_EmptyScope(t *testing.T) {
	for _, s := range []Scope{
		{UserID: "u1"},
		{UserID: "u1", InstitutionIDs: []string{""}},
		{InstitutionIDs: []string{"cc1"}},
	} {
		r := Build(base, s, now)
		assert.Equal(t, Window{StartMonth: "2025-12", EndMonth: "2026-02", Months: 3}, r.Window)
		assert.Equal(t, Totals{}, r.Totals)
		assert.Empty(t, r.TopCategories)
		assert.NotNil(t, r.MonthTrend)
		assert.Empty(t, r.MonthTrend)
		assert.Empty(t, r.Recurring)
		assert.Equal(t, Duplicates{}, r.Duplicates)
	}
}

func TestBuild_NoRowsInScopeAnchorsToNow(t *testing.T) {
	r := Build(nil, scope, time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-11", r.Window.StartMonth)
	assert.Equal(t, "2026-01", r.Window.EndMonth)
	require.Len(t, r.MonthTrend, 3)
	assert.Equal(t, MonthSummary{Month: "2025-12"}, r.MonthTrend[1])
}

func TestBuild_IgnoresMalformedDates(t *testing.T) {
	txns := append([]model.Transaction{
		txn("bad", "u1", "cc1", "20260301", "BAD", -5000, "Food"),
	}, base...)
	r := Build(txns, scope, now)
	assert.Equal(t, "2026-02", r.Window.EndMonth)
	assert.Equal(t, 7, r.Totals.TxCount)
}

func TestShiftMonth(t *testing.T) {
	tests := []struct {
		month string
		delta int
		want  string
	}{
		{"2026-02", -2, "2025-12"},
		{"2026-01", -1, "2025-12"},
		{"2025-12", 1, "2026-01"},
		{"2026-03", -14, "2025-01"},
		{"2026-06", 0, "2026-06"},
		{"garbage", -2, "garbage"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShiftMonth(tt.month, tt.delta), "ShiftMonth(%q, %d)", tt.month, tt.delta)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(100, 0))
	assert.Equal(t, 33.3, percent(1, 3))
	assert.Equal(t, 66.7, percent(2, 3))
	assert.Equal(t, 100.0, percent(5, 5))
}
