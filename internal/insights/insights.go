// Package insights computes rolling three-month spend analytics.
package insights

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/spendlens/internal/model"
)

const (
	WindowMonths     = 3
	MaxTopCategories = 5
	MaxRecurring     = 3

	noDescription = "(no description)"
)

type Window struct {
	StartMonth string `json:"startMonth"`
	EndMonth   string `json:"endMonth"`
	Months     int    `json:"months"`
}

type Totals struct {
	SpendCents   int64 `json:"spendCents"`
	PaymentCents int64 `json:"paymentCents"`
	NetCents     int64 `json:"netCents"`
	TxCount      int   `json:"txCount"`
}

type CategorySpend struct {
	CategoryPath string  `json:"categoryPath"`
	SpendCents   int64   `json:"spendCents"`
	PctOfSpend   float64 `json:"pctOfSpend"`
	TxCount      int     `json:"txCount"`
}

type MonthSummary struct {
	Month        string `json:"month"`
	SpendCents   int64  `json:"spendCents"`
	PaymentCents int64  `json:"paymentCents"`
	NetCents     int64  `json:"netCents"`
}

type Recurring struct {
	Merchant             string `json:"merchant"`
	MonthsSeen           int    `json:"monthsSeen"`
	AvgMonthlySpendCents int64  `json:"avgMonthlySpendCents"`
	TotalSpendCents      int64  `json:"totalSpendCents"`
}

type Duplicates struct {
	SignatureCount   int   `json:"signatureCount"`
	RowCount         int   `json:"rowCount"`
	SpendImpactCents int64 `json:"spendImpactCents"`
}

// Report is the full analytics result for one window.
type Report struct {
	Window        Window          `json:"window"`
	Totals        Totals          `json:"totals"`
	TopCategories []CategorySpend `json:"topCategories"`
	MonthTrend    []MonthSummary  `json:"monthTrend"`
	Recurring     []Recurring     `json:"recurring"`
	Duplicates    Duplicates      `json:"duplicates"`
}

// Scope selects whose transactions are analysed.
type Scope struct {
	UserID         string
	InstitutionIDs []string
}

// Build computes the report for transactions in scope. A scope without a
// user or institutions yields an empty report anchored at now's month.
// The window ends at the latest in-scope month, falling back to now.
func Build(txns []model.Transaction, scope Scope, now time.Time) *Report {
	institutions := make(map[string]bool, len(scope.InstitutionIDs))
	for _, id := range scope.InstitutionIDs {
		if id != "" {
			institutions[id] = true
		}
	}

	nowMonth := now.Format("2006-01")
	if scope.UserID == "" || len(institutions) == 0 {
		return emptyReport(nowMonth)
	}

	var scoped []model.Transaction
	endMonth := ""
	for _, t := range txns {
		if t.UserID != scope.UserID || !institutions[t.InstitutionID] {
			continue
		}
		scoped = append(scoped, t)
		if m := t.Month(); m > endMonth {
			endMonth = m
		}
	}
	if endMonth == "" {
		endMonth = nowMonth
	}
	startMonth := ShiftMonth(endMonth, -(WindowMonths - 1))

	r := &Report{
		Window:        Window{StartMonth: startMonth, EndMonth: endMonth, Months: WindowMonths},
		TopCategories: []CategorySpend{},
		Recurring:     []Recurring{},
	}

	var (
		categories     = newTally[*CategorySpend]()
		merchants      = newTally[*merchantSpend]()
		months         = map[string]*MonthSummary{}
		signatures     = map[string]int{}
		signatureOrder []string
	)

	for _, t := range scoped {
		month := t.Month()
		if month == "" || month < startMonth || month > endMonth {
			continue
		}
		amount := t.AmountCents
		magnitude := abs(amount)
		isDebit := t.Direction == model.DirectionDebit
		isCredit := t.Direction == model.DirectionCredit

		r.Totals.TxCount++
		r.Totals.NetCents += amount

		ms := months[month]
		if ms == nil {
			ms = &MonthSummary{Month: month}
			months[month] = ms
		}
		ms.NetCents += amount

		desc := describe(t.DescriptionRaw)
		switch {
		case isDebit:
			r.Totals.SpendCents += magnitude
			ms.SpendCents += magnitude

			c := categories.get(categoryOf(t.CategoryPath), func(k string) *CategorySpend {
				return &CategorySpend{CategoryPath: k}
			})
			c.SpendCents += magnitude
			c.TxCount++

			m := merchants.get(desc, func(k string) *merchantSpend {
				return &merchantSpend{months: map[string]bool{}}
			})
			m.months[month] = true
			m.total += magnitude
		case isCredit:
			r.Totals.PaymentCents += magnitude
			ms.PaymentCents += magnitude
		}

		sig := strings.TrimSpace(t.PostedAt) + "|" + desc + "|" + strconv.FormatInt(amount, 10)
		if signatures[sig] == 0 {
			signatureOrder = append(signatureOrder, sig)
		}
		signatures[sig]++
	}

	r.TopCategories = topCategories(categories, r.Totals.SpendCents)

	for i := 0; i < WindowMonths; i++ {
		month := ShiftMonth(startMonth, i)
		if ms := months[month]; ms != nil {
			r.MonthTrend = append(r.MonthTrend, *ms)
		} else {
			r.MonthTrend = append(r.MonthTrend, MonthSummary{Month: month})
		}
	}

	r.Recurring = recurring(merchants)
	r.Duplicates = duplicates(signatureOrder, signatures)
	return r
}

func emptyReport(month string) *Report {
	return &Report{
		Window: Window{
			StartMonth: ShiftMonth(month, -(WindowMonths - 1)),
			EndMonth:   month,
			Months:     WindowMonths,
		},
		TopCategories: []CategorySpend{},
		MonthTrend:    []MonthSummary{},
		Recurring:     []Recurring{},
	}
}

func topCategories(t *tally[*CategorySpend], totalSpend int64) []CategorySpend {
	out := make([]CategorySpend, 0, len(t.order))
	for _, k := range t.order {
		c := *t.items[k]
		c.PctOfSpend = percent(c.SpendCents, totalSpend)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SpendCents != out[j].SpendCents {
			return out[i].SpendCents > out[j].SpendCents
		}
		return out[i].TxCount > out[j].TxCount
	})
	if len(out) > MaxTopCategories {
		out = out[:MaxTopCategories]
	}
	return out
}

type merchantSpend struct {
	months map[string]bool
	total  int64
}

func recurring(t *tally[*merchantSpend]) []Recurring {
	out := []Recurring{}
	for _, k := range t.order {
		m := t.items[k]
		seen := len(m.months)
		if seen < 2 || m.total <= 0 {
			continue
		}
		out = append(out, Recurring{
			Merchant:             k,
			MonthsSeen:           seen,
			AvgMonthlySpendCents: decimal.NewFromInt(m.total).Div(decimal.NewFromInt(int64(seen))).Round(0).IntPart(),
			TotalSpendCents:      m.total,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalSpendCents > out[j].TotalSpendCents })
	if len(out) > MaxRecurring {
		out = out[:MaxRecurring]
	}
	return out
}

func duplicates(order []string, counts map[string]int) Duplicates {
	var d Duplicates
	for _, sig := range order {
		n := counts[sig]
		if n <= 1 {
			continue
		}
		d.SignatureCount++
		d.RowCount += n
		amount, err := strconv.ParseInt(sig[strings.LastIndex(sig, "|")+1:], 10, 64)
		if err == nil && amount < 0 {
			d.SpendImpactCents += -amount * int64(n)
		}
	}
	return d
}

// percent returns part/total*100 rounded to one decimal place.
func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).Round(1).InexactFloat64()
}

// ShiftMonth moves a YYYY-MM key by delta months across year boundaries.
// Malformed keys are returned unchanged.
func ShiftMonth(month string, delta int) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	total := t.Year()*12 + int(t.Month()) - 1 + delta
	return fmt.Sprintf("%04d-%02d", total/12, total%12+1)
}

func categoryOf(path string) string {
	p := strings.Join(strings.Fields(path), " ")
	if p == "" {
		return model.UncategorizedPath
	}
	return p
}

func describe(desc string) string {
	d := strings.Join(strings.Fields(desc), " ")
	if d == "" {
		return noDescription
	}
	return d
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// tally is a map that remembers first-insertion order, so ties keep the
// order rows were seen in.
type tally[V any] struct {
	items map[string]V
	order []string
}

func newTally[V any]() *tally[V] {
	return &tally[V]{items: map[string]V{}}
}

func (t *tally[V]) get(key string, create func(string) V) V {
	v, ok := t.items[key]
	if !ok {
		v = create(key)
		t.items[key] = v
		t.order = append(t.order, key)
	}
	return v
}
