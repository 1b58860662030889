package importer

import (
	"github.com/cleared-dev/spendlens/internal/model"
)

// Draft is one normalized data row before it gets ids and ownership.
type Draft struct {
	PostedAt    string
	Description string
	AmountCents int64
	Direction   model.Direction
}

// Format is a known bank export shape: a header signature plus the
// builder that turns one data row into a Draft.
type Format interface {
	Name() string
	// Header is the normalized header prefix that identifies the format.
	Header() []string
	// Build returns ok=false for rows that carry no transaction.
	Build(row []string) (d Draft, ok bool, err error)
}

// DepositFormat is the chequing/savings export:
// Date, Transaction Details, Funds Out, Funds In.
type DepositFormat struct{}

func (DepositFormat) Name() string { return "deposit" }

func (DepositFormat) Header() []string {
	return []string{"date", "transaction details", "funds out", "funds in"}
}

func (DepositFormat) Build(row []string) (Draft, bool, error) {
	out, in := cell(row, 2), cell(row, 3)
	if out == "" && in == "" {
		return Draft{}, false, nil
	}

	posted, err := parseDate("date", cell(row, 0), usDateFormat)
	if err != nil {
		return Draft{}, false, err
	}

	d := Draft{PostedAt: posted, Description: cell(row, 1)}
	if in != "" {
		cents, err := toCents("funds in", in)
		if err != nil {
			return Draft{}, false, err
		}
		d.AmountCents = abs(cents)
		d.Direction = model.DirectionCredit
	} else {
		cents, err := toCents("funds out", out)
		if err != nil {
			return Draft{}, false, err
		}
		d.AmountCents = -abs(cents)
		d.Direction = model.DirectionDebit
	}
	return d, true, nil
}

// ChargeCardFormat is the card export with "2 Jan 2026" dates:
// Date, Date Processed, Description, Amount. Charges are positive in the
// source file and are stored negated.
type ChargeCardFormat struct{}

func (ChargeCardFormat) Name() string { return "charge-card" }

func (ChargeCardFormat) Header() []string {
	return []string{"date", "date processed", "description", "amount"}
}

func (ChargeCardFormat) Build(row []string) (Draft, bool, error) {
	desc, amount := cell(row, 2), cell(row, 3)
	if desc == "" || amount == "" {
		return Draft{}, false, nil
	}

	cents, err := toCents("amount", amount)
	if err != nil {
		return Draft{}, false, err
	}
	if cents == 0 {
		return Draft{}, false, nil
	}

	posted, err := parseDate("date", cell(row, 0), cardDateFormat)
	if err != nil {
		return Draft{}, false, err
	}

	stored := -cents
	return Draft{
		PostedAt:    posted,
		Description: desc,
		AmountCents: stored,
		Direction:   directionOf(stored),
	}, true, nil
}

// CreditDebitFormat is the generic export with separate debit and credit
// columns. The bank's own category column is ignored.
type CreditDebitFormat struct{}

func (CreditDebitFormat) Name() string { return "credit-debit" }

func (CreditDebitFormat) Header() []string {
	return []string{"transaction date", "posted date", "card no.", "description", "category", "debit", "credit"}
}

func (CreditDebitFormat) Build(row []string) (Draft, bool, error) {
	desc, debit, credit := cell(row, 3), cell(row, 5), cell(row, 6)
	if desc == "" || (debit == "" && credit == "") {
		return Draft{}, false, nil
	}

	var debitCents, creditCents int64
	var err error
	if debit != "" {
		if debitCents, err = toCents("debit", debit); err != nil {
			return Draft{}, false, err
		}
	}
	if credit != "" {
		if creditCents, err = toCents("credit", credit); err != nil {
			return Draft{}, false, err
		}
	}

	// The larger magnitude wins when a malformed row fills both columns.
	var cents int64
	if abs(debitCents) >= abs(creditCents) {
		cents = -abs(debitCents)
	} else {
		cents = abs(creditCents)
	}
	if cents == 0 {
		return Draft{}, false, nil
	}

	dateField, dateValue := "posted date", cell(row, 1)
	if dateValue == "" {
		dateField, dateValue = "transaction date", cell(row, 0)
	}
	posted, err := parseDate(dateField, dateValue, model.DateFormat, usDateFormat)
	if err != nil {
		return Draft{}, false, err
	}

	return Draft{
		PostedAt:    posted,
		Description: desc,
		AmountCents: cents,
		Direction:   directionOf(cents),
	}, true, nil
}
