package model

import "time"

// Direction says whether money left or entered the account.
type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// DateFormat is the canonical posted_at layout.
const DateFormat = "2006-01-02"

// UncategorizedPath is the display path of the root category.
const UncategorizedPath = "Uncategorized"

// SourceTypeCSV tags transactions that came from a CSV file.
const SourceTypeCSV = "csv"

// Source records where a transaction came from.
type Source struct {
	Type     string `json:"type"`
	FileName string `json:"file_name,omitempty"`
}

// Transaction is the canonical normalized transaction record.
type Transaction struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	InstitutionID  string    `json:"institution_id"`
	PostedAt       string    `json:"posted_at"` // YYYY-MM-DD
	DescriptionRaw string    `json:"description_raw"`
	AmountCents    int64     `json:"amount_cents"` // negative = money leaving the account
	Currency       string    `json:"currency"`
	Direction      Direction `json:"direction"`
	CategoryPath   string    `json:"category_path"`
	Source         *Source   `json:"source,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Month returns the YYYY-MM prefix of PostedAt, or "" if it is not a date.
func (t Transaction) Month() string {
	if len(t.PostedAt) < 7 {
		return ""
	}
	m := t.PostedAt[:7]
	for i, r := range m {
		if i == 4 {
			if r != '-' {
				return ""
			}
			continue
		}
		if r < '0' || r > '9' {
			return ""
		}
	}
	return m
}

// IsUncategorized reports whether the transaction still sits in the root category.
func (t Transaction) IsUncategorized() bool {
	return t.CategoryPath == "" || t.CategoryPath == UncategorizedPath
}
