package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/spendlens/internal/model"
)

// Header is the CSV header of a transaction export.
const Header = "id,posted_at,description_raw,amount,currency,direction,category_path,institution_id,source_file_name"

const (
	numFields      = 9
	colID          = 0
	colPostedAt    = 1
	colDesc        = 2
	colAmount      = 3
	colCurrency    = 4
	colDirection   = 5
	colCategory    = 6
	colInstitution = 7
	colSourceFile  = 8
)

// ReadTransactions reads transactions from an export.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading export CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var txns []model.Transaction
	for i, rec := range records[1:] {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// WriteTransactions writes txns with a header row.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row. Amounts are signed
// major units with two decimals.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colPostedAt] = t.PostedAt
	row[colDesc] = t.DescriptionRaw
	row[colAmount] = decimal.New(t.AmountCents, -2).StringFixed(2)
	row[colCurrency] = t.Currency
	row[colDirection] = string(t.Direction)
	row[colCategory] = t.CategoryPath
	row[colInstitution] = t.InstitutionID
	if t.Source != nil {
		row[colSourceFile] = t.Source.FileName
	}
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	cents := amount.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return model.Transaction{}, fmt.Errorf("amount %q out of range", record[colAmount])
	}

	t := model.Transaction{
		ID:             record[colID],
		PostedAt:       record[colPostedAt],
		DescriptionRaw: record[colDesc],
		AmountCents:    cents.IntPart(),
		Currency:       record[colCurrency],
		Direction:      model.Direction(record[colDirection]),
		CategoryPath:   record[colCategory],
		InstitutionID:  record[colInstitution],
	}
	if record[colSourceFile] != "" {
		t.Source = &model.Source{Type: model.SourceTypeCSV, FileName: record[colSourceFile]}
	}
	return t, nil
}
