package activity

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/spendlens/internal/id"
	"github.com/cleared-dev/spendlens/internal/model"
)

// DefaultFileName names imports whose source file is unknown.
const DefaultFileName = "unknown.csv"

// Header is the CSV header for activity listings.
const Header = "datetime,type,message,institution_id,date_from,date_to,transaction_count,file_name"

const (
	numFields      = 8
	colDatetime    = 0
	colType        = 1
	colMessage     = 2
	colInstitution = 3
	colDateFrom    = 4
	colDateTo      = 5
	colCount       = 6
	colFileName    = 7
)

// ImportMessage renders the feed line for a CSV import.
func ImportMessage(count int, institution, from, to, fileName string) string {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return fmt.Sprintf("Imported %d transactions into %s (%s to %s) from %s", count, institution, from, to, fileName)
}

// NewImport builds the activity entry recorded after importing txns into acct.
func NewImport(acct model.Account, txns []model.Transaction, fileName string, now time.Time) model.Activity {
	if fileName == "" {
		fileName = DefaultFileName
	}
	from, to := DateRange(txns)
	return model.Activity{
		ID:       id.New(id.PrefixActivity),
		UserID:   acct.UserID,
		Datetime: now,
		Type:     model.ActivityCSVImport,
		Message:  ImportMessage(len(txns), acct.Name, from, to, fileName),
		Metadata: &model.ImportMetadata{
			InstitutionID:    acct.ID,
			InstitutionName:  acct.Name,
			DateFrom:         from,
			DateTo:           to,
			TransactionCount: len(txns),
			FileName:         fileName,
		},
	}
}

// DateRange returns the earliest and latest posted dates in txns.
func DateRange(txns []model.Transaction) (from, to string) {
	for _, t := range txns {
		if from == "" || t.PostedAt < from {
			from = t.PostedAt
		}
		if to == "" || t.PostedAt > to {
			to = t.PostedAt
		}
	}
	return from, to
}

// MarshalEntry converts an Activity to a CSV row.
func MarshalEntry(a model.Activity) []string {
	row := make([]string, numFields)
	row[colDatetime] = a.Datetime.UTC().Format(time.RFC3339)
	row[colType] = string(a.Type)
	row[colMessage] = a.Message
	if m := a.Metadata; m != nil {
		row[colInstitution] = m.InstitutionID
		row[colDateFrom] = m.DateFrom
		row[colDateTo] = m.DateTo
		row[colCount] = strconv.Itoa(m.TransactionCount)
		row[colFileName] = m.FileName
	}
	return row
}

// UnmarshalEntry converts a CSV row to an Activity. The institution name is
// not part of the row and is left empty.
func UnmarshalEntry(record []string) (model.Activity, error) {
	if len(record) != numFields {
		return model.Activity{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colDatetime])
	if err != nil {
		return model.Activity{}, fmt.Errorf("parsing datetime %q: %w", record[colDatetime], err)
	}

	a := model.Activity{
		Datetime: ts,
		Type:     model.ActivityType(record[colType]),
		Message:  record[colMessage],
	}
	if record[colInstitution] != "" {
		count, err := strconv.Atoi(record[colCount])
		if err != nil {
			return model.Activity{}, fmt.Errorf("parsing transaction_count %q: %w", record[colCount], err)
		}
		a.Metadata = &model.ImportMetadata{
			InstitutionID:    record[colInstitution],
			DateFrom:         record[colDateFrom],
			DateTo:           record[colDateTo],
			TransactionCount: count,
			FileName:         record[colFileName],
		}
	}
	return a, nil
}

// Write renders entries as CSV with a header row.
func Write(w io.Writer, entries []model.Activity) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read parses a listing produced by Write.
func Read(r io.Reader) ([]model.Activity, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []model.Activity
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
