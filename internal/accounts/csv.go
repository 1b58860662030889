package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/spendlens/internal/model"
)

const (
	numFields   = 6
	colID       = 0
	colType     = 1
	colName     = 2
	colNickname = 3
	colLast4    = 4
	colTokens   = 5
	tokenJoiner = ";"
)

var csvHeader = []string{"id", "type", "name", "nickname", "last4", "switch_tokens"}

// ReadAccounts reads an institutions CSV. Rows with an empty id are new
// accounts; the caller assigns ids and owners.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes accounts in the layout ReadAccounts expects.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colID] = acct.ID
	row[colType] = string(acct.Type)
	row[colName] = acct.Name
	row[colNickname] = acct.Aliases.Nickname
	row[colLast4] = acct.Aliases.Last4
	row[colTokens] = strings.Join(acct.Aliases.SwitchTokens, tokenJoiner)
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	t, err := ParseType(record[colType])
	if err != nil {
		return model.Account{}, err
	}
	name := strings.TrimSpace(record[colName])
	if name == "" {
		return model.Account{}, fmt.Errorf("missing name")
	}

	var tokens []string
	for _, tok := range strings.Split(record[colTokens], tokenJoiner) {
		if tok = strings.ToLower(strings.TrimSpace(tok)); tok != "" {
			tokens = append(tokens, tok)
		}
	}

	return model.Account{
		ID:   strings.TrimSpace(record[colID]),
		Type: t,
		Name: name,
		Aliases: model.Aliases{
			Nickname:     strings.TrimSpace(record[colNickname]),
			Last4:        strings.TrimSpace(record[colLast4]),
			SwitchTokens: tokens,
		},
	}, nil
}
