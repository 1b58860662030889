package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/spendlens/internal/model"
)

type mockAccounts map[string]bool

func (m mockAccounts) Exists(id string) bool { return m[id] }

func sample() model.Transaction {
	return model.Transaction{
		ID:             "txn_1",
		InstitutionID:  "acct_1",
		PostedAt:       "2025-02-03",
		DescriptionRaw: "COFFEE, DOWNTOWN",
		AmountCents:    -455,
		Currency:       "CAD",
		Direction:      model.DirectionDebit,
		CategoryPath:   "Food > Coffee",
		Source:         &model.Source{Type: model.SourceTypeCSV, FileName: "feb.csv"},
	}
}

func TestWriteTransactions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, []model.Transaction{sample()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, `txn_1,2025-02-03,"COFFEE, DOWNTOWN",-4.55,CAD,DEBIT,Food > Coffee,acct_1,feb.csv`, lines[1])
}

func TestReadTransactions(t *testing.T) {
	in := Header + "\n" +
		"txn_2,2025-02-04,PAYROLL,1500.5,CAD,CREDIT,Income,acct_1,\n"

	got, err := ReadTransactions(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(150050), got[0].AmountCents)
	assert.Equal(t, model.DirectionCredit, got[0].Direction)
	assert.Nil(t, got[0].Source)

	_, err = ReadTransactions(strings.NewReader(Header + "\ntxn_3,2025-02-04,X,abc,CAD,DEBIT,Food,acct_1,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), `parsing amount "abc"`)
}

func TestValidate_Clean(t *testing.T) {
	problems := Validate([]model.Transaction{sample()}, mockAccounts{"acct_1": true})
	assert.Empty(t, problems)
}

func TestValidate_Problems(t *testing.T) {
	bad := sample()
	bad.PostedAt = "02/03/2025"
	bad.Direction = model.DirectionCredit
	bad.CategoryPath = ""
	bad.InstitutionID = "acct_gone"

	zero := sample()
	zero.ID = "txn_zero"
	zero.AmountCents = 0

	problems := Validate([]model.Transaction{sample(), bad, zero}, mockAccounts{"acct_1": true})

	var descs []string
	for _, p := range problems {
		descs = append(descs, p.Error())
	}
	assert.Equal(t, []string{
		"[txn_1]: duplicate id",
		`[txn_1]: posted_at "02/03/2025" is not a date`,
		"[txn_1]: negative amount with direction CREDIT",
		"[txn_1]: empty category path",
		`[txn_1]: unknown institution "acct_gone"`,
		"[txn_zero]: amount is zero",
	}, descs)
}
