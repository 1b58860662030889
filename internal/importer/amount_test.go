package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"14.55", 1455},
		{"$1,234.56", 123456},
		{"(14.55)", -1455},
		{"($2.00)", -200},
		{"-14.55", -1455},
		{"+3", 300},
		{" € 2.5 ", 250},
		{"1.005", 101},
		{"-1.005", -101},
		{"0.00", 0},
	}
	for _, tt := range tests {
		got, err := toCents("amount", tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.want, got, "input: %s", tt.input)
	}
}

func TestToCents_Errors(t *testing.T) {
	badInputs := []string{"abc", "$", "12.3.4", "1O.00", "()"}
	for _, input := range badInputs {
		_, err := toCents("debit", input)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, "input: %s", input)
		assert.Equal(t, "debit", pe.Field)
		assert.Equal(t, input, pe.Value)
	}
}

func TestToCents_OutOfRange(t *testing.T) {
	for _, input := range []string{"99999999999999999999.99", "(99999999999999999999.99)"} {
		_, err := toCents("amount", input)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, "input: %s", input)
		assert.ErrorIs(t, err, errOutOfRange)
	}

	got, err := toCents("amount", "92233720368547758.07")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		layouts []string
		want    string
	}{
		{"01/20/2026", []string{usDateFormat}, "2026-01-20"},
		{"1/5/2026", []string{usDateFormat}, "2026-01-05"},
		{"5 Feb 2026", []string{cardDateFormat}, "2026-02-05"},
		{"15 feb 2026", []string{cardDateFormat}, "2026-02-15"},
		{"15 FEB 2026", []string{cardDateFormat}, "2026-02-15"},
		{"2026-01-22", []string{"2006-01-02", usDateFormat}, "2026-01-22"},
		{"01/22/2026", []string{"2006-01-02", usDateFormat}, "2026-01-22"},
	}
	for _, tt := range tests {
		got, err := parseDate("date", tt.input, tt.layouts...)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseDate_Errors(t *testing.T) {
	_, err := parseDate("date", "", usDateFormat)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errMissingValue)

	_, err = parseDate("date", "13/45/2026", usDateFormat)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "13/45/2026", pe.Value)
}
