package importer

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/spendlens/internal/model"
)

const (
	usDateFormat   = "1/2/2006"
	cardDateFormat = "2 Jan 2006"
)

// toCents parses a money string into signed cents. Currency symbols,
// thousands separators and whitespace are ignored; "(12.50)" is negative.
func toCents(field, raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, &ParseError{Field: field, Value: raw, Err: errNotANumber}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ParseError{Field: field, Value: raw, Err: errNotANumber}
	}
	shifted := d.Round(2).Shift(2)
	if !shifted.BigInt().IsInt64() {
		return 0, &ParseError{Field: field, Value: raw, Err: errOutOfRange}
	}
	cents := shifted.IntPart()
	if neg {
		cents = -cents
	}
	return cents, nil
}

// parseDate tries each layout in turn and returns the ISO date.
func parseDate(field, raw string, layouts ...string) (string, error) {
	if raw == "" {
		return "", &ParseError{Field: field, Value: raw, Err: errMissingValue}
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.Format(model.DateFormat), nil
		}
		lastErr = err
	}
	return "", &ParseError{Field: field, Value: raw, Err: lastErr}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// directionOf maps the stored sign convention onto a direction.
func directionOf(cents int64) model.Direction {
	if cents < 0 {
		return model.DirectionDebit
	}
	return model.DirectionCredit
}
