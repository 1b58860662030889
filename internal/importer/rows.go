package importer

import (
	"fmt"
	"io"
	"strings"
)

type quoteState int

const (
	// outside a quoted section
	unquoted quoteState = iota
	// inside a quoted section
	quoted
	// inside a quoted section, right after a '"' that either closes it or
	// starts a doubled quote
	quoteSeen
)

// ParseRows tokenizes CSV text into trimmed rows. A '"' anywhere outside
// quotes opens a quoted section, so whitespace around a quoted value is
// kept out of the value and trimmed. Inside quotes "" is a literal quote.
// Rows whose every field is empty are dropped. An unterminated quote runs
// to end of input.
func ParseRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	var (
		rows  [][]string
		row   []string
		field strings.Builder
		s     = unquoted
	)
	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		if trimmed := trimRow(row); trimmed != nil {
			rows = append(rows, trimmed)
		}
		row = nil
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch s {
		case quoted:
			if c == '"' {
				s = quoteSeen
			} else {
				field.WriteByte(c)
			}
			continue
		case quoteSeen:
			if c == '"' {
				field.WriteByte('"')
				s = quoted
				continue
			}
			s = unquoted
		}

		switch c {
		case '"':
			s = quoted
		case ',':
			endField()
		case '\n':
			endRow()
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				continue
			}
			field.WriteByte(c)
		default:
			field.WriteByte(c)
		}
	}
	if len(row) > 0 || field.Len() > 0 {
		endRow()
	}
	return rows, nil
}

// trimRow trims every field and returns nil when all of them are empty.
func trimRow(row []string) []string {
	blank := true
	out := make([]string, len(row))
	for i, f := range row {
		out[i] = strings.TrimSpace(f)
		if out[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	return out
}

// cell returns row[i], or "" for short rows.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
