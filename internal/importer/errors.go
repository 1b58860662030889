package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError means the file as a whole cannot be imported.
// Nothing is produced when one is returned.
type ValidationError struct {
	Reason   string
	Header   []string // normalized header, set when no signature matched
	Accepted [][]string
}

func (e *ValidationError) Error() string {
	if len(e.Accepted) == 0 {
		return e.Reason
	}
	accepted := make([]string, len(e.Accepted))
	for i, h := range e.Accepted {
		accepted[i] = strings.Join(h, ", ")
	}
	return fmt.Sprintf("%s %q; accepted headers: %s",
		e.Reason, strings.Join(e.Header, ", "), strings.Join(accepted, " | "))
}

// ParseError means a date or amount value was present but malformed.
type ParseError struct {
	Row   int // 1-based, header is row 1
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: parsing %s %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("parsing %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissingValue = errors.New("value is required")
	errNotANumber   = errors.New("not a number")
	errOutOfRange   = errors.New("amount out of range")
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
