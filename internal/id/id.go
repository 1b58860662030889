package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Prefixes for the record kinds that get generated ids.
const (
	PrefixTransaction = "txn"
	PrefixAccount     = "acct"
	PrefixActivity    = "act"
)

// New returns a fresh id like "txn_0d6f8c1e-...".
func New(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewUser returns a bare uuid for the local user.
func NewUser() string {
	return uuid.NewString()
}

// Parse splits "txn_<uuid>" into prefix and uuid.
func Parse(s string) (prefix string, u uuid.UUID, err error) {
	prefix, rest, ok := strings.Cut(s, "_")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("invalid id format: %q", s)
	}
	u, err = uuid.Parse(rest)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid uuid in id %q: %w", s, err)
	}
	return prefix, u, nil
}

// Short returns the first eight characters of the uuid part for display.
// "txn_0d6f8c1e-..." -> "0d6f8c1e"
func Short(s string) string {
	_, rest, ok := strings.Cut(s, "_")
	if !ok {
		rest = s
	}
	if len(rest) > 8 {
		return rest[:8]
	}
	return rest
}
