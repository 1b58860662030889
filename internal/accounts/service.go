package accounts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/spendlens/internal/model"
)

// Scope kinds accepted by ScopeIDs.
const (
	KindBank   = "bank"
	KindCredit = "credit"
	KindAll    = "all"

	// FilterAll selects every account of a kind.
	FilterAll = "all"
)

var (
	ErrNoMatch   = errors.New("no account matches")
	ErrAmbiguous = errors.New("more than one account matches")
)

// Service provides in-memory lookup over one user's institutions.
type Service struct {
	accounts []model.Account
	byID     map[string]model.Account
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	byID := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return &Service{accounts: accounts, byID: byID}
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// IsCredit reports whether t is either spelling of a credit card account.
func IsCredit(t model.AccountType) bool {
	return t == model.AccountTypeCredit || t == model.AccountTypeCreditCard
}

// MatchText is the lower-cased text an account can be found by: name,
// nickname, last four digits and switch tokens.
func MatchText(a model.Account) string {
	parts := []string{}
	for _, p := range []string{a.Name, a.Aliases.Nickname, a.Aliases.Last4} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	for _, tok := range a.Aliases.SwitchTokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			parts = append(parts, strings.ToLower(tok))
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// ParseQuery trims raw and strips one pair of matching quotes.
func ParseQuery(raw string) string {
	q := strings.TrimSpace(raw)
	if len(q) >= 2 {
		first, last := q[0], q[len(q)-1]
		if first == last && (first == '"' || first == '\'') {
			return strings.TrimSpace(q[1 : len(q)-1])
		}
	}
	return q
}

// Find resolves a user-typed query to one account. An exact id wins;
// otherwise the query must be a substring of exactly one account's match
// text.
func (s *Service) Find(query string) (model.Account, error) {
	q := strings.ToLower(ParseQuery(query))
	if q == "" {
		return model.Account{}, fmt.Errorf("%w: empty query", ErrNoMatch)
	}
	if a, ok := s.byID[ParseQuery(query)]; ok {
		return a, nil
	}

	var found []model.Account
	for _, a := range s.accounts {
		if strings.Contains(MatchText(a), q) {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return model.Account{}, fmt.Errorf("%w %q", ErrNoMatch, query)
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, a := range found {
			names[i] = a.Name
		}
		return model.Account{}, fmt.Errorf("%w %q: %s", ErrAmbiguous, query, strings.Join(names, ", "))
	}
}

// ScopeIDs returns the ids of accounts of kind, narrowed to a single id
// unless filter is "all" or empty.
func (s *Service) ScopeIDs(kind, filter string) []string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = FilterAll
	}

	ids := []string{}
	for _, a := range s.accounts {
		switch strings.ToLower(kind) {
		case KindBank:
			if a.Type != model.AccountTypeBank {
				continue
			}
		case KindCredit:
			if !IsCredit(a.Type) {
				continue
			}
		case KindAll:
		default:
			return []string{}
		}
		if filter != FilterAll && a.ID != filter {
			continue
		}
		ids = append(ids, a.ID)
	}
	return ids
}
