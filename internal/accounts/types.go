package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/cleared-dev/spendlens/internal/id"
	"github.com/cleared-dev/spendlens/internal/model"
)

// ParseType accepts the names people type for account kinds.
func ParseType(s string) (model.AccountType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bank", "chequing", "checking", "savings", "deposit":
		return model.AccountTypeBank, nil
	case "credit", "credit_card", "credit-card", "card":
		return model.AccountTypeCreditCard, nil
	default:
		return "", fmt.Errorf("unknown account type %q (want bank or credit)", s)
	}
}

// New builds a fresh account for userID.
func New(userID string, t model.AccountType, name string, aliases model.Aliases, now time.Time) (model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Account{}, fmt.Errorf("account name is required")
	}
	if userID == "" {
		return model.Account{}, fmt.Errorf("account user is required")
	}
	var tokens []string
	for _, tok := range aliases.SwitchTokens {
		if tok = strings.ToLower(strings.TrimSpace(tok)); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	aliases.SwitchTokens = tokens
	aliases.Nickname = strings.TrimSpace(aliases.Nickname)
	aliases.Last4 = strings.TrimSpace(aliases.Last4)

	return model.Account{
		ID:        id.New(id.PrefixAccount),
		UserID:    userID,
		Type:      t,
		Name:      name,
		Aliases:   aliases,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
