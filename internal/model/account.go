package model

import "time"

// AccountType classifies institutions a user imports from.
type AccountType string

const (
	AccountTypeBank       AccountType = "BANK"
	AccountTypeCreditCard AccountType = "CREDIT_CARD"
	// AccountTypeCredit is the older spelling of a credit card account.
	AccountTypeCredit AccountType = "CREDIT"
)

// Aliases are alternative names used to find an account from the CLI.
type Aliases struct {
	Nickname     string   `json:"nickname,omitempty"`
	Last4        string   `json:"last4,omitempty"`
	SwitchTokens []string `json:"switch_tokens,omitempty"`
}

// Account is a bank or credit-card institution owned by one user.
type Account struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Type      AccountType `json:"type"`
	Name      string      `json:"name"`
	Aliases   Aliases     `json:"aliases"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
