package export

import (
	"fmt"
	"time"

	"github.com/cleared-dev/spendlens/internal/model"
)

// Problem describes one stored transaction that breaks a record rule.
type Problem struct {
	TransactionID string
	Description   string
}

func (p Problem) Error() string {
	return fmt.Sprintf("[%s]: %s", p.TransactionID, p.Description)
}

// AccountChecker tests whether an institution id exists.
type AccountChecker interface {
	Exists(id string) bool
}

// Validate checks the rules every stored transaction must satisfy.
func Validate(txns []model.Transaction, accounts AccountChecker) []Problem {
	var problems []Problem
	seen := make(map[string]bool, len(txns))

	for _, t := range txns {
		add := func(format string, args ...any) {
			problems = append(problems, Problem{TransactionID: t.ID, Description: fmt.Sprintf(format, args...)})
		}

		if seen[t.ID] {
			add("duplicate id")
		}
		seen[t.ID] = true

		if _, err := time.Parse(model.DateFormat, t.PostedAt); err != nil {
			add("posted_at %q is not a date", t.PostedAt)
		}

		// Zero is excluded at import, so the sign always decides direction.
		switch {
		case t.AmountCents == 0:
			add("amount is zero")
		case t.AmountCents < 0 && t.Direction != model.DirectionDebit:
			add("negative amount with direction %s", t.Direction)
		case t.AmountCents > 0 && t.Direction != model.DirectionCredit:
			add("positive amount with direction %s", t.Direction)
		}

		if t.CategoryPath == "" {
			add("empty category path")
		}

		if !accounts.Exists(t.InstitutionID) {
			add("unknown institution %q", t.InstitutionID)
		}
	}

	return problems
}
