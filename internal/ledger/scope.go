package ledger

import (
	"github.com/cleared-dev/spendlens/internal/category"
	"github.com/cleared-dev/spendlens/internal/insights"
	"github.com/cleared-dev/spendlens/internal/model"
)

// Scope selects one user's transactions at a set of institutions.
type Scope = insights.Scope

// filterScope keeps the transactions owned by scope.UserID at one of
// scope.InstitutionIDs. An incomplete scope selects nothing.
func filterScope(scope Scope, txns []model.Transaction) []model.Transaction {
	ids := make(map[string]bool, len(scope.InstitutionIDs))
	for _, id := range scope.InstitutionIDs {
		if id != "" {
			ids[id] = true
		}
	}
	out := []model.Transaction{}
	if scope.UserID == "" || len(ids) == 0 {
		return out
	}
	for _, t := range txns {
		if t.UserID == scope.UserID && ids[t.InstitutionID] {
			out = append(out, t)
		}
	}
	return out
}

// canonicalPath tidies a user or oracle supplied path; any spelling of the
// root collapses to UncategorizedPath.
func canonicalPath(raw string) string {
	segments := category.NormalizePath(raw)
	if category.IsUncategorized(segments) {
		return model.UncategorizedPath
	}
	return category.Display(segments)
}
