package model

// UncategorizedID is the id of the root category that always exists.
const UncategorizedID = "uncategorized"

// Category is one node of the derived category forest.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"` // "" = top-level
}

// Root returns the mandatory Uncategorized node.
func Root() Category {
	return Category{ID: UncategorizedID, Name: UncategorizedPath}
}
