package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/spendlens/internal/model"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Food", "food"},
		{"Fast Food", "fast-food"},
		{"  Coffee & Tea!! ", "coffee-tea"},
		{"--Apple--", "apple"},
		{"Café", "caf"},
		{"!!!", ""},
		{"A1 b2", "a1-b2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.input), "Slugify(%q)", tt.input)
	}
}

func TestID(t *testing.T) {
	assert.Equal(t, "shopping.electronics.apple", ID([]string{"Shopping", "Electronics", "Apple"}))
	assert.Equal(t, "food", ID([]string{"Food", "!!!"}))
	assert.Equal(t, "uncategorized", ID(nil))
	assert.Equal(t, "uncategorized", ID([]string{"???"}))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Food > Coffee", []string{"Food", "Coffee"}},
		{"  Shopping>Electronics >   Apple  Store ", []string{"Shopping", "Electronics", "Apple Store"}},
		{"Food >> > Coffee", []string{"Food", "Coffee"}},
		{"", nil},
		{"  >  ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.input), "NormalizePath(%q)", tt.input)
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "Food > Coffee", Canonical("Food>Coffee"))
	assert.Equal(t, "Uncategorized", Canonical("   "))
}

func TestIsUncategorized(t *testing.T) {
	assert.True(t, IsUncategorized(nil))
	assert.True(t, IsUncategorized([]string{"uncategorized"}))
	assert.True(t, IsUncategorized([]string{"UNCATEGORIZED"}))
	assert.False(t, IsUncategorized([]string{"Uncategorized", "Misc"}))
	assert.False(t, IsUncategorized([]string{"Food"}))
}

func TestNew_SeedsRoot(t *testing.T) {
	f := New()
	root, ok := f.Get("uncategorized")
	require.True(t, ok)
	assert.Equal(t, model.Category{ID: "uncategorized", Name: "Uncategorized"}, root)
	assert.Equal(t, 1, f.Len())
}

func TestNew_CleansSeed(t *testing.T) {
	f := New(
		model.Category{ID: " FOOD ", Name: " Food "},
		model.Category{ID: "food.coffee", Name: "Coffee", ParentID: "FOOD"},
		model.Category{ID: "", Name: "No id"},
		model.Category{ID: "noname", Name: "  "},
	)
	assert.Equal(t, 3, f.Len())

	food, ok := f.Get("food")
	require.True(t, ok)
	assert.Equal(t, "Food", food.Name)

	coffee, _ := f.Get("food.coffee")
	assert.Equal(t, "food", coffee.ParentID)

	_, ok = f.Get("noname")
	assert.False(t, ok)
}

func TestUpsert(t *testing.T) {
	f := New()
	path := f.Upsert([]string{"Shopping", "Electronics", "Apple"})
	assert.Equal(t, "Shopping > Electronics > Apple", path)

	assert.Equal(t, []model.Category{
		{ID: "shopping", Name: "Shopping"},
		{ID: "shopping.electronics", Name: "Electronics", ParentID: "shopping"},
		{ID: "shopping.electronics.apple", Name: "Apple", ParentID: "shopping.electronics"},
		{ID: "uncategorized", Name: "Uncategorized"},
	}, f.List())
}

func TestUpsert_Idempotent(t *testing.T) {
	f := New()
	f.Upsert([]string{"Food", "Coffee"})
	before := f.List()

	// Same ids, different casing: existing names must not change.
	f.Upsert([]string{"FOOD", "coffee"})
	f.Upsert([]string{"Food", "Coffee"})
	assert.Equal(t, before, f.List())
}

func TestUpsert_Empty(t *testing.T) {
	f := New()
	assert.Equal(t, "Uncategorized", f.Upsert(nil))
	assert.Equal(t, 1, f.Len())
}

func TestDerive(t *testing.T) {
	txns := []model.Transaction{
		{CategoryPath: "Food > Coffee"},
		{CategoryPath: "Food > Groceries"},
		{CategoryPath: "Transport"},
		{CategoryPath: ""},
		{CategoryPath: "Uncategorized"},
		{CategoryPath: " food >  coffee "},
	}
	f := Derive(txns)

	var ids []string
	for _, c := range f.List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"food", "food.coffee", "food.groceries", "transport", "uncategorized"}, ids)

	// Deterministic: re-deriving yields identical output.
	assert.Equal(t, f.List(), Derive(txns).List())
}

func TestDerive_DropsUnusedPaths(t *testing.T) {
	f := Derive([]model.Transaction{{CategoryPath: "Food > Coffee"}})
	assert.Equal(t, 3, f.Len())

	f = Derive([]model.Transaction{{CategoryPath: "Transport"}})
	_, ok := f.Get("food")
	assert.False(t, ok)
	assert.Equal(t, 2, f.Len())
}

func TestPathOf(t *testing.T) {
	f := New()
	f.Upsert([]string{"Shopping", "Electronics", "Apple"})
	assert.Equal(t, "Shopping > Electronics > Apple", f.PathOf("shopping.electronics.apple"))
	assert.Equal(t, "Uncategorized", f.PathOf("uncategorized"))
}

func TestPathOf_Fallbacks(t *testing.T) {
	f := New(
		model.Category{ID: "a", Name: "A", ParentID: "b"},
		model.Category{ID: "b", Name: "B", ParentID: "a"},
		model.Category{ID: "orphan", Name: "Orphan", ParentID: "missing"},
	)

	// Cycle stops with the partial path.
	assert.Equal(t, "B > A", f.PathOf("a"))
	// Dangling parent stops too.
	assert.Equal(t, "Orphan", f.PathOf("orphan"))
	// Unknown ids fall back to the title-cased last slug.
	assert.Equal(t, "Fast Food", f.PathOf("food.fast-food"))
	assert.Equal(t, "Uncategorized", f.PathOf(""))
}

func TestWalk(t *testing.T) {
	f := New()
	f.Upsert([]string{"Food", "Groceries"})
	f.Upsert([]string{"Food", "Coffee"})
	f.Upsert([]string{"Bills"})

	type visit struct {
		name  string
		depth int
	}
	var got []visit
	f.Walk(func(c model.Category, depth int) {
		got = append(got, visit{c.Name, depth})
	})
	assert.Equal(t, []visit{
		{"Bills", 0},
		{"Food", 0},
		{"Coffee", 1},
		{"Groceries", 1},
		{"Uncategorized", 0},
	}, got)
}
