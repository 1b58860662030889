// Package category derives the category forest from transaction paths.
//
// Category ids are a pure function of the path segments, so the forest for
// a given set of transactions is always the same.
package category

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cleared-dev/spendlens/internal/model"
)

// Separator joins path segments for display.
const Separator = " > "

// Slugify lowercases s, collapses each run of non [a-z0-9] characters to a
// single hyphen and trims hyphens from both ends.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// ID joins the slug of every segment with "." and drops empty slugs.
// A path with no usable segment maps to the root id.
func ID(segments []string) string {
	slugs := make([]string, 0, len(segments))
	for _, s := range segments {
		if slug := Slugify(s); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	if len(slugs) == 0 {
		return model.UncategorizedID
	}
	return strings.Join(slugs, ".")
}

// NormalizePath splits raw on ">" and tidies each segment. Empty segments
// are dropped, so a blank path yields no segments.
func NormalizePath(raw string) []string {
	var segments []string
	for _, part := range strings.Split(raw, ">") {
		seg := strings.Join(strings.Fields(part), " ")
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// Display joins segments for humans; no segments renders as Uncategorized.
func Display(segments []string) string {
	if len(segments) == 0 {
		return model.UncategorizedPath
	}
	return strings.Join(segments, Separator)
}

// Canonical normalizes raw and renders it back.
func Canonical(raw string) string {
	return Display(NormalizePath(raw))
}

// IsUncategorized reports whether segments name the root explicitly or
// name nothing at all.
func IsUncategorized(segments []string) bool {
	if len(segments) == 0 {
		return true
	}
	return len(segments) == 1 && strings.EqualFold(segments[0], model.UncategorizedPath)
}

// Forest is the set of category nodes keyed by id. The root node always
// exists.
type Forest struct {
	nodes map[string]model.Category
}

// New seeds a forest with the root plus every well-formed node in seed.
// Ids are trimmed and lowercased; nodes without an id or name are skipped.
func New(seed ...model.Category) *Forest {
	f := &Forest{nodes: map[string]model.Category{model.UncategorizedID: model.Root()}}
	for _, c := range seed {
		cid := strings.ToLower(strings.TrimSpace(c.ID))
		name := strings.TrimSpace(c.Name)
		if cid == "" || name == "" {
			continue
		}
		f.nodes[cid] = model.Category{
			ID:       cid,
			Name:     name,
			ParentID: strings.ToLower(strings.TrimSpace(c.ParentID)),
		}
	}
	return f
}

// Derive rebuilds the forest from scratch out of every transaction's path.
func Derive(txns []model.Transaction) *Forest {
	f := New()
	for _, t := range txns {
		f.Upsert(NormalizePath(t.CategoryPath))
	}
	return f
}

// Upsert inserts every missing prefix of segments and returns the display
// path. Existing nodes are never modified.
func (f *Forest) Upsert(segments []string) string {
	if len(segments) == 0 {
		return model.UncategorizedPath
	}
	parent := ""
	for i, name := range segments {
		cid := ID(segments[:i+1])
		if _, ok := f.nodes[cid]; !ok {
			f.nodes[cid] = model.Category{ID: cid, Name: name, ParentID: parent}
		}
		parent = cid
	}
	return Display(segments)
}

// Get returns the node with id.
func (f *Forest) Get(id string) (model.Category, bool) {
	c, ok := f.nodes[id]
	return c, ok
}

// Len returns the number of nodes including the root.
func (f *Forest) Len() int { return len(f.nodes) }

// List returns every node sorted by id.
func (f *Forest) List() []model.Category {
	out := make([]model.Category, 0, len(f.nodes))
	for _, c := range f.nodes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Children returns the direct children of id sorted by name.
// An empty id lists the top-level nodes.
func (f *Forest) Children(id string) []model.Category {
	var out []model.Category
	for _, c := range f.nodes {
		if c.ParentID == id && c.ID != id {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Walk visits nodes depth-first from the top level, children by name.
func (f *Forest) Walk(fn func(c model.Category, depth int)) {
	visited := make(map[string]bool, len(f.nodes))
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, c := range f.Children(parent) {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			fn(c, depth)
			walk(c.ID, depth+1)
		}
	}
	walk("", 0)
}

// PathOf walks parent links from id to the top and returns the display path.
// A cycle or a dangling parent stops the walk with what was collected.
// An unknown id falls back to a title-cased form of its last slug.
func (f *Forest) PathOf(id string) string {
	var names []string
	visited := map[string]bool{}
	cur := id
	for cur != "" && !visited[cur] {
		c, ok := f.nodes[cur]
		if !ok {
			break
		}
		visited[cur] = true
		names = append(names, c.Name)
		cur = c.ParentID
	}
	if len(names) == 0 {
		return fallbackName(id)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, Separator)
}

func fallbackName(id string) string {
	last := id
	if i := strings.LastIndex(id, "."); i >= 0 {
		last = id[i+1:]
	}
	last = strings.TrimSpace(strings.ReplaceAll(last, "-", " "))
	if last == "" {
		return model.UncategorizedPath
	}
	return cases.Title(language.English).String(last)
}
