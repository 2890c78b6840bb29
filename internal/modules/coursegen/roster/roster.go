package roster

import (
	"github.com/google/uuid"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/normalization"
)

// Roster indexes a workflow's characters by normalized name. It is built per
// stage call from the persisted rows and never outlives that call.
type Roster struct {
	ordered []*types.Character
	byName  map[string]*types.Character
	byID    map[uuid.UUID]*types.Character
}

func New(chars []*types.Character) *Roster {
	r := &Roster{
		byName: map[string]*types.Character{},
		byID:   map[uuid.UUID]*types.Character{},
	}
	for _, c := range chars {
		if c == nil {
			continue
		}
		key := normalization.ParseInputString(c.Name)
		if key == "" {
			continue
		}
		if _, dup := r.byName[key]; dup {
			continue
		}
		r.byName[key] = c
		r.byID[c.ID] = c
		r.ordered = append(r.ordered, c)
	}
	return r
}

func (r *Roster) Len() int { return len(r.ordered) }

// All returns characters in roster order.
func (r *Roster) All() []*types.Character { return r.ordered }

func (r *Roster) Lookup(name string) (*types.Character, bool) {
	c, ok := r.byName[normalization.ParseInputString(name)]
	return c, ok
}

func (r *Roster) ByID(id uuid.UUID) (*types.Character, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// ResolveNames maps names to ids in order, dropping unknown and repeated names.
func (r *Roster) ResolveNames(names []string) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	out := []uuid.UUID{}
	for _, n := range names {
		c, ok := r.Lookup(n)
		if !ok || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c.ID)
	}
	return out
}

// Characters returns the known characters for ids, in the order given.
func (r *Roster) Characters(ids []uuid.UUID) []*types.Character {
	out := make([]*types.Character, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *Roster) Names() []string {
	out := make([]string, 0, len(r.ordered))
	for _, c := range r.ordered {
		out = append(out, c.Name)
	}
	return out
}

// GrammarCatalog indexes grammar rules of one language and level by slug.
type GrammarCatalog struct {
	ordered []*types.GrammarRule
	bySlug  map[string]*types.GrammarRule
}

func NewGrammarCatalog(rules []*types.GrammarRule) *GrammarCatalog {
	g := &GrammarCatalog{bySlug: map[string]*types.GrammarRule{}}
	for _, r := range rules {
		g.Add(r)
	}
	return g
}

// Add registers a rule unless its slug is already known. It reports whether the rule was added.
func (g *GrammarCatalog) Add(r *types.GrammarRule) bool {
	if r == nil {
		return false
	}
	key := SlugKey(r.Slug)
	if key == "" {
		return false
	}
	if _, ok := g.bySlug[key]; ok {
		return false
	}
	g.bySlug[key] = r
	g.ordered = append(g.ordered, r)
	return true
}

func (g *GrammarCatalog) Lookup(slug string) (*types.GrammarRule, bool) {
	r, ok := g.bySlug[SlugKey(slug)]
	return r, ok
}

func (g *GrammarCatalog) All() []*types.GrammarRule { return g.ordered }

func (g *GrammarCatalog) Len() int { return len(g.ordered) }

// SlugKey canonicalizes a grammar slug: folded, with spaces and underscores as dashes.
func SlugKey(slug string) string {
	s := normalization.Phrase(slug)
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' || r == '_' {
			r = '-'
		}
		out = append(out, r)
	}
	return string(out)
}
