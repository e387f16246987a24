// Package resolver maps wikilink targets to vault paths and answers
// backlink and fuzzy lookup queries.
//
// Resolution is case-insensitive and tries, in order: the exact
// vault-relative path (with or without .md), then a unique basename match
// anywhere in the vault. When several notes share a basename, a root-level
// note wins; otherwise the target stays unresolved. A #heading suffix is
// stripped before resolving and never affects the outcome.
package resolver

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/starford/ansuz/internal/models"
)

// Note is the minimal indexed note information the resolver works from.
type Note struct {
	Path  string
	Title string
}

// Backlink is one reference to a note: the note it was written in and the
// target text exactly as written.
type Backlink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Match is one fuzzy lookup hit.
type Match struct {
	Path  string `json:"path"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// Resolver resolves wikilink targets against a fixed set of note paths.
type Resolver struct {
	notes  []Note
	byPath map[string]string   // lowercased path, with and without .md
	byName map[string][]string // lowercased basename → paths, sorted
}

// New builds a resolver over the given notes.
func New(notes []Note) *Resolver {
	r := &Resolver{
		notes:  notes,
		byPath: make(map[string]string, len(notes)*2),
		byName: make(map[string][]string),
	}
	for _, n := range notes {
		lower := strings.ToLower(n.Path)
		r.byPath[lower] = n.Path
		r.byPath[strings.TrimSuffix(lower, ".md")] = n.Path

		base := lower[strings.LastIndex(lower, "/")+1:]
		base = strings.TrimSuffix(base, ".md")
		r.byName[base] = append(r.byName[base], n.Path)
	}
	for _, paths := range r.byName {
		sort.Strings(paths)
	}
	return r
}

// Resolve maps a wikilink target to a vault path.
func (r *Resolver) Resolve(target string) (string, bool) {
	clean := target
	if i := strings.Index(clean, "#"); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", false
	}
	lower := strings.ToLower(clean)

	if p, ok := r.byPath[lower]; ok {
		return p, true
	}

	// Basename matching applies only to bare names, not path-like targets.
	if strings.Contains(lower, "/") {
		return "", false
	}
	candidates := r.byName[lower]
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0], true
	}
	var root []string
	for _, p := range candidates {
		if !strings.Contains(p, "/") {
			root = append(root, p)
		}
	}
	if len(root) == 1 {
		return root[0], true
	}
	return "", false
}

// Backlinks returns every link whose resolved target is path.
func (r *Resolver) Backlinks(links []models.Link, path string) []Backlink {
	var out []Backlink
	for _, l := range links {
		if resolved, ok := r.Resolve(l.Target); ok && resolved == path {
			out = append(out, Backlink{Source: l.Source, Target: l.Target})
		}
	}
	return out
}

// Dangling returns every link whose target resolves to nothing.
func (r *Resolver) Dangling(links []models.Link) []models.Link {
	var out []models.Link
	for _, l := range links {
		if _, ok := r.Resolve(l.Target); !ok {
			out = append(out, l)
		}
	}
	return out
}

// Fuzzy matches query against note paths and titles and returns the best
// hits, highest score first. An empty query lists notes in the order they
// were given to New.
func (r *Resolver) Fuzzy(query string, limit int) []Match {
	if limit <= 0 {
		limit = 10
	}

	if query == "" {
		out := make([]Match, 0, limit)
		for _, n := range r.notes {
			out = append(out, Match{Path: n.Path, Title: n.Title})
			if len(out) == limit {
				break
			}
		}
		return out
	}

	best := make(map[int]int) // note index → best score
	paths := make([]string, len(r.notes))
	titles := make([]string, len(r.notes))
	for i, n := range r.notes {
		paths[i] = n.Path
		titles[i] = n.Title
	}
	for _, m := range fuzzy.Find(query, paths) {
		if s, ok := best[m.Index]; !ok || m.Score > s {
			best[m.Index] = m.Score
		}
	}
	for _, m := range fuzzy.Find(query, titles) {
		if s, ok := best[m.Index]; !ok || m.Score > s {
			best[m.Index] = m.Score
		}
	}

	out := make([]Match, 0, len(best))
	for i, score := range best {
		out = append(out, Match{Path: r.notes[i].Path, Title: r.notes[i].Title, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
