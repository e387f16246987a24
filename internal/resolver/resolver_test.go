package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/models"
)

func testResolver() *Resolver {
	return New([]Note{
		{Path: "index.md", Title: "Home"},
		{Path: "projects/alpha.md", Title: "Alpha"},
		{Path: "projects/notes.md", Title: "Project Notes"},
		{Path: "journal/2026-01-05.md", Title: ""},
		{Path: "inbox.md", Title: "Inbox"},
		{Path: "archive/inbox.md", Title: "Old Inbox"},
		{Path: "a/dup.md", Title: "Dup A"},
		{Path: "b/dup.md", Title: "Dup B"},
	})
}

func TestResolveExactPath(t *testing.T) {
	r := testResolver()

	p, ok := r.Resolve("projects/alpha.md")
	require.True(t, ok)
	assert.Equal(t, "projects/alpha.md", p)

	p, ok = r.Resolve("projects/alpha")
	require.True(t, ok)
	assert.Equal(t, "projects/alpha.md", p)

	p, ok = r.Resolve("PROJECTS/Alpha")
	require.True(t, ok)
	assert.Equal(t, "projects/alpha.md", p, "path lookup is case-insensitive")
}

func TestResolveBasename(t *testing.T) {
	r := testResolver()

	p, ok := r.Resolve("alpha")
	require.True(t, ok)
	assert.Equal(t, "projects/alpha.md", p)

	p, ok = r.Resolve("2026-01-05")
	require.True(t, ok)
	assert.Equal(t, "journal/2026-01-05.md", p)
}

func TestResolveCollisionPrefersRoot(t *testing.T) {
	r := testResolver()

	// inbox.md exists at the root and under archive/: root wins.
	p, ok := r.Resolve("inbox")
	require.True(t, ok)
	assert.Equal(t, "inbox.md", p)

	// dup.md exists twice, neither at root: unresolved.
	_, ok = r.Resolve("dup")
	assert.False(t, ok)
}

func TestResolveHeadingStripped(t *testing.T) {
	r := testResolver()

	p, ok := r.Resolve("alpha#Goals")
	require.True(t, ok)
	assert.Equal(t, "projects/alpha.md", p)

	p, ok = r.Resolve("projects/alpha.md#anything#else")
	require.True(t, ok)
	assert.Equal(t, "projects/alpha.md", p)
}

func TestResolveMisses(t *testing.T) {
	r := testResolver()

	_, ok := r.Resolve("missing")
	assert.False(t, ok)

	_, ok = r.Resolve("wrongdir/alpha")
	assert.False(t, ok, "path-like targets never fall back to basename matching")

	_, ok = r.Resolve("")
	assert.False(t, ok)

	_, ok = r.Resolve("#heading-only")
	assert.False(t, ok)
}

func TestBacklinks(t *testing.T) {
	r := testResolver()
	links := []models.Link{
		{Source: "index.md", Target: "alpha"},
		{Source: "projects/notes.md", Target: "projects/alpha"},
		{Source: "inbox.md", Target: "Alpha#Goals"},
		{Source: "index.md", Target: "nothing-here"},
	}

	bl := r.Backlinks(links, "projects/alpha.md")
	require.Len(t, bl, 3)
	assert.Equal(t, Backlink{Source: "index.md", Target: "alpha"}, bl[0])
	assert.Equal(t, Backlink{Source: "projects/notes.md", Target: "projects/alpha"}, bl[1])
	assert.Equal(t, Backlink{Source: "inbox.md", Target: "Alpha#Goals"}, bl[2])

	assert.Empty(t, r.Backlinks(links, "index.md"))
}

func TestDangling(t *testing.T) {
	r := testResolver()
	links := []models.Link{
		{Source: "index.md", Target: "alpha"},
		{Source: "index.md", Target: "ghost"},
		{Source: "inbox.md", Target: "dup"},
	}

	d := r.Dangling(links)
	require.Len(t, d, 2)
	assert.Equal(t, "ghost", d[0].Target)
	assert.Equal(t, "dup", d[1].Target, "ambiguous basenames count as dangling")
}

func TestFuzzy(t *testing.T) {
	r := testResolver()

	matches := r.Fuzzy("alpha", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "projects/alpha.md", matches[0].Path)

	// Title text matches too.
	matches = r.Fuzzy("Home", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "index.md", matches[0].Path)

	assert.Empty(t, r.Fuzzy("zzzzzz", 5))
}

func TestFuzzyEmptyQueryListsGivenOrder(t *testing.T) {
	r := testResolver()

	matches := r.Fuzzy("", 3)
	require.Len(t, matches, 3)
	assert.Equal(t, "index.md", matches[0].Path)
	assert.Equal(t, "projects/alpha.md", matches[1].Path)
}

func TestFuzzyLimit(t *testing.T) {
	r := testResolver()

	matches := r.Fuzzy("md", 2)
	assert.LessOrEqual(t, len(matches), 2)
}
