package noteservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/engine"
	"github.com/starford/ansuz/internal/query/vals"
	"github.com/starford/ansuz/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)

	eng, err := engine.New(db, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store, db, eng)
}

const alphaContent = `---
title: Alpha
tags: [project]
status: open
---

# Alpha

See [[beta]].
`

func TestCreateAndGetNote(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	created, err := s.CreateNote(ctx, "alpha.md", []byte(alphaContent))
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if created.Title != "Alpha" {
		t.Errorf("title = %q", created.Title)
	}
	if created.Checksum != checksum.Sum([]byte(alphaContent)) {
		t.Error("checksum mismatch")
	}

	got, err := s.GetNote(ctx, "alpha.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Content != alphaContent {
		t.Error("content mismatch")
	}
	if got.Frontmatter["status"] != "open" {
		t.Errorf("frontmatter = %+v", got.Frontmatter)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "project" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestGetNoteMissing(t *testing.T) {
	s := testService(t)
	_, err := s.GetNote(context.Background(), "nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetNoteTitleFallsBackToStem(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.CreateNote(ctx, "inbox/scratch pad.md", []byte("no heading here\n")); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	got, err := s.GetNote(ctx, "inbox/scratch pad.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "scratch pad" {
		t.Errorf("title = %q, want %q", got.Title, "scratch pad")
	}
}

func TestCreateNoteConflict(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.CreateNote(ctx, "dup.md", []byte("# One")); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	_, err := s.CreateNote(ctx, "dup.md", []byte("# Two"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateNoteOptimisticConcurrency(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	orig := []byte("# V1")
	if _, err := s.CreateNote(ctx, "up.md", orig); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	_, err := s.UpdateNote(ctx, "up.md", []byte("# V2"), "stale-checksum")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}

	got, err := s.UpdateNote(ctx, "up.md", []byte("# V2"), checksum.Sum(orig))
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if got.Content != "# V2" {
		t.Errorf("content = %q", got.Content)
	}

	_, err = s.UpdateNote(ctx, "ghost.md", []byte("x"), "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	if _, err := s.CreateNote(ctx, "del.md", []byte("# Gone")); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if err := s.DeleteNote(ctx, "del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := s.GetNote(ctx, "del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteNote(ctx, "del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestListNotes(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.CreateNote(ctx, "a.md", []byte("---\ntags: [keep]\n---\n# A"))
	_, _ = s.CreateNote(ctx, "b.md", []byte("# B"))

	items, total, err := s.ListNotes(ctx, 10, 0, "", "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, items = %d", total, len(items))
	}

	items, total, err = s.ListNotes(ctx, 10, 0, "keep", "")
	if err != nil {
		t.Fatalf("ListNotes tag: %v", err)
	}
	if total != 1 || items[0].Path != "a.md" {
		t.Errorf("tag filter = %+v", items)
	}
}

func TestBacklinks(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.CreateNote(ctx, "source.md", []byte("Points at [[Target Note]]."))
	_, _ = s.CreateNote(ctx, "notes/target note.md", []byte("# Target Note"))

	bl, err := s.Backlinks(ctx, "notes/target note.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 1 || bl[0].Source != "source.md" || bl[0].Target != "Target Note" {
		t.Errorf("backlinks = %+v", bl)
	}

	got, err := s.GetNote(ctx, "notes/target note.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if len(got.Backlinks) != 1 || got.Backlinks[0] != "source.md" {
		t.Errorf("detail backlinks = %v", got.Backlinks)
	}
}

func TestGraph(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.CreateNote(ctx, "a.md", []byte("Links [[b]] and [[ghost]]."))
	_, _ = s.CreateNote(ctx, "b.md", []byte("# B"))

	nodes, edges, err := s.Graph(ctx)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("nodes = %+v", nodes)
	}
	// The ghost link resolves to nothing and stays out of the graph.
	if len(edges) != 1 || edges[0].Source != "a.md" || edges[0].Target != "b.md" {
		t.Errorf("edges = %+v", edges)
	}
}

func TestDanglingLinks(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.CreateNote(ctx, "a.md", []byte("Links [[b]] and [[ghost]]."))
	_, _ = s.CreateNote(ctx, "b.md", []byte("# B"))

	dangling, err := s.DanglingLinks(ctx)
	if err != nil {
		t.Fatalf("DanglingLinks: %v", err)
	}
	if len(dangling) != 1 || dangling[0].Target != "ghost" {
		t.Errorf("dangling = %+v", dangling)
	}
}

func TestQuery(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.CreateNote(ctx, "alpha.md", []byte(alphaContent))
	_, _ = s.CreateNote(ctx, "other.md", []byte("# Other"))

	res, err := s.Query(ctx, `LIST WHERE status = "open"`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Rows))
	}
	if got := vals.Text(res.Rows[0][0]); got != "[[alpha|Alpha]]" {
		t.Errorf("row = %q", got)
	}

	if _, err := s.Query(ctx, `TABLE FROM`); err == nil {
		t.Error("expected parse error")
	}
}

func TestTagCounts(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.CreateNote(ctx, "1.md", []byte("---\ntags: [go, notes]\n---\n"))
	_, _ = s.CreateNote(ctx, "2.md", []byte("---\ntags: [go]\n---\n"))

	counts, err := s.TagCounts(ctx)
	if err != nil {
		t.Fatalf("TagCounts: %v", err)
	}
	if len(counts) != 2 || counts[0].Tag != "go" || counts[0].Count != 2 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestFuzzy(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, _ = s.CreateNote(ctx, "projects/roadmap.md", []byte("# Roadmap 2026"))
	_, _ = s.CreateNote(ctx, "inbox.md", []byte("# Inbox"))

	matches, err := s.Fuzzy(ctx, "rdmp", 5)
	if err != nil {
		t.Fatalf("Fuzzy: %v", err)
	}
	if len(matches) == 0 || matches[0].Path != "projects/roadmap.md" {
		t.Errorf("matches = %+v", matches)
	}
}
