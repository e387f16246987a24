package index

import (
	"os"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func noteWith(path, title string, tags []string) NoteRow {
	return NoteRow{
		Path:       path,
		Title:      title,
		Checksum:   path + "-cs",
		Tags:       tags,
		ModifiedAt: time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"notes", "links", "tasks"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	links := []models.Wikilink{{Target: "other"}}
	if err := db.UpsertNote(row, "This is a hello world note.", links, nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetNote(t *testing.T) {
	db := testDB(t)
	row := noteWith("fm.md", "FM", []string{"x"})
	row.Frontmatter = map[string]any{"priority": 2, "status": "open"}
	row.Size = 42
	if err := db.UpsertNote(row, "body", nil, nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	got, err := db.GetNote("fm.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got == nil {
		t.Fatal("GetNote returned nil for existing note")
	}
	if got.Title != "FM" || got.Size != 42 {
		t.Errorf("row = %+v", got)
	}
	if got.Frontmatter["status"] != "open" {
		t.Errorf("frontmatter status = %v", got.Frontmatter["status"])
	}
	// JSON numbers come back as float64.
	if got.Frontmatter["priority"] != float64(2) {
		t.Errorf("frontmatter priority = %v (%T)", got.Frontmatter["priority"], got.Frontmatter["priority"])
	}

	missing, err := db.GetNote("nope.md")
	if err != nil {
		t.Fatalf("GetNote missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing note, got %+v", missing)
	}
}

func TestUpsertReplacesLinksAndTasks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(noteWith("up.md", "Old", nil), "old",
		[]models.Wikilink{{Target: "x"}},
		[]models.Task{{Line: 1, Text: "one", Done: false}})
	_ = db.UpsertNote(noteWith("up.md", "New", nil), "new",
		[]models.Wikilink{{Target: "y", Heading: "H"}},
		[]models.Task{{Line: 2, Text: "two", Done: true, Due: "2026-09-01", Tags: []string{"work"}}})

	links, err := db.AllLinks()
	if err != nil {
		t.Fatalf("AllLinks: %v", err)
	}
	if len(links) != 1 || links[0].Target != "y" || links[0].Heading != "H" {
		t.Errorf("links = %+v, want single y#H", links)
	}

	tasks, err := db.AllTasks()
	if err != nil {
		t.Fatalf("AllTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %+v, want 1", tasks)
	}
	tk := tasks[0]
	if tk.Line != 2 || tk.Text != "two" || !tk.Done || tk.Due != "2026-09-01" {
		t.Errorf("task = %+v", tk)
	}
	if len(tk.Tags) != 1 || tk.Tags[0] != "work" {
		t.Errorf("task tags = %v", tk.Tags)
	}
}

func TestListNotes(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, p := range []string{"a.md", "b.md", "c.md"} {
		row := noteWith(p, "Note "+p, nil)
		if p == "b.md" {
			row.Tags = []string{"keep"}
		}
		row.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := db.UpsertNote(row, "", nil, nil); err != nil {
			t.Fatalf("UpsertNote: %v", err)
		}
	}

	rows, total, err := db.ListNotes(2, 0, "", "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("total = %d, page = %d, want 3/2", total, len(rows))
	}
	if rows[0].Path != "a.md" || rows[1].Path != "b.md" {
		t.Errorf("default sort by path, got %q, %q", rows[0].Path, rows[1].Path)
	}

	rows, total, err = db.ListNotes(10, 2, "", "")
	if err != nil {
		t.Fatalf("ListNotes offset: %v", err)
	}
	if total != 3 || len(rows) != 1 || rows[0].Path != "c.md" {
		t.Errorf("offset page = %+v", rows)
	}

	rows, total, err = db.ListNotes(10, 0, "keep", "")
	if err != nil {
		t.Fatalf("ListNotes tag: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Path != "b.md" {
		t.Errorf("tag filter = %+v (total %d)", rows, total)
	}

	rows, _, err = db.ListNotes(10, 0, "", "updated")
	if err != nil {
		t.Fatalf("ListNotes updated: %v", err)
	}
	if rows[0].Path != "c.md" {
		t.Errorf("updated sort first = %q, want c.md", rows[0].Path)
	}
}

func TestAllNotesOrderedByPath(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"z.md", "a.md", "m.md"} {
		_ = db.UpsertNote(noteWith(p, "", nil), "", nil, nil)
	}
	notes, err := db.AllNotes()
	if err != nil {
		t.Fatalf("AllNotes: %v", err)
	}
	want := []string{"a.md", "m.md", "z.md"}
	if len(notes) != len(want) {
		t.Fatalf("got %d notes", len(notes))
	}
	for i, p := range want {
		if notes[i].Path != p {
			t.Errorf("notes[%d] = %q, want %q", i, notes[i].Path, p)
		}
	}
}

func TestTagCounts(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(noteWith("1.md", "", []string{"go", "notes"}), "", nil, nil)
	_ = db.UpsertNote(noteWith("2.md", "", []string{"go"}), "", nil, nil)
	_ = db.UpsertNote(noteWith("3.md", "", []string{"zig", "notes", "notes"}), "", nil, nil)

	counts, err := db.TagCounts()
	if err != nil {
		t.Fatalf("TagCounts: %v", err)
	}
	want := []TagCount{{Tag: "go", Count: 2}, {Tag: "notes", Count: 2}, {Tag: "zig", Count: 1}}
	if len(counts) != len(want) {
		t.Fatalf("counts = %+v", counts)
	}
	for i, w := range want {
		if counts[i] != w {
			t.Errorf("counts[%d] = %+v, want %+v", i, counts[i], w)
		}
	}
}

func TestGenerationBumps(t *testing.T) {
	db := testDB(t)
	g0 := db.Generation()
	_ = db.UpsertNote(noteWith("g.md", "", nil), "", nil, nil)
	g1 := db.Generation()
	if g1 <= g0 {
		t.Errorf("generation did not advance on upsert: %d -> %d", g0, g1)
	}
	_ = db.DeleteNote("g.md")
	if db.Generation() <= g1 {
		t.Error("generation did not advance on delete")
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(noteWith("del.md", "", nil), "body",
		[]models.Wikilink{{Target: "target"}},
		[]models.Task{{Line: 1, Text: "t"}})

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	links, _ := db.AllLinks()
	if len(links) != 0 {
		t.Errorf("expected 0 links after delete, got %d", len(links))
	}
	tasks, _ := db.AllTasks()
	if len(tasks) != 0 {
		t.Errorf("expected 0 tasks after delete, got %d", len(tasks))
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(noteWith("s.md", "Search Me", nil), "uniqueword appears here", nil, nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}
