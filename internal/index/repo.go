package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// NoteRow represents a row in the notes table. List queries fill only the
// columns they select; AllNotes returns everything but the body.
type NoteRow struct {
	Path        string
	Title       string
	Checksum    string
	Tags        []string
	Frontmatter map[string]any
	Size        int64
	ModifiedAt  time.Time
	UpdatedAt   time.Time
}

// LinkRow is one wikilink occurrence with the target exactly as written.
// Resolution against vault paths happens at snapshot time.
type LinkRow struct {
	Source  string
	Target  string
	Heading string
}

// TaskRow is one checkbox item extracted from a note body.
type TaskRow struct {
	Path string
	Line int
	Text string
	Done bool
	Due  string
	Tags []string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// TagCount is one tag with the number of notes carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// UpsertNote inserts or replaces a note, its FTS entry, its links, and its
// tasks within a single transaction.
func (db *DB) UpsertNote(n NoteRow, body string, links []models.Wikilink, tasks []models.Task) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.Tags == nil {
		n.Tags = []string{}
	}
	fm := n.Frontmatter
	if fm == nil {
		fm = map[string]any{}
	}
	tagsJSON, _ := json.Marshal(n.Tags)
	fmJSON, _ := json.Marshal(fm)

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, tags, frontmatter, body, size, mtime, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			frontmatter = excluded.frontmatter,
			body        = excluded.body,
			size        = excluded.size,
			mtime       = excluded.mtime,
			updated_at  = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, string(tagsJSON), string(fmJSON), body, n.Size, n.ModifiedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.Path, n.Title, body, n.Tags); err != nil {
		return err
	}

	// Replace links and tasks: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, heading) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(n.Path, l.Target, l.Heading); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	_, _ = tx.Exec(`DELETE FROM tasks WHERE path = ?`, n.Path)
	if len(tasks) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO tasks (path, line, text, done, due, tags) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare task insert: %w", err)
		}
		defer stmt.Close()
		for _, tk := range tasks {
			tkTags := tk.Tags
			if tkTags == nil {
				tkTags = []string{}
			}
			tagsJSON, _ := json.Marshal(tkTags)
			if _, err := stmt.Exec(n.Path, tk.Line, tk.Text, tk.Done, tk.Due, string(tagsJSON)); err != nil {
				return fmt.Errorf("index: insert task: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	db.gen.Add(1)
	return nil
}

// DeleteNote removes a note, its FTS entry, its links, and its tasks.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM tasks WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	db.gen.Add(1)
	return nil
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetNote returns the stored row for a note, or nil if it is not indexed.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, title, checksum, tags, frontmatter, size, mtime, updated_at
		FROM notes WHERE path = ?
	`, path)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns one page of notes plus the total count for the filter.
// sort is one of "path" (default), "title", "updated".
func (db *DB) ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if tag != "" {
		where = `WHERE tags LIKE ?`
		args = append(args, `%"`+tag+`"%`)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	order := `path ASC`
	switch sort {
	case "title":
		order = `title COLLATE NOCASE ASC, path ASC`
	case "updated":
		order = `updated_at DESC, path ASC`
	}

	query := `
		SELECT path, title, checksum, tags, frontmatter, size, mtime, updated_at
		FROM notes ` + where + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*NoteRow, error) {
	var n NoteRow
	var tagsJSON, fmJSON string
	if err := r.Scan(&n.Path, &n.Title, &n.Checksum, &tagsJSON, &fmJSON, &n.Size, &n.ModifiedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	_ = json.Unmarshal([]byte(fmJSON), &n.Frontmatter)
	return &n, nil
}
