// Package noteservice coordinates storage, index, and query operations for
// the HTTP API, the MCP server, and the CLI.
package noteservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/engine"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/resolver"
	"github.com/starford/ansuz/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GraphNode is one note in the vault graph.
type GraphNode struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// GraphLink is one resolved edge in the vault graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	engine *engine.Service
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB, eng *engine.Service) *Service {
	return &Service{store: store, db: db, engine: eng}
}

// GetNote reads a note from storage, parses it, and enriches with backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildNoteDetail(path, data)
}

// CreateNote writes a new note and indexes it.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// UpdateNote writes updated content with optimistic concurrency.
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// DeleteNote removes a note from storage and index.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteNote(path)
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Query runs a DSL query through the engine.
func (s *Service) Query(ctx context.Context, text string) (*query.Result, error) {
	return s.engine.Execute(ctx, text)
}

// TagCounts returns every tag with its note count.
func (s *Service) TagCounts(_ context.Context) ([]index.TagCount, error) {
	return s.db.TagCounts()
}

// Fuzzy looks up notes by approximate path or title match.
func (s *Service) Fuzzy(_ context.Context, q string, limit int) ([]resolver.Match, error) {
	res, _, err := s.currentResolver()
	if err != nil {
		return nil, err
	}
	return res.Fuzzy(q, limit), nil
}

// Graph returns all nodes and the resolved links between them.
func (s *Service) Graph(_ context.Context) ([]GraphNode, []GraphLink, error) {
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, nil, err
	}
	res, links, err := s.currentResolver()
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]GraphNode, len(notes))
	for i, n := range notes {
		nodes[i] = GraphNode{ID: n.Path, Title: n.Title, Tags: nonNilSlice(n.Tags)}
	}

	var edges []GraphLink
	seen := make(map[string]struct{})
	for _, l := range links {
		target, ok := res.Resolve(l.Target)
		if !ok {
			continue
		}
		key := l.Source + "\x00" + target
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		edges = append(edges, GraphLink{Source: l.Source, Target: target})
	}
	return nodes, edges, nil
}

// DanglingLinks returns links whose targets resolve to no indexed note.
func (s *Service) DanglingLinks(_ context.Context) ([]models.Link, error) {
	res, links, err := s.currentResolver()
	if err != nil {
		return nil, err
	}
	return res.Dangling(links), nil
}

// Backlinks returns every link that resolves to the given note. The target
// may be a path or any resolvable link text.
func (s *Service) Backlinks(_ context.Context, target string) ([]resolver.Backlink, error) {
	res, links, err := s.currentResolver()
	if err != nil {
		return nil, err
	}
	path := target
	if p, ok := res.Resolve(target); ok {
		path = p
	}
	return res.Backlinks(links, path), nil
}

// indexFile parses data and upserts it into the index.
func (s *Service) indexFile(path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	title := res.Title
	if title == "" {
		title = parser.Stem(path)
	}
	return s.db.UpsertNote(index.NoteRow{
		Path:        path,
		Title:       title,
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Size:        int64(len(data)),
		ModifiedAt:  time.Now(),
		UpdatedAt:   time.Now(),
	}, res.Body, res.Links, res.Tasks)
}

// currentResolver builds a resolver over the indexed notes plus the full
// link list, both fresh from the index.
func (s *Service) currentResolver() (*resolver.Resolver, []models.Link, error) {
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, nil, err
	}
	rnotes := make([]resolver.Note, len(notes))
	for i, n := range notes {
		rnotes[i] = resolver.Note{Path: n.Path, Title: n.Title}
	}

	rows, err := s.db.AllLinks()
	if err != nil {
		return nil, nil, err
	}
	links := make([]models.Link, len(rows))
	for i, l := range rows {
		links[i] = models.Link{Source: l.Source, Target: l.Target}
	}
	return resolver.New(rnotes), links, nil
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func (s *Service) buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	title := res.Title
	if title == "" {
		title = parser.Stem(path)
	}
	rslv, links, err := s.currentResolver()
	if err != nil {
		return nil, err
	}
	var sources []string
	seen := make(map[string]struct{})
	for _, bl := range rslv.Backlinks(links, path) {
		if _, dup := seen[bl.Source]; dup {
			continue
		}
		seen[bl.Source] = struct{}{}
		sources = append(sources, bl.Source)
	}
	return &NoteDetail{
		Path:        path,
		Title:       title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Backlinks:   nonNilSlice(sources),
		UpdatedAt:   time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
