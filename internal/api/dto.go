package api

import (
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/resolver"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// RenameNoteRequest is the request body for moving a note. Wikilinks in
// other notes that point at the old path are rewritten.
type RenameNoteRequest struct {
	From string `json:"from" example:"inbox/idea.md" validate:"required"`
	To   string `json:"to" example:"projects/idea.md" validate:"required"`
}

// QueryRequest is the request body for running a vault query.
type QueryRequest struct {
	Query string `json:"query" example:"TABLE status, priority FROM #project WHERE status != \"done\"" validate:"required"`
}

// QueryErrorResponse is returned when a query fails to parse. Position is
// the byte offset of the error in the query text.
type QueryErrorResponse struct {
	Error    string `json:"error" validate:"required"`
	Position int    `json:"position" example:"12"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// TagsResponse wraps tag usage counts.
type TagsResponse struct {
	Tags []index.TagCount `json:"tags" validate:"required"`
}

// ResolveResponse wraps fuzzy note resolution matches.
type ResolveResponse struct {
	Matches []resolver.Match `json:"matches" validate:"required"`
}

// BacklinksResponse wraps the notes linking to a target.
type BacklinksResponse struct {
	Backlinks []resolver.Backlink `json:"backlinks" validate:"required"`
}

// GraphNode is a node in the knowledge graph (aliased from the domain layer).
type GraphNode = noteservice.GraphNode

// GraphLink is an edge in the knowledge graph (aliased from the domain layer).
type GraphLink = noteservice.GraphLink

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}
