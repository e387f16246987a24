// Package models defines the domain types for Ansuz.
package models

import "time"

// Note represents a parsed Markdown file in the vault.
type Note struct {
	Path        string         `json:"path"`
	Content     []byte         `json:"-"`
	Body        string         `json:"body"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Title       string         `json:"title,omitempty"`
	Links       []Wikilink     `json:"links,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Tasks       []Task         `json:"tasks,omitempty"`
	Checksum    string         `json:"checksum"`
	Size        int64          `json:"size"`
	ModifiedAt  time.Time      `json:"modified_at"`
}

// NoteMeta is a lightweight representation returned by storage listings.
type NoteMeta struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Wikilink is one [[target#heading|alias]] occurrence in a note body.
// Target is the raw text as written; resolution against vault paths is the
// resolver's job.
type Wikilink struct {
	Target  string `json:"target"`
	Heading string `json:"heading,omitempty"`
	Alias   string `json:"alias,omitempty"`
	Embed   bool   `json:"embed,omitempty"`
}

// Task is a checkbox list item extracted from a note body.
type Task struct {
	Line int      `json:"line"` // 1-based line number in the file
	Text string   `json:"text"`
	Done bool     `json:"done"`
	Due  string   `json:"due,omitempty"` // YYYY-MM-DD, from a due:: annotation
	Tags []string `json:"tags,omitempty"`
}

// Link represents a directed edge between two notes after resolution.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
