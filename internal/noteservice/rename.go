package noteservice

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// RenameNote moves a note and rewrites wikilinks in every note that pointed
// at it. Heading suffixes and aliases survive; only the target text changes,
// to the new path without its .md extension. Destination conflicts, on disk
// or in the index, fail with ErrAlreadyExists.
func (s *Service) RenameNote(_ context.Context, from, to string) (*NoteDetail, error) {
	data, err := s.store.Read(from)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if _, err := s.store.Read(to); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	row, err := s.db.GetNote(to)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return nil, apperr.ErrAlreadyExists
	}

	// Snapshot the resolver before the move: referrers are the notes whose
	// links resolve to the old path.
	res, links, err := s.currentResolver()
	if err != nil {
		return nil, err
	}
	referrers := make(map[string]struct{})
	for _, l := range links {
		if l.Source == from {
			continue
		}
		if resolved, ok := res.Resolve(l.Target); ok && resolved == from {
			referrers[l.Source] = struct{}{}
		}
	}

	if err := s.store.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.db.DeleteNote(from); err != nil {
		return nil, err
	}
	if err := s.indexFile(to, data); err != nil {
		return nil, err
	}

	newTarget := strings.TrimSuffix(to, ".md")
	pointsAtOld := func(target string) bool {
		resolved, ok := res.Resolve(target)
		return ok && resolved == from
	}
	for src := range referrers {
		srcData, err := s.store.Read(src)
		if err != nil {
			return nil, err
		}
		rewritten, changed := rewriteLinks(srcData, pointsAtOld, newTarget)
		if !changed {
			continue
		}
		if err := s.store.Write(src, rewritten); err != nil {
			return nil, err
		}
		if err := s.indexFile(src, rewritten); err != nil {
			return nil, err
		}
	}

	return s.buildNoteDetail(to, data)
}

// rewriteLinks replaces the target portion of every wikilink selected by
// match, keeping embeds, headings, and aliases intact.
func rewriteLinks(content []byte, match func(target string) bool, newTarget string) ([]byte, bool) {
	changed := false
	out := wikilinkRe.ReplaceAllFunc(content, func(m []byte) []byte {
		inner := string(m[2 : len(m)-2])
		target := inner
		rest := ""
		if i := strings.IndexAny(inner, "#|"); i >= 0 {
			target = inner[:i]
			rest = inner[i:]
		}
		if !match(target) {
			return m
		}
		changed = true
		return []byte("[[" + newTarget + rest + "]]")
	})
	return out, changed
}
