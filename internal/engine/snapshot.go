package engine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/query/vals"
	"github.com/starford/ansuz/internal/resolver"
)

// dayRe matches a daily-note date prefix in a file name.
var dayRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// buildSnapshot materializes query records for every indexed note.
func buildSnapshot(db *index.DB) (*snapshot, error) {
	notes, err := db.AllNotes()
	if err != nil {
		return nil, err
	}
	links, err := db.AllLinks()
	if err != nil {
		return nil, err
	}
	tasks, err := db.AllTasks()
	if err != nil {
		return nil, err
	}

	rnotes := make([]resolver.Note, len(notes))
	titles := make(map[string]string, len(notes))
	for i, n := range notes {
		rnotes[i] = resolver.Note{Path: n.Path, Title: n.Title}
		titles[n.Path] = n.Title
	}
	res := resolver.New(rnotes)

	outlinks := make(map[string]vals.List)
	inlinks := make(map[string]vals.List)
	for _, l := range links {
		if resolved, ok := res.Resolve(l.Target); ok {
			outlinks[l.Source] = append(outlinks[l.Source], noteLink(resolved, titles[resolved]))
			inlinks[resolved] = append(inlinks[resolved], noteLink(l.Source, titles[l.Source]))
		} else {
			// Dangling targets keep their written text.
			outlinks[l.Source] = append(outlinks[l.Source], vals.Link{Target: l.Target})
		}
	}

	taskLists := make(map[string]vals.List)
	for _, t := range tasks {
		taskLists[t.Path] = append(taskLists[t.Path], taskObject(t))
	}

	recs := make([]*query.Record, len(notes))
	for i, n := range notes {
		recs[i] = buildRecord(n, outlinks[n.Path], inlinks[n.Path], taskLists[n.Path])
	}
	return &snapshot{recs: recs, res: res}, nil
}

func buildRecord(n index.NoteRow, out, in, tasks vals.List) *query.Record {
	fields := make(map[string]vals.Value, len(n.Frontmatter))
	for k, v := range n.Frontmatter {
		fields[k] = vals.FromYAML(v)
	}

	stem := n.Path[strings.LastIndex(n.Path, "/")+1:]
	stem = strings.TrimSuffix(stem, ".md")
	folder := ""
	if i := strings.LastIndex(n.Path, "/"); i >= 0 {
		folder = n.Path[:i]
	}

	var day vals.Value = vals.Null{}
	if m := dayRe.FindString(stem); m != "" {
		if d, ok := vals.ParseDate(m); ok {
			day = d
		}
	}

	file := vals.Object{
		"path":     vals.String(n.Path),
		"name":     vals.String(stem),
		"folder":   vals.String(folder),
		"link":     noteLink(n.Path, n.Title),
		"size":     vals.Number(float64(n.Size)),
		"mtime":    vals.Date(n.ModifiedAt),
		"tags":     expandTags(n.Tags),
		"etags":    exactTags(n.Tags),
		"outlinks": orEmpty(out),
		"inlinks":  orEmpty(in),
		"tasks":    orEmpty(tasks),
		"day":      day,
	}
	return query.NewRecord(n.Path, fields, file)
}

// noteLink builds the link value for a note, with the title as alias when it
// adds information over the file name.
func noteLink(path, title string) vals.Link {
	stem := path[strings.LastIndex(path, "/")+1:]
	stem = strings.TrimSuffix(stem, ".md")
	alias := ""
	if title != "" && title != stem {
		alias = title
	}
	return vals.Link{Target: strings.TrimSuffix(path, ".md"), Alias: alias}
}

func taskObject(t index.TaskRow) vals.Object {
	var due vals.Value = vals.Null{}
	if t.Due != "" {
		if d, ok := vals.ParseDate(t.Due); ok {
			due = d
		}
	}
	tags := make(vals.List, len(t.Tags))
	for i, tg := range t.Tags {
		tags[i] = vals.String(tg)
	}
	return vals.Object{
		"text": vals.String(t.Text),
		"done": vals.Bool(t.Done),
		"line": vals.Number(float64(t.Line)),
		"due":  due,
		"tags": tags,
	}
}

// expandTags returns the tags plus every ancestor of nested tags, sorted:
// project/go contributes both project and project/go.
func expandTags(tags []string) vals.List {
	seen := make(map[string]struct{})
	var all []string
	for _, t := range tags {
		parts := strings.Split(t, "/")
		for i := range parts {
			p := strings.Join(parts[:i+1], "/")
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				all = append(all, p)
			}
		}
	}
	sort.Strings(all)
	out := make(vals.List, len(all))
	for i, t := range all {
		out[i] = vals.String(t)
	}
	return out
}

func exactTags(tags []string) vals.List {
	out := make(vals.List, len(tags))
	for i, t := range tags {
		out[i] = vals.String(t)
	}
	return out
}

func orEmpty(l vals.List) vals.List {
	if l == nil {
		return vals.List{}
	}
	return l
}
