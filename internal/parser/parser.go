// Package parser extracts frontmatter, wikilinks, tags, and tasks from
// Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`(!?)\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	taskRe     = regexp.MustCompile(`^\s*[-*] \[([ xX])\] (.*)$`)
	dueRe      = regexp.MustCompile(`due::\s*(\d{4}-\d{2}-\d{2})`)
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Links       []models.Wikilink
	Tags        []string
	Tasks       []models.Task
	Title       string
}

// Parse extracts frontmatter, body, wikilinks, tags, and tasks from raw
// Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, bodyLine := splitFrontmatter(data)

	links, bodyTags, tasks := scanBody(body, bodyLine)
	tags := mergeTags(fm, bodyTags)
	title := deriveTitle(fm, body)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       links,
		Tags:        tags,
		Tasks:       tasks,
		Title:       title,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is
// body. bodyLine is the 1-based line number of the body's first line within
// the original file.
func splitFrontmatter(data []byte) (map[string]interface{}, string, int) {
	const delim = "---"
	full := string(data)
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, full, 1
	}

	// Find end delimiter.
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter — treat everything as body.
		return nil, full, 1
	}

	yamlBlock := rest[:idx]
	// Body starts after closing delimiter line.
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML — everything is body, no error.
		return nil, full, 1
	}

	// body is a suffix of full, so the consumed prefix gives the offset.
	bodyLine := strings.Count(full[:len(full)-len(body)], "\n") + 1
	return fm, body, bodyLine
}

// scanBody walks the body line by line collecting wikilinks, inline tags, and
// task items. Content inside fenced code blocks is skipped. firstLine is the
// file line number of the body's first line.
func scanBody(body string, firstLine int) ([]models.Wikilink, []string, []models.Task) {
	var (
		links   []models.Wikilink
		tags    []string
		tasks   []models.Task
		inFence bool
	)
	linkSeen := make(map[string]struct{})
	tagSeen := make(map[string]struct{})

	for i, line := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "```") || strings.HasPrefix(stripped, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		for _, m := range wikilinkRe.FindAllStringSubmatch(line, -1) {
			wl, ok := parseWikilink(m[2], m[1] == "!")
			if !ok {
				continue
			}
			key := wl.Target + "#" + wl.Heading
			if _, dup := linkSeen[key]; dup {
				continue
			}
			linkSeen[key] = struct{}{}
			links = append(links, wl)
		}

		for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
			if _, dup := tagSeen[m[1]]; dup {
				continue
			}
			tagSeen[m[1]] = struct{}{}
			tags = append(tags, m[1])
		}

		if m := taskRe.FindStringSubmatch(line); m != nil {
			tasks = append(tasks, parseTask(m, firstLine+i))
		}
	}
	return links, tags, tasks
}

// parseWikilink splits raw [[...]] content into target, heading, and alias.
// Empty targets (e.g. [[#heading]] same-file links) are dropped.
func parseWikilink(inner string, embed bool) (models.Wikilink, bool) {
	target := inner
	alias := ""
	if i := strings.Index(inner, "|"); i >= 0 {
		target, alias = inner[:i], strings.TrimSpace(inner[i+1:])
	}
	heading := ""
	if i := strings.Index(target, "#"); i >= 0 {
		target, heading = target[:i], strings.TrimSpace(target[i+1:])
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return models.Wikilink{}, false
	}
	return models.Wikilink{Target: target, Heading: heading, Alias: alias, Embed: embed}, true
}

// parseTask builds a task from a checkbox list item match.
func parseTask(m []string, line int) models.Task {
	text := strings.TrimSpace(m[2])
	t := models.Task{
		Line: line,
		Text: text,
		Done: m[1] == "x" || m[1] == "X",
	}
	if d := dueRe.FindStringSubmatch(text); d != nil {
		t.Due = d[1]
	}
	for _, tm := range tagRe.FindAllStringSubmatch(text, -1) {
		t.Tags = append(t.Tags, tm[1])
	}
	return t
}

// Stem returns the file name of path without directories or the .md suffix.
// Callers use it as the title fallback for notes with no frontmatter title
// and no H1.
func Stem(path string) string {
	s := path[strings.LastIndex(path, "/")+1:]
	return strings.TrimSuffix(s, ".md")
}

// mergeTags combines frontmatter "tags" (string or list) with inline body
// tags, frontmatter first, deduplicated.
func mergeTags(fm map[string]interface{}, bodyTags []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimPrefix(strings.TrimSpace(s), "#")
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case string:
			add(v)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
	}
	for _, t := range bodyTags {
		add(t)
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading outside fenced code, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
