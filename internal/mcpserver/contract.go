package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or updating notes.
const NoteFormatContract = `# Ansuz Note Format Contract

Every Markdown note stored in Ansuz MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED – used in search, listings, graph
tags:                               # OPTIONAL – YAML list; used for filtering
  - tag-one
  - tag-two
status: open                        # OPTIONAL – any extra fields are queryable
due: 2026-09-01                     # OPTIONAL – ISO-8601 dates become date values
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use - [ ] task text for open tasks and - [x] for completed ones.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `title` + "`" + ` field is required.** It is the primary display name everywhere.
3. **Tags** are lowercase, kebab-case. Nested tags use slashes
   (e.g. ` + "`" + `project/alpha` + "`" + `); querying ` + "`" + `#project` + "`" + ` also matches the nested forms.
4. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. The target is the
   filename stem (no ` + "`" + `.md` + "`" + ` extension, path separators OK: ` + "`" + `[[folder/note]]` + "`" + `).
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
6. **Encoding** is UTF-8 with a trailing newline.
7. **No HTML** unless absolutely necessary; prefer Markdown equivalents.
8. **Frontmatter keys** MUST be in English (they are schema fields the query
   engine addresses by name). Values and body content may use any language.

## Querying

Every frontmatter field is visible to the ` + "`" + `query_vault` + "`" + ` tool, along with the
implicit ` + "`" + `file.*` + "`" + ` fields (path, name, folder, tags, outlinks, inlinks, tasks).
Daily notes named ` + "`" + `YYYY-MM-DD.md` + "`" + ` expose that date as ` + "`" + `file.day` + "`" + `. Use
consistent field names and ISO dates so queries like
` + "`" + `TASK WHERE !done AND due <= date(today)` + "`" + ` keep working.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the note body.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- Reference in notes using the absolute path: ` + "`" + `![description](/attachments/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
- Do **not** use relative paths like ` + "`" + `./attachments/...` + "`" + ` — always use ` + "`" + `/attachments/filename` + "`" + `.

## Example

` + "```" + `markdown
---
title: Weekly review 2026-08-21
tags:
  - review
  - project/alpha
status: open
---

# Weekly review 2026-08-21

Progress on [[project-alpha/roadmap|the roadmap]] is on track.

![Whiteboard photo](/attachments/review-2026-08-21.jpg)

## Follow-ups

- [ ] ping [[alice]] about the [[design-doc]] #project/alpha
- [x] close out last week's review
` + "```" + `
`
