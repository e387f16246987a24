package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/query/vals"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Re-index the vault and report what changed",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, cleanup, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Printf("indexed %d, removed %d, unchanged %d\n",
				env.stats.Indexed, env.stats.Removed, env.stats.Unchanged)

			dangling, err := env.svc.DanglingLinks(ctx)
			if err != nil {
				return err
			}
			if len(dangling) > 0 {
				fmt.Printf("%d dangling links:\n", len(dangling))
				for _, l := range dangling {
					fmt.Printf("  %s -> [[%s]]\n", l.Source, l.Target)
				}
			}
			return nil
		},
	}
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run a LIST, TABLE, or TASK query against the vault",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table or json",
				Value:   "table",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if text == "" {
				return fmt.Errorf("query text is required")
			}

			env, cleanup, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := env.svc.Query(ctx, text)
			if err != nil {
				var perr *query.ParseError
				if errors.As(err, &perr) {
					return fmt.Errorf("%s", renderParseError(text, perr))
				}
				return err
			}

			if cmd.String("format") == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(os.Stdout, res)
			return nil
		},
	}
}

// renderParseError points a caret at the offending offset in the query text.
func renderParseError(text string, perr *query.ParseError) string {
	pos := perr.Pos
	if pos > len(text) {
		pos = len(text)
	}
	var b strings.Builder
	b.WriteString(perr.Error())
	b.WriteString("\n  ")
	b.WriteString(text)
	b.WriteString("\n  ")
	b.WriteString(strings.Repeat(" ", pos))
	b.WriteString("^")
	return b.String()
}

func printResult(w io.Writer, res *query.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = vals.Text(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	if res.Truncated {
		fmt.Fprintln(w, "(result truncated)")
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search across note titles and bodies",
		ArgsUsage: "TERMS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum results",
				Value:   20,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if q == "" {
				return fmt.Errorf("search terms are required")
			}

			env, cleanup, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := env.svc.Search(ctx, q, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Title, plainSnippet(r.Snippet))
			}
			return tw.Flush()
		},
	}
}

// plainSnippet strips the FTS highlight markers for terminal output.
func plainSnippet(s string) string {
	s = strings.ReplaceAll(s, "<b>", "")
	s = strings.ReplaceAll(s, "</b>", "")
	return strings.ReplaceAll(s, "\n", " ")
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List every tag in the vault with its note count",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, cleanup, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			counts, err := env.svc.TagCounts(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", c.Tag, c.Count)
			}
			return tw.Flush()
		},
	}
}

func backlinksCommand() *cli.Command {
	return &cli.Command{
		Name:      "backlinks",
		Usage:     "List notes that link to the given note",
		ArgsUsage: "NOTE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			target := cmd.Args().First()
			if target == "" {
				return fmt.Errorf("note path or title is required")
			}

			env, cleanup, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			backlinks, err := env.svc.Backlinks(ctx, target)
			if err != nil {
				return err
			}
			if len(backlinks) == 0 {
				fmt.Println("no backlinks")
				return nil
			}
			for _, b := range backlinks {
				fmt.Println(b.Source)
			}
			return nil
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Fuzzy-find notes by path or title",
		ArgsUsage: "TEXT",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum matches",
				Value:   10,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))

			env, cleanup, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			matches, err := env.svc.Fuzzy(ctx, q, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Println("no matches")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, m := range matches {
				fmt.Fprintf(tw, "%s\t%s\n", m.Path, m.Title)
			}
			return tw.Flush()
		},
	}
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Render a note to the terminal",
		ArgsUsage: "NOTE",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("note path is required")
			}
			if !strings.HasSuffix(path, ".md") {
				path += ".md"
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := storageFS(cfg)
			if err != nil {
				return err
			}
			data, err := store.Read(path)
			if err != nil {
				return err
			}

			out, err := renderMarkdown(string(data))
			if err != nil {
				// Fall back to the raw note when the terminal renderer
				// cannot be used.
				fmt.Print(string(data))
				return nil
			}
			fmt.Print(out)
			return nil
		},
	}
}

func renderMarkdown(content string) (string, error) {
	if os.Getenv("TERM") == "dumb" {
		return "", fmt.Errorf("dumb terminal")
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}
