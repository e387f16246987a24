package query

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/query/vals"
)

// makeRec assembles a record the way the engine snapshot does: frontmatter
// fields plus the implicit file object.
func makeRec(path, title string, fm map[string]vals.Value, etags []string, outlinks []vals.Link, tasks []vals.Object, day vals.Value) *Record {
	base := path[strings.LastIndex(path, "/")+1:]
	stem := strings.TrimSuffix(base, ".md")
	folder := ""
	if i := strings.LastIndex(path, "/"); i >= 0 {
		folder = path[:i]
	}
	alias := ""
	if title != "" && title != stem {
		alias = title
	}

	tagList := make(vals.List, len(etags))
	for i, tg := range etags {
		tagList[i] = vals.String(tg)
	}
	linkList := make(vals.List, len(outlinks))
	for i, l := range outlinks {
		linkList[i] = l
	}
	taskList := make(vals.List, len(tasks))
	for i, tk := range tasks {
		taskList[i] = tk
	}

	file := vals.Object{
		"path":     vals.String(path),
		"name":     vals.String(stem),
		"folder":   vals.String(folder),
		"link":     vals.Link{Target: strings.TrimSuffix(path, ".md"), Alias: alias},
		"size":     vals.Number(100),
		"mtime":    vals.Date(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
		"tags":     tagList,
		"etags":    tagList,
		"outlinks": linkList,
		"inlinks":  vals.List{},
		"tasks":    taskList,
		"day":      day,
	}
	return NewRecord(path, fm, file)
}

func testRecords() []*Record {
	due := vals.Date(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	return []*Record{
		makeRec("projects/alpha.md", "Alpha",
			map[string]vals.Value{
				"status":   vals.String("open"),
				"priority": vals.Number(2),
				"owner":    vals.String("ana"),
			},
			[]string{"project/go"},
			[]vals.Link{{Target: "projects/beta"}},
			[]vals.Object{
				{"text": vals.String("ship alpha"), "done": vals.Bool(false), "line": vals.Number(5), "due": due, "tags": vals.List{vals.String("work")}},
				{"text": vals.String("draft readme"), "done": vals.Bool(true), "line": vals.Number(6), "due": vals.Null{}, "tags": vals.List{}},
			},
			vals.Null{}),
		makeRec("projects/beta.md", "Beta",
			map[string]vals.Value{
				"status":   vals.String("done"),
				"priority": vals.Number(1),
			},
			[]string{"project"},
			[]vals.Link{{Target: "projects/alpha"}},
			nil,
			vals.Null{}),
		makeRec("notes/gamma.md", "Gamma",
			map[string]vals.Value{
				"status":   vals.String("open"),
				"priority": vals.Number(3),
				"aliases":  vals.List{vals.String("g"), vals.String("gam")},
			},
			[]string{"reference"},
			nil,
			[]vals.Object{
				{"text": vals.String("water plants"), "done": vals.Bool(false), "line": vals.Number(3), "due": vals.Null{}, "tags": vals.List{}},
			},
			vals.Null{}),
		makeRec("journal/2026-01-05.md", "",
			nil,
			nil,
			nil,
			nil,
			vals.Date(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))),
	}
}

func run(t *testing.T, input string) *Result {
	t.Helper()
	q, err := Parse(input)
	require.NoError(t, err, "Parse(%q)", input)
	x := Executor{Now: testNow}
	return x.Execute(q, testRecords())
}

// firstCol renders the leading column for order assertions.
func firstCol(res *Result) []string {
	out := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = vals.Text(r[0])
	}
	return out
}

// renderResult flattens a result into pipe-separated lines for golden files.
func renderResult(res *Result) []byte {
	var b strings.Builder
	b.WriteString(res.Kind.String())
	b.WriteByte('\n')
	b.WriteString(strings.Join(res.Columns, "|"))
	b.WriteByte('\n')
	for _, r := range res.Rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = vals.Text(c)
		}
		b.WriteString(strings.Join(cells, "|"))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func TestExecuteListAll(t *testing.T) {
	res := run(t, `LIST`)
	assert.Equal(t, KindList, res.Kind)
	assert.Equal(t, []string{"File"}, res.Columns)
	// Base order is by path.
	assert.Equal(t, []string{
		"[[journal/2026-01-05]]",
		"[[notes/gamma|Gamma]]",
		"[[projects/alpha|Alpha]]",
		"[[projects/beta|Beta]]",
	}, firstCol(res))
}

func TestExecuteFromFolder(t *testing.T) {
	res := run(t, `LIST FROM "projects"`)
	assert.Equal(t, []string{"[[projects/alpha|Alpha]]", "[[projects/beta|Beta]]"}, firstCol(res))

	res = run(t, `LIST FROM "proj"`)
	assert.Empty(t, res.Rows, "folder prefixes match path segments, not substrings")
}

func TestExecuteFromTag(t *testing.T) {
	// #project matches both the exact tag and nested project/go.
	res := run(t, `LIST FROM #project`)
	assert.Equal(t, []string{"[[projects/alpha|Alpha]]", "[[projects/beta|Beta]]"}, firstCol(res))

	res = run(t, `LIST FROM #project/go`)
	assert.Equal(t, []string{"[[projects/alpha|Alpha]]"}, firstCol(res))
}

func TestExecuteFromNegationAndCombos(t *testing.T) {
	res := run(t, `LIST FROM !"projects"`)
	assert.Equal(t, []string{"[[journal/2026-01-05]]", "[[notes/gamma|Gamma]]"}, firstCol(res))

	res = run(t, `LIST FROM "projects" AND #project/go`)
	assert.Equal(t, []string{"[[projects/alpha|Alpha]]"}, firstCol(res))

	res = run(t, `LIST FROM #reference OR #project/go`)
	assert.Equal(t, []string{"[[notes/gamma|Gamma]]", "[[projects/alpha|Alpha]]"}, firstCol(res))
}

func TestExecuteFromLink(t *testing.T) {
	res := run(t, `LIST FROM [[projects/beta]]`)
	assert.Equal(t, []string{"[[projects/alpha|Alpha]]"}, firstCol(res))

	// With a resolver, short targets resolve to full paths.
	q, err := Parse(`LIST FROM [[beta]]`)
	require.NoError(t, err)
	x := Executor{
		Now: testNow,
		Resolve: func(target string) (string, bool) {
			if strings.EqualFold(target, "beta") {
				return "projects/beta.md", true
			}
			return "", false
		},
	}
	res = x.Execute(q, testRecords())
	assert.Equal(t, []string{"[[projects/alpha|Alpha]]"}, firstCol(res))
}

func TestExecuteWhere(t *testing.T) {
	res := run(t, `LIST WHERE priority > 1`)
	assert.Equal(t, []string{"[[notes/gamma|Gamma]]", "[[projects/alpha|Alpha]]"}, firstCol(res))

	res = run(t, `LIST WHERE status = "open" AND priority >= 3`)
	assert.Equal(t, []string{"[[notes/gamma|Gamma]]"}, firstCol(res))
}

func TestExecuteWhereMissingFields(t *testing.T) {
	// Unknown fields are null: ordering comparisons fail, != succeeds.
	res := run(t, `LIST WHERE nonexistent > 0`)
	assert.Empty(t, res.Rows)

	res = run(t, `LIST WHERE nonexistent != 0`)
	assert.Len(t, res.Rows, 4)
}

func TestExecuteClausesApplyInWrittenOrder(t *testing.T) {
	// WHERE then LIMIT keeps the first match; LIMIT then WHERE can keep none.
	res := run(t, `LIST WHERE priority > 1 LIMIT 1`)
	assert.Equal(t, []string{"[[notes/gamma|Gamma]]"}, firstCol(res))

	res = run(t, `LIST LIMIT 1 WHERE priority > 1`)
	assert.Empty(t, res.Rows)
}

func TestExecuteSort(t *testing.T) {
	res := run(t, `LIST SORT priority DESC`)
	// journal has no priority: null sorts first, DESC puts it last.
	assert.Equal(t, []string{
		"[[notes/gamma|Gamma]]",
		"[[projects/alpha|Alpha]]",
		"[[projects/beta|Beta]]",
		"[[journal/2026-01-05]]",
	}, firstCol(res))
}

func TestExecuteSortStableOnTies(t *testing.T) {
	res := run(t, `LIST SORT status`)
	// alpha and gamma tie on "open"; path order breaks the tie.
	assert.Equal(t, []string{
		"[[journal/2026-01-05]]",
		"[[projects/beta|Beta]]",
		"[[notes/gamma|Gamma]]",
		"[[projects/alpha|Alpha]]",
	}, firstCol(res))
}

func TestExecuteTableColumns(t *testing.T) {
	res := run(t, `TABLE status, priority * 10 AS scaled FROM "projects"`)
	assert.Equal(t, []string{"File", "status", "scaled"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, vals.Number(20), res.Rows[0][2])
	assert.Equal(t, vals.Number(10), res.Rows[1][2])
}

func TestExecuteTableWithoutID(t *testing.T) {
	res := run(t, `TABLE WITHOUT ID file.path FROM "projects"`)
	assert.Equal(t, []string{"file.path"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, vals.String("projects/alpha.md"), res.Rows[0][0])
}

func TestExecuteGroupBy(t *testing.T) {
	res := run(t, `TABLE rows.length AS count GROUP BY status`)
	assert.Equal(t, []string{"Group", "count"}, res.Columns)
	// Groups sort by key: null first, then done, open.
	assert.Equal(t, []string{"", "done", "open"}, firstCol(res))
	assert.Equal(t, vals.Number(1), res.Rows[0][1])
	assert.Equal(t, vals.Number(1), res.Rows[1][1])
	assert.Equal(t, vals.Number(2), res.Rows[2][1])
}

func TestExecuteGroupByAlias(t *testing.T) {
	res := run(t, `TABLE s, rows.length GROUP BY status AS s WHERE s = "open"`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, vals.String("open"), res.Rows[0][1])
	assert.Equal(t, vals.Number(2), res.Rows[0][2])
}

func TestExecuteGroupRowsCarryFields(t *testing.T) {
	res := run(t, `TABLE sum(rows.priority) AS total GROUP BY status WHERE key = "open"`)
	require.Len(t, res.Rows, 1)
	// rows is a list of objects, not a projection: rows.priority is null and
	// sum skips nulls.
	assert.Equal(t, vals.Number(0), res.Rows[0][1])
}

func TestExecuteFlatten(t *testing.T) {
	res := run(t, `LIST aliases FROM "notes" FLATTEN aliases`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, vals.String("g"), res.Rows[0][1])
	assert.Equal(t, vals.String("gam"), res.Rows[1][1])
}

func TestExecuteFlattenNonListKeepsRow(t *testing.T) {
	res := run(t, `LIST status FROM "projects" FLATTEN status`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, vals.String("open"), res.Rows[0][1])
	assert.Equal(t, vals.String("done"), res.Rows[1][1])
}

func TestExecuteTaskQuery(t *testing.T) {
	res := run(t, `TASK`)
	assert.Equal(t, KindTask, res.Kind)
	assert.Equal(t, []string{"done", "text", "file", "line", "due"}, res.Columns)
	assert.Len(t, res.Rows, 3)

	res = run(t, `TASK WHERE !done`)
	assert.Len(t, res.Rows, 2)

	res = run(t, `TASK WHERE done`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, vals.String("draft readme"), res.Rows[0][1])
}

func TestExecuteTaskDueFilter(t *testing.T) {
	res := run(t, `TASK WHERE !done AND due <= date(2026-09-15)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, vals.String("ship alpha"), res.Rows[0][1])
}

func TestExecuteTaskTagAccess(t *testing.T) {
	res := run(t, `TASK WHERE contains(tags, "work")`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, vals.String("ship alpha"), res.Rows[0][1])
}

func TestExecuteLimitZero(t *testing.T) {
	res := run(t, `LIST LIMIT 0`)
	assert.Empty(t, res.Rows)
}

func TestExecuteDateToday(t *testing.T) {
	res := run(t, `LIST WHERE file.day = date(2026-01-05)`)
	assert.Equal(t, []string{"[[journal/2026-01-05]]"}, firstCol(res))

	// date(today) resolves against the executor clock.
	res = run(t, `LIST WHERE date(today) = date(2026-08-22)`)
	assert.Len(t, res.Rows, 4)
}

func TestExecuteDeterministicAcrossRuns(t *testing.T) {
	first := run(t, `TABLE status GROUP BY status`)
	for i := 0; i < 5; i++ {
		again := run(t, `TABLE status GROUP BY status`)
		assert.Equal(t, first, again)
	}
}

func TestGoldenTableProjects(t *testing.T) {
	res := run(t, `TABLE file.name AS name, status, priority FROM "projects" SORT priority DESC`)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "table_projects", renderResult(res))
}

func TestGoldenGroupByStatus(t *testing.T) {
	res := run(t, `TABLE rows.length AS count GROUP BY status`)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "group_by_status", renderResult(res))
}

func TestGoldenOpenTasks(t *testing.T) {
	res := run(t, `TASK WHERE !done SORT due`)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "open_tasks", renderResult(res))
}
