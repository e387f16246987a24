package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/query/vals"
)

func mustParse(t *testing.T, input string) *Query {
	t.Helper()
	q, err := Parse(input)
	require.NoError(t, err, "Parse(%q)", input)
	return q
}

func parseErr(t *testing.T, input string) *ParseError {
	t.Helper()
	_, err := Parse(input)
	require.Error(t, err, "Parse(%q) should fail", input)
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "error should be *ParseError, got %T", err)
	return pe
}

func TestParseTableFull(t *testing.T) {
	q := mustParse(t, `TABLE file.name AS Name, priority FROM "projects" WHERE priority > 1 SORT priority DESC LIMIT 5`)

	assert.Equal(t, KindTable, q.Kind)
	assert.False(t, q.WithoutID)
	require.Len(t, q.Cols, 2)
	assert.Equal(t, "Name", q.Cols[0].Name)
	assert.Equal(t, "priority", q.Cols[1].Name)

	require.Len(t, q.Clauses, 4)
	from, ok := q.Clauses[0].(FromClause)
	require.True(t, ok)
	assert.Equal(t, SrcFolder{Prefix: "projects"}, from.Src)

	_, ok = q.Clauses[1].(WhereClause)
	require.True(t, ok)

	srt, ok := q.Clauses[2].(SortClause)
	require.True(t, ok)
	require.Len(t, srt.Keys, 1)
	assert.True(t, srt.Keys[0].Desc)

	lim, ok := q.Clauses[3].(LimitClause)
	require.True(t, ok)
	assert.Equal(t, 5, lim.N)
}

func TestParseTableWithoutID(t *testing.T) {
	q := mustParse(t, `TABLE WITHOUT ID file.path`)
	assert.True(t, q.WithoutID)
	require.Len(t, q.Cols, 1)
	assert.Equal(t, "file.path", q.Cols[0].Name)
}

func TestParseDefaultColumnNames(t *testing.T) {
	q := mustParse(t, `TABLE length(rows), upper(status) AS S`)
	require.Len(t, q.Cols, 2)
	assert.Equal(t, "length(rows)", q.Cols[0].Name)
	assert.Equal(t, "S", q.Cols[1].Name)
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	q := mustParse(t, `table without id from #x where true sort file.name asc limit 3`)
	assert.Equal(t, KindTable, q.Kind)
	assert.True(t, q.WithoutID)
	require.Len(t, q.Clauses, 4)
}

func TestParseListWithExpr(t *testing.T) {
	q := mustParse(t, `LIST file.mtime FROM #book`)
	assert.Equal(t, KindList, q.Kind)
	require.NotNil(t, q.ListExpr)
}

func TestParseBareQueryDefaultsToList(t *testing.T) {
	q := mustParse(t, `FROM #inbox WHERE !done`)
	assert.Equal(t, KindList, q.Kind)
	assert.Nil(t, q.ListExpr)
	require.Len(t, q.Clauses, 2)
}

func TestParseEmptyQuery(t *testing.T) {
	q := mustParse(t, "")
	assert.Equal(t, KindList, q.Kind)
	assert.Empty(t, q.Clauses)
}

func TestParseTask(t *testing.T) {
	q := mustParse(t, `TASK WHERE !done AND due <= date(2026-09-01)`)
	assert.Equal(t, KindTask, q.Kind)
	require.Len(t, q.Clauses, 1)
}

func TestParseClausesKeepWrittenOrder(t *testing.T) {
	q := mustParse(t, `LIST WHERE a LIMIT 1 WHERE b`)
	require.Len(t, q.Clauses, 3)
	_, ok := q.Clauses[0].(WhereClause)
	assert.True(t, ok)
	_, ok = q.Clauses[1].(LimitClause)
	assert.True(t, ok)
	_, ok = q.Clauses[2].(WhereClause)
	assert.True(t, ok)
}

func TestParseGroupBy(t *testing.T) {
	q := mustParse(t, `TABLE rows.length GROUP BY author AS a`)
	require.Len(t, q.Clauses, 1)
	g, ok := q.Clauses[0].(GroupClause)
	require.True(t, ok)
	assert.Equal(t, "a", g.Name)
	id, ok := g.Expr.(Ident)
	require.True(t, ok)
	assert.Equal(t, "author", id.Name)
}

func TestParseFlatten(t *testing.T) {
	q := mustParse(t, `LIST FLATTEN file.tags AS tag`)
	f, ok := q.Clauses[0].(FlattenClause)
	require.True(t, ok)
	assert.Equal(t, "tag", f.Name)

	// Without AS the binding name comes from the field itself.
	q = mustParse(t, `LIST FLATTEN aliases`)
	f, ok = q.Clauses[0].(FlattenClause)
	require.True(t, ok)
	assert.Equal(t, "aliases", f.Name)
}

func TestParseFlattenComputedNeedsAS(t *testing.T) {
	pe := parseErr(t, `LIST FLATTEN split(status, "/")`)
	assert.Contains(t, pe.Msg, "AS")
}

func TestParseDateLiterals(t *testing.T) {
	q := mustParse(t, `LIST WHERE due <= date(2026-06-01)`)
	w := q.Clauses[0].(WhereClause)
	cmp, ok := w.Cond.(Binary)
	require.True(t, ok)
	lit, ok := cmp.Y.(Lit)
	require.True(t, ok)
	d, ok := lit.Val.(vals.Date)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), time.Time(d))

	// date(today) resolves at eval time, so it parses into a call.
	q = mustParse(t, `LIST WHERE due <= date(today)`)
	w = q.Clauses[0].(WhereClause)
	cmp = w.Cond.(Binary)
	call, ok := cmp.Y.(Call)
	require.True(t, ok)
	assert.Equal(t, "date", call.Name)
}

func TestParseDurationLiteral(t *testing.T) {
	q := mustParse(t, `LIST WHERE age > dur(7 days)`)
	cmp := q.Clauses[0].(WhereClause).Cond.(Binary)
	lit, ok := cmp.Y.(Lit)
	require.True(t, ok)
	assert.Equal(t, vals.Duration(7*24*time.Hour), lit.Val)
}

func TestParseLinkLiteral(t *testing.T) {
	q := mustParse(t, `LIST WHERE contains(file.outlinks, [[Note A#Section|see]])`)
	call := q.Clauses[0].(WhereClause).Cond.(Call)
	lit, ok := call.Args[1].(Lit)
	require.True(t, ok)
	assert.Equal(t, vals.Link{Target: "Note A", Alias: "see"}, lit.Val)
}

func TestParseNestedListLiteral(t *testing.T) {
	// [[1,2],[3]] must lex as a list of lists, not a wikilink.
	q := mustParse(t, `LIST WHERE length([[1,2],[3]]) = 2`)
	cmp := q.Clauses[0].(WhereClause).Cond.(Binary)
	call := cmp.X.(Call)
	outer, ok := call.Args[0].(ListExpr)
	require.True(t, ok)
	require.Len(t, outer.Elems, 2)
	_, ok = outer.Elems[0].(ListExpr)
	assert.True(t, ok)
}

func TestParseSourcePrecedence(t *testing.T) {
	q := mustParse(t, `LIST FROM #a AND !"archive" OR [[hub]]`)
	from := q.Clauses[0].(FromClause)
	or, ok := from.Src.(SrcOr)
	require.True(t, ok)

	and, ok := or.X.(SrcAnd)
	require.True(t, ok)
	assert.Equal(t, SrcTag{Tag: "a"}, and.X)
	not, ok := and.Y.(SrcNot)
	require.True(t, ok)
	assert.Equal(t, SrcFolder{Prefix: "archive"}, not.X)

	assert.Equal(t, SrcLink{Target: "hub"}, or.Y)
}

func TestParseSourceParens(t *testing.T) {
	q := mustParse(t, `LIST FROM #a AND (#b OR #c)`)
	and := q.Clauses[0].(FromClause).Src.(SrcAnd)
	_, ok := and.Y.(SrcOr)
	assert.True(t, ok)
}

func TestParseOperatorPrecedence(t *testing.T) {
	q := mustParse(t, `LIST WHERE a + b * c = d OR e`)
	// ((a + (b*c)) = d) OR e
	or := q.Clauses[0].(WhereClause).Cond.(Binary)
	assert.Equal(t, "or", or.Op)
	eq := or.X.(Binary)
	assert.Equal(t, "=", eq.Op)
	sum := eq.X.(Binary)
	assert.Equal(t, "+", sum.Op)
	prod := sum.Y.(Binary)
	assert.Equal(t, "*", prod.Op)
}

func TestParseEqualsNormalized(t *testing.T) {
	for _, in := range []string{`LIST WHERE a = 1`, `LIST WHERE a == 1`} {
		q := mustParse(t, in)
		cmp := q.Clauses[0].(WhereClause).Cond.(Binary)
		assert.Equal(t, "=", cmp.Op, "input %q", in)
	}
}

func TestParseStringEscapes(t *testing.T) {
	q := mustParse(t, `LIST WHERE name = "say \"hi\" to \\ everyone"`)
	cmp := q.Clauses[0].(WhereClause).Cond.(Binary)
	lit := cmp.Y.(Lit)
	assert.Equal(t, vals.String(`say "hi" to \ everyone`), lit.Val)
}

func TestParseUnknownFunction(t *testing.T) {
	input := `LIST WHERE frobnicate(x)`
	pe := parseErr(t, input)
	assert.Contains(t, pe.Msg, "unknown function")
	assert.Equal(t, strings.Index(input, "frobnicate"), pe.Pos)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{`TABLE x AS`, "expected name after AS"},
		{`LIST LIMIT x`, "LIMIT takes an integer"},
		{`LIST LIMIT 2.5`, "LIMIT takes an integer"},
		{`LIST WHERE "unterminated`, "unterminated string"},
		{`LIST FROM 42`, "expected folder"},
		{`LIST GROUP author`, "expected BY"},
		{`TABLE WITHOUT x`, "expected ID"},
		{`LIST WHERE (a`, "expected ')'"},
		{`LIST WHERE a ~ b`, "unexpected character"},
		{`LIST WHERE x.`, "expected field name"},
	}
	for _, tc := range cases {
		pe := parseErr(t, tc.input)
		assert.Contains(t, pe.Msg, tc.want, "input %q", tc.input)
	}
}

func TestParseErrorHasOffset(t *testing.T) {
	input := `LIST WHERE a ~ b`
	pe := parseErr(t, input)
	assert.Equal(t, strings.Index(input, "~"), pe.Pos)
	assert.Contains(t, pe.Error(), "offset")
}
