package query

import (
	"sort"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/query/vals"
)

// Executor evaluates parsed queries over a record set.
type Executor struct {
	// Now fixes the evaluation clock used by date(today) and date(now).
	// Zero means wall clock.
	Now time.Time
	// Resolve maps a wikilink target to a vault path for FROM [[target]]
	// matching. Nil falls back to comparing raw targets.
	Resolve func(target string) (string, bool)
}

// Result is a tabular query result. Truncated is set when a row cap was
// applied on top of the query's own clauses.
type Result struct {
	Kind      Kind           `json:"kind"`
	Columns   []string       `json:"columns"`
	Rows      [][]vals.Value `json:"rows"`
	Truncated bool           `json:"truncated,omitempty"`
}

// Execute runs a parsed query over the records. Clauses apply in the order
// written. The base row order is by note path, and sorting is stable, so
// results are deterministic for a given record set.
func (x *Executor) Execute(q *Query, recs []*Record) *Result {
	now := x.Now
	if now.IsZero() {
		now = time.Now()
	}

	base := make([]*Record, len(recs))
	copy(base, recs)
	sort.Slice(base, func(i, j int) bool { return base[i].Path < base[j].Path })

	var rows []row
	if q.Kind == KindTask {
		rows = seedTasks(base)
	} else {
		rows = make([]row, len(base))
		for i, r := range base {
			rows[i] = row{rec: r}
		}
	}

	grouped := false
	for _, c := range q.Clauses {
		switch cl := c.(type) {
		case FromClause:
			rows = x.applyFrom(cl.Src, rows)
		case WhereClause:
			rows = applyWhere(cl.Cond, rows, now)
		case SortClause:
			rows = applySort(cl.Keys, rows, now)
		case GroupClause:
			rows = applyGroup(cl, rows, now)
			grouped = true
		case FlattenClause:
			rows = applyFlatten(cl, rows, now)
		case LimitClause:
			if cl.N < len(rows) {
				rows = rows[:cl.N]
			}
		}
	}

	return buildResult(q, rows, now, grouped)
}

// seedTasks produces one row per task, with the task's fields bound over the
// parent note's record.
func seedTasks(recs []*Record) []row {
	var rows []row
	for _, r := range recs {
		tasks, _ := r.File["tasks"].(vals.List)
		for _, tv := range tasks {
			t, ok := tv.(vals.Object)
			if !ok {
				continue
			}
			vars := make(map[string]vals.Value, len(t))
			for k, v := range t {
				vars[strings.ToLower(k)] = v
			}
			rows = append(rows, row{rec: r, vars: vars})
		}
	}
	return rows
}

func (x *Executor) applyFrom(src Source, rows []row) []row {
	out := make([]row, 0, len(rows))
	for _, w := range rows {
		if w.rec != nil && x.matchSource(src, w.rec) {
			out = append(out, w)
		}
	}
	return out
}

func (x *Executor) matchSource(s Source, r *Record) bool {
	switch src := s.(type) {
	case SrcFolder:
		if src.Prefix == "" {
			return true
		}
		path, _ := r.File["path"].(vals.String)
		p := strings.ToLower(string(path))
		prefix := strings.ToLower(src.Prefix)
		return p == prefix || strings.HasPrefix(p, prefix+"/")

	case SrcTag:
		want := strings.ToLower(strings.TrimPrefix(src.Tag, "#"))
		etags, _ := r.File["etags"].(vals.List)
		for _, tv := range etags {
			s, ok := tv.(vals.String)
			if !ok {
				continue
			}
			t := strings.ToLower(string(s))
			if t == want || strings.HasPrefix(t, want+"/") {
				return true
			}
		}
		return false

	case SrcLink:
		want := src.Target
		if x.Resolve != nil {
			if p, ok := x.Resolve(src.Target); ok {
				want = p
			}
		}
		wantN := normTarget(want)
		outlinks, _ := r.File["outlinks"].(vals.List)
		for _, lv := range outlinks {
			if l, ok := lv.(vals.Link); ok && normTarget(l.Target) == wantN {
				return true
			}
		}
		return false

	case SrcNot:
		return !x.matchSource(src.X, r)
	case SrcAnd:
		return x.matchSource(src.X, r) && x.matchSource(src.Y, r)
	case SrcOr:
		return x.matchSource(src.X, r) || x.matchSource(src.Y, r)
	}
	return false
}

func normTarget(s string) string {
	return strings.TrimSuffix(strings.ToLower(s), ".md")
}

func applyWhere(cond Expr, rows []row, now time.Time) []row {
	out := make([]row, 0, len(rows))
	for _, w := range rows {
		ev := evalCtx{row: w, now: now}
		if vals.Truthy(ev.eval(cond)) {
			out = append(out, w)
		}
	}
	return out
}

func applySort(keys []SortKey, rows []row, now time.Time) []row {
	type sorted struct {
		w    row
		keys []vals.Value
	}
	items := make([]sorted, len(rows))
	for i, w := range rows {
		ev := evalCtx{row: w, now: now}
		ks := make([]vals.Value, len(keys))
		for j, k := range keys {
			ks[j] = ev.eval(k.Expr)
		}
		items[i] = sorted{w: w, keys: ks}
	}
	// Stable sort keeps the incoming path order on full ties.
	sort.SliceStable(items, func(a, b int) bool {
		for j, k := range keys {
			c := vals.Compare(items[a].keys[j], items[b].keys[j])
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	out := make([]row, len(items))
	for i, it := range items {
		out[i] = it.w
	}
	return out
}

func applyGroup(cl GroupClause, rows []row, now time.Time) []row {
	type group struct {
		key  vals.Value
		rows vals.List
	}
	index := make(map[string]int)
	var groups []*group

	for _, w := range rows {
		ev := evalCtx{row: w, now: now}
		k := ev.eval(cl.Expr)
		// Distinctness is by typed canonical text, so String("1") and
		// Number(1) stay separate groups.
		ck := vals.TypeOf(k) + "\x00" + vals.Text(k)
		gi, ok := index[ck]
		if !ok {
			gi = len(groups)
			index[ck] = gi
			groups = append(groups, &group{key: k})
		}
		groups[gi].rows = append(groups[gi].rows, vals.Value(w.asObject()))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return vals.Compare(groups[i].key, groups[j].key) < 0
	})

	out := make([]row, len(groups))
	for i, g := range groups {
		vars := map[string]vals.Value{
			"key":  g.key,
			"rows": g.rows,
		}
		if cl.Name != "" {
			vars[strings.ToLower(cl.Name)] = g.key
		}
		out[i] = row{vars: vars}
	}
	return out
}

func applyFlatten(cl FlattenClause, rows []row, now time.Time) []row {
	var out []row
	for _, w := range rows {
		ev := evalCtx{row: w, now: now}
		v := ev.eval(cl.Expr)
		if list, ok := v.(vals.List); ok {
			for _, e := range list {
				out = append(out, w.bind(cl.Name, e))
			}
			continue
		}
		out = append(out, w.bind(cl.Name, v))
	}
	return out
}

// identity is the value of the leading File/Group column.
func identity(w row) vals.Value {
	if w.rec != nil {
		if l, ok := w.rec.File["link"]; ok {
			return l
		}
		return vals.String(w.rec.Path)
	}
	if v, ok := w.vars["key"]; ok {
		return v
	}
	return vals.Null{}
}

func buildResult(q *Query, rows []row, now time.Time, grouped bool) *Result {
	idName := "File"
	if grouped {
		idName = "Group"
	}

	switch q.Kind {
	case KindTable:
		res := &Result{Kind: KindTable}
		if !q.WithoutID {
			res.Columns = append(res.Columns, idName)
		}
		for _, c := range q.Cols {
			res.Columns = append(res.Columns, c.Name)
		}
		for _, w := range rows {
			ev := evalCtx{row: w, now: now}
			cells := make([]vals.Value, 0, len(res.Columns))
			if !q.WithoutID {
				cells = append(cells, identity(w))
			}
			for _, c := range q.Cols {
				cells = append(cells, ev.eval(c.Expr))
			}
			res.Rows = append(res.Rows, cells)
		}
		return res

	case KindTask:
		res := &Result{Kind: KindTask}
		hasDue := false
		for _, w := range rows {
			if !isNull(w.get("due")) {
				hasDue = true
				break
			}
		}
		res.Columns = []string{"done", "text", "file", "line"}
		if hasDue {
			res.Columns = append(res.Columns, "due")
		}
		for _, w := range rows {
			cells := []vals.Value{w.get("done"), w.get("text"), identity(w), w.get("line")}
			if hasDue {
				cells = append(cells, w.get("due"))
			}
			res.Rows = append(res.Rows, cells)
		}
		return res

	default: // KindList
		res := &Result{Kind: KindList}
		res.Columns = []string{idName}
		if q.ListExpr != nil {
			res.Columns = append(res.Columns, "Value")
		}
		for _, w := range rows {
			cells := []vals.Value{identity(w)}
			if q.ListExpr != nil {
				ev := evalCtx{row: w, now: now}
				cells = append(cells, ev.eval(q.ListExpr))
			}
			res.Rows = append(res.Rows, cells)
		}
		return res
	}
}
