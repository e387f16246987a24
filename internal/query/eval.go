package query

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/query/vals"
)

// evalCtx carries evaluation state: the current row and the query clock.
type evalCtx struct {
	row row
	now time.Time
}

// eval computes an expression over the current row. Evaluation never fails;
// missing fields and bad operations yield Null.
func (ev *evalCtx) eval(e Expr) vals.Value {
	switch n := e.(type) {
	case Lit:
		return n.Val
	case Ident:
		return ev.row.get(n.Name)
	case ListExpr:
		out := make(vals.List, len(n.Elems))
		for i, el := range n.Elems {
			out[i] = ev.eval(el)
		}
		return out
	case Field:
		return getField(ev.eval(n.X), n.Name)
	case Index:
		return getIndex(ev.eval(n.X), ev.eval(n.I))
	case Unary:
		return evalUnary(n.Op, ev.eval(n.X))
	case Binary:
		return ev.evalBinary(n)
	case Call:
		fn := builtins[n.Name]
		if fn == nil {
			return vals.Null{}
		}
		args := make([]vals.Value, len(n.Args))
		for i, a := range n.Args {
			args[i] = ev.eval(a)
		}
		return fn(ev, args)
	}
	return vals.Null{}
}

// getField resolves postfix member access. Objects look up keys
// case-insensitively; dates expose year/month/day; links expose
// target/alias.
func getField(x vals.Value, name string) vals.Value {
	switch v := x.(type) {
	case vals.Object:
		if val, ok := v[name]; ok {
			return val
		}
		ln := strings.ToLower(name)
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.ToLower(k) == ln {
				return v[k]
			}
		}
	case vals.Date:
		t := time.Time(v)
		switch strings.ToLower(name) {
		case "year":
			return vals.Number(t.Year())
		case "month":
			return vals.Number(int(t.Month()))
		case "day":
			return vals.Number(t.Day())
		case "weekday":
			return vals.String(t.Weekday().String())
		}
	case vals.Link:
		switch strings.ToLower(name) {
		case "target":
			return vals.String(v.Target)
		case "alias":
			return vals.String(v.Alias)
		}
	case vals.List:
		if strings.ToLower(name) == "length" {
			return vals.Number(len(v))
		}
	}
	return vals.Null{}
}

// getIndex resolves postfix indexing: lists by zero-based number, objects by
// string key.
func getIndex(x, i vals.Value) vals.Value {
	switch v := x.(type) {
	case vals.List:
		n, ok := i.(vals.Number)
		if !ok {
			return vals.Null{}
		}
		idx := int(n)
		if float64(idx) != float64(n) || idx < 0 || idx >= len(v) {
			return vals.Null{}
		}
		return v[idx]
	case vals.Object:
		k, ok := i.(vals.String)
		if !ok {
			return vals.Null{}
		}
		return getField(v, string(k))
	}
	return vals.Null{}
}

func evalUnary(op string, x vals.Value) vals.Value {
	switch op {
	case "!":
		return vals.Bool(!vals.Truthy(x))
	case "-":
		switch v := x.(type) {
		case vals.Number:
			return -v
		case vals.Duration:
			return -v
		}
	}
	return vals.Null{}
}

func (ev *evalCtx) evalBinary(n Binary) vals.Value {
	// and/or short-circuit on the left operand.
	switch n.Op {
	case "or":
		if vals.Truthy(ev.eval(n.X)) {
			return vals.Bool(true)
		}
		return vals.Bool(vals.Truthy(ev.eval(n.Y)))
	case "and":
		if !vals.Truthy(ev.eval(n.X)) {
			return vals.Bool(false)
		}
		return vals.Bool(vals.Truthy(ev.eval(n.Y)))
	}

	x := ev.eval(n.X)
	y := ev.eval(n.Y)
	switch n.Op {
	case "=":
		return vals.Bool(vals.Equal(x, y))
	case "!=":
		return vals.Bool(!vals.Equal(x, y))
	case "<", "<=", ">", ">=":
		// Ordering against null is always false; equality handles nulls.
		if isNull(x) || isNull(y) {
			return vals.Bool(false)
		}
		c := vals.Compare(x, y)
		switch n.Op {
		case "<":
			return vals.Bool(c < 0)
		case "<=":
			return vals.Bool(c <= 0)
		case ">":
			return vals.Bool(c > 0)
		default:
			return vals.Bool(c >= 0)
		}
	case "+":
		return add(x, y)
	case "-":
		return sub(x, y)
	case "*":
		return mul(x, y)
	case "/":
		return div(x, y)
	case "%":
		return mod(x, y)
	}
	return vals.Null{}
}

func isNull(v vals.Value) bool {
	_, ok := v.(vals.Null)
	return ok || v == nil
}

func add(x, y vals.Value) vals.Value {
	if isNull(x) || isNull(y) {
		return vals.Null{}
	}
	if a, ok := x.(vals.Number); ok {
		if b, ok := y.(vals.Number); ok {
			return a + b
		}
	}
	// String concatenation wins whenever either side is a string.
	if _, ok := x.(vals.String); ok {
		return vals.String(vals.Text(x) + vals.Text(y))
	}
	if _, ok := y.(vals.String); ok {
		return vals.String(vals.Text(x) + vals.Text(y))
	}
	if a, ok := x.(vals.Date); ok {
		if b, ok := y.(vals.Duration); ok {
			return vals.Date(time.Time(a).Add(time.Duration(b)))
		}
	}
	if a, ok := x.(vals.Duration); ok {
		switch b := y.(type) {
		case vals.Date:
			return vals.Date(time.Time(b).Add(time.Duration(a)))
		case vals.Duration:
			return a + b
		}
	}
	if a, ok := x.(vals.List); ok {
		if b, ok := y.(vals.List); ok {
			out := make(vals.List, 0, len(a)+len(b))
			out = append(out, a...)
			out = append(out, b...)
			return out
		}
	}
	return vals.Null{}
}

func sub(x, y vals.Value) vals.Value {
	if isNull(x) || isNull(y) {
		return vals.Null{}
	}
	if a, ok := x.(vals.Number); ok {
		if b, ok := y.(vals.Number); ok {
			return a - b
		}
	}
	if a, ok := x.(vals.Date); ok {
		switch b := y.(type) {
		case vals.Date:
			return vals.Duration(time.Time(a).Sub(time.Time(b)))
		case vals.Duration:
			return vals.Date(time.Time(a).Add(-time.Duration(b)))
		}
	}
	if a, ok := x.(vals.Duration); ok {
		if b, ok := y.(vals.Duration); ok {
			return a - b
		}
	}
	return vals.Null{}
}

func mul(x, y vals.Value) vals.Value {
	if a, ok := x.(vals.Number); ok {
		switch b := y.(type) {
		case vals.Number:
			return a * b
		case vals.Duration:
			return vals.Duration(float64(b) * float64(a))
		}
	}
	if a, ok := x.(vals.Duration); ok {
		if b, ok := y.(vals.Number); ok {
			return vals.Duration(float64(a) * float64(b))
		}
	}
	return vals.Null{}
}

func div(x, y vals.Value) vals.Value {
	b, ok := y.(vals.Number)
	if !ok || b == 0 {
		return vals.Null{}
	}
	switch a := x.(type) {
	case vals.Number:
		return a / b
	case vals.Duration:
		return vals.Duration(float64(a) / float64(b))
	}
	return vals.Null{}
}

func mod(x, y vals.Value) vals.Value {
	a, ok1 := x.(vals.Number)
	b, ok2 := y.(vals.Number)
	if !ok1 || !ok2 || b == 0 {
		return vals.Null{}
	}
	return vals.Number(math.Mod(float64(a), float64(b)))
}
