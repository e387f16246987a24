package query

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/query/vals"
)

// builtin is a query function. Arity and type problems return Null so a bad
// value never aborts the whole query; unknown names are caught at parse time.
type builtin func(ev *evalCtx, args []vals.Value) vals.Value

func isFunc(name string) bool {
	_, ok := builtins[name]
	return ok
}

var builtins = map[string]builtin{
	"contains":   fnContains,
	"startswith": fnStartsWith,
	"endswith":   fnEndsWith,
	"lower":      fnLower,
	"upper":      fnUpper,
	"trim":       fnTrim,
	"length":     fnLength,
	"join":       fnJoin,
	"split":      fnSplit,
	"replace":    fnReplace,
	"regexmatch": fnRegexMatch,
	"default":    fnDefault,
	"choice":     fnChoice,
	"date":       fnDate,
	"dur":        fnDur,
	"typeof":     fnTypeOf,
	"link":       fnLink,
	"sum":        fnSum,
	"min":        fnMin,
	"max":        fnMax,
	"sort":       fnSort,
	"reverse":    fnReverse,
	"round":      fnRound,
}

func fnContains(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 2 {
		return vals.Null{}
	}
	switch h := args[0].(type) {
	case vals.Null:
		return vals.Bool(false)
	case vals.String:
		n, ok := args[1].(vals.String)
		if !ok {
			return vals.Null{}
		}
		return vals.Bool(strings.Contains(string(h), string(n)))
	case vals.List:
		for _, e := range h {
			if vals.Equal(e, args[1]) {
				return vals.Bool(true)
			}
		}
		return vals.Bool(false)
	case vals.Object:
		k, ok := args[1].(vals.String)
		if !ok {
			return vals.Null{}
		}
		_, has := h[string(k)]
		return vals.Bool(has)
	}
	return vals.Null{}
}

func fnStartsWith(_ *evalCtx, args []vals.Value) vals.Value {
	s, prefix, ok := twoStrings(args)
	if !ok {
		return vals.Null{}
	}
	return vals.Bool(strings.HasPrefix(s, prefix))
}

func fnEndsWith(_ *evalCtx, args []vals.Value) vals.Value {
	s, suffix, ok := twoStrings(args)
	if !ok {
		return vals.Null{}
	}
	return vals.Bool(strings.HasSuffix(s, suffix))
}

func twoStrings(args []vals.Value) (string, string, bool) {
	if len(args) != 2 {
		return "", "", false
	}
	a, ok1 := args[0].(vals.String)
	b, ok2 := args[1].(vals.String)
	if !ok1 || !ok2 {
		return "", "", false
	}
	return string(a), string(b), true
}

func fnLower(_ *evalCtx, args []vals.Value) vals.Value {
	if s, ok := oneString(args); ok {
		return vals.String(strings.ToLower(s))
	}
	return vals.Null{}
}

func fnUpper(_ *evalCtx, args []vals.Value) vals.Value {
	if s, ok := oneString(args); ok {
		return vals.String(strings.ToUpper(s))
	}
	return vals.Null{}
}

func fnTrim(_ *evalCtx, args []vals.Value) vals.Value {
	if s, ok := oneString(args); ok {
		return vals.String(strings.TrimSpace(s))
	}
	return vals.Null{}
}

func oneString(args []vals.Value) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	s, ok := args[0].(vals.String)
	return string(s), ok
}

func fnLength(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 {
		return vals.Null{}
	}
	switch v := args[0].(type) {
	case vals.Null:
		return vals.Number(0)
	case vals.String:
		return vals.Number(utf8.RuneCountInString(string(v)))
	case vals.List:
		return vals.Number(len(v))
	case vals.Object:
		return vals.Number(len(v))
	}
	return vals.Null{}
}

func fnJoin(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 && len(args) != 2 {
		return vals.Null{}
	}
	list, ok := args[0].(vals.List)
	if !ok {
		return vals.Null{}
	}
	sep := ", "
	if len(args) == 2 {
		s, ok := args[1].(vals.String)
		if !ok {
			return vals.Null{}
		}
		sep = string(s)
	}
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = vals.Text(e)
	}
	return vals.String(strings.Join(parts, sep))
}

func fnSplit(_ *evalCtx, args []vals.Value) vals.Value {
	s, sep, ok := twoStrings(args)
	if !ok {
		return vals.Null{}
	}
	parts := strings.Split(s, sep)
	out := make(vals.List, len(parts))
	for i, p := range parts {
		out[i] = vals.String(p)
	}
	return out
}

func fnReplace(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 3 {
		return vals.Null{}
	}
	s, ok1 := args[0].(vals.String)
	old, ok2 := args[1].(vals.String)
	repl, ok3 := args[2].(vals.String)
	if !ok1 || !ok2 || !ok3 {
		return vals.Null{}
	}
	return vals.String(strings.ReplaceAll(string(s), string(old), string(repl)))
}

func fnRegexMatch(_ *evalCtx, args []vals.Value) vals.Value {
	pattern, s, ok := twoStrings(args)
	if !ok {
		return vals.Null{}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return vals.Null{}
	}
	return vals.Bool(re.MatchString(s))
}

func fnDefault(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 2 {
		return vals.Null{}
	}
	if _, isNull := args[0].(vals.Null); isNull {
		return args[1]
	}
	return args[0]
}

func fnChoice(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 3 {
		return vals.Null{}
	}
	if vals.Truthy(args[0]) {
		return args[1]
	}
	return args[2]
}

func fnDate(ev *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 {
		return vals.Null{}
	}
	switch v := args[0].(type) {
	case vals.Date:
		return v
	case vals.String:
		switch strings.ToLower(string(v)) {
		case "today":
			now := ev.now
			return vals.Date(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))
		case "now":
			return vals.Date(ev.now)
		}
		if d, ok := vals.ParseDate(string(v)); ok {
			return d
		}
	}
	return vals.Null{}
}

func fnDur(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 {
		return vals.Null{}
	}
	switch v := args[0].(type) {
	case vals.Duration:
		return v
	case vals.String:
		if d, ok := vals.ParseDuration(string(v)); ok {
			return d
		}
	}
	return vals.Null{}
}

func fnTypeOf(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 {
		return vals.Null{}
	}
	return vals.String(vals.TypeOf(args[0]))
}

func fnLink(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 && len(args) != 2 {
		return vals.Null{}
	}
	alias := ""
	if len(args) == 2 {
		a, ok := args[1].(vals.String)
		if !ok {
			return vals.Null{}
		}
		alias = string(a)
	}
	switch v := args[0].(type) {
	case vals.Link:
		if alias != "" {
			return vals.Link{Target: v.Target, Alias: alias}
		}
		return v
	case vals.String:
		return vals.Link{Target: string(v), Alias: alias}
	}
	return vals.Null{}
}

// spread treats a single list argument as the element sequence, so both
// sum(list) and sum(a, b, c) work.
func spread(args []vals.Value) []vals.Value {
	if len(args) == 1 {
		if list, ok := args[0].(vals.List); ok {
			return list
		}
	}
	return args
}

func fnSum(_ *evalCtx, args []vals.Value) vals.Value {
	total := vals.Number(0)
	for _, e := range spread(args) {
		switch v := e.(type) {
		case vals.Null:
			continue
		case vals.Number:
			total += v
		default:
			return vals.Null{}
		}
	}
	return total
}

func fnMin(_ *evalCtx, args []vals.Value) vals.Value {
	return fold(args, func(a, b vals.Value) bool { return vals.Compare(b, a) < 0 })
}

func fnMax(_ *evalCtx, args []vals.Value) vals.Value {
	return fold(args, func(a, b vals.Value) bool { return vals.Compare(b, a) > 0 })
}

// fold picks the winning element, skipping nulls. Empty input yields Null.
func fold(args []vals.Value, better func(cur, cand vals.Value) bool) vals.Value {
	var best vals.Value
	for _, e := range spread(args) {
		if _, isNull := e.(vals.Null); isNull {
			continue
		}
		if best == nil || better(best, e) {
			best = e
		}
	}
	if best == nil {
		return vals.Null{}
	}
	return best
}

func fnSort(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 {
		return vals.Null{}
	}
	list, ok := args[0].(vals.List)
	if !ok {
		return vals.Null{}
	}
	out := make(vals.List, len(list))
	copy(out, list)
	slices.SortStableFunc(out, vals.Compare)
	return out
}

func fnReverse(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 {
		return vals.Null{}
	}
	list, ok := args[0].(vals.List)
	if !ok {
		return vals.Null{}
	}
	out := make(vals.List, len(list))
	for i, e := range list {
		out[len(list)-1-i] = e
	}
	return out
}

func fnRound(_ *evalCtx, args []vals.Value) vals.Value {
	if len(args) != 1 && len(args) != 2 {
		return vals.Null{}
	}
	n, ok := args[0].(vals.Number)
	if !ok {
		return vals.Null{}
	}
	digits := 0.0
	if len(args) == 2 {
		d, ok := args[1].(vals.Number)
		if !ok {
			return vals.Null{}
		}
		digits = float64(d)
	}
	pow := math.Pow(10, digits)
	return vals.Number(math.Round(float64(n)*pow) / pow)
}
