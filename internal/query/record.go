package query

import (
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/query/vals"
)

// Record is one note's queryable view: its frontmatter fields plus the
// implicit file object (path, name, link, tags, outlinks, tasks, ...).
type Record struct {
	Path   string
	Fields map[string]vals.Value
	File   vals.Object

	lower map[string]vals.Value
	obj   vals.Object
}

// NewRecord builds a record. Field lookup is case-insensitive; when two keys
// collide case-insensitively the lexically first key wins.
func NewRecord(path string, fields map[string]vals.Value, file vals.Object) *Record {
	r := &Record{Path: path, Fields: fields, File: file}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.lower = make(map[string]vals.Value, len(fields))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, exists := r.lower[lk]; !exists {
			r.lower[lk] = fields[k]
		}
	}
	return r
}

// Get resolves a field name against the record. Unknown names are Null.
func (r *Record) Get(name string) vals.Value {
	ln := strings.ToLower(name)
	if ln == "file" {
		return r.File
	}
	if v, ok := r.lower[ln]; ok {
		return v
	}
	return vals.Null{}
}

// AsObject materializes the record as a plain object, used for the rows
// lists produced by GROUP BY.
func (r *Record) AsObject() vals.Object {
	if r.obj != nil {
		return r.obj
	}
	obj := make(vals.Object, len(r.Fields)+1)
	for k, v := range r.Fields {
		obj[k] = v
	}
	obj["file"] = r.File
	r.obj = obj
	return obj
}

// row is one pipeline row: a base record plus overlay bindings added by TASK
// seeding, GROUP BY, and FLATTEN. Bindings shadow record fields.
type row struct {
	rec  *Record
	vars map[string]vals.Value
}

func (w row) get(name string) vals.Value {
	if w.vars != nil {
		if v, ok := w.vars[strings.ToLower(name)]; ok {
			return v
		}
	}
	if w.rec != nil {
		return w.rec.Get(name)
	}
	return vals.Null{}
}

// bind returns a copy of the row with one extra binding.
func (w row) bind(name string, v vals.Value) row {
	nv := make(map[string]vals.Value, len(w.vars)+1)
	for k, val := range w.vars {
		nv[k] = val
	}
	nv[strings.ToLower(name)] = v
	return row{rec: w.rec, vars: nv}
}

// asObject materializes the row with its bindings applied.
func (w row) asObject() vals.Object {
	var base vals.Object
	if w.rec != nil {
		base = w.rec.AsObject()
	}
	if len(w.vars) == 0 {
		if base == nil {
			return vals.Object{}
		}
		return base
	}
	obj := make(vals.Object, len(base)+len(w.vars))
	for k, v := range base {
		obj[k] = v
	}
	for k, v := range w.vars {
		obj[k] = v
	}
	return obj
}
