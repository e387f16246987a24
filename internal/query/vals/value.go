// Package vals defines the value model of the query language: the typed
// values frontmatter fields decode into and expressions evaluate to.
package vals

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Value is a sealed interface over the query value types. Only Null, Bool,
// Number, String, Date, Duration, Link, List, and Object implement it.
type Value interface {
	value()
}

// Null is the absent value. Missing fields evaluate to Null, and failed
// operations yield Null instead of aborting a row.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Number is a numeric value. All numbers are float64; integral numbers
// render without a decimal point.
type Number float64

func (Number) value() {}

// MarshalJSON implements json.Marshaler for Number.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(formatNumber(float64(n))), nil
}

// String is a text value.
type String string

func (String) value() {}

// Date is a calendar timestamp.
type Date time.Time

func (Date) value() {}

// MarshalJSON implements json.Marshaler for Date.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(formatDate(time.Time(d)))
}

// Duration is a span of time.
type Duration time.Duration

func (Duration) value() {}

// MarshalJSON implements json.Marshaler for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(formatDuration(time.Duration(d)))
}

// Link is a wikilink value: a target note plus an optional display alias.
type Link struct {
	Target string `json:"target"`
	Alias  string `json:"alias,omitempty"`
}

func (Link) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Object is a string-keyed map of values. encoding/json sorts map keys, so
// marshaling is deterministic.
type Object map[string]Value

func (Object) value() {}

// TypeOf returns the value's type name as used by the typeof() function.
func TypeOf(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Date:
		return "date"
	case Duration:
		return "duration"
	case Link:
		return "link"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// typeRank orders value types for cross-type comparison: nulls first, then
// bool < number < string < date < duration < link < list < object.
func typeRank(v Value) int {
	switch v.(type) {
	case nil, Null:
		return 0
	case Bool:
		return 1
	case Number:
		return 2
	case String:
		return 3
	case Date:
		return 4
	case Duration:
		return 5
	case Link:
		return 6
	case List:
		return 7
	case Object:
		return 8
	default:
		return 9
	}
}

// Equal reports whether two values are equal. Values of different types are
// never equal, except that Null equals Null. Links compare by target only.
func Equal(a, b Value) bool {
	if typeRank(a) != typeRank(b) {
		return false
	}
	switch av := a.(type) {
	case nil, Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		return av == b.(Number)
	case String:
		return av == b.(String)
	case Date:
		return time.Time(av).Equal(time.Time(b.(Date)))
	case Duration:
		return av == b.(Duration)
	case Link:
		return av.Target == b.(Link).Target
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv := b.(Object)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, ok := bv[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare imposes a total order for sorting: by type rank first, then by
// value within each type. Lists and objects order by canonical text.
func Compare(a, b Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case nil, Null:
		return 0
	case Bool:
		bv := b.(Bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case Number:
		bv := b.(Number)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case String:
		return cmpString(string(av), string(b.(String)))
	case Date:
		at, bt := time.Time(av), time.Time(b.(Date))
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		}
		return 0
	case Duration:
		bv := b.(Duration)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case Link:
		bv := b.(Link)
		if c := cmpString(av.Target, bv.Target); c != 0 {
			return c
		}
		return cmpString(av.Alias, bv.Alias)
	default:
		return cmpString(Text(a), Text(b))
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Truthy reports whether a value counts as true in a boolean context.
// Null, false, zero, empty strings, and empty collections are false.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		return val != 0
	case String:
		return val != ""
	case Date:
		return !time.Time(val).IsZero()
	case Duration:
		return val != 0
	case Link:
		return val.Target != ""
	case List:
		return len(val) > 0
	case Object:
		return len(val) > 0
	}
	return false
}

// Text renders a value for display in table cells and list items.
func Text(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(float64(val))
	case String:
		return string(val)
	case Date:
		return formatDate(time.Time(val))
	case Duration:
		return formatDuration(time.Duration(val))
	case Link:
		if val.Alias != "" {
			return "[[" + val.Target + "|" + val.Alias + "]]"
		}
		return "[[" + val.Target + "]]"
	case List:
		out := ""
		for i, e := range val {
			if i > 0 {
				out += ", "
			}
			out += Text(e)
		}
		return out
	case Object:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", map[string]Value(val))
		}
		return string(b)
	}
	return ""
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatDate renders midnight dates as yyyy-mm-dd and anything with a clock
// component as RFC 3339.
func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// formatDuration renders a duration in humanized units, largest first.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0 seconds"
	}
	neg := d < 0
	if neg {
		d = -d
	}

	days := int64(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	mins := int64(d / time.Minute)
	d -= time.Duration(mins) * time.Minute
	secs := int64(d / time.Second)

	out := ""
	add := func(n int64, unit string) {
		if n == 0 {
			return
		}
		if out != "" {
			out += " "
		}
		out += strconv.FormatInt(n, 10) + " " + unit
		if n != 1 {
			out += "s"
		}
	}
	add(days, "day")
	add(hours, "hour")
	add(mins, "minute")
	add(secs, "second")
	if out == "" {
		out = d.String()
	}
	if neg {
		out = "-" + out
	}
	return out
}
