package vals

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FromYAML converts a decoded YAML value (as produced by yaml.v3 into
// interface{}) to a query Value. Strings that look like dates become Date.
func FromYAML(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(val)
	case int:
		return Number(val)
	case int64:
		return Number(val)
	case uint64:
		return Number(val)
	case float64:
		return Number(val)
	case string:
		if d, ok := ParseDate(val); ok {
			return d
		}
		return String(val)
	case time.Time:
		return Date(val)
	case []interface{}:
		out := make(List, len(val))
		for i, e := range val {
			out[i] = FromYAML(e)
		}
		return out
	case map[string]interface{}:
		out := make(Object, len(val))
		for k, e := range val {
			out[k] = FromYAML(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(Object, len(val))
		for k, e := range val {
			out[fmt.Sprint(k)] = FromYAML(e)
		}
		return out
	default:
		return String(fmt.Sprint(val))
	}
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseDate parses yyyy-mm-dd and RFC 3339 style strings into a Date.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 10 {
		return Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), true
		}
	}
	return Date{}, false
}

// durationUnits maps unit spellings to their length. Months and years use
// fixed 30 and 365 day spans.
var durationUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "wk": 7 * 24 * time.Hour,
	"week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	"mo": 30 * 24 * time.Hour, "month": 30 * 24 * time.Hour, "months": 30 * 24 * time.Hour,
	"y": 365 * 24 * time.Hour, "yr": 365 * 24 * time.Hour,
	"year": 365 * 24 * time.Hour, "years": 365 * 24 * time.Hour,
}

// ParseDuration parses humanized duration strings: "7 days", "1 day 2 hours",
// "90m", "2w". Numbers may be fractional.
func ParseDuration(s string) (Duration, bool) {
	fields := splitDuration(s)
	if len(fields) == 0 || len(fields)%2 != 0 {
		return 0, false
	}
	var total time.Duration
	for i := 0; i < len(fields); i += 2 {
		n, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return 0, false
		}
		unit, ok := durationUnits[strings.ToLower(fields[i+1])]
		if !ok {
			return 0, false
		}
		total += time.Duration(n * float64(unit))
	}
	return Duration(total), true
}

// splitDuration tokenizes a duration string into alternating number and unit
// fields, accepting both "7 days" and compact "7d" forms.
func splitDuration(s string) []string {
	var fields []string
	cur := strings.Builder{}
	curDigit := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == ' ' || r == '\t' || r == ',':
			flush()
		case r >= '0' && r <= '9' || r == '.' || r == '-':
			if !curDigit {
				flush()
				curDigit = true
			}
			cur.WriteRune(r)
		default:
			if curDigit {
				flush()
				curDigit = false
			}
			cur.WriteRune(r)
		}
	}
	flush()
	return fields
}
