package search

import (
	"fmt"
	"strconv"
	"strings"
)

// RowMatches evaluates a DNF predicate against a row locally, with the same
// semantics the compiled WHERE clause has in the store. Row keys are matched
// case-insensitively.
func RowMatches(row map[string]any, dnf DNF) bool {
	lowered := make(map[string]any, len(row))
	for k, v := range row {
		lowered[strings.ToLower(k)] = v
	}

	for _, clause := range dnf {
		if clauseMatches(lowered, clause) {
			return true
		}
	}
	return false
}

func clauseMatches(row map[string]any, clause Clause) bool {
	for _, cond := range clause {
		if !condMatches(row, cond) {
			return false
		}
	}
	return true
}

func condMatches(row map[string]any, cond Cond) bool {
	if cond.Op == OpRange && cond.Field == FieldSignupDate {
		v, ok := row[FieldSignupDate]
		if !ok || v == nil {
			return false
		}
		r, ok := cond.Value.(DateRange)
		if !ok {
			return false
		}
		// ISO dates order correctly as strings.
		s := toString(v)
		return s >= r.Start && s < r.End
	}

	if cond.Field == FieldAny && cond.Op == OpLike {
		needle := strings.ToLower(toString(cond.Value))
		for _, key := range CanonicalFields() {
			v, ok := row[key]
			if !ok || v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(toString(v)), needle) {
				return true
			}
		}
		return false
	}

	v, ok := row[cond.Field]
	if !ok || v == nil {
		return false
	}

	switch cond.Op {
	case OpEq:
		if cond.Field == FieldID {
			got, okGot := toInt(v)
			want, okWant := toInt(cond.Value)
			return okGot && okWant && got == want
		}
		return strings.EqualFold(toString(v), toString(cond.Value))
	case OpLike:
		return strings.Contains(strings.ToLower(toString(v)), strings.ToLower(toString(cond.Value)))
	}
	return false
}

// CanonicalFields lists the fields an "any" search scans.
func CanonicalFields() []string {
	return []string{FieldID, FieldName, FieldEmail, FieldRegion, FieldSignupDate}
}

// toString renders scalars the way they appear in the store: JSON numbers
// without a fraction print as integers.
func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
