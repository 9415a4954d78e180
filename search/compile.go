package search

import "strings"

// WhereClause is a parameterised SQL fragment. Condition must only ever be
// executed with Args bound as positional parameters; inlining values is
// forbidden.
type WhereClause struct {
	Condition string
	Args      []any
}

// Compile lowers a DNF predicate into an ORed series of parenthesised ANDed
// fragments. An empty predicate compiles to the always-true clause.
func Compile(dnf DNF) *WhereClause {
	var (
		orParts []string
		args    []any
	)

	for _, clause := range dnf {
		var andParts []string
		for _, cond := range clause {
			fragment, condArgs := compileCond(cond)
			if fragment == "" {
				continue
			}
			andParts = append(andParts, fragment)
			args = append(args, condArgs...)
		}
		if len(andParts) > 0 {
			orParts = append(orParts, "("+strings.Join(andParts, " AND ")+")")
		}
	}

	if len(orParts) == 0 {
		return &WhereClause{Condition: "1=1"}
	}
	return &WhereClause{
		Condition: strings.Join(orParts, " OR "),
		Args:      args,
	}
}

func compileCond(cond Cond) (string, []any) {
	switch {
	case cond.Op == OpRange && cond.Field == FieldSignupDate:
		r, ok := cond.Value.(DateRange)
		if !ok {
			return "", nil
		}
		return "(signup_date >= ? AND signup_date < ?)", []any{r.Start, r.End}

	case cond.Field == FieldAny && cond.Op == OpLike:
		like := "%" + toString(cond.Value) + "%"
		fragment := "(" +
			"CAST(id AS TEXT) LIKE ? OR " +
			"lower(name) LIKE lower(?) OR " +
			"lower(email) LIKE lower(?) OR " +
			"lower(region) LIKE lower(?) OR " +
			"signup_date LIKE ?" +
			")"
		return fragment, []any{like, like, like, like, like}

	case cond.Op == OpEq && cond.Field == FieldID:
		id, _ := toInt(cond.Value)
		return "id = ?", []any{id}

	case cond.Op == OpEq:
		return "lower(" + cond.Field + ") = lower(?)", []any{toString(cond.Value)}

	case cond.Op == OpLike:
		return "lower(" + cond.Field + ") LIKE lower(?)", []any{"%" + toString(cond.Value) + "%"}
	}
	return "", nil
}
