// Package search implements the user-facing predicate language: a small
// deterministic parser from free-form queries to disjunctive normal form,
// a compiler from DNF to a parameterised WHERE clause, a local row
// evaluator with identical semantics, and the multi-source searcher that
// fans a predicate out over the sql, api and file backends.
package search

// Condition field tags.
const (
	FieldID         = "id"
	FieldName       = "name"
	FieldEmail      = "email"
	FieldRegion     = "region"
	FieldSignupDate = "signup_date"
	FieldAny        = "any"
)

// Condition operator tags.
const (
	OpEq    = "eq"
	OpLike  = "like"
	OpRange = "range"
)

// DateRange is a half-open [Start, End) pair of ISO calendar dates.
type DateRange struct {
	Start string
	End   string
}

// Cond is one predicate condition. Values are untyped; callers interpret
// them by field tag (int for id, DateRange for range, string otherwise).
type Cond struct {
	Field string
	Op    string
	Value any
}

// Clause is a conjunction of conditions. A clause is never empty.
type Clause []Cond

// DNF is a disjunction of clauses: a row matches when any clause does.
type DNF []Clause
