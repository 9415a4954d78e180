package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParse(t *testing.T) {
	today := date("2026-02-15")

	tests := []struct {
		name  string
		query string
		want  DNF
	}{
		{
			name:  "email",
			query: "email apiuser21@example.com",
			want:  DNF{{{Field: FieldEmail, Op: OpEq, Value: "apiuser21@example.com"}}},
		},
		{
			name:  "and across fields",
			query: "region EU and signup_date 2025-01-22",
			want: DNF{{
				{Field: FieldRegion, Op: OpEq, Value: "EU"},
				{Field: FieldSignupDate, Op: OpEq, Value: "2025-01-22"},
			}},
		},
		{
			name:  "or across fields",
			query: "region EU or region NA",
			want: DNF{
				{{Field: FieldRegion, Op: OpEq, Value: "EU"}},
				{{Field: FieldRegion, Op: OpEq, Value: "NA"}},
			},
		},
		{
			name:  "last month shortcut",
			query: "signed up last month and region NA",
			want: DNF{{
				{Field: FieldSignupDate, Op: OpRange, Value: DateRange{Start: "2026-01-01", End: "2026-02-01"}},
				{Field: FieldRegion, Op: OpEq, Value: "NA"},
			}},
		},
		{
			name:  "previous month alias",
			query: "previous month",
			want: DNF{{
				{Field: FieldSignupDate, Op: OpRange, Value: DateRange{Start: "2026-01-01", End: "2026-02-01"}},
			}},
		},
		{
			name:  "id with equals",
			query: "id = 42",
			want:  DNF{{{Field: FieldID, Op: OpEq, Value: 42}}},
		},
		{
			name:  "user id form",
			query: "user id 7",
			want:  DNF{{{Field: FieldID, Op: OpEq, Value: 7}}},
		},
		{
			name:  "signup date variants",
			query: "signup is 2025-03-01",
			want:  DNF{{{Field: FieldSignupDate, Op: OpEq, Value: "2025-03-01"}}},
		},
		{
			name:  "bare region code",
			query: "apac",
			want:  DNF{{{Field: FieldRegion, Op: OpEq, Value: "APAC"}}},
		},
		{
			name:  "name with keyword",
			query: "name is user21",
			want:  DNF{{{Field: FieldName, Op: OpEq, Value: "user21"}}},
		},
		{
			name:  "user with name form",
			query: "user with name user22",
			want:  DNF{{{Field: FieldName, Op: OpEq, Value: "user22"}}},
		},
		{
			name:  "fallback any",
			query: "something unclassifiable!!",
			want:  DNF{{{Field: FieldAny, Op: OpLike, Value: "something unclassifiable"}}},
		},
		{
			name:  "punctuation stripped but email chars kept",
			query: "Email: User21@Example.com",
			want:  DNF{{{Field: FieldEmail, Op: OpEq, Value: "user21@example.com"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAt(tt.query, today))
		})
	}
}

func TestParseTotality(t *testing.T) {
	inputs := []string{"", "   ", "!!!", "and", "or", "a or b and c", "\t\n"}
	for _, input := range inputs {
		dnf := Parse(input)
		require.NotEmpty(t, dnf, "input %q", input)
		for _, clause := range dnf {
			require.NotEmpty(t, clause, "input %q", input)
		}
	}
}

func TestLastMonthRangeAcrossYearBoundary(t *testing.T) {
	r := lastMonthRange(date("2026-01-10"))
	assert.Equal(t, DateRange{Start: "2025-12-01", End: "2026-01-01"}, r)
}
