package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var regions = map[string]bool{
	"na":    true,
	"eu":    true,
	"apac":  true,
	"latam": true,
}

var (
	punctuationRe = regexp.MustCompile(`[^a-z0-9@.\-_\s]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	orSplitRe     = regexp.MustCompile(`\s+or\s+`)
	andSplitRe    = regexp.MustCompile(`\s+and\s+`)

	emailRe  = regexp.MustCompile(`([a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,})`)
	idRe     = regexp.MustCompile(`\b(?:user\s+)?id\s*(?:=|is)?\s*([0-9]+)\b`)
	dateRe   = regexp.MustCompile(`\b(?:signup_date|signup|signed up|date)\s*(?:=|is|on)?\s*([0-9]{4}-[0-9]{2}-[0-9]{2})\b`)
	regionRe = regexp.MustCompile(`\b(?:region\s*)?(na|eu|apac|latam)\b`)
	nameRe   = regexp.MustCompile(`\b(?:name\s*(?:=|is)?\s*|user\s*(?:with\s+name\s+)?)([a-z0-9_]+)\b`)
)

// Parse turns a free-form user query into DNF. It is total: every input,
// including garbage, yields at least one clause.
func Parse(query string) DNF {
	return ParseAt(query, time.Now())
}

// ParseAt is Parse with an explicit notion of today, which anchors the
// "last month" shortcut.
func ParseAt(query string, today time.Time) DNF {
	q := normalize(query)

	var dnf DNF
	for _, part := range splitNonEmpty(orSplitRe, q) {
		var clause Clause
		for _, token := range splitNonEmpty(andSplitRe, part) {
			if cond, ok := parseCond(token, today); ok {
				clause = append(clause, cond)
			}
		}
		if len(clause) > 0 {
			dnf = append(dnf, clause)
		}
	}

	if len(dnf) == 0 {
		return DNF{{Cond{Field: FieldAny, Op: OpLike, Value: q}}}
	}
	return dnf
}

// parseCond classifies one conjunct. Recognisers run in a fixed order and
// the first match wins.
func parseCond(token string, today time.Time) (Cond, bool) {
	if strings.Contains(token, "last month") || strings.Contains(token, "previous month") {
		return Cond{Field: FieldSignupDate, Op: OpRange, Value: lastMonthRange(today)}, true
	}

	if m := emailRe.FindStringSubmatch(token); m != nil {
		return Cond{Field: FieldEmail, Op: OpEq, Value: m[1]}, true
	}

	if m := idRe.FindStringSubmatch(token); m != nil {
		id, _ := strconv.Atoi(m[1])
		return Cond{Field: FieldID, Op: OpEq, Value: id}, true
	}

	if m := dateRe.FindStringSubmatch(token); m != nil {
		return Cond{Field: FieldSignupDate, Op: OpEq, Value: m[1]}, true
	}

	if m := regionRe.FindStringSubmatch(token); m != nil && regions[m[1]] {
		return Cond{Field: FieldRegion, Op: OpEq, Value: strings.ToUpper(m[1])}, true
	}

	if m := nameRe.FindStringSubmatch(token); m != nil {
		return Cond{Field: FieldName, Op: OpEq, Value: m[1]}, true
	}

	if token != "" {
		return Cond{Field: FieldAny, Op: OpLike, Value: token}, true
	}
	return Cond{}, false
}

// normalize lowercases, collapses whitespace and strips punctuation other
// than @ . - _ so the recognisers see a predictable shape.
func normalize(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = punctuationRe.ReplaceAllString(q, " ")
	q = whitespaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

func splitNonEmpty(re *regexp.Regexp, s string) []string {
	var out []string
	for _, part := range re.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// lastMonthRange returns [first of previous month, first of current month).
func lastMonthRange(today time.Time) DateRange {
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	firstOfPrevious := firstOfMonth.AddDate(0, -1, 0)
	return DateRange{
		Start: firstOfPrevious.Format("2006-01-02"),
		End:   firstOfMonth.Format("2006-01-02"),
	}
}
