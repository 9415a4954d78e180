package search

import (
	"fmt"
	"strings"
)

// sourceKey is the per-row origin tag set by the sub-searches; MergeRows
// folds it into the accumulated "sources" column.
const sourceKey = "source"

// MergeRows deduplicates rows from multiple backends. The key is the
// lowercased email when present, otherwise name::id. The first row seen
// under a key wins for scalar fields; later rows only fill in fields that
// are null, empty or the string "nan". Every contributing origin tag is
// accumulated and serialised as a comma-separated "sources" column.
func MergeRows(rows []map[string]any) []map[string]any {
	merged := map[string]map[string]any{}
	var order []string

	for _, row := range rows {
		key := dedupeKey(row)

		current, ok := merged[key]
		if !ok {
			out := make(map[string]any, len(row))
			for k, v := range row {
				if k == sourceKey {
					continue
				}
				out[k] = v
			}
			if tag := toString(row[sourceKey]); tag != "" {
				out["sources"] = []string{tag}
			} else {
				out["sources"] = []string{}
			}
			merged[key] = out
			order = append(order, key)
			continue
		}

		if tag := toString(row[sourceKey]); tag != "" {
			tags := current["sources"].([]string)
			if !contains(tags, tag) {
				current["sources"] = append(tags, tag)
			}
		}
		for k, v := range row {
			if k == sourceKey {
				continue
			}
			if isMissing(current[k]) && !isMissing(v) {
				current[k] = v
			}
		}
	}

	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		row := merged[key]
		row["sources"] = strings.Join(row["sources"].([]string), ", ")
		out = append(out, row)
	}
	return out
}

func dedupeKey(row map[string]any) string {
	email := strings.ToLower(strings.TrimSpace(toString(row["email"])))
	if email != "" {
		return email
	}
	return fmt.Sprintf("%s::%s", strings.ToLower(toString(row["name"])), toString(row["id"]))
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && (s == "" || s == "nan")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
