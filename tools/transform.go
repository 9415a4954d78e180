package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/polyquery/polyquery/mcp"
)

// transformSpec is the shaping pipeline shared by transform_data and
// export_data. Steps apply in a fixed order: select, rename, filter, sort,
// groupby, offset, limit.
type transformSpec struct {
	Select       []string
	Rename       map[string]string
	Filter       string
	Sort         []string
	GroupBy      []string
	Aggregations map[string]string
	Limit        int
	HasLimit     bool
	Offset       int
}

func specFromArgs(args map[string]any) *transformSpec {
	raw, ok := args["transform_spec"].(map[string]any)
	if !ok {
		return nil
	}
	spec := &transformSpec{
		Select:  stringSliceArg(raw, "select"),
		Filter:  stringArg(raw, "filter"),
		Sort:    stringSliceArg(raw, "sort"),
		GroupBy: stringSliceArg(raw, "groupby"),
	}
	if rename, ok := raw["rename"].(map[string]any); ok {
		spec.Rename = map[string]string{}
		for from, to := range rename {
			if s, ok := to.(string); ok {
				spec.Rename[from] = s
			}
		}
	}
	if aggs, ok := raw["aggregations"].(map[string]any); ok {
		spec.Aggregations = map[string]string{}
		for col, op := range aggs {
			if s, ok := op.(string); ok {
				spec.Aggregations[col] = s
			}
		}
	}
	if limit, ok := intArg(raw, "limit"); ok {
		spec.Limit = limit
		spec.HasLimit = true
	}
	if offset, ok := intArg(raw, "offset"); ok {
		spec.Offset = offset
	}
	return spec
}

func applyTransform(rows []map[string]any, spec *transformSpec) ([]map[string]any, error) {
	if spec == nil {
		return rows, nil
	}

	if len(spec.Select) > 0 {
		projected := make([]map[string]any, len(rows))
		for i, row := range rows {
			out := make(map[string]any, len(spec.Select))
			for _, col := range spec.Select {
				out[col] = row[col]
			}
			projected[i] = out
		}
		rows = projected
	}

	if len(spec.Rename) > 0 {
		renamed := make([]map[string]any, len(rows))
		for i, row := range rows {
			out := make(map[string]any, len(row))
			for k, v := range row {
				if to, ok := spec.Rename[k]; ok {
					out[to] = v
				} else {
					out[k] = v
				}
			}
			renamed[i] = out
		}
		rows = renamed
	}

	if spec.Filter != "" {
		pred, err := parseFilter(spec.Filter)
		if err != nil {
			return nil, err
		}
		filtered := rows[:0:0]
		for _, row := range rows {
			if pred(row) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	if len(spec.Sort) > 0 {
		sorted := make([]map[string]any, len(rows))
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			for _, col := range spec.Sort {
				if c := compareValues(sorted[i][col], sorted[j][col]); c != 0 {
					return c < 0
				}
			}
			return false
		})
		rows = sorted
	}

	if len(spec.GroupBy) > 0 && len(spec.Aggregations) > 0 {
		grouped, err := groupRows(rows, spec.GroupBy, spec.Aggregations)
		if err != nil {
			return nil, err
		}
		rows = grouped
	}

	if spec.Offset > 0 {
		if spec.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[spec.Offset:]
		}
	}
	if spec.HasLimit && spec.Limit >= 0 && spec.Limit < len(rows) {
		rows = rows[:spec.Limit]
	}

	return rows, nil
}

// filterRe matches one comparison of the form `col op value`, where value is
// a bare token or a quoted string.
var filterRe = regexp.MustCompile(`^\s*(\w+)\s*(==|!=|>=|<=|>|<)\s*(?:"([^"]*)"|'([^']*)'|(\S+))\s*$`)

func parseFilter(expr string) (func(map[string]any) bool, error) {
	m := filterRe.FindStringSubmatch(expr)
	if m == nil {
		return nil, fmt.Errorf("invalid filter expression: %s", expr)
	}
	col, op := m[1], m[2]
	value := m[3]
	if value == "" {
		value = m[4]
	}
	if value == "" {
		value = m[5]
	}

	return func(row map[string]any) bool {
		c := compareValues(row[col], value)
		switch op {
		case "==":
			return c == 0
		case "!=":
			return c != 0
		case ">":
			return c > 0
		case ">=":
			return c >= 0
		case "<":
			return c < 0
		case "<=":
			return c <= 0
		}
		return false
	}, nil
}

// compareValues orders two cell values, numerically when both sides parse
// as numbers and lexically otherwise. Nil sorts first.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func groupRows(rows []map[string]any, keys []string, aggs map[string]string) ([]map[string]any, error) {
	for col, op := range aggs {
		switch op {
		case "sum", "avg", "min", "max", "count":
		default:
			return nil, fmt.Errorf("invalid aggregation: %s(%s)", op, col)
		}
	}

	type group struct {
		key    map[string]any
		values map[string][]any
	}
	order := []string{}
	groups := map[string]*group{}

	for _, row := range rows {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprint(row[k])
		}
		id := strings.Join(parts, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &group{key: map[string]any{}, values: map[string][]any{}}
			for _, k := range keys {
				g.key[k] = row[k]
			}
			groups[id] = g
			order = append(order, id)
		}
		for col := range aggs {
			g.values[col] = append(g.values[col], row[col])
		}
	}

	out := make([]map[string]any, 0, len(order))
	for _, id := range order {
		g := groups[id]
		row := map[string]any{}
		for k, v := range g.key {
			row[k] = v
		}
		for col, op := range aggs {
			row[col] = aggregate(op, g.values[col])
		}
		out = append(out, row)
	}
	return out, nil
}

func aggregate(op string, values []any) any {
	if op == "count" {
		return len(values)
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil
	}

	switch op {
	case "sum":
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return sum
	case "avg":
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return sum / float64(len(nums))
	case "min":
		min := nums[0]
		for _, n := range nums[1:] {
			if n < min {
				min = n
			}
		}
		return min
	case "max":
		max := nums[0]
		for _, n := range nums[1:] {
			if n > max {
				max = n
			}
		}
		return max
	}
	return nil
}

func columnsOf(rows []map[string]any) []string {
	if len(rows) == 0 {
		return []string{}
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

var transformSpecProperty = mcp.Property{Type: "object", Description: "Shaping steps: select, rename, filter, sort, groupby, aggregations, limit, offset"}

func transformDataTool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "transform_data",
		Description: "Apply transformations to query results: filter, sort, aggregate, column selection and renaming",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"sql":            {Type: "string"},
				"rows":           {Type: "array", Items: &mcp.Property{Type: "object"}},
				"transform_spec": transformSpecProperty,
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rows, err := sourceRows(ctx, d, args)
			if err != nil {
				return errResult(err.Error()), nil
			}

			rows, err = applyTransform(rows, specFromArgs(args))
			if err != nil {
				return errResult(err.Error()), nil
			}
			return map[string]any{
				"success": true,
				"columns": columnsOf(rows),
				"rows":    rows,
				"count":   len(rows),
			}, nil
		},
	}
}
