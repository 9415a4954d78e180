package tools

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/polyquery/polyquery/database"
	"github.com/polyquery/polyquery/mcp"
)

var emailFormatRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

func checkDataQualityTool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "check_data_quality",
		Description: "Detect anomalies, missing values, inconsistencies in data",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"sql":        {Type: "string"},
				"table_name": {Type: "string"},
				"rows":       {Type: "array", Items: &mcp.Property{Type: "object"}},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rows, err := qualitySourceRows(ctx, d, args)
			if err != nil {
				return errResult(err.Error()), nil
			}

			if len(rows) == 0 {
				return map[string]any{
					"success": true,
					"checks": map[string]any{
						"missing_values":  map[string]any{},
						"anomalies":       []any{},
						"inconsistencies": []any{},
						"summary":         "No data to check",
					},
				}, nil
			}

			columns := columnsOf(rows)
			checks := map[string]any{}
			missing := missingValues(columns, rows)
			anomalies := outliers(columns, rows)
			inconsistencies := findInconsistencies(columns, rows)

			checks["missing_values"] = missing
			checks["data_types"] = columnTypes(columns, rows)
			checks["statistics"] = numericStatistics(columns, rows)
			checks["anomalies"] = anomalies
			checks["inconsistencies"] = inconsistencies

			totalIssues := len(missing) + len(anomalies) + len(inconsistencies)
			checks["summary"] = map[string]any{
				"total_rows":    len(rows),
				"total_columns": len(columns),
				"total_issues":  totalIssues,
				"quality_score": max(0, 100-totalIssues*10),
			}

			sample := rows
			if len(sample) > 5 {
				sample = sample[:5]
			}
			return map[string]any{
				"success":     true,
				"checks":      checks,
				"data_sample": sample,
			}, nil
		},
	}
}

func qualitySourceRows(ctx context.Context, d *Deps, args map[string]any) ([]map[string]any, error) {
	if table := stringArg(args, "table_name"); table != "" {
		tables, err := d.DB.ListTables(ctx)
		if err != nil {
			return nil, err
		}
		if !contains(tables, table) {
			return nil, fmt.Errorf("table not found: %s", table)
		}
		result, err := d.DB.ExecuteSelect(ctx, "SELECT * FROM "+table, nil, database.DefaultRowLimit)
		if err != nil {
			return nil, err
		}
		return result.Rows, nil
	}
	return sourceRows(ctx, d, args)
}

func isMissingCell(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && (s == "" || strings.EqualFold(s, "nan"))
}

func missingValues(columns []string, rows []map[string]any) map[string]any {
	out := map[string]any{}
	for _, col := range columns {
		count := 0
		for _, row := range rows {
			if isMissingCell(row[col]) {
				count++
			}
		}
		if count > 0 {
			out[col] = map[string]any{
				"count":      count,
				"percentage": math.Round(float64(count)/float64(len(rows))*10000) / 100,
			}
		}
	}
	return out
}

func columnTypes(columns []string, rows []map[string]any) map[string]any {
	out := map[string]any{}
	for _, col := range columns {
		kinds := map[string]bool{}
		for _, row := range rows {
			v := row[col]
			if isMissingCell(v) {
				continue
			}
			switch v.(type) {
			case bool:
				kinds["boolean"] = true
			case float64, float32, int, int64:
				kinds["number"] = true
			default:
				kinds["string"] = true
			}
		}
		switch len(kinds) {
		case 0:
			out[col] = "null"
		case 1:
			for k := range kinds {
				out[col] = k
			}
		default:
			out[col] = "mixed"
		}
	}
	return out
}

func numericColumn(col string, rows []map[string]any) ([]float64, bool) {
	nums := make([]float64, 0, len(rows))
	for _, row := range rows {
		if isMissingCell(row[col]) {
			continue
		}
		f, ok := toFloat(row[col])
		if !ok {
			return nil, false
		}
		nums = append(nums, f)
	}
	return nums, len(nums) > 0
}

func numericStatistics(columns []string, rows []map[string]any) map[string]any {
	out := map[string]any{}
	for _, col := range columns {
		nums, ok := numericColumn(col, rows)
		if !ok {
			continue
		}
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)

		var sum float64
		for _, n := range nums {
			sum += n
		}
		mean := sum / float64(len(nums))

		var variance float64
		for _, n := range nums {
			variance += (n - mean) * (n - mean)
		}
		std := 0.0
		if len(nums) > 1 {
			std = math.Sqrt(variance / float64(len(nums)-1))
		}

		out[col] = map[string]any{
			"mean":   mean,
			"std":    std,
			"min":    sorted[0],
			"max":    sorted[len(sorted)-1],
			"median": quantile(sorted, 0.5),
		}
	}
	return out
}

// quantile interpolates linearly between sorted sample points.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// outliers applies the 1.5*IQR fence per numeric column.
func outliers(columns []string, rows []map[string]any) []map[string]any {
	out := []map[string]any{}
	for _, col := range columns {
		nums, ok := numericColumn(col, rows)
		if !ok || len(nums) < 4 {
			continue
		}
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)

		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		lower := q1 - 1.5*iqr
		upper := q3 + 1.5*iqr

		samples := []float64{}
		count := 0
		for _, n := range nums {
			if n < lower || n > upper {
				count++
				if len(samples) < 5 {
					samples = append(samples, n)
				}
			}
		}
		if count > 0 {
			out = append(out, map[string]any{
				"column":        col,
				"type":          "outlier",
				"count":         count,
				"threshold":     map[string]any{"lower": lower, "upper": upper},
				"sample_values": samples,
			})
		}
	}
	return out
}

func findInconsistencies(columns []string, rows []map[string]any) []map[string]any {
	out := []map[string]any{}

	seen := map[string]bool{}
	duplicates := 0
	for _, row := range rows {
		parts := make([]string, len(columns))
		for i, col := range columns {
			parts[i] = fmt.Sprint(row[col])
		}
		key := strings.Join(parts, "\x00")
		if seen[key] {
			duplicates++
		}
		seen[key] = true
	}
	if duplicates > 0 {
		out = append(out, map[string]any{
			"type":        "duplicate_rows",
			"count":       duplicates,
			"description": fmt.Sprintf("%d duplicate rows found", duplicates),
		})
	}

	for _, col := range columns {
		lowered := strings.ToLower(col)

		if strings.Contains(lowered, "email") {
			invalid := 0
			samples := []string{}
			for _, row := range rows {
				if isMissingCell(row[col]) {
					continue
				}
				s := fmt.Sprint(row[col])
				if !emailFormatRe.MatchString(s) {
					invalid++
					if len(samples) < 3 {
						samples = append(samples, s)
					}
				}
			}
			if invalid > 0 {
				out = append(out, map[string]any{
					"type":          "invalid_format",
					"column":        col,
					"count":         invalid,
					"description":   fmt.Sprintf("Invalid email format in %d rows", invalid),
					"sample_values": samples,
				})
			}
		}

		if strings.Contains(lowered, "date") {
			invalid := 0
			for _, row := range rows {
				if isMissingCell(row[col]) {
					continue
				}
				if _, err := time.Parse("2006-01-02", fmt.Sprint(row[col])); err != nil {
					invalid++
				}
			}
			if invalid > 0 {
				out = append(out, map[string]any{
					"type":        "invalid_format",
					"column":      col,
					"count":       invalid,
					"description": fmt.Sprintf("Invalid date format in column %s", col),
				})
			}
		}
	}
	return out
}
