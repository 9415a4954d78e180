package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/polyquery/polyquery/mcp"
)

func integrateDataTool(*Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "integrate_data",
		Description: "Combine data from multiple sources with automatic schema alignment, conflict resolution, and deduplication",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"sources": {
					Type:  "array",
					Items: &mcp.Property{Type: "array", Items: &mcp.Property{Type: "object"}},
				},
				"deduplicate_on":    {Type: "array", Items: &mcp.Property{Type: "string"}},
				"conflict_strategy": {Type: "string", Enum: []string{"prefer_first", "prefer_last", "merge"}},
			},
			Required: []string{"sources"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			sources, err := sourcesArg(args)
			if err != nil {
				return errResult(err.Error()), nil
			}
			if len(sources) < 2 {
				return errResult("at least two sources are required for integration"), nil
			}

			dedupeOn := stringSliceArg(args, "deduplicate_on")
			strategy := stringArg(args, "conflict_strategy")
			if strategy == "" {
				strategy = "prefer_first"
			}
			switch strategy {
			case "prefer_first", "prefer_last", "merge":
			default:
				return errResult(fmt.Sprintf("unknown conflict strategy: %s", strategy)), nil
			}

			rows := integrate(sources, dedupeOn, strategy)
			return map[string]any{
				"success": true,
				"rows":    rows,
				"count":   len(rows),
			}, nil
		},
	}
}

func sourcesArg(args map[string]any) ([][]map[string]any, error) {
	raw, ok := args["sources"].([]any)
	if !ok {
		return nil, fmt.Errorf("sources must be an array of row arrays")
	}
	out := make([][]map[string]any, 0, len(raw))
	for i, src := range raw {
		items, ok := src.([]any)
		if !ok {
			return nil, fmt.Errorf("source %d is not an array of rows", i)
		}
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("source %d contains a non-object row", i)
			}
			rows = append(rows, row)
		}
		out = append(out, rows)
	}
	return out, nil
}

// integrate concatenates all sources over the union of their columns, then
// optionally deduplicates on the given key columns. Missing cells render as
// empty strings so every output row has the same shape.
func integrate(sources [][]map[string]any, dedupeOn []string, strategy string) []map[string]any {
	columns := []string{}
	seen := map[string]bool{}
	for _, src := range sources {
		for _, row := range src {
			for col := range row {
				if !seen[col] {
					seen[col] = true
					columns = append(columns, col)
				}
			}
		}
	}

	combined := []map[string]any{}
	for _, src := range sources {
		for _, row := range src {
			aligned := make(map[string]any, len(columns))
			for _, col := range columns {
				if v, ok := row[col]; ok && v != nil {
					aligned[col] = v
				} else {
					aligned[col] = ""
				}
			}
			combined = append(combined, aligned)
		}
	}

	if len(dedupeOn) == 0 {
		return combined
	}

	order := []string{}
	byKey := map[string]map[string]any{}
	for _, row := range combined {
		parts := make([]string, len(dedupeOn))
		for i, col := range dedupeOn {
			parts[i] = fmt.Sprint(row[col])
		}
		key := strings.Join(parts, "\x00")

		existing, ok := byKey[key]
		if !ok {
			byKey[key] = row
			order = append(order, key)
			continue
		}
		switch strategy {
		case "prefer_last":
			byKey[key] = row
		case "merge":
			for _, col := range columns {
				if existing[col] == "" && row[col] != "" {
					existing[col] = row[col]
				}
			}
		}
	}

	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}
