package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/polyquery/polyquery/database"
	"github.com/polyquery/polyquery/mcp"
)

func analyzeSchemaTool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "analyze_schema",
		Description: "Analyze store schemas: column inventory, inferred relationships, and query suggestions",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"table_name": {Type: "string"},
				"question":   {Type: "string"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			tables, err := d.DB.ListTables(ctx)
			if err != nil {
				return errResult(err.Error()), nil
			}

			target := stringArg(args, "table_name")
			if target != "" && !contains(tables, target) {
				return errResult(fmt.Sprintf("table not found: %s", target)), nil
			}

			analyzed := tables
			if target != "" {
				analyzed = []string{target}
			}

			schema := map[string]any{}
			columnsByTable := map[string][]database.ColumnInfo{}
			for _, table := range analyzed {
				info, err := d.DB.TableInfo(ctx, table)
				if err != nil {
					return errResult(err.Error()), nil
				}
				columnsByTable[table] = info
				schema[table] = describeColumns(info)
			}

			return map[string]any{
				"success": true,
				"schema":  schema,
				"analysis": map[string]any{
					"overview":            schemaOverview(analyzed, columnsByTable),
					"relationships":       inferRelationships(tables, columnsByTable),
					"recommended_queries": recommendQueries(analyzed, columnsByTable),
				},
				"tables_analyzed": analyzed,
			}, nil
		},
	}
}

func suggestQueriesTool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "suggest_queries",
		Description: "Get query suggestions based on schema analysis",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"use_case": {Type: "string"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			tables, err := d.DB.ListTables(ctx)
			if err != nil {
				return errResult(err.Error()), nil
			}

			schema := map[string]any{}
			columnsByTable := map[string][]database.ColumnInfo{}
			for _, table := range tables {
				info, err := d.DB.TableInfo(ctx, table)
				if err != nil {
					return errResult(err.Error()), nil
				}
				columnsByTable[table] = info
				schema[table] = describeColumns(info)
			}

			suggestions := []map[string]any{}
			for _, s := range recommendQueries(tables, columnsByTable) {
				suggestions = append(suggestions, s)
			}
			return map[string]any{
				"success":     true,
				"suggestions": suggestions,
				"schema":      schema,
			}, nil
		},
	}
}

func describeColumns(info []database.ColumnInfo) []map[string]any {
	out := make([]map[string]any, 0, len(info))
	for _, col := range info {
		out = append(out, map[string]any{
			"name":        col.Name,
			"type":        col.Type,
			"notnull":     col.NotNull,
			"primary_key": col.PrimaryKey,
		})
	}
	return out
}

func schemaOverview(tables []string, columns map[string][]database.ColumnInfo) string {
	parts := make([]string, 0, len(tables))
	for _, table := range tables {
		parts = append(parts, fmt.Sprintf("%s (%d columns)", table, len(columns[table])))
	}
	return fmt.Sprintf("%d table(s): %s", len(tables), strings.Join(parts, ", "))
}

// inferRelationships treats a `<singular>_id` column as a reference to the
// table named by its plural.
func inferRelationships(tables []string, columns map[string][]database.ColumnInfo) []map[string]any {
	out := []map[string]any{}
	for table, cols := range columns {
		for _, col := range cols {
			if !strings.HasSuffix(col.Name, "_id") {
				continue
			}
			target := strings.TrimSuffix(col.Name, "_id") + "s"
			if contains(tables, target) {
				out = append(out, map[string]any{
					"from_table":  table,
					"from_column": col.Name,
					"to_table":    target,
				})
			}
		}
	}
	return out
}

func recommendQueries(tables []string, columns map[string][]database.ColumnInfo) []map[string]any {
	out := []map[string]any{}
	for _, table := range tables {
		out = append(out,
			map[string]any{
				"query":       fmt.Sprintf("SELECT * FROM %s LIMIT 10", table),
				"description": fmt.Sprintf("Preview rows from %s", table),
				"use_case":    "Exploration",
			},
			map[string]any{
				"query":       fmt.Sprintf("SELECT count(*) AS total FROM %s", table),
				"description": fmt.Sprintf("Count rows in %s", table),
				"use_case":    "Sizing",
			},
		)
	}
	for _, rel := range inferRelationships(tables, columns) {
		from := rel["from_table"].(string)
		col := rel["from_column"].(string)
		to := rel["to_table"].(string)
		out = append(out, map[string]any{
			"query": fmt.Sprintf("SELECT %s.*, %s.name FROM %s JOIN %s ON %s.%s = %s.id",
				from, to, from, to, from, col, to),
			"description": fmt.Sprintf("Join %s with %s", from, to),
			"use_case":    "Integration",
		})
	}
	return out
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
