// Package tools registers the server's tool handlers. Each handler takes
// decoded arguments and returns a result map with a "success" flag; expected
// failures come back as {"success": false, "error": {...}} rather than a
// transport-level error.
package tools

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/polyquery/polyquery/database"
	"github.com/polyquery/polyquery/mcp"
	"github.com/polyquery/polyquery/oracle"
	"github.com/polyquery/polyquery/rest"
	"github.com/polyquery/polyquery/search"
)

// Deps carries the shared backends the handlers close over.
type Deps struct {
	DB        *database.Database
	Pool      *rest.Pool
	Searcher  *search.Searcher
	Oracle    oracle.Oracle
	APIBase   string
	APIKey    string
	FilePaths []string
	Logger    *zap.Logger
}

// RegisterAll wires every tool into the registry. Registration order is the
// order tools/list reports.
func RegisterAll(r *mcp.Registry, d *Deps) {
	r.Register(listSourcesTool(d))
	r.Register(queryDataTool(d))
	r.Register(queryAPITool(d))
	r.Register(transformDataTool(d))
	r.Register(integrateDataTool(d))
	r.Register(exportDataTool(d))
	r.Register(analyzeSchemaTool(d))
	r.Register(suggestQueriesTool(d))
	r.Register(checkDataQualityTool(d))
	r.Register(listFilesTool(d))
	r.Register(parseFileTool(d))
	r.Register(searchUsersTool(d))
}

func listSourcesTool(*Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_sources",
		Description: "List all configured data sources with metadata",
		InputSchema: mcp.Schema{
			Type:       "object",
			Properties: map[string]mcp.Property{},
			Required:   []string{},
		},
		Handler: func(context.Context, map[string]any) (any, error) {
			return map[string]any{
				"sources": []map[string]any{
					{"name": "SQLite Database", "type": "sql"},
					{"name": "REST API", "type": "api"},
					{"name": "Local Files", "type": "file"},
				},
			}, nil
		},
	}
}

func queryDataTool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "query_data",
		Description: "Execute queries using natural language or SQL against the local store",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"question": {Type: "string", Description: "Natural language question or SQL query"},
			},
			Required: []string{"question"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			question := stringArg(args, "question")
			if question == "" {
				return errResult("question is required"), nil
			}

			sql, err := d.Oracle.SQL(ctx, question)
			if err != nil {
				return errResult(fmt.Sprintf("query generation failed: %v", err)), nil
			}

			result, err := d.DB.ExecuteSelect(ctx, sql, nil, database.DefaultRowLimit)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return map[string]any{
				"success":       true,
				"question":      question,
				"generated_sql": sql,
				"columns":       result.Columns,
				"rows":          result.Rows,
				"count":         len(result.Rows),
			}, nil
		},
	}
}

func queryAPITool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "query_api",
		Description: "Execute REST API calls (GET, POST, PUT, DELETE) with authentication support",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"method":           {Type: "string", Enum: []string{"GET", "POST", "PUT", "DELETE"}},
				"path":             {Type: "string"},
				"params":           {Type: "object"},
				"json":             {Type: "object"},
				"base_url":         {Type: "string"},
				"api_key":          {Type: "string"},
				"oauth2_token":     {Type: "string"},
				"use_cache":        {Type: "boolean"},
				"invalidate_cache": {Type: "boolean"},
			},
			Required: []string{"method", "path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			method := strings.ToUpper(stringArg(args, "method"))
			path := stringArg(args, "path")
			if method == "" || path == "" {
				return errResult("method and path are required"), nil
			}

			baseURL := stringArg(args, "base_url")
			if baseURL == "" {
				baseURL = d.APIBase
			}
			creds := rest.Credentials{APIKey: d.APIKey}
			if key := stringArg(args, "api_key"); key != "" {
				creds = rest.Credentials{APIKey: key}
			}
			client := d.Pool.Client(baseURL, creds)

			opts := rest.CallOptions{
				Body:            args["json"],
				BearerToken:     stringArg(args, "oauth2_token"),
				InvalidateCache: boolArg(args, "invalidate_cache", false),
			}

			var (
				data   any
				err    error
				status int
			)
			switch method {
			case "GET":
				data, err = client.Get(ctx, path, stringMapArg(args, "params"), boolArg(args, "use_cache", true))
				status = 200
			case "POST":
				data, err = client.Post(ctx, path, opts)
				status = 201
			case "PUT":
				data, err = client.Put(ctx, path, opts)
				status = 200
			case "DELETE":
				data, err = client.Delete(ctx, path, opts)
				status = 200
			default:
				return errResult(fmt.Sprintf("unsupported method: %s", method)), nil
			}
			if err != nil {
				return errResult(err.Error()), nil
			}
			return map[string]any{
				"success": true,
				"method":  method,
				"status":  status,
				"data":    data,
			}, nil
		},
	}
}

func searchUsersTool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_users",
		Description: "Unified search across SQL, REST API, and files for user data with AND/OR filtering",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"query": {
					Type:        "string",
					Description: "Search query supporting id, name, email, region, signup_date with AND/OR operators",
				},
			},
			Required: []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query := stringArg(args, "query")
			if query == "" {
				return errResult("query is required"), nil
			}
			rows, err := d.Searcher.SearchUsers(ctx, query)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return map[string]any{
				"success": true,
				"rows":    rows,
				"count":   len(rows),
			}, nil
		},
	}
}

func errResult(message string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   map[string]any{"message": message},
	}
}

func stringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return fallback
}

func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func stringMapArg(args map[string]any, key string) map[string]string {
	raw, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func rowSliceArg(args map[string]any, key string) ([]map[string]any, bool) {
	raw, ok := args[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		row, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, row)
	}
	return out, true
}

// sourceRows resolves the rows-or-sql convention shared by the shaping
// tools. Exactly one of the two inputs must be present.
func sourceRows(ctx context.Context, d *Deps, args map[string]any) ([]map[string]any, error) {
	if sql := stringArg(args, "sql"); sql != "" {
		result, err := d.DB.ExecuteSelect(ctx, sql, nil, database.DefaultRowLimit)
		if err != nil {
			return nil, err
		}
		return result.Rows, nil
	}
	if rows, ok := rowSliceArg(args, "rows"); ok {
		return rows, nil
	}
	return nil, fmt.Errorf("either sql or rows must be provided")
}
