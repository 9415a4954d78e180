package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/polyquery/polyquery/files"
	"github.com/polyquery/polyquery/mcp"
)

var parsableExtensions = map[string]bool{
	".csv":  true,
	".json": true,
	".xlsx": true,
	".xml":  true,
}

func listFilesTool(*Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_files",
		Description: "List files in a directory",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"directory": {Type: "string"},
			},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			dir := stringArg(args, "directory")
			if dir == "" {
				dir = "./"
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return errResult("directory does not exist"), nil
			}
			names, err := files.ListDir(dir)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return map[string]any{
				"success": true,
				"files":   names,
			}, nil
		},
	}
}

func parseFileTool(*Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "parse_file",
		Description: "Parse CSV, JSON, XML, Excel files into rows",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"file_path":    {Type: "string"},
				"file_content": {Type: "string", Description: "Inline file body, parsed using file_path's extension"},
			},
			Required: []string{"file_path"},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			path := stringArg(args, "file_path")
			content := stringArg(args, "file_content")
			if path == "" && content == "" {
				return errResult("either file_path or file_content is required"), nil
			}

			ext := strings.ToLower(filepath.Ext(path))
			if !parsableExtensions[ext] {
				return errResult(fmt.Sprintf("unsupported file type: %s", ext)), nil
			}

			var (
				rows []map[string]any
				err  error
			)
			if content != "" {
				rows, err = files.ParseBytes(path, []byte(content))
			} else {
				data, readErr := os.ReadFile(path)
				if readErr != nil {
					return errResult(readErr.Error()), nil
				}
				rows, err = files.ParseBytes(path, data)
			}
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
