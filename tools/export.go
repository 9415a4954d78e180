package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/polyquery/polyquery/mcp"
)

func exportDataTool(d *Deps) *mcp.Tool {
	return &mcp.Tool{
		Name:        "export_data",
		Description: "Export results to various formats (JSON, CSV, Excel, plain-text report) with optional summary",
		InputSchema: mcp.Schema{
			Type: "object",
			Properties: map[string]mcp.Property{
				"sql":             {Type: "string"},
				"rows":            {Type: "array", Items: &mcp.Property{Type: "object"}},
				"format":          {Type: "string", Enum: []string{"json", "csv", "xlsx", "report"}},
				"filename":        {Type: "string"},
				"include_summary": {Type: "boolean"},
				"transform_spec":  transformSpecProperty,
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

			format := strings.ToLower(stringArg(args, "format"))
			if format == "" {
				format = "csv"
			}
			columns := columnsOf(rows)

			result := map[string]any{
				"success": true,
				"format":  format,
			}
			if boolArg(args, "include_summary", false) {
				result["summary"] = map[string]any{
					"row_count":    len(rows),
					"column_count": len(columns),
					"columns":      columns,
				}
			}

			switch format {
			case "json":
				result["rows"] = rows

			case "csv":
				content, err := encodeCSV(columns, rows)
				if err != nil {
					return errResult(err.Error()), nil
				}
				result["filename"] = filenameArg(args, "export.csv")
				result["content"] = content

			case "xlsx":
				content, err := encodeXLSX(columns, rows)
				if err != nil {
					return errResult(err.Error()), nil
				}
				result["filename"] = filenameArg(args, "export.xlsx")
				result["content_base64"] = content

			case "report":
				result["report"] = buildReport(columns, rows)

			default:
				return errResult(fmt.Sprintf("unsupported format: %s", format)), nil
			}
			return result, nil
		},
	}
}

func filenameArg(args map[string]any, fallback string) string {
	if name := stringArg(args, "filename"); name != "" {
		return name
	}
	return fallback
}

func encodeCSV(columns []string, rows []map[string]any) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			if v := row[col]; v != nil {
				record[i] = fmt.Sprint(v)
			}
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func encodeXLSX(columns []string, rows []map[string]any) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", err
	}
	for i, row := range rows {
		record := make([]any, len(columns))
		for j, col := range columns {
			record[j] = row[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// buildReport renders a plain-text summary of the result set: shape, column
// inventory, and per-numeric-column min/max/mean.
func buildReport(columns []string, rows []map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data Export Report\n")
	fmt.Fprintf(&b, "==================\n\n")
	fmt.Fprintf(&b, "Rows: %d\n", len(rows))
	fmt.Fprintf(&b, "Columns: %d (%s)\n", len(columns), strings.Join(columns, ", "))

	for _, col := range columns {
		nums := []float64{}
		for _, row := range rows {
			if f, ok := toFloat(row[col]); ok {
				nums = append(nums, f)
			}
		}
		if len(nums) != len(rows) || len(nums) == 0 {
			continue
		}
		min, max, sum := nums[0], nums[0], 0.0
		for _, n := range nums {
			if n < min {
				min = n
			}
			if n > max {
				max = n
			}
			sum += n
		}
		fmt.Fprintf(&b, "\n%s: min=%g max=%g mean=%.2f", col, min, max, sum/float64(len(nums)))
	}
	b.WriteString("\n")
	return b.String()
}
