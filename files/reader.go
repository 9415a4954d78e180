// Package files turns local tabular files into row sequences. CSV, JSON
// (object array), XLSX (first sheet) and XML (children of one root element)
// are supported; anything else reads as empty.
package files

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CanonicalColumns is the user projection shared by every data source.
var CanonicalColumns = []string{"id", "name", "email", "region", "signup_date"}

// ReadTable reads the raw rows of a tabular file, dispatching on the
// lowercased extension. A missing file or an unsupported extension yields an
// empty sequence and no error.
func ReadTable(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseBytes(path, data)
}

// ParseBytes parses raw file content, using the extension of name to pick
// the format.
func ParseBytes(name string, data []byte) ([]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return parseCSV(data)
	case ".json":
		return parseJSON(data)
	case ".xlsx":
		// Legacy binary .xls is not OOXML and falls through to the
		// unsupported branch.
		return parseXLSX(data)
	case ".xml":
		return parseXML(data)
	default:
		return nil, nil
	}
}

// ReadUsers reads a file and normalises each row to the canonical user
// columns: unknown columns are dropped and id is coerced to an integer when
// it parses as one.
func ReadUsers(path string) ([]map[string]any, error) {
	raw, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, normalizeUserRow(r))
	}
	return rows, nil
}

// ListDir lists file paths under dir, relative to dir.
func ListDir(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}

	var out []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeUserRow(row map[string]any) map[string]any {
	lowered := make(map[string]any, len(row))
	for k, v := range row {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}

	out := map[string]any{}
	for _, col := range CanonicalColumns {
		v, ok := lowered[col]
		if !ok {
			continue
		}
		if col == "id" {
			if n, ok := coerceInt(v); ok {
				v = n
			}
		}
		out[col] = v
	}
	return out
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func parseCSV(data []byte) ([]map[string]any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseJSON(data []byte) ([]map[string]any, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseXLSX(data []byte) ([]map[string]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	var rows []map[string]any
	for _, record := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseXML treats the children of the root element as rows; each child's
// attributes and child-element texts become the row's columns.
func parseXML(data []byte) ([]map[string]any, error) {
	type node struct {
		XMLName  xml.Name
		Attrs    []xml.Attr `xml:",any,attr"`
		Children []struct {
			XMLName xml.Name
			Text    string `xml:",chardata"`
		} `xml:",any"`
	}

	var root struct {
		XMLName xml.Name
		Rows    []node `xml:",any"`
	}
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var rows []map[string]any
	for _, n := range root.Rows {
		row := map[string]any{}
		for _, attr := range n.Attrs {
			row[attr.Name.Local] = attr.Value
		}
		for _, child := range n.Children {
			row[child.XMLName.Local] = strings.TrimSpace(child.Text)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
