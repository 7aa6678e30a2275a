package amr

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// IDColumn is the merged-table column holding the originating sample
// or MAG identifier.
const IDColumn = "Sample/MAG_ID"

// Table is a simple column-ordered TSV table
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadTable parses one TSV annotation table
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	table := &Table{Columns: records[0]}
	for _, record := range records[1:] {
		row := make([]string, len(table.Columns))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// WithID returns a copy of the table with the id column prepended and
// filled with the given value on every row.
func (t *Table) WithID(id string) *Table {
	out := &Table{Columns: append([]string{IDColumn}, t.Columns...)}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, append([]string{id}, row...))
	}
	return out
}

// Combine merges tables into one. Columns are unioned in first-seen
// order; rows keep their input order within a table and table order
// across tables. Cells missing from a table stay empty.
func Combine(tables []*Table) *Table {
	combined := &Table{}
	index := make(map[string]int)

	for _, table := range tables {
		for _, col := range table.Columns {
			if _, ok := index[col]; !ok {
				index[col] = len(combined.Columns)
				combined.Columns = append(combined.Columns, col)
			}
		}
	}

	for _, table := range tables {
		for _, row := range table.Rows {
			merged := make([]string, len(combined.Columns))
			for i, col := range table.Columns {
				if i < len(row) {
					merged[index[col]] = row[i]
				}
			}
			combined.Rows = append(combined.Rows, merged)
		}
	}

	return combined
}

// MergeAnnotations reads every annotation file under root and combines
// them into one metadata table keyed by Sample/MAG_ID. For per-sample
// layouts the subdirectory name qualifies which sample a MAG belongs
// to, so the file id alone stays the identifier within it.
func MergeAnnotations(root string) (*Table, error) {
	files, err := FindAnnotationFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &ValidationError{Path: root, Message: "no *" + AnnotationSuffix + " files found"}
	}

	var tables []*Table
	for _, file := range files {
		f, err := os.Open(file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file.Path, err)
		}
		table, err := ReadTable(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Path, err)
		}
		if len(table.Rows) == 0 {
			continue // sample with no hits
		}
		tables = append(tables, table.WithID(file.ID))
	}

	return Combine(tables), nil
}

// WriteTSV writes the table with a sequential string index column named
// "id", matching the metadata table shape the plugin emits.
func WriteTSV(w io.Writer, table *Table) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	header := append([]string{"id"}, table.Columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range table.Rows {
		record := append([]string{strconv.Itoa(i)}, row...)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ParseTableString is a test convenience wrapper around ReadTable
func ParseTableString(s string) (*Table, error) {
	return ReadTable(strings.NewReader(s))
}
