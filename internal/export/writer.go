package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/dataql/internal/domain"
)

// Supported file formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const sheetName = "Sheet1"

// Column maps a row key onto a header title.
type Column struct {
	Title string `json:"title"`
	Key   string `json:"key"`
}

// UnmarshalJSON accepts a [title, key] pair as well as an object.
func (c *Column) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return domain.ParamErrorf("head entry needs a title and a key")
		}
		c.Title, c.Key = pair[0], pair[1]
		return nil
	}
	type plain Column
	return json.Unmarshal(data, (*plain)(c))
}

// Head is the ordered column list of an export. Rows are written in head
// order; keys missing from a row give an empty cell.
type Head []Column

// HeadFromRows derives a head from the keys of the first row, sorted.
func HeadFromRows(rows []domain.Row) Head {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rows[0]))
	for key := range rows[0] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	head := make(Head, len(keys))
	for i, key := range keys {
		head[i] = Column{Title: key, Key: key}
	}
	return head
}

func (h Head) titles() []string {
	titles := make([]string, len(h))
	for i, c := range h {
		titles[i] = c.Title
		if titles[i] == "" {
			titles[i] = c.Key
		}
	}
	return titles
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write renders rows in format.
func Write(w io.Writer, format string, head Head, rows []domain.Row) error {
	switch strings.ToLower(format) {
	case FormatXLSX, "":
		return WriteXLSX(w, head, rows)
	case FormatCSV:
		return WriteCSV(w, head, rows)
	}
	return domain.ParamErrorf("unsupported export format %s", format)
}

// WriteXLSX writes a single sheet workbook.
func WriteXLSX(w io.Writer, head Head, rows []domain.Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := setRow(f, 1, toCells(head.titles())); err != nil {
		return err
	}
	for i, row := range rows {
		cells := make([]any, len(head))
		for j, c := range head {
			cells[j] = cellValue(row[c.Key])
		}
		if err := setRow(f, i+2, cells); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNo int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNo, err)
	}
	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// cellValue keeps numbers and booleans typed and renders everything else
// as text.
func cellValue(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case int64, int, float64, bool:
		return v
	}
	return formatValue(value)
}

// WriteCSV writes a header line followed by one line per row.
func WriteCSV(w io.Writer, head Head, rows []domain.Row) error {
	buffered := bufio.NewWriter(w)
	csvWriter := csv.NewWriter(buffered)

	if err := csvWriter.Write(head.titles()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(head))
	for _, row := range rows {
		for i, c := range head {
			record[i] = formatValue(row[c.Key])
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return buffered.Flush()
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []byte:
		return string(v)
	case map[string]any, []any, domain.Row:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
