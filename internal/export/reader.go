package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/dataql/internal/domain"
)

// FormatOf guesses the file format from a file name.
func FormatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	}
	return ""
}

// ReadRows parses a CSV or XLSX file whose first non-empty line holds the
// column names. Cells are kept as strings; empty and missing cells become
// NULL so every row carries the same columns.
func ReadRows(r io.Reader, format string) ([]domain.Row, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(format) {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, domain.ParamErrorf("unsupported import format %s", format)
	}
	if err != nil {
		return nil, err
	}
	return toRows(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

func toRows(records [][]string) ([]domain.Row, error) {
	var header []string
	var rows []domain.Row
	for _, record := range records {
		if isBlank(record) {
			continue
		}
		if header == nil {
			header = make([]string, len(record))
			for i, name := range record {
				name = strings.TrimSpace(name)
				if !domain.ValidIdentifier(name) {
					return nil, domain.ParamErrorf("illegal column name %q", name)
				}
				header[i] = name
			}
			continue
		}
		if len(record) > len(header) {
			return nil, domain.ParamErrorf("row has %d cells but the header has %d", len(record), len(header))
		}
		row := make(domain.Row, len(header))
		for i, name := range header {
			row[name] = nil
			if i < len(record) {
				if cell := strings.TrimSpace(record[i]); cell != "" {
					row[name] = cell
				}
			}
		}
		rows = append(rows, row)
	}
	if header == nil {
		return nil, domain.ParamErrorf("no rows found in file")
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
