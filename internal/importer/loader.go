package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat aborts a batch before any row is processed; it
// is the one failure mode with no row-level granularity.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// MaxFileSize is the maximum allowed upload size (20MB).
var MaxFileSize int64 = 20 * 1024 * 1024

// RawRow is one data row keyed by header text. Keys are canonical field
// names after column normalization; before that, raw header spellings.
type RawRow map[string]string

// LoadRows reads an uploaded file into an ordered sequence of rows. The
// declared filename extension selects the codec: ".csv" or ".xlsx".
// The first non-empty row is treated as the header; fully empty rows
// are dropped. Rows shorter than the header are padded with empty
// cells, longer rows have the extras ignored.
func LoadRows(filename string, data []byte) ([]RawRow, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = parseCSV(sanitizeUTF8(data))
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
	case ".xlsx":
		records, err = parseXLSX(data)
		if err != nil {
			return nil, fmt.Errorf("parse spreadsheet: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	return toRows(records), nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// toRows pairs each data row with the header row, skipping rows that
// are entirely empty.
func toRows(records [][]string) []RawRow {
	// Skip leading empty records before the header.
	for len(records) > 0 && isEmptyRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = cleanCell(h)
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(RawRow, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(rec) {
				row[key] = cleanCell(rec[i])
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func isEmptyRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cleanCell removes common CSV artifacts from a cell value: surrounding
// whitespace, the Excel formula prefix (="value") and stray quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode
// replacement character so the CSV reader never chokes on encoding.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
