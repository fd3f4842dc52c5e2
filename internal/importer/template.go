package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/memberdesk/memberdesk/internal/schema"
)

// Template describes the downloadable starter file: the canonical
// header list, one example row, and a per-column description of the
// expected format.
type Template struct {
	Columns []schema.ColumnDescription `json:"columns"`
}

// NewTemplate returns the template for the canonical member schema.
func NewTemplate() Template {
	return Template{Columns: schema.TemplateColumns}
}

// CSV renders the template as a CSV file: header row plus the example
// row.
func (t Template) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	headers := make([]string, len(t.Columns))
	example := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Label
		example[i] = col.Example
	}

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.Write(example); err != nil {
		return nil, fmt.Errorf("write example row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XLSX renders the template as a spreadsheet: a Members sheet with the
// header and example rows, and a Guide sheet describing each column.
func (t Template) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const dataSheet = "Members"
	const guideSheet = "Guide"

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(guideSheet); err != nil {
		return nil, err
	}

	for i, col := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(dataSheet, cell, col.Label); err != nil {
			return nil, err
		}
		cell, err = excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(dataSheet, cell, col.Example); err != nil {
			return nil, err
		}
	}

	guideHeader := []string{"Column", "Required", "Description"}
	for i, h := range guideHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(guideSheet, cell, h); err != nil {
			return nil, err
		}
	}
	for i, col := range t.Columns {
		required := "optional"
		if col.Required {
			required = "required"
		}
		values := []string{col.Label, required, col.Description}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(guideSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
