package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateColumns is the canonical header row for the downloadable import
// template.
var TemplateColumns = []string{
	"Name",
	"Client ID",
	"Personal Email",
	"Work Email",
	"Cellular Phone",
	"Work Phone",
	"Status",
	"Tags",
}

// RenderCSVTemplate renders the import template as CSV bytes
func RenderCSVTemplate() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TemplateColumns); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderXLSXTemplate renders the import template as an XLSX workbook
func RenderXLSXTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, col := range TemplateColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build template cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return nil, fmt.Errorf("failed to write template cell: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
