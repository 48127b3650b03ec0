// Package tabular reads uploaded CSV and XLSX files into headers plus rows
// of raw string cells
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is the supported upload file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrUnsupportedFileType is returned for anything that is not CSV or XLSX
	ErrUnsupportedFileType = errors.New("unsupported file type: only csv and xlsx files are accepted")
	// ErrFileTooLarge is returned when the upload exceeds the byte limit
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
	// ErrTooManyRows is returned when the file exceeds the data row limit
	ErrTooManyRows = errors.New("file exceeds the maximum row count")
	// ErrEmptyFile is returned when no header row can be found
	ErrEmptyFile = errors.New("file contains no header row")
)

// Limits bound what the parser will accept
type Limits struct {
	MaxBytes int64
	MaxRows  int
}

// DefaultLimits returns the standard upload limits (10MB, 10,000 data rows)
func DefaultLimits() Limits {
	return Limits{
		MaxBytes: 10 << 20,
		MaxRows:  10000,
	}
}

// Row is one data row with its 1-indexed position among the records
// after the header row. Blank records are dropped but still counted, so
// later rows report the number an operator sees in the file.
type Row struct {
	Number int      `json:"number"`
	Cells  []string `json:"cells"`
}

// Document holds a parsed upload. Cells are positionally aligned to
// Headers and every cell is a raw string; type interpretation is left to
// the transforms applied at execution time.
type Document struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// SampleRows returns a bounded prefix of the row cells for operator preview
func (d *Document) SampleRows(n int) [][]string {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	samples := make([][]string, 0, n)
	for _, row := range d.Rows[:n] {
		samples = append(samples, row.Cells)
	}
	return samples
}

// DetectFormat derives the file format from the uploaded filename
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFileType
	}
}

// Parse reads an upload into a Document, enforcing the byte and row limits.
// The first non-empty row is always the header row.
func Parse(r io.Reader, format Format, limits Limits) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, limits.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limits.MaxBytes {
		return nil, ErrFileTooLarge
	}

	var records [][]string
	switch format {
	case FormatCSV:
		records, err = readCSV(data)
	case FormatXLSX:
		records, err = readXLSX(data)
	default:
		return nil, ErrUnsupportedFileType
	}
	if err != nil {
		return nil, err
	}

	return buildDocument(records, limits.MaxRows)
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unparseable csv file: %w", err)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unparseable xlsx file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unparseable xlsx file: %w", err)
	}
	return rows, nil
}

func buildDocument(records [][]string, maxRows int) (*Document, error) {
	// The header row is the first row with any non-blank cell
	headerIdx := -1
	for i, record := range records {
		if !rowIsEmpty(record) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-headerIdx-1)
	for i, record := range records[headerIdx+1:] {
		if rowIsEmpty(record) {
			continue
		}
		rows = append(rows, Row{Number: i + 1, Cells: padRow(record, len(headers))})
	}

	if len(rows) > maxRows {
		return nil, ErrTooManyRows
	}

	return &Document{Headers: headers, Rows: rows}, nil
}

// padRow aligns a row to the header width; short rows are padded with
// empty cells and long rows are truncated
func padRow(record []string, width int) []string {
	row := make([]string, width)
	for i := 0; i < width && i < len(record); i++ {
		row[i] = record[i]
	}
	return row
}

func rowIsEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
