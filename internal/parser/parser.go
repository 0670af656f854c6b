// Package parser turns uploaded transaction files into normalized rows.
//
// Delimited text (csv, tsv) and Office Open XML spreadsheets (xlsx, xlsm) are
// decoded into a Table; plain text (txt) is kept as an opaque blob that cannot
// be scored row by row, and must be valid UTF-8.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

// DocumentKind separates scorable tables from free text.
type DocumentKind string

const (
	KindTabular DocumentKind = "tabular"
	KindText    DocumentKind = "text"
)

// SampleRows is how many rows Describe renders.
const SampleRows = 5

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is an ordered row set with a stable column list.
type Table struct {
	Columns []string
	Rows    []models.Row
}

// Document is the parsed form of one upload.
type Document struct {
	Format string
	Kind   DocumentKind
	Table  *Table
	Text   string
}

type decoder func(content []byte) (*Table, error)

var tabular = map[string]decoder{
	"csv":  delimited(','),
	"tsv":  delimited('\t'),
	"xlsx": spreadsheet,
	"xlsm": spreadsheet,
}

const textExt = "txt"

// Ext returns the lower-cased extension of filename without the dot.
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Supported returns an UNSUPPORTED_TYPE ParseError when filename cannot be parsed.
func Supported(filename string) error {
	ext := Ext(filename)
	if _, ok := tabular[ext]; ok || ext == textExt {
		return nil
	}
	return unsupported(ext)
}

// Parse decodes content according to the extension of filename.
func Parse(content []byte, filename string) (*Document, error) {
	ext := Ext(filename)
	if ext == textExt {
		if !utf8.Valid(content) {
			return nil, malformed(ext, errors.New("content is not valid UTF-8"))
		}
		return &Document{Format: ext, Kind: KindText, Text: string(content)}, nil
	}
	decode, ok := tabular[ext]
	if !ok {
		return nil, unsupported(ext)
	}
	table, err := decode(content)
	if err != nil {
		return nil, malformed(ext, err)
	}
	return &Document{Format: ext, Kind: KindTabular, Table: table}, nil
}

func delimited(comma rune) decoder {
	return func(content []byte) (*Table, error) {
		r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
		r.Comma = comma
		r.TrimLeadingSpace = true

		header, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no header row")
		}
		if err != nil {
			return nil, err
		}
		columns, err := normalizeHeader(header)
		if err != nil {
			return nil, err
		}

		table := &Table{Columns: columns, Rows: []models.Row{}}
		for {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
			if blank(record) {
				continue
			}
			table.Rows = append(table.Rows, buildRow(columns, record))
		}
		return table, nil
	}
}

func spreadsheet(content []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("no header row")
	}
	columns, err := normalizeHeader(rows[0])
	if err != nil {
		return nil, err
	}

	table := &Table{Columns: columns, Rows: []models.Row{}}
	for i, record := range rows[1:] {
		if blank(record) {
			continue
		}
		if len(record) > len(columns) {
			return nil, fmt.Errorf("row %d: %d cells, header has %d columns", i+2, len(record), len(columns))
		}
		table.Rows = append(table.Rows, buildRow(columns, record))
	}
	return table, nil
}

func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		columns[i] = name
	}
	return columns, nil
}

// buildRow pads short records with absent values.
func buildRow(columns, record []string) models.Row {
	row := make(models.Row, len(columns))
	for i, col := range columns {
		var cell string
		if i < len(record) {
			cell = record[i]
		}
		row[col] = inferValue(cell)
	}
	return row
}

func inferValue(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
