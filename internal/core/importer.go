package core

// importer.go turns uploaded files into a Grid.
//
// Workbooks are read with excelize, or with the BIFF reader in xls.go when
// the bytes are an OLE2 compound file. Only the first sheet is used and the
// header row is treated as ordinary data. CSV files are decoded
// to UTF-8 first: a UTF-8/UTF-16 BOM is honoured, valid UTF-8 is kept as is
// and anything else is read as Windows-1251, the usual export encoding of
// Russian-locale Excel.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// AcceptedExtensions lists the file types ParseFile understands.
var AcceptedExtensions = []string{".xlsx", ".xls", ".csv"}

// ParseFile reads a spreadsheet file into a Grid, choosing the reader from the
// file name's extension.
func ParseFile(name string, r io.Reader) (Grid, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		grid Grid
		err  error
	)
	switch ext {
	case ".xlsx":
		grid, err = parseAnyWorkbook(r)
	case ".xls":
		grid, err = parseAnyWorkbook(r)
		if err != nil && !errors.Is(err, ErrNoData) && !errors.Is(err, ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: .xls workbook could not be read, save it as .xlsx (%v)", ErrUnsupportedFormat, err)
		}
	case ".csv":
		grid, err = parseCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return grid, nil
}

// parseAnyWorkbook picks the reader by content, not by extension.
func parseAnyWorkbook(r io.Reader) (Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	if isCompoundFile(data) {
		return parseLegacyWorkbook(data)
	}
	return parseWorkbook(bytes.NewReader(data))
}

// parseWorkbook reads the first sheet of a zip based workbook.
func parseWorkbook(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoData
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return compactRows(rows)
}

// parseCSV decodes and parses delimited text.
func parseCSV(r io.Reader) (Grid, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	data, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}

	return compactRows(records)
}

// compactRows cleans cells and drops rows with no content.
func compactRows(rows [][]string) (Grid, error) {
	grid := make(Grid, 0, len(rows))
	for _, row := range rows {
		blank := true
		for i := range row {
			row[i] = cleanCell(row[i])
			if row[i] != "" {
				blank = false
			}
		}
		if !blank {
			grid = append(grid, row)
		}
	}

	if len(grid) == 0 {
		return nil, ErrNoData
	}
	return grid, nil
}

// cleanCell trims a cell and unwraps the ="..." form spreadsheet exports use
// to keep leading zeros in part numbers.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

// decodeText converts file bytes to UTF-8.
func decodeText(data []byte) ([]byte, error) {
	if hasUnicodeBOM(data) || utf8.Valid(data) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		return out, err
	}
	out, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
	return out, err
}

func hasUnicodeBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// sniffDelimiter picks the most frequent of ';', tab and ',' on the first
// line, preferring ',' on ties or when none occur.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
