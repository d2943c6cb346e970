package reader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"fileloader/internal/config"
)

// excelEpoch is 1899-12-30, the base Lotus 1-2-3 compatibility date Excel
// measures serial day numbers from. Using this epoch (instead of
// 1900-01-01) absorbs Excel's spurious "1900 is a leap year" bug for every
// serial value that matters in practice (spec §4.2 spreadsheet rule).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// SpreadsheetReader implements Reader over a single worksheet of an .xlsx
// file, converting Excel date/datetime serials for fields the SourceSpec
// declares as such (spec §4.2).
type SpreadsheetReader struct {
	path      string
	f         *excelize.File
	sheet     string
	headers   []string
	header    map[string]bool
	rows      [][]string
	next      int
	dateAlias map[string]config.SemanticType
}

// OpenSpreadsheet opens path, selects src.SheetName (or the first sheet),
// and validates the header row.
func OpenSpreadsheet(path string, src config.SourceSpec) (*SpreadsheetReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sheet := src.SheetName
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			f.Close()
			return nil, fmt.Errorf("%s contains no sheets", path)
		}
		sheet = list[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		f.Close()
		return nil, fmt.Errorf("sheet %q not found in %s", sheet, path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read rows of %s: %w", path, err)
	}

	for i := 0; i < src.SkipRows && len(rows) > 0; i++ {
		rows = rows[1:]
	}

	if len(rows) == 0 || allBlankOrPlaceholder(rows[0]) {
		f.Close()
		return nil, &MissingHeaderError{Path: path}
	}

	headers := make([]string, len(rows[0]))
	header := make(map[string]bool, len(rows[0]))
	for i, h := range rows[0] {
		name := strings.ToLower(trimSpace(h))
		headers[i] = name
		if name != "" {
			header[name] = true
		}
	}

	if err := validateHeaderCoverage(path, header, src); err != nil {
		f.Close()
		return nil, err
	}

	dateAlias := make(map[string]config.SemanticType)
	for _, field := range src.Model {
		if field.SemanticType == config.TypeDate || field.SemanticType == config.TypeDateTime {
			dateAlias[strings.ToLower(field.AliasOrName())] = field.SemanticType
		}
	}

	return &SpreadsheetReader{
		path:      path,
		f:         f,
		sheet:     sheet,
		headers:   headers,
		header:    header,
		rows:      rows[1:],
		dateAlias: dateAlias,
	}, nil
}

// HeaderSet implements Reader.
func (s *SpreadsheetReader) HeaderSet() map[string]bool { return s.header }

// Next implements Reader.
func (s *SpreadsheetReader) Next() (RawRecord, bool, error) {
	if s.next >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.next]
	s.next++

	rec := make(RawRecord, len(s.headers))
	for i, name := range s.headers {
		if name == "" {
			continue
		}
		var cell string
		if i < len(row) {
			cell = row[i]
		}
		if kind, ok := s.dateAlias[name]; ok {
			rec[name] = s.coerceExcelDate(cell, kind)
		} else {
			rec[name] = cell
		}
	}
	return rec, true, nil
}

// coerceExcelDate converts a bare numeric serial cell into an ISO-8601
// string the validator can parse like any other date text. Non-numeric
// cells (already-formatted date strings) pass through unchanged.
func (s *SpreadsheetReader) coerceExcelDate(cell string, kind config.SemanticType) string {
	trimmed := strings.TrimSpace(cell)
	serial, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || trimmed == "" {
		return cell
	}
	days := int(serial)
	frac := serial - float64(days)
	t := excelEpoch.AddDate(0, 0, days)
	if kind == config.TypeDateTime && frac > 0 {
		t = t.Add(time.Duration(frac*24*float64(time.Hour)) + time.Second/2)
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02")
}

// Close implements Reader.
func (s *SpreadsheetReader) Close() error {
	return s.f.Close()
}
