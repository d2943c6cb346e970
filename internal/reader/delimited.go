package reader

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"fileloader/internal/config"
)

// DelimitedReader implements Reader for CSV/TSV-family files, including
// transparently-gzipped variants (spec §4.2, SPEC_FULL.md §4.2 gzip
// supplement).
type DelimitedReader struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	csvr    *csv.Reader
	headers []string
	header  map[string]bool
}

// OpenDelimited opens path and validates its header against src.
func OpenDelimited(path string, src config.SourceSpec) (*DelimitedReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var body io.Reader = f
	var gz *gzip.Reader
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		body = gz
	}

	if dec := decoderFor(src.Encoding); dec != nil {
		body = transform.NewReader(body, dec.NewDecoder())
	}

	cr := csv.NewReader(body)
	cr.Comma = delimiterRune(src.Delimiter)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	dr := &DelimitedReader{path: path, file: f, gz: gz, csvr: cr}

	for i := 0; i < src.SkipRows; i++ {
		if _, err := cr.Read(); err != nil {
			dr.Close()
			return nil, fmt.Errorf("skip_rows: %s has fewer than %d rows: %w", path, src.SkipRows, err)
		}
	}

	rawHeader, err := cr.Read()
	if err == io.EOF {
		dr.Close()
		return nil, &MissingHeaderError{Path: path}
	}
	if err != nil {
		dr.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	if allBlankOrPlaceholder(rawHeader) {
		dr.Close()
		return nil, &MissingHeaderError{Path: path}
	}

	dr.headers = make([]string, len(rawHeader))
	dr.header = make(map[string]bool, len(rawHeader))
	for i, h := range rawHeader {
		name := strings.ToLower(trimSpace(h))
		dr.headers[i] = name
		if name != "" {
			dr.header[name] = true
		}
	}

	if err := validateHeaderCoverage(path, dr.header, src); err != nil {
		dr.Close()
		return nil, err
	}

	return dr, nil
}

func delimiterRune(d string) rune {
	if d == "" {
		return ','
	}
	r := []rune(d)
	return r[0]
}

func decoderFor(encoding string) *charmap.Charmap {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return nil
	case "latin1", "iso-8859-1", "cp1252", "windows-1252":
		return charmap.Windows1252
	default:
		return nil
	}
}

// HeaderSet implements Reader.
func (d *DelimitedReader) HeaderSet() map[string]bool { return d.header }

// Next implements Reader.
func (d *DelimitedReader) Next() (RawRecord, bool, error) {
	row, err := d.csvr.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read row of %s: %w", d.path, err)
	}

	rec := make(RawRecord, len(d.headers))
	for i, name := range d.headers {
		if name == "" {
			continue
		}
		if i < len(row) {
			rec[name] = row[i]
		} else {
			rec[name] = ""
		}
	}
	return rec, true, nil
}

// Close implements Reader.
func (d *DelimitedReader) Close() error {
	var firstErr error
	if d.gz != nil {
		if err := d.gz.Close(); err != nil {
			firstErr = err
		}
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
