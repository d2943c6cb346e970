package reader

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"fileloader/internal/config"
)

// DocumentReader implements Reader over a JSON document whose records live
// in an array reachable by a dotted array_path, flattening nested objects
// and arrays into underscore-joined scalar columns (SPEC_FULL.md §4.2
// document supplement, grounded in the JSON flattening rules of the
// original Python reader).
type DocumentReader struct {
	path    string
	records []map[string]interface{}
	flat    []RawRecord
	header  map[string]bool
	next    int
}

// OpenDocument opens path (optionally .json.gz), navigates array_path, and
// flattens every element into a RawRecord.
func OpenDocument(path string, src config.SourceSpec) (*DocumentReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var body io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		body = gz
	}

	var doc interface{}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse json %s: %w", path, err)
	}

	arr, err := navigateArrayPath(doc, src.ArrayPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	flat := make([]RawRecord, 0, len(arr))
	header := make(map[string]bool)
	for _, elem := range arr {
		obj, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		rec := make(RawRecord)
		flattenInto(rec, "", obj)
		for k := range rec {
			header[strings.ToLower(k)] = true
		}
		lowered := make(RawRecord, len(rec))
		for k, v := range rec {
			lowered[strings.ToLower(k)] = v
		}
		flat = append(flat, lowered)
	}

	if len(arr) == 0 {
		return nil, &MissingHeaderError{Path: path}
	}

	if err := validateHeaderCoverage(path, header, src); err != nil {
		return nil, err
	}

	return &DocumentReader{path: path, flat: flat, header: header}, nil
}

// navigateArrayPath walks a dotted path of object keys from the document
// root down to the array of records (SPEC_FULL.md document supplement).
// An empty path means the document root is itself the array.
func navigateArrayPath(doc interface{}, arrayPath string) ([]interface{}, error) {
	cur := doc
	if arrayPath != "" {
		for _, part := range strings.Split(arrayPath, ".") {
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("array_path %q: %q is not an object", arrayPath, part)
			}
			next, ok := obj[part]
			if !ok {
				return nil, fmt.Errorf("array_path %q: key %q not found", arrayPath, part)
			}
			cur = next
		}
	}
	arr, ok := cur.([]interface{})
	if !ok {
		return nil, fmt.Errorf("array_path %q does not resolve to a JSON array", arrayPath)
	}
	return arr, nil
}

// flattenInto recursively flattens obj into dst using underscore-joined
// keys: nested objects descend by key, arrays of scalars join with an
// underscore, arrays of objects flatten each element by positional index.
func flattenInto(dst map[string]interface{}, prefix string, v interface{}) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(dst, joinKey(prefix, k), val[k])
		}
	case []interface{}:
		if allScalar(val) {
			parts := make([]string, len(val))
			for i, e := range val {
				parts[i] = scalarString(e)
			}
			dst[prefix] = strings.Join(parts, "_")
			return
		}
		for i, e := range val {
			flattenInto(dst, joinKey(prefix, strconv.Itoa(i)), e)
		}
	default:
		dst[prefix] = val
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func allScalar(arr []interface{}) bool {
	for _, e := range arr {
		switch e.(type) {
		case map[string]interface{}, []interface{}:
			return false
		}
	}
	return true
}

func scalarString(v interface{}) string {
	if v == nil {
		return ""
	}
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return fmt.Sprintf("%v", v)
}

// HeaderSet implements Reader.
func (d *DocumentReader) HeaderSet() map[string]bool { return d.header }

// Next implements Reader.
func (d *DocumentReader) Next() (RawRecord, bool, error) {
	if d.next >= len(d.flat) {
		return nil, false, nil
	}
	rec := d.flat[d.next]
	d.next++
	return rec, true, nil
}

// Close implements Reader.
func (d *DocumentReader) Close() error { return nil }
