// Package reader implements the Reader capability (spec §4.2, §9
// "Polymorphic readers"): open a file, expose its header set, and yield a
// lazy, single-pass sequence of RawRecords (field-alias -> value, file
// header lowercased). Each concrete reader is a value with its own
// configuration baked in rather than a subclass of an abstract base.
package reader

import (
	"fmt"

	"fileloader/internal/config"
)

// RawRecord maps a lowercased file header (alias) to its cell value.
type RawRecord = map[string]interface{}

// MissingHeaderError is raised when a file has no discernible header row,
// or the header row is entirely blank/placeholder (spec §4.2).
type MissingHeaderError struct {
	Path string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("no usable header row in %s", e.Path)
}

// MissingColumnsError is raised when the observed header set does not
// cover every alias the SourceSpec declares (spec §4.2).
type MissingColumnsError struct {
	Path     string
	Required map[string]bool
	Missing  map[string]bool
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("file %s is missing required columns: required=%v missing=%v", e.Path, keys(e.Required), keys(e.Missing))
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Reader is the capability every concrete format implements: open once,
// then pull RawRecords until exhausted. The sequence is finite and not
// restartable (spec §4.2).
type Reader interface {
	// Next returns the next RawRecord in file order, or ok=false once the
	// file is exhausted. A non-nil error is always terminal.
	Next() (rec RawRecord, ok bool, err error)
	// HeaderSet returns the lowercased file headers observed when the
	// reader was opened.
	HeaderSet() map[string]bool
	// Close releases any underlying file handle / decompressor.
	Close() error
}

// validateHeaderCoverage implements the "required field coverage check"
// shared by every format (spec §4.2): compare observed headers against the
// SourceSpec's declared aliases.
func validateHeaderCoverage(path string, observed map[string]bool, src config.SourceSpec) error {
	required := src.DeclaredAliases()
	missing := make(map[string]bool)
	for alias := range required {
		if !observed[alias] {
			missing[alias] = true
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Path: path, Required: required, Missing: missing}
	}
	return nil
}

func allBlankOrPlaceholder(headers []string) bool {
	for _, h := range headers {
		trimmed := trimSpace(h)
		if trimmed == "" {
			continue
		}
		if isPlaceholder(trimmed) {
			continue
		}
		return false // a real header was found
	}
	return true
}

func isPlaceholder(s string) bool {
	// pyexcel-style default column names for missing headers: "", "-1",
	// "-2", ... (spec §4.2 spreadsheet rule).
	if s == "" {
		return true
	}
	i := 0
	if s[i] == '-' {
		i++
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
