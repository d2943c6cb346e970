// Package sourceregistry matches an intake filename to exactly one
// declared config.SourceSpec (spec §4.1).
package sourceregistry

import (
	"fmt"
	"path"
	"strings"

	"fileloader/internal/config"
)

// ErrNoMatch indicates no declared SourceSpec recognizes the filename; the
// caller skips the file with a warning, not an error (spec §4.1).
type ErrNoMatch struct {
	FileName string
}

func (e *ErrNoMatch) Error() string {
	return fmt.Sprintf("no source configuration matches file %q", e.FileName)
}

// ErrAmbiguous indicates more than one declared SourceSpec matches the
// filename — a hard configuration failure, never guessed at (spec §4.1,
// §9 "Open questions": the original's registry.find_source_for_file always
// raised even for zero or one match; we implement the corrected semantics).
type ErrAmbiguous struct {
	FileName string
	Matches  []string
}

func (e *ErrAmbiguous) Error() string {
	return fmt.Sprintf("file %q matches multiple sources: %s", e.FileName, strings.Join(e.Matches, ", "))
}

// Registry holds the set of declared SourceSpecs for one run.
type Registry struct {
	sources []config.SourceSpec
}

// New builds a Registry from the sources declared in a RunConfig.
func New(sources []config.SourceSpec) *Registry {
	return &Registry{sources: append([]config.SourceSpec(nil), sources...)}
}

// Match resolves filename against every declared SourceSpec's file_pattern
// using a case-insensitive glob on the bare filename only.
func (r *Registry) Match(filename string) (*config.SourceSpec, error) {
	base := strings.ToLower(path.Base(filename))

	var matches []config.SourceSpec
	for _, src := range r.sources {
		ok, err := path.Match(strings.ToLower(src.FilePattern), base)
		if err != nil {
			return nil, fmt.Errorf("source %q has invalid file_pattern %q: %w", src.Name, src.FilePattern, err)
		}
		if ok {
			matches = append(matches, src)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &ErrNoMatch{FileName: filename}
	case 1:
		return &matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return nil, &ErrAmbiguous{FileName: filename, Matches: names}
	}
}
