// Package intake lists the files in the intake directory that are
// candidates for processing (spec §4.9 entry point; out of spec.md's
// explicit scope, but a runnable loader needs a concrete directory scan).
package intake

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// knownExtensions are the file suffixes the Reader capability understands,
// including stacked gzip variants.
var knownExtensions = []string{".csv", ".tsv", ".psv", ".xlsx", ".json", ".csv.gz", ".tsv.gz", ".json.gz"}

// Scan lists regular, non-hidden files directly inside dir whose name ends
// in a known extension, sorted for deterministic processing order.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !hasKnownExtension(name) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func hasKnownExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
