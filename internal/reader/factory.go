package reader

import (
	"fmt"
	"strings"

	"fileloader/internal/config"
)

// Open dispatches to the concrete Reader for src.FormatKind. Delimited and
// document readers open a trailing ".gz" suffix through gzip; spreadsheet
// sources reject gzip-compressed files (spec §4.2, SPEC_FULL.md gzip
// supplement).
func Open(path string, src config.SourceSpec) (Reader, error) {
	switch src.FormatKind {
	case config.FormatDelimited:
		return OpenDelimited(path, src)
	case config.FormatSpreadsheet:
		if strings.HasSuffix(strings.ToLower(path), ".gz") {
			return nil, fmt.Errorf("spreadsheet source %q does not support gzip-compressed files: %s", src.Name, path)
		}
		return OpenSpreadsheet(path, src)
	case config.FormatDocument:
		return OpenDocument(path, src)
	default:
		return nil, fmt.Errorf("source %q declares unknown format_kind %q", src.Name, src.FormatKind)
	}
}
