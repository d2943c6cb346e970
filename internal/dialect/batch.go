package dialect

import "fileloader/internal/config"

// BatchSize returns how many rows the Staging Loader may bind into a
// single multi-row INSERT for this dialect (spec §4.5, §9 "SQL Server
// parameter cap"). SQL Server caps a single INSERT at 1000 bound values,
// so its row count is floor(1000 / column count) - 1; every other dialect
// is bound only by the configured batch size.
func (d Dialect) BatchSize(src config.SourceSpec, configured int) int {
	if d != SQLServer {
		return configured
	}
	columnCount := len(src.Model) + 2 // + etl_row_hash, source_filename
	cap := (1000 / columnCount) - 1
	if cap > configured {
		cap = configured
	}
	if cap < 1 {
		cap = 1
	}
	return cap
}
