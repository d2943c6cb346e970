package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fileloader/internal/model"
)

// CopyValidRows bulk-loads rows into a Postgres stage table using COPY
// FROM, the fast path the Staging Loader prefers over batched INSERTs on
// Postgres (SPEC_FULL.md §4.4, grounded in the teacher's COPY-based
// Postgres writer).
func (p *Pool) CopyValidRows(ctx context.Context, stageTable string, columns []string, rows []model.ValidRow) (int64, error) {
	if p.PG == nil {
		return 0, fmt.Errorf("CopyValidRows called on a non-postgres pool")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	source := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(columns))
		for j, col := range columns {
			switch col {
			case "etl_row_hash":
				vals[j] = row.ETLRowHash
			case "source_filename":
				vals[j] = row.SourceFilename
			default:
				vals[j] = row.Fields[col]
			}
		}
		source[i] = vals
	}

	n, err := p.PG.CopyFrom(ctx, pgx.Identifier{stageTable}, columns, pgx.CopyFromRows(source))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", stageTable, err)
	}
	return n, nil
}
