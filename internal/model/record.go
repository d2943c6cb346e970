package model

// ValidRow is a coerced record ready for the stage table: the typed model
// fields plus the three ETL columns every TargetRow/StageRow carries
// (spec §3, §4.3 step 4).
type ValidRow struct {
	Fields        map[string]interface{}
	ETLRowHash    []byte
	SourceFilename string
	RunLogID      int64
}

// FailedRow is a row that failed coercion or a declared custom coercion,
// carrying just enough of the original record to diagnose and reprocess it
// (spec §4.3 step 5).
type FailedRow struct {
	FileRowNumber int
	Record        map[string]interface{}
	Errors        []FieldError
}

// RecordOutcome is the tagged union a single pass over a Reader yields: each
// row becomes exactly one of Valid or Failed, never both (spec §9:
// "Streaming pipeline").
type RecordOutcome struct {
	Valid  *ValidRow
	Failed *FailedRow
}
