package model

import "time"

// FieldError describes why one column of one row failed validation
// (spec §4.3 step 5): the alias it was read from, the raw value, and a
// machine-readable + human-readable reason.
type FieldError struct {
	ColumnName  string      `json:"column_name"`
	ColumnValue interface{} `json:"column_value"`
	ErrorKind   string      `json:"error_kind"`
	ErrorMessage string     `json:"error_message"`
}

// DeadLetterRow is the durable record of one row that failed validation,
// retained until the file is successfully reprocessed (spec §3, §4.9 step 7).
type DeadLetterRow struct {
	ID               int64
	SourceFilename   string
	FileRowNumber    int
	FileRecordData   map[string]interface{}
	ValidationErrors []FieldError
	RunLogID         int64
	TargetTableName  string
	FailedAt         time.Time
}
