// Package model holds the durable records the pipeline writes: the RunLog
// (phase-by-phase outcome of one file) and the DeadLetterRow (one rejected
// record), per spec §3.
package model

import "time"

// RunLog is the durable, append-then-patch record of one file-processing
// attempt (spec §3). Every *int64/*bool/*string field is a pointer so a
// zero value and "not yet known" remain distinguishable when patched into
// storage column-by-column.
type RunLog struct {
	ID        int64
	UUID      string
	FileName  string
	StartedAt time.Time
	EndedAt   *time.Time

	DuplicateSkipped   bool
	RecordsProcessed   *int64
	ValidationErrors   *int64
	RecordsStageLoaded *int64
	TargetInserts      *int64
	TargetUpdates      *int64
	Success            *bool
	ErrorType          string
}

func int64p(v int64) *int64 { return &v }

// AddRecordsProcessed increments RecordsProcessed, initializing it on first use.
func (r *RunLog) AddRecordsProcessed(n int64) {
	if r.RecordsProcessed == nil {
		r.RecordsProcessed = int64p(0)
	}
	*r.RecordsProcessed += n
}

// AddValidationErrors increments ValidationErrors, initializing it on first use.
func (r *RunLog) AddValidationErrors(n int64) {
	if r.ValidationErrors == nil {
		r.ValidationErrors = int64p(0)
	}
	*r.ValidationErrors += n
}

// SetSuccess records the terminal outcome of the file attempt.
func (r *RunLog) SetSuccess(ok bool) {
	r.Success = &ok
}
