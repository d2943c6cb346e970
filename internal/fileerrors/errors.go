// Package fileerrors defines the error taxonomy used to classify per-file
// pipeline failures into retryable/non-retryable and owner/operator
// notification lanes (spec §7).
package fileerrors

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a file-processing failure.
type Kind string

const (
	KindMissingHeader               Kind = "MissingHeader"
	KindMissingColumns              Kind = "MissingColumns"
	KindValidationThresholdExceeded Kind = "ValidationThresholdExceeded"
	KindGrainValidationError        Kind = "GrainValidationError"
	KindAuditFailed                 Kind = "AuditFailed"
	KindDuplicateFile               Kind = "DuplicateFile"
	KindAmbiguousSource             Kind = "AmbiguousSource"
	KindTransientIO                 Kind = "TransientIO"
	KindTransientDB                 Kind = "TransientDB"
	KindCodeDefect                  Kind = "CodeDefect"
)

// Lane names which notification sink a failure of a given Kind is routed to.
type Lane string

const (
	LaneOwner    Lane = "owner"
	LaneOperator Lane = "operator"
	LaneNone     Lane = "none"
)

// nonRetryable is the set of Kinds the Retry Policy must never retry,
// regardless of how many attempts remain (spec §4.8, §7).
var nonRetryable = map[Kind]bool{
	KindMissingHeader:               true,
	KindMissingColumns:              true,
	KindValidationThresholdExceeded: true,
	KindGrainValidationError:        true,
	KindAuditFailed:                 true,
	KindDuplicateFile:               true,
	KindAmbiguousSource:             true,
}

var lanes = map[Kind]Lane{
	KindMissingHeader:               LaneOwner,
	KindMissingColumns:              LaneOwner,
	KindValidationThresholdExceeded: LaneOwner,
	KindGrainValidationError:        LaneOwner,
	KindAuditFailed:                 LaneOwner,
	KindDuplicateFile:               LaneOwner,
	KindAmbiguousSource:             LaneOperator,
	KindTransientIO:                 LaneOperator,
	KindTransientDB:                 LaneOperator,
	KindCodeDefect:                  LaneOperator,
}

// FileError is a file-pipeline failure tagged with its Kind so the Worker
// Pool and notification layer can classify it without string matching.
type FileError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FileError) Unwrap() error { return e.Err }

// Retryable reports whether the Retry Policy is allowed to retry an
// operation that failed with this Kind.
func (k Kind) Retryable() bool {
	return !nonRetryable[k]
}

// Lane reports which notification sink a failure of this Kind reaches.
func (k Kind) Lane() Lane {
	if l, ok := lanes[k]; ok {
		return l
	}
	return LaneOperator
}

// New builds a *FileError of the given Kind.
func New(kind Kind, format string, args ...interface{}) *FileError {
	return &FileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a *FileError of the given Kind around an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *FileError {
	return &FileError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err if it is (or wraps) a *FileError,
// otherwise returns KindCodeDefect — the catch-all per spec §7.
func KindOf(err error) Kind {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindCodeDefect
}
