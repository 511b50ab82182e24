package errors

import (
	"fmt"
	"strings"
)

// EncodingFallbackUsed records that a file did not decode with its detected
// encoding and was read with the fallback instead. It is informational and
// travels as a warning, never as a returned error.
type EncodingFallbackUsed struct {
	File     string `json:"file"`
	Detected string `json:"detected"`
	Used     string `json:"used"`
	Reason   string `json:"reason,omitempty"`
}

func (e *EncodingFallbackUsed) Error() string {
	msg := fmt.Sprintf("%s: decoded as %s instead of %s", e.File, e.Used, e.Detected)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// HeaderNotFoundError means no candidate row of a file looked like a header.
// Fatal for that file.
type HeaderNotFoundError struct {
	File      string
	Marker    string
	Attempted int
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("%s: no header row containing %s within the first %d rows", e.File, e.Marker, e.Attempted)
}

// PeriodNotFoundError means no caseload header carried a usable date range.
// Fatal for the whole run.
type PeriodNotFoundError struct {
	Patterns []string
	Headers  int
}

func (e *PeriodNotFoundError) Error() string {
	return fmt.Sprintf("could not infer reporting period from %d column headers (tried: %s)",
		e.Headers, strings.Join(e.Patterns, ", "))
}

// DuplicateEntityError means two roster rows share an identity key.
type DuplicateEntityError struct {
	Key       string
	FirstRow  int
	SecondRow int
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("roster rows %d and %d both resolve to %q", e.FirstRow, e.SecondRow, e.Key)
}

// ColumnNotFoundError means a concept has no matching column. Callers degrade
// the affected figure to N/A unless the column is required.
type ColumnNotFoundError struct {
	Table   string
	Concept string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("no column for %q", e.Concept)
	}
	return fmt.Sprintf("%s: no column for %q", e.Table, e.Concept)
}

// ColumnCollisionError means two distinct headers normalize to the same name.
type ColumnCollisionError struct {
	Canonical string
	First     string
	Second    string
}

func (e *ColumnCollisionError) Error() string {
	return fmt.Sprintf("headers %q and %q both normalize to %q", e.First, e.Second, e.Canonical)
}
