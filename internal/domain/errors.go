package domain

import "fmt"

// DateFormatError reports a 300 record whose date field is not a valid
// YYYYMMDD value. It is fatal for the run.
type DateFormatError struct {
	Value string
	Err   error
}

func (e *DateFormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid interval date %q: want YYYYMMDD", e.Value)
	}
	return fmt.Sprintf("invalid interval date %q: %v", e.Value, e.Err)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

// WarningKind identifies a recoverable input problem.
type WarningKind string

const (
	WarningIntervalCountMismatch  WarningKind = "interval_count_mismatch"
	WarningMalformedMetadataField WarningKind = "malformed_metadata_field"
)

// Warning is a non-fatal finding attached to a record. Processing continues
// after a warning; callers decide how to surface it.
type Warning struct {
	Kind WarningKind `json:"kind"`

	// Date is the YYYYMMDD date of the 300 record, if any.
	Date string `json:"date,omitempty"`

	// Expected and Found are reading counts for interval_count_mismatch.
	Expected int `json:"expected,omitempty"`
	Found    int `json:"found,omitempty"`

	// Field is the raw value rejected by malformed_metadata_field.
	Field string `json:"field,omitempty"`

	// Retained is the interval length kept in effect after a rejected field.
	Retained int `json:"retained,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarningIntervalCountMismatch:
		return fmt.Sprintf("expected %d intervals but found %d for date %s", w.Expected, w.Found, w.Date)
	case WarningMalformedMetadataField:
		return fmt.Sprintf("ignoring interval length %q, keeping %d", w.Field, w.Retained)
	default:
		return string(w.Kind)
	}
}
