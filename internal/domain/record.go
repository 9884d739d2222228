package domain

import "strings"

// RecordType is the NEM12 record indicator found in field 0.
type RecordType string

const (
	RecordHeader       RecordType = "100"
	RecordNMIDetails   RecordType = "200"
	RecordIntervalData RecordType = "300"
	RecordEvent        RecordType = "400"
	RecordB2BDetails   RecordType = "500"
	RecordEnd          RecordType = "900"
	RecordUnknown      RecordType = ""
)

// Field positions within 200 and 300 records.
const (
	nmiDetailsIntervalLengthField = 8
	intervalDateField             = 1
	intervalFirstValueField       = 2
)

// ClassifyRecord returns the record indicator of a field row. Blank rows and
// unrecognised indicators classify as RecordUnknown.
func ClassifyRecord(fields []string) RecordType {
	if len(fields) == 0 {
		return RecordUnknown
	}
	switch rt := RecordType(strings.TrimSpace(fields[0])); rt {
	case RecordHeader, RecordNMIDetails, RecordIntervalData, RecordEvent, RecordB2BDetails, RecordEnd:
		return rt
	default:
		return RecordUnknown
	}
}

// Label returns a metrics-friendly name for the record type.
func (r RecordType) Label() string {
	switch r {
	case RecordHeader:
		return "header"
	case RecordNMIDetails:
		return "nmi_details"
	case RecordIntervalData:
		return "interval_data"
	case RecordEvent:
		return "interval_event"
	case RecordB2BDetails:
		return "b2b_details"
	case RecordEnd:
		return "end"
	default:
		return "unknown"
	}
}
