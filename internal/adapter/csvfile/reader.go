package csvfile

import (
	"encoding/csv"
	"io"
)

// Reader yields NEM12 records from comma-separated text. Records may have
// any number of fields. It implements pipeline.RecordSource.
type Reader struct {
	r *csv.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	return &Reader{r: cr}
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() ([]string, error) {
	return r.r.Read()
}
