package types

import "fmt"

// Adapter error kinds. Source failures cover the whole fetch (network, HTTP
// status, deadline); malformed records cover a single venue record that
// failed to parse and was dropped.
const (
	ErrKindSourceUnavailable = "source_unavailable"
	ErrKindMalformedRecord   = "malformed_record"
)

// AdapterError classifies a venue ingestion failure for logging and metrics.
type AdapterError struct {
	Venue string
	Kind  string
	Err   error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Venue, e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailable wraps a whole-fetch failure for a venue.
func NewSourceUnavailable(venue string, err error) *AdapterError {
	return &AdapterError{Venue: venue, Kind: ErrKindSourceUnavailable, Err: err}
}

// NewMalformedRecord wraps a single-record parse failure for a venue.
func NewMalformedRecord(venue string, err error) *AdapterError {
	return &AdapterError{Venue: venue, Kind: ErrKindMalformedRecord, Err: err}
}
