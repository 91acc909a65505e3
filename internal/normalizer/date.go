package normalizer

import (
	"errors"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the canonical rendering of a cleaned date.
const DateLayout = "2006-01-02 15:04:05"

var errMissingYear = errors.New("missing year")

// StandardizeDate parses a date-like string and renders it as DateLayout.
// Values without a zone are read as UTC; values with an offset keep their
// wall-clock time. Values without a year are rejected. A nil value is
// returned unchanged.
func StandardizeDate(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}

	t, err := dateparse.ParseIn(*value, time.UTC)
	if err != nil {
		return nil, &ParseError{Value: *value, Err: err}
	}
	// dateparse leaves year 0 for inputs like "May 5".
	if t.Year() == 0 {
		return nil, &ParseError{Value: *value, Err: errMissingYear}
	}

	out := StandardizeTime(t)
	return &out, nil
}

// StandardizeTime renders an already parsed time as DateLayout.
func StandardizeTime(t time.Time) string {
	return t.Format(DateLayout)
}
