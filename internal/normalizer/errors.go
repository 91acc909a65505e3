package normalizer

import (
	"errors"
	"fmt"
)

// ErrUnparseableDate is matched by every *ParseError.
var ErrUnparseableDate = errors.New("unparseable date")

// ParseError reports a date value that could not be interpreted.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnparseableDate) match any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrUnparseableDate
}

// RowError ties a per-row failure to the row it came from.
type RowError struct {
	Index     int
	MessageID int64
	Channel   string
	Err       error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (message %d, channel %q): %v", e.Index, e.MessageID, e.Channel, e.Err)
}
