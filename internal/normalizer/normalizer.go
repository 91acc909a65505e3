// Package normalizer cleans, deduplicates and validates scraped record tables.
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/types"
)

// DatePolicy decides what Clean does with a row whose date cannot be parsed.
type DatePolicy string

const (
	// DropRow excludes the row and records it in Result.DateErrors.
	DropRow DatePolicy = "drop"
	// Abort stops Clean at the first unparseable date.
	Abort DatePolicy = "abort"
)

// ErrUnknownDatePolicy is returned by ParseDatePolicy for unrecognized names.
var ErrUnknownDatePolicy = errors.New("date policy must be one of: drop, abort")

// ParseDatePolicy maps a config value to a DatePolicy.
func ParseDatePolicy(s string) (DatePolicy, error) {
	switch DatePolicy(strings.ToLower(s)) {
	case DropRow, "":
		return DropRow, nil
	case Abort:
		return Abort, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDatePolicy, s)
	}
}

// Normalizer applies text and date cleaning, duplicate removal and validation.
type Normalizer struct {
	logger     logger.Logger
	datePolicy DatePolicy
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDatePolicy sets how Clean handles unparseable dates.
func WithDatePolicy(p DatePolicy) Option {
	return func(n *Normalizer) {
		n.datePolicy = p
	}
}

// New creates a Normalizer that reports through log.
func New(log logger.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		logger:     log,
		datePolicy: DropRow,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Result is the outcome of Clean.
type Result struct {
	Valid             types.Table
	Invalid           types.Table
	DateErrors        []RowError
	DuplicatesRemoved int
	InputRows         int
}

// Clean runs the full cleaning flow over table: clean text, standardize
// dates, drop duplicates, then split rows by the validity mask. The input
// table is not modified.
func (n *Normalizer) Clean(table types.Table) (*Result, error) {
	res := &Result{InputRows: len(table)}
	cleaned := make(types.Table, 0, len(table))

	for i, r := range table {
		r.Text = CleanText(r.Text)

		date, err := StandardizeDate(r.Date)
		if err != nil {
			rowErr := RowError{Index: i, MessageID: r.ID, Channel: types.Deref(r.Channel), Err: err}
			if n.datePolicy == Abort {
				return nil, fmt.Errorf("clean table: %w", rowErr.Err)
			}
			n.logger.Warn("Dropping row with unparseable date",
				logger.Int("row", i),
				logger.Int64("message_id", r.ID),
				logger.String("channel", rowErr.Channel),
				logger.Error(err),
			)
			res.DateErrors = append(res.DateErrors, rowErr)
			continue
		}
		r.Date = date

		cleaned = append(cleaned, r)
	}

	deduped := n.RemoveDuplicates(cleaned)
	res.DuplicatesRemoved = len(cleaned) - len(deduped)

	for i, ok := range ValidateData(deduped) {
		if ok {
			res.Valid = append(res.Valid, deduped[i])
		} else {
			res.Invalid = append(res.Invalid, deduped[i])
		}
	}

	n.logger.Info("Cleaned record table",
		logger.Int("input", res.InputRows),
		logger.Int("valid", len(res.Valid)),
		logger.Int("invalid", len(res.Invalid)),
		logger.Int("date_errors", len(res.DateErrors)),
		logger.Int("duplicates", res.DuplicatesRemoved),
	)

	return res, nil
}
