// Package source defines the capability contract every discovery source
// implements and the registry the aggregator holds them in.
package source

import (
	"context"
	"errors"
	"time"

	"trend-hunter/internal/domain"
)

// Package errors.
var (
	// ErrUnknownSource is returned when an operation names a source id
	// that is not registered.
	ErrUnknownSource = errors.New("unknown source id")

	// ErrDuplicateSource is returned when registering an id twice.
	ErrDuplicateSource = errors.New("source id already registered")

	// ErrMalformedRecord is returned by Transform when a raw record cannot
	// be normalized. The aggregator drops the record, not the batch.
	ErrMalformedRecord = errors.New("malformed raw record")
)

// RawRecord is a source-native payload. Its concrete shape is private to the
// producing source; it never crosses the Source boundary except as the
// argument to that same source's Transform.
type RawRecord any

// Source produces raw records and normalizes them into discoveries.
//
// Hunt performs whatever I/O is required and returns zero or more native
// records. Finding no data is not an error; only genuine transport or
// protocol failure is.
//
// Transform is a pure mapping from the native shape to a Discovery. It
// computes category, tags, relevance factors, and the fingerprint
// deterministically, so calling it twice on the same record yields
// identical output.
type Source interface {
	ID() string
	Hunt(ctx context.Context) ([]RawRecord, error)
	Transform(raw RawRecord) (*domain.Discovery, error)
}

// DefaultCadence is used when a source is registered without an explicit one.
const DefaultCadence = 15 * time.Minute
