// Package timespan converts between wire timestamps, UTC instants and
// half-open [start, end) ranges stored as PostgreSQL tstzrange values.
package timespan

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ErrInvalidRange is returned when a range bound is missing or start is not before end.
var ErrInvalidRange = errors.New("start must be before end")

// Range is a half-open interval [Start, End) in UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Precision is the resolution PostgreSQL keeps for timestamptz.
const Precision = time.Microsecond

// New builds a Range normalized to UTC and truncated to Precision, so that a
// validated range is exactly the range that gets stored.
func New(start, end time.Time) Range {
	return Range{Start: normalize(start), End: normalize(end)}
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(Precision)
}

// Validate checks that both bounds are set and start < end.
func (r Range) Validate() error {
	return Validate(r.Start, r.End)
}

// Overlaps reports whether two half-open ranges share at least one instant.
// Back-to-back ranges (a.End == b.Start) do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Validate compares seconds first and sub-second nanos on a tie.
// Equal bounds are invalid.
func Validate(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrInvalidRange
	}
	s, e := start.Unix(), end.Unix()
	if s > e || (s == e && start.Nanosecond() >= end.Nanosecond()) {
		return ErrInvalidRange
	}
	return nil
}

// ParseWire parses an RFC 3339 wire timestamp into a UTC instant.
func ParseWire(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatWire renders a UTC instant as an RFC 3339 wire timestamp.
func FormatWire(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ToPg encodes the range as an inclusive-exclusive tstzrange.
func (r Range) ToPg() pgtype.Range[pgtype.Timestamptz] {
	return pgtype.Range[pgtype.Timestamptz]{
		Lower:     pgtype.Timestamptz{Time: r.Start.UTC(), Valid: true},
		Upper:     pgtype.Timestamptz{Time: r.End.UTC(), Valid: true},
		LowerType: pgtype.Inclusive,
		UpperType: pgtype.Exclusive,
		Valid:     true,
	}
}

// FromPg decodes a tstzrange. Unbounded or empty ranges are rejected since
// reservations always carry both bounds.
func FromPg(pr pgtype.Range[pgtype.Timestamptz]) (Range, error) {
	if !pr.Valid || pr.LowerType == pgtype.Empty {
		return Range{}, errors.New("empty or null tstzrange")
	}
	if pr.LowerType == pgtype.Unbounded || pr.UpperType == pgtype.Unbounded || !pr.Lower.Valid || !pr.Upper.Valid {
		return Range{}, errors.New("unbounded tstzrange")
	}
	return New(pr.Lower.Time, pr.Upper.Time), nil
}
