package reservation

import "github.com/nekogravitycat/reservation-service/internal/pkg/timespan"

// Validate checks the caller-supplied fields. It has no side effects.
func (r *Reservation) Validate() error {
	if r.UserID == "" {
		return ErrInvalidUserID
	}
	if r.ResourceID == "" {
		return ErrInvalidResourceID
	}
	// Validate at storage precision: bounds that differ only below it would
	// be stored as an empty range.
	rng := timespan.New(r.Range.Start, r.Range.End)
	if err := rng.Validate(); err != nil {
		return ErrInvalidTime
	}
	return nil
}

// Validate checks the query window.
func (q *Query) Validate() error {
	rng := timespan.New(q.Range.Start, q.Range.End)
	if err := rng.Validate(); err != nil {
		return ErrInvalidTime
	}
	return nil
}

func validateID(id int64) error {
	if id <= 0 {
		return ErrInvalidReservationID
	}
	return nil
}
