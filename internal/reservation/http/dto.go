package http

import (
	"time"

	"github.com/nekogravitycat/reservation-service/internal/pkg/timespan"
	"github.com/nekogravitycat/reservation-service/internal/reservation"
)

type ReservationResponse struct {
	ID         int64  `json:"id"`
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Note       string `json:"note"`
	Status     string `json:"status"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		ResourceID: r.ResourceID,
		Start:      timespan.FormatWire(r.Range.Start),
		End:        timespan.FormatWire(r.Range.End),
		Note:       r.Note,
		Status:     r.Status.String(),
	}
}

// CreateReservationRequest carries no binding rules: the manager owns
// validation so that error ordering and messages stay in one place.
type CreateReservationRequest struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Note       string `json:"note"`
}

// ToReservation converts the body into a pending reservation. A missing
// bound is left zero for the validator to reject.
func (r *CreateReservationRequest) ToReservation() (*reservation.Reservation, error) {
	start, err := parseOptionalTime(r.Start)
	if err != nil {
		return nil, reservation.ErrInvalidTime
	}
	end, err := parseOptionalTime(r.End)
	if err != nil {
		return nil, reservation.ErrInvalidTime
	}
	return reservation.NewPending(r.UserID, r.ResourceID, start, end, r.Note), nil
}

type UpdateNoteRequest struct {
	Note *string `json:"note" binding:"required"`
}

// QueryReservationsRequest defines query parameters for the range query.
type QueryReservationsRequest struct {
	UserID     string `form:"user_id"`
	ResourceID string `form:"resource_id"`
	Status     string `form:"status" binding:"omitempty,oneof=unknown pending confirmed blocked"`
	Start      string `form:"start"`
	End        string `form:"end"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	Desc       bool   `form:"desc"`
}

func (r *QueryReservationsRequest) ToQuery() (reservation.Query, error) {
	start, err := parseOptionalTime(r.Start)
	if err != nil {
		return reservation.Query{}, reservation.ErrInvalidTime
	}
	end, err := parseOptionalTime(r.End)
	if err != nil {
		return reservation.Query{}, reservation.ErrInvalidTime
	}
	return reservation.Query{
		UserID:     r.UserID,
		ResourceID: r.ResourceID,
		Status:     reservation.ParseStatus(r.Status),
		Range:      timespan.New(start, end),
		Page:       r.Page,
		PageSize:   r.PageSize,
		Desc:       r.Desc,
	}, nil
}

// FilterReservationsRequest defines query parameters for keyset listing.
type FilterReservationsRequest struct {
	UserID     string `form:"user_id"`
	ResourceID string `form:"resource_id"`
	Status     string `form:"status" binding:"omitempty,oneof=unknown pending confirmed blocked"`
	Cursor     int64  `form:"cursor"`
	PageSize   int    `form:"page_size"`
	Desc       bool   `form:"desc"`
}

func (r *FilterReservationsRequest) ToFilter() reservation.Filter {
	return reservation.Filter{
		UserID:     r.UserID,
		ResourceID: r.ResourceID,
		Status:     reservation.ParseStatus(r.Status),
		Cursor:     r.Cursor,
		Desc:       r.Desc,
		PageSize:   r.PageSize,
	}
}

type ConflictWindowResponse struct {
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

type ConflictResponse struct {
	New ConflictWindowResponse `json:"new"`
	Old ConflictWindowResponse `json:"old"`
}

// ConflictErrorResponse carries either the parsed conflict or the raw
// diagnostic text, never both.
type ConflictErrorResponse struct {
	Error    string            `json:"error"`
	Conflict *ConflictResponse `json:"conflict,omitempty"`
	Detail   string            `json:"detail,omitempty"`
}

func NewConflictErrorResponse(info reservation.ConflictInfo) ConflictErrorResponse {
	resp := ConflictErrorResponse{Error: reservation.ErrConflictReservation.Message}
	if c := info.Conflict; c != nil {
		resp.Conflict = &ConflictResponse{
			New: newConflictWindow(c.New),
			Old: newConflictWindow(c.Old),
		}
		return resp
	}
	resp.Detail = info.Raw
	return resp
}

func newConflictWindow(w reservation.Window) ConflictWindowResponse {
	return ConflictWindowResponse{
		ResourceID: w.ResourceID,
		Start:      timespan.FormatWire(w.Start),
		End:        timespan.FormatWire(w.End),
	}
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return timespan.ParseWire(s)
}
