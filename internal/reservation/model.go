package reservation

import (
	"math"
	"net/http"
	"time"

	"github.com/nekogravitycat/reservation-service/internal/pkg/apperror"
	"github.com/nekogravitycat/reservation-service/internal/pkg/timespan"
)

var (
	ErrInvalidTime          = apperror.New(http.StatusBadRequest, "invalid start or end time for reservation")
	ErrInvalidUserID        = apperror.New(http.StatusBadRequest, "invalid user id")
	ErrInvalidResourceID    = apperror.New(http.StatusBadRequest, "invalid resource id")
	ErrInvalidReservationID = apperror.New(http.StatusBadRequest, "invalid reservation id")
	ErrNotFound             = apperror.New(http.StatusNotFound, "reservation not found")
	ErrConflictReservation  = apperror.New(http.StatusConflict, "conflict reservation")
	ErrDatabase             = apperror.New(http.StatusInternalServerError, "database error")
	ErrParseFailed          = apperror.New(http.StatusInternalServerError, "failed to parse conflict detail")
	ErrUnknown              = apperror.New(http.StatusInternalServerError, "unknown error")
)

// Status mirrors the wire enum. The numeric values are the wire codes.
type Status int32

const (
	StatusUnknown   Status = 0
	StatusPending   Status = 1
	StatusConfirmed Status = 2
	StatusBlocked   Status = 3
)

// String returns the storage label of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ParseStatus maps a storage or wire label back to a Status.
// Unrecognized labels decode to StatusUnknown.
func ParseStatus(label string) Status {
	switch label {
	case "pending":
		return StatusPending
	case "confirmed":
		return StatusConfirmed
	case "blocked":
		return StatusBlocked
	default:
		return StatusUnknown
	}
}

// Reservation is a time-bounded hold of one resource by one user.
// ID is zero until the store assigns one.
type Reservation struct {
	ID         int64
	UserID     string
	ResourceID string
	Range      timespan.Range
	Note       string
	Status     Status
}

// NewPending builds a reservation in the only status a caller may create.
func NewPending(userID, resourceID string, start, end time.Time, note string) *Reservation {
	return &Reservation{
		UserID:     userID,
		ResourceID: resourceID,
		Range:      timespan.New(start, end),
		Note:       note,
		Status:     StatusPending,
	}
}

// Query selects reservations overlapping Range, paginated by offset.
// Empty UserID / ResourceID and StatusUnknown act as wildcards.
type Query struct {
	UserID     string
	ResourceID string
	Status     Status
	Range      timespan.Range
	Page       int
	PageSize   int
	Desc       bool
}

// MaxPage keeps (page-1)*page_size within a 32-bit int. Any page past it is
// already beyond every row, so clamping does not change the result.
const MaxPage = math.MaxInt32/MaxPageSize + 1

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	q.PageSize = NormalizePageSize(q.PageSize)
	q.Range = timespan.New(q.Range.Start, q.Range.End)
	return q
}

// offset is the number of rows skipped before the requested page.
func (q Query) offset() uint64 {
	return uint64(q.Page-1) * uint64(q.PageSize)
}

// Filter selects reservations by keyset. Cursor <= 0 starts from the
// beginning of the sequence in the requested direction.
type Filter struct {
	UserID     string
	ResourceID string
	Status     Status
	Cursor     int64
	Desc       bool
	PageSize   int
}

// NoCursor marks the absence of a previous or next page.
const NoCursor int64 = -1

// Pager holds the cursors around a keyset page.
type Pager struct {
	Prev int64
	Next int64
}

const (
	DefaultPageSize = 10
	MinPageSize     = 10
	MaxPageSize     = 100
)

// NormalizePageSize resets sizes outside [MinPageSize, MaxPageSize] to DefaultPageSize.
func NormalizePageSize(size int) int {
	if size < MinPageSize || size > MaxPageSize {
		return DefaultPageSize
	}
	return size
}

// HasCursor reports whether the filter resumes from a previously seen row.
func (f Filter) HasCursor() bool {
	return f.Cursor > 0
}

// QueryResult is one element of a streamed query.
type QueryResult struct {
	Reservation *Reservation
	Err         error
}
