package reservation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Window is one side of an overlap reported by the exclusion constraint.
type Window struct {
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Conflict pairs the rejected attempt (New) with the existing row (Old).
type Conflict struct {
	New Window `json:"new"`
	Old Window `json:"old"`
}

// ConflictInfo is either a parsed Conflict or, when the detail text could
// not be understood, just the raw text. Raw is always populated.
type ConflictInfo struct {
	Conflict *Conflict
	Raw      string
}

// Parsed reports whether the detail text was understood.
func (i ConflictInfo) Parsed() bool {
	return i.Conflict != nil
}

// ConflictError is returned by Reserve when the requested window overlaps an
// existing reservation of the same resource. It matches ErrConflictReservation.
type ConflictError struct {
	Info ConflictInfo
}

func (e *ConflictError) Error() string {
	if c := e.Info.Conflict; c != nil {
		return fmt.Sprintf("conflict reservation: %s [%s, %s) overlaps existing [%s, %s)",
			c.New.ResourceID,
			c.New.Start.Format(time.RFC3339), c.New.End.Format(time.RFC3339),
			c.Old.Start.Format(time.RFC3339), c.Old.End.Format(time.RFC3339))
	}
	return "conflict reservation: " + e.Info.Raw
}

func (e *ConflictError) Unwrap() error {
	return ErrConflictReservation
}

// Captures "(resource_id, timespan)=(room-7, [\"...\",\"...\")" pairs, stopping
// at the first unquoted closing bracket or parenthesis.
var conflictKeyRe = regexp.MustCompile(
	`\((?P<k1>[a-zA-Z0-9_-]+)\s*,\s*(?P<k2>[a-zA-Z0-9_-]+)\)=\((?P<v1>[^,\s()]+)\s*,\s*\[(?P<v2>[^\)\]]+)`,
)

// Postgres renders timestamptz as "2022-12-26 22:00:00+00"; offsets with
// minutes come out as "+05:30". Fractional seconds are accepted by time.Parse
// without being named in the layout.
var conflictTimeLayouts = []string{
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05-07:00",
}

// ParseConflict turns the exclusion-violation detail text into a
// ConflictInfo. It never fails: unparseable input yields the raw text only.
func ParseConflict(detail string) ConflictInfo {
	c, err := parseConflict(detail)
	if err != nil {
		return ConflictInfo{Raw: detail}
	}
	return ConflictInfo{Conflict: c, Raw: detail}
}

func parseConflict(detail string) (*Conflict, error) {
	matches := conflictKeyRe.FindAllStringSubmatch(detail, -1)
	if len(matches) != 2 {
		return nil, ErrParseFailed
	}

	windows := make([]Window, 0, 2)
	for _, m := range matches {
		fields := map[string]string{
			m[conflictKeyRe.SubexpIndex("k1")]: m[conflictKeyRe.SubexpIndex("v1")],
			m[conflictKeyRe.SubexpIndex("k2")]: m[conflictKeyRe.SubexpIndex("v2")],
		}
		w, err := parseWindow(fields)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	return &Conflict{New: windows[0], Old: windows[1]}, nil
}

func parseWindow(fields map[string]string) (Window, error) {
	rid, ok := fields["resource_id"]
	if !ok || rid == "" {
		return Window{}, ErrParseFailed
	}
	span, ok := fields["timespan"]
	if !ok {
		return Window{}, ErrParseFailed
	}

	bounds := strings.SplitN(strings.ReplaceAll(span, `"`, ""), ",", 2)
	if len(bounds) != 2 {
		return Window{}, ErrParseFailed
	}

	start, err := parseConflictTime(bounds[0])
	if err != nil {
		return Window{}, err
	}
	end, err := parseConflictTime(bounds[1])
	if err != nil {
		return Window{}, err
	}

	return Window{ResourceID: rid, Start: start, End: end}, nil
}

func parseConflictTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range conflictTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTime
}
