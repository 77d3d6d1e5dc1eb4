package reservation

// FetchLimit is how many rows the store must return for one keyset page:
// one extra row to detect a next page, plus the cursor row itself when
// resuming from a cursor.
func FetchLimit(f Filter) int {
	limit := NormalizePageSize(f.PageSize) + 1
	if f.HasCursor() {
		limit++
	}
	return limit
}

// Paginate derives the visible page and its cursors from rows fetched in
// keyset order starting at cursor (inclusive).
//
// If the first row is the cursor row, it proves a previous page exists and is
// dropped from the page. A row beyond pageSize proves a next page exists.
// Cursors that have no page behind them are NoCursor.
func Paginate(rows []*Reservation, cursor int64, pageSize int) (Pager, []*Reservation) {
	pageSize = NormalizePageSize(pageSize)
	pager := Pager{Prev: NoCursor, Next: NoCursor}

	hasPrev := len(rows) > 0 && rows[0].ID == cursor
	start := 0
	if hasPrev {
		start = 1
	}

	hasNext := len(rows)-start > pageSize
	end := len(rows)
	if hasNext {
		end = start + pageSize
	}

	if hasPrev {
		pager.Prev = rows[start-1].ID
	}
	if hasNext {
		pager.Next = rows[end-1].ID
	}

	return pager, rows[start:end]
}
