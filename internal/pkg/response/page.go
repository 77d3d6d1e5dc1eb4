package response

// Pager carries keyset cursors. -1 means there is no page in that direction.
type Pager struct {
	Prev int64 `json:"prev"`
	Next int64 `json:"next"`
}

// KeysetResponse is the standard wrapper for keyset-paginated list endpoints.
type KeysetResponse[T any] struct {
	Pager Pager `json:"pager"`
	Items []T   `json:"items"`
}

// NewKeysetResponse is a helper to quickly create a response
func NewKeysetResponse[T any](items []T, prev, next int64) KeysetResponse[T] {
	// Handle empty slice to avoid JSON outputting null
	if items == nil {
		items = make([]T, 0)
	}

	return KeysetResponse[T]{
		Pager: Pager{Prev: prev, Next: next},
		Items: items,
	}
}
