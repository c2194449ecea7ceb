// Package pagination runs cursor-based list queries: it decodes the incoming
// cursor, computes the comparison operator and sort direction for the query,
// fetches limit+1 rows to detect further pages, and mints next/prev tokens.
package pagination

import (
	"context"
	"slices"
)

// Codec converts between items and cursor tokens.
type Codec[T any] struct {
	Encode func(T) string               // item -> cursor token
	Decode func(string) (string, error) // cursor token -> position for the query
}

// Config describes one paginated query.
type Config[T any] struct {
	Limit int
	Order string // "asc" or "desc", the caller's requested order
	Next  string // next cursor token, empty if none
	Prev  string // prev cursor token, empty if none

	Fetch func(context.Context, QueryInput) ([]T, error)
	Codec Codec[T]
}

// QueryInput carries the computed query parameters to Fetch. When paging
// backward the sort direction is flipped relative to the caller's order;
// Run restores the requested order before returning.
type QueryInput struct {
	Limit     int
	Compare   string // "<" or ">", cursor comparison operator
	SortDir   string // "asc" or "desc", query-level sort direction
	CursorPos string // decoded cursor position, empty on the first page
}

// Result is one page plus its boundary tokens.
type Result[T any] struct {
	Items []T
	Next  string // empty if no more pages ahead
	Prev  string // empty if no more pages behind (or first page)
}

// Run executes a paginated query.
func Run[T any](ctx context.Context, cfg Config[T]) (*Result[T], error) {
	// A prev cursor means we are paging backward; next (or no cursor) pages forward.
	isBackward := cfg.Prev != ""
	isFirstPage := cfg.Next == "" && cfg.Prev == ""

	var cursorPos string
	var err error
	if cfg.Next != "" {
		cursorPos, err = cfg.Codec.Decode(cfg.Next)
	} else if cfg.Prev != "" {
		cursorPos, err = cfg.Codec.Decode(cfg.Prev)
	}
	if err != nil {
		return nil, err
	}

	// Backward paging flips both the comparison and the sort, then the page
	// is reversed after the fetch so items come back in the caller's order.
	isDesc := cfg.Order == "desc"
	compare := "<"
	if isDesc != isBackward {
		compare = ">"
	}
	sortDir := cfg.Order
	if isBackward {
		sortDir = flip(cfg.Order)
	}

	// Fetch limit+1 to learn whether another page exists.
	items, err := cfg.Fetch(ctx, QueryInput{
		Limit:     cfg.Limit + 1,
		Compare:   compare,
		SortDir:   sortDir,
		CursorPos: cursorPos,
	})
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > cfg.Limit
	if hasMore {
		items = items[:cfg.Limit]
	}

	if isBackward {
		slices.Reverse(items)
	}

	var next, prev string
	if len(items) > 0 {
		firstToken := cfg.Codec.Encode(items[0])
		lastToken := cfg.Codec.Encode(items[len(items)-1])

		switch {
		case isFirstPage:
			if hasMore {
				next = lastToken
			}
		case !isBackward:
			prev = firstToken
			if hasMore {
				next = lastToken
			}
		default:
			next = lastToken
			if hasMore {
				prev = firstToken
			}
		}
	}

	return &Result[T]{Items: items, Next: next, Prev: prev}, nil
}

func flip(order string) string {
	if order == "asc" {
		return "desc"
	}
	return "asc"
}
