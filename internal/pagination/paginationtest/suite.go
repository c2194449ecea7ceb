// Package paginationtest drives a store's cursor-paginated list operation
// through shared checks: newest-first ordering, walking pages in both
// directions, cursor round trips, and page boundary shapes.
package paginationtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Page is one page of a list response.
type Page[T any] struct {
	Items []T
	Next  string
	Prev  string
}

// Harness binds one list operation to the shared checks.
//
// Seed resets state and persists n items, returning the ones the List filter
// should surface in insertion order (oldest first) — seed decoy rows the
// filter must hide without returning them. List runs the paginated query,
// newest first. ID distinguishes items.
//
//	harness := paginationtest.Harness[*models.Event]{
//	    Seed: func(t *testing.T, n int) []*models.Event { ... },
//	    List: func(ctx context.Context, limit int, next, prev string) (paginationtest.Page[*models.Event], error) {
//	        res, err := store.ListEvents(ctx, ...)
//	        ...
//	    },
//	    ID: func(e *models.Event) string { return e.ID },
//	}
//	harness.Run(t)
type Harness[T any] struct {
	Seed func(t *testing.T, n int) []T
	List func(ctx context.Context, limit int, next, prev string) (Page[T], error)
	ID   func(T) string
}

// pageSize is small relative to the seed counts so every check crosses page
// boundaries.
const pageSize = 3

// Run executes the shared checks.
func (h Harness[T]) Run(t *testing.T) {
	t.Helper()

	t.Run("NewestFirst", h.checkNewestFirst)
	t.Run("ForwardWalk", h.checkForwardWalk)
	t.Run("BackwardWalk", h.checkBackwardWalk)
	t.Run("CursorRoundTrip", h.checkCursorRoundTrip)
	t.Run("PageBoundaries", h.checkPageBoundaries)
}

func (h Harness[T]) checkNewestFirst(t *testing.T) {
	ctx := context.Background()
	seeded := h.Seed(t, 5)
	require.NotEmpty(t, seeded)

	page, err := h.List(ctx, 10, "", "")
	require.NoError(t, err)
	require.Len(t, page.Items, len(seeded))
	for i, item := range page.Items {
		assert.Equal(t, h.ID(seeded[len(seeded)-1-i]), h.ID(item), "position %d", i)
	}
	assert.Empty(t, page.Next, "single page fits everything")
	assert.Empty(t, page.Prev, "first page carries no prev cursor")
}

func (h Harness[T]) checkForwardWalk(t *testing.T) {
	ctx := context.Background()
	seeded := h.Seed(t, 10)

	seen := make(map[string]bool)
	total := 0

	page, err := h.List(ctx, pageSize, "", "")
	require.NoError(t, err)
	assert.Empty(t, page.Prev, "first page carries no prev cursor")
	for {
		for _, item := range page.Items {
			id := h.ID(item)
			require.False(t, seen[id], "item %s served twice", id)
			seen[id] = true
		}
		total += len(page.Items)
		if page.Next == "" {
			break
		}
		page, err = h.List(ctx, pageSize, page.Next, "")
		require.NoError(t, err)
	}

	assert.Equal(t, len(seeded), total, "forward walk must surface every item exactly once")
}

func (h Harness[T]) checkBackwardWalk(t *testing.T) {
	ctx := context.Background()
	seeded := h.Seed(t, 9)
	require.GreaterOrEqual(t, len(seeded), 2*pageSize, "need at least two full pages")

	var forward []Page[T]
	page, err := h.List(ctx, pageSize, "", "")
	require.NoError(t, err)
	forward = append(forward, page)
	for page.Next != "" {
		page, err = h.List(ctx, pageSize, page.Next, "")
		require.NoError(t, err)
		forward = append(forward, page)
	}
	require.GreaterOrEqual(t, len(forward), 2)

	// Walking prev cursors from the last page must replay the forward pages
	// in reverse.
	back := forward[len(forward)-1]
	for i := len(forward) - 2; i >= 0 && back.Prev != ""; i-- {
		back, err = h.List(ctx, pageSize, "", back.Prev)
		require.NoError(t, err)
		want := forward[i]
		require.Len(t, back.Items, len(want.Items), "page %d size", i)
		for j := range back.Items {
			assert.Equal(t, h.ID(want.Items[j]), h.ID(back.Items[j]), "page %d item %d", i, j)
		}
	}
	assert.Empty(t, back.Prev, "walking back past the first page")
}

func (h Harness[T]) checkCursorRoundTrip(t *testing.T) {
	ctx := context.Background()
	h.Seed(t, 9)

	page1, err := h.List(ctx, pageSize, "", "")
	require.NoError(t, err)
	require.NotEmpty(t, page1.Next)

	page2, err := h.List(ctx, pageSize, page1.Next, "")
	require.NoError(t, err)
	require.NotEmpty(t, page2.Prev)

	again, err := h.List(ctx, pageSize, "", page2.Prev)
	require.NoError(t, err)
	require.Len(t, again.Items, len(page1.Items))
	for i := range again.Items {
		assert.Equal(t, h.ID(page1.Items[i]), h.ID(again.Items[i]), "item %d", i)
	}
}

func (h Harness[T]) checkPageBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{"empty", 0},
		{"single item", 1},
		{"partial last page", 7},
		{"exact page fit", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			seeded := h.Seed(t, tt.count)

			page, err := h.List(ctx, pageSize, "", "")
			require.NoError(t, err)
			pages := 1
			for page.Next != "" {
				page, err = h.List(ctx, pageSize, page.Next, "")
				require.NoError(t, err)
				pages++
			}

			wantLast := len(seeded) % pageSize
			if wantLast == 0 && len(seeded) > 0 {
				wantLast = pageSize
			}
			assert.Len(t, page.Items, wantLast, "final page size")
			assert.Empty(t, page.Next, "final page carries no next cursor")
			if len(seeded) > pageSize {
				assert.NotEmpty(t, page.Prev, "final page links back when earlier pages exist")
			}

			wantPages := (len(seeded) + pageSize - 1) / pageSize
			if wantPages == 0 {
				wantPages = 1
			}
			assert.Equal(t, wantPages, pages, "page count")
		})
	}
}
