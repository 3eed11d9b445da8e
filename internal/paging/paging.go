// Package paging iterates cursor-paginated remote listings.
package paging

import (
	"context"
	"iter"

	"yt-notifier/internal/apperr"
)

// Listing is one page of a remote listing. An empty NextCursor ends the
// listing.
type Listing[T any] struct {
	Items      []T
	NextCursor string
}

// PageFunc fetches the page that starts at cursor. The first page is
// requested with an empty cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (Listing[T], error)

// FetchAll lazily walks every page returned by call. Pages are requested only
// as the caller consumes items, and all items of a page are yielded before
// the next page is requested. A failed call is yielded once as a
// *apperr.RemoteFetchError and ends the sequence; nothing is retried.
//
// Each range over the returned sequence starts again from the first page.
func FetchAll[T any](ctx context.Context, op string, call PageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		cursor := ""
		for {
			page, err := call(ctx, cursor)
			if err != nil {
				var zero T
				yield(zero, &apperr.RemoteFetchError{Op: op, Err: err})
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			if page.NextCursor == "" {
				return
			}
			cursor = page.NextCursor
		}
	}
}
