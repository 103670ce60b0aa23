// Package source produces candidate posts from public pages and feeds.
package source

import (
	"context"
	"fmt"

	"github.com/ppiankov/postrelay/internal/post"
)

// Source fetches the current set of candidate posts.
type Source interface {
	// Name identifies the source in logs and run summaries.
	Name() string

	// Fetch returns the posts currently visible on the source, in display
	// order. A reachable page without recognizable posts yields an empty
	// slice and a nil error.
	Fetch(ctx context.Context) ([]post.Post, error)
}

// FetchError reports that a source could not be retrieved. Status is zero
// when no HTTP response was received.
type FetchError struct {
	Source string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	case e.Body != "":
		return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.Status, e.Body)
	default:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
