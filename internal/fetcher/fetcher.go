// Package fetcher resolves social-platform post URLs into a single text
// blob for scanning and extraction.
package fetcher

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the post no longer exists or is not visible.
	ErrNotFound = errors.New("post not found")
	// ErrRateLimited indicates the resolution API throttled the request.
	ErrRateLimited = errors.New("rate limited")
)

// Fetcher resolves a post URL into its assembled text content.
type Fetcher interface {
	FetchPost(ctx context.Context, url string) (string, error)
}
