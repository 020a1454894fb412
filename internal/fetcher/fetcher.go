package fetcher

import (
	"context"
	"time"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Session is an open, interactive search page.
type Session interface {
	// Advance performs one pagination action. It returns
	// types.ErrEndOfResults when the control is absent or hidden and
	// an error wrapping types.ErrControlLookup when the lookup timed out.
	Advance(ctx context.Context) error

	// HTML returns the current rendered document.
	HTML() (string, error)

	// Close releases the page.
	Close() error
}

// SessionOptions describes the search page to open.
type SessionOptions struct {
	URL string

	// ShowMoreSelector locates the pagination control. Empty means the
	// page has no pagination and Advance always reports end of results.
	ShowMoreSelector string

	// InitialWait is slept after navigation, before the first Advance.
	InitialWait time.Duration
}

// SessionOpener opens interactive search sessions.
type SessionOpener interface {
	OpenSession(ctx context.Context, opts SessionOptions) (Session, error)
}
