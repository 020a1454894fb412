package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidURL = errors.New("invalid URL")

	// ErrBodyTooLarge means the response body exceeded fetcher.max_body_size.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrNotArticle means the page lacks the title or body container.
	ErrNotArticle = errors.New("page is not an article")

	// ErrInvalidRecord is returned when a record would violate the row schema.
	ErrInvalidRecord = errors.New("invalid article record")

	// ErrEndOfResults means the "load more" control is absent or hidden.
	ErrEndOfResults = errors.New("no more results")

	// ErrControlLookup means the query for the "load more" control ran out
	// of time. It is not proof that results are exhausted.
	ErrControlLookup = errors.New("pagination control lookup timed out")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError wraps errors that occur while pulling fields out of a page.
type ExtractError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ExtractError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("extract error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("extract error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
