package scraper

import (
	"context"
	"errors"
	"time"
)

// Driver errors.
var (
	ErrNavigation      = errors.New("navigation failed")
	ErrElementNotFound = errors.New("element not found")
)

// Handle is an opaque reference to a located page element. Only the
// driver that produced it can interpret it.
type Handle any

// PageDriver is the browser capability the extraction pipeline runs
// against. The production implementation drives Chrome; tests substitute
// an in-memory fake. All methods are suspension points.
type PageDriver interface {
	// Navigate loads the URL in the current page. A non-nil error means
	// the target was unreachable or timed out.
	Navigate(ctx context.Context, url string) error

	// WaitForSelector blocks up to timeout for the selector to resolve.
	// Returns ErrElementNotFound (possibly wrapped) when it does not.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Handle, error)

	// GetText returns the element's rendered text content.
	GetText(ctx context.Context, h Handle) (string, error)

	// GetAttribute returns the named attribute, or "" when absent.
	GetAttribute(ctx context.Context, h Handle, name string) (string, error)

	// Click dispatches a click on the element.
	Click(ctx context.Context, h Handle) error

	// QueryAll returns every element currently matching the selector.
	// An empty result is not an error.
	QueryAll(ctx context.Context, selector string) ([]Handle, error)

	// CurrentURL returns the page's address after any redirects.
	CurrentURL(ctx context.Context) (string, error)

	// Screenshot captures the current page to the given file path.
	Screenshot(ctx context.Context, path string) error
}
