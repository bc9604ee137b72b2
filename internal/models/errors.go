// Package models defines typed errors so callers can react to crawl
// conditions instead of matching error strings.
package models

import "fmt"

// RenderingRequiredError signals that the URL must be re-dispatched
// through the script-capable fetch path. It is a retry instruction,
// not a terminal failure.
type RenderingRequiredError struct {
	URL    string
	Domain string
}

func (e *RenderingRequiredError) Error() string {
	return fmt.Sprintf("enhanced rendering required for %s (domain %s)", e.URL, e.Domain)
}

// ConsentWallError signals that a consent interstitial blocked the real
// content; the caller may retry with the bypass cookies applied.
type ConsentWallError struct {
	URL string
}

func (e *ConsentWallError) Error() string {
	return fmt.Sprintf("consent wall detected on %s", e.URL)
}

// ExtractionError reports that no strategy produced usable content.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// HTTPError represents a non-success fetch status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s", e.StatusCode, e.URL)
}
