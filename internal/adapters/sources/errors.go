// Package sources implements provider adapters behind source.Fetcher.
package sources

import (
	"errors"
	"fmt"
)

// ErrUpstream is wrapped by every failure reported by a provider.
var ErrUpstream = errors.New("upstream provider error")

// UpstreamError carries the provider's HTTP status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Unwrap lets errors.Is match ErrUpstream.
func (e *UpstreamError) Unwrap() error { return ErrUpstream }
