package collector

import "errors"

// Collector errors.
var (
	ErrTimeout       = errors.New("source fetch timed out")
	ErrEmptyPayload  = errors.New("source returned no data")
	ErrFetcherPanic  = errors.New("source fetcher panicked")
	ErrNoAlternative = errors.New("alternative source unavailable")
)
