package source

import (
	"errors"
	"fmt"

	"github.com/okian/etaflow/internal/domain/model"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrConfiguration = errors.New("source configuration error")
	ErrNoFetcher     = errors.New("no fetcher registered")
)

// ConfigurationError reports an unregistered or malformed source type.
type ConfigurationError struct {
	Type   model.SourceType
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source %q: %s", e.Type, e.Reason)
}

// Unwrap lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }
