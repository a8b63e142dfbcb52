package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownDimension = errors.New("unknown data quality dimension")
)
