package validation

import "errors"

// ErrInvalidPattern is reported when a format rule carries a pattern that
// does not compile.
var ErrInvalidPattern = errors.New("invalid format pattern")
