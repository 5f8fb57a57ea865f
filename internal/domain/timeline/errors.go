package timeline

import "errors"

// Sentinel errors for time mapping.
var (
	// ErrConfiguration reports a time mapping that cannot produce any anchor.
	ErrConfiguration = errors.New("time mapping configuration error")
)
