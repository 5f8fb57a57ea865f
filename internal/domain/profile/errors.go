package profile

import "errors"

// Sentinel errors for profiles.
var (
	ErrInvalidProfile = errors.New("invalid import profile")
	ErrLoadProfile    = errors.New("load import profile failed")
)
