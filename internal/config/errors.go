package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps file and environment loading failures.
	ErrLoadConfig = errors.New("load config failed")
)
