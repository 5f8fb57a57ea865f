package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrServiceNotStarted = errors.New("service not started")
	ErrQueueFull         = errors.New("import queue full")
	ErrDuplicateImport   = errors.New("duplicate import")
	ErrInvalidImport     = errors.New("invalid import request")
	ErrJobNotFound       = errors.New("import job not found")
	ErrUnknownProfile    = errors.New("unknown import profile")
)
