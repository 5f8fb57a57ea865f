package repository

import "errors"

// Sentinel errors returned by the store.
var (
	ErrNotFound  = errors.New("record not found")
	ErrEmptyName = errors.New("name must not be empty")
)
