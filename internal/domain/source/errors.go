package source

import "errors"

// ErrSourceFormat is returned when a file lacks a required sheet, column or
// root element, or cannot be decoded.
var ErrSourceFormat = errors.New("source format error")
