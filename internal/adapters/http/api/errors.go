package api

import "errors"

// ErrBadRequest marks a request the API could not decode or validate.
var ErrBadRequest = errors.New("bad request")
