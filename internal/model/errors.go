package model

import "errors"

// ErrInvalidInput is returned by services when a request fails validation,
// for example a non-positive ID or a blank required field.
var ErrInvalidInput = errors.New("invalid input")
