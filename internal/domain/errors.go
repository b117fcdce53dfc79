package domain

import "errors"

// ErrPostalCodeNotFound is returned by address lookups when the service answers
// with a well-formed "no match" response.
var ErrPostalCodeNotFound = errors.New("postal code not found")
