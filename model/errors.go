package model

import "errors"

// ErrUnavailable indicates the chat completion backend could not be reached
// or returned an error status. Turns failing with it leave no partial
// transcript behind.
var ErrUnavailable = errors.New("model backend unavailable")
