package engine

import "errors"

// ErrClosed is returned when work is posted to a closed engine.
var ErrClosed = errors.New("engine closed")
