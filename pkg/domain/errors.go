package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a session cannot be created from the given
// graph, algorithm or start node. It is not retryable without correcting the input.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidState is returned when a step is requested that the session cannot serve.
var ErrInvalidState = errors.New("invalid state")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = fmt.Errorf("%w: session not found", ErrInvalidState)

// ErrSessionEnded is returned when stepping a traversal that already emitted its end event.
var ErrSessionEnded = fmt.Errorf("%w: traversal already ended", ErrInvalidState)

// ErrStepInFlight is returned when a step is requested while the previous one is outstanding.
var ErrStepInFlight = fmt.Errorf("%w: step already in flight", ErrInvalidState)

// ErrTransport is returned when a channel drops or cannot be used.
var ErrTransport = errors.New("transport failure")

// ErrMalformedEvent is returned when an event frame or payload cannot be decoded.
var ErrMalformedEvent = fmt.Errorf("%w: malformed event", ErrTransport)
