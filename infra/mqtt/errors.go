package mqtt

import "errors"

var (
	// ErrRequestTimeout is returned when no response arrives in time.
	ErrRequestTimeout = errors.New("mqtt request timeout")
	// ErrRemote wraps an error reported by the network in a response.
	ErrRemote = errors.New("mqtt remote error")
)
