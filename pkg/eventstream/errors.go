package eventstream

import "errors"

var (
	// ErrNilCheckEvent indicates a nil event payload was provided to a publisher.
	ErrNilCheckEvent = errors.New("nil check event")

	// ErrQueueFull is returned when an async publisher drops an event.
	ErrQueueFull = errors.New("event queue full, event dropped")

	// ErrPublisherClosed is returned when publishing after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)
