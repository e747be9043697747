package store

import "errors"

// ErrClosed is returned by adapters used after Close.
var ErrClosed = errors.New("store: adapter closed")

// ErrInjected is the default failure returned by a Memory adapter armed
// with FailWrites.
var ErrInjected = errors.New("store: injected write failure")
