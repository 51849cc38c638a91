package port

import "errors"

// ErrClosed is returned by Read, Write, Flush and Drain on a Port after
// Close has been called.
var ErrClosed = errors.New("port: already closed")
