package kkt

import "fmt"

// ConnectionError reports a failure of the serial link itself: the port
// could not be opened, a read or write failed, or the ENQ/STX handshake
// never reached a usable state within its retry bound. Mirrors the
// teacher's unexported Error/wrapErr pattern, exported here since callers
// outside this package need to distinguish link failures from device
// errors.
type ConnectionError struct {
	msg string
	err error
}

func (e *ConnectionError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("kkt: connection: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("kkt: connection: %s", e.msg)
}

func (e *ConnectionError) Unwrap() error { return e.err }

func wrapConnErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{msg: msg, err: err}
}

func connErrf(format string, args ...interface{}) error {
	return &ConnectionError{msg: fmt.Sprintf(format, args...)}
}

// ValidationError reports a parameter that never reached the wire: a sum,
// count, discount or text field outside the range the device accepts.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return "kkt: " + e.msg }

func validationErrf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// DeviceError reports a command that reached the device and came back
// with a nonzero error byte. Source distinguishes the general device
// error table from the fiscal-storage (FN) table, since the two share
// numeric space and FN errors take precedence when both tables define a
// code.
type DeviceError struct {
	Code    byte
	Source  string
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("kkt: %s error 0x%02X: %s", e.Source, e.Code, e.Message)
}
