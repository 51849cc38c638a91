package kkt

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/shtrihfr/kkt/port"
)

// defaultMaxAttempt bounds both the request send loop and the busy-retry
// loop when Config.MaxAttempt is not set. The ENQ-handshake loop has its
// own bound, handshakeGuard.
const defaultMaxAttempt = 6

// defaultMinTimeout is the base guard interval between protocol steps:
// the device needs a short settle time after each byte it emits before
// it is ready to receive the next one.
const defaultMinTimeout = 50 * time.Millisecond

// defaultReadTimeout is the per-byte read deadline armed on the serial
// port when Config.ReadTimeout is zero.
const defaultReadTimeout = 700 * time.Millisecond

// link is the subset of *port.Port the transport depends on. Defined as
// an interface so tests can substitute an in-memory fake device without
// a real serial cable.
type link interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Flush() error
	Close() error
	IsOpen() bool
}

// Config describes how to reach a KKT device and authenticate against
// it. A zero Config is not usable: Port must name a device node.
type Config struct {
	// Port is the serial device path, e.g. "/dev/ttyUSB0".
	Port string
	// Baud is the link speed. Required.
	Baud port.Baud

	// ReadTimeout is the per-byte read deadline. Defaults to 700ms.
	ReadTimeout time.Duration
	// MinTimeout is the base guard interval between protocol steps.
	// Defaults to 50ms.
	MinTimeout time.Duration
	// MaxAttempt bounds the request send loop and the busy-retry loop.
	// Defaults to 6.
	MaxAttempt int

	// Password is the operator password sent with most commands.
	Password Password
	// AdminPassword is the administrator password sent with the X and Z
	// report commands.
	AdminPassword Password

	// Logger receives debug and info traces of the protocol exchange.
	// Defaults to a package-level logger writing to stderr at Info
	// level.
	Logger *log.Logger
}

// Session is a single-owner handle to one KKT device. It is not safe for
// concurrent use: the protocol itself allows at most one command
// in-flight at a time, so a Session does not attempt any internal
// locking and instead documents single-owner use, matching the
// teacher's Port.
type Session struct {
	cfg Config

	conn   link
	dial   func() (link, error)
	logger *log.Logger

	maxAttempt int
	minTimeout time.Duration

	// per-exchange transient state, reset at the start of each Ask.
	quick          bool
	request        []byte
	pendingCommand byte
}

// NewSession constructs a Session from cfg, applying defaults for any
// zero-valued tuning field. The serial port is not opened until the
// first Ask (or an explicit Connect).
func NewSession(cfg Config) *Session {
	s := &Session{cfg: cfg}

	s.logger = cfg.Logger
	if s.logger == nil {
		s.logger = defaultLogger
	}

	s.maxAttempt = cfg.MaxAttempt
	if s.maxAttempt <= 0 {
		s.maxAttempt = defaultMaxAttempt
	}

	s.minTimeout = cfg.MinTimeout
	if s.minTimeout <= 0 {
		s.minTimeout = defaultMinTimeout
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	s.dial = func() (link, error) {
		return port.Open(cfg.Port, cfg.Baud, readTimeout)
	}

	return s
}

// Connect opens the serial port if it is not already open. It does not
// probe the device: the ENQ handshake inside the next Ask is the only
// operation that actually tests whether a KKT is listening on the other
// end.
func (s *Session) Connect() error {
	if s.conn != nil && s.conn.IsOpen() {
		return nil
	}
	conn, err := s.dial()
	if err != nil {
		return wrapConnErr("open serial port", err)
	}
	s.conn = conn
	return nil
}

// IsConnected reports whether the serial port is currently open.
func (s *Session) IsConnected() bool {
	return s.conn != nil && s.conn.IsOpen()
}

// Close releases the serial port, if open. Safe to call when already
// closed.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	return conn.Close()
}
