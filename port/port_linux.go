// Package port abstracts an 8N1 RS-232 serial link for the KKT transport.
//
// Adapted from github.com/daedaluz/goserial's Linux termios/ioctl port: the
// fixed-baud, no-timeout port there becomes a runtime-selectable-baud port
// with a mandatory per-byte read deadline, since the fiscal protocol's
// liveness test (the ENQ probe) depends on reads that give up promptly.
package port

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/daedaluz/fdev/poll"
	ioctl "github.com/daedaluz/goioctl"
)

// Baud is one of the seven rates the fiscal protocol permits.
type Baud int

const (
	Baud2400   Baud = 2400
	Baud4800   Baud = 4800
	Baud9600   Baud = 9600
	Baud19200  Baud = 19200
	Baud38400  Baud = 38400
	Baud57600  Baud = 57600
	Baud115200 Baud = 115200
)

func (b Baud) cflag() (CFlag, error) {
	switch b {
	case Baud2400:
		return B2400, nil
	case Baud4800:
		return B4800, nil
	case Baud9600:
		return B9600, nil
	case Baud19200:
		return B19200, nil
	case Baud38400:
		return B38400, nil
	case Baud57600:
		return B57600, nil
	case Baud115200:
		return B115200, nil
	}
	return 0, fmt.Errorf("port: unsupported baud rate %d", b)
}

// Port is a single-owner handle to an open serial device. It is not safe
// for concurrent use: the caller (the KKT transport) serializes access.
type Port struct {
	fd          int
	readTimeout time.Duration
}

// Open opens name at the given baud in 8N1 raw mode, no parity, one stop
// bit, no hardware flow control, and arms readTimeout as the per-byte read
// deadline used by Read.
func Open(name string, baud Baud, readTimeout time.Duration) (*Port, error) {
	cflag, err := baud.cflag()
	if err != nil {
		return nil, err
	}
	fd, err := syscall.Open(name, syscall.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("port: open %s: %w", name, err)
	}
	p := &Port{fd: fd, readTimeout: readTimeout}
	attrs, err := p.getAttr()
	if err != nil {
		p.Close()
		return nil, err
	}
	// crtscts is the termios RTS/CTS hardware flow control bit.
	const crtscts = CFlag(020000000000)
	attrs.MakeRaw()
	attrs.SetSpeed(cflag)
	attrs.Cflag |= CREAD | CLOCAL
	attrs.Cflag &= ^(CSTOPB | crtscts)
	if err := p.setAttr(TCSANOW, attrs); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Port) getAttr() (*Termios, error) {
	attrs := &Termios{}
	if err := ioctl.Ioctl(uintptr(p.fd), tcgets, uintptr(unsafe.Pointer(attrs))); err != nil {
		return nil, fmt.Errorf("port: get termios: %w", err)
	}
	return attrs, nil
}

func (p *Port) setAttr(when Action, attrs *Termios) error {
	if err := ioctl.Ioctl(uintptr(p.fd), tcsets+uintptr(when), uintptr(unsafe.Pointer(attrs))); err != nil {
		return fmt.Errorf("port: set termios: %w", err)
	}
	return nil
}

// IsOpen reports whether the underlying file descriptor is still valid.
func (p *Port) IsOpen() bool {
	return p != nil && p.fd >= 0
}

// Close releases the underlying file descriptor. Safe to call more than
// once; subsequent calls are no-ops.
func (p *Port) Close() error {
	if p == nil || p.fd < 0 {
		return nil
	}
	fd := p.fd
	p.fd = -1
	return syscall.Close(fd)
}

// Write writes data to the port, blocking until the kernel accepts it.
func (p *Port) Write(data []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	n, err := syscall.Write(p.fd, data)
	if err != nil {
		return n, fmt.Errorf("port: write: %w", err)
	}
	return n, nil
}

// Read waits up to the port's configured per-byte read timeout for input,
// then reads whatever is available (up to len(data)). A timeout with no
// data ready is reported as (0, nil), never as an error: the caller (the
// frame transport) treats an empty read as "nothing arrived in time",
// distinct from a genuine I/O failure.
func (p *Port) Read(data []byte) (int, error) {
	if !p.IsOpen() {
		return 0, ErrClosed
	}
	if err := poll.WaitInput(p.fd, p.readTimeout); err != nil {
		if err == poll.ErrTimeout {
			return 0, nil
		}
		return 0, fmt.Errorf("port: wait for input: %w", err)
	}
	n, err := syscall.Read(p.fd, data)
	if err != nil {
		return n, fmt.Errorf("port: read: %w", err)
	}
	return n, nil
}

// SetReadTimeout updates the per-byte read deadline used by Read.
func (p *Port) SetReadTimeout(d time.Duration) {
	p.readTimeout = d
}

// Flush discards data written to the port but not yet transmitted, and
// data received but not yet read.
func (p *Port) Flush() error {
	if !p.IsOpen() {
		return ErrClosed
	}
	if err := ioctl.Ioctl(uintptr(p.fd), tcflsh, uintptr(TCIOFLUSH)); err != nil {
		return fmt.Errorf("port: flush: %w", err)
	}
	return nil
}

// Drain waits until all output written to the port has been transmitted.
func (p *Port) Drain() error {
	if !p.IsOpen() {
		return ErrClosed
	}
	if err := ioctl.Ioctl(uintptr(p.fd), tcsbrk, 1); err != nil {
		return fmt.Errorf("port: drain: %w", err)
	}
	return nil
}
