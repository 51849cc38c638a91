package kkt

import (
	"io"
	"sync"
	"time"
)

// pipeLink is a link backed by an in-memory byte pipe pair, standing in
// for port.Port in tests. It lets a test goroutine play the device side
// of the protocol without a real serial cable or a PTY: OpenPTY in the
// teacher's package needs ioctls (TIOCGPTN/TIOCSPTLCK) this driver never
// otherwise touches, so tests get a lighter harness instead.
type pipeLink struct {
	toDevice   *io.PipeWriter
	fromDevice *io.PipeReader

	readFromHost *io.PipeReader
	writeToHost  *io.PipeWriter

	mu     sync.Mutex
	closed bool
}

// newPipeLink returns the host-side link and the device-side io.Reader
// plus io.Writer the test's fake device goroutine drives.
func newPipeLink() (host *pipeLink, deviceIn io.Reader, deviceOut io.Writer) {
	hostOutR, hostOutW := io.Pipe()
	hostInR, hostInW := io.Pipe()
	host = &pipeLink{
		toDevice:     hostOutW,
		fromDevice:   hostInR,
		readFromHost: hostOutR,
		writeToHost:  hostInW,
	}
	return host, hostOutR, hostInW
}

func (p *pipeLink) Read(b []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := p.fromDevice.Read(b)
		ch <- result{n, err}
	}()
	select {
	case r := <-ch:
		if r.err == io.EOF {
			return r.n, nil
		}
		return r.n, r.err
	case <-time.After(200 * time.Millisecond):
		return 0, nil
	}
}

func (p *pipeLink) Write(b []byte) (int, error) { return p.toDevice.Write(b) }
func (p *pipeLink) Flush() error                { return nil }

func (p *pipeLink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.toDevice.Close()
	p.fromDevice.Close()
	return nil
}

func (p *pipeLink) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// testSession builds a Session wired to a fake device goroutine that
// speaks the wire protocol as play describes: play receives bytes
// written by the host and writes bytes back, returning when the
// exchange under test is done.
func testSession(play func(in io.Reader, out io.Writer)) (*Session, *pipeLink) {
	host, deviceIn, deviceOut := newPipeLink()
	go play(deviceIn, deviceOut)

	s := NewSession(Config{Port: "fake", MinTimeout: time.Millisecond, MaxAttempt: 3})
	s.dial = func() (link, error) { return host, nil }
	return s, host
}

func readByte(r io.Reader) byte {
	b := make([]byte, 1)
	io.ReadFull(r, b)
	return b[0]
}

func readN(r io.Reader, n int) []byte {
	b := make([]byte, n)
	io.ReadFull(r, b)
	return b
}

// buildFrame assembles a response frame the fake device writes back:
// STX|LEN|CMD|ERROR|DATA|LRC.
func buildFrame(cmd, errByte byte, data []byte) []byte {
	body := append([]byte{cmd, errByte}, data...)
	content := append([]byte{byte(len(body))}, body...)
	frame := append([]byte{stxByte}, content...)
	frame = append(frame, LRC(content))
	return frame
}
