package kkt

import "time"

const (
	stxByte = 0x02
	enqByte = 0x05
	ackByte = 0x06
	nakByte = 0x15
)

// handshakeGuard bounds both "device keeps answering ENQ with something
// other than ACK/NAK" and "device sends something other than STX while
// we're waiting for one": the same shared counter the original recursive
// send_ENQ/wait_STX pair threaded through both cases, here made explicit
// as a loop bound instead of recursion depth.
const handshakeGuard = 10

// wireResponse is one parsed response frame: the command byte it echoes,
// the error byte, and the data payload (everything after CMD and ERROR).
type wireResponse struct {
	command byte
	errByte byte
	data    []byte
}

// Ask performs one full command/response exchange: it connects if
// necessary, clears any previous response pending on the link, sends the
// framed request, retries while the device reports itself busy, and
// returns the response payload or a *DeviceError.
//
// If params is nil and withoutPassword is false, the configured operator
// password is used. Passing an explicit (possibly empty) slice always
// wins, even if it is empty — only a nil slice triggers the default.
//
// quick suppresses the settle sleep after a clean response and leaves
// the link open on return, for the mid-receipt command bursts (sale,
// discount, surcharge, storno) where tearing the connection down between
// every line item would be wasteful.
func (s *Session) Ask(command byte, params []byte, withoutPassword, quick bool) ([]byte, error) {
	if err := s.Connect(); err != nil {
		return nil, err
	}
	if !quick {
		defer s.Close()
	}

	s.quick = quick
	s.request = nil
	s.pendingCommand = 0

	if params == nil && !withoutPassword {
		params = append([]byte(nil), s.cfg.Password[:]...)
	}

	if _, err := s.enqProbe(true); err != nil {
		return nil, err
	}

	s.createRequest(command, params)

	var resp *wireResponse
	for attempt := 0; attempt < s.maxAttempt; attempt++ {
		r, err := s.sendRequest()
		if err != nil {
			return nil, err
		}
		resp = r
		if resp.errByte == busyErrorCode {
			s.logger.Debug("device busy, backing off", "attempt", attempt+1)
			time.Sleep(10 * s.minTimeout)
			continue
		}
		break
	}
	if resp == nil || resp.errByte == busyErrorCode {
		return nil, connErrf("exhausted %d send attempts while device stayed busy", s.maxAttempt)
	}
	if resp.errByte != 0 {
		return nil, lookupDeviceError(resp.errByte)
	}
	return resp.data, nil
}

// enqProbe drives the ENQ/ACK/NAK handshake. previous=true is the
// pre-flight cleanup probe issued before a fresh request is framed: it
// drains any response the device is still holding from a prior exchange
// that the caller never read (e.g. a dropped connection mid-exchange),
// and returns (nil, nil) once the link reports idle (NAK).
func (s *Session) enqProbe(previous bool) (*wireResponse, error) {
	guard := 0
	for {
		if err := s.writeByte(enqByte); err != nil {
			return nil, err
		}
		reply, err := s.readByteWithRetry()
		if err != nil {
			return nil, err
		}
		switch {
		case len(reply) == 0:
			return nil, connErrf("device did not respond to ENQ")
		case reply[0] == nakByte:
			if previous {
				return nil, nil
			}
			return s.sendRequest()
		case reply[0] == ackByte:
			resp, resync, err := s.awaitSTX(previous)
			if err != nil {
				return nil, err
			}
			if !resync {
				return resp, nil
			}
		default:
			s.logger.Debug("device still finishing previous transmission, retrying ENQ")
			time.Sleep(2 * s.minTimeout)
		}
		guard++
		if guard >= handshakeGuard {
			return nil, connErrf("no connection: exceeded ENQ retry bound")
		}
	}
}

// awaitSTX waits for the STX that should follow an ACK. resync reports
// whether a non-STX byte arrived instead, in which case the caller
// should fall back to re-issuing the ENQ handshake.
func (s *Session) awaitSTX(previous bool) (resp *wireResponse, resync bool, err error) {
	b, err := s.readByteWithRetry()
	if err != nil {
		return nil, false, err
	}
	if len(b) == 0 {
		return nil, false, connErrf("timed out waiting for STX")
	}
	if b[0] != stxByte {
		return nil, true, nil
	}
	resp, err = s.readResponseFrame(previous)
	return resp, false, err
}

// createRequest builds and stores the framed request STX|LEN|CMD|PARAMS|LRC
// for the next sendRequest call.
func (s *Session) createRequest(command byte, params []byte) {
	body := make([]byte, 0, 1+len(params))
	body = append(body, command)
	body = append(body, params...)

	content := make([]byte, 0, 1+len(body))
	content = append(content, byte(len(body)))
	content = append(content, body...)

	frame := make([]byte, 0, 1+len(content)+1)
	frame = append(frame, stxByte)
	frame = append(frame, content...)
	frame = append(frame, LRC(content))

	s.request = frame
	s.pendingCommand = command
}

// sendRequest writes the previously built request frame and waits for
// the device's ACK/STX/response. The write is repeated, up to maxAttempt
// times in all, while the device answers with a byte other than ACK; if
// no byte arrives at all, it falls back to the ENQ handshake instead.
// Once the attempts are used up, one cleanup ENQ probe re-synchronizes
// the link before the error is returned.
func (s *Session) sendRequest() (*wireResponse, error) {
	for attempt := 0; attempt < s.maxAttempt; attempt++ {
		if _, err := s.conn.Write(s.request); err != nil {
			return nil, wrapConnErr("write request", err)
		}
		if err := s.conn.Flush(); err != nil {
			return nil, wrapConnErr("flush after write", err)
		}

		b, err := s.readByteWithRetry()
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			return s.enqProbe(false)
		}
		if b[0] == ackByte {
			resp, resync, err := s.awaitSTX(false)
			if err != nil {
				return nil, err
			}
			if !resync {
				return resp, nil
			}
			return s.enqProbe(false)
		}
		s.logger.Debug("unexpected reply to request, retrying send", "byte", b[0])
	}
	if _, err := s.enqProbe(true); err != nil {
		return nil, err
	}
	return nil, connErrf("device did not acknowledge the request after %d attempts", s.maxAttempt)
}

// readResponseFrame reads LEN, the body (CMD|ERROR|DATA), and the LRC
// that follows an STX already consumed by the caller. previous=true
// means this is the pre-flight cleanup read: the frame is acknowledged
// and discarded rather than parsed against a pending command.
func (s *Session) readResponseFrame(previous bool) (*wireResponse, error) {
	lenBuf := make([]byte, 1)
	n, err := s.conn.Read(lenBuf)
	if err != nil {
		return nil, wrapConnErr("read response length", err)
	}
	if n == 0 {
		return nil, connErrf("timed out reading response length")
	}
	length := int(lenBuf[0])

	time.Sleep(s.minTimeout)

	body := make([]byte, length)
	got, err := s.readExact(body)
	if err != nil {
		return nil, err
	}

	time.Sleep(s.minTimeout)

	lrcBuf := make([]byte, 1)
	if _, err := s.conn.Read(lrcBuf); err != nil {
		return nil, wrapConnErr("read response lrc", err)
	}

	if previous {
		if err := s.ackAndFlush(); err != nil {
			return nil, err
		}
		time.Sleep(2 * s.minTimeout)
		return nil, nil
	}

	if got != length {
		s.logger.Info("response shorter than advertised, requesting retransmit", "want", length, "got", got)
		if err := s.nakAndFlush(); err != nil {
			return nil, err
		}
		return s.sendRequest()
	}
	if length < 2 {
		return nil, connErrf("response body too short: need at least CMD and ERROR bytes, got %d", length)
	}

	respCommand := body[0]
	if respCommand != s.pendingCommand {
		return nil, connErrf("response echoes command 0x%02X, expected 0x%02X", respCommand, s.pendingCommand)
	}

	full := make([]byte, 0, 1+length)
	full = append(full, lenBuf[0])
	full = append(full, body...)
	if calc := LRC(full); calc != lrcBuf[0] {
		s.logger.Info("response lrc mismatch, requesting retransmit", "want", calc, "got", lrcBuf[0])
		if err := s.nakAndFlush(); err != nil {
			return nil, err
		}
		return s.sendRequest()
	}

	if err := s.writeByte(ackByte); err != nil {
		return nil, err
	}
	if !s.quick {
		if err := s.conn.Flush(); err != nil {
			return nil, wrapConnErr("flush after ack", err)
		}
		time.Sleep(2 * s.minTimeout)
	}

	return &wireResponse{command: respCommand, errByte: body[1], data: body[2:]}, nil
}

func (s *Session) ackAndFlush() error {
	if err := s.writeByte(ackByte); err != nil {
		return err
	}
	if err := s.conn.Flush(); err != nil {
		return wrapConnErr("flush after ack", err)
	}
	return nil
}

func (s *Session) nakAndFlush() error {
	if err := s.writeByte(nakByte); err != nil {
		return err
	}
	if err := s.conn.Flush(); err != nil {
		return wrapConnErr("flush after nak", err)
	}
	return nil
}

func (s *Session) writeByte(b byte) error {
	if _, err := s.conn.Write([]byte{b}); err != nil {
		return wrapConnErr("write", err)
	}
	return nil
}

// readByteWithRetry reads a single byte, retrying once after minTimeout
// if nothing arrived on the first attempt. An empty return (len 0) means
// both attempts timed out.
func (s *Session) readByteWithRetry() ([]byte, error) {
	buf := make([]byte, 1)
	n, err := s.conn.Read(buf)
	if err != nil {
		return nil, wrapConnErr("read", err)
	}
	if n == 0 {
		time.Sleep(s.minTimeout)
		n, err = s.conn.Read(buf)
		if err != nil {
			return nil, wrapConnErr("read", err)
		}
	}
	return buf[:n], nil
}

// readExact reads until buf is full or a read times out with no bytes,
// whichever comes first, returning the number of bytes actually filled.
func (s *Session) readExact(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := s.conn.Read(buf[total:])
		if err != nil {
			return total, wrapConnErr("read", err)
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
	return total, nil
}
