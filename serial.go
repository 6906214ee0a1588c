package diskxfer

import (
	"fmt"

	"github.com/pkg/term"
)

// SupportedBauds is the fixed enumeration the serial driver accepts,
// matching the set validated in the pack's serial_port_open.
var SupportedBauds = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// ValidBaud reports whether baud is one of SupportedBauds.
func ValidBaud(baud int) bool {
	for _, b := range SupportedBauds {
		if b == baud {
			return true
		}
	}
	return false
}

// Serial is the byte-stream abstraction the core reads and writes frames
// through. ReadBytes is expected to be non-blocking: it may legitimately
// return (0, nil) when nothing is currently available.
type Serial interface {
	WriteBytes(buf []byte) (int, error)
	ReadBytes(buf []byte) (int, error)
	Close() error
}

// TermSerial wraps github.com/pkg/term in raw mode, the same seam the
// pack's serial_port_open/write/get1 trio uses for its TNC link.
type TermSerial struct {
	t *term.Term
}

// OpenTermSerial opens devicename in raw mode at baud. baud must be one of
// SupportedBauds.
func OpenTermSerial(devicename string, baud int) (*TermSerial, error) {
	if !ValidBaud(baud) {
		return nil, fmt.Errorf("%w: %d", ErrBadBaud, baud)
	}
	t, err := term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("diskxfer: open serial port %s: %w", devicename, err)
	}
	if err := t.SetSpeed(baud); err != nil {
		t.Close()
		return nil, fmt.Errorf("diskxfer: set speed %d on %s: %w", baud, devicename, err)
	}
	return &TermSerial{t: t}, nil
}

func (s *TermSerial) WriteBytes(buf []byte) (int, error) { return s.t.Write(buf) }
func (s *TermSerial) ReadBytes(buf []byte) (int, error)  { return s.t.Read(buf) }
func (s *TermSerial) Close() error                       { return s.t.Close() }

// writeAll loops WriteBytes until the whole buffer has gone out, since the
// serial sink may accept partial writes (the sender's SEND state relies on
// this being true of any Serial implementation).
func writeAll(s Serial, buf []byte) error {
	for len(buf) > 0 {
		n, err := s.WriteBytes(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}
