package diskxfer

import (
	"encoding/binary"
	"io"
)

// controlResync reads a 9-byte sliding window from r, shifting one byte at
// a time past anything that doesn't decode as a valid ControlPacket. It is
// the sender's side of framing: the link may carry arbitrary leading
// garbage or single-byte noise, and the CRC carries the false-positive
// probability of accepting a misaligned frame.
type controlResync struct {
	r   io.Reader
	buf []byte
	one [1]byte
}

func newControlResync(r io.Reader) *controlResync {
	return &controlResync{r: r, buf: make([]byte, 0, ControlPacketSize)}
}

// Next blocks until a valid ControlPacket is decoded or r returns an error.
func (c *controlResync) Next() (ControlPacket, error) {
	for {
		for len(c.buf) < ControlPacketSize {
			n, err := c.r.Read(c.one[:])
			if n == 1 {
				c.buf = append(c.buf, c.one[0])
			}
			if err != nil {
				return ControlPacket{}, err
			}
			if n == 0 {
				return ControlPacket{}, errNoData
			}
		}
		if p, ok := DecodeControlPacket(c.buf); ok {
			c.buf = c.buf[:0]
			return p, nil
		}
		// Shift left by one byte and keep scanning.
		copy(c.buf, c.buf[1:])
		c.buf = c.buf[:len(c.buf)-1]
	}
}

// TryNext is the non-blocking counterpart used by the sender's CHECK
// state: it reads whatever is immediately available from r (which must be
// configured not to block past its own timeout) and reports whether a full
// valid packet has been assembled yet.
func (c *controlResync) TryNext(r func([]byte) (int, error)) (ControlPacket, bool, error) {
	one := make([]byte, 1)
	for len(c.buf) < ControlPacketSize {
		n, err := r(one)
		if n == 1 {
			c.buf = append(c.buf, one[0])
			continue
		}
		if err != nil {
			return ControlPacket{}, false, err
		}
		// No byte available right now.
		return ControlPacket{}, false, nil
	}
	if p, ok := DecodeControlPacket(c.buf); ok {
		c.buf = c.buf[:0]
		return p, true, nil
	}
	copy(c.buf, c.buf[1:])
	c.buf = c.buf[:len(c.buf)-1]
	return ControlPacket{}, false, nil
}

// errNoData is the error Next returns when its read source returns no
// bytes and no error.
var errNoData = io.ErrNoProgress

// sendRing is the receiver's resync buffer: up to 16 SendPacket frames
// wide, scanned for SOH candidates and validated by CRC at each candidate
// offset. On a CRC failure it advances by exactly one byte, matching the
// classic XMODEM resync-by-one-byte policy.
type sendRing struct {
	buf []byte
	pos int // valid bytes occupy buf[:pos]
}

func newSendRing() *sendRing {
	return &sendRing{buf: make([]byte, 16*SendPacketSize)}
}

// Fill appends up to the ring's remaining capacity by calling read once.
func (s *sendRing) Fill(read func([]byte) (int, error)) error {
	if s.pos >= len(s.buf) {
		return nil
	}
	n, err := read(s.buf[s.pos:])
	s.pos += n
	if err != nil {
		return err
	}
	return nil
}

// Scan extracts every valid SendPacket frame currently sitting in the
// ring, in order, then compacts the ring to discard consumed bytes.
// nextExpected is the block the caller is currently waiting on: if a
// candidate frame's SOH and block-number line up with it but its CRC
// fails, that is the awaited frame arriving corrupted rather than mere
// drift, and corruptExpected reports it so the caller can NAK
// immediately instead of waiting for a later frame to resync onto.
// Scanning stops at that point, mirroring the original implementation's
// send_nak()-then-break: the one leading byte consumed before returning
// ensures a second call won't rediscover the same corrupt frame.
func (s *sendRing) Scan(nextExpected uint32) (frames []SendPacket, corruptExpected bool) {
	expect := nextExpected
	offset := 0
	for offset+SendPacketSize <= s.pos {
		candidate := s.buf[offset : offset+SendPacketSize]
		if candidate[0] != SOH {
			offset++
			continue
		}
		if p, ok := DecodeSendPacket(candidate); ok {
			frames = append(frames, p)
			offset += SendPacketSize
			if p.BlockNumber == expect {
				expect++
			}
			continue
		}
		if binary.BigEndian.Uint32(candidate[1:5]) == expect {
			corruptExpected = true
			offset++
			break
		}
		offset++
	}
	copy(s.buf, s.buf[offset:s.pos])
	s.pos -= offset
	return frames, corruptExpected
}

// Full reports whether the ring has no room left for another Fill.
func (s *sendRing) Full() bool { return s.pos >= len(s.buf) }
