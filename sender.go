package diskxfer

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"
)

type senderState int

const (
	sendStart senderState = iota // wait for the receiver's 'C' start token
	sendSend                     // read/frame/transmit the current block
	sendCheck                    // wait for ACK/NAK/SYN, advance or resend
	sendAbort                    // drain in-flight packets before giving up
	sendEnd                      // transfer complete or fatally stopped
)

const (
	resendTimeout    = 100 * time.Millisecond
	abortTimeout     = 1000 * time.Millisecond
	startPollStep    = 1 * time.Millisecond
	handshakeTimeout = 30 * time.Second
)

// Sender drives the sender-side protocol state machine described in the
// core design: it owns the block device, the serial link, the MD5 state,
// the send window, the read log, and the progress ledger for the
// lifetime of one transfer.
type Sender struct {
	serial      Serial
	reader      *RetryReader
	geometry    Geometry
	startSector int
	totalBlocks uint32 // inclusive count of blocks to send
	baud        int

	window  *SenderWindow
	readLog *ReadLog
	ledger  *ProgressLedger
	ctl     *controlResync

	hash *md5Sum
}

// NewSender constructs a Sender ready to run a transfer of
// [startSector, startSector+totalBlocks) over serial at baud bps.
func NewSender(serial Serial, reader *RetryReader, geometry Geometry, startSector int, totalBlocks uint32, baud int, readLog *ReadLog, ledger *ProgressLedger) *Sender {
	return &Sender{
		serial:      serial,
		reader:      reader,
		geometry:    geometry,
		startSector: startSector,
		totalBlocks: totalBlocks,
		baud:        baud,
		window:      NewSenderWindow(),
		readLog:     readLog,
		ledger:      ledger,
		ctl:         newControlResync(serialReader{serial}),
		hash:        newMD5Sum(),
	}
}

// serialReader adapts Serial's non-blocking ReadBytes to io.Reader's
// blocking contract for the resync helper's blocking Next. The sender
// itself only calls TryNext, and its START handshake polls ReadBytes
// directly in awaitStartToken.
type serialReader struct{ s Serial }

func (r serialReader) Read(p []byte) (int, error) {
	for {
		n, err := r.s.ReadBytes(p)
		if n > 0 || err != nil {
			return n, err
		}
		time.Sleep(startPollStep)
	}
}

// Run executes the sender state machine to completion. It returns
// ErrAborted if ctx is cancelled mid-transfer, ErrProtocolViolation if the
// no-skip rule would be broken, or nil on a clean finish.
func (s *Sender) Run(ctx context.Context) (md5sum [16]byte, err error) {
	state := sendStart
	var completed, current, read uint32
	var resendAt time.Time
	var abortDeadline time.Time
	aborting := false
	violated := false

	enterAbort := func() {
		if !aborting {
			aborting = true
			abortDeadline = time.Now().Add(abortTimeout)
		}
		state = sendAbort
	}

	for state != sendEnd {
		if !aborting {
			select {
			case <-ctx.Done():
				enterAbort()
			default:
			}
		}

		switch state {
		case sendStart:
			if err := s.awaitStartToken(ctx); err != nil {
				return s.hash.sum(), err
			}
			s.ledger.Start(s.baud)
			state = sendSend

		case sendSend:
			if err := s.sendBlock(current, &read); err != nil {
				return s.hash.sum(), err
			}
			resendAt = time.Now().Add(resendTimeout)
			s.ledger.SetCounters(completed, current, read)
			state = sendCheck

		case sendCheck:
			pkt, got, cerr := s.ctl.TryNext(s.serial.ReadBytes)
			if cerr != nil {
				return s.hash.sum(), cerr
			}
			if !got {
				if aborting && read == completed {
					state = sendEnd
					break
				}
				if aborting && time.Now().After(abortDeadline) {
					state = sendEnd
					break
				}
				if !aborting && read-completed < MaxBufferedSendPackets && current+1 < s.totalBlocks {
					next, ok := advanceNoSkip(current+1, read)
					if !ok {
						violated = true
						enterAbort()
						break
					}
					current = next
					state = sendSend
					break
				}
				if time.Now().After(resendAt) {
					state = sendSend
					break
				}
				time.Sleep(1 * time.Millisecond)
				break
			}

			switch pkt.ResponseCode {
			case ACK:
				completed = pkt.BlockNumber
				if completed+1 >= s.totalBlocks {
					state = sendEnd
					break
				}
				candidate := pkt.BlockNumber
				if pkt.BlockNumber <= current {
					candidate = current + 1
					// Stay in CHECK when there is no block past the last
					// one, or when a fresh read would overfill the window.
					if candidate >= s.totalBlocks || (candidate > read && read-completed >= MaxBufferedSendPackets) {
						break
					}
				}
				next, ok := advanceNoSkip(candidate, read)
				if !ok {
					violated = true
					enterAbort()
					break
				}
				current = next
				state = sendSend
			case SYN:
				completed = pkt.BlockNumber
				next, ok := advanceNoSkip(pkt.BlockNumber+1, read)
				if !ok {
					violated = true
					enterAbort()
					break
				}
				current = next
				state = sendSend
			case NAK:
				next, ok := advanceNoSkip(pkt.BlockNumber, read)
				if !ok {
					violated = true
					enterAbort()
					break
				}
				current = next
				state = sendSend
			}

		case sendAbort:
			state = sendCheck

		case sendEnd:
		}
	}

	if violated {
		return s.hash.sum(), ErrProtocolViolation
	}
	if aborting {
		return s.hash.sum(), ErrAborted
	}
	return s.hash.sum(), nil
}

// advanceNoSkip reports whether moving current to candidate honors the
// no-skip rule: current may never outrun read+1, the highest block
// actually read from disk and absorbed into the hash. A violation is not
// something to clamp away — it means the receiver is demanding a jump
// the sender cannot safely make, and the caller must transition to
// ABORT instead of silently renormalizing candidate.
func advanceNoSkip(candidate, read uint32) (uint32, bool) {
	if candidate > read+1 {
		return candidate, false
	}
	return candidate, true
}

// awaitStartToken polls the serial link for the receiver's literal 'C'
// byte, as in the original handshake: no framing, just a liveness poll. It
// gives up with ErrHandshakeTimeout if the token never arrives within
// handshakeTimeout, so a receiver that never starts (or a link that's
// simply not connected) doesn't hang the sender forever.
func (s *Sender) awaitStartToken(ctx context.Context) error {
	deadline := time.Now().Add(handshakeTimeout)
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return ErrAborted
		default:
		}
		if time.Now().After(deadline) {
			return ErrHandshakeTimeout
		}
		n, err := s.serial.ReadBytes(buf)
		if err != nil {
			return err
		}
		if n == 1 && buf[0] == StartToken {
			return nil
		}
		time.Sleep(startPollStep)
	}
}

// sendBlock ensures block `current` has been read/framed (reusing the
// window's buffered copy on a resend rather than re-reading the disk or
// re-absorbing into MD5), then writes it to serial.
func (s *Sender) sendBlock(current uint32, read *uint32) error {
	if current > *read+1 {
		return fmt.Errorf("%w: would skip to block %d past read=%d", ErrProtocolViolation, current, *read)
	}

	pkt, buffered := s.window.Get(current)
	if !buffered {
		if current < *read {
			return fmt.Errorf("%w: would re-absorb block %d into MD5 (read=%d)", ErrProtocolViolation, current, *read)
		}
		buf := make([]byte, SectorSize)
		linear := s.startSector + int(current)
		if _, err := s.reader.ReadWithRecovery(linear, buf); err != nil {
			return err
		}
		s.hash.write(buf)
		*read = current

		pkt = SendPacket{BlockNumber: current}
		copy(pkt.Data[:], buf)
		s.window.Put(pkt)
		s.ledger.RecordBlock()
	}

	return writeAll(s.serial, EncodeSendPacket(pkt))
}

// md5Sum wraps crypto/md5's streaming hash. MD5 is treated the same way
// CRC-32 is: an external primitive collaborator named only at its
// interface, so it is isolated behind this thin type instead of being
// called inline from the sender.
type md5Sum struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
}

func newMD5Sum() *md5Sum {
	return &md5Sum{h: md5.New()}
}

func (m *md5Sum) write(buf []byte) { m.h.Write(buf) }

func (m *md5Sum) sum() [16]byte {
	var out [16]byte
	copy(out[:], m.h.Sum(nil))
	return out
}
