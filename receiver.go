package diskxfer

import (
	"context"
	"fmt"
	"io"
)

// Receiver drives the receiver-side protocol state machine: it owns the
// serial link and the output file, and writes each accepted 512-byte
// block exactly once, in strictly increasing order.
type Receiver struct {
	serial Serial
	out    io.Writer
	ring   *sendRing

	nextExpected uint32
	everAcked    bool
}

// NewReceiver constructs a Receiver that writes accepted blocks to out.
func NewReceiver(serial Serial, out io.Writer) *Receiver {
	return &Receiver{serial: serial, out: out, ring: newSendRing()}
}

// Run drives the receiver loop until ctx is cancelled. Because the
// receiver has no a priori knowledge of total_sectors in this design, the
// caller is expected to cancel ctx once the sender has gone silent for
// longer than a reasonable idle window.
func (r *Receiver) Run(ctx context.Context) error {
	if err := writeAll(r.serial, []byte{StartToken}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ErrAborted
		default:
		}

		if err := r.ring.Fill(r.serial.ReadBytes); err != nil {
			return err
		}

		frames, corruptExpected := r.ring.Scan(r.nextExpected)
		for _, p := range frames {
			if err := r.handleFrame(p); err != nil {
				return err
			}
		}
		if corruptExpected {
			if err := r.nak(r.nextExpected); err != nil {
				return err
			}
		}
	}
}

func (r *Receiver) handleFrame(p SendPacket) error {
	switch {
	case p.BlockNumber == r.nextExpected:
		if _, err := r.out.Write(p.Data[:]); err != nil {
			return fmt.Errorf("diskxfer: write output: %w", err)
		}
		if err := r.ack(r.nextExpected); err != nil {
			return err
		}
		r.everAcked = true
		r.nextExpected++

	case p.BlockNumber > r.nextExpected:
		if !r.everAcked {
			return r.nak(r.nextExpected)
		}
		return r.syn(r.nextExpected - 1)

	default: // p.BlockNumber < r.nextExpected: sender is catching up after a NAK
		return r.ack(r.nextExpected - 1)
	}
	return nil
}

func (r *Receiver) ack(block uint32) error {
	return writeAll(r.serial, EncodeControlPacket(ControlPacket{ResponseCode: ACK, BlockNumber: block}))
}

func (r *Receiver) nak(block uint32) error {
	return writeAll(r.serial, EncodeControlPacket(ControlPacket{ResponseCode: NAK, BlockNumber: block}))
}

func (r *Receiver) syn(block uint32) error {
	return writeAll(r.serial, EncodeControlPacket(ControlPacket{ResponseCode: SYN, BlockNumber: block}))
}
