package diskxfer

import (
	"log/slog"
	"time"
)

// Tuning constants for the retry-with-consensus reader.
const (
	MaxReadRetryCount       = 128
	DiskResetInterval       = 2
	ReadRetryDelayMS        = 100
	tallyBits               = SectorSize * 8
	readStatusClean         = 0
	readStatusRetrying      = 1
	readStatusRecovered     = 2
	readStatusReconstructed = 3
)

// ReadOutcome classifies how a sector's payload was obtained.
type ReadOutcome int

const (
	OutcomeClean ReadOutcome = iota
	OutcomeRecovered
	OutcomeReconstructed
)

// RetryReader wraps a BlockDevice with automatic retry and, on exhaustion,
// bit-majority reconstruction of a sector that never cleanly succeeds.
// Known-bad sectors on aging media often deliver a stable majority value
// with per-read transient noise; voting across many reads recovers the
// most likely original without interrupting the transfer.
type RetryReader struct {
	dev    Geometry
	dv     BlockDevice
	log    *ReadLog
	ledger *ProgressLedger
	clk    clock
	log2   *slog.Logger
}

type clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// NewRetryReader constructs a reader over dv, recording failures into log
// and, if ledger is non-nil, tallying retries and reconstructions into it.
func NewRetryReader(dv BlockDevice, geometry Geometry, log *ReadLog, ledger *ProgressLedger, logger *slog.Logger) *RetryReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryReader{dev: geometry, dv: dv, log: log, ledger: ledger, clk: realClock{}, log2: logger}
}

// ReadWithRecovery reads the sector at linear index, retrying and
// eventually reconstructing by bit-majority vote if the device never
// delivers a clean read.
func (r *RetryReader) ReadWithRecovery(linear int, buf []byte) (ReadOutcome, error) {
	c, h, s := r.dev.CHS(linear)
	err := r.dv.ReadSector(c, h, s, buf)
	if err == nil {
		return OutcomeClean, nil
	}

	tally := make([]int, tallyBits)
	last := make([]byte, SectorSize)
	copy(last, buf)

	var lastErr error
	for attempt := 1; attempt <= MaxReadRetryCount; attempt++ {
		for b := 0; b < tallyBits; b++ {
			if (last[b/8]>>(uint(b)%8))&1 == 1 {
				tally[b]++
			}
		}

		if attempt%DiskResetInterval == 0 {
			if rerr := r.dv.ResetController(); rerr != nil {
				r.log2.Warn("controller reset failed", "sector", linear, "err", rerr)
			}
		} else {
			r.clk.Sleep(ReadRetryDelayMS * time.Millisecond)
		}

		r.log.Add(linear, readStatusRetrying, err.Error(), attempt)
		if r.ledger != nil {
			r.ledger.AddRetry()
		}

		err = r.dv.ReadSector(c, h, s, buf)
		if err == nil {
			r.log.Add(linear, readStatusRecovered, "recovered", attempt)
			return OutcomeRecovered, nil
		}
		lastErr = err
		copy(last, buf)
	}

	reconstructed := make([]byte, SectorSize)
	threshold := MaxReadRetryCount / 2
	for b := 0; b < tallyBits; b++ {
		if tally[b] >= threshold {
			reconstructed[b/8] |= 1 << (uint(b) % 8)
		}
	}
	copy(buf, reconstructed)
	r.log.Add(linear, readStatusReconstructed, lastErr.Error(), MaxReadRetryCount)
	if r.ledger != nil {
		r.ledger.AddReconstructed()
	}
	return OutcomeReconstructed, nil
}
