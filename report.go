package diskxfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/term"
)

// PrintWelcome renders the startup banner the way the original tool's
// print_welcome did, before the handshake begins: role, serial path and
// baud, then the device, geometry and start sector for a sender or the
// output path for a receiver. It prints no rate estimate.
func PrintWelcome(w io.Writer, cfg Config) {
	fmt.Fprintf(w, "diskxfer: starting %s on %s at %d baud\n", roleName(cfg.Role), cfg.SerialPath, cfg.Baud)
	if cfg.Role == RoleSender {
		fmt.Fprintf(w, "  device:       %s\n", cfg.DevicePath)
		fmt.Fprintf(w, "  geometry:     %d cylinders / %d heads / %d sectors-per-track\n",
			cfg.Geometry.Cylinders, cfg.Geometry.Heads, cfg.Geometry.SectorsPerTrack)
		fmt.Fprintf(w, "  start sector: %d of %d\n", cfg.StartSector, cfg.Geometry.TotalSectors())
	} else {
		fmt.Fprintf(w, "  output:       %s\n", cfg.OutputPath)
	}
}

func roleName(r Role) string {
	if r == RoleSender {
		return "send"
	}
	return "receive"
}

// FinalReport renders the transfer's closing summary: elapsed time,
// effective rate, MD5, and every distinct read-log entry.
func FinalReport(w io.Writer, snap Snapshot, md5sum [16]byte, log *ReadLog) {
	fmt.Fprintf(w, "\ntransfer complete\n")
	fmt.Fprintf(w, "  elapsed:        %s\n", snap.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  bytes:          %d\n", snap.TotalBytesRead)
	fmt.Fprintf(w, "  rate:           %.0f B/s\n", snap.BytesPerSecond)
	fmt.Fprintf(w, "  md5:            %x\n", md5sum)
	fmt.Fprintf(w, "  read retries:   %d\n", snap.ReadRetries)
	fmt.Fprintf(w, "  reconstructed:  %d\n", snap.Reconstructed)
	if log.Len() == 0 {
		fmt.Fprintf(w, "  read log:       clean, no bad sectors\n")
		return
	}
	fmt.Fprintf(w, "  read log:\n")
	log.Iterate(func(e ReadLogEntry) {
		fmt.Fprintf(w, "    sector %d: status=%d retries=%d (%s)\n", e.Sector, e.StatusCode, e.RetryCount, e.StatusMessage)
	})
}

// AppendReport opens path in append mode and writes the final report to
// it, used when the CLI's --report flag names a file to keep a running
// history across runs.
func AppendReport(path string, snap Snapshot, md5sum [16]byte, log *ReadLog) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("diskxfer: open report file %s: %w", path, err)
	}
	defer f.Close()
	FinalReport(f, snap, md5sum, log)
	return nil
}

// KeyboardAbort watches a raw-mode terminal for any keypress and calls
// the cancel function given to Watch when one arrives, the same interrupt
// pattern the original tool's catch_interrupt/interrupt_handler pair
// implements by polling a key each protocol iteration instead of
// installing a signal handler.
type KeyboardAbort struct {
	t *term.Term
}

// NewKeyboardAbort opens ttyPath in raw, non-blocking mode for polling.
func NewKeyboardAbort(ttyPath string) (*KeyboardAbort, error) {
	t, err := term.Open(ttyPath, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("diskxfer: open keyboard %s: %w", ttyPath, err)
	}
	return &KeyboardAbort{t: t}, nil
}

// Watch polls for a keypress once per interval. It calls cancel when one
// arrives, and returns without calling it when ctx is done or a read fails.
func (k *KeyboardAbort) Watch(ctx context.Context, cancel context.CancelFunc, interval time.Duration) {
	buf := make([]byte, 1)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := k.t.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				cancel()
				return
			}
		}
	}
}

// Close restores the terminal.
func (k *KeyboardAbort) Close() error { return k.t.Close() }
