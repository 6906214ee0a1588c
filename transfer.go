package diskxfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Role distinguishes which side of the link a Transfer drives.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

// Config is the fully-resolved, validated configuration a Transfer is
// constructed from. The CLI layer assembles one of these from flags plus
// defaults; the core never parses flags itself.
type Config struct {
	Role Role

	DevicePath string // sender only: path to the block device / image file
	OutputPath string // receiver only: path to write the reassembled image
	SerialPath string

	StartSector int
	Baud        int
	Geometry    Geometry // sender only; receiver has no a priori geometry

	Logger *slog.Logger
}

// defaults fills in zero-valued fields with the module's standard
// defaults, mirroring the teacher's Config.defaults() pattern.
func (c Config) defaults() Config {
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) validate() error {
	if !ValidBaud(c.Baud) {
		return fmt.Errorf("%w: %d", ErrBadBaud, c.Baud)
	}
	if c.Role == RoleSender {
		if c.Geometry.Cylinders == 0 || c.Geometry.Heads == 0 || c.Geometry.SectorsPerTrack == 0 {
			return fmt.Errorf("%w: geometry must be fully specified", ErrDeviceGeometry)
		}
		if c.StartSector < 0 || c.StartSector > c.Geometry.TotalSectors() {
			return fmt.Errorf("%w: start sector %d out of range [0,%d]", ErrDeviceGeometry, c.StartSector, c.Geometry.TotalSectors())
		}
	}
	return nil
}

// Transfer is the single owned value holding every piece of mutable state
// a transfer needs: the FSM, its buffers, and the resources it acquires.
// There is no package-level mutable state; every entry point takes a
// *Transfer.
type Transfer struct {
	cfg     Config
	serial  Serial
	dev     BlockDevice
	readLog *ReadLog
	ledger  *ProgressLedger
	logger  *slog.Logger
}

// NewTransfer validates cfg and wires serial/dev into a ready-to-run
// Transfer. Either dev or the output writer used by RunReceiver may be
// nil depending on cfg.Role; the caller picks the matching Run method.
func NewTransfer(cfg Config, serial Serial, dev BlockDevice) (*Transfer, error) {
	cfg = cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Transfer{
		cfg:     cfg,
		serial:  serial,
		dev:     dev,
		readLog: NewReadLog(),
		ledger:  NewProgressLedger(),
		logger:  cfg.Logger,
	}, nil
}

// ReadLog exposes the transfer's read-log ledger for report rendering.
func (t *Transfer) ReadLog() *ReadLog { return t.readLog }

// Ledger exposes the transfer's progress ledger, e.g. to register a
// ProgressCollector with a Prometheus registry.
func (t *Transfer) Ledger() *ProgressLedger { return t.ledger }

// RunSender executes a full sender-side transfer of the configured
// geometry starting at cfg.StartSector. It returns the final MD5 of the
// data sent.
func (t *Transfer) RunSender(ctx context.Context) ([16]byte, error) {
	total := uint32(t.cfg.Geometry.TotalSectors() + 1 - t.cfg.StartSector)
	reader := NewRetryReader(t.dev, t.cfg.Geometry, t.readLog, t.ledger, t.logger)
	sender := NewSender(t.serial, reader, t.cfg.Geometry, t.cfg.StartSector, total, t.cfg.Baud, t.readLog, t.ledger)

	t.logger.Info("sender starting", "start_sector", t.cfg.StartSector, "total_blocks", total, "baud", t.cfg.Baud)
	sum, err := sender.Run(ctx)
	if err != nil {
		t.logger.Error("sender stopped", "err", err)
		return sum, err
	}
	t.logger.Info("sender finished", "md5", fmt.Sprintf("%x", sum))
	return sum, nil
}

// RunReceiver executes a full receiver-side transfer, writing the
// reassembled byte stream to out until ctx is cancelled.
func (t *Transfer) RunReceiver(ctx context.Context, out io.Writer) error {
	receiver := NewReceiver(t.serial, out)
	t.logger.Info("receiver starting", "baud", t.cfg.Baud)
	err := receiver.Run(ctx)
	if err != nil {
		t.logger.Error("receiver stopped", "err", err)
		return err
	}
	t.logger.Info("receiver finished")
	return nil
}

// Close releases the block device, if one was wired in.
func (t *Transfer) Close() error {
	if closer, ok := t.dev.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
