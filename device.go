package diskxfer

import (
	"fmt"
	"os"
)

// Geometry describes a disk's CHS addressing scheme.
type Geometry struct {
	Cylinders       int
	Heads           int
	SectorsPerTrack int
}

// TotalSectors returns the inclusive highest linear sector index.
func (g Geometry) TotalSectors() int {
	return g.Cylinders*g.Heads*g.SectorsPerTrack - 1
}

// TotalBytes returns the full addressable byte size implied by g.
func (g Geometry) TotalBytes() int64 {
	return int64(g.TotalSectors()+1) * SectorSize
}

// CHS converts a zero-based linear sector index into a (cylinder, head,
// sector) tuple, sector numbered from 1. This is the classic formula: the
// original disk tool's set_sector walks the same three divisions.
func (g Geometry) CHS(linear int) (cylinder, head, sector int) {
	cylinder = linear / (g.SectorsPerTrack * g.Heads)
	head = (linear / g.SectorsPerTrack) % g.Heads
	sector = 1 + (linear % g.SectorsPerTrack)
	return
}

// BlockDevice is the sector-level abstraction the sender reads through.
// Status failures are reported as errors; ResetController is a best-effort
// hint that the retry reader invokes every few attempts to shake loose a
// wedged controller.
type BlockDevice interface {
	Geometry() (Geometry, error)
	ReadSector(cylinder, head, sector int, buf []byte) error
	ResetController() error
}

// FileBlockDevice implements BlockDevice over a plain file or raw device
// node, the common case on a modern Linux host where there is no BIOS
// INT13 layer to reset. Geometry is supplied at construction because a
// regular file has none of its own.
type FileBlockDevice struct {
	f        *os.File
	geometry Geometry
}

// NewFileBlockDevice opens path for reading and pairs it with geometry.
func NewFileBlockDevice(path string, geometry Geometry) (*FileBlockDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("diskxfer: open block device %s: %w", path, err)
	}
	return &FileBlockDevice{f: f, geometry: geometry}, nil
}

func (d *FileBlockDevice) Geometry() (Geometry, error) { return d.geometry, nil }

func (d *FileBlockDevice) ReadSector(cylinder, head, sector int, buf []byte) error {
	if len(buf) != SectorSize {
		return fmt.Errorf("diskxfer: read buffer must be %d bytes, got %d", SectorSize, len(buf))
	}
	linear := cylinder*(d.geometry.SectorsPerTrack*d.geometry.Heads) +
		head*d.geometry.SectorsPerTrack + (sector - 1)
	off := int64(linear) * SectorSize
	n, err := d.f.ReadAt(buf, off)
	if err != nil {
		return fmt.Errorf("diskxfer: read sector c=%d h=%d s=%d: %w", cylinder, head, sector, err)
	}
	if n != SectorSize {
		return fmt.Errorf("diskxfer: short read at sector c=%d h=%d s=%d: got %d bytes", cylinder, head, sector, n)
	}
	return nil
}

// ResetController is a no-op on a regular block device: there is no POSIX
// analogue to an INT13 controller reset. The seam exists so a future
// raw-HDIO-backed implementation can plug one in without the retry reader
// changing at all.
func (d *FileBlockDevice) ResetController() error { return nil }

// Close releases the underlying file handle.
func (d *FileBlockDevice) Close() error { return d.f.Close() }
