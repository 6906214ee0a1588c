package diskxfer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sampleInterval is how many sectors pass between periodic rate samples.
const sampleInterval = 256

// ProgressLedger tracks elapsed time and transfer rate. It is updated by
// the sender FSM and read, under mu, by the Prometheus collector below —
// the one place in this module two goroutines touch the same state, since
// promhttp's handler runs on its own goroutine independent of the FSM.
type ProgressLedger struct {
	mu sync.Mutex

	startedAt       time.Time
	totalBytesRead  int64
	bytesPerSecond  float64
	completed       uint32
	current         uint32
	read            uint32
	readRetries     int64
	reconstructed   int64
	sectorsSinceLog int
}

// NewProgressLedger returns a ledger ready for Start.
func NewProgressLedger() *ProgressLedger { return &ProgressLedger{} }

// Start seeds the ledger's clock at the beginning of a transfer.
func (p *ProgressLedger) Start(baud int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedAt = time.Now()
	// effective_bps = baud / 9 / 521 * 512: subtract framing overhead at
	// 9 bits per byte, then convert from wire bytes to payload bytes.
	p.bytesPerSecond = float64(baud) / 9 / float64(SendPacketSize) * SectorSize
}

// RecordBlock accounts for one freshly read sector and periodically
// refreshes the rate estimate.
func (p *ProgressLedger) RecordBlock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalBytesRead += SectorSize
	p.sectorsSinceLog++
	if p.sectorsSinceLog >= sampleInterval {
		p.sectorsSinceLog = 0
		elapsed := time.Since(p.startedAt).Seconds()
		if elapsed > 0 {
			p.bytesPerSecond = float64(p.totalBytesRead) / elapsed
		}
	}
}

// SetCounters mirrors the sender's three window counters for observability.
func (p *ProgressLedger) SetCounters(completed, current, read uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed, p.current, p.read = completed, current, read
}

// AddRetry and AddReconstructed are invoked by the retry reader.
func (p *ProgressLedger) AddRetry()         { p.mu.Lock(); p.readRetries++; p.mu.Unlock() }
func (p *ProgressLedger) AddReconstructed() { p.mu.Lock(); p.reconstructed++; p.mu.Unlock() }

// Snapshot returns a point-in-time copy of the ledger's counters.
type Snapshot struct {
	Elapsed        time.Duration
	TotalBytesRead int64
	BytesPerSecond float64
	Completed      uint32
	Current        uint32
	Read           uint32
	ReadRetries    int64
	Reconstructed  int64
}

func (p *ProgressLedger) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Elapsed:        time.Since(p.startedAt),
		TotalBytesRead: p.totalBytesRead,
		BytesPerSecond: p.bytesPerSecond,
		Completed:      p.completed,
		Current:        p.current,
		Read:           p.read,
		ReadRetries:    p.readRetries,
		Reconstructed:  p.reconstructed,
	}
}

// progressInfo pairs a metric descriptor with a function that reads the current
// snapshot and produces the metric, mirroring the pack's exporter
// collector shape.
type progressInfo struct {
	description *prometheus.Desc
	supplier    func(Snapshot) prometheus.Metric
}

// ProgressCollector exposes a ProgressLedger as a pull-based Prometheus
// collector: no push loop, no background goroutine, Collect just reads the
// ledger's current counters on demand.
type ProgressCollector struct {
	ledger *ProgressLedger
	infos  []progressInfo
}

// NewProgressCollector wires descriptors for every series in the ledger.
func NewProgressCollector(ledger *ProgressLedger) *ProgressCollector {
	c := &ProgressCollector{ledger: ledger}
	c.addMetrics()
	return c
}

func (c *ProgressCollector) addMetrics() {
	c.infos = []progressInfo{
		{
			description: prometheus.NewDesc("diskxfer_bytes_transferred_total", "Total payload bytes read from the source device.", nil, nil),
			supplier: func(s Snapshot) prometheus.Metric {
				return prometheus.MustNewConstMetric(c.infos[0].description, prometheus.CounterValue, float64(s.TotalBytesRead))
			},
		},
		{
			description: prometheus.NewDesc("diskxfer_bytes_per_second", "Last periodic transfer rate estimate.", nil, nil),
			supplier: func(s Snapshot) prometheus.Metric {
				return prometheus.MustNewConstMetric(c.infos[1].description, prometheus.GaugeValue, s.BytesPerSecond)
			},
		},
		{
			description: prometheus.NewDesc("diskxfer_blocks_completed", "Highest block ACK'd or SYN-confirmed.", nil, nil),
			supplier: func(s Snapshot) prometheus.Metric {
				return prometheus.MustNewConstMetric(c.infos[2].description, prometheus.GaugeValue, float64(s.Completed))
			},
		},
		{
			description: prometheus.NewDesc("diskxfer_blocks_current", "Next block the sender intends to transmit.", nil, nil),
			supplier: func(s Snapshot) prometheus.Metric {
				return prometheus.MustNewConstMetric(c.infos[3].description, prometheus.GaugeValue, float64(s.Current))
			},
		},
		{
			description: prometheus.NewDesc("diskxfer_blocks_read", "Highest block read from disk and absorbed into MD5.", nil, nil),
			supplier: func(s Snapshot) prometheus.Metric {
				return prometheus.MustNewConstMetric(c.infos[4].description, prometheus.GaugeValue, float64(s.Read))
			},
		},
		{
			description: prometheus.NewDesc("diskxfer_read_retries_total", "Sector read retries issued by the recovery reader.", nil, nil),
			supplier: func(s Snapshot) prometheus.Metric {
				return prometheus.MustNewConstMetric(c.infos[5].description, prometheus.CounterValue, float64(s.ReadRetries))
			},
		},
		{
			description: prometheus.NewDesc("diskxfer_reconstructed_sectors_total", "Sectors recovered via bit-majority reconstruction.", nil, nil),
			supplier: func(s Snapshot) prometheus.Metric {
				return prometheus.MustNewConstMetric(c.infos[6].description, prometheus.CounterValue, float64(s.Reconstructed))
			},
		},
	}
}

func (c *ProgressCollector) Describe(descs chan<- *prometheus.Desc) {
	for _, info := range c.infos {
		descs <- info.description
	}
}

func (c *ProgressCollector) Collect(metrics chan<- prometheus.Metric) {
	snap := c.ledger.Snapshot()
	for _, info := range c.infos {
		metrics <- info.supplier(snap)
	}
}
