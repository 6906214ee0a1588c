package diskxfer

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestProgressLedgerRecordBlockAccumulatesBytes(t *testing.T) {
	p := NewProgressLedger()
	p.Start(115200)
	for i := 0; i < 10; i++ {
		p.RecordBlock()
	}
	snap := p.Snapshot()
	require.Equal(t, int64(10*SectorSize), snap.TotalBytesRead)
}

func TestProgressLedgerInitialRateFromBaud(t *testing.T) {
	p := NewProgressLedger()
	p.Start(115200)
	snap := p.Snapshot()
	want := float64(115200) / 9 / float64(SendPacketSize) * SectorSize
	require.InDelta(t, want, snap.BytesPerSecond, 0.001)
}

func TestProgressCollectorDescribeAndCollect(t *testing.T) {
	p := NewProgressLedger()
	p.Start(9600)
	p.RecordBlock()
	p.AddRetry()
	p.AddReconstructed()

	c := NewProgressCollector(p)

	descs := make(chan *prometheus.Desc, 16)
	go func() {
		c.Describe(descs)
		close(descs)
	}()
	var gotDescs int
	for range descs {
		gotDescs++
	}
	require.Equal(t, 7, gotDescs)

	metrics := make(chan prometheus.Metric, 16)
	go func() {
		c.Collect(metrics)
		close(metrics)
	}()
	var gotMetrics int
	for range metrics {
		gotMetrics++
	}
	require.Equal(t, 7, gotMetrics)
}

func TestProgressCollectorRegistersCleanly(t *testing.T) {
	p := NewProgressLedger()
	p.Start(115200)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewProgressCollector(p)))
}
