package diskxfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeometryCHSRoundTrip(t *testing.T) {
	g := Geometry{Cylinders: 10, Heads: 4, SectorsPerTrack: 63}
	for _, linear := range []int{0, 1, 62, 63, 64, 251, 2519} {
		c, h, s := g.CHS(linear)
		require.GreaterOrEqual(t, s, 1)
		require.Less(t, s, g.SectorsPerTrack+1)
		require.Less(t, h, g.Heads)
		require.Less(t, c, g.Cylinders)

		// Recompute the linear index from the tuple the way a caller
		// converting back to a byte offset would, and confirm it
		// matches what CHS was given.
		recomputed := c*(g.SectorsPerTrack*g.Heads) + h*g.SectorsPerTrack + (s - 1)
		require.Equal(t, linear, recomputed)
	}
}

func TestGeometryTotalSectorsAndBytes(t *testing.T) {
	g := Geometry{Cylinders: 2, Heads: 2, SectorsPerTrack: 4}
	require.Equal(t, 2*2*4-1, g.TotalSectors())
	require.Equal(t, int64(2*2*4*SectorSize), g.TotalBytes())
}
