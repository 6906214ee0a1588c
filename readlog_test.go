package diskxfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadLogDedupUpdatesRetryCount(t *testing.T) {
	log := NewReadLog()
	log.Add(10, 1, "read error", 1)
	log.Add(10, 1, "read error", 2)
	log.Add(10, 1, "read error", 3)

	require.Equal(t, 1, log.Len())
	entries := log.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, 3, entries[0].RetryCount)
}

func TestReadLogDistinctSectorAppends(t *testing.T) {
	log := NewReadLog()
	log.Add(10, 1, "a", 1)
	log.Add(11, 1, "b", 1)

	require.Equal(t, 2, log.Len())
}

func TestReadLogDistinctStatusAppendsSameSector(t *testing.T) {
	log := NewReadLog()
	log.Add(10, 1, "retrying", 5)
	log.Add(10, 2, "recovered", 5)

	require.Equal(t, 2, log.Len())
}

func TestReadLogIterateOrderAndNoConsecutiveDuplicates(t *testing.T) {
	log := NewReadLog()
	log.Add(1, 1, "a", 1)
	log.Add(2, 1, "b", 1)
	log.Add(1, 1, "c", 2) // same sector as entry 1 but not consecutive in time; append

	var sectors []int
	log.Iterate(func(e ReadLogEntry) { sectors = append(sectors, e.Sector) })
	require.Equal(t, []int{1, 2, 1}, sectors)
}

func TestReadLogFind(t *testing.T) {
	log := NewReadLog()
	log.Add(5, 1, "x", 1)
	log.Add(6, 1, "y", 1)

	e, ok := log.Find(6)
	require.True(t, ok)
	require.Equal(t, "y", e.StatusMessage)

	_, ok = log.Find(99)
	require.False(t, ok)
}

func TestReadLogEmptyIterate(t *testing.T) {
	log := NewReadLog()
	called := false
	log.Iterate(func(ReadLogEntry) { called = true })
	require.False(t, called)
}
