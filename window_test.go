package diskxfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSenderWindowPutGet(t *testing.T) {
	w := NewSenderWindow()
	p := SendPacket{BlockNumber: 5}
	w.Put(p)

	got, ok := w.Get(5)
	require.True(t, ok)
	require.Equal(t, p, got)
}

func TestSenderWindowMissOnEmptySlot(t *testing.T) {
	w := NewSenderWindow()
	_, ok := w.Get(0)
	require.False(t, ok)
}

func TestSenderWindowStaleSlotAfterWraparound(t *testing.T) {
	w := NewSenderWindow()
	w.Put(SendPacket{BlockNumber: 1}) // slot 1
	_, ok := w.Get(1 + MaxBufferedSendPackets)
	require.False(t, ok, "slot still holds the older block number, must report a miss")
}

func TestSenderWindowOverwriteSameSlot(t *testing.T) {
	w := NewSenderWindow()
	w.Put(SendPacket{BlockNumber: 1})
	w.Put(SendPacket{BlockNumber: 1 + MaxBufferedSendPackets})

	got, ok := w.Get(1 + MaxBufferedSendPackets)
	require.True(t, ok)
	require.Equal(t, uint32(1+MaxBufferedSendPackets), got.BlockNumber)

	_, ok = w.Get(1)
	require.False(t, ok)
}
