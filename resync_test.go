package diskxfer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendRingScanAfterLeadingGarbage(t *testing.T) {
	ring := newSendRing()
	wire := EncodeSendPacket(SendPacket{BlockNumber: 1})
	garbage := []byte{0xAA, 0xBB, 0xCC}
	stream := append(append([]byte{}, garbage...), wire...)

	src := bytes.NewReader(stream)
	require.NoError(t, ring.Fill(src.Read))

	frames, corrupt := ring.Scan(1)
	require.Len(t, frames, 1)
	require.Equal(t, uint32(1), frames[0].BlockNumber)
	require.False(t, corrupt)
}

// TestSendRingScanSignalsNAKOnCorruptExpectedFrame feeds a valid block 1,
// a block 2 whose payload is corrupted, and a valid block 3. The first
// Scan call must stop as soon as it recognizes the corrupted frame as the
// one it is waiting for (block 2) and report corruptExpected so the
// receiver can NAK immediately; block 3 only surfaces on a later call,
// once the one consumed leading byte has carried the ring past it.
func TestSendRingScanSignalsNAKOnCorruptExpectedFrame(t *testing.T) {
	ring := newSendRing()
	good1 := EncodeSendPacket(SendPacket{BlockNumber: 1})
	corrupt := EncodeSendPacket(SendPacket{BlockNumber: 2})
	corrupt[400] ^= 0xFF
	good3 := EncodeSendPacket(SendPacket{BlockNumber: 3})

	stream := append(append(append([]byte{}, good1...), corrupt...), good3...)
	src := bytes.NewReader(stream)
	require.NoError(t, ring.Fill(src.Read))

	frames, corruptExpected := ring.Scan(1)
	require.Len(t, frames, 1)
	require.Equal(t, uint32(1), frames[0].BlockNumber)
	require.True(t, corruptExpected)

	frames2, corruptExpected2 := ring.Scan(2)
	require.Len(t, frames2, 1)
	require.Equal(t, uint32(3), frames2[0].BlockNumber)
	require.False(t, corruptExpected2)
}

func TestControlResyncTryNextAssemblesFullPacket(t *testing.T) {
	wire := EncodeControlPacket(ControlPacket{ResponseCode: ACK, BlockNumber: 9})
	r := newControlResync(bytes.NewReader(nil))

	idx := 0
	readOneByte := func(buf []byte) (int, error) {
		if idx >= len(wire) {
			return 0, nil
		}
		buf[0] = wire[idx]
		idx++
		return 1, nil
	}

	pkt, ok, err := r.TryNext(readOneByte)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ACK, pkt.ResponseCode)
	require.Equal(t, uint32(9), pkt.BlockNumber)
}

// TestControlResyncTryNextSkipsGarbageByte feeds one leading garbage byte
// ahead of a valid ControlPacket. The first full buffer is rejected (its
// leading 0x00 is not a response code) and the
// resync window shifts by one; a second call, after the trailing wire byte
// becomes available, finds the realigned frame.
func TestControlResyncTryNextSkipsGarbageByte(t *testing.T) {
	wire := EncodeControlPacket(ControlPacket{ResponseCode: NAK, BlockNumber: 3})
	stream := append([]byte{0x00}, wire...)
	r := newControlResync(bytes.NewReader(nil))

	idx := 0
	readOneByte := func(buf []byte) (int, error) {
		if idx >= len(stream) {
			return 0, nil
		}
		buf[0] = stream[idx]
		idx++
		return 1, nil
	}

	var pkt ControlPacket
	var ok bool
	for attempt := 0; attempt < len(stream) && !ok; attempt++ {
		var err error
		pkt, ok, err = r.TryNext(readOneByte)
		require.NoError(t, err)
	}
	require.True(t, ok)
	require.Equal(t, NAK, pkt.ResponseCode)
	require.Equal(t, uint32(3), pkt.BlockNumber)
}
