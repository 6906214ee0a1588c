package diskxfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendPacketRoundTrip(t *testing.T) {
	var data [SectorSize]byte
	for i := range data {
		data[i] = byte(i * 3)
	}
	p := SendPacket{BlockNumber: 0x01020304, Data: data}

	wire := EncodeSendPacket(p)
	require.Len(t, wire, SendPacketSize)
	require.Equal(t, SOH, wire[0])

	got, ok := DecodeSendPacket(wire)
	require.True(t, ok)
	require.Equal(t, p, got)
}

func TestSendPacketRejectsBitFlip(t *testing.T) {
	p := SendPacket{BlockNumber: 7}
	wire := EncodeSendPacket(p)
	wire[300] ^= 0x01

	_, ok := DecodeSendPacket(wire)
	require.False(t, ok)
}

func TestSendPacketRejectsWrongLength(t *testing.T) {
	_, ok := DecodeSendPacket(make([]byte, SendPacketSize-1))
	require.False(t, ok)
}

func TestSendPacketRejectsBadSOH(t *testing.T) {
	wire := EncodeSendPacket(SendPacket{BlockNumber: 1})
	wire[0] = 0x02
	_, ok := DecodeSendPacket(wire)
	require.False(t, ok)
}

func TestControlPacketRoundTrip(t *testing.T) {
	for _, code := range []byte{ACK, NAK, SYN} {
		p := ControlPacket{ResponseCode: code, BlockNumber: 42}
		wire := EncodeControlPacket(p)
		require.Len(t, wire, ControlPacketSize)

		got, ok := DecodeControlPacket(wire)
		require.True(t, ok)
		require.Equal(t, p, got)
	}
}

func TestControlPacketRejectsUnknownCode(t *testing.T) {
	wire := EncodeControlPacket(ControlPacket{ResponseCode: ACK, BlockNumber: 1})
	wire[0] = 0x99
	_, ok := DecodeControlPacket(wire)
	require.False(t, ok)
}

func TestControlPacketRejectsBitFlip(t *testing.T) {
	wire := EncodeControlPacket(ControlPacket{ResponseCode: NAK, BlockNumber: 9})
	wire[3] ^= 0x80
	_, ok := DecodeControlPacket(wire)
	require.False(t, ok)
}

func TestSendPacketBigEndianBlockNumber(t *testing.T) {
	wire := EncodeSendPacket(SendPacket{BlockNumber: 0x01020304})
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, wire[1:5])
}

func TestControlPacketBigEndianBlockNumber(t *testing.T) {
	wire := EncodeControlPacket(ControlPacket{ResponseCode: ACK, BlockNumber: 0x0A0B0C0D})
	require.Equal(t, []byte{0x0A, 0x0B, 0x0C, 0x0D}, wire[1:5])
}
