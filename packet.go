package diskxfer

import "encoding/binary"

// Wire framing constants. SOH marks the start of a SendPacket; the three
// response codes are the only bytes that may open a ControlPacket.
const (
	SOH byte = 0x01
	ACK byte = 0x06
	NAK byte = 0x15
	SYN byte = 0x16

	// StartToken is the single, unframed byte the receiver emits to tell
	// the sender it is alive and ready for CRC-framed blocks.
	StartToken byte = 'C'

	// SectorSize is the fixed payload size of every SendPacket.
	SectorSize = 512

	// SendPacketSize is SOH(1) + block_number(4) + data(512) + crc32(4).
	SendPacketSize = 1 + 4 + SectorSize + 4

	// ControlPacketSize is response_code(1) + block_number(4) + crc32(4).
	ControlPacketSize = 1 + 4 + 4
)

// SendPacket carries one sector's payload from sender to receiver.
type SendPacket struct {
	BlockNumber uint32
	Data        [SectorSize]byte
}

// EncodeSendPacket renders p into its 521-byte wire form. Block number and
// CRC are big-endian.
func EncodeSendPacket(p SendPacket) []byte {
	buf := make([]byte, SendPacketSize)
	buf[0] = SOH
	binary.BigEndian.PutUint32(buf[1:5], p.BlockNumber)
	copy(buf[5:5+SectorSize], p.Data[:])
	crc := checksum32(buf[:5+SectorSize])
	binary.BigEndian.PutUint32(buf[5+SectorSize:], crc)
	return buf
}

// DecodeSendPacket validates and parses a 521-byte frame. It returns false
// if the frame is the wrong length, does not start with SOH, or fails its
// CRC check.
func DecodeSendPacket(buf []byte) (SendPacket, bool) {
	var p SendPacket
	if len(buf) != SendPacketSize {
		return p, false
	}
	if buf[0] != SOH {
		return p, false
	}
	want := binary.BigEndian.Uint32(buf[len(buf)-4:])
	got := checksum32(buf[:len(buf)-4])
	if want != got {
		return p, false
	}
	p.BlockNumber = binary.BigEndian.Uint32(buf[1:5])
	copy(p.Data[:], buf[5:5+SectorSize])
	return p, true
}

// ControlPacket carries an ACK/NAK/SYN response from receiver to sender.
type ControlPacket struct {
	ResponseCode byte
	BlockNumber  uint32
}

// EncodeControlPacket renders c into its 9-byte wire form.
func EncodeControlPacket(c ControlPacket) []byte {
	buf := make([]byte, ControlPacketSize)
	buf[0] = c.ResponseCode
	binary.BigEndian.PutUint32(buf[1:5], c.BlockNumber)
	crc := checksum32(buf[:5])
	binary.BigEndian.PutUint32(buf[5:], crc)
	return buf
}

// DecodeControlPacket validates and parses a 9-byte frame.
func DecodeControlPacket(buf []byte) (ControlPacket, bool) {
	var c ControlPacket
	if len(buf) != ControlPacketSize {
		return c, false
	}
	switch buf[0] {
	case ACK, NAK, SYN:
	default:
		return c, false
	}
	want := binary.BigEndian.Uint32(buf[len(buf)-4:])
	got := checksum32(buf[:len(buf)-4])
	if want != got {
		return c, false
	}
	c.ResponseCode = buf[0]
	c.BlockNumber = binary.BigEndian.Uint32(buf[1:5])
	return c, true
}
