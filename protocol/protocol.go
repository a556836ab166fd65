// Package protocol implements the framed serial link that carries module
// commands between a host and a device.
//
// Frame layout:
//
//	[len][seq][payload...][crc hi][crc lo][0x7E]
//
// len counts the whole frame. seq carries MessageDest in the high nibble
// and a 4-bit sequence number. A frame with an empty payload is an ACK;
// its sequence is the next one the device expects.
package protocol

// Version represents the link protocol version
const Version = "0.1.0"

const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// Message represents a parsed frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
	CRC      uint16
}

// IsAck reports whether the frame is an ACK/NAK
func (m *Message) IsAck() bool {
	return len(m.Payload) == 0
}

// EncodeMessage builds a complete frame around payload
func EncodeMessage(seq uint8, payload []byte) ([]byte, error) {
	msgLen := MessageLengthMin + len(payload)
	if msgLen > MessageLengthMax {
		return nil, ErrMessageTooLong
	}
	frame := make([]byte, 0, msgLen)
	frame = append(frame, uint8(msgLen), seq)
	frame = append(frame, payload...)
	frame = appendCRC16(frame)
	return append(frame, MessageValueSync), nil
}

// nextSeq advances a sequence byte, wrapping within MessageSeqMask
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
