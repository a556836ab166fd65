package pwm

import (
	"encoding/binary"
	"errors"
)

// Wire constants
const (
	ModuleID = 14 // PWM entry of the module id table

	OpConfigure = 0x01

	StatusOK   = OpConfigure // an OK reply echoes the command
	StatusFail = 0xFF

	CommandLength = 7
	ReplyLength   = 2

	// Resolution is the number of duty steps per PWM period
	Resolution = 100
)

var (
	ErrMalformedCommand = errors.New("incorrect command")
	ErrUnknownOpcode    = errors.New("unknown command")
)

// Request is a decoded configure command.
//
// Layout on the wire, multi-byte fields big-endian:
//
//	0    opcode (OpConfigure)
//	1    logical pin
//	2-3  frequency, Hz (0 stops the channel)
//	4    duty, percent
//	5-6  pulse count (0 runs continuously)
type Request struct {
	Pin         uint8
	FrequencyHz uint16
	DutyPercent uint8
	PulseCount  uint16
}

// Decode parses a command buffer. Bytes past CommandLength are ignored.
func Decode(b []byte) (Request, error) {
	if len(b) < CommandLength {
		return Request{}, ErrMalformedCommand
	}
	if b[0] != OpConfigure {
		return Request{}, ErrUnknownOpcode
	}
	return Request{
		Pin:         b[1],
		FrequencyHz: binary.BigEndian.Uint16(b[2:4]),
		DutyPercent: b[4],
		PulseCount:  binary.BigEndian.Uint16(b[5:7]),
	}, nil
}

// EncodeRequest builds the command buffer for a request
func EncodeRequest(req Request) []byte {
	b := make([]byte, CommandLength)
	b[0] = OpConfigure
	b[1] = req.Pin
	binary.BigEndian.PutUint16(b[2:4], req.FrequencyHz)
	b[4] = req.DutyPercent
	binary.BigEndian.PutUint16(b[5:7], req.PulseCount)
	return b
}

// Status is the second byte of a reply
type Status uint8

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Reply is the module's answer to a command
type Reply struct {
	ModuleID uint8
	Status   Status
}

// EncodeReply returns the 2-byte reply for a status
func EncodeReply(status Status) []byte {
	return AppendReply(make([]byte, 0, ReplyLength), status)
}

// AppendReply appends the 2-byte reply for a status to dst
func AppendReply(dst []byte, status Status) []byte {
	return append(dst, ModuleID, byte(status))
}

// DecodeReply parses a reply. ok is false if b is not a PWM module reply.
func DecodeReply(b []byte) (Reply, bool) {
	if len(b) < ReplyLength || b[0] != ModuleID {
		return Reply{}, false
	}
	return Reply{ModuleID: b[0], Status: Status(b[1])}, true
}
