package protocol

import (
	"errors"
	"sync/atomic"
)

var (
	ErrMessageTooLong = errors.New("message too long")
	ErrStopped        = errors.New("transport stopped")
)

// Framer splits a byte stream into frames. It drops out of sync on any
// malformed frame and resynchronizes on the next sync byte.
type Framer struct {
	desynced atomic.Bool
}

// Synchronized reports whether the framer is locked onto frame boundaries
func (f *Framer) Synchronized() bool {
	return !f.desynced.Load()
}

// Reset forces the framer back into the synchronized state
func (f *Framer) Reset() {
	f.desynced.Store(false)
}

// Scan consumes complete frames from data, calling onFrame for each valid
// frame and onResync whenever sync is regained after garbage. It returns the
// number of bytes consumed; the rest is an incomplete frame.
func (f *Framer) Scan(data []byte, onFrame func(*Message), onResync func()) int {
	total := len(data)

	for len(data) > 0 {
		if f.desynced.Load() {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			f.desynced.Store(false)
			if onResync != nil {
				onResync()
			}
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			f.desynced.Store(true)
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			f.desynced.Store(true)
			continue
		}

		// Wait for the full frame
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			f.desynced.Store(true)
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			f.desynced.Store(true)
			continue
		}

		payload := make([]byte, msgLen-MessageLengthMin)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		msg := &Message{
			Length:   uint8(msgLen),
			Sequence: seq,
			Payload:  payload,
			CRC:      frameCRC,
		}
		data = data[msgLen:]

		if onFrame != nil {
			onFrame(msg)
		}
	}

	return total - len(data)
}
