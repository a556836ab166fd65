package protocol

import "sync/atomic"

// FrameHandler handles the payload of one in-sequence frame. It returns the
// reply payload and whether the payload was handled at all.
type FrameHandler func(payload []byte) (reply []byte, handled bool)

// Transport is the device side of the link
type Transport struct {
	framer       Framer
	nextSequence atomic.Uint32 // expected sequence from host (0x10-0x1F)

	output        OutputBuffer
	handler       FrameHandler
	resetCallback func() // Called when host reset is detected
	flushCallback func() // Called to push ACKs out immediately
}

// NewTransport creates a new Transport instance
func NewTransport(output OutputBuffer, handler FrameHandler) *Transport {
	t := &Transport{
		output:  output,
		handler: handler,
	}
	t.nextSequence.Store(MessageDest)
	return t
}

// Receive processes incoming data from the input buffer
func (t *Transport) Receive(input InputBuffer) {
	consumed := t.framer.Scan(input.Data(), t.handleMessage, t.encodeAckNak)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) handleMessage(msg *Message) {
	seq := msg.Sequence

	// Sequence back at MessageDest means the host restarted
	expectedSeq := uint8(t.nextSequence.Load())
	if seq == MessageDest && expectedSeq != MessageDest {
		t.nextSequence.Store(MessageDest)
		expectedSeq = MessageDest
		if t.resetCallback != nil {
			t.resetCallback()
		}
	}

	if seq == expectedSeq {
		t.nextSequence.Store(uint32(nextSeq(seq)))
		t.parseFrame(msg.Payload)
	}

	// Out-of-sequence frames still get an ACK, which then acts as a NAK
	t.encodeAckNak()
}

// parseFrame hands the payload to the handler and queues its reply
func (t *Transport) parseFrame(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.framer.desynced.Store(true)
		}
	}()

	if t.handler == nil || len(payload) == 0 {
		return
	}
	reply, handled := t.handler(payload)
	if !handled || len(reply) == 0 {
		return
	}
	t.SendFrame(reply)
}

// SendFrame queues a frame carrying payload. Frames share the sequence of
// the next ACK.
func (t *Transport) SendFrame(payload []byte) error {
	frame, err := EncodeMessage(uint8(t.nextSequence.Load()), payload)
	if err != nil {
		return err
	}
	t.output.Output(frame)
	return nil
}

// encodeAckNak sends an ACK carrying the next expected sequence
func (t *Transport) encodeAckNak() {
	ns := uint8(t.nextSequence.Load())
	ack, _ := EncodeMessage(ns, nil)
	t.output.Output(ack)

	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// Reset resets the transport state (useful after USB disconnect/reconnect)
func (t *Transport) Reset() {
	t.framer.Reset()
	t.nextSequence.Store(MessageDest)

	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// Synchronized reports whether the receiver is locked onto frame boundaries
func (t *Transport) Synchronized() bool {
	return t.framer.Synchronized()
}

// SetResetCallback sets a callback to be called when host reset is detected
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback sets a callback to immediately flush ACK messages
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
