package protocol

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultAckTimeout bounds how long SendCommand waits for the device
const DefaultAckTimeout = 2 * time.Second

// ResponseHandler is called for every non-ACK frame received from the device
type ResponseHandler func(payload []byte)

// HostTransport is the host side of the link. It sends payloads, waits for
// ACKs and collects reply frames.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq atomic.Uint32 // 0x10-0x1F
	framer     Framer

	inputBuffer *FifoBuffer

	ackChan      chan *Message
	responseChan chan *Message

	handlerMu       sync.RWMutex
	responseHandler ResponseHandler

	writeMutex sync.Mutex
	readMutex  sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport creates a new host-side transport and starts reading
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		inputBuffer:  NewFifoBuffer(512),
		ackChan:      make(chan *Message, 1),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	t.currentSeq.Store(MessageDest)

	go t.readLoop()

	return t
}

// SendCommand sends payload to the device and waits for its ACK
func (t *HostTransport) SendCommand(payload []byte) error {
	return t.SendCommandWithTimeout(payload, DefaultAckTimeout)
}

// SendCommandWithTimeout sends payload with a custom ACK timeout
func (t *HostTransport) SendCommandWithTimeout(payload []byte, timeout time.Duration) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	seq := uint8(t.currentSeq.Load())
	msg, err := EncodeMessage(seq, payload)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	// Stale ACKs from an earlier timeout would match the wrong frame
	select {
	case <-t.ackChan:
	default:
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if n != len(msg) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(msg))
	}

	if err := t.waitForAck(seq, timeout); err != nil {
		return fmt.Errorf("ACK timeout or error: %w", err)
	}
	return nil
}

// waitForAck waits for the ACK of the frame sent with seq
func (t *HostTransport) waitForAck(seq uint8, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-t.ackChan:
		expected := nextSeq(seq)
		if ack.Sequence != expected {
			return fmt.Errorf("sequence mismatch: expected 0x%02x, got 0x%02x", expected, ack.Sequence)
		}
		t.currentSeq.Store(uint32(expected))
		return nil

	case <-timer.C:
		return fmt.Errorf("ACK timeout after %v", timeout)

	case <-t.stopChan:
		return ErrStopped
	}
}

// ReceiveResponse receives a reply frame with timeout
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil

	case <-timer.C:
		return nil, fmt.Errorf("response timeout after %v", timeout)

	case <-t.stopChan:
		return nil, ErrStopped
	}
}

// SetResponseHandler sets a callback for handling responses asynchronously
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.handlerMu.Lock()
	t.responseHandler = handler
	t.handlerMu.Unlock()
}

// readLoop continuously reads from the port and processes frames
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.processMessages(buffer[:n])
		}
		if err != nil {
			if err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// processMessages appends data to the input buffer and dispatches every
// complete frame
func (t *HostTransport) processMessages(data []byte) {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	for len(data) > 0 {
		if t.inputBuffer.Free() == 0 {
			// Nothing framed fits; drop and look for the next frame
			t.inputBuffer.Reset()
			t.framer.desynced.Store(true)
		}
		n := t.inputBuffer.Write(data)
		data = data[n:]

		consumed := t.framer.Scan(t.inputBuffer.Data(), t.dispatchMessage, nil)
		t.inputBuffer.Pop(consumed)
	}
}

// dispatchMessage routes a message to the appropriate channel
func (t *HostTransport) dispatchMessage(msg *Message) {
	if msg.IsAck() {
		select {
		case t.ackChan <- msg:
		default:
		}
		return
	}

	t.handlerMu.RLock()
	handler := t.responseHandler
	t.handlerMu.RUnlock()
	if handler != nil {
		handler(msg.Payload)
	}

	select {
	case t.responseChan <- msg:
	default:
		// Channel full, drop the oldest reply
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the transport and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Reset clears sequence and buffered state (useful after errors)
func (t *HostTransport) Reset() {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	t.framer.Reset()
	t.currentSeq.Store(MessageDest)

	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	for len(t.responseChan) > 0 {
		<-t.responseChan
	}
	t.inputBuffer.Reset()
}

// GetCurrentSequence returns the current sequence number (for debugging)
func (t *HostTransport) GetCurrentSequence() uint8 {
	return uint8(t.currentSeq.Load())
}
