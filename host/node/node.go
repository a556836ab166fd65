// Package node is the host-side client for a device running module
// firmware.
package node

import (
	"errors"
	"fmt"
	"io"
	"time"

	"umdk/host/serial"
	"umdk/modules/pwm"
	"umdk/protocol"
)

var (
	ErrNotConnected = errors.New("not connected to node")
	ErrNoReply      = errors.New("node sent no reply")
	ErrBadReply     = errors.New("malformed reply")
)

// DefaultReplyTimeout is how long to wait for a reply once the command
// has been acknowledged. Replies precede the ACK on the wire.
const DefaultReplyTimeout = 50 * time.Millisecond

// Node represents a connection to a device
type Node struct {
	transport *protocol.HostTransport

	// ReplyTimeout overrides DefaultReplyTimeout when set
	ReplyTimeout time.Duration

	connected bool
}

// New creates a Node (not yet connected)
func New() *Node {
	return &Node{}
}

// Connect connects to a node via serial port
func (n *Node) Connect(device string) error {
	return n.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to a node with a custom serial config
func (n *Node) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	n.Attach(port)

	// Give the device time to initialize if it just powered on
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Attach runs the link over an already open port
func (n *Node) Attach(port io.ReadWriteCloser) {
	n.transport = protocol.NewHostTransport(port)
	n.connected = true
}

// Close closes the connection to the node
func (n *Node) Close() error {
	if !n.connected {
		return nil
	}
	n.connected = false
	return n.transport.Close()
}

// IsConnected returns whether the node is connected
func (n *Node) IsConnected() bool {
	return n.connected
}

// SendModule sends data to the module with the given id and returns the
// module's reply, without the link framing
func (n *Node) SendModule(id uint8, data []byte) ([]byte, error) {
	if !n.connected {
		return nil, ErrNotConnected
	}

	payload := append([]byte{id}, data...)
	if err := n.transport.SendCommand(payload); err != nil {
		return nil, fmt.Errorf("failed to send command to module %d: %w", id, err)
	}

	timeout := n.ReplyTimeout
	if timeout == 0 {
		timeout = DefaultReplyTimeout
	}
	resp, err := n.transport.ReceiveResponse(timeout)
	if err != nil {
		return nil, fmt.Errorf("module %d: %w", id, ErrNoReply)
	}
	return resp.Payload, nil
}

// ConfigurePWM sends a PWM configure command and returns the reply status
func (n *Node) ConfigurePWM(req pwm.Request) (pwm.Status, error) {
	reply, err := n.SendModule(pwm.ModuleID, pwm.EncodeRequest(req))
	if err != nil {
		return 0, err
	}
	r, ok := pwm.DecodeReply(reply)
	if !ok {
		return 0, fmt.Errorf("%w: % X", ErrBadReply, reply)
	}
	return r.Status, nil
}
