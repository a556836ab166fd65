package core

// ChannelState is the observable state of a PWM channel
type ChannelState uint8

const (
	ChannelIdle ChannelState = iota
	ChannelRunningContinuous
	ChannelRunningFinite
)

func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelRunningContinuous:
		return "running"
	case ChannelRunningFinite:
		return "pulses"
	default:
		return "unknown"
	}
}

// PWMCall records one call made on a MockPWMDriver
type PWMCall struct {
	Op      string // "init", "set", "start", "pulses", "stop"
	Device  PWMDevice
	Channel PWMChannel
	Mode    PWMMode
	Freq    uint32
	Res     uint16
	Value   uint16 // duty for "set", count for "pulses"
}

// MockChannel is the state a MockPWMDriver keeps per channel
type MockChannel struct {
	State     ChannelState
	Duty      uint16
	Remaining uint16
}

type mockKey struct {
	dev PWMDevice
	ch  PWMChannel
}

// MockPWMDriver is a PWMDriver that records calls and tracks channel state
// in memory. Finite runs stay in ChannelRunningFinite until Complete is
// called, standing in for the hardware finishing on its own.
type MockPWMDriver struct {
	Calls    []PWMCall
	InitErr  error
	channels map[mockKey]*MockChannel
	freqs    map[PWMDevice]uint32
}

// NewMockPWMDriver creates an empty mock driver
func NewMockPWMDriver() *MockPWMDriver {
	return &MockPWMDriver{
		channels: make(map[mockKey]*MockChannel),
		freqs:    make(map[PWMDevice]uint32),
	}
}

func (d *MockPWMDriver) channel(dev PWMDevice, ch PWMChannel) *MockChannel {
	k := mockKey{dev, ch}
	c, ok := d.channels[k]
	if !ok {
		c = &MockChannel{}
		d.channels[k] = c
	}
	return c
}

// Init implements PWMDriver
func (d *MockPWMDriver) Init(dev PWMDevice, mode PWMMode, freq uint32, res uint16) (uint32, error) {
	d.Calls = append(d.Calls, PWMCall{Op: "init", Device: dev, Mode: mode, Freq: freq, Res: res})
	if d.InitErr != nil {
		delete(d.freqs, dev)
		return 0, d.InitErr
	}
	d.freqs[dev] = freq
	return freq, nil
}

// Set implements PWMDriver
func (d *MockPWMDriver) Set(dev PWMDevice, ch PWMChannel, value uint16) {
	d.Calls = append(d.Calls, PWMCall{Op: "set", Device: dev, Channel: ch, Value: value})
	d.channel(dev, ch).Duty = value
}

// Start implements PWMDriver
func (d *MockPWMDriver) Start(dev PWMDevice, ch PWMChannel) {
	d.Calls = append(d.Calls, PWMCall{Op: "start", Device: dev, Channel: ch})
	c := d.channel(dev, ch)
	c.Remaining = 0
	if _, ok := d.freqs[dev]; !ok {
		c.State = ChannelIdle
		return
	}
	c.State = ChannelRunningContinuous
}

// Pulses implements PWMDriver
func (d *MockPWMDriver) Pulses(dev PWMDevice, ch PWMChannel, count uint16) {
	d.Calls = append(d.Calls, PWMCall{Op: "pulses", Device: dev, Channel: ch, Value: count})
	c := d.channel(dev, ch)
	if _, ok := d.freqs[dev]; !ok || count == 0 {
		c.State = ChannelIdle
		c.Remaining = 0
		return
	}
	c.State = ChannelRunningFinite
	c.Remaining = count
}

// Stop implements PWMDriver
func (d *MockPWMDriver) Stop(dev PWMDevice, ch PWMChannel) {
	d.Calls = append(d.Calls, PWMCall{Op: "stop", Device: dev, Channel: ch})
	c := d.channel(dev, ch)
	c.State = ChannelIdle
	c.Remaining = 0
}

// Complete finishes a finite run as the hardware would
func (d *MockPWMDriver) Complete(dev PWMDevice, ch PWMChannel) {
	c := d.channel(dev, ch)
	if c.State == ChannelRunningFinite {
		c.State = ChannelIdle
		c.Remaining = 0
	}
}

// Channel returns a copy of the tracked channel state
func (d *MockPWMDriver) Channel(dev PWMDevice, ch PWMChannel) MockChannel {
	return *d.channel(dev, ch)
}

// Frequency returns the frequency a device was last initialized with, or
// 0 while it is unconfigured
func (d *MockPWMDriver) Frequency(dev PWMDevice) uint32 {
	return d.freqs[dev]
}

// Reset clears the call log
func (d *MockPWMDriver) Reset() {
	d.Calls = d.Calls[:0]
}
