package pwm

import (
	"errors"

	"umdk/core"
)

// ErrPinNotAvailable is returned when no PWM channel is wired to a pin
var ErrPinNotAvailable = errors.New("PWM not available on pin")

// ChannelDescriptor describes one hardware PWM channel and the pin it
// drives
type ChannelDescriptor struct {
	Device  core.PWMDevice
	Channel core.PWMChannel
	Pin     core.GPIOPin
}

// Registry is the static table of PWM devices and their channels.
// It is read-only once built.
type Registry struct {
	devices [][]ChannelDescriptor
}

// NewRegistry builds a registry from per-device channel pin lists.
// devices[d][c] is the pin wired to channel c of device d.
func NewRegistry(devices [][]core.GPIOPin) *Registry {
	r := &Registry{devices: make([][]ChannelDescriptor, len(devices))}
	for d, pins := range devices {
		chans := make([]ChannelDescriptor, len(pins))
		for c, pin := range pins {
			chans[c] = ChannelDescriptor{
				Device:  core.PWMDevice(d),
				Channel: core.PWMChannel(c),
				Pin:     pin,
			}
		}
		r.devices[d] = chans
	}
	return r
}

// NumDevices returns the number of PWM devices
func (r *Registry) NumDevices() int {
	return len(r.devices)
}

// Channels returns every channel in registry order
func (r *Registry) Channels() []ChannelDescriptor {
	var out []ChannelDescriptor
	for _, chans := range r.devices {
		out = append(out, chans...)
	}
	return out
}

// Lookup returns the first channel, in device then channel order, wired to
// pin. A pin wired to several channels resolves to the first of them.
func (r *Registry) Lookup(pin core.GPIOPin) (ChannelDescriptor, bool) {
	for _, chans := range r.devices {
		for _, c := range chans {
			if c.Pin == pin {
				return c, true
			}
		}
	}
	return ChannelDescriptor{}, false
}

// Resolver maps logical pins to PWM channels
type Resolver struct {
	registry *Registry
	pins     core.PinTranslator
}

// NewResolver creates a resolver over a registry and a pin translator
func NewResolver(registry *Registry, pins core.PinTranslator) *Resolver {
	return &Resolver{registry: registry, pins: pins}
}

// Resolve returns the device and channel serving a logical pin
func (r *Resolver) Resolve(logical uint8) (core.PWMDevice, core.PWMChannel, error) {
	pin, ok := r.pins.Translate(logical)
	if !ok {
		return 0, 0, ErrPinNotAvailable
	}
	c, ok := r.registry.Lookup(pin)
	if !ok {
		return 0, 0, ErrPinNotAvailable
	}
	return c.Device, c.Channel, nil
}
