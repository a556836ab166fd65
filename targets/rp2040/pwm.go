//go:build rp2040

package main

import (
	"errors"
	"machine"
	"math"

	"tinygo.org/x/drivers/servo"

	"umdk/core"
)

const numSlices = 8

var (
	errNoSlice = errors.New("no such PWM slice")
	errMode    = errors.New("only left-aligned PWM is supported")
	errFreq    = errors.New("frequency must be > 0")
)

// continuousCycles keeps a PIO run going for years even at 1 Hz
const continuousCycles = math.MaxUint32

// RP2040PWMDriver implements core.PWMDriver on the RP2040's eight PWM
// slices. Continuous output runs on the slice itself; finite runs are
// handed to a PIO pulse generator, since slices cannot count cycles.
// Frequencies below the slice's range (about 8 Hz at 125 MHz) run on the
// PIO generator in both modes.
type RP2040PWMDriver struct {
	slices  [numSlices]servo.PWM
	periods [numSlices]uint64 // ns, 0 while unconfigured
	pioOnly [numSlices]bool
	res     [numSlices]uint16
	duty    [numSlices][2]uint16
	pins    [][]core.GPIOPin

	pulses *pulseGenerator
}

// NewRP2040PWMDriver creates a driver for the given slice wiring
func NewRP2040PWMDriver(pins [][]core.GPIOPin) *RP2040PWMDriver {
	d := &RP2040PWMDriver{
		slices: [numSlices]servo.PWM{
			machine.PWM0, machine.PWM1, machine.PWM2, machine.PWM3,
			machine.PWM4, machine.PWM5, machine.PWM6, machine.PWM7,
		},
		pins:   pins,
		pulses: newPulseGenerator(),
	}
	for i := range d.res {
		d.res[i] = 1
	}
	return d
}

func (d *RP2040PWMDriver) pin(dev core.PWMDevice, ch core.PWMChannel) (machine.Pin, bool) {
	if int(dev) >= len(d.pins) || int(ch) >= len(d.pins[dev]) || ch > 1 {
		return machine.NoPin, false
	}
	p := d.pins[dev][ch]
	if p == core.PinUndef {
		return machine.NoPin, false
	}
	return machine.Pin(p), true
}

// Init implements core.PWMDriver. The new period applies to both outputs
// of the slice. On error the slice is left unconfigured.
func (d *RP2040PWMDriver) Init(dev core.PWMDevice, mode core.PWMMode, freq uint32, res uint16) (uint32, error) {
	if dev >= numSlices {
		return 0, errNoSlice
	}
	d.periods[dev] = 0
	if mode != core.PWMLeft {
		return 0, errMode
	}
	if freq == 0 {
		return 0, errFreq
	}
	if res == 0 {
		res = 1
	}

	period := 1000000000 / uint64(freq)
	d.pioOnly[dev] = false
	if err := d.slices[dev].Configure(machine.PWMConfig{Period: period}); err != nil {
		if _, _, ok := core.PeriodTicks(period, machine.CPUFrequency(), 0, res); !ok {
			return 0, err
		}
		d.pioOnly[dev] = true
	}
	d.periods[dev] = period
	d.res[dev] = res
	return uint32(1000000000 / period), nil
}

// Set implements core.PWMDriver
func (d *RP2040PWMDriver) Set(dev core.PWMDevice, ch core.PWMChannel, value uint16) {
	if dev >= numSlices || ch > 1 {
		return
	}
	d.duty[dev][ch] = min(value, d.res[dev])
}

// level scales the stored duty to the slice's counter range
func (d *RP2040PWMDriver) level(dev core.PWMDevice, ch core.PWMChannel) uint32 {
	top := uint64(d.slices[dev].Top())
	return uint32(top * uint64(d.duty[dev][ch]) / uint64(d.res[dev]))
}

// holdLow hands the pin back to the slice with a zero compare level
func (d *RP2040PWMDriver) holdLow(dev core.PWMDevice, pin machine.Pin) {
	if hwch, err := d.slices[dev].Channel(pin); err == nil {
		d.slices[dev].Set(hwch, 0)
	}
}

// runPIO emits cycles periods of the channel's waveform on the PIO generator
func (d *RP2040PWMDriver) runPIO(dev core.PWMDevice, ch core.PWMChannel, pin machine.Pin, cycles uint32) {
	high, low, ok := core.PeriodTicks(d.periods[dev], machine.CPUFrequency(), d.duty[dev][ch], d.res[dev])
	if !ok || high == 0 {
		d.pulses.stop(pin)
		return
	}
	if err := d.pulses.run(pin, high, low, cycles); err != nil {
		core.DebugPrintln("[rp2040] PIO: " + err.Error())
	}
}

// Start implements core.PWMDriver
func (d *RP2040PWMDriver) Start(dev core.PWMDevice, ch core.PWMChannel) {
	pin, ok := d.pin(dev, ch)
	if !ok {
		return
	}
	if d.periods[dev] == 0 {
		d.pulses.stop(pin)
		d.holdLow(dev, pin)
		return
	}
	if d.pioOnly[dev] {
		d.holdLow(dev, pin)
		d.runPIO(dev, ch, pin, continuousCycles)
		return
	}
	d.pulses.stop(pin)

	// Channel hands the pin back to the slice
	hwch, err := d.slices[dev].Channel(pin)
	if err != nil {
		core.DebugPrintln("[rp2040] PWM channel: " + err.Error())
		return
	}
	d.slices[dev].Set(hwch, d.level(dev, ch))
}

// Pulses implements core.PWMDriver
func (d *RP2040PWMDriver) Pulses(dev core.PWMDevice, ch core.PWMChannel, count uint16) {
	pin, ok := d.pin(dev, ch)
	if !ok {
		return
	}
	d.holdLow(dev, pin)
	if count == 0 || d.periods[dev] == 0 {
		d.pulses.stop(pin)
		return
	}
	d.runPIO(dev, ch, pin, uint32(count))
}

// Stop implements core.PWMDriver
func (d *RP2040PWMDriver) Stop(dev core.PWMDevice, ch core.PWMChannel) {
	pin, ok := d.pin(dev, ch)
	if !ok {
		return
	}
	d.pulses.stop(pin)
	d.holdLow(dev, pin)
}
