//go:build rp2040

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// PIO program emitting exactly N PWM cycles.
// Commands are three words pushed in order:
//
//	count-1, low loops, high loops
//
// The high loop count stays in OSR and the low count in ISR so every
// cycle reloads Y from them. Per cycle the pin is high for high+3 ticks
// and low for low+4 ticks. Afterwards the program wraps back to the
// blocking pull with the pin low.
func buildPulseProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                        // 0: pull block
		asm.Out(rp2pio.OutDestX, 32).Encode(),                 // 1: out x, 32 (count-1)
		asm.Pull(false, true).Encode(),                        // 2: pull block
		asm.Mov(rp2pio.MovDestISR, rp2pio.MovSrcOSR).Encode(), // 3: mov isr, osr (low)
		asm.Pull(false, true).Encode(),                        // 4: pull block (high)
		// cycle:
		asm.Set(rp2pio.SetDestPins, 1).Encode(),             // 5: set pins, 1
		asm.Mov(rp2pio.MovDestY, rp2pio.MovSrcOSR).Encode(), // 6: mov y, osr
		asm.Jmp(7, rp2pio.JmpYNZeroDec).Encode(),            // 7: jmp y--, 7
		asm.Set(rp2pio.SetDestPins, 0).Encode(),             // 8: set pins, 0
		asm.Mov(rp2pio.MovDestY, rp2pio.MovSrcISR).Encode(), // 9: mov y, isr
		asm.Jmp(10, rp2pio.JmpYNZeroDec).Encode(),           // 10: jmp y--, 10
		asm.Jmp(5, rp2pio.JmpXNZeroDec).Encode(),            // 11: jmp x--, 5
		// .wrap
	}
}

const (
	pulsePIOOrigin = 0 // Absolute jump targets need offset 0
	highOverhead   = 3
	lowOverhead    = 4
)

var errNoStateMachine = errors.New("no free PIO state machine")

// pulseGenerator hands out one state machine per pin. PIO0 holds the
// program; its four state machines serve up to four pins at a time.
type pulseGenerator struct {
	pio     *rp2pio.PIO
	offset  uint8
	loaded  bool
	owners  [4]machine.Pin
	claimed [4]bool
}

func newPulseGenerator() *pulseGenerator {
	g := &pulseGenerator{pio: rp2pio.PIO0}
	for i := range g.owners {
		g.owners[i] = machine.NoPin
	}
	return g
}

func (g *pulseGenerator) load() error {
	if g.loaded {
		return nil
	}
	offset, err := g.pio.AddProgram(buildPulseProgram(), pulsePIOOrigin)
	if err != nil {
		return err
	}
	g.offset = offset
	g.loaded = true
	return nil
}

// claim returns the state machine index already serving pin, or a free one
func (g *pulseGenerator) claim(pin machine.Pin) (uint8, error) {
	for i, p := range g.owners {
		if p == pin {
			return uint8(i), nil
		}
	}
	for i, p := range g.owners {
		if p != machine.NoPin {
			continue
		}
		// Released state machines stay claimed by us
		if g.claimed[i] || g.pio.StateMachine(uint8(i)).TryClaim() {
			g.claimed[i] = true
			g.owners[i] = pin
			return uint8(i), nil
		}
	}
	return 0, errNoStateMachine
}

// run emits count cycles of high then low system clock ticks on pin
func (g *pulseGenerator) run(pin machine.Pin, high, low, count uint32) error {
	if count == 0 {
		g.stop(pin)
		return nil
	}
	if err := g.load(); err != nil {
		return err
	}
	idx, err := g.claim(pin)
	if err != nil {
		return err
	}
	sm := g.pio.StateMachine(idx)

	high = max(high, highOverhead) - highOverhead
	low = max(low, lowOverhead) - lowOverhead

	pin.Configure(machine.PinConfig{Mode: g.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(g.offset+uint8(len(buildPulseProgram()))-1, g.offset)
	cfg.SetClkDivIntFrac(1, 0)

	// Init also moves the program counter back to the pull
	sm.Init(g.offset, cfg)
	sm.SetPindirsConsecutive(pin, 1, true)
	sm.SetPinsConsecutive(pin, 1, false)
	sm.SetEnabled(true)

	sm.TxPut(count - 1)
	sm.TxPut(low)
	sm.TxPut(high)
	return nil
}

// stop halts any run on pin and releases its state machine
func (g *pulseGenerator) stop(pin machine.Pin) {
	for i, p := range g.owners {
		if p != pin {
			continue
		}
		sm := g.pio.StateMachine(uint8(i))
		sm.SetEnabled(false)
		sm.ClearFIFOs()
		sm.Restart()
		sm.SetPinsConsecutive(pin, 1, false)
		g.owners[i] = machine.NoPin
	}
}
