package pwm

import (
	"umdk/core"
)

// Controller drives PWM channels through the capability
type Controller struct {
	drv core.PWMDriver
}

// NewController creates a controller over a PWM driver
func NewController(drv core.PWMDriver) *Controller {
	return &Controller{drv: drv}
}

// Apply configures a channel.
//
// freq == 0 stops the channel; duty and pulses are ignored.
// Otherwise the device is reinitialized at freq with Resolution steps, the
// duty is set, and the channel runs continuously (pulses == 0) or for
// exactly pulses cycles. A running channel is always reconfigured.
func (c *Controller) Apply(dev core.PWMDevice, ch core.PWMChannel, freq uint16, duty uint8, pulses uint16) {
	tag := "[umdk-pwm] PWM " + core.Utoa(uint32(dev)) + ":" + core.Utoa(uint32(ch))

	if freq == 0 {
		c.drv.Stop(dev, ch)
		core.DebugPrintln(tag + " stopped")
		return
	}

	if _, err := c.drv.Init(dev, core.PWMLeft, uint32(freq), Resolution); err != nil {
		// Replies carry no driver errors
		core.DebugPrintln(tag + " init failed: " + err.Error())
	}
	c.drv.Set(dev, ch, uint16(duty))

	if pulses == 0 {
		c.drv.Start(dev, ch)
	} else {
		c.drv.Pulses(dev, ch, pulses)
	}

	core.DebugPrintln(tag + " started")
	core.DebugPrintln("F " + core.Utoa(uint32(freq)) + " Hz, D " + core.Utoa(uint32(duty)) +
		" %, N " + core.Utoa(uint32(pulses)))
}
