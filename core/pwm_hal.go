package core

// PWMDevice identifies a PWM peripheral (timer block, slice, pwmchip)
type PWMDevice uint8

// PWMChannel identifies one output of a PWM device
type PWMChannel uint8

// PWMMode selects the waveform alignment
type PWMMode uint8

const (
	PWMLeft PWMMode = iota
	PWMRight
	PWMCenter
)

// PWMDriver is the abstract PWM capability that module code uses.
// Platform-specific implementations handle actual hardware control.
//
// A channel emits nothing until Start or Pulses is called. After Pulses,
// the hardware emits exactly count cycles and returns to idle on its own.
type PWMDriver interface {
	// Init (re)initializes a device for the given frequency and resolution
	// (number of duty steps per period). Returns the frequency actually
	// achieved by the hardware. When Init fails the device is unconfigured:
	// Start and Pulses hold its channels low until a later Init succeeds.
	Init(dev PWMDevice, mode PWMMode, freq uint32, res uint16) (uint32, error)

	// Set sets the duty cycle of a channel, 0..res
	Set(dev PWMDevice, ch PWMChannel, value uint16)

	// Start emits the waveform continuously
	Start(dev PWMDevice, ch PWMChannel)

	// Pulses emits exactly count waveform cycles, then idles
	Pulses(dev PWMDevice, ch PWMChannel, count uint16)

	// Stop stops any waveform on the channel
	Stop(dev PWMDevice, ch PWMChannel)
}

// Global singleton used by modules registered through Init* helpers.
var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("PWM driver not configured")
	}
	return pwmDriver
}
