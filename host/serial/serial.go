package serial

import (
	"errors"
	"io"
)

// Port represents a serial port
type Port interface {
	io.ReadWriteCloser

	// Flush discards data buffered by the driver
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `yaml:"device"`

	// Baud rate; USB CDC devices ignore it
	Baud int `yaml:"baud"`

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int `yaml:"read_timeout"`
}

const DefaultBaud = 115200

var (
	ErrNoDevice = errors.New("serial: no device configured")
	ErrBadBaud  = errors.New("serial: baud rate must be positive")
)

// DefaultConfig returns a default configuration for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}

// Validate checks that the configuration can be opened
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return ErrBadBaud
	}
	return nil
}
