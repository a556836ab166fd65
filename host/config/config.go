// Package config loads the Linux node configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"umdk/core"
	"umdk/host/serial"
)

const (
	BackendSysfs = "sysfs"
	BackendMock  = "mock"

	DefaultSysfsRoot = "/sys/class/pwm"
)

type Config struct {
	Serial    serial.Config  `yaml:"serial"`
	Backend   string         `yaml:"backend"`
	SysfsRoot string         `yaml:"sysfs_root"`
	Debug     bool           `yaml:"debug"`
	Pins      []int64        `yaml:"pins"`
	Devices   []DeviceConfig `yaml:"devices"`
}

// DeviceConfig describes one PWM device. With the sysfs backend a device
// is a pwmchip and its channels are that chip's pwmN entries.
type DeviceConfig struct {
	Chip int     `yaml:"chip"`
	Pins []int64 `yaml:"pins"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes a YAML document, applies defaults and validates the result
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Serial.Device == "" {
		return Config{}, fmt.Errorf("serial.device is required")
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = serial.DefaultBaud
	}
	if cfg.Serial.Baud < 0 {
		return Config{}, fmt.Errorf("serial.baud must be > 0")
	}
	if cfg.Serial.ReadTimeout < 0 {
		return Config{}, fmt.Errorf("serial.read_timeout must be >= 0")
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendSysfs
	}
	switch cfg.Backend {
	case BackendSysfs, BackendMock:
	default:
		return Config{}, fmt.Errorf("backend must be %q or %q, got %q", BackendSysfs, BackendMock, cfg.Backend)
	}
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = DefaultSysfsRoot
	}

	if len(cfg.Devices) == 0 {
		return Config{}, fmt.Errorf("devices must list at least one PWM device")
	}
	for i, d := range cfg.Devices {
		if len(d.Pins) == 0 {
			return Config{}, fmt.Errorf("devices[%d].pins must list at least one channel", i)
		}
		if d.Chip < 0 {
			return Config{}, fmt.Errorf("devices[%d].chip must be >= 0", i)
		}
		for j, p := range d.Pins {
			if !validPin(p) {
				return Config{}, fmt.Errorf("devices[%d].pins[%d]: pin %d out of range", i, j, p)
			}
		}
	}

	if len(cfg.Pins) > 256 {
		return Config{}, fmt.Errorf("pins maps at most 256 logical pins, got %d", len(cfg.Pins))
	}
	for i, p := range cfg.Pins {
		if !validPin(p) {
			return Config{}, fmt.Errorf("pins[%d]: pin %d out of range", i, p)
		}
	}

	return cfg, nil
}

// validPin accepts GPIO numbers and -1 for "not routed"
func validPin(p int64) bool {
	return p >= -1 && p < int64(core.PinUndef)
}

func toGPIO(p int64) core.GPIOPin {
	if p < 0 {
		return core.PinUndef
	}
	return core.GPIOPin(p)
}

// Channels returns the wired pin of every channel, grouped by device
func (c Config) Channels() [][]core.GPIOPin {
	out := make([][]core.GPIOPin, len(c.Devices))
	for i, d := range c.Devices {
		out[i] = make([]core.GPIOPin, len(d.Pins))
		for j, p := range d.Pins {
			out[i][j] = toGPIO(p)
		}
	}
	return out
}

// Chips returns the sysfs chip number of every device
func (c Config) Chips() []int {
	out := make([]int, len(c.Devices))
	for i, d := range c.Devices {
		out[i] = d.Chip
	}
	return out
}

// PinMap returns the logical pin translator. Without a pins table logical
// pins are GPIO numbers.
func (c Config) PinMap() core.PinTranslator {
	if len(c.Pins) == 0 {
		return core.IdentityPins{}
	}
	table := make(core.PinTable, len(c.Pins))
	for i, p := range c.Pins {
		table[i] = toGPIO(p)
	}
	return table
}
