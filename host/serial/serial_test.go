package serial

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Baud != DefaultBaud {
		t.Errorf("Expected baud %d, got %d", DefaultBaud, cfg.Baud)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		cfg Config
		err error
	}{
		{Config{Device: "", Baud: 9600}, ErrNoDevice},
		{Config{Device: "/dev/ttyUSB0", Baud: 0}, ErrBadBaud},
		{Config{Device: "/dev/ttyUSB0", Baud: -1}, ErrBadBaud},
		{Config{Device: "COM3", Baud: 9600}, nil},
	}

	for _, tc := range testCases {
		if err := tc.cfg.Validate(); err != tc.err {
			t.Errorf("%+v: expected %v, got %v", tc.cfg, tc.err, err)
		}
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := Open(&Config{Baud: 9600}); err != ErrNoDevice {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}
