package config

import (
	"os"
	"path/filepath"
	"testing"

	"umdk/core"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

const minimal = `
serial:
  device: /dev/ttyGS0
devices:
  - chip: 0
    pins: [18, 19]
`

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("baud=%d want 115200", cfg.Serial.Baud)
	}
	if cfg.Backend != BackendSysfs {
		t.Errorf("backend=%q want %q", cfg.Backend, BackendSysfs)
	}
	if cfg.SysfsRoot != DefaultSysfsRoot {
		t.Errorf("sysfs_root=%q want %q", cfg.SysfsRoot, DefaultSysfsRoot)
	}
	if _, ok := cfg.PinMap().(core.IdentityPins); !ok {
		t.Errorf("expected identity pin map without a pins table, got %T", cfg.PinMap())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "RequiresDevice",
			doc:  "devices: [{pins: [1]}]\n",
			want: "serial.device is required",
		},
		{
			name: "RejectsNegativeBaud",
			doc:  "serial: {device: x, baud: -5}\ndevices: [{pins: [1]}]\n",
			want: "serial.baud must be > 0",
		},
		{
			name: "RejectsUnknownBackend",
			doc:  "serial: {device: x}\nbackend: gpio\ndevices: [{pins: [1]}]\n",
			want: `backend must be "sysfs" or "mock", got "gpio"`,
		},
		{
			name: "RequiresDevices",
			doc:  "serial: {device: x}\n",
			want: "devices must list at least one PWM device",
		},
		{
			name: "RequiresChannels",
			doc:  "serial: {device: x}\ndevices: [{chip: 1}]\n",
			want: "devices[0].pins must list at least one channel",
		},
		{
			name: "RejectsNegativeChip",
			doc:  "serial: {device: x}\ndevices: [{chip: -1, pins: [2]}]\n",
			want: "devices[0].chip must be >= 0",
		},
		{
			name: "RejectsBadChannelPin",
			doc:  "serial: {device: x}\ndevices: [{pins: [2, -7]}]\n",
			want: "devices[0].pins[1]: pin -7 out of range",
		},
		{
			name: "RejectsBadLogicalPin",
			doc:  "serial: {device: x}\npins: [4, 99999999999]\ndevices: [{pins: [2]}]\n",
			want: "pins[1]: pin 99999999999 out of range",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestParse_Tables(t *testing.T) {
	cfg, err := Parse([]byte(`
serial:
  device: /dev/ttyAMA0
  baud: 9600
  read_timeout: 50
backend: mock
debug: true
pins: [-1, 18, 13]
devices:
  - chip: 0
    pins: [18, 19]
  - chip: 2
    pins: [13, -1]
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Serial.Baud != 9600 || cfg.Serial.ReadTimeout != 50 || !cfg.Debug {
		t.Errorf("unexpected config %+v", cfg)
	}

	chans := cfg.Channels()
	if len(chans) != 2 || chans[0][1] != 19 || chans[1][1] != core.PinUndef {
		t.Errorf("unexpected channels %v", chans)
	}
	if chips := cfg.Chips(); chips[0] != 0 || chips[1] != 2 {
		t.Errorf("unexpected chips %v", chips)
	}

	pins := cfg.PinMap()
	if _, ok := pins.Translate(0); ok {
		t.Error("logical pin 0 should not be routed")
	}
	if p, ok := pins.Translate(2); !ok || p != 13 {
		t.Errorf("logical pin 2 = %d, %v; want 13", p, ok)
	}
}
