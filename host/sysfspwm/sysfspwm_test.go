//go:build linux

package sysfspwm

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"umdk/core"
)

// fakeChip builds pwmchip<n> under root with npwm channels, exporting the
// listed ones
func fakeChip(t *testing.T, root string, n, npwm int, exported ...int) string {
	t.Helper()
	chip := filepath.Join(root, "pwmchip"+itoa(n))
	if err := os.MkdirAll(chip, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(chip, "npwm"), itoa(npwm)+"\n")
	writeFile(t, filepath.Join(chip, "export"), "")
	for _, ch := range exported {
		dir := filepath.Join(chip, "pwm"+itoa(ch))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, attr := range []string{"enable", "period", "duty_cycle"} {
			writeFile(t, filepath.Join(dir, attr), "0")
		}
	}
	return chip
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func writeFile(t *testing.T, path, s string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readAttr(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}

func TestInit(t *testing.T) {
	d := New(t.TempDir(), []int{0})

	got, err := d.Init(0, core.PWMLeft, 1000, 100)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if got != 1000 {
		t.Errorf("Expected 1000 Hz, got %d", got)
	}

	if _, err := d.Init(1, core.PWMLeft, 1000, 100); err != ErrNoDevice {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
	if _, err := d.Init(0, core.PWMCenter, 1000, 100); err != ErrUnsupportedMode {
		t.Errorf("Expected ErrUnsupportedMode, got %v", err)
	}
	if _, err := d.Init(0, core.PWMLeft, 0, 100); err != ErrBadFrequency {
		t.Errorf("Expected ErrBadFrequency, got %v", err)
	}
}

func TestSetStartStop(t *testing.T) {
	root := t.TempDir()
	chip := fakeChip(t, root, 0, 2, 1)
	d := New(root, []int{0})

	d.Init(0, core.PWMLeft, 1000, 100)
	d.Set(0, 1, 25)

	dir := filepath.Join(chip, "pwm1")
	if p := readAttr(t, filepath.Join(dir, "period")); p != "1000000" {
		t.Errorf("Expected period 1000000, got %q", p)
	}
	if dc := readAttr(t, filepath.Join(dir, "duty_cycle")); dc != "250000" {
		t.Errorf("Expected duty_cycle 250000, got %q", dc)
	}

	d.Start(0, 1)
	if e := readAttr(t, filepath.Join(dir, "enable")); e != "1" {
		t.Errorf("Expected enabled channel, got %q", e)
	}
	if s := d.State(0, 1); s != core.ChannelRunningContinuous {
		t.Errorf("Expected running, got %v", s)
	}

	d.Stop(0, 1)
	if e := readAttr(t, filepath.Join(dir, "enable")); e != "0" {
		t.Errorf("Expected disabled channel, got %q", e)
	}
	if s := d.State(0, 1); s != core.ChannelIdle {
		t.Errorf("Expected idle, got %v", s)
	}
}

func TestDutyClampedToPeriod(t *testing.T) {
	root := t.TempDir()
	chip := fakeChip(t, root, 3, 1, 0)
	d := New(root, []int{3})

	d.Init(0, core.PWMLeft, 50, 100)
	d.Set(0, 0, 250)

	if dc := readAttr(t, filepath.Join(chip, "pwm0", "duty_cycle")); dc != "20000000" {
		t.Errorf("Expected duty clamped to the period, got %q", dc)
	}
}

func TestPulsesFinishOnTheirOwn(t *testing.T) {
	root := t.TempDir()
	chip := fakeChip(t, root, 0, 1, 0)
	d := New(root, []int{0})

	d.Init(0, core.PWMLeft, 1000, 100)
	d.Set(0, 0, 50)
	d.Pulses(0, 0, 5)

	if s := d.State(0, 0); s != core.ChannelRunningFinite {
		t.Fatalf("Expected finite run, got %v", s)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.State(0, 0) != core.ChannelIdle {
		if time.Now().After(deadline) {
			t.Fatal("Finite run did not finish")
		}
		time.Sleep(time.Millisecond)
	}
	if e := readAttr(t, filepath.Join(chip, "pwm0", "enable")); e != "0" {
		t.Errorf("Expected channel disabled after the run, got %q", e)
	}
}

func TestStartSupersedesPulses(t *testing.T) {
	root := t.TempDir()
	fakeChip(t, root, 0, 1, 0)
	d := New(root, []int{0})

	d.Init(0, core.PWMLeft, 1, 100)
	d.Set(0, 0, 50)
	d.Pulses(0, 0, 2)
	d.Start(0, 0)

	if s := d.State(0, 0); s != core.ChannelRunningContinuous {
		t.Errorf("Expected continuous run, got %v", s)
	}
	d.mu.Lock()
	timer := d.channels[key{0, 0}].timer
	d.mu.Unlock()
	if timer != nil {
		t.Error("Expected pending end-of-run timer to be cancelled")
	}
}

func TestFailedInitHoldsChannelLow(t *testing.T) {
	root := t.TempDir()
	chip := fakeChip(t, root, 0, 1, 0)
	d := New(root, []int{0})

	// Never initialized
	d.Pulses(0, 0, 10)
	if s := d.State(0, 0); s != core.ChannelIdle {
		t.Errorf("Expected idle before any Init, got %v", s)
	}

	d.Init(0, core.PWMLeft, 1000, 100)
	d.Set(0, 0, 50)
	d.Start(0, 0)
	if e := readAttr(t, filepath.Join(chip, "pwm0", "enable")); e != "1" {
		t.Fatalf("Expected enabled channel, got %q", e)
	}

	if _, err := d.Init(0, core.PWMCenter, 1000, 100); err != ErrUnsupportedMode {
		t.Fatalf("Expected ErrUnsupportedMode, got %v", err)
	}
	d.Start(0, 0)
	if e := readAttr(t, filepath.Join(chip, "pwm0", "enable")); e != "0" {
		t.Errorf("Expected channel disabled after failed Init, got %q", e)
	}
	if s := d.State(0, 0); s != core.ChannelIdle {
		t.Errorf("Expected idle, got %v", s)
	}
}

func TestWriteAttrSingleWrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "period"), "1000000000")

	if err := writeAttr(dir, "period", "500"); err != nil {
		t.Fatalf("writeAttr failed: %v", err)
	}
	if v := readAttr(t, filepath.Join(dir, "period")); v != "500" {
		t.Errorf("Expected stale bytes truncated, got %q", v)
	}

	err := writeAttr(dir, "missing", "1")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestExport(t *testing.T) {
	root := t.TempDir()
	chip := fakeChip(t, root, 0, 2)
	d := New(root, []int{0})
	d.ExportTimeout = 20 * time.Millisecond

	// Nothing creates pwm1 in a plain directory, so the export times out
	if _, err := d.open(0, 1); err == nil {
		t.Error("Expected export to time out")
	}
	if v := readAttr(t, filepath.Join(chip, "export")); v != "1" {
		t.Errorf("Expected channel 1 written to export, got %q", v)
	}

	if _, err := d.open(0, 2); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("Expected channel count error, got %v", err)
	}
	if _, err := d.open(1, 0); err != ErrNoDevice {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func TestClose(t *testing.T) {
	root := t.TempDir()
	chip := fakeChip(t, root, 0, 2, 0, 1)
	d := New(root, []int{0})

	d.Init(0, core.PWMLeft, 100, 100)
	d.Start(0, 0)
	d.Pulses(0, 1, 1000)

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	for _, ch := range []string{"pwm0", "pwm1"} {
		if e := readAttr(t, filepath.Join(chip, ch, "enable")); e != "0" {
			t.Errorf("%s: expected disabled, got %q", ch, e)
		}
	}
}
