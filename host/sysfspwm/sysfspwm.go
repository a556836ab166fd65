//go:build linux

// Package sysfspwm drives PWM channels exposed under /sys/class/pwm.
//
// Each PWM device is a pwmchip and its channels are the chip's pwmN
// entries. sysfs has no pulse counter, so finite runs are timed: the
// channel is disabled once count periods have elapsed.
package sysfspwm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"umdk/core"
)

var (
	ErrNoDevice        = errors.New("sysfspwm: no such device")
	ErrUnsupportedMode = errors.New("sysfspwm: only left-aligned PWM is supported")
	ErrBadFrequency    = errors.New("sysfspwm: frequency must be > 0")
)

type key struct {
	dev core.PWMDevice
	ch  core.PWMChannel
}

type channel struct {
	dir   string
	state core.ChannelState
	timer *time.Timer
	gen   uint64
}

type device struct {
	chip     int
	periodNS uint64
	res      uint16
}

// Driver implements core.PWMDriver on top of sysfs
type Driver struct {
	root string

	// ExportTimeout bounds the wait for a pwmN directory after export
	ExportTimeout time.Duration

	mu       sync.Mutex
	devices  []device
	channels map[key]*channel
}

// New creates a driver for the given chips. Device i is pwmchip<chips[i]>
// under root.
func New(root string, chips []int) *Driver {
	d := &Driver{
		root:          root,
		ExportTimeout: 500 * time.Millisecond,
		devices:       make([]device, len(chips)),
		channels:      make(map[key]*channel),
	}
	for i, c := range chips {
		d.devices[i] = device{chip: c, res: 1}
	}
	return d
}

func (d *Driver) chipDir(dev core.PWMDevice) string {
	return filepath.Join(d.root, "pwmchip"+strconv.Itoa(d.devices[dev].chip))
}

// Init implements core.PWMDriver. A rejected configuration leaves the
// device unconfigured.
func (d *Driver) Init(dev core.PWMDevice, mode core.PWMMode, freq uint32, res uint16) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if int(dev) >= len(d.devices) {
		return 0, ErrNoDevice
	}
	d.devices[dev].periodNS = 0
	if mode != core.PWMLeft {
		return 0, ErrUnsupportedMode
	}
	if freq == 0 {
		return 0, ErrBadFrequency
	}
	if res == 0 {
		res = 1
	}

	periodNS := uint64(time.Second) / uint64(freq)
	d.devices[dev].periodNS = periodNS
	d.devices[dev].res = res
	return uint32(uint64(time.Second) / periodNS), nil
}

// Set implements core.PWMDriver. The period set by the last Init is
// written together with the duty cycle.
func (d *Driver) Set(dev core.PWMDevice, ch core.PWMChannel, value uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.open(dev, ch)
	if err != nil {
		logError(err)
		return
	}

	devc := d.devices[dev]
	period := devc.periodNS
	if period == 0 {
		return
	}
	duty := period * uint64(min(value, devc.res)) / uint64(devc.res)

	// duty_cycle may never exceed period, whichever is written first
	if err := writeAttr(c.dir, "duty_cycle", "0"); err != nil {
		logError(err)
		return
	}
	if err := writeAttr(c.dir, "period", strconv.FormatUint(period, 10)); err != nil {
		logError(err)
		return
	}
	if err := writeAttr(c.dir, "duty_cycle", strconv.FormatUint(duty, 10)); err != nil {
		logError(err)
	}
}

// Start implements core.PWMDriver
func (d *Driver) Start(dev core.PWMDevice, ch core.PWMChannel) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.open(dev, ch)
	if err != nil {
		logError(err)
		return
	}
	d.cancel(c)
	if d.devices[dev].periodNS == 0 {
		d.disable(c)
		return
	}
	if err := writeAttr(c.dir, "enable", "1"); err != nil {
		logError(err)
		return
	}
	c.state = core.ChannelRunningContinuous
}

// Pulses implements core.PWMDriver
func (d *Driver) Pulses(dev core.PWMDevice, ch core.PWMChannel, count uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.open(dev, ch)
	if err != nil {
		logError(err)
		return
	}
	d.cancel(c)
	if count == 0 || d.devices[dev].periodNS == 0 {
		d.disable(c)
		return
	}
	if err := writeAttr(c.dir, "enable", "1"); err != nil {
		logError(err)
		return
	}
	c.state = core.ChannelRunningFinite

	gen := c.gen
	run := time.Duration(count) * time.Duration(d.devices[dev].periodNS)
	c.timer = time.AfterFunc(run, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if c.gen == gen {
			c.timer = nil
			d.disable(c)
		}
	})
}

// Stop implements core.PWMDriver
func (d *Driver) Stop(dev core.PWMDevice, ch core.PWMChannel) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, err := d.open(dev, ch)
	if err != nil {
		logError(err)
		return
	}
	d.cancel(c)
	d.disable(c)
}

// State returns the observed state of a channel
func (d *Driver) State(dev core.PWMDevice, ch core.PWMChannel) core.ChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.channels[key{dev, ch}]; ok {
		return c.state
	}
	return core.ChannelIdle
}

// Close stops pending finite runs and disables every opened channel
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, c := range d.channels {
		d.cancel(c)
		if err := writeAttr(c.dir, "enable", "0"); err != nil {
			errs = append(errs, err)
		}
		c.state = core.ChannelIdle
	}
	return errors.Join(errs...)
}

// cancel drops any pending end-of-run timer
func (d *Driver) cancel(c *channel) {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (d *Driver) disable(c *channel) {
	if err := writeAttr(c.dir, "enable", "0"); err != nil {
		logError(err)
	}
	c.state = core.ChannelIdle
}

// open returns the channel, exporting it on first use
func (d *Driver) open(dev core.PWMDevice, ch core.PWMChannel) (*channel, error) {
	k := key{dev, ch}
	if c, ok := d.channels[k]; ok {
		return c, nil
	}
	if int(dev) >= len(d.devices) {
		return nil, ErrNoDevice
	}

	chip := d.chipDir(dev)
	dir := filepath.Join(chip, "pwm"+strconv.Itoa(int(ch)))
	if err := d.ensureExported(chip, dir, int(ch)); err != nil {
		return nil, err
	}
	c := &channel{dir: dir}
	d.channels[k] = c
	return c, nil
}

func (d *Driver) ensureExported(chip, dir string, ch int) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}

	n, err := readInt(filepath.Join(chip, "npwm"))
	if err != nil {
		return fmt.Errorf("sysfspwm: read npwm: %w", err)
	}
	if ch >= n {
		return fmt.Errorf("sysfspwm: %s: channel %d exceeds number of channels (%d)", chip, ch, n)
	}

	// Fail now instead of spending writeAttr's retry window on a chip we
	// will never be allowed to export from
	exportPath := filepath.Join(chip, "export")
	if err := unix.Access(exportPath, unix.W_OK); err != nil {
		return fmt.Errorf("sysfspwm: %s not writable: %w", exportPath, err)
	}
	if err := writeAttr(chip, "export", strconv.Itoa(ch)); err != nil {
		// Someone else may have exported it meanwhile
		if _, statErr := os.Stat(dir); statErr == nil {
			return nil
		}
		return fmt.Errorf("sysfspwm: export pwm%d: %w", ch, err)
	}

	deadline := time.Now().Add(d.ExportTimeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(dir); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("sysfspwm: pwm path not created after export: %w", err)
	}
	return nil
}

func logError(err error) {
	core.DebugPrintln("[sysfspwm] " + err.Error())
}

// writeAttr writes one sysfs attribute. Freshly exported attributes may be
// briefly inaccessible until udev has fixed their permissions.
func writeAttr(dir, name, value string) error {
	path := filepath.Join(dir, name)
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := writeOnce(path, value)
		if err == nil {
			return nil
		}
		if time.Now().Before(deadline) && isRetryable(err) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		return err
	}
}

// writeOnce hands the value to the attribute in a single write(2), since
// sysfs parses every write on its own. It opens without O_TRUNC, which some
// attributes reject.
func writeOnce(path, value string) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return &os.PathError{Op: "open", Path: path, Err: err}
	}
	n, werr := unix.Write(fd, []byte(value))
	switch {
	case werr != nil:
		werr = &os.PathError{Op: "write", Path: path, Err: werr}
	case n != len(value):
		werr = &os.PathError{Op: "write", Path: path, Err: io.ErrShortWrite}
	default:
		// Regular files keep stale trailing bytes otherwise; sysfs ignores it
		_ = unix.Ftruncate(fd, int64(len(value)))
	}
	return errors.Join(werr, unix.Close(fd))
}

func isRetryable(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, errors.New("empty")
	}
	return strconv.Atoi(s)
}
