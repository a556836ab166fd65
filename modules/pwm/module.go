// Package pwm implements the PWM actuator module.
//
// The module accepts a 7-byte configure command, checks that the requested
// logical pin is wired to a hardware PWM channel, configures the channel's
// frequency, duty cycle and pulse count, and answers with a 2-byte reply.
package pwm

import (
	"umdk/core"
)

// Name is the module name used for registration and the shell command
const Name = "pwm"

const shellHelp = "type '" + Name + "' for commands list"

// Module ties the codec, resolver and controller together
type Module struct {
	resolver   *Resolver
	controller *Controller
}

// New creates a module. The registry and pin map are injected and never
// modified.
func New(registry *Registry, pins core.PinTranslator, drv core.PWMDriver) *Module {
	return &Module{
		resolver:   NewResolver(registry, pins),
		controller: NewController(drv),
	}
}

// Handle processes one command. It returns false, leaving reply untouched,
// for well-formed commands with an opcode other than OpConfigure.
func (m *Module) Handle(cmd []byte, reply *core.ModuleData) bool {
	req, err := Decode(cmd)
	switch err {
	case nil:
	case ErrUnknownOpcode:
		return false
	default:
		core.DebugPrintln("[umdk-pwm] Incorrect command")
		replyFail(reply)
		return true
	}

	dev, ch, err := m.resolver.Resolve(req.Pin)
	if err != nil {
		core.DebugPrintln("[umdk-pwm] PWM not available on pin " + core.Utoa(uint32(req.Pin)))
		replyFail(reply)
		return true
	}

	m.controller.Apply(dev, ch, req.FrequencyHz, req.DutyPercent, req.PulseCount)
	replyOK(reply)
	return true
}

func replyFail(reply *core.ModuleData) {
	if reply != nil {
		reply.Set(EncodeReply(StatusFail)...)
	}
}

func replyOK(reply *core.ModuleData) {
	if reply != nil {
		reply.Set(EncodeReply(StatusOK)...)
	}
}

// Register adds the module and its shell command to the given registries
func (m *Module) Register(modules *core.ModuleRegistry, shell *core.ShellRegistry) error {
	if err := modules.Register(Name, ModuleID, m.Handle); err != nil {
		return err
	}
	shell.Register(Name, shellHelp, m.ShellCommand)
	core.DebugPrintln("[umdk-pwm] PWM is ready")
	return nil
}

// InitModule builds the module on the global PWM driver and pin map and
// registers it with the global registries
func InitModule(registry *Registry) (*Module, error) {
	m := New(registry, core.MustPins(), core.MustPWM())
	if err := core.RegisterModule(Name, ModuleID, m.Handle); err != nil {
		return nil, err
	}
	core.RegisterShellCommand(Name, shellHelp, m.ShellCommand)
	core.DebugPrintln("[umdk-pwm] PWM is ready: " + core.Utoa(uint32(len(registry.Channels()))) +
		" channels on " + core.Utoa(uint32(registry.NumDevices())) + " devices")
	return m, nil
}
