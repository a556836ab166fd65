package pwm

import (
	"strconv"

	"umdk/core"
)

const usage = Name + " set <pin> <frequency> <duty> <pulses>"

// ShellCommand implements `pwm set <pin> <frequency> <duty> <pulses>`.
// The arguments are encoded into a configure command and run through
// Handle, exactly as if the command had arrived over the link.
func (m *Module) ShellCommand(args []string) bool {
	if len(args) < 6 {
		core.ShellPrintln(usage)
		return false
	}
	if args[1] != "set" {
		core.ShellPrintln(usage)
		return false
	}

	req, err := ParseSetArgs(args[2:6])
	if err != nil {
		core.ShellPrintln("[umdk-" + Name + "] " + err.Error())
		return false
	}

	var reply core.ModuleData
	m.Handle(EncodeRequest(req), &reply)
	if r, ok := DecodeReply(reply.Bytes()); ok && r.Status == StatusFail {
		core.ShellPrintln("[umdk-" + Name + "] command failed")
	}
	return true
}

// ParseSetArgs parses "<pin> <frequency> <duty> <pulses>" with range checks
func ParseSetArgs(args []string) (Request, error) {
	if len(args) != 4 {
		return Request{}, strconv.ErrSyntax
	}
	pin, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return Request{}, err
	}
	freq, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return Request{}, err
	}
	duty, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil {
		return Request{}, err
	}
	pulses, err := strconv.ParseUint(args[3], 10, 16)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Pin:         uint8(pin),
		FrequencyHz: uint16(freq),
		DutyPercent: uint8(duty),
		PulseCount:  uint16(pulses),
	}, nil
}
