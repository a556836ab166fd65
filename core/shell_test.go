package core

import (
	"testing"
)

func TestShellExec(t *testing.T) {
	shell := NewShellRegistry()

	var got []string
	shell.Register("led", "led <on|off>", func(args []string) bool {
		got = args
		return len(args) == 2
	})

	ok, err := shell.Exec(`led "on"`)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if !ok {
		t.Error("Expected command to succeed")
	}
	if len(got) != 2 || got[0] != "led" || got[1] != "on" {
		t.Errorf("Unexpected args %q", got)
	}

	ok, _ = shell.Exec("led")
	if ok {
		t.Error("Expected command with missing argument to fail")
	}

	if _, err := shell.Exec("motor 1"); err != ErrUnknownShellCommand {
		t.Errorf("Expected ErrUnknownShellCommand, got %v", err)
	}

	ok, err = shell.Exec("   ")
	if ok || err != nil {
		t.Errorf("Expected blank line to be ignored, got %v, %v", ok, err)
	}

	if _, err := shell.Exec(`led "on`); err == nil {
		t.Error("Expected unterminated quote to fail")
	}
}

func TestShellCommandsSorted(t *testing.T) {
	shell := NewShellRegistry()
	noop := func(args []string) bool { return true }
	shell.Register("pwm", "", noop)
	shell.Register("adc", "", noop)
	shell.Register("gpio", "", noop)

	cmds := shell.Commands()
	if len(cmds) != 3 {
		t.Fatalf("Expected 3 commands, got %d", len(cmds))
	}
	if cmds[0].Name != "adc" || cmds[1].Name != "gpio" || cmds[2].Name != "pwm" {
		t.Errorf("Commands not sorted: %s %s %s", cmds[0].Name, cmds[1].Name, cmds[2].Name)
	}
}

func TestShellPrintln(t *testing.T) {
	var lines []string
	SetShellWriter(func(s string) { lines = append(lines, s) })
	defer SetShellWriter(func(string) {})

	ShellPrintln("hello")
	if len(lines) != 1 || lines[0] != "hello" {
		t.Errorf("Unexpected output %q", lines)
	}
}
