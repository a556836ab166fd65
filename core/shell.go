package core

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/shlex"
)

// ShellFunc runs a shell command. args[0] is the command name.
// The return value mirrors the module convention: false means the
// arguments were not understood and nothing was done.
type ShellFunc func(args []string) bool

// ShellCommand is a registered shell command
type ShellCommand struct {
	Name string
	Help string
	Func ShellFunc
}

var ErrUnknownShellCommand = errors.New("unknown shell command")

// shellPrintln receives shell command output (set by platform code)
var shellPrintln DebugWriter = func(s string) {}

// SetShellWriter sets where shell commands print their output
func SetShellWriter(writer DebugWriter) {
	shellPrintln = writer
}

// ShellPrintln writes a line of shell output
func ShellPrintln(msg string) {
	if shellPrintln != nil {
		shellPrintln(msg)
	}
}

// ShellRegistry holds the shell commands exposed by modules
type ShellRegistry struct {
	mu       sync.RWMutex
	commands map[string]*ShellCommand
}

var globalShell = NewShellRegistry()

// NewShellRegistry creates an empty shell registry
func NewShellRegistry() *ShellRegistry {
	return &ShellRegistry{commands: make(map[string]*ShellCommand)}
}

// RegisterShellCommand adds a command to the global shell
func RegisterShellCommand(name, help string, fn ShellFunc) {
	globalShell.Register(name, help, fn)
}

// Register adds a command. A second registration under the same name
// replaces the first.
func (s *ShellRegistry) Register(name, help string, fn ShellFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[name] = &ShellCommand{Name: name, Help: help, Func: fn}
}

// Commands returns all commands sorted by name
func (s *ShellRegistry) Commands() []*ShellCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ShellCommand, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Exec splits line using shell quoting rules and runs the named command
func (s *ShellRegistry) Exec(line string) (bool, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}

	s.mu.RLock()
	cmd, ok := s.commands[args[0]]
	s.mu.RUnlock()
	if !ok {
		return false, ErrUnknownShellCommand
	}
	return cmd.Func(args), nil
}

// ExecShell runs a line against the global shell
func ExecShell(line string) (bool, error) {
	return globalShell.Exec(line)
}

// GetGlobalShell returns the global shell registry
func GetGlobalShell() *ShellRegistry {
	return globalShell
}
