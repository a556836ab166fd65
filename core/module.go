package core

import (
	"errors"
	"sync"
)

// ModuleDataMax is the largest payload a module command or reply may carry
const ModuleDataMax = 56

// ModuleData is the buffer a module fills in when it answers a command
type ModuleData struct {
	Length int
	Data   [ModuleDataMax]byte
}

// Bytes returns the filled part of the buffer
func (d *ModuleData) Bytes() []byte {
	if d == nil {
		return nil
	}
	return d.Data[:d.Length]
}

// Set replaces the buffer contents, truncating to ModuleDataMax
func (d *ModuleData) Set(b ...byte) {
	d.Length = copy(d.Data[:], b)
}

// ModuleHandler handles a command addressed to a module.
// It returns false when the command is not one the module understands;
// in that case reply must be left untouched. reply may be nil when the
// caller does not expect an answer (shell commands).
type ModuleHandler func(cmd []byte, reply *ModuleData) bool

// Module is a registered firmware module
type Module struct {
	ID      uint8
	Name    string
	Handler ModuleHandler
}

var (
	ErrUnknownModule   = errors.New("unknown module")
	ErrModuleNameTaken = errors.New("module name already registered")
	ErrModuleIDTaken   = errors.New("module id already registered")
)

// ModuleRegistry holds all registered modules, keyed by module id
type ModuleRegistry struct {
	mu       sync.RWMutex
	modules  map[uint8]*Module
	nameToID map[string]uint8
	order    []uint8
}

var globalModules = NewModuleRegistry()

// NewModuleRegistry creates an empty module registry
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		modules:  make(map[uint8]*Module),
		nameToID: make(map[string]uint8),
	}
}

// RegisterModule registers a module with the global registry
func RegisterModule(name string, id uint8, handler ModuleHandler) error {
	return globalModules.Register(name, id, handler)
}

// Register adds a module to the registry.
// Both the name and the id must be unique.
func (r *ModuleRegistry) Register(name string, id uint8, handler ModuleHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nameToID[name]; exists {
		return ErrModuleNameTaken
	}
	if _, exists := r.modules[id]; exists {
		return ErrModuleIDTaken
	}

	r.modules[id] = &Module{ID: id, Name: name, Handler: handler}
	r.nameToID[name] = id
	r.order = append(r.order, id)
	return nil
}

// GetModule retrieves a module by id
func (r *ModuleRegistry) GetModule(id uint8) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	return m, ok
}

// GetModuleByName retrieves a module by name
func (r *ModuleRegistry) GetModuleByName(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.modules[id], true
}

// Names returns the registered module names in registration order
func (r *ModuleRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.modules[id].Name)
	}
	return names
}

// Count returns the number of registered modules
func (r *ModuleRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// Dispatch hands cmd to the module with the given id.
// handled reports whether the module recognized the command.
func (r *ModuleRegistry) Dispatch(id uint8, cmd []byte, reply *ModuleData) (handled bool, err error) {
	m, ok := r.GetModule(id)
	if !ok {
		return false, ErrUnknownModule
	}
	return m.Handler(cmd, reply), nil
}

// DispatchFrame splits a link payload into [module id][module data] and
// dispatches it
func (r *ModuleRegistry) DispatchFrame(payload []byte, reply *ModuleData) (bool, error) {
	if len(payload) == 0 {
		return false, ErrUnknownModule
	}
	return r.Dispatch(payload[0], payload[1:], reply)
}

// DispatchModule is a convenience function using the global registry
func DispatchModule(payload []byte, reply *ModuleData) (bool, error) {
	return globalModules.DispatchFrame(payload, reply)
}

// HandleFrame dispatches a link payload and returns the module's reply.
// Unknown modules are logged and reported as unhandled.
func (r *ModuleRegistry) HandleFrame(payload []byte) ([]byte, bool) {
	var reply ModuleData
	handled, err := r.DispatchFrame(payload, &reply)
	if err != nil {
		DebugPrintln("[umdk] " + err.Error())
		return nil, false
	}
	return reply.Bytes(), handled
}

// HandleFrame dispatches a link payload through the global registry
func HandleFrame(payload []byte) ([]byte, bool) {
	return globalModules.HandleFrame(payload)
}

// GetGlobalModules returns the global module registry
func GetGlobalModules() *ModuleRegistry {
	return globalModules
}
