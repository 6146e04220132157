package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names zones may define.
const (
	// HookOnEnter fires after an entity finishes entering a room.
	// Receives (room_id, entity_id).
	HookOnEnter = "on_enter"
	// HookOnTick fires on the zone's scripted tick. Receives (zone_id).
	HookOnTick = "on_tick"
)

// Manager owns one sandboxed LState per zone and dispatches hooks into
// them. Load every zone before the server starts; after that, CallHook
// must only run on the engine's mutation path, because the injected
// callbacks reach straight into world state.
type Manager struct {
	mu        sync.Mutex
	states    map[string]*lua.LState
	instLimit int
	logger    *zap.Logger

	// Injected after construction; nil callbacks make the matching Lua
	// function a no-op.
	SendToRoom   func(roomID, text string)
	SendToEntity func(entityID, text string)
	GetStat      func(entityID, stat string) int
	SetStat      func(entityID, stat string, value int)
	EntityName   func(entityID string) string
	RoomTitle    func(roomID string) string
}

// NewManager creates a Manager with the given per-invocation instruction
// budget. instLimit 0 uses DefaultInstructionLimit.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	return &Manager{
		states:    make(map[string]*lua.LState),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadZone creates a sandboxed VM for the zone, registers the world API,
// and executes every *.lua file in scriptDir in lexicographic order.
//
// Postcondition: The zone's hooks are callable, or an error when a
// script fails to load. A zone loaded twice replaces its previous VM.
func (m *Manager) LoadZone(zoneID, scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for zone %q: %w", scriptDir, zoneID, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandboxedState()
	m.registerModules(L)

	for _, path := range files {
		armBudget(L, m.instLimit)
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for zone %q: %w", path, zoneID, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[zoneID]; ok {
		old.Close()
	}
	m.states[zoneID] = L
	m.mu.Unlock()

	m.logger.Info("zone scripts loaded",
		zap.String("zone", zoneID),
		zap.Int("files", len(files)))
	return nil
}

// HasZone reports whether the zone has a loaded VM.
func (m *Manager) HasZone(zoneID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[zoneID]
	return ok
}

// CallHook invokes the named hook in the zone's VM with string
// arguments. Missing zones and undefined hooks are silent no-ops; Lua
// runtime errors and blown instruction budgets are logged and contained.
func (m *Manager) CallHook(zoneID, hook string, args ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[zoneID]
	if !ok {
		return
	}
	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return
	}

	lvArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lvArgs[i] = lua.LString(a)
	}

	armBudget(L, m.instLimit)
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lvArgs...); err != nil {
		m.logger.Warn("zone hook failed",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
			zap.Error(err))
	}
}

// Close shuts every zone VM down.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, L := range m.states {
		L.Close()
		delete(m.states, id)
	}
}
