package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the world.* API into L. Every function is a
// thin shim over a Manager callback field; unset callbacks degrade to
// no-ops so a zone can be loaded before the world exists (tests do).
func (m *Manager) registerModules(L *lua.LState) {
	world := L.NewTable()

	L.SetField(world, "send_to_room", L.NewFunction(func(L *lua.LState) int {
		roomID := L.CheckString(1)
		text := L.CheckString(2)
		if m.SendToRoom != nil {
			m.SendToRoom(roomID, text)
		}
		return 0
	}))

	L.SetField(world, "send", L.NewFunction(func(L *lua.LState) int {
		entityID := L.CheckString(1)
		text := L.CheckString(2)
		if m.SendToEntity != nil {
			m.SendToEntity(entityID, text)
		}
		return 0
	}))

	L.SetField(world, "get_stat", L.NewFunction(func(L *lua.LState) int {
		entityID := L.CheckString(1)
		stat := L.CheckString(2)
		value := 0
		if m.GetStat != nil {
			value = m.GetStat(entityID, stat)
		}
		L.Push(lua.LNumber(value))
		return 1
	}))

	L.SetField(world, "set_stat", L.NewFunction(func(L *lua.LState) int {
		entityID := L.CheckString(1)
		stat := L.CheckString(2)
		value := L.CheckInt(3)
		if m.SetStat != nil {
			m.SetStat(entityID, stat, value)
		}
		return 0
	}))

	L.SetField(world, "name", L.NewFunction(func(L *lua.LState) int {
		entityID := L.CheckString(1)
		name := ""
		if m.EntityName != nil {
			name = m.EntityName(entityID)
		}
		L.Push(lua.LString(name))
		return 1
	}))

	L.SetField(world, "room_title", L.NewFunction(func(L *lua.LState) int {
		roomID := L.CheckString(1)
		title := ""
		if m.RoomTitle != nil {
			title = m.RoomTitle(roomID)
		}
		L.Push(lua.LString(title))
		return 1
	}))

	L.SetField(world, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Info("zone script", zap.String("message", L.CheckString(1)))
		return 0
	}))

	L.SetGlobal("world", world)
}
