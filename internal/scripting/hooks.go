package scripting

// ZoneHooks routes room-keyed hook calls to the owning zone's VM. It
// satisfies the command interpreter's Hooks interface without this
// package importing the game packages.
type ZoneHooks struct {
	Manager *Manager
	// ZoneOfRoom maps a room ID to its zone ID, empty when unknown.
	ZoneOfRoom func(roomID string) string
}

// OnEnter dispatches the zone's on_enter hook for the room.
func (h *ZoneHooks) OnEnter(roomID, entityID string) {
	zoneID := h.ZoneOfRoom(roomID)
	if zoneID == "" {
		return
	}
	h.Manager.CallHook(zoneID, HookOnEnter, roomID, entityID)
}
