package world

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Store is the single source of truth for all world state: the room index
// and the entity arena. Every relation (location, holder, presence) is an
// identifier resolved through the Store, so the naturally cyclic entity
// graph carries no direct ownership links.
//
// All world mutation is serialized onto the engine's mutation path; the
// embedded lock protects the handful of read-only accessors that run off
// that path (save sweeps, the who list at login).
type Store struct {
	mu       sync.RWMutex
	zones    map[string]*Zone
	rooms    map[string]*Room
	entities map[string]*Entity
	presence map[string][]string // roomID → entity IDs, insertion order
	online   map[string]bool     // player entity IDs
	start    string
}

// NewStore creates a Store from the given zones and spawns all boot-time
// mob and item entities.
//
// Precondition: zones must be non-empty and individually validated; the
// first zone's start room is the global start room.
// Postcondition: Returns a populated Store, or an error on duplicate room
// IDs or dangling cross-zone exit targets.
func NewStore(zones []*Zone) (*Store, error) {
	s := &Store{
		zones:    make(map[string]*Zone, len(zones)),
		rooms:    make(map[string]*Room),
		entities: make(map[string]*Entity),
		presence: make(map[string][]string),
		online:   make(map[string]bool),
	}

	for _, z := range zones {
		if _, exists := s.zones[z.ID]; exists {
			return nil, fmt.Errorf("duplicate zone ID: %q", z.ID)
		}
		s.zones[z.ID] = z
		for id, room := range z.Rooms {
			if existing, exists := s.rooms[id]; exists {
				return nil, fmt.Errorf("duplicate room ID %q: in zone %q and %q", id, existing.ZoneID, z.ID)
			}
			s.rooms[id] = room
		}
	}

	if err := s.validateExits(); err != nil {
		return nil, err
	}

	if len(zones) > 0 {
		s.start = zones[0].StartRoom
	}

	for _, z := range zones {
		if err := s.spawnZone(z); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// validateExits checks that every exit target resolves to a known room
// across all loaded zones. Catches dangling cross-zone references that
// per-zone validation cannot see.
func (s *Store) validateExits() error {
	for _, zone := range s.zones {
		for _, room := range zone.Rooms {
			for _, exit := range room.Exits {
				if _, ok := s.rooms[exit.TargetRoom]; !ok {
					return fmt.Errorf("zone %q: room %q: exit %q targets unknown room %q",
						zone.ID, room.ID, exit.Direction, exit.TargetRoom)
				}
			}
		}
	}
	return nil
}

// spawnZone instantiates the zone's boot-time mob and item spawns.
func (s *Store) spawnZone(z *Zone) error {
	for _, room := range z.Rooms {
		for _, spawn := range room.Mobs {
			mob := &Entity{
				ID:       spawnID(z.ID, spawn.Template),
				Kind:     KindMob,
				Name:     spawn.Name,
				Keywords: spawn.Keywords,
				Stats:    copyStats(spawn.Stats),
				Flags:    map[string]bool{FlagWander: spawn.Wander},
				RoomID:   room.ID,
			}
			if err := s.AddEntity(mob); err != nil {
				return fmt.Errorf("spawning mob %q in %q: %w", spawn.Template, room.ID, err)
			}
		}
		for _, spawn := range room.Items {
			if err := s.spawnItem(spawn, z.ID, room.ID, ""); err != nil {
				return fmt.Errorf("spawning item %q in %q: %w", spawn.Template, room.ID, err)
			}
		}
	}
	return nil
}

func (s *Store) spawnItem(spawn ItemSpawn, zoneID, roomID, holderID string) error {
	kind := KindItem
	if spawn.Container {
		kind = KindContainer
	}
	item := &Entity{
		ID:       spawnID(zoneID, spawn.Template),
		Kind:     kind,
		Name:     spawn.Name,
		Keywords: spawn.Keywords,
	}
	if holderID != "" {
		item.HolderID = holderID
	} else {
		item.RoomID = roomID
	}
	if err := s.AddEntity(item); err != nil {
		return err
	}
	for _, inner := range spawn.Contents {
		if err := s.spawnItem(inner, zoneID, "", item.ID); err != nil {
			return err
		}
	}
	return nil
}

func spawnID(zoneID, template string) string {
	return fmt.Sprintf("%s.%s.%s", zoneID, template, uuid.NewString()[:8])
}

func copyStats(stats map[string]int) map[string]int {
	out := make(map[string]int, len(stats))
	for k, v := range stats {
		out[k] = v
	}
	return out
}

// AddEntity inserts an entity into the arena and links its containment.
//
// Precondition: e.ID must be unused; exactly one of e.RoomID and
// e.HolderID must be set, referencing an existing room or holding entity.
// Postcondition: The entity is resolvable by ID and listed in its room's
// presence or its holder's contents.
func (s *Store) AddEntity(e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		return fmt.Errorf("entity ID must not be empty")
	}
	if _, exists := s.entities[e.ID]; exists {
		return fmt.Errorf("entity %q already exists", e.ID)
	}
	if (e.RoomID == "") == (e.HolderID == "") {
		return fmt.Errorf("entity %q must have exactly one of room or holder", e.ID)
	}

	if e.RoomID != "" {
		if _, ok := s.rooms[e.RoomID]; !ok {
			return fmt.Errorf("entity %q references unknown room %q", e.ID, e.RoomID)
		}
	} else {
		holder, ok := s.entities[e.HolderID]
		if !ok {
			return fmt.Errorf("entity %q references unknown holder %q", e.ID, e.HolderID)
		}
		if !holder.CanHold() {
			return fmt.Errorf("entity %q cannot be held by %q (%s)", e.ID, holder.ID, holder.Kind)
		}
	}

	s.entities[e.ID] = e
	if e.RoomID != "" {
		s.presence[e.RoomID] = append(s.presence[e.RoomID], e.ID)
	} else {
		holder := s.entities[e.HolderID]
		holder.Contents = append(holder.Contents, e.ID)
	}
	if e.Kind == KindPlayer {
		s.online[e.ID] = true
	}
	return nil
}

// RemoveEntity destroys an entity record. Anything the entity held is
// dropped into the room it occupied (or its holder's room, resolved
// transitively) so no record is ever left dangling.
//
// Postcondition: The ID no longer resolves; returns the removed entity,
// or an error if the ID is unknown.
func (s *Store) RemoveEntity(id string) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %q not found", id)
	}

	// Spill contents into the nearest room before the record goes away.
	roomID := s.resolveRoomLocked(e)
	for _, heldID := range e.Contents {
		held, ok := s.entities[heldID]
		if !ok {
			continue
		}
		held.HolderID = ""
		held.RoomID = roomID
		if roomID != "" {
			s.presence[roomID] = append(s.presence[roomID], heldID)
		}
	}
	e.Contents = nil

	s.detachLocked(e)
	delete(s.entities, id)
	delete(s.online, id)
	return e, nil
}

// RemoveEntityTree removes an entity together with everything it holds,
// transitively. Used when a player leaves the world: the inventory goes
// with them instead of spilling onto the floor.
//
// Postcondition: Neither the ID nor any held ID resolves any longer;
// returns the removed root entity.
func (s *Store) RemoveEntityTree(id string) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %q not found", id)
	}

	var prune func(held *Entity)
	prune = func(held *Entity) {
		for _, heldID := range held.Contents {
			if inner, ok := s.entities[heldID]; ok {
				prune(inner)
				delete(s.entities, heldID)
				delete(s.online, heldID)
			}
		}
		held.Contents = nil
	}
	prune(e)

	s.detachLocked(e)
	delete(s.entities, id)
	delete(s.online, id)
	return e, nil
}

// resolveRoomLocked walks holder links until it reaches a room.
func (s *Store) resolveRoomLocked(e *Entity) string {
	seen := make(map[string]bool)
	for e != nil {
		if e.RoomID != "" {
			return e.RoomID
		}
		if seen[e.ID] {
			return ""
		}
		seen[e.ID] = true
		e = s.entities[e.HolderID]
	}
	return ""
}

// detachLocked unlinks e from its room presence or holder contents.
func (s *Store) detachLocked(e *Entity) {
	if e.RoomID != "" {
		s.presence[e.RoomID] = removeID(s.presence[e.RoomID], e.ID)
		if len(s.presence[e.RoomID]) == 0 {
			delete(s.presence, e.RoomID)
		}
		e.RoomID = ""
	} else if e.HolderID != "" {
		if holder, ok := s.entities[e.HolderID]; ok {
			holder.Contents = removeID(holder.Contents, e.ID)
		}
		e.HolderID = ""
	}
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// MoveEntity relocates an entity into a room, detaching it from its
// current room or holder first.
//
// Precondition: both the entity and the destination room must exist.
// Postcondition: The entity's sole containment reference is the new room,
// and it is last in the room's presence order.
func (s *Store) MoveEntity(id, toRoomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("entity %q not found", id)
	}
	if _, ok := s.rooms[toRoomID]; !ok {
		return fmt.Errorf("room %q not found", toRoomID)
	}

	s.detachLocked(e)
	e.RoomID = toRoomID
	s.presence[toRoomID] = append(s.presence[toRoomID], id)
	return nil
}

// GiveEntity places an entity into a holder's contents, detaching it from
// its current room or holder first.
//
// Precondition: entity and holder must exist; holder must be able to hold;
// the transfer must not create a containment cycle.
func (s *Store) GiveEntity(id, holderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("entity %q not found", id)
	}
	holder, ok := s.entities[holderID]
	if !ok {
		return fmt.Errorf("holder %q not found", holderID)
	}
	if !holder.CanHold() {
		return fmt.Errorf("%q (%s) cannot hold other entities", holderID, holder.Kind)
	}
	if id == holderID {
		return fmt.Errorf("entity %q cannot hold itself", id)
	}
	// Reject cycles: the holder must not be inside the entity.
	for probe := holder; probe != nil && probe.HolderID != ""; probe = s.entities[probe.HolderID] {
		if probe.HolderID == id {
			return fmt.Errorf("transfer of %q into %q would create a containment cycle", id, holderID)
		}
	}

	s.detachLocked(e)
	e.HolderID = holderID
	holder.Contents = append(holder.Contents, id)
	return nil
}

// Entity returns the entity with the given ID.
//
// Postcondition: Returns (entity, true) if found, or (nil, false).
func (s *Store) Entity(id string) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	return e, ok
}

// Room returns the room with the given ID.
//
// Postcondition: Returns (room, true) if found, or (nil, false).
func (s *Store) Room(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

// EntitiesInRoom returns the IDs of all entities present in the room, in
// arrival order.
func (s *Store) EntitiesInRoom(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.presence[roomID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// FindInRoom resolves a keyword against the entities present in a room,
// skipping excludeID (usually the acting entity). First match in arrival
// order wins.
//
// Postcondition: Returns (entity, true) on a match, or (nil, false).
func (s *Store) FindInRoom(roomID, word, excludeID string) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.presence[roomID] {
		if id == excludeID {
			continue
		}
		if e, ok := s.entities[id]; ok && e.Matches(word) {
			return e, true
		}
	}
	return nil, false
}

// FindHeld resolves a keyword against a holder's contents.
//
// Postcondition: Returns (entity, true) on a match, or (nil, false).
func (s *Store) FindHeld(holderID, word string) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holder, ok := s.entities[holderID]
	if !ok {
		return nil, false
	}
	for _, id := range holder.Contents {
		if e, ok := s.entities[id]; ok && e.Matches(word) {
			return e, true
		}
	}
	return nil, false
}

// CanEnter reports whether an actor may enter the room, and a reason
// when it may not.
//
// Postcondition: Returns (true, "") or (false, user-visible reason).
func (s *Store) CanEnter(actorID, roomID string) (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false, "That way leads nowhere."
	}
	actor, ok := s.entities[actorID]
	if !ok {
		return false, "You are nowhere."
	}
	if actor.Kind == KindMob && room.Flags[FlagNoMob] {
		return false, "Something bars the way."
	}
	if room.Flags[FlagPrivate] {
		actors := 0
		for _, id := range s.presence[roomID] {
			if e, ok := s.entities[id]; ok && e.IsActor() {
				actors++
			}
		}
		if actors >= 2 {
			return false, "That room is private; there is no space for you."
		}
	}
	return true, ""
}

// Navigate resolves movement from a room in a direction without mutating
// anything.
//
// Postcondition: Returns the destination room, or an error if the exit
// doesn't exist, is locked, or the target room is missing.
func (s *Store) Navigate(fromRoomID string, dir Direction) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, ok := s.rooms[fromRoomID]
	if !ok {
		return nil, fmt.Errorf("room %q not found", fromRoomID)
	}

	exit, ok := from.ExitForDirection(dir)
	if !ok {
		return nil, fmt.Errorf("no exit %q from %q", dir, fromRoomID)
	}

	if exit.Locked {
		return nil, fmt.Errorf("the way %s is locked", dir)
	}

	target, ok := s.rooms[exit.TargetRoom]
	if !ok {
		return nil, fmt.Errorf("exit %q from %q targets unknown room %q", dir, fromRoomID, exit.TargetRoom)
	}

	return target, nil
}

// OnlinePlayers returns the IDs of all connected player entities.
func (s *Store) OnlinePlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	return out
}

// Actors returns the IDs of every player and autonomous actor. Order is
// unspecified.
func (s *Store) Actors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, e := range s.entities {
		if e.IsActor() {
			out = append(out, id)
		}
	}
	return out
}

// EntitiesWithFlag returns the IDs of every entity with the named flag
// set. Order is unspecified.
func (s *Store) EntitiesWithFlag(flag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, e := range s.entities {
		if e.Flags[flag] {
			out = append(out, id)
		}
	}
	return out
}

// StartRoom returns the global start room ID.
func (s *Store) StartRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.start
}

// Zone returns the zone with the given ID.
func (s *Store) Zone(id string) (*Zone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[id]
	return z, ok
}

// AllZones returns all loaded zones.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (s *Store) AllZones() []*Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zones := make([]*Zone, 0, len(s.zones))
	for _, z := range s.zones {
		zones = append(zones, z)
	}
	return zones
}

// RoomCount returns the total number of rooms across all zones.
func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// EntityCount returns the number of live entity records.
func (s *Store) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}
