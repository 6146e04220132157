package world

import "strings"

// Kind discriminates the entity variants held in the arena.
type Kind string

// Entity kinds.
const (
	KindPlayer    Kind = "player"
	KindMob       Kind = "mob"
	KindItem      Kind = "item"
	KindContainer Kind = "container"
)

// Entity flags used by the engine. Additional flags are free-form.
const (
	// FlagWander marks autonomous actors that roam on a timer.
	FlagWander = "wander"
)

// Stat names used by the engine. Additional stats are free-form.
const (
	StatHP    = "hp"
	StatMaxHP = "maxhp"
	StatGold  = "gold"
	StatLevel = "level"
)

// Entity is any located or ownable object in the world: a player
// character, an autonomous actor, an item, or a container.
//
// Invariant: exactly one of RoomID and HolderID is non-empty. The Store
// enforces this on every add and transfer.
type Entity struct {
	// ID is the stable arena key. Players are keyed by lowercased name;
	// spawned entities carry a generated suffix.
	ID string
	// Kind discriminates player/mob/item/container.
	Kind Kind
	// Name is the display name.
	Name string
	// Keywords are the words the entity may be targeted by. Words of
	// Name are always matched as a fallback.
	Keywords []string
	// Stats holds numeric attributes (hp, maxhp, gold, level, ...).
	Stats map[string]int
	// Flags holds boolean attributes (wander, ...).
	Flags map[string]bool
	// RoomID is the containing room, or empty if held by an entity.
	RoomID string
	// HolderID is the containing entity, or empty if in a room.
	HolderID string
	// Contents lists IDs of entities held by this one, in insertion order.
	Contents []string
}

// IsActor reports whether the entity is a player or autonomous actor.
func (e *Entity) IsActor() bool {
	return e.Kind == KindPlayer || e.Kind == KindMob
}

// CanHold reports whether other entities may be placed inside this one.
// Actors hold inventory; containers hold contents; plain items hold nothing.
func (e *Entity) CanHold() bool {
	return e.IsActor() || e.Kind == KindContainer
}

// Stat returns the named numeric attribute, or 0 when unset.
func (e *Entity) Stat(name string) int {
	return e.Stats[name]
}

// SetStat sets the named numeric attribute, allocating the map if needed.
func (e *Entity) SetStat(name string, value int) {
	if e.Stats == nil {
		e.Stats = make(map[string]int)
	}
	e.Stats[name] = value
}

// HasFlag reports whether the named boolean attribute is set.
func (e *Entity) HasFlag(name string) bool {
	return e.Flags[name]
}

// Matches reports whether word targets this entity: a case-insensitive
// prefix of any keyword, or of any word of the entity's name.
//
// Precondition: word should be non-empty; empty words never match.
func (e *Entity) Matches(word string) bool {
	if word == "" {
		return false
	}
	word = strings.ToLower(word)
	for _, kw := range e.Keywords {
		if strings.HasPrefix(strings.ToLower(kw), word) {
			return true
		}
	}
	for _, field := range strings.Fields(e.Name) {
		if strings.HasPrefix(strings.ToLower(field), word) {
			return true
		}
	}
	return false
}
