// Package world provides the authoritative in-memory world state: zones,
// rooms, exits, and the entity arena. All relations between records are
// stored as identifiers and resolved through the Store at use time.
package world

import "fmt"

// Direction represents a compass direction or vertical movement.
type Direction string

// Standard compass directions and vertical movements.
const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Up    Direction = "up"
	Down  Direction = "down"
)

// StandardDirections contains all six standard directions.
var StandardDirections = []Direction{North, South, East, West, Up, Down}

// IsStandard reports whether d is one of the six standard directions.
func (d Direction) IsStandard() bool {
	for _, sd := range StandardDirections {
		if d == sd {
			return true
		}
	}
	return false
}

// Opposite returns the opposite of a standard direction.
// For custom directions, it returns an empty string.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	default:
		return ""
	}
}

// Exit represents a passage from one room to another. Exits are
// directional and not necessarily symmetric.
type Exit struct {
	// Direction is the compass direction of the passage.
	Direction Direction
	// TargetRoom is the ID of the destination room.
	TargetRoom string
	// Locked indicates the exit cannot currently be passed.
	Locked bool
	// Hidden indicates the exit is not listed by default.
	Hidden bool
}

// Room flags controlling entry and behavior.
const (
	// FlagNoMob blocks autonomous actors from wandering in.
	FlagNoMob = "no_mob"
	// FlagPrivate limits the room to two characters at a time.
	FlagPrivate = "private"
)

// Room represents a location in the game world. The static definition is
// loaded at boot; occupancy lives in the Store's presence index.
type Room struct {
	// ID uniquely identifies this room across all zones.
	ID string
	// ZoneID identifies the zone this room belongs to.
	ZoneID string
	// Title is the short display name of the room.
	Title string
	// Description is the multi-line room description shown to players.
	Description string
	// Exits lists all passages leading out of this room.
	Exits []Exit
	// Flags holds room behavior flags (no_mob, private, ...).
	Flags map[string]bool
	// Mobs lists autonomous actors spawned here at boot.
	Mobs []MobSpawn
	// Items lists items placed here at boot.
	Items []ItemSpawn
}

// ExitForDirection returns the exit in the given direction, if one exists.
//
// Postcondition: Returns (exit, true) if found, or (Exit{}, false) otherwise.
func (r *Room) ExitForDirection(dir Direction) (Exit, bool) {
	for _, e := range r.Exits {
		if e.Direction == dir {
			return e, true
		}
	}
	return Exit{}, false
}

// VisibleExits returns all non-hidden exits from this room.
func (r *Room) VisibleExits() []Exit {
	var visible []Exit
	for _, e := range r.Exits {
		if !e.Hidden {
			visible = append(visible, e)
		}
	}
	return visible
}

// MobSpawn defines an autonomous actor placed in a room at boot.
type MobSpawn struct {
	// Template is the spawn's short identifier within the zone.
	Template string
	// Name is the display name ("the beggar").
	Name string
	// Keywords are the words players may target the mob by.
	Keywords []string
	// Stats holds initial numeric attributes.
	Stats map[string]int
	// Wander makes the mob pick random exits on a timer.
	Wander bool
}

// ItemSpawn defines an item placed in a room (or inside a container
// item) at boot.
type ItemSpawn struct {
	// Template is the spawn's short identifier within the zone.
	Template string
	// Name is the display name ("a loaf of bread").
	Name string
	// Keywords are the words players may target the item by.
	Keywords []string
	// Container marks the item as able to hold other items.
	Container bool
	// Contents lists items spawned inside this container.
	Contents []ItemSpawn
}

// Zone groups related rooms into a themed area.
type Zone struct {
	// ID uniquely identifies this zone.
	ID string
	// Name is the display name of the zone.
	Name string
	// Description summarizes the zone's theme.
	Description string
	// StartRoom is the ID of the default entry room.
	StartRoom string
	// Rooms contains all rooms in this zone, keyed by room ID.
	Rooms map[string]*Room
	// ScriptDir is the path to Lua scripts for this zone. Empty = no scripts.
	ScriptDir string
}

// Validate checks zone invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (z *Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone ID must not be empty")
	}
	if z.Name == "" {
		return fmt.Errorf("zone %q: name must not be empty", z.ID)
	}
	if z.StartRoom == "" {
		return fmt.Errorf("zone %q: start_room must not be empty", z.ID)
	}
	if len(z.Rooms) == 0 {
		return fmt.Errorf("zone %q: must contain at least one room", z.ID)
	}
	if _, ok := z.Rooms[z.StartRoom]; !ok {
		return fmt.Errorf("zone %q: start_room %q not found in rooms", z.ID, z.StartRoom)
	}
	for id, room := range z.Rooms {
		if room.ID != id {
			return fmt.Errorf("zone %q: room key %q does not match room ID %q", z.ID, id, room.ID)
		}
		if room.Title == "" {
			return fmt.Errorf("zone %q: room %q: title must not be empty", z.ID, id)
		}
		if room.Description == "" {
			return fmt.Errorf("zone %q: room %q: description must not be empty", z.ID, id)
		}
		for _, exit := range room.Exits {
			if exit.TargetRoom == "" {
				return fmt.Errorf("zone %q: room %q: exit %q has empty target", z.ID, id, exit.Direction)
			}
		}
		for _, mob := range room.Mobs {
			if mob.Template == "" || mob.Name == "" {
				return fmt.Errorf("zone %q: room %q: mob spawn missing template or name", z.ID, id)
			}
		}
		if err := validateItemSpawns(z.ID, id, room.Items); err != nil {
			return err
		}
	}
	return nil
}

func validateItemSpawns(zoneID, roomID string, items []ItemSpawn) error {
	for _, item := range items {
		if item.Template == "" || item.Name == "" {
			return fmt.Errorf("zone %q: room %q: item spawn missing template or name", zoneID, roomID)
		}
		if len(item.Contents) > 0 && !item.Container {
			return fmt.Errorf("zone %q: room %q: item %q has contents but is not a container", zoneID, roomID, item.Template)
		}
		if err := validateItemSpawns(zoneID, roomID, item.Contents); err != nil {
			return err
		}
	}
	return nil
}

// ParseDirection resolves a direction word or single-letter abbreviation.
//
// Postcondition: Returns (direction, true) for a recognised word, or ("", false).
func ParseDirection(word string) (Direction, bool) {
	switch word {
	case "north", "n":
		return North, true
	case "south", "s":
		return South, true
	case "east", "e":
		return East, true
	case "west", "w":
		return West, true
	case "up", "u":
		return Up, true
	case "down", "d":
		return Down, true
	default:
		return "", false
	}
}
