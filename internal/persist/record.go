// Package persist stores durable player records as YAML files under a
// sharded directory tree. The static world is read-only at runtime;
// player records are the only thing the server writes back.
package persist

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/circle/internal/game/world"
)

// PlayerRecord is the durable form of a player character. It carries
// everything needed to rebuild the live entity on the next login.
type PlayerRecord struct {
	// Name is the character's display name. The lowercased form keys
	// both the file path and the live entity.
	Name string `yaml:"name"`
	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `yaml:"password_hash"`
	// RoomID is where the character last stood. Falls back to the start
	// room when the room no longer exists.
	RoomID string `yaml:"room"`
	// Stats holds the character's numeric attributes.
	Stats map[string]int `yaml:"stats"`
	// Inventory holds carried items, in pickup order.
	Inventory []ItemRecord `yaml:"inventory,omitempty"`
	// CreatedAt is when the character was first created.
	CreatedAt time.Time `yaml:"created_at"`
	// SavedAt is when this record was last written.
	SavedAt time.Time `yaml:"saved_at"`
	// RentSettledAt is the time up to which storage rent has been paid.
	RentSettledAt time.Time `yaml:"rent_settled_at"`
}

// ItemRecord is the durable form of a carried item. Contents nest for
// containers.
type ItemRecord struct {
	Name     string       `yaml:"name"`
	Keywords []string     `yaml:"keywords,omitempty"`
	Kind     string       `yaml:"kind"`
	Contents []ItemRecord `yaml:"contents,omitempty"`
}

// Snapshot builds a durable record from the live player entity. It only
// reads world state, so it must run on the mutation path; the returned
// record is detached and safe to write from any goroutine.
//
// Precondition: entityID must name a live player entity.
func Snapshot(store *world.Store, entityID, passwordHash string, createdAt, rentSettledAt time.Time) (*PlayerRecord, error) {
	e, ok := store.Entity(entityID)
	if !ok {
		return nil, fmt.Errorf("player entity %q not found", entityID)
	}
	if e.Kind != world.KindPlayer {
		return nil, fmt.Errorf("entity %q is %s, not a player", entityID, e.Kind)
	}

	stats := make(map[string]int, len(e.Stats))
	for k, v := range e.Stats {
		stats[k] = v
	}

	return &PlayerRecord{
		Name:          e.Name,
		PasswordHash:  passwordHash,
		RoomID:        e.RoomID,
		Stats:         stats,
		Inventory:     snapshotContents(store, e),
		CreatedAt:     createdAt,
		SavedAt:       time.Now(),
		RentSettledAt: rentSettledAt,
	}, nil
}

func snapshotContents(store *world.Store, holder *world.Entity) []ItemRecord {
	var items []ItemRecord
	for _, id := range holder.Contents {
		item, ok := store.Entity(id)
		if !ok {
			continue
		}
		items = append(items, ItemRecord{
			Name:     item.Name,
			Keywords: item.Keywords,
			Kind:     string(item.Kind),
			Contents: snapshotContents(store, item),
		})
	}
	return items
}

// Spawn rebuilds the live player entity from the record and places it in
// the world, inventory included. The saved room is used when it still
// exists; otherwise the player wakes at the start room.
//
// Precondition: Must run on the mutation path. No entity with the
// player's ID may be live.
// Postcondition: Returns the player's entity ID.
func (r *PlayerRecord) Spawn(store *world.Store, playerID string) (string, error) {
	roomID := r.RoomID
	if _, ok := store.Room(roomID); !ok {
		roomID = store.StartRoom()
	}

	stats := make(map[string]int, len(r.Stats))
	for k, v := range r.Stats {
		stats[k] = v
	}

	player := &world.Entity{
		ID:     playerID,
		Kind:   world.KindPlayer,
		Name:   r.Name,
		Stats:  stats,
		RoomID: roomID,
	}
	if err := store.AddEntity(player); err != nil {
		return "", fmt.Errorf("spawning player %q: %w", r.Name, err)
	}
	if err := spawnItems(store, playerID, r.Inventory); err != nil {
		return "", fmt.Errorf("restoring inventory of %q: %w", r.Name, err)
	}
	return playerID, nil
}

func spawnItems(store *world.Store, holderID string, items []ItemRecord) error {
	for _, rec := range items {
		kind := world.Kind(rec.Kind)
		if kind != world.KindContainer {
			kind = world.KindItem
		}
		item := &world.Entity{
			ID:       fmt.Sprintf("%s.%s", holderID, uuid.NewString()[:8]),
			Kind:     kind,
			Name:     rec.Name,
			Keywords: rec.Keywords,
			HolderID: holderID,
		}
		if err := store.AddEntity(item); err != nil {
			return err
		}
		if err := spawnItems(store, item.ID, rec.Contents); err != nil {
			return err
		}
	}
	return nil
}
