package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

func newTestStore(t *testing.T) *PlayerStore {
	t.Helper()
	s, err := NewPlayerStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func testRecord(name string) *PlayerRecord {
	return &PlayerRecord{
		Name:         name,
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		RoomID:       "village.square",
		Stats:        map[string]int{"hp": 18, "maxhp": 20, "gold": 120, "level": 4},
		Inventory: []ItemRecord{
			{Name: "a rusty sword", Keywords: []string{"sword", "rusty"}, Kind: "item"},
			{Name: "a leather bag", Kind: "container", Contents: []ItemRecord{
				{Name: "a gold coin", Kind: "item"},
			}},
		},
		CreatedAt:     time.Now().Add(-48 * time.Hour).Truncate(time.Second),
		SavedAt:       time.Now().Truncate(time.Second),
		RentSettledAt: time.Now().Truncate(time.Second),
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Alice"))
	assert.True(t, ValidName("bob"))
	assert.False(t, ValidName("al"))
	assert.False(t, ValidName("averyverylongname"))
	assert.False(t, ValidName("al ice"))
	assert.False(t, ValidName("alice1"))
	assert.False(t, ValidName("../etc/passwd"))
	assert.False(t, ValidName(""))
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	rec := testRecord("Alice")

	require.NoError(t, s.Save(rec))
	loaded, err := s.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, rec.Name, loaded.Name)
	assert.Equal(t, rec.Stats, loaded.Stats)
	assert.Equal(t, rec.Inventory, loaded.Inventory)
	assert.True(t, rec.RentSettledAt.Equal(loaded.RentSettledAt))
}

func TestLoad_MissingPlayer(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestLoad_CorruptRecordTreatedAsMissing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(testRecord("Alice")))

	path := s.path("alice")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t   not yaml ["), 0o644))

	_, err := s.Load("alice")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestSave_ShardsByFirstLetter(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(testRecord("Alice")))
	require.NoError(t, s.Save(testRecord("Bob")))

	assert.FileExists(t, filepath.Join(s.dir, "a", "alice.yml"))
	assert.FileExists(t, filepath.Join(s.dir, "b", "bob.yml"))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(testRecord("Alice")))

	entries, err := os.ReadDir(filepath.Join(s.dir, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice.yml", entries[0].Name())
}

func TestExistsAndNames(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.Exists("Alice"))

	require.NoError(t, s.Save(testRecord("Carol")))
	require.NoError(t, s.Save(testRecord("Alice")))
	assert.True(t, s.Exists("Alice"))
	assert.True(t, s.Exists("alice"))

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, names)
}

func TestSaveLoad_Properties(t *testing.T) {
	s := newTestStore(t)
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[A-Za-z]{3,12}`).Draw(t, "name")
		gold := rapid.IntRange(0, 1_000_000).Draw(t, "gold")
		hp := rapid.IntRange(0, 500).Draw(t, "hp")

		rec := &PlayerRecord{
			Name:   name,
			RoomID: "village.square",
			Stats:  map[string]int{"gold": gold, "hp": hp},
		}
		if err := s.Save(rec); err != nil {
			t.Fatalf("save: %v", err)
		}
		loaded, err := s.Load(name)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.Name != name || loaded.Stats["gold"] != gold || loaded.Stats["hp"] != hp {
			t.Fatalf("round trip mismatch: %+v", loaded)
		}
	})
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("swordfish")
	require.NoError(t, err)
	assert.NotEqual(t, "swordfish", hash)
	assert.True(t, CheckPassword(hash, "swordfish"))
	assert.False(t, CheckPassword(hash, "Swordfish"))
	assert.False(t, CheckPassword(hash, ""))

	_, err = HashPassword("")
	assert.Error(t, err)
}
