package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validZoneYAML = `
zone:
  id: village
  name: "The Village"
  description: "A small starting village."
  start_room: square
  rooms:
    - id: square
      title: "The Village Square"
      description: |
        A dusty square ringed by low stone houses.
        A well sits at its center.
      exits:
        - direction: north
          target: temple
        - direction: east
          target: cellar
          hidden: true
      mobs:
        - id: beggar
          name: "a ragged beggar"
          keywords: [beggar, ragged]
          stats: {hp: 10, maxhp: 10}
          wander: true
      items:
        - id: chest
          name: "an oak chest"
          keywords: [chest, oak]
          container: true
          contents:
            - id: bread
              name: "a loaf of bread"
              keywords: [bread, loaf]
    - id: temple
      title: "The Temple"
      description: "Cool shadows and the smell of incense."
      flags: {no_mob: true}
      exits:
        - direction: south
          target: square
    - id: cellar
      title: "A Cramped Cellar"
      description: "Barely room for two."
      flags: {private: true}
      exits:
        - direction: west
          target: square
        - direction: up
          target: temple
          locked: true
`

func TestLoadZoneFromBytes_Valid(t *testing.T) {
	zone, err := LoadZoneFromBytes([]byte(validZoneYAML))
	require.NoError(t, err)

	assert.Equal(t, "village", zone.ID)
	assert.Equal(t, "square", zone.StartRoom)
	assert.Len(t, zone.Rooms, 3)

	square := zone.Rooms["square"]
	assert.Equal(t, "The Village Square", square.Title)
	assert.Contains(t, square.Description, "dusty square")
	assert.Len(t, square.Exits, 2)

	exit, ok := square.ExitForDirection(East)
	assert.True(t, ok)
	assert.True(t, exit.Hidden)
	assert.Len(t, square.VisibleExits(), 1)

	require.Len(t, square.Mobs, 1)
	assert.True(t, square.Mobs[0].Wander)
	assert.Equal(t, 10, square.Mobs[0].Stats["maxhp"])

	require.Len(t, square.Items, 1)
	assert.True(t, square.Items[0].Container)
	require.Len(t, square.Items[0].Contents, 1)
	assert.Equal(t, "bread", square.Items[0].Contents[0].Template)

	cellar := zone.Rooms["cellar"]
	assert.True(t, cellar.Flags[FlagPrivate])
	exit, ok = cellar.ExitForDirection(Up)
	assert.True(t, ok)
	assert.True(t, exit.Locked)
}

func TestLoadZoneFromBytes_MalformedYAML(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte("zone: [not a zone"))
	assert.Error(t, err)
}

func TestLoadZoneFromBytes_MissingStartRoom(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(`
zone:
  id: broken
  name: "Broken"
  start_room: nowhere
  rooms:
    - id: somewhere
      title: "Somewhere"
      description: "A place."
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start_room")
}

func TestLoadZoneFromBytes_EmptyDescription(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(`
zone:
  id: broken
  name: "Broken"
  start_room: a
  rooms:
    - id: a
      title: "A"
      description: ""
`))
	assert.Error(t, err)
}

func TestLoadZoneFromBytes_ContentsOnNonContainer(t *testing.T) {
	_, err := LoadZoneFromBytes([]byte(`
zone:
  id: broken
  name: "Broken"
  start_room: a
  rooms:
    - id: a
      title: "A"
      description: "A room."
      items:
        - id: rock
          name: "a rock"
          contents:
            - id: pebble
              name: "a pebble"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a container")
}

func TestLoadZonesFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "village.yaml"), []byte(validZoneYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	zones, err := LoadZonesFromDir(dir)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "village", zones[0].ID)
}

func TestLoadZonesFromDir_Empty(t *testing.T) {
	_, err := LoadZonesFromDir(t.TempDir())
	assert.Error(t, err)
}

func TestLoadZonesFromDir_MalformedFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("zone: ["), 0o644))
	_, err := LoadZonesFromDir(dir)
	assert.Error(t, err)
}
