package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/circle/internal/config"
	"github.com/cory-johannsen/circle/internal/game/command"
	"github.com/cory-johannsen/circle/internal/game/event"
	"github.com/cory-johannsen/circle/internal/game/world"
)

type recorder struct {
	mu   sync.Mutex
	sent map[string][]string
}

func newRecorder() *recorder {
	return &recorder{sent: make(map[string][]string)}
}

func (r *recorder) Send(entityID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[entityID] = append(r.sent[entityID], text)
}

func testZone() *world.Zone {
	return &world.Zone{
		ID:        "village",
		Name:      "The Village",
		StartRoom: "square",
		Rooms: map[string]*world.Room{
			"square": {
				ID: "square", ZoneID: "village", Title: "The Square",
				Description: "A dusty square.",
				Exits: []world.Exit{
					{Direction: world.North, TargetRoom: "temple"},
					{Direction: world.East, TargetRoom: "cellar"},
				},
			},
			"temple": {
				ID: "temple", ZoneID: "village", Title: "The Temple",
				Description: "Cool shadows.",
				Flags:       map[string]bool{world.FlagNoMob: true},
				Exits: []world.Exit{
					{Direction: world.South, TargetRoom: "square"},
				},
			},
			"cellar": {
				ID: "cellar", ZoneID: "village", Title: "The Cellar",
				Description: "Barely room for two.",
				Flags:       map[string]bool{world.FlagPrivate: true},
				Exits: []world.Exit{
					{Direction: world.West, TargetRoom: "square"},
				},
			},
		},
	}
}

func testGameConfig() config.GameConfig {
	cfg := config.Default().Game
	cfg.TickInterval = 5 * time.Millisecond
	return cfg
}

func newTestEngine(t *testing.T, logger *zap.Logger) (*Engine, *command.Context, *recorder) {
	t.Helper()
	store, err := world.NewStore([]*world.Zone{testZone()})
	require.NoError(t, err)

	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	eng := New(testGameConfig(), store, event.NewQueue(), logger)

	out := newRecorder()
	ctx := &command.Context{
		World:    store,
		Events:   eng.Events(),
		Registry: command.DefaultRegistry(),
		Out:      out,
		Logger:   logger,
	}
	return eng, ctx, out
}

func addPlayer(t *testing.T, store *world.Store, name, roomID string) {
	t.Helper()
	require.NoError(t, store.AddEntity(&world.Entity{
		ID: name, Kind: world.KindPlayer, Name: name, RoomID: roomID,
		Stats: map[string]int{world.StatHP: 20, world.StatMaxHP: 20},
	}))
}

func TestEngine_StartStop(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	require.NoError(t, eng.Start())
	assert.Error(t, eng.Start(), "double start is rejected")
	eng.Stop()
	eng.Stop() // idempotent
	assert.Error(t, eng.Submit("late", func() {}))
}

func TestEngine_DoReturnsJobError(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	require.NoError(t, eng.Start())
	defer eng.Stop()

	wantErr := fmt.Errorf("boom")
	err := eng.Do("failing", func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestEngine_JobPanicDoesNotKillLoop(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	eng, _, _ := newTestEngine(t, zap.New(core))
	require.NoError(t, eng.Start())
	defer eng.Stop()

	require.NoError(t, eng.Submit("panicking", func() { panic("kaboom") }))

	// The loop must still execute subsequent jobs.
	require.NoError(t, eng.Do("after", func() error { return nil }))
	assert.Equal(t, 1, logs.FilterMessage("job panicked").Len())
}

func TestEngine_ConcurrentMovesIntoPrivateRoomAdmitOne(t *testing.T) {
	eng, ctx, _ := newTestEngine(t, nil)
	addPlayer(t, eng.World(), "alice", "cellar")
	addPlayer(t, eng.World(), "bob", "square")
	addPlayer(t, eng.World(), "carol", "square")

	require.NoError(t, eng.Start())

	var wg sync.WaitGroup
	for _, id := range []string{"bob", "carol"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := eng.ExecuteCommand(ctx, id, "east")
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()
	eng.Stop()

	inCellar := 0
	for _, id := range eng.World().EntitiesInRoom("cellar") {
		e, ok := eng.World().Entity(id)
		require.True(t, ok)
		if e.IsActor() {
			inCellar++
		}
	}
	assert.Equal(t, 2, inCellar, "the private room holds alice plus exactly one mover")
}

func TestEngine_SameExitBatchMovesBothInOrder(t *testing.T) {
	eng, ctx, out := newTestEngine(t, nil)
	addPlayer(t, eng.World(), "alice", "square")
	addPlayer(t, eng.World(), "bob", "square")
	addPlayer(t, eng.World(), "carol", "square")
	addPlayer(t, eng.World(), "priest", "temple")

	require.NoError(t, eng.Start())
	defer eng.Stop()

	// Hold the mutation goroutine so both moves queue up as one batch,
	// then release it and wait for the batch to drain.
	gate := make(chan struct{})
	require.NoError(t, eng.Submit("hold", func() { <-gate }))
	require.NoError(t, eng.Submit("move", func() { _ = command.Execute(ctx, "alice", "north") }))
	require.NoError(t, eng.Submit("move", func() { _ = command.Execute(ctx, "bob", "north") }))
	close(gate)
	require.NoError(t, eng.Do("barrier", func() error { return nil }))

	alice, _ := eng.World().Entity("alice")
	bob, _ := eng.World().Entity("bob")
	assert.Equal(t, "temple", alice.RoomID)
	assert.Equal(t, "temple", bob.RoomID)

	square := eng.World().EntitiesInRoom("square")
	assert.Equal(t, []string{"carol"}, square, "only the bystander remains behind")

	// Observers in both rooms see the moves in submission order.
	out.mu.Lock()
	defer out.mu.Unlock()
	require.Len(t, out.sent["carol"], 2)
	assert.Contains(t, out.sent["carol"][0], "alice leaves north")
	assert.Contains(t, out.sent["carol"][1], "bob leaves north")
	require.Len(t, out.sent["priest"], 2)
	assert.Contains(t, out.sent["priest"][0], "alice arrives from the south")
	assert.Contains(t, out.sent["priest"][1], "bob arrives from the south")
}

func TestEngine_QuitReportedToCaller(t *testing.T) {
	eng, ctx, _ := newTestEngine(t, nil)
	addPlayer(t, eng.World(), "alice", "square")
	require.NoError(t, eng.Start())
	defer eng.Stop()

	quit, err := eng.ExecuteCommand(ctx, "alice", "quit")
	require.NoError(t, err)
	assert.True(t, quit)

	quit, err = eng.ExecuteCommand(ctx, "alice", "look")
	require.NoError(t, err)
	assert.False(t, quit)
}

func TestEngine_DanglingEventIsDroppedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	eng, _, _ := newTestEngine(t, zap.New(core))

	fired := false
	eng.Events().Push(&event.Event{
		Name:     "haunt",
		TargetID: "ghost",
		FireAt:   time.Now().Add(-time.Second),
		Run:      func(now time.Time) { fired = true },
	})

	require.NoError(t, eng.Start())
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("dropping event with dangling target").Len() == 1
	}, time.Second, 5*time.Millisecond)
	eng.Stop()

	assert.False(t, fired)
	assert.Equal(t, 0, eng.Events().Len())
}

func TestEngine_DueEventsFireOnTick(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	addPlayer(t, eng.World(), "alice", "square")

	fired := make(chan struct{})
	eng.Events().PushIn("ping", "alice", 0, func(now time.Time) { close(fired) })

	require.NoError(t, eng.Start())
	defer eng.Stop()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("event did not fire within a second of coming due")
	}
}

func TestEngine_EventPanicDoesNotKillLoop(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	eng, _, _ := newTestEngine(t, zap.New(core))
	addPlayer(t, eng.World(), "alice", "square")

	eng.Events().PushIn("bad", "alice", 0, func(now time.Time) { panic("kaboom") })

	require.NoError(t, eng.Start())
	defer eng.Stop()

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("event panicked").Len() == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, eng.Do("after", func() error { return nil }))
}

func TestWanderStep_MovesThroughOpenExit(t *testing.T) {
	eng, ctx, out := newTestEngine(t, nil)
	addPlayer(t, eng.World(), "alice", "square")
	require.NoError(t, eng.World().AddEntity(&world.Entity{
		ID: "rat", Kind: world.KindMob, Name: "a sewer rat", RoomID: "cellar",
		Flags: map[string]bool{world.FlagWander: true},
	}))

	// The cellar's only exit is west to the square.
	eng.wanderStep(ctx, "rat")

	rat, ok := eng.World().Entity("rat")
	require.True(t, ok)
	assert.Equal(t, "square", rat.RoomID)

	out.mu.Lock()
	defer out.mu.Unlock()
	require.NotEmpty(t, out.sent["alice"])
	assert.Contains(t, out.sent["alice"][0], "a sewer rat wanders in")
}

func TestWanderStep_RespectsNoMobRooms(t *testing.T) {
	eng, ctx, _ := newTestEngine(t, nil)

	// Strand the rat in a room whose exits all lead where mobs cannot go.
	z := testZone()
	z.Rooms["square"].Exits = []world.Exit{{Direction: world.North, TargetRoom: "temple"}}
	store, err := world.NewStore([]*world.Zone{z})
	require.NoError(t, err)
	eng.world = store
	ctx.World = store

	require.NoError(t, store.AddEntity(&world.Entity{
		ID: "rat", Kind: world.KindMob, Name: "a sewer rat", RoomID: "square",
		Flags: map[string]bool{world.FlagWander: true},
	}))

	eng.wanderStep(ctx, "rat")
	rat, _ := store.Entity("rat")
	assert.Equal(t, "square", rat.RoomID)
}

func TestRegenPulse_HealsLivingActorsOnly(t *testing.T) {
	eng, _, _ := newTestEngine(t, nil)
	store := eng.World()
	require.NoError(t, store.AddEntity(&world.Entity{
		ID: "hurt", Kind: world.KindPlayer, Name: "Hurt", RoomID: "square",
		Stats: map[string]int{world.StatHP: 5, world.StatMaxHP: 20},
	}))
	require.NoError(t, store.AddEntity(&world.Entity{
		ID: "full", Kind: world.KindPlayer, Name: "Full", RoomID: "square",
		Stats: map[string]int{world.StatHP: 20, world.StatMaxHP: 20},
	}))
	require.NoError(t, store.AddEntity(&world.Entity{
		ID: "down", Kind: world.KindMob, Name: "a corpse", RoomID: "square",
		Stats: map[string]int{world.StatHP: 0, world.StatMaxHP: 10},
	}))

	eng.regenPulse()

	hurt, _ := store.Entity("hurt")
	full, _ := store.Entity("full")
	down, _ := store.Entity("down")
	assert.Equal(t, 6, hurt.Stat(world.StatHP))
	assert.Equal(t, 20, full.Stat(world.StatHP))
	assert.Equal(t, 0, down.Stat(world.StatHP))
}

func TestScheduleBehaviors_QueuesWanderers(t *testing.T) {
	eng, ctx, _ := newTestEngine(t, nil)
	store := eng.World()
	require.NoError(t, store.AddEntity(&world.Entity{
		ID: "rat", Kind: world.KindMob, Name: "a sewer rat", RoomID: "square",
		Flags: map[string]bool{world.FlagWander: true},
	}))
	require.NoError(t, store.AddEntity(&world.Entity{
		ID: "statue", Kind: world.KindMob, Name: "a stone statue", RoomID: "square",
	}))

	eng.ScheduleBehaviors(ctx)

	// One wander event for the rat plus the global regen pulse.
	assert.Equal(t, 2, eng.Events().Len())
}
