// Package main runs the circle game server: one process owning the
// world, the Telnet listener, the simulation loop, and the player file
// tree.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/circle/internal/config"
	"github.com/cory-johannsen/circle/internal/game/command"
	"github.com/cory-johannsen/circle/internal/game/engine"
	"github.com/cory-johannsen/circle/internal/game/event"
	"github.com/cory-johannsen/circle/internal/game/session"
	"github.com/cory-johannsen/circle/internal/game/world"
	"github.com/cory-johannsen/circle/internal/observability"
	"github.com/cory-johannsen/circle/internal/persist"
	"github.com/cory-johannsen/circle/internal/scripting"
	"github.com/cory-johannsen/circle/internal/server"
	"github.com/cory-johannsen/circle/internal/telnet"
)

// scriptTickInterval is the cadence of the scripted on_tick hook per zone.
const scriptTickInterval = 10 * time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/circle.yaml", "path to configuration file")
	dataDir := flag.String("data", "", "override the data directory")
	port := flag.Int("port", 0, "override the listen port")
	quick := flag.Bool("q", false, "quick boot: skip the startup rent settlement pass")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *quick {
		cfg.Game.QuickBoot = true
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("booting circle",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("data_dir", cfg.Data.Dir),
		zap.Bool("quick_boot", cfg.Game.QuickBoot),
	)

	// Load the static world. Any malformed zone file is fatal: a world
	// with dangling exits must never come up.
	bootStart := time.Now()
	zones, err := world.LoadZonesFromDir(cfg.Data.WorldDir())
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}
	store, err := world.NewStore(zones)
	if err != nil {
		logger.Fatal("building world", zap.Error(err))
	}
	logger.Info("world loaded",
		zap.Int("zones", len(zones)),
		zap.Int("rooms", store.RoomCount()),
		zap.Int("entities", store.EntityCount()),
		zap.Duration("elapsed", time.Since(bootStart)),
	)

	players, err := persist.NewPlayerStore(cfg.Data.PlayerDir(), logger)
	if err != nil {
		logger.Fatal("opening player store", zap.Error(err))
	}

	// Settle accrued rent for every character on disk. Quick boot skips
	// the sweep; rent is settled lazily at login regardless.
	if !cfg.Game.QuickBoot {
		rentStart := time.Now()
		if err := players.SettleAll(time.Now(), cfg.Game.RentPerDay); err != nil {
			logger.Fatal("settling rent", zap.Error(err))
		}
		logger.Info("rent settled", zap.Duration("elapsed", time.Since(rentStart)))
	}

	eng := engine.New(cfg.Game, store, event.NewQueue(), logger)

	scripts := loadScripts(cfg, store, logger)
	var hooks command.Hooks
	if scripts != nil {
		defer scripts.Close()
		hooks = &scripting.ZoneHooks{
			Manager: scripts,
			ZoneOfRoom: func(roomID string) string {
				if room, ok := store.Room(roomID); ok {
					return room.ZoneID
				}
				return ""
			},
		}
	}

	var manager *session.Manager
	saves := persist.NewAutosaver(players, cfg.Game.AutosaveInterval,
		func() []*persist.PlayerRecord { return manager.CollectSnapshots() }, logger)
	manager = session.NewManager(cfg.Game, eng, players, saves, hooks, logger)

	// Scripting callbacks close over the session manager; they only run
	// on the mutation path, via hooks and scripted tick events.
	if scripts != nil {
		wireScriptCallbacks(scripts, store, manager)
		scheduleScriptTicks(eng, store, scripts)
	}

	eng.ScheduleBehaviors(manager.Context())

	acceptor := telnet.NewAcceptor(cfg.Server, manager, logger)

	// Stop order is the reverse: listener first, then the final save
	// sweep, then the mutation path.
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("engine", eng)
	lifecycle.Add("autosaver", saves)
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("circle initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("addr", cfg.Server.Addr()),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// loadConfig reads the config file, falling back to built-in defaults
// when the default path does not exist and was not explicitly requested.
func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !flagPassed("config") {
		return config.Default(), nil
	}
	return config.Load(path)
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

// loadScripts builds the Lua manager and loads every zone that declares
// a script directory. Returns nil when no zone has scripts.
func loadScripts(cfg config.Config, store *world.Store, logger *zap.Logger) *scripting.Manager {
	scripts := scripting.NewManager(0, logger)
	loaded := 0
	for _, z := range store.AllZones() {
		if z.ScriptDir == "" {
			continue
		}
		dir := z.ScriptDir
		if !filepath.IsAbs(dir) && cfg.Game.ScriptDir != "" {
			dir = filepath.Join(cfg.Game.ScriptDir, dir)
		}
		if err := scripts.LoadZone(z.ID, dir); err != nil {
			logger.Fatal("loading zone scripts",
				zap.String("zone", z.ID),
				zap.Error(err))
		}
		loaded++
	}
	if loaded == 0 {
		scripts.Close()
		return nil
	}
	return scripts
}

// wireScriptCallbacks points the Lua world.* API at live game state.
func wireScriptCallbacks(scripts *scripting.Manager, store *world.Store, manager *session.Manager) {
	scripts.SendToEntity = manager.Send
	scripts.SendToRoom = func(roomID, text string) {
		for _, id := range store.EntitiesInRoom(roomID) {
			manager.Send(id, text)
		}
	}
	scripts.GetStat = func(entityID, stat string) int {
		if e, ok := store.Entity(entityID); ok {
			return e.Stat(stat)
		}
		return 0
	}
	scripts.SetStat = func(entityID, stat string, value int) {
		if e, ok := store.Entity(entityID); ok {
			e.SetStat(stat, value)
		}
	}
	scripts.EntityName = func(entityID string) string {
		if e, ok := store.Entity(entityID); ok {
			return e.Name
		}
		return ""
	}
	scripts.RoomTitle = func(roomID string) string {
		if room, ok := store.Room(roomID); ok {
			return room.Title
		}
		return ""
	}
}

// scheduleScriptTicks queues a recurring on_tick event per scripted zone.
func scheduleScriptTicks(eng *engine.Engine, store *world.Store, scripts *scripting.Manager) {
	for _, z := range store.AllZones() {
		if !scripts.HasZone(z.ID) {
			continue
		}
		zoneID := z.ID
		var tick func(now time.Time)
		tick = func(now time.Time) {
			scripts.CallHook(zoneID, scripting.HookOnTick, zoneID)
			eng.Events().PushIn("script tick", "", scriptTickInterval, tick)
		}
		eng.Events().PushIn("script tick", "", scriptTickInterval, tick)
	}
}
