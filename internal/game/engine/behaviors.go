package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/circle/internal/game/command"
	"github.com/cory-johannsen/circle/internal/game/world"
)

// Default behavior cadences. Wander is deliberately slow so rooms do not
// churn; regen matches one point per pulse in the classic pulse system.
const (
	DefaultWanderInterval = 30 * time.Second
	DefaultRegenInterval  = 10 * time.Second
)

// ScheduleBehaviors installs the recurring world behaviors: wandering
// for every mob flagged for it, and point regeneration for all actors.
// Call once after the world is loaded, before accepting connections.
func (e *Engine) ScheduleBehaviors(ctx *command.Context) {
	wanderers := 0
	for _, id := range e.world.EntitiesWithFlag(world.FlagWander) {
		e.scheduleWander(ctx, id, DefaultWanderInterval)
		wanderers++
	}
	e.scheduleRegen(DefaultRegenInterval)
	e.logger.Info("behaviors scheduled",
		zap.Int("wanderers", wanderers),
		zap.Duration("wander_interval", DefaultWanderInterval),
		zap.Duration("regen_interval", DefaultRegenInterval))
}

// scheduleWander queues the next wander step for a mob. Each firing
// reschedules itself, so cancelling the target's events stops the chain.
func (e *Engine) scheduleWander(ctx *command.Context, mobID string, interval time.Duration) {
	e.events.PushIn("wander", mobID, jitter(e.rng.Int63n, interval), func(now time.Time) {
		e.wanderStep(ctx, mobID)
		e.scheduleWander(ctx, mobID, interval)
	})
}

// wanderStep moves the mob through one random passable exit, if any.
// Locked exits, hidden exits, and rooms that refuse the mob are skipped.
func (e *Engine) wanderStep(ctx *command.Context, mobID string) {
	mob, ok := e.world.Entity(mobID)
	if !ok {
		return
	}
	room, ok := e.world.Room(mob.RoomID)
	if !ok {
		return
	}

	var open []world.Exit
	for _, exit := range room.VisibleExits() {
		if exit.Locked {
			continue
		}
		if allowed, _ := e.world.CanEnter(mobID, exit.TargetRoom); allowed {
			open = append(open, exit)
		}
	}
	if len(open) == 0 {
		return
	}
	exit := open[e.rng.Intn(len(open))]

	e.broadcast(ctx, room.ID, mobID, fmt.Sprintf("%s leaves %s.", mob.Name, exit.Direction))
	if err := e.world.MoveEntity(mobID, exit.TargetRoom); err != nil {
		e.logger.Warn("wander move failed",
			zap.String("mob", mobID),
			zap.String("to", exit.TargetRoom),
			zap.Error(err))
		return
	}
	e.broadcast(ctx, exit.TargetRoom, mobID, fmt.Sprintf("%s wanders in.", mob.Name))

	if ctx.Hooks != nil {
		ctx.Hooks.OnEnter(exit.TargetRoom, mobID)
	}
}

// scheduleRegen queues the next global regeneration pulse. The event has
// no target entity; it outlives every actor.
func (e *Engine) scheduleRegen(interval time.Duration) {
	e.events.PushIn("regen", "", interval, func(now time.Time) {
		e.regenPulse()
		e.scheduleRegen(interval)
	})
}

// regenPulse heals every living actor by one point, up to its maximum.
func (e *Engine) regenPulse() {
	for _, id := range e.world.Actors() {
		a, ok := e.world.Entity(id)
		if !ok {
			continue
		}
		hp, maxHP := a.Stat(world.StatHP), a.Stat(world.StatMaxHP)
		if hp > 0 && hp < maxHP {
			a.SetStat(world.StatHP, hp+1)
		}
	}
}

func (e *Engine) broadcast(ctx *command.Context, roomID, excludeID, text string) {
	for _, id := range e.world.EntitiesInRoom(roomID) {
		if id == excludeID {
			continue
		}
		ctx.Out.Send(id, text)
	}
}

// jitter spreads recurring events across the interval so a zone's mobs
// do not all step on the same tick.
func jitter(int63n func(int64) int64, interval time.Duration) time.Duration {
	half := int64(interval) / 2
	return time.Duration(half + int63n(half+1))
}
