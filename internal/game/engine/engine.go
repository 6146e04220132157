// Package engine runs the single mutation path of the game: one
// goroutine owns every write to the world, draining submitted jobs and
// firing due timed events on a fixed tick. Sessions and background
// services never touch the world directly; they submit closures.
package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/circle/internal/config"
	"github.com/cory-johannsen/circle/internal/game/command"
	"github.com/cory-johannsen/circle/internal/game/event"
	"github.com/cory-johannsen/circle/internal/game/world"
)

// jobBuffer bounds how many submitted jobs may queue before Submit
// blocks. Sessions submit at human typing speed, so this is generous.
const jobBuffer = 256

// Job is a unit of work executed on the mutation path.
type Job struct {
	// Name identifies the job in logs when it panics or stalls.
	Name string
	// Run does the work. It may freely mutate the world.
	Run func()
}

// Engine serializes all world mutation onto one goroutine.
type Engine struct {
	cfg    config.GameConfig
	world  *world.Store
	events *event.Queue
	logger *zap.Logger
	rng    *rand.Rand

	jobs    chan Job
	quit    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// New creates an Engine over the given world and event queue.
func New(cfg config.GameConfig, store *world.Store, events *event.Queue, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		world:  store,
		events: events,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		jobs:   make(chan Job, jobBuffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Events returns the engine's timed event queue.
func (e *Engine) Events() *event.Queue { return e.events }

// World returns the store the engine mutates.
func (e *Engine) World() *world.Store { return e.world }

// Start launches the mutation goroutine.
//
// Postcondition: Submitted jobs begin executing; ticks fire every
// TickInterval until Stop.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}
	e.logger.Info("engine starting",
		zap.Duration("tick_interval", e.cfg.TickInterval))
	go e.loop()
	return nil
}

// Stop shuts the mutation goroutine down and waits for it to drain.
// Jobs already queued still run; new submissions are rejected.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.quit)
	<-e.done
	e.logger.Info("engine stopped")
}

// Submit queues a job for the mutation path. It blocks only when the
// job buffer is full.
//
// Postcondition: Returns an error if the engine is not running; the job
// is otherwise guaranteed to execute before the engine finishes stopping.
func (e *Engine) Submit(name string, run func()) error {
	if !e.running.Load() {
		return fmt.Errorf("engine not running")
	}
	select {
	case e.jobs <- Job{Name: name, Run: run}:
		return nil
	case <-e.quit:
		return fmt.Errorf("engine shutting down")
	}
}

// Do submits a job and waits for it to finish executing. The returned
// error is the job's own, or a submission failure.
func (e *Engine) Do(name string, run func() error) error {
	result := make(chan error, 1)
	if err := e.Submit(name, func() { result <- run() }); err != nil {
		return err
	}
	return <-result
}

func (e *Engine) loop() {
	defer close(e.done)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case job := <-e.jobs:
			e.runJob(job)
		case now := <-ticker.C:
			e.tick(now)
		case <-e.quit:
			e.drain()
			return
		}
	}
}

// drain runs jobs that were queued before shutdown began.
func (e *Engine) drain() {
	for {
		select {
		case job := <-e.jobs:
			e.runJob(job)
		default:
			return
		}
	}
}

func (e *Engine) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	job.Run()
}

// tick fires every timed event that has come due. Events whose target
// entity no longer exists are dropped and logged; a dangling target
// means a teardown path forgot to cancel.
func (e *Engine) tick(now time.Time) {
	for _, ev := range e.events.PopDue(now) {
		if ev.TargetID != "" {
			if _, ok := e.world.Entity(ev.TargetID); !ok {
				e.logger.Error("dropping event with dangling target",
					zap.String("event", ev.Name),
					zap.Uint64("id", ev.ID),
					zap.String("target", ev.TargetID))
				continue
			}
		}
		e.fire(ev, now)
	}
}

func (e *Engine) fire(ev *event.Event, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event panicked",
				zap.String("event", ev.Name),
				zap.Uint64("id", ev.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	ev.Run(now)
}

// ExecuteCommand runs one line of player input on the mutation path and
// reports whether the player asked to quit.
func (e *Engine) ExecuteCommand(ctx *command.Context, actorID, line string) (quit bool, err error) {
	err = e.Do("command", func() error {
		return command.Execute(ctx, actorID, line)
	})
	if errors.Is(err, command.ErrQuit) {
		return true, nil
	}
	return false, err
}
