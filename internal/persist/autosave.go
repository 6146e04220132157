package persist

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// saveBuffer bounds how many explicit save requests may queue before
// Enqueue starts dropping to the periodic sweep.
const saveBuffer = 64

// Autosaver writes player records off the mutation path. Explicit saves
// arrive through Enqueue as detached snapshots; a periodic sweep saves
// everyone online; failed writes are retried on the next sweep. Stop
// performs a final sweep so a clean shutdown never loses a character.
type Autosaver struct {
	store    *PlayerStore
	interval time.Duration
	// collect returns fresh snapshots of every online player. It is
	// expected to do its snapshotting on the mutation path.
	collect func() []*PlayerRecord
	logger  *zap.Logger

	queue chan *PlayerRecord
	quit  chan struct{}
	done  chan struct{}

	// overflow holds snapshots that could not be queued, keyed by player
	// name. The sweep drains it, so a full queue delays a save but never
	// loses it. This matters for departed players, who the sweep's
	// collect() no longer sees.
	mu       sync.Mutex
	overflow map[string]*PlayerRecord
}

// NewAutosaver creates an Autosaver sweeping at the given interval.
func NewAutosaver(store *PlayerStore, interval time.Duration, collect func() []*PlayerRecord, logger *zap.Logger) *Autosaver {
	return &Autosaver{
		store:    store,
		interval: interval,
		collect:  collect,
		logger:   logger,
		queue:    make(chan *PlayerRecord, saveBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		overflow: make(map[string]*PlayerRecord),
	}
}

// Start launches the save goroutine.
func (a *Autosaver) Start() error {
	a.logger.Info("autosaver starting", zap.Duration("interval", a.interval))
	go a.loop()
	return nil
}

// Stop drains pending saves, runs a final sweep, and returns once
// everything reachable has been written.
func (a *Autosaver) Stop() {
	close(a.quit)
	<-a.done
	a.logger.Info("autosaver stopped")
}

// Enqueue requests a durable write of the snapshot. When the queue is
// full the snapshot is parked in the overflow set and written on the
// next sweep; no request is ever lost.
func (a *Autosaver) Enqueue(rec *PlayerRecord) {
	select {
	case a.queue <- rec:
		// A queued snapshot supersedes any older parked one.
		a.mu.Lock()
		delete(a.overflow, rec.Name)
		a.mu.Unlock()
	default:
		a.mu.Lock()
		a.overflow[rec.Name] = rec
		a.mu.Unlock()
		a.logger.Warn("save queue full, holding snapshot for sweep",
			zap.String("player", rec.Name))
	}
}

// takeOverflow empties the overflow set and returns its contents.
func (a *Autosaver) takeOverflow() map[string]*PlayerRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.overflow
	a.overflow = make(map[string]*PlayerRecord)
	return out
}

func (a *Autosaver) loop() {
	defer close(a.done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	// Records that failed to write, keyed by player name. The next
	// sweep retries them unless a newer snapshot arrives first.
	retry := make(map[string]*PlayerRecord)

	for {
		select {
		case rec := <-a.queue:
			a.save(rec, retry)
		case <-ticker.C:
			a.sweep(retry)
		case <-a.quit:
			for {
				select {
				case rec := <-a.queue:
					a.save(rec, retry)
					continue
				default:
				}
				break
			}
			a.sweep(retry)
			return
		}
	}
}

func (a *Autosaver) save(rec *PlayerRecord, retry map[string]*PlayerRecord) {
	if err := a.store.Save(rec); err != nil {
		a.logger.Error("player save failed",
			zap.String("player", rec.Name),
			zap.Error(err))
		retry[rec.Name] = rec
		return
	}
	delete(retry, rec.Name)
}

func (a *Autosaver) sweep(retry map[string]*PlayerRecord) {
	pending := make(map[string]*PlayerRecord, len(retry))
	for name, rec := range retry {
		pending[name] = rec
	}
	for name, rec := range a.takeOverflow() {
		pending[name] = rec
	}
	// Fresh snapshots supersede stale retries and parked overflow.
	for _, rec := range a.collect() {
		pending[rec.Name] = rec
	}
	for _, rec := range pending {
		a.save(rec, retry)
	}
}
