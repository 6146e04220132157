package persist

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/circle/internal/game/world"
)

// SettleRent charges storage rent accrued since the record's last
// settlement: perDay gold for each full day elapsed. A character who
// cannot pay loses the stored inventory and keeps whatever gold is left.
//
// Postcondition: RentSettledAt advances by the days charged; reports the
// gold charged and whether the inventory was forfeited.
func SettleRent(rec *PlayerRecord, now time.Time, perDay int) (charged int, forfeited bool) {
	if perDay <= 0 || rec.RentSettledAt.IsZero() {
		rec.RentSettledAt = now
		return 0, false
	}

	days := int(now.Sub(rec.RentSettledAt).Hours() / 24)
	if days <= 0 {
		return 0, false
	}

	due := days * perDay
	gold := rec.Stats[world.StatGold]
	if gold >= due {
		rec.Stats[world.StatGold] = gold - due
		rec.RentSettledAt = rec.RentSettledAt.Add(time.Duration(days) * 24 * time.Hour)
		return due, false
	}

	// The character cannot cover the bill. The stored items are sold
	// off and whatever gold was on hand pays the remainder.
	if rec.Stats == nil {
		rec.Stats = map[string]int{}
	}
	rec.Stats[world.StatGold] = 0
	rec.Inventory = nil
	rec.RentSettledAt = rec.RentSettledAt.Add(time.Duration(days) * 24 * time.Hour)
	return gold, true
}

// settleWorkers bounds the concurrency of the boot-time rent sweep.
const settleWorkers = 8

// SettleAll runs a rent settlement pass over every record on disk and
// writes back the ones that changed. Used at boot unless quick boot is
// requested; records are also settled lazily on load, so skipping the
// sweep only defers the charge. Records are independent files, so the
// sweep fans out across a bounded worker group.
func (s *PlayerStore) SettleAll(now time.Time, perDay int) error {
	names, err := s.Names()
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(settleWorkers)
	for _, name := range names {
		name := name
		g.Go(func() error {
			rec, err := s.Load(name)
			if errors.Is(err, ErrPlayerNotFound) {
				return nil // corrupt record, already logged
			}
			if err != nil {
				return err
			}

			charged, forfeited := SettleRent(rec, now, perDay)
			if charged == 0 && !forfeited {
				return nil
			}
			if forfeited {
				s.logger.Info("inventory forfeited to unpaid rent",
					zap.String("player", rec.Name))
			}
			return s.Save(rec)
		})
	}
	return g.Wait()
}
