package clean

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/restroom-access/restroom-cli/internal/hours"
	"github.com/restroom-access/restroom-cli/internal/model"
	"github.com/restroom-access/restroom-cli/internal/store"
)

// dedupePass removes records sharing a coordinate cell, keeping the
// richest record in each cell. Records without coordinates and records
// parked at the (0, 0) geocode-miss sentinel all share the origin cell,
// so the degraded pile collapses to its single most descriptive entry.
func (c *Cleaner) dedupePass(ctx context.Context) (int, error) {
	rs, err := c.store.ListRestrooms(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	survivors := make(map[string]*model.Restroom)
	var doomed []int64
	for i := range rs {
		r := &rs[i]
		lat, lon := r.Coords()
		if r.HasCoordinates() && !model.ValidCoordinates(lat, lon) {
			continue
		}

		key := spatialKey(lat, lon)
		cur, ok := survivors[key]
		if !ok {
			survivors[key] = r
			continue
		}
		if richer(r, cur) {
			doomed = append(doomed, cur.ID)
			survivors[key] = r
		} else {
			doomed = append(doomed, r.ID)
		}
	}

	if len(doomed) == 0 {
		zap.L().Info("clean: dedupe", zap.Int("removed", 0))
		return 0, nil
	}
	if c.opts.DryRun {
		zap.L().Info("clean: dedupe (dry run)", zap.Int("would_remove", len(doomed)))
		return len(doomed), nil
	}

	n, err := c.store.DeleteRestrooms(ctx, doomed)
	if err != nil {
		return 0, err
	}
	zap.L().Info("clean: dedupe", zap.Int64("removed", n))
	return int(n), nil
}

// spatialKey buckets a coordinate at five decimal places, roughly a
// one-meter cell. Two reports of the same restroom land in the same cell
// even when their sources disagree past that precision.
func spatialKey(lat, lon float64) string {
	la, lo := model.Round5(lat), model.Round5(lon)
	// Fold negative zero into the origin cell.
	if la == 0 {
		la = 0
	}
	if lo == 0 {
		lo = 0
	}
	return fmt.Sprintf("%.5f,%.5f", la, lo)
}

// richer reports whether a should replace b as the cell survivor. Usable
// hours beat missing hours, then non-empty remarks, then total text
// length. Ties keep the incumbent, so earlier records win on equal
// richness.
func richer(a, b *model.Restroom) bool {
	ah, bh := hours.Usable(a.Hours), hours.Usable(b.Hours)
	if ah != bh {
		return ah
	}
	ar, br := a.Remarks != "", b.Remarks != ""
	if ar != br {
		return ar
	}
	return len(a.Hours)+len(a.Remarks) > len(b.Hours)+len(b.Remarks)
}
