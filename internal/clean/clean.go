// Package clean runs the full-dataset maintenance pass: text and address
// normalization, bogus-hours clearing, opening-hours enrichment from
// OpenStreetMap, and coordinate-keyed deduplication, in that fixed order.
// Every stage is a complete sweep over the stored record set.
package clean

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/restroom-access/restroom-cli/internal/address"
	"github.com/restroom-access/restroom-cli/internal/hours"
	"github.com/restroom-access/restroom-cli/internal/model"
	"github.com/restroom-access/restroom-cli/internal/store"
	"github.com/restroom-access/restroom-cli/pkg/overpass"
)

// Catalog is the slice of the store the cleaning pass needs.
type Catalog interface {
	ListRestrooms(ctx context.Context, filter store.Filter) ([]model.Restroom, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]any) error
	DeleteRestrooms(ctx context.Context, ids []int64) (int64, error)
	CountRestrooms(ctx context.Context) (int, error)
}

// HoursLookup finds opening hours near a coordinate.
type HoursLookup interface {
	NearbyHours(ctx context.Context, lat, lon float64) (*overpass.Result, error)
}

// Options control one cleaning run. DryRun reports what would change
// without writing anything and skips enrichment entirely, so a dry run
// never touches the network.
type Options struct {
	DryRun         bool
	SkipHoursFetch bool
}

// Summary reports per-stage counts for one run.
type Summary struct {
	TitleCased        int  `json:"title_cased"`
	StatesAppended    int  `json:"states_appended"`
	Suffixed          int  `json:"suffixed"`
	HoursCleared      int  `json:"hours_cleared"`
	HoursFetched      int  `json:"hours_fetched"`
	DuplicatesRemoved int  `json:"duplicates_removed"`
	FinalTotal        int  `json:"final_total"`
	DryRun            bool `json:"dry_run"`
}

// String renders the operator-facing report.
func (s *Summary) String() string {
	var b strings.Builder
	if s.DryRun {
		b.WriteString("=== Cleaning Summary (dry run, nothing written) ===\n")
	} else {
		b.WriteString("=== Cleaning Summary ===\n")
	}
	fmt.Fprintf(&b, "Title-cased:        %d\n", s.TitleCased)
	fmt.Fprintf(&b, "States appended:    %d\n", s.StatesAppended)
	fmt.Fprintf(&b, "Suffixes added:     %d\n", s.Suffixed)
	fmt.Fprintf(&b, "Bogus hours cleared:%d\n", s.HoursCleared)
	fmt.Fprintf(&b, "Hours fetched:      %d\n", s.HoursFetched)
	fmt.Fprintf(&b, "Duplicates removed: %d\n", s.DuplicatesRemoved)
	fmt.Fprintf(&b, "Final record count: %d\n", s.FinalTotal)
	return b.String()
}

// Cleaner applies the cleaning stages against a store.
type Cleaner struct {
	store Catalog
	hours HoursLookup
	opts  Options
}

// New creates a Cleaner. The hours lookup may be nil, which behaves like
// SkipHoursFetch.
func New(catalog Catalog, lookup HoursLookup, opts Options) *Cleaner {
	return &Cleaner{store: catalog, hours: lookup, opts: opts}
}

// Run executes every stage in order and returns the combined summary. A
// stage failure stops the run; partial counts up to that stage are lost.
func (c *Cleaner) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{DryRun: c.opts.DryRun}

	var err error
	if sum.TitleCased, err = c.titleCasePass(ctx); err != nil {
		return nil, err
	}
	if sum.StatesAppended, err = c.statePass(ctx); err != nil {
		return nil, err
	}
	if sum.Suffixed, err = c.suffixPass(ctx); err != nil {
		return nil, err
	}
	if sum.HoursCleared, err = c.bogusHoursPass(ctx); err != nil {
		return nil, err
	}
	if sum.HoursFetched, err = c.enrichHoursPass(ctx); err != nil {
		return nil, err
	}
	if sum.DuplicatesRemoved, err = c.dedupePass(ctx); err != nil {
		return nil, err
	}
	if sum.FinalTotal, err = c.store.CountRestrooms(ctx); err != nil {
		return nil, err
	}

	zap.L().Info("clean: pass complete",
		zap.Int("title_cased", sum.TitleCased),
		zap.Int("states_appended", sum.StatesAppended),
		zap.Int("suffixed", sum.Suffixed),
		zap.Int("hours_cleared", sum.HoursCleared),
		zap.Int("hours_fetched", sum.HoursFetched),
		zap.Int("duplicates_removed", sum.DuplicatesRemoved),
		zap.Int("final_total", sum.FinalTotal),
		zap.Bool("dry_run", sum.DryRun))
	return sum, nil
}

// titleCasePass normalizes name and address casing.
func (c *Cleaner) titleCasePass(ctx context.Context) (int, error) {
	rs, err := c.store.ListRestrooms(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range rs {
		r := &rs[i]
		fields := map[string]any{}
		if fixed := address.TitleCase(r.Name); fixed != r.Name {
			fields["name"] = fixed
		}
		if fixed := address.TitleCase(r.Address); fixed != r.Address {
			fields["address"] = fixed
		}
		if len(fields) == 0 {
			continue
		}
		if err := c.apply(ctx, r.ID, fields); err != nil {
			return changed, err
		}
		changed++
	}
	zap.L().Info("clean: title case", zap.Int("changed", changed))
	return changed, nil
}

// statePass backfills state abbreviations into addresses from ZIPs.
func (c *Cleaner) statePass(ctx context.Context) (int, error) {
	rs, err := c.store.ListRestrooms(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range rs {
		r := &rs[i]
		fixed := address.EnsureStateInAddress(r.Address, r.Zip)
		if fixed == r.Address {
			continue
		}
		if err := c.apply(ctx, r.ID, map[string]any{"address": fixed}); err != nil {
			return changed, err
		}
		changed++
	}
	zap.L().Info("clean: state append", zap.Int("changed", changed))
	return changed, nil
}

// suffixPass appends facility-type suffixes to names that imply one.
func (c *Cleaner) suffixPass(ctx context.Context) (int, error) {
	rs, err := c.store.ListRestrooms(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range rs {
		r := &rs[i]
		fixed := address.EnsureSuffix(r.Name)
		if fixed == r.Name {
			continue
		}
		if err := c.apply(ctx, r.ID, map[string]any{"name": fixed}); err != nil {
			return changed, err
		}
		changed++
	}
	zap.L().Info("clean: suffixes", zap.Int("changed", changed))
	return changed, nil
}

// bogusHoursPass clears hours values that are numeric source codes.
func (c *Cleaner) bogusHoursPass(ctx context.Context) (int, error) {
	rs, err := c.store.ListRestrooms(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range rs {
		r := &rs[i]
		if !hours.IsBogus(r.Hours) {
			continue
		}
		if err := c.apply(ctx, r.ID, map[string]any{"hours": ""}); err != nil {
			return changed, err
		}
		changed++
	}
	zap.L().Info("clean: bogus hours", zap.Int("cleared", changed))
	return changed, nil
}

// enrichHoursPass fills empty hours from OpenStreetMap tags near each
// record. The lookup client throttles itself; with its ~1s spacing a
// large dataset makes this the long pole of the whole pass.
func (c *Cleaner) enrichHoursPass(ctx context.Context) (int, error) {
	if c.opts.DryRun || c.opts.SkipHoursFetch || c.hours == nil {
		zap.L().Info("clean: hours enrichment skipped")
		return 0, nil
	}

	rs, err := c.store.ListRestrooms(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	fetched := 0
	for i := range rs {
		if err := ctx.Err(); err != nil {
			return fetched, err
		}
		r := &rs[i]
		if hours.Usable(r.Hours) || !r.HasCoordinates() {
			continue
		}
		lat, lon := r.Coords()
		if !model.ValidCoordinates(lat, lon) {
			continue
		}
		if lat == 0 && lon == 0 {
			// (0, 0) marks a failed geocode, not a location.
			continue
		}

		res, err := c.hours.NearbyHours(ctx, lat, lon)
		if err != nil {
			// Best-effort: the record stays as it was.
			zap.L().Warn("clean: hours lookup failed",
				zap.Int64("id", r.ID),
				zap.Error(err))
			continue
		}
		if !res.Found {
			zap.L().Debug("clean: no nearby hours",
				zap.Int64("id", r.ID),
				zap.String("reason", res.Reason))
			continue
		}

		if err := c.apply(ctx, r.ID, map[string]any{"hours": res.Hours}); err != nil {
			return fetched, err
		}
		fetched++
	}
	zap.L().Info("clean: hours enrichment", zap.Int("fetched", fetched))
	return fetched, nil
}

// apply writes a partial update unless this is a dry run.
func (c *Cleaner) apply(ctx context.Context, id int64, fields map[string]any) error {
	if c.opts.DryRun {
		return nil
	}
	return c.store.UpdateFields(ctx, id, fields)
}
