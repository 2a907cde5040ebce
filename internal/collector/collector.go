package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wonny/wielermanager/internal/contracts"
	"github.com/wonny/wielermanager/internal/external/pcs"
	"github.com/wonny/wielermanager/internal/external/sporza"
	"github.com/wonny/wielermanager/internal/rulesconfig"
	"github.com/wonny/wielermanager/pkg/logger"
)

// RaceSource provides start lists, favourites and results per race
type RaceSource interface {
	Startlist(ctx context.Context, raceID string) ([]string, error)
	TopCompetitors(ctx context.Context, raceID string) ([]pcs.Competitor, error)
	Results(ctx context.Context, raceID string, maxRank int) ([]pcs.Placing, error)
}

// PriceSource provides the game's rider prices
type PriceSource interface {
	Cyclists(ctx context.Context) ([]sporza.Cyclist, error)
}

// Collector builds snapshots from race pages and the game price list
// ⭐ SSOT: snapshot assembly happens in this package only
type Collector struct {
	races  RaceSource
	prices PriceSource
	rules  *rulesconfig.Config
	logger *logger.Logger
	now    func() time.Time
}

// Config holds collector configuration
type Config struct {
	Workers      int  // concurrent race fetches
	KeepUnpriced bool // keep riders missing from the price list (cost 0)
}

// DefaultConfig fetches two races at a time and drops unpriced riders
func DefaultConfig() Config {
	return Config{Workers: 2}
}

// New creates a Collector
func New(races RaceSource, prices PriceSource, rules *rulesconfig.Config, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{
		races:  races,
		prices: prices,
		rules:  rules,
		logger: log.WithField("module", "collector"),
		now:    time.Now,
	}
}

// raceFetch is what one worker brings back for one race
type raceFetch struct {
	index       int
	starters    []string
	competitors []pcs.Competitor
	err         error
}

// Collect scrapes every configured race and prices the scored riders
func (c *Collector) Collect(ctx context.Context, cfg Config) (*contracts.Snapshot, error) {
	periods := c.rules.Periods()
	if len(periods) == 0 {
		return nil, errors.New("rules file has no races")
	}

	c.logger.WithFields(map[string]interface{}{
		"races":   len(periods),
		"workers": cfg.Workers,
	}).Info("Starting collection")

	fetched := c.fetchRaces(ctx, periods, cfg.Workers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	season := strconv.Itoa(c.rules.Meta.Season)
	scale := c.rules.Scoring.TopCompetitors
	riders := make(map[string]*contracts.Candidate)
	rider := func(slug string) *contracts.Candidate {
		r, ok := riders[slug]
		if !ok {
			r = &contracts.Candidate{
				ID:             slug,
				Name:           pcs.RiderName(slug),
				ExpectedValues: map[string]float64{},
				Ranks:          map[string]int{},
			}
			riders[slug] = r
		}
		return r
	}

	failed := 0
	for _, f := range fetched {
		p := &periods[f.index]
		p.Year = season
		p.Starters = f.starters
		if f.err != nil {
			if len(f.starters) == 0 && len(f.competitors) == 0 {
				failed++
			}
			c.logger.WithError(f.err).WithField("race_id", p.ID).Warn("Race fetch failed")
		}

		for _, slug := range f.starters {
			addStart(rider(slug), p.ID)
		}
		for _, tc := range f.competitors {
			r := rider(tc.Slug)
			addStart(r, p.ID)
			pts := scale.For(tc.Rank)
			r.Ranks[p.ID] = tc.Rank
			r.ExpectedValues[p.ID] = pts
			r.GlobalScore += pts
		}
	}
	if failed == len(periods) {
		return nil, errors.New("every race fetch failed")
	}

	scored := make([]contracts.Candidate, 0, len(riders))
	for _, r := range riders {
		if r.GlobalScore > 0 {
			scored = append(scored, *r)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].GlobalScore != scored[j].GlobalScore {
			return scored[i].GlobalScore > scored[j].GlobalScore
		}
		return scored[i].ID < scored[j].ID
	})

	snap := &contracts.Snapshot{
		GameID:      c.rules.Meta.GameID,
		Season:      c.rules.Meta.Season,
		CollectedAt: c.now().UTC(),
		Riders:      scored,
		Races:       periods,
	}

	if err := c.ApplyPrices(ctx, snap, cfg.KeepUnpriced); err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"riders":        len(snap.Riders),
		"races":         len(snap.Races),
		"failed_races":  failed,
		"total_scanned": len(riders),
	}).Info("Collection completed")

	return snap, nil
}

// fetchRaces runs a small worker pool over the calendar; results keep calendar order
func (c *Collector) fetchRaces(ctx context.Context, periods []contracts.Period, workers int) []raceFetch {
	if workers < 1 {
		workers = 1
	}

	results := make([]raceFetch, len(periods))
	indexCh := make(chan int, len(periods))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexCh {
				results[idx] = c.fetchRace(ctx, idx, periods[idx].ID)
			}
		}()
	}

	for i := range periods {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	return results
}

func (c *Collector) fetchRace(ctx context.Context, idx int, raceID string) raceFetch {
	f := raceFetch{index: idx, starters: []string{}}
	if ctx.Err() != nil {
		f.err = ctx.Err()
		return f
	}

	starters, err := c.races.Startlist(ctx, raceID)
	if err != nil {
		f.err = fmt.Errorf("start list: %w", err)
	} else {
		f.starters = starters
	}

	competitors, err := c.races.TopCompetitors(ctx, raceID)
	if err != nil {
		f.err = errors.Join(f.err, fmt.Errorf("top competitors: %w", err))
	} else {
		f.competitors = competitors
	}
	return f
}

// ApplyPrices sets cost and game data from the price list, matched by
// normalized name. Unmatched riders are dropped unless keepUnpriced is set.
func (c *Collector) ApplyPrices(ctx context.Context, snap *contracts.Snapshot, keepUnpriced bool) error {
	cyclists, err := c.prices.Cyclists(ctx)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	list := sporza.NewPriceList(cyclists)

	kept := snap.Riders[:0]
	var missing []string
	for _, r := range snap.Riders {
		cy, ok := list.Lookup(r.Name, r.ID)
		if !ok {
			missing = append(missing, r.ID)
			if keepUnpriced {
				r.Cost, r.ROI = 0, 0
				kept = append(kept, r)
			}
			continue
		}

		r.Name = cy.FullName
		r.Team = cy.Team.Name
		r.Cost = cy.Price
		r.SporzaID = cy.ID
		r.Popularity = cy.Popularity
		r.JerseyURL = cy.Team.JerseyURL
		r.ROI = 0
		if cy.Price > 0 {
			r.ROI = math.Round(r.GlobalScore/cy.Price*100) / 100
		}
		kept = append(kept, r)
	}
	snap.Riders = kept

	if len(missing) > 0 {
		sample := missing
		if len(sample) > 10 {
			sample = sample[:10]
		}
		c.logger.WithFields(map[string]interface{}{
			"missing": len(missing),
			"sample":  sample,
		}).Warn("Riders without a game price")
	}
	return nil
}

// RefreshResults fills actual results for races with a published
// classification and returns how many races were updated
func (c *Collector) RefreshResults(ctx context.Context, snap *contracts.Snapshot) (int, error) {
	scale := c.rules.Scoring.Results
	var errs []error
	updated := 0

	for i := range snap.Races {
		race := &snap.Races[i]
		placings, err := c.races.Results(ctx, race.ID, scale.Depth())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", race.ID, err))
			continue
		}

		if len(placings) == 0 {
			if !race.Completed {
				race.Results = map[string]contracts.RaceResult{}
			}
			continue
		}

		results := make(map[string]contracts.RaceResult, len(placings))
		for _, pl := range placings {
			results[pl.Slug] = contracts.RaceResult{Rank: pl.Rank, Points: scale.For(pl.Rank)}
		}
		race.Results = results
		race.Completed = true
		updated++

		c.logger.WithFields(map[string]interface{}{
			"race_id":   race.ID,
			"finishers": len(results),
		}).Info("Race results found")
	}

	if len(errs) > 0 && updated == 0 {
		return 0, errors.Join(errs...)
	}
	for _, err := range errs {
		c.logger.WithError(err).Warn("Results fetch failed")
	}
	return updated, nil
}

func addStart(r *contracts.Candidate, raceID string) {
	if !r.StartsIn(raceID) {
		r.Starts = append(r.Starts, raceID)
	}
}
