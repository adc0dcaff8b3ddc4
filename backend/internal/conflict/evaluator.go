// Package conflict evaluates aggregated region tension and faction state
// against configured ConflictTriggers, and simulates revolts.
package conflict

import (
	"context"
	"math"
	"time"

	"github.com/duskmere/tension-engine/backend/internal/environment"
	"github.com/duskmere/tension-engine/backend/internal/tenbus"
	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/internal/tenstore"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
	"github.com/duskmere/tension-engine/backend/pkg/tenmetrics"
)

// RNG is the randomness source SimulateRevolt needs, satisfied by
// *rand.Rand. Tests supply a seeded instance for determinism.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// RegionFaction is a faction present in a region, as reported by a
// FactionProvider.
type RegionFaction struct {
	ID    string
	Power float64
}

// FactionProvider is the external faction-roster collaborator. It is
// distinct from internal/faction's tension graph: this answers "which
// factions hold power in this region", data this core does not own per the
// scope boundary. A failing or absent provider is non-fatal; faction
// requirements on a trigger are simply treated as satisfied.
type FactionProvider interface {
	FactionsInRegion(ctx context.Context, regionID string) ([]RegionFaction, error)
}

// Dependencies are the collaborators Evaluator needs. Config, Store, Env and
// RNG are required.
type Dependencies struct {
	Config   tenconfig.ConfigRepository
	Store    *tenstore.TensionStateRepository
	Env      *environment.Engine
	Factions FactionProvider
	RNG      RNG
	Bus      tenbus.Bus
	Metrics  *tenmetrics.Registry
	Log      *logger.Logger
}

// Evaluator checks conflict triggers and simulates revolts.
type Evaluator struct {
	config   tenconfig.ConfigRepository
	store    *tenstore.TensionStateRepository
	env      *environment.Engine
	factions FactionProvider
	rng      RNG
	bus      tenbus.Bus
	metrics  *tenmetrics.Registry
	log      *logger.Logger
}

// NewEvaluator constructs an Evaluator from deps.
func NewEvaluator(deps Dependencies) *Evaluator {
	return &Evaluator{
		config:   deps.Config,
		store:    deps.Store,
		env:      deps.Env,
		factions: deps.Factions,
		rng:      deps.RNG,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		log:      deps.Log,
	}
}

// CheckConflictTriggers aggregates every POI's current tension in regionID
// and returns one ConflictRecord per trigger whose tension threshold and
// (if present) faction requirements are satisfied.
func (e *Evaluator) CheckConflictTriggers(ctx context.Context, regionID string, now time.Time) []tendomain.ConflictRecord {
	maxTension := 0.0
	for _, loc := range e.store.LocationsInRegion(regionID) {
		level, err := e.env.CalculateTension(ctx, loc, now)
		if err != nil {
			continue
		}
		if level > maxTension {
			maxTension = level
		}
	}

	regionFactions, factionsEvaluable := e.fetchRegionFactions(ctx, regionID)

	var records []tendomain.ConflictRecord
	for _, trigger := range e.config.ConflictTriggers() {
		if maxTension < trigger.TensionThreshold {
			continue
		}
		if !factionRequirementsSatisfied(trigger, regionFactions, factionsEvaluable) {
			continue
		}

		record := tendomain.ConflictRecord{
			TriggerName:         trigger.Name,
			RegionID:            regionID,
			TensionThreshold:    trigger.TensionThreshold,
			DurationHours:       trigger.DurationHours,
			ProbabilityModifier: trigger.ProbabilityModifier,
			StartTime:           now,
			EstimatedEnd:        now.Add(time.Duration(trigger.DurationHours) * time.Hour),
		}
		records = append(records, record)

		if e.metrics != nil {
			e.metrics.ConflictTriggers.WithLabelValues(trigger.Name).Inc()
		}
		e.publishConflictTriggered(ctx, record, now)
	}
	return records
}

// fetchRegionFactions asks the FactionProvider for regionID's factions. The
// second return is false if the requirements could not be evaluated (no
// provider configured, or the provider errored) -- per the spec, that is
// non-fatal and faction requirements are treated as satisfied.
func (e *Evaluator) fetchRegionFactions(ctx context.Context, regionID string) ([]RegionFaction, bool) {
	if e.factions == nil {
		return nil, false
	}
	factions, err := e.factions.FactionsInRegion(ctx, regionID)
	if err != nil {
		if e.log != nil {
			e.log.WithContext(ctx).Warn().Err(err).Str("region_id", regionID).Msg("faction service unavailable, skipping faction requirements")
		}
		return nil, false
	}
	return factions, true
}

// factionRequirementsSatisfied evaluates trigger.FactionRequirements against
// factions. If evaluable is false (faction service unavailable), every
// requirement is treated as satisfied rather than failing the trigger.
func factionRequirementsSatisfied(trigger tendomain.ConflictTrigger, factions []RegionFaction, evaluable bool) bool {
	if len(trigger.FactionRequirements) == 0 {
		return true
	}
	if !evaluable {
		return true
	}

	for key, value := range trigger.FactionRequirements {
		switch key {
		case "min_factions":
			if float64(len(factions)) < value {
				return false
			}
		case "power_imbalance":
			if !powerImbalanceSatisfied(factions, value) {
				return false
			}
		default:
			if !factionPowerAtLeast(factions, key, value) {
				return false
			}
		}
	}
	return true
}

func powerImbalanceSatisfied(factions []RegionFaction, value float64) bool {
	if len(factions) == 0 {
		return false
	}
	minPower, maxPower := factions[0].Power, factions[0].Power
	for _, f := range factions[1:] {
		if f.Power < minPower {
			minPower = f.Power
		}
		if f.Power > maxPower {
			maxPower = f.Power
		}
	}
	return maxPower-minPower >= value*10
}

func factionPowerAtLeast(factions []RegionFaction, factionID string, value float64) bool {
	for _, f := range factions {
		if f.ID == factionID {
			return f.Power >= value
		}
	}
	return false
}

func (e *Evaluator) publishConflictTriggered(ctx context.Context, record tendomain.ConflictRecord, now time.Time) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, tenbus.NewEvent(tenbus.TopicConflictTriggered, now, tenbus.ConflictTriggered{
		RegionID:     record.RegionID,
		ConflictType: record.TriggerName,
		Severity:     record.TensionThreshold,
	})); err != nil && e.log != nil {
		e.log.WithContext(ctx).Error().Err(err).Str("region_id", record.RegionID).
			Msg("publish tension:conflict_triggered failed, conflict record already committed")
	}
}

// SimulateRevolt rolls whether a revolt occurs at (regionID, poiID) given
// factionCount factions present and tensionLevel, and applies its effects if
// so.
func (e *Evaluator) SimulateRevolt(ctx context.Context, regionID, poiID string, factionCount int, tensionLevel float64, now time.Time) (tendomain.RevoltRecord, error) {
	cfg := e.config.RevoltConfig()

	probability := math.Min(1.0, tensionLevel*cfg.BaseProbabilityThreshold+float64(factionCount)*cfg.FactionInfluenceModifier)
	occurred := e.rng.Float64() < probability

	record := tendomain.RevoltRecord{
		RegionID:    regionID,
		POIID:       poiID,
		Occurred:    occurred,
		Probability: probability,
		StartedAt:   now,
	}
	if !occurred {
		return record, nil
	}

	span := cfg.MaxDurationHours - cfg.MinDurationHours
	record.DurationHours = cfg.MinDurationHours
	if span > 0 {
		record.DurationHours += e.rng.Intn(span + 1)
	}

	base := math.Floor(tensionLevel * 10 * float64(factionCount)) * cfg.CasualtyMultiplier
	record.Casualties = tendomain.RevoltCasualties{
		Civilians:      maxIntC(1, int(base/2)),
		FactionMembers: maxIntC(0, int(base/4)),
		Authorities:    maxIntC(0, int(base/8)),
	}

	loc := tendomain.LocationKey{RegionID: regionID, POIID: poiID}
	if err := e.env.AddTensionModifier(ctx, loc, "post_revolt_relief", -0.3, 72, "revolt", now); err != nil {
		return record, err
	}

	if e.metrics != nil {
		e.metrics.Revolts.WithLabelValues("occurred").Inc()
	}
	if e.bus != nil {
		if err := e.bus.Publish(ctx, tenbus.NewEvent(tenbus.TopicRevoltOccurred, now, record)); err != nil && e.log != nil {
			e.log.WithContext(ctx).Error().Err(err).Str("region_id", regionID).Str("poi_id", poiID).
				Msg("publish revolt_occurred failed, revolt record already committed")
		}
	}
	return record, nil
}

func maxIntC(a, b int) int {
	if a > b {
		return a
	}
	return b
}
