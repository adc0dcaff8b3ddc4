// Package environment implements the environmental tension engine: the
// per-(region, POI) scalar tension level, its decay, its time-bounded
// modifiers, and its event-driven updates.
package environment

import (
	"context"
	"math"
	"time"

	"github.com/duskmere/tension-engine/backend/internal/impact"
	"github.com/duskmere/tension-engine/backend/internal/tenbus"
	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/internal/tenstore"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
	"github.com/duskmere/tension-engine/backend/pkg/tenmetrics"
)

// majorChangeThreshold is the minimum absolute change in a single update
// that also publishes tension:major_change, in addition to the
// tension:level_changed every update publishes.
const majorChangeThreshold = 0.2

// PoiTypeResolver maps a LocationKey to the raw external POI type string
// (e.g. "CITY", "MINE") tenconfig.ResolveLocationType expects. The engine
// never reads a world model itself; collaborators that own POI data inject
// this at construction. A nil resolver treats every location as unresolved,
// which ResolveLocationType maps to "default".
type PoiTypeResolver interface {
	ResolveType(loc tendomain.LocationKey) string
}

// Dependencies are the collaborators the engine needs. Store is required;
// everything else is optional and safe to leave zero-valued.
type Dependencies struct {
	Config   tenconfig.ConfigRepository
	Store    *tenstore.TensionStateRepository
	History  *tenstore.SampleHistoryRepository
	Resolver PoiTypeResolver
	Bus      tenbus.Bus
	Metrics  *tenmetrics.Registry
	Log      *logger.Logger
}

// Engine owns every TensionState in the simulation.
type Engine struct {
	config   tenconfig.ConfigRepository
	store    *tenstore.TensionStateRepository
	history  *tenstore.SampleHistoryRepository
	resolver PoiTypeResolver
	bus      tenbus.Bus
	metrics  *tenmetrics.Registry
	log      *logger.Logger
}

// NewEngine constructs an Engine from deps.
func NewEngine(deps Dependencies) *Engine {
	return &Engine{
		config:   deps.Config,
		store:    deps.Store,
		history:  deps.History,
		resolver: deps.Resolver,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		log:      deps.Log,
	}
}

func (e *Engine) resolveConfig(loc tendomain.LocationKey) tendomain.TensionConfig {
	var poiType string
	if e.resolver != nil {
		poiType = e.resolver.ResolveType(loc)
	}
	locationType := e.config.ResolveLocationType(poiType)
	return e.config.LocationConfig(locationType)
}

// CalculateTension settles decay and modifier expiry for loc as of now,
// persists the result, and returns the clamped current level.
func (e *Engine) CalculateTension(ctx context.Context, loc tendomain.LocationKey, now time.Time) (float64, error) {
	result := e.store.Mutate(loc, func(cur tendomain.TensionState, exists bool) tendomain.TensionState {
		cfg := e.resolveConfig(loc)
		if !exists {
			cur = freshState(cfg)
		}
		cur, _ = settle(cur, cfg, now)
		return cur
	})

	e.recordSample(loc, now, result.CurrentLevel, "")
	return result.CurrentLevel, nil
}

// freshState lazily initializes a TensionState from cfg.
func freshState(cfg tendomain.TensionConfig) tendomain.TensionState {
	s := tendomain.TensionState{
		CurrentLevel: cfg.BaseTension,
		BaseLevel:    cfg.BaseTension,
		Modifiers:    make(map[string]tendomain.TensionModifier),
	}
	s.SetDecayLevel(cfg.BaseTension)
	return s
}

// settle applies decay to cur's modifier-free trajectory, overlays the sum
// of currently active modifiers to produce CurrentLevel, and drops expired
// modifiers. Because decay is computed against the modifier-free trajectory
// rather than the previous CurrentLevel, calling settle twice with no
// elapsed time and no modifier change reproduces the same CurrentLevel --
// the idempotence invariant would not hold if modifiers were re-summed onto
// an already-modified value. Clock non-monotonicity (now before
// lastUpdated) is treated as zero elapsed; lastUpdated is never rewound.
func settle(cur tendomain.TensionState, cfg tendomain.TensionConfig, now time.Time) (tendomain.TensionState, int) {
	elapsedHours := 0.0
	if !cur.LastUpdated.IsZero() && now.After(cur.LastUpdated) {
		elapsedHours = now.Sub(cur.LastUpdated).Hours()
	}

	decayed := cur.DecayLevel() - elapsedHours*cfg.DecayRate
	if decayed < cfg.MinTension {
		decayed = cfg.MinTension
	}
	cur.SetDecayLevel(decayed)

	expired := 0
	active := 0.0
	for key, mod := range cur.Modifiers {
		if mod.Expired(now) {
			delete(cur.Modifiers, key)
			expired++
			continue
		}
		active += mod.Value
	}

	cur.CurrentLevel = cfg.Clamp(decayed + active)
	if now.After(cur.LastUpdated) {
		cur.LastUpdated = now
	} else if cur.LastUpdated.IsZero() {
		cur.LastUpdated = now
	}
	return cur, expired
}

// UpdateTensionFromEvent settles decay for event's location, computes its
// impact, applies it, records the event, persists state, and publishes
// tension:level_changed (and tension:major_change for large swings).
func (e *Engine) UpdateTensionFromEvent(ctx context.Context, event tendomain.TensionEvent, now time.Time) (float64, error) {
	loc := event.Location()
	cfg := e.resolveConfig(loc)
	impactCfg := e.config.EventImpactConfig(event.EventType)

	var before, after float64
	result := e.store.Mutate(loc, func(cur tendomain.TensionState, exists bool) tendomain.TensionState {
		if !exists {
			cur = freshState(cfg)
		}
		cur, _ = settle(cur, cfg, now)
		before = cur.CurrentLevel

		delta := impact.Calculate(event.EventType, event.Data, impactCfg)
		cur.SetDecayLevel(cur.DecayLevel() + delta)
		cur.CurrentLevel = cfg.Clamp(cur.DecayLevel() + activeModifierSum(cur, now))
		cur.LastUpdated = now
		cur.AppendEvent(event.EventID)

		after = cur.CurrentLevel
		return cur
	})

	e.recordSample(loc, now, result.CurrentLevel, event.EventType)
	e.publishLevelChange(ctx, loc, before, after, now, event.EventID)
	if e.metrics != nil {
		e.metrics.TensionUpdates.WithLabelValues(string(event.EventType)).Inc()
	}
	return result.CurrentLevel, nil
}

// publishLevelChange publishes tension:level_changed (and tension:major_change
// for large swings), tagging ctx with eventID as the correlation ID so every
// handler the bus invokes for this publish logs under the same ID. The state
// mutation in UpdateTensionFromEvent has already committed by the time this
// runs, so a publish failure is logged and swallowed rather than returned --
// per the EventBusFailure contract, it's non-fatal and must never make an
// already-committed update look like it failed (a caller that retried on
// error would double-apply the delta).
func (e *Engine) publishLevelChange(ctx context.Context, loc tendomain.LocationKey, before, after float64, now time.Time, eventID string) {
	if e.bus == nil {
		return
	}
	if eventID != "" {
		ctx = logger.ContextWithCorrelationID(ctx, eventID)
	}

	if err := e.bus.Publish(ctx, tenbus.NewEvent(tenbus.TopicTensionLevelChanged, now, tenbus.TensionLevelChanged{
		RegionID: loc.RegionID, POIID: loc.POIID, TensionLevel: after,
	})); err != nil {
		if e.log != nil {
			e.log.WithContext(ctx).Error().Err(err).Str("region_id", loc.RegionID).Str("poi_id", loc.POIID).
				Msg("publish tension:level_changed failed, tension update already committed")
		}
		return
	}

	magnitude := math.Abs(after - before)
	if magnitude >= majorChangeThreshold {
		if err := e.bus.Publish(ctx, tenbus.NewEvent(tenbus.TopicTensionMajorChange, now, tenbus.TensionMajorChange{
			RegionID: loc.RegionID, POIID: loc.POIID, TensionLevel: after, ChangeMagnitude: magnitude,
		})); err != nil && e.log != nil {
			e.log.WithContext(ctx).Error().Err(err).Str("region_id", loc.RegionID).Str("poi_id", loc.POIID).
				Msg("publish tension:major_change failed, tension update already committed")
		}
	}
}

// AddTensionModifier inserts or replaces the modifier for modifierType at
// loc, initializing state if absent. It settles decay first so the stored
// CurrentLevel reflects the modifier immediately (invariant 8); it never
// applies the modifier's value a second time itself -- subsequent settle
// calls derive CurrentLevel from the decay trajectory plus the live
// modifier set each time.
func (e *Engine) AddTensionModifier(ctx context.Context, loc tendomain.LocationKey, modifierType string, value float64, durationHours float64, source string, now time.Time) error {
	cfg := e.resolveConfig(loc)

	e.store.Mutate(loc, func(cur tendomain.TensionState, exists bool) tendomain.TensionState {
		if !exists {
			cur = freshState(cfg)
		}
		cur, _ = settle(cur, cfg, now)
		cur.Modifiers[modifierType] = tendomain.TensionModifier{
			ModifierType:   modifierType,
			Value:          value,
			ExpirationTime: now.Add(time.Duration(durationHours * float64(time.Hour))),
			Source:         source,
		}
		cur.CurrentLevel = cfg.Clamp(cur.DecayLevel() + activeModifierSum(cur, now))
		return cur
	})
	return nil
}

// activeModifierSum sums the values of every modifier on cur that has not
// expired as of now.
func activeModifierSum(cur tendomain.TensionState, now time.Time) float64 {
	sum := 0.0
	for _, mod := range cur.Modifiers {
		if !mod.Expired(now) {
			sum += mod.Value
		}
	}
	return sum
}

// GetRegionsByTension returns every region with at least one POI whose
// current tension lies in [minTension, maxTension], sorted by average
// tension descending.
func (e *Engine) GetRegionsByTension(ctx context.Context, minTension, maxTension float64, now time.Time) []tendomain.RegionTensionSummary {
	byRegion := make(map[string]*tendomain.RegionTensionSummary)

	for _, loc := range e.store.AllLocations() {
		level, _ := e.CalculateTension(ctx, loc, now)
		if level < minTension || level > maxTension {
			continue
		}

		summary, ok := byRegion[loc.RegionID]
		if !ok {
			summary = &tendomain.RegionTensionSummary{RegionID: loc.RegionID}
			byRegion[loc.RegionID] = summary
		}
		summary.POIs = append(summary.POIs, loc)
		summary.POICount++
		summary.AverageTension += level
	}

	out := make([]tendomain.RegionTensionSummary, 0, len(byRegion))
	for _, s := range byRegion {
		s.AverageTension /= float64(s.POICount)
		out = append(out, *s)
	}
	sortRegionsByTensionDesc(out)
	return out
}

func sortRegionsByTensionDesc(regions []tendomain.RegionTensionSummary) {
	for i := 1; i < len(regions); i++ {
		for j := i; j > 0 && regions[j].AverageTension > regions[j-1].AverageTension; j-- {
			regions[j], regions[j-1] = regions[j-1], regions[j]
		}
	}
}

// DecaySweepResult is the outcome of DecayAllTension.
type DecaySweepResult struct {
	RegionsProcessed int
	POIsProcessed    int
	ModifiersExpired int
}

// DecayAllTension applies decay and modifier expiry to every known
// TensionState, with no event input.
func (e *Engine) DecayAllTension(ctx context.Context, now time.Time) DecaySweepResult {
	regions := make(map[string]struct{})
	result := DecaySweepResult{}

	for _, loc := range e.store.AllLocations() {
		cfg := e.resolveConfig(loc)
		expired := 0
		e.store.Mutate(loc, func(cur tendomain.TensionState, exists bool) tendomain.TensionState {
			if !exists {
				cur = freshState(cfg)
			}
			var n int
			cur, n = settle(cur, cfg, now)
			expired = n
			return cur
		})

		regions[loc.RegionID] = struct{}{}
		result.POIsProcessed++
		result.ModifiersExpired += expired
		if e.metrics != nil && expired > 0 {
			e.metrics.ModifierExpirations.WithLabelValues("expired").Add(float64(expired))
		}
	}

	result.RegionsProcessed = len(regions)
	if e.metrics != nil {
		e.metrics.TensionDecayRuns.Inc()
	}
	return result
}

func (e *Engine) recordSample(loc tendomain.LocationKey, now time.Time, level float64, kind tendomain.EventKind) {
	if e.history == nil {
		return
	}
	e.history.Record(loc, tendomain.TensionSample{Timestamp: now, Value: level, EventKind: kind})
}
