// Package faction implements the faction relationship engine: the undirected
// tension edge between two factions, its decay toward neutrality, and the
// threshold-triggered transitions (war, alliance, peace opportunity) that
// fire exactly once on crossing.
package faction

import (
	"context"
	"math"
	"time"

	"github.com/duskmere/tension-engine/backend/internal/tenbus"
	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/internal/tenstore"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
	"github.com/duskmere/tension-engine/backend/pkg/tenmetrics"
)

// recentEventWindow bounds FactionRelationship.RecentEvents by age, not
// count: entries older than this are dropped on every update.
const recentEventWindow = 24 * time.Hour

// Dependencies are the collaborators Engine needs. Store is required.
type Dependencies struct {
	Config  tenconfig.ConfigRepository
	Store   *tenstore.FactionRelationshipRepository
	Bus     tenbus.Bus
	Metrics *tenmetrics.Registry
	Log     *logger.Logger
}

// Engine owns every FactionRelationship in the simulation.
type Engine struct {
	config  tenconfig.ConfigRepository
	store   *tenstore.FactionRelationshipRepository
	bus     tenbus.Bus
	metrics *tenmetrics.Registry
	log     *logger.Logger
}

// NewEngine constructs an Engine from deps.
func NewEngine(deps Dependencies) *Engine {
	return &Engine{
		config:  deps.Config,
		store:   deps.Store,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		log:     deps.Log,
	}
}

// GetFactionRelationship fetches the relationship between a and b, applying
// decay as of now, and persists the settled result.
func (e *Engine) GetFactionRelationship(ctx context.Context, a, b string, now time.Time) (tendomain.FactionRelationship, error) {
	result := e.store.Mutate(a, b, func(cur tendomain.FactionRelationship, exists bool) tendomain.FactionRelationship {
		if !exists {
			cur = tendomain.NewFactionRelationship(a, b, now)
		}
		return decay(cur, e.config.CalculationConstants().FactionBaseDecayRate, now)
	})
	return result, nil
}

// decay applies the daily-drift-toward-zero rule. daysElapsed is the
// fractional number of days since lastUpdated, truncated to an integer;
// fewer than a full day elapsed is a no-op. Alliance tension (negative)
// decays at half the rate, floored at 1 per day.
func decay(rel tendomain.FactionRelationship, baseDecayRate float64, now time.Time) tendomain.FactionRelationship {
	if rel.LastUpdated.IsZero() || !now.After(rel.LastUpdated) {
		if rel.LastUpdated.IsZero() {
			rel.LastUpdated = now
		}
		return rel
	}

	daysElapsed := math.Trunc(now.Sub(rel.LastUpdated).Hours() / 24)
	if daysElapsed < 1 {
		return rel
	}

	before := rel.TensionLevel
	dailyDecay := daysElapsed * baseDecayRate
	switch {
	case rel.TensionLevel > 0:
		rel.TensionLevel = maxInt(0, rel.TensionLevel-int(dailyDecay))
	case rel.TensionLevel < 0:
		allianceDecay := math.Max(1, dailyDecay/2)
		rel.TensionLevel = minInt(0, rel.TensionLevel+int(allianceDecay))
	}

	if abs(rel.TensionLevel-before) >= 5 {
		rel.RelationshipType = tendomain.ClassifyTension(rel.TensionLevel)
	}
	rel.LastUpdated = now
	return rel
}

// UpdateFactionTension applies delta to the relationship between a and b,
// persists it, and returns the settled relationship. Threshold-crossing
// events are published after the mutation commits.
func (e *Engine) UpdateFactionTension(ctx context.Context, a, b string, delta int, source string, now time.Time) (tendomain.FactionRelationship, error) {
	var oldTension int
	result := e.store.Mutate(a, b, func(cur tendomain.FactionRelationship, exists bool) tendomain.FactionRelationship {
		if !exists {
			cur = tendomain.NewFactionRelationship(a, b, now)
		}
		cur = decay(cur, e.config.CalculationConstants().FactionBaseDecayRate, now)
		oldTension = cur.TensionLevel

		cur.TensionLevel = tendomain.ClampFactionTension(cur.TensionLevel + delta)
		cur.RelationshipType = tendomain.ClassifyTension(cur.TensionLevel)
		cur.RecentEvents = appendRecentEvent(cur.RecentEvents, tendomain.FactionTensionEvent{
			Timestamp: now, Source: source, Delta: delta,
		}, now)
		cur.LastUpdated = now
		return cur
	})

	if e.metrics != nil {
		e.metrics.FactionTensionUpdates.WithLabelValues(string(result.RelationshipType)).Inc()
	}
	e.publishThresholdCrossing(ctx, result, oldTension, now)
	return result, nil
}

// appendRecentEvent appends event to events and drops everything older than
// recentEventWindow relative to now.
func appendRecentEvent(events []tendomain.FactionTensionEvent, event tendomain.FactionTensionEvent, now time.Time) []tendomain.FactionTensionEvent {
	events = append(events, event)
	kept := events[:0]
	for _, e := range events {
		if now.Sub(e.Timestamp) <= recentEventWindow {
			kept = append(kept, e)
		}
	}
	return kept
}

// publishThresholdCrossing emits exactly one of faction_war_declared,
// faction_alliance_formed, or faction_peace_opportunity, only on the update
// that causes the crossing -- never on subsequent updates that remain past
// it. The relationship mutation in UpdateFactionTension has already
// committed by the time this runs, so a publish failure is logged and
// swallowed: returning it would make a caller retry and re-apply delta,
// and could re-emit the crossing event on the replay.
func (e *Engine) publishThresholdCrossing(ctx context.Context, rel tendomain.FactionRelationship, oldTension int, now time.Time) {
	if e.bus == nil {
		return
	}

	var topic string
	switch {
	case oldTension < 70 && rel.TensionLevel >= 70:
		topic = tenbus.TopicFactionWarDeclared
		if e.metrics != nil {
			e.metrics.FactionWarsDeclared.Inc()
		}
	case oldTension > -50 && rel.TensionLevel <= -50:
		topic = tenbus.TopicFactionAllianceFormed
	case oldTension >= 70 && rel.TensionLevel < 70:
		topic = tenbus.TopicFactionPeaceOpportunity
		if e.metrics != nil {
			e.metrics.FactionPeaceOpenings.Inc()
		}
	default:
		return
	}

	if err := e.bus.Publish(ctx, tenbus.NewEvent(topic, now, tenbus.FactionRelationshipChanged{
		FactionAID: rel.FactionAID, FactionBID: rel.FactionBID, TensionLevel: rel.TensionLevel, Timestamp: now,
	})); err != nil && e.log != nil {
		e.log.WithContext(ctx).Error().Err(err).Str("topic", topic).
			Str("faction_a", rel.FactionAID).Str("faction_b", rel.FactionBID).
			Msg("publish faction threshold crossing failed, relationship already committed")
	}
}

// CheckWarStatus reports whether a and b are currently at war (tension at or
// above the relationship's war threshold), without applying decay.
func (e *Engine) CheckWarStatus(ctx context.Context, a, b string) (bool, error) {
	rel, ok := e.store.Get(a, b)
	if !ok {
		return false, nil
	}
	return rel.TensionLevel >= rel.WarThreshold, nil
}

// FactionDecaySweepResult is the outcome of DecayAllFactionTension.
type FactionDecaySweepResult struct {
	Processed int
	Decayed   int
}

// DecayAllFactionTension applies decay to every known relationship.
func (e *Engine) DecayAllFactionTension(ctx context.Context, now time.Time) FactionDecaySweepResult {
	result := FactionDecaySweepResult{}
	rate := e.config.CalculationConstants().FactionBaseDecayRate

	for _, rel := range e.store.All() {
		result.Processed++
		before := rel.TensionLevel
		e.store.Mutate(rel.FactionAID, rel.FactionBID, func(cur tendomain.FactionRelationship, exists bool) tendomain.FactionRelationship {
			if !exists {
				return cur
			}
			return decay(cur, rate, now)
		})
		after, ok := e.store.Get(rel.FactionAID, rel.FactionBID)
		if ok && after.TensionLevel != before {
			result.Decayed++
		}
	}
	return result
}

// GetFactionWars returns every relationship currently classified as war.
func (e *Engine) GetFactionWars(ctx context.Context) []tendomain.FactionRelationship {
	return filterByType(e.store.All(), tendomain.RelationshipWar)
}

// GetFactionAlliances returns every relationship currently classified as
// alliance.
func (e *Engine) GetFactionAlliances(ctx context.Context) []tendomain.FactionRelationship {
	return filterByType(e.store.All(), tendomain.RelationshipAlliance)
}

func filterByType(rels []tendomain.FactionRelationship, t tendomain.RelationshipType) []tendomain.FactionRelationship {
	out := make([]tendomain.FactionRelationship, 0, len(rels))
	for _, r := range rels {
		if r.RelationshipType == t {
			out = append(out, r)
		}
	}
	return out
}

// GetFactionRelationshipsForFaction returns every relationship involving
// factionID.
func (e *Engine) GetFactionRelationshipsForFaction(ctx context.Context, factionID string) []tendomain.FactionRelationship {
	return e.store.AllForFaction(factionID)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
