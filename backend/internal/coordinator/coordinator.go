package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duskmere/tension-engine/backend/internal/analysis"
	"github.com/duskmere/tension-engine/backend/internal/conflict"
	"github.com/duskmere/tension-engine/backend/internal/environment"
	"github.com/duskmere/tension-engine/backend/internal/faction"
	"github.com/duskmere/tension-engine/backend/internal/prediction"
	"github.com/duskmere/tension-engine/backend/internal/tenbus"
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
)

const majorChangeCacheTTL = 30 * time.Second

// RegionFaction is the minimal faction membership view the coordinator needs
// to scope faction-wide queries (wars, alliances) down to a single region.
type RegionFaction struct {
	ID string
}

// RegionFactionProvider resolves which factions are present in a region.
// A nil provider or a returned error degrades to an empty faction set rather
// than failing the composite query.
type RegionFactionProvider interface {
	FactionsInRegion(ctx context.Context, regionID string) ([]RegionFaction, error)
}

// Dependencies wires the coordinator to the engines it fans out to and the
// cache backing its composite query results.
type Dependencies struct {
	Environment *environment.Engine
	Faction     *faction.Engine
	Conflict    *conflict.Evaluator
	Analysis    *analysis.Analyzer
	Prediction  *prediction.Engine
	Factions    RegionFactionProvider
	Bus         tenbus.Bus
	Cache       Cache
	Log         *logger.Logger
}

// Coordinator fans out composite read operations across the other engines
// and invalidates its cache when it observes state-changing bus events. It
// owns no tension or faction state itself.
type Coordinator struct {
	environment *environment.Engine
	faction     *faction.Engine
	conflict    *conflict.Evaluator
	analysis    *analysis.Analyzer
	prediction  *prediction.Engine
	factions    RegionFactionProvider
	bus         tenbus.Bus
	cache       Cache
	log         *logger.Logger
}

// New constructs a Coordinator and subscribes it to the bus topics whose
// events invalidate its cached composite analyses. deps.Cache defaults to an
// in-process MemoryCache when nil.
func New(deps Dependencies) *Coordinator {
	cache := deps.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}

	c := &Coordinator{
		environment: deps.Environment,
		faction:     deps.Faction,
		conflict:    deps.Conflict,
		analysis:    deps.Analysis,
		prediction:  deps.Prediction,
		factions:    deps.Factions,
		bus:         deps.Bus,
		cache:       cache,
		log:         deps.Log,
	}

	c.subscribeInvalidation()
	return c
}

func (c *Coordinator) subscribeInvalidation() {
	if c.bus == nil {
		return
	}
	topics := []string{
		tenbus.TopicTensionLevelChanged,
		tenbus.TopicTensionMajorChange,
		tenbus.TopicConflictTriggered,
		tenbus.TopicRevoltOccurred,
		tenbus.TopicFactionWarDeclared,
		tenbus.TopicFactionAllianceFormed,
		tenbus.TopicFactionPeaceOpportunity,
	}
	for _, topic := range topics {
		_ = c.bus.Subscribe(topic, c.invalidateOnEvent)
	}
}

// invalidateOnEvent drops the cached comprehensive analysis for whatever
// region the event names, so the next query recomputes from current state.
// Faction threshold crossings carry no RegionID -- a war or alliance between
// two factions can affect the comprehensive analysis of every region either
// holds power in, which this coordinator has no way to enumerate -- so those
// clear the whole cache instead of leaving stale entries around for up to
// majorChangeCacheTTL.
func (c *Coordinator) invalidateOnEvent(ctx context.Context, event tenbus.Event) error {
	regionID, ok := regionFromEventData(event.Data())
	if !ok {
		return c.cache.Clear(ctx)
	}
	if regionID == "" {
		return nil
	}
	return c.cache.Delete(ctx, comprehensiveAnalysisCacheKey(regionID))
}

// regionFromEventData returns the RegionID named by an invalidation-worthy
// event, and false for the faction-crossing payload, which names no region.
// Any other payload type yields an empty RegionID with true, which
// invalidateOnEvent treats as a no-op.
func regionFromEventData(data interface{}) (string, bool) {
	switch v := data.(type) {
	case tenbus.TensionLevelChanged:
		return v.RegionID, true
	case tenbus.TensionMajorChange:
		return v.RegionID, true
	case tenbus.ConflictTriggered:
		return v.RegionID, true
	case tendomain.RevoltRecord:
		return v.RegionID, true
	case tenbus.FactionRelationshipChanged:
		return "", false
	}
	return "", true
}

// comprehensiveAnalysisCacheKey is keyed by region alone: every cached query
// is invalidated together when any tension or faction event for the region
// arrives, rather than tracking per-POI generations the Cache interface has
// no way to enumerate.
func comprehensiveAnalysisCacheKey(regionID string) string {
	return fmt.Sprintf("comprehensive:%s", regionID)
}

// ComprehensiveAnalysis is the fan-in result of every read-only query the
// coordinator can run against a single (region, poi).
type ComprehensiveAnalysis struct {
	RegionID         string
	POIID            string
	CurrentTension   float64
	FactionRelations []tendomain.FactionRelationship
	ConflictTriggers []tendomain.ConflictRecord
	Patterns         []tendomain.PatternDetection
	Anomalies        []tendomain.AnomalyDetection
	Escalation       tendomain.TensionPrediction
	Outbreak         tendomain.ConflictOutbreakPrediction
	Recommendations  []string
	GeneratedAt      time.Time
}

// GetComprehensiveAnalysis fans out to every engine's read-only operations
// for (regionID, poiID) and aggregates the results. A cached result less than
// majorChangeCacheTTL old is returned without recomputation; the cache is
// invalidated by the coordinator's bus handler whenever a tension or faction
// event for the region is observed, which the in-memory bus runs in its own
// goroutine, after Publish has returned.
func (c *Coordinator) GetComprehensiveAnalysis(ctx context.Context, regionID, poiID string, now time.Time) ComprehensiveAnalysis {
	key := comprehensiveAnalysisCacheKey(regionID)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, key); ok {
			if existing, ok := cached.(ComprehensiveAnalysis); ok {
				return existing
			}
			// RedisCache hands back the generic JSON-decoded form of the value.
			if raw, err := json.Marshal(cached); err == nil {
				var decoded ComprehensiveAnalysis
				if json.Unmarshal(raw, &decoded) == nil {
					return decoded
				}
			}
		}
	}

	loc := tendomain.LocationKey{RegionID: regionID, POIID: poiID}
	currentTension, err := c.environment.CalculateTension(ctx, loc, now)
	if err != nil {
		c.logWarn(ctx, err, "comprehensive analysis: calculate tension failed", regionID, poiID)
	}

	result := ComprehensiveAnalysis{
		RegionID:         regionID,
		POIID:            poiID,
		CurrentTension:   currentTension,
		FactionRelations: c.regionFactionRelationships(ctx, regionID, now),
		ConflictTriggers: c.conflict.CheckConflictTriggers(ctx, regionID, now),
		Patterns:         c.analysis.AnalyzeTensionPatterns(ctx, regionID, poiID, 7, now),
		Anomalies:        c.analysis.DetectAnomalies(ctx, regionID, poiID, currentTension, now),
		Escalation:       c.prediction.PredictTensionEscalation(ctx, regionID, poiID, 24, now),
		Outbreak:         c.prediction.PredictConflictOutbreak(ctx, regionID, now),
		GeneratedAt:      now,
	}
	result.Recommendations = comprehensiveRecommendations(currentTension)

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, result, majorChangeCacheTTL)
	}
	return result
}

func comprehensiveRecommendations(currentTension float64) []string {
	switch {
	case currentTension > 0.8:
		return []string{
			"implement_immediate_conflict_resolution",
			"faction_mediated_peace_negotiations",
			"increase_security_presence",
			"prepare_emergency_economic_measures",
		}
	case currentTension > 0.6:
		return []string{
			"deploy_additional_peacekeeping_presence",
			"ease_tensions_through_diplomacy",
			"monitor_trade_routes",
			"prepare_contingency_plans",
		}
	case currentTension > 0.4:
		return []string{
			"increase_diplomatic_engagement",
			"community_building_initiatives",
			"monitor_economic_indicators",
		}
	default:
		return []string{
			"maintain_current_peaceful_status",
			"focus_on_economic_development",
			"strengthen_interfaction_relationships",
		}
	}
}

// regionFactionRelationships resolves every faction present in regionID via
// the injected provider and returns the relationship for each unique pair.
// A nil provider, a provider error, or fewer than two factions degrades to
// an empty slice.
func (c *Coordinator) regionFactionRelationships(ctx context.Context, regionID string, now time.Time) []tendomain.FactionRelationship {
	factions := c.factionsInRegion(ctx, regionID)
	if len(factions) < 2 {
		return nil
	}

	relations := make([]tendomain.FactionRelationship, 0, len(factions)*(len(factions)-1)/2)
	for i := 0; i < len(factions); i++ {
		for j := i + 1; j < len(factions); j++ {
			rel, err := c.faction.GetFactionRelationship(ctx, factions[i], factions[j], now)
			if err != nil {
				c.logWarn(ctx, err, "comprehensive analysis: faction relationship lookup failed", regionID, "")
				continue
			}
			relations = append(relations, rel)
		}
	}
	return relations
}

func (c *Coordinator) factionsInRegion(ctx context.Context, regionID string) []string {
	if c.factions == nil {
		return nil
	}
	found, err := c.factions.FactionsInRegion(ctx, regionID)
	if err != nil {
		c.logWarn(ctx, err, "comprehensive analysis: faction membership lookup failed", regionID, "")
		return nil
	}
	ids := make([]string, 0, len(found))
	for _, f := range found {
		ids = append(ids, f.ID)
	}
	return ids
}

// CoordinatedResponse is the fan-in result of triggerCoordinatedResponse: a
// snapshot of the in-scope engines' current view of regionID, taken in
// response to an event originating from elsewhere in the simulated world.
// Subsystems this core does not own (NPC behavior, quests, combat, economy)
// are not represented here; the coordinator only aggregates what the
// tension/faction/conflict engines it owns can compute.
type CoordinatedResponse struct {
	RegionID         string
	EventType        string
	TriggeredAt      time.Time
	CurrentTension   float64
	ConflictTriggers []tendomain.ConflictRecord
	FactionWars      []tendomain.FactionRelationship
	FactionAlliances []tendomain.FactionRelationship
	Effects          []string
}

// Known eventType values for TriggerCoordinatedResponse.
const (
	EventConflictOutbreak   = "conflict_outbreak"
	EventPeaceEstablishment = "peace_establishment"
)

// TriggerCoordinatedResponse builds a response document describing, for each
// in-scope engine, the view it would compute given current tension. It does
// not invent behavior for out-of-scope subsystems; unrecognized eventType
// values return a response with empty system views.
func (c *Coordinator) TriggerCoordinatedResponse(ctx context.Context, regionID, eventType string, now time.Time) CoordinatedResponse {
	loc := tendomain.LocationKey{RegionID: regionID, POIID: "default"}
	currentTension, err := c.environment.CalculateTension(ctx, loc, now)
	if err != nil {
		c.logWarn(ctx, err, "coordinated response: calculate tension failed", regionID, "")
	}

	response := CoordinatedResponse{
		RegionID:       regionID,
		EventType:      eventType,
		TriggeredAt:    now,
		CurrentTension: currentTension,
	}

	regionFactions := c.factionsInRegion(ctx, regionID)

	switch eventType {
	case EventConflictOutbreak:
		response.ConflictTriggers = c.conflict.CheckConflictTriggers(ctx, regionID, now)
		response.FactionWars = filterRelationshipsByMembership(c.faction.GetFactionWars(ctx), regionFactions)
	case EventPeaceEstablishment:
		response.FactionAlliances = filterRelationshipsByMembership(c.faction.GetFactionAlliances(ctx), regionFactions)
	}

	response.Effects = coordinationEffects(response)
	return response
}

// filterRelationshipsByMembership keeps only relationships where at least
// one faction is in members. A nil or empty members set (degraded faction
// provider) yields no relationships rather than every relationship globally.
func filterRelationshipsByMembership(relationships []tendomain.FactionRelationship, members []string) []tendomain.FactionRelationship {
	if len(members) == 0 {
		return nil
	}
	memberSet := make(map[string]struct{}, len(members))
	for _, id := range members {
		memberSet[id] = struct{}{}
	}

	filtered := make([]tendomain.FactionRelationship, 0)
	for _, rel := range relationships {
		if _, ok := memberSet[rel.FactionAID]; ok {
			filtered = append(filtered, rel)
			continue
		}
		if _, ok := memberSet[rel.FactionBID]; ok {
			filtered = append(filtered, rel)
		}
	}
	return filtered
}

// coordinationEffects summarizes how many in-scope systems produced a
// non-empty view, mirroring the count-based summary the original coordinator
// recorded in its event history.
func coordinationEffects(response CoordinatedResponse) []string {
	effects := make([]string, 0, 3)
	if len(response.ConflictTriggers) > 0 {
		effects = append(effects, "conflict_triggers_active")
	}
	if len(response.FactionWars) > 0 {
		effects = append(effects, "faction_wars_involved")
	}
	if len(response.FactionAlliances) > 0 {
		effects = append(effects, "faction_alliances_involved")
	}
	return effects
}

// DecayAllTension runs environment.Engine.DecayAllTension for the
// tension:decay-all background job.
func (c *Coordinator) DecayAllTension(ctx context.Context, now time.Time) environment.DecaySweepResult {
	return c.environment.DecayAllTension(ctx, now)
}

// DecayAllFactionTension runs faction.Engine.DecayAllFactionTension for the
// faction:decay-all background job.
func (c *Coordinator) DecayAllFactionTension(ctx context.Context, now time.Time) faction.FactionDecaySweepResult {
	return c.faction.DecayAllFactionTension(ctx, now)
}

// ProgressWorldEvents is a thin cascading hook called by the
// world:progress-events background job. It carries no logic of its own; it
// exists so a future world-event module can plug progression behavior in
// without the core depending on it.
func (c *Coordinator) ProgressWorldEvents(ctx context.Context, now time.Time) {
}

func (c *Coordinator) logWarn(ctx context.Context, err error, msg, regionID, poiID string) {
	if c.log == nil {
		return
	}
	event := c.log.WithContext(ctx).Warn().Err(err).Str("region_id", regionID)
	if poiID != "" {
		event = event.Str("poi_id", poiID)
	}
	event.Msg(msg)
}
