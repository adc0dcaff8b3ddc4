package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/internal/tenstore"
)

var pv0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, factions RegionFactionProvider) (*Engine, *tenstore.SampleHistoryRepository, *tenstore.TensionStateRepository, *tenstore.PredictionAccuracyRepository, *tenstore.FactionRelationshipRepository) {
	t.Helper()
	cfg := tenconfig.NewInMemoryRepository()
	history := tenstore.NewSampleHistoryRepository()
	locations := tenstore.NewTensionStateRepository()
	accuracy := tenstore.NewPredictionAccuracyRepository()
	relationships := tenstore.NewFactionRelationshipRepository()

	e := NewEngine(Dependencies{
		Config:        cfg,
		History:       history,
		Locations:     locations,
		Accuracy:      accuracy,
		Relationships: relationships,
		Factions:      factions,
	})
	return e, history, locations, accuracy, relationships
}

func seedSamples(history *tenstore.SampleHistoryRepository, loc tendomain.LocationKey, values []float64, start time.Time, step time.Duration) {
	for i, v := range values {
		history.Record(loc, tendomain.TensionSample{Timestamp: start.Add(time.Duration(i) * step), Value: v})
	}
}

func TestPredictTensionEscalation_ClampsHorizonToConfiguredMax(t *testing.T) {
	e, _, locations, _, _ := newTestEngine(t, nil)
	loc := tendomain.LocationKey{RegionID: "r1", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.3})

	prediction := e.PredictTensionEscalation(context.Background(), "r1", "p1", 500, pv0)
	assert.LessOrEqual(t, prediction.HorizonHours, 72.0)
}

func TestPredictTensionEscalation_RisingTrendOnPositiveSlope(t *testing.T) {
	e, history, locations, _, _ := newTestEngine(t, nil)
	loc := tendomain.LocationKey{RegionID: "r2", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.3})

	values := make([]float64, 30)
	for i := range values {
		values[i] = 0.15 * float64(i)
	}
	seedSamples(history, loc, values, pv0.Add(-30*time.Hour), time.Hour)

	prediction := e.PredictTensionEscalation(context.Background(), "r2", "p1", 24, pv0)
	assert.Greater(t, prediction.PredictedLevel, prediction.CurrentLevel)
	assert.Equal(t, tendomain.TrendRising, prediction.Trend)
}

func TestPredictTensionEscalation_StableTrendOnFlatHistory(t *testing.T) {
	e, history, locations, _, _ := newTestEngine(t, nil)
	loc := tendomain.LocationKey{RegionID: "r3", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.4})

	values := make([]float64, 20)
	for i := range values {
		values[i] = 0.4
	}
	seedSamples(history, loc, values, pv0.Add(-20*time.Hour), time.Hour)

	prediction := e.PredictTensionEscalation(context.Background(), "r3", "p1", 24, pv0)
	assert.Equal(t, tendomain.TrendStable, prediction.Trend)
	assert.InDelta(t, 0.4, prediction.PredictedLevel, 0.01)
}

func TestPredictTensionEscalation_VolatileTrendOnHighVarianceFlatDelta(t *testing.T) {
	e, history, locations, _, _ := newTestEngine(t, nil)
	loc := tendomain.LocationKey{RegionID: "r4", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.5})

	values := []float64{-2, 3, -2, 3, -2, 3, -2, 3}
	seedSamples(history, loc, values, pv0.Add(-8*time.Hour), time.Hour)

	prediction := e.PredictTensionEscalation(context.Background(), "r4", "p1", 1, pv0)
	assert.Equal(t, tendomain.TrendVolatile, prediction.Trend)
}

func TestPredictTensionEscalation_RecentFactionDisputeBoostsConflictProbability(t *testing.T) {
	e, history, locations, _, _ := newTestEngine(t, nil)
	loc := tendomain.LocationKey{RegionID: "r5", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.6})

	history.Record(loc, tendomain.TensionSample{Timestamp: pv0.Add(-time.Hour), Value: 0.6, EventKind: tendomain.EventDiplomaticIncident})
	withDispute := e.PredictTensionEscalation(context.Background(), "r5", "p1", 24, pv0)

	e2, history2, locations2, _, _ := newTestEngine(t, nil)
	locations2.Put(loc, tendomain.TensionState{CurrentLevel: 0.6})
	history2.Record(loc, tendomain.TensionSample{Timestamp: pv0.Add(-time.Hour), Value: 0.6, EventKind: tendomain.EventFestival})
	withoutDispute := e2.PredictTensionEscalation(context.Background(), "r5", "p1", 24, pv0)

	assert.Greater(t, withDispute.ConflictProbability, withoutDispute.ConflictProbability)
}

func TestPredictTensionEscalation_IgnoresFactorsOutsideTheRecentWindow(t *testing.T) {
	e, history, locations, _, _ := newTestEngine(t, nil)
	loc := tendomain.LocationKey{RegionID: "r6", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.5})
	history.Record(loc, tendomain.TensionSample{Timestamp: pv0.Add(-72 * time.Hour), Value: 0.5, EventKind: tendomain.EventFactionWarfare})

	prediction := e.PredictTensionEscalation(context.Background(), "r6", "p1", 24, pv0)
	assert.Empty(t, prediction.ContributingFactors)
}

func TestPredictConflictOutbreak_ZeroWithNoTensionOrFactions(t *testing.T) {
	e, _, _, _, _ := newTestEngine(t, nil)
	prediction := e.PredictConflictOutbreak(context.Background(), "empty-region", pv0)
	assert.Equal(t, 0.0, prediction.Probability)
	assert.Equal(t, "none", prediction.Timeframe)
	assert.NotEmpty(t, prediction.Interventions)
}

func TestPredictConflictOutbreak_HighRiskFromHostileFactionsAndTension(t *testing.T) {
	factions := fixedRegionFactions{factions: []RegionFaction{{ID: "f1", Power: 1}, {ID: "f2", Power: 1}}}
	e, _, locations, _, relationships := newTestEngine(t, factions)

	loc := tendomain.LocationKey{RegionID: "hotzone", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.9})

	aID, bID := tendomain.CanonicalPair("f1", "f2")
	relationships.Put(tendomain.FactionRelationship{FactionAID: aID, FactionBID: bID, TensionLevel: 80})

	prediction := e.PredictConflictOutbreak(context.Background(), "hotzone", pv0)
	require.Greater(t, prediction.Probability, 0.7)
	assert.Equal(t, "within_24_hours", prediction.Timeframe)
	assert.Contains(t, prediction.Interventions, "immediate_mediation")
}

func TestPredictConflictOutbreak_DegradesToZeroRiskWhenFactionProviderErrors(t *testing.T) {
	e, _, locations, _, _ := newTestEngine(t, fixedRegionFactions{err: errors.New("unavailable")})
	loc := tendomain.LocationKey{RegionID: "r7", POIID: "p1"}
	locations.Put(loc, tendomain.TensionState{CurrentLevel: 0.5})

	prediction := e.PredictConflictOutbreak(context.Background(), "r7", pv0)
	assert.InDelta(t, 0.25, prediction.Probability, 0.001)
}

func TestUpdatePredictionAccuracy_RecordsOutcomePerRegion(t *testing.T) {
	e, _, _, accuracy, _ := newTestEngine(t, nil)

	e.UpdatePredictionAccuracy("region-a", 0.6, 0.65, 24, pv0)
	e.UpdatePredictionAccuracy("region-b", 0.3, 0.3, 24, pv0)

	recent := accuracy.Recent("region-a")
	require.Len(t, recent, 1)
	assert.InDelta(t, 0.05, recent[0].AbsoluteError(), 0.0001)
	assert.Len(t, accuracy.Recent("region-b"), 1)
}

type fixedRegionFactions struct {
	factions []RegionFaction
	err      error
}

func (f fixedRegionFactions) FactionsInRegion(ctx context.Context, regionID string) ([]RegionFaction, error) {
	return f.factions, f.err
}
