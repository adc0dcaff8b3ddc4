package analysis

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

var av0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer(t *testing.T, players PlayerActivityProvider, neighbors RegionTensionProvider) (*Analyzer, *tenstore.SampleHistoryRepository, *tenstore.TensionStateRepository, *tenstore.AnomalyHistoryRepository) {
	t.Helper()
	cfg := tenconfig.NewInMemoryRepository()
	history := tenstore.NewSampleHistoryRepository()
	locations := tenstore.NewTensionStateRepository()
	anomalies := tenstore.NewAnomalyHistoryRepository()

	a := NewAnalyzer(Dependencies{
		Config:          cfg,
		History:         history,
		Locations:       locations,
		Anomalies:       anomalies,
		PlayerActivity:  players,
		NeighborTension: neighbors,
	})
	return a, history, locations, anomalies
}

func seedSamples(history *tenstore.SampleHistoryRepository, loc tendomain.LocationKey, values []float64, start time.Time, step time.Duration) {
	for i, v := range values {
		history.Record(loc, tendomain.TensionSample{Timestamp: start.Add(time.Duration(i) * step), Value: v})
	}
}

func TestAnalyzeTensionPatterns_DetectsTrendingOnMonotonicSlope(t *testing.T) {
	a, history, _, _ := newTestAnalyzer(t, nil, nil)
	loc := tendomain.LocationKey{RegionID: "r1", POIID: "p1"}

	values := make([]float64, 20)
	for i := range values {
		values[i] = 0.01 * float64(i)
	}
	seedSamples(history, loc, values, av0.Add(-20*time.Hour), time.Hour)

	patterns := a.AnalyzeTensionPatterns(context.Background(), "r1", "p1", 7, av0)
	require.NotEmpty(t, patterns)

	var found bool
	for _, p := range patterns {
		if p.Type == tendomain.PatternTrending {
			found = true
			assert.GreaterOrEqual(t, p.Confidence, minPatternConfidence)
		}
	}
	assert.True(t, found)
}

func TestAnalyzeTensionPatterns_DetectsStableOnLowVariance(t *testing.T) {
	a, history, _, _ := newTestAnalyzer(t, nil, nil)
	loc := tendomain.LocationKey{RegionID: "r2", POIID: "p1"}

	values := make([]float64, 10)
	for i := range values {
		values[i] = 0.5
	}
	seedSamples(history, loc, values, av0.Add(-10*time.Hour), time.Hour)

	patterns := a.AnalyzeTensionPatterns(context.Background(), "r2", "p1", 7, av0)
	require.Len(t, patterns, 1)
	assert.Equal(t, tendomain.PatternStable, patterns[0].Type)
	assert.Equal(t, 0.9, patterns[0].Confidence)
}

func TestAnalyzeTensionPatterns_DetectsVolatileOnHighVariance(t *testing.T) {
	a, history, _, _ := newTestAnalyzer(t, nil, nil)
	loc := tendomain.LocationKey{RegionID: "r3", POIID: "p1"}

	values := []float64{0.1, 0.9, 0.1, 0.9, 0.1, 0.9}
	seedSamples(history, loc, values, av0.Add(-6*time.Hour), time.Hour)

	patterns := a.AnalyzeTensionPatterns(context.Background(), "r3", "p1", 7, av0)
	require.NotEmpty(t, patterns)
	assert.Equal(t, tendomain.PatternVolatile, patterns[0].Type)
}

func TestAnalyzeTensionPatterns_NoHistoryReturnsEmpty(t *testing.T) {
	a, _, _, _ := newTestAnalyzer(t, nil, nil)
	patterns := a.AnalyzeTensionPatterns(context.Background(), "unknown", "p1", 7, av0)
	assert.Empty(t, patterns)
}

func TestDetectAnomalies_StatisticalAnomalyFlaggedAboveZScoreThreshold(t *testing.T) {
	a, history, _, anomalies := newTestAnalyzer(t, nil, nil)
	loc := tendomain.LocationKey{RegionID: "r4", POIID: "p1"}

	values := []float64{0.4, 0.41, 0.39, 0.4, 0.42, 0.38, 0.4, 0.41}
	seedSamples(history, loc, values, av0.Add(-8*time.Hour), time.Hour)

	found := a.DetectAnomalies(context.Background(), "r4", "p1", 0.95, av0)
	require.NotEmpty(t, found)

	var sawStatistical bool
	for _, an := range found {
		if an.Kind == tendomain.AnomalyStatistical {
			sawStatistical = true
			assert.Greater(t, an.Deviation, 2.5)
		}
	}
	assert.True(t, sawStatistical)
	assert.Len(t, anomalies.Recent(), len(found))
}

func TestDetectAnomalies_InsufficientHistoryReturnsEmpty(t *testing.T) {
	a, history, _, _ := newTestAnalyzer(t, nil, nil)
	loc := tendomain.LocationKey{RegionID: "r5", POIID: "p1"}
	history.Record(loc, tendomain.TensionSample{Timestamp: av0, Value: 0.5})

	found := a.DetectAnomalies(context.Background(), "r5", "p1", 0.9, av0)
	assert.Empty(t, found)
}

func TestDetectAnomalies_ContextualAnomalyUsesNeighborProvider(t *testing.T) {
	neighbors := fixedNeighbors{tensions: []float64{0.1, 0.15, 0.12}}
	a, history, _, _ := newTestAnalyzer(t, nil, neighbors)
	loc := tendomain.LocationKey{RegionID: "r6", POIID: "p1"}

	values := []float64{0.1, 0.11, 0.09, 0.1, 0.11}
	seedSamples(history, loc, values, av0.Add(-5*time.Hour), time.Hour)

	found := a.DetectAnomalies(context.Background(), "r6", "p1", 0.9, av0)
	var sawContextual bool
	for _, an := range found {
		if an.Kind == tendomain.AnomalyContextual {
			sawContextual = true
		}
	}
	assert.True(t, sawContextual)
}

func TestDetectAnomalies_ContextualSkippedWhenProviderErrors(t *testing.T) {
	a, history, _, _ := newTestAnalyzer(t, nil, fixedNeighbors{err: errors.New("unavailable")})
	loc := tendomain.LocationKey{RegionID: "r7", POIID: "p1"}

	values := []float64{0.1, 0.11, 0.09, 0.1, 0.11}
	seedSamples(history, loc, values, av0.Add(-5*time.Hour), time.Hour)

	found := a.DetectAnomalies(context.Background(), "r7", "p1", 0.9, av0)
	for _, an := range found {
		assert.NotEqual(t, tendomain.AnomalyContextual, an.Kind)
	}
}

func TestBuildPlayerBehaviorProfile_NilProviderReturnsDefault(t *testing.T) {
	a, _, _, _ := newTestAnalyzer(t, nil, nil)
	profile := a.BuildPlayerBehaviorProfile(context.Background(), "player-1", av0)
	assert.Equal(t, "player-1", profile.PlayerID)
	assert.Empty(t, profile.ActionFrequencies)
}

func TestBuildPlayerBehaviorProfile_AggregatesActions(t *testing.T) {
	provider := fixedPlayerActivity{actions: []PlayerAction{
		{Kind: "combat", RegionID: "r1", TensionImpact: 0.2, Timestamp: av0},
		{Kind: "combat", RegionID: "r1", TensionImpact: 0.3, Timestamp: av0.Add(time.Hour)},
		{Kind: "trade", RegionID: "r2", TensionImpact: -0.05, Timestamp: av0.Add(2 * time.Hour)},
	}}
	a, _, _, _ := newTestAnalyzer(t, provider, nil)

	profile := a.BuildPlayerBehaviorProfile(context.Background(), "player-2", av0)
	assert.InDelta(t, 2.0/3.0, profile.ActionFrequencies["combat"], 0.0001)
	assert.Equal(t, []string{"r1", "r2"}, profile.PreferredRegions)
	assert.Greater(t, profile.RiskFactors["combat_risk"], 0.0)
}

func TestBuildPlayerBehaviorProfile_ProviderErrorReturnsDefault(t *testing.T) {
	a, _, _, _ := newTestAnalyzer(t, fixedPlayerActivity{err: errors.New("down")}, nil)
	profile := a.BuildPlayerBehaviorProfile(context.Background(), "player-3", av0)
	assert.Empty(t, profile.ActionFrequencies)
}

func TestAnalyzeRegionalPatterns_AggregatesKnownPOIs(t *testing.T) {
	a, history, locations, _ := newTestAnalyzer(t, nil, nil)

	loc1 := tendomain.LocationKey{RegionID: "region-x", POIID: "poi-a"}
	loc2 := tendomain.LocationKey{RegionID: "region-x", POIID: "poi-b"}
	locations.Put(loc1, tendomain.TensionState{CurrentLevel: 0.3})
	locations.Put(loc2, tendomain.TensionState{CurrentLevel: 0.5})

	values := make([]float64, 12)
	for i := range values {
		values[i] = 0.01 * float64(i)
	}
	seedSamples(history, loc1, values, av0.Add(-12*time.Hour), time.Hour)
	seedSamples(history, loc2, values, av0.Add(-12*time.Hour), time.Hour)

	result := a.AnalyzeRegionalPatterns(context.Background(), "region-x", 7, av0)
	assert.Len(t, result.POIPatterns, 2)
	assert.InDelta(t, 0.4, result.AverageTension, 0.0001)
	assert.Equal(t, 0.3, result.Correlations["poi-a-poi-b"])
}

type fixedNeighbors struct {
	tensions []float64
	err      error
}

func (f fixedNeighbors) NeighboringTensions(ctx context.Context, regionID string) ([]float64, error) {
	return f.tensions, f.err
}

type fixedPlayerActivity struct {
	actions []PlayerAction
	err     error
}

func (f fixedPlayerActivity) ActionsForPlayer(ctx context.Context, playerID string) ([]PlayerAction, error) {
	return f.actions, f.err
}
