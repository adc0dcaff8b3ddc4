package environment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/internal/tenstore"
)

type fixedResolver struct{ poiType string }

func (f fixedResolver) ResolveType(tendomain.LocationKey) string { return f.poiType }

func newCityEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(Dependencies{
		Config:   tenconfig.NewInMemoryRepository(),
		Store:    tenstore.NewTensionStateRepository(),
		Resolver: fixedResolver{poiType: "CITY"},
	})
}

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCalculateTension_BaselineCityDecaysTowardFloor(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}

	level, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, level, 1e-9)

	level, err = e.CalculateTension(ctx, loc, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, level, 1e-9)
}

func TestUpdateTensionFromEvent_LethalCombatAppliesWeightedImpact(t *testing.T) {
	ctx := context.Background()
	cfg := tenconfig.NewInMemoryRepository()
	e := NewEngine(Dependencies{
		Config:   cfg,
		Store:    tenstore.NewTensionStateRepository(),
		Resolver: fixedResolver{poiType: "CITY"},
	})
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}

	_, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)

	event := tendomain.TensionEvent{
		EventID:   "evt-1",
		EventType: tendomain.EventPlayerCombat,
		RegionID:  loc.RegionID,
		POIID:     loc.POIID,
		Timestamp: t0,
		Data:      map[string]interface{}{"lethal": true, "enemies_defeated": 3},
	}

	level, err := e.UpdateTensionFromEvent(ctx, event, t0)
	require.NoError(t, err)
	assert.InDelta(t, 0.83, level, 1e-9)
}

func TestAddTensionModifier_FestivalExpiresAfterDuration(t *testing.T) {
	ctx := context.Background()
	store := tenstore.NewTensionStateRepository()
	loc := tendomain.LocationKey{RegionID: "W", POIID: "square"}
	store.Put(loc, tendomain.TensionState{CurrentLevel: 0.5, LastUpdated: t0, Modifiers: map[string]tendomain.TensionModifier{}})
	store.Mutate(loc, func(cur tendomain.TensionState, exists bool) tendomain.TensionState {
		cur.SetDecayLevel(0.5)
		return cur
	})

	e := NewEngine(Dependencies{
		Config:   tenconfig.NewInMemoryRepository(),
		Store:    store,
		Resolver: fixedResolver{poiType: "CITY"},
	})

	require.NoError(t, e.AddTensionModifier(ctx, loc, "festival", -0.2, 24, "annual_harvest", t0))

	level, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, level, 1e-9)

	level, err = e.CalculateTension(ctx, loc, t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, level, 1e-9)
}

func TestCalculateTension_IsIdempotentWithNoElapsedTime(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}

	first, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)
	second, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculateTension_IdempotentWithActiveModifier(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}

	_, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)
	require.NoError(t, e.AddTensionModifier(ctx, loc, "festival", -0.05, 24, "src", t0))

	first, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)
	second, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculateTension_ClockNonMonotonicityIsZeroElapsed(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}

	_, err := e.CalculateTension(ctx, loc, t0.Add(time.Hour))
	require.NoError(t, err)

	level, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, level, 1e-9)
}

func TestCalculateTension_AlwaysWithinConfiguredRange(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}

	level, err := e.CalculateTension(ctx, loc, t0.Add(1000*time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, level, 0.1)
	assert.LessOrEqual(t, level, 1.0)
}

func TestUpdateTensionFromEvent_RecentEventsBoundedToTen(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}

	for i := 0; i < 15; i++ {
		event := tendomain.TensionEvent{
			EventID:   string(rune('a' + i)),
			EventType: tendomain.EventFestival,
			RegionID:  loc.RegionID,
			POIID:     loc.POIID,
			Data:      map[string]interface{}{},
		}
		_, err := e.UpdateTensionFromEvent(ctx, event, t0)
		require.NoError(t, err)
	}

	state, ok := e.store.Get(loc)
	require.True(t, ok)
	assert.Len(t, state.RecentEvents, tendomain.MaxRecentEvents)
}

func TestGetRegionsByTension_FiltersAndSortsDescending(t *testing.T) {
	ctx := context.Background()
	store := tenstore.NewTensionStateRepository()
	e := NewEngine(Dependencies{
		Config:   tenconfig.NewInMemoryRepository(),
		Store:    store,
		Resolver: fixedResolver{poiType: "CITY"},
	})

	low := tendomain.LocationKey{RegionID: "low-region", POIID: "p1"}
	high := tendomain.LocationKey{RegionID: "high-region", POIID: "p2"}
	store.Put(low, tendomain.TensionState{CurrentLevel: 0.2, LastUpdated: t0, Modifiers: map[string]tendomain.TensionModifier{}})
	store.Mutate(low, func(cur tendomain.TensionState, exists bool) tendomain.TensionState { cur.SetDecayLevel(0.2); return cur })
	store.Put(high, tendomain.TensionState{CurrentLevel: 0.9, LastUpdated: t0, Modifiers: map[string]tendomain.TensionModifier{}})
	store.Mutate(high, func(cur tendomain.TensionState, exists bool) tendomain.TensionState { cur.SetDecayLevel(0.9); return cur })

	regions := e.GetRegionsByTension(ctx, 0.0, 1.0, t0)

	require.Len(t, regions, 2)
	assert.Equal(t, "high-region", regions[0].RegionID)
	assert.Equal(t, "low-region", regions[1].RegionID)
}

func TestGetRegionsByTension_ExcludesOutOfRangePOIs(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	loc := tendomain.LocationKey{RegionID: "W", POIID: "tav"}
	_, err := e.CalculateTension(ctx, loc, t0)
	require.NoError(t, err)

	regions := e.GetRegionsByTension(ctx, 0.9, 1.0, t0)
	assert.Empty(t, regions)
}

func TestDecayAllTension_SweepsEveryLocation(t *testing.T) {
	ctx := context.Background()
	e := newCityEngine(t)
	a := tendomain.LocationKey{RegionID: "W", POIID: "a"}
	b := tendomain.LocationKey{RegionID: "W", POIID: "b"}
	_, err := e.CalculateTension(ctx, a, t0)
	require.NoError(t, err)
	_, err = e.CalculateTension(ctx, b, t0)
	require.NoError(t, err)

	result := e.DecayAllTension(ctx, t0.Add(2*time.Hour))

	assert.Equal(t, 1, result.RegionsProcessed)
	assert.Equal(t, 2, result.POIsProcessed)

	level, _ := e.CalculateTension(ctx, a, t0.Add(2*time.Hour))
	assert.InDelta(t, 0.1, level, 1e-9)
}
