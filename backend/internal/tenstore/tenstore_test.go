package tenstore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/duskmere/tension-engine/backend/internal/tendomain"
)

func TestTensionStateRepository_GetPutRoundTrip(t *testing.T) {
	repo := NewTensionStateRepository()
	loc := tendomain.LocationKey{RegionID: "region-1", POIID: "poi-1"}

	_, ok := repo.Get(loc)
	assert.False(t, ok)

	repo.Put(loc, tendomain.TensionState{CurrentLevel: 0.4})

	state, ok := repo.Get(loc)
	assert.True(t, ok)
	assert.Equal(t, 0.4, state.CurrentLevel)
}

func TestTensionStateRepository_GetReturnsCopyNotAlias(t *testing.T) {
	repo := NewTensionStateRepository()
	loc := tendomain.LocationKey{RegionID: "region-1", POIID: "poi-1"}
	repo.Put(loc, tendomain.TensionState{
		CurrentLevel: 0.4,
		Modifiers:    map[string]tendomain.TensionModifier{"weather": {Source: "a", Value: 0.1}},
	})

	state, _ := repo.Get(loc)
	state.Modifiers["weather"] = tendomain.TensionModifier{Source: "a", Value: 99}

	state2, _ := repo.Get(loc)
	assert.Equal(t, 0.1, state2.Modifiers["weather"].Value)
}

func TestTensionStateRepository_MutateCreatesWhenAbsent(t *testing.T) {
	repo := NewTensionStateRepository()
	loc := tendomain.LocationKey{RegionID: "region-1", POIID: "poi-1"}

	result := repo.Mutate(loc, func(cur tendomain.TensionState, exists bool) tendomain.TensionState {
		assert.False(t, exists)
		cur.CurrentLevel = 0.5
		return cur
	})

	assert.Equal(t, 0.5, result.CurrentLevel)
	stored, ok := repo.Get(loc)
	assert.True(t, ok)
	assert.Equal(t, 0.5, stored.CurrentLevel)
}

func TestTensionStateRepository_MutateSerializesSameKey(t *testing.T) {
	repo := NewTensionStateRepository()
	loc := tendomain.LocationKey{RegionID: "region-1", POIID: "poi-1"}
	repo.Put(loc, tendomain.TensionState{CurrentLevel: 0})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Mutate(loc, func(cur tendomain.TensionState, exists bool) tendomain.TensionState {
				cur.CurrentLevel += 0.01
				return cur
			})
		}()
	}
	wg.Wait()

	final, _ := repo.Get(loc)
	assert.InDelta(t, 1.0, final.CurrentLevel, 1e-9)
}

func TestTensionStateRepository_LocationsInRegion(t *testing.T) {
	repo := NewTensionStateRepository()
	a := tendomain.LocationKey{RegionID: "r1", POIID: "p1"}
	b := tendomain.LocationKey{RegionID: "r1", POIID: "p2"}
	c := tendomain.LocationKey{RegionID: "r2", POIID: "p3"}
	repo.Put(a, tendomain.TensionState{CurrentLevel: 0.1})
	repo.Put(b, tendomain.TensionState{CurrentLevel: 0.2})
	repo.Put(c, tendomain.TensionState{CurrentLevel: 0.3})

	locs := repo.LocationsInRegion("r1")
	assert.ElementsMatch(t, []tendomain.LocationKey{a, b}, locs)
}

func TestFactionRelationshipRepository_GetIsOrderIndependent(t *testing.T) {
	repo := NewFactionRelationshipRepository()
	aID, bID := tendomain.CanonicalPair("faction-b", "faction-a")
	repo.Put(tendomain.FactionRelationship{FactionAID: aID, FactionBID: bID, TensionLevel: 10})

	rel1, ok1 := repo.Get("faction-a", "faction-b")
	rel2, ok2 := repo.Get("faction-b", "faction-a")

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, rel1.TensionLevel, rel2.TensionLevel)
}

func TestFactionRelationshipRepository_MutateSerializesSamePair(t *testing.T) {
	repo := NewFactionRelationshipRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Mutate("faction-a", "faction-b", func(cur tendomain.FactionRelationship, exists bool) tendomain.FactionRelationship {
				if !exists {
					aID, bID := tendomain.CanonicalPair("faction-a", "faction-b")
					cur.FactionAID, cur.FactionBID = aID, bID
				}
				cur.TensionLevel++
				return cur
			})
		}()
	}
	wg.Wait()

	rel, ok := repo.Get("faction-a", "faction-b")
	assert.True(t, ok)
	assert.Equal(t, 50, rel.TensionLevel)
}

func TestFactionRelationshipRepository_AllForFaction(t *testing.T) {
	repo := NewFactionRelationshipRepository()
	aID, bID := tendomain.CanonicalPair("f1", "f2")
	cID, dID := tendomain.CanonicalPair("f1", "f3")
	repo.Put(tendomain.FactionRelationship{FactionAID: aID, FactionBID: bID})
	repo.Put(tendomain.FactionRelationship{FactionAID: cID, FactionBID: dID})
	repo.Put(tendomain.FactionRelationship{FactionAID: "f4", FactionBID: "f5"})

	rels := repo.AllForFaction("f1")
	assert.Len(t, rels, 2)
}

func TestSampleHistoryRepository_RecordAndHistory(t *testing.T) {
	repo := NewSampleHistoryRepository()
	loc := tendomain.LocationKey{RegionID: "r1", POIID: "p1"}
	now := time.Now()

	repo.Record(loc, tendomain.TensionSample{Timestamp: now, Value: 0.1})
	repo.Record(loc, tendomain.TensionSample{Timestamp: now.Add(time.Hour), Value: 0.2})

	history := repo.History(loc)
	assert.Len(t, history, 2)
	assert.Equal(t, 0.1, history[0].Value)
	assert.Equal(t, 0.2, history[1].Value)
	assert.Equal(t, 2, repo.SampleCount(loc))
}

func TestSampleHistoryRepository_EvictsOldestBeyondCapacity(t *testing.T) {
	repo := NewSampleHistoryRepository()
	loc := tendomain.LocationKey{RegionID: "r1", POIID: "p1"}

	for i := 0; i < MaxSamplesPerLocation+10; i++ {
		repo.Record(loc, tendomain.TensionSample{Value: float64(i)})
	}

	history := repo.History(loc)
	assert.Len(t, history, MaxSamplesPerLocation)
	assert.Equal(t, float64(10), history[0].Value)
	assert.Equal(t, float64(MaxSamplesPerLocation+9), history[len(history)-1].Value)
}

func TestSampleHistoryRepository_UnknownLocationHasNoHistory(t *testing.T) {
	repo := NewSampleHistoryRepository()
	loc := tendomain.LocationKey{RegionID: "r1", POIID: "missing"}

	assert.Nil(t, repo.History(loc))
	assert.Equal(t, 0, repo.SampleCount(loc))
}

func TestPredictionAccuracyRepository_EvictsOldestBeyondCapacity(t *testing.T) {
	repo := NewPredictionAccuracyRepository()

	for i := 0; i < MaxPredictionOutcomes+5; i++ {
		repo.Record("region-a", tendomain.PredictionOutcome{PredictedValue: float64(i)})
	}

	recent := repo.Recent("region-a")
	assert.Len(t, recent, MaxPredictionOutcomes)
	assert.Equal(t, float64(5), recent[0].PredictedValue)
}

func TestPredictionAccuracyRepository_KeepsRegionsIndependent(t *testing.T) {
	repo := NewPredictionAccuracyRepository()

	repo.Record("region-a", tendomain.PredictionOutcome{PredictedValue: 1})
	repo.Record("region-b", tendomain.PredictionOutcome{PredictedValue: 2})

	assert.Len(t, repo.Recent("region-a"), 1)
	assert.Len(t, repo.Recent("region-b"), 1)
	assert.Nil(t, repo.Recent("region-c"))
}
