package tenstore

import (
	"sync"

	"github.com/duskmere/tension-engine/backend/internal/tendomain"
)

// TensionStateRepository holds the current TensionState for every observed
// LocationKey. Reads return a deep copy so callers can't mutate stored state
// through an aliased map or slice.
type TensionStateRepository struct {
	mu     sync.RWMutex
	states map[tendomain.LocationKey]tendomain.TensionState
	locks  shardedLocks
}

// NewTensionStateRepository returns an empty repository.
func NewTensionStateRepository() *TensionStateRepository {
	return &TensionStateRepository{
		states: make(map[tendomain.LocationKey]tendomain.TensionState),
	}
}

// Get returns the stored state for loc, if any.
func (r *TensionStateRepository) Get(loc tendomain.LocationKey) (tendomain.TensionState, bool) {
	r.mu.RLock()
	s, ok := r.states[loc]
	r.mu.RUnlock()
	if !ok {
		return tendomain.TensionState{}, false
	}
	return s.Clone(), true
}

// Put stores state for loc, replacing any existing entry.
func (r *TensionStateRepository) Put(loc tendomain.LocationKey, state tendomain.TensionState) {
	r.mu.Lock()
	r.states[loc] = state.Clone()
	r.mu.Unlock()
}

// Mutate runs fn against the current state for loc (zero value and exists
// set to false if absent), stores the result, and returns it. Concurrent
// Mutate calls for the same loc are serialized; calls for different
// locations never block each other.
func (r *TensionStateRepository) Mutate(loc tendomain.LocationKey, fn func(current tendomain.TensionState, exists bool) tendomain.TensionState) tendomain.TensionState {
	key := locationShardKey(loc)
	r.locks.lock(key)
	defer r.locks.unlock(key)

	r.mu.RLock()
	cur, ok := r.states[loc]
	r.mu.RUnlock()

	next := fn(cur.Clone(), ok)

	r.mu.Lock()
	r.states[loc] = next.Clone()
	r.mu.Unlock()

	return next
}

// AllLocations returns every LocationKey with recorded state, in no
// particular order.
func (r *TensionStateRepository) AllLocations() []tendomain.LocationKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tendomain.LocationKey, 0, len(r.states))
	for loc := range r.states {
		out = append(out, loc)
	}
	return out
}

// LocationsInRegion returns every LocationKey with recorded state for
// regionID.
func (r *TensionStateRepository) LocationsInRegion(regionID string) []tendomain.LocationKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []tendomain.LocationKey
	for loc := range r.states {
		if loc.RegionID == regionID {
			out = append(out, loc)
		}
	}
	return out
}
