package tenstore

import (
	"sync"

	"github.com/duskmere/tension-engine/backend/internal/tendomain"
)

// factionPair is the map key for a canonicalized faction relationship.
type factionPair struct {
	A, B string
}

// FactionRelationshipRepository holds the current FactionRelationship for
// every observed faction pair, keyed by its canonical ordering.
type FactionRelationshipRepository struct {
	mu    sync.RWMutex
	rels  map[factionPair]tendomain.FactionRelationship
	locks shardedLocks
}

// NewFactionRelationshipRepository returns an empty repository.
func NewFactionRelationshipRepository() *FactionRelationshipRepository {
	return &FactionRelationshipRepository{
		rels: make(map[factionPair]tendomain.FactionRelationship),
	}
}

func pairKey(a, b string) factionPair {
	aID, bID := tendomain.CanonicalPair(a, b)
	return factionPair{A: aID, B: bID}
}

// Get returns the stored relationship between factionAID and factionBID, if
// any, regardless of the order the two IDs are passed in.
func (r *FactionRelationshipRepository) Get(factionAID, factionBID string) (tendomain.FactionRelationship, bool) {
	key := pairKey(factionAID, factionBID)

	r.mu.RLock()
	rel, ok := r.rels[key]
	r.mu.RUnlock()
	if !ok {
		return tendomain.FactionRelationship{}, false
	}
	return rel.Clone(), true
}

// Put stores rel, keyed by its own FactionAID/FactionBID (expected already
// canonicalized).
func (r *FactionRelationshipRepository) Put(rel tendomain.FactionRelationship) {
	key := pairKey(rel.FactionAID, rel.FactionBID)
	r.mu.Lock()
	r.rels[key] = rel.Clone()
	r.mu.Unlock()
}

// Mutate runs fn against the current relationship between the two factions
// (zero value and exists set to false if absent), stores the result, and
// returns it. Concurrent Mutate calls for the same pair are serialized;
// calls for different pairs never block each other.
func (r *FactionRelationshipRepository) Mutate(factionAID, factionBID string, fn func(current tendomain.FactionRelationship, exists bool) tendomain.FactionRelationship) tendomain.FactionRelationship {
	key := pairKey(factionAID, factionBID)
	shardKey := factionShardKey(factionAID, factionBID)

	r.locks.lock(shardKey)
	defer r.locks.unlock(shardKey)

	r.mu.RLock()
	cur, ok := r.rels[key]
	r.mu.RUnlock()

	next := fn(cur.Clone(), ok)

	r.mu.Lock()
	r.rels[key] = next.Clone()
	r.mu.Unlock()

	return next
}

// AllForFaction returns every relationship involving factionID.
func (r *FactionRelationshipRepository) AllForFaction(factionID string) []tendomain.FactionRelationship {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []tendomain.FactionRelationship
	for key, rel := range r.rels {
		if key.A == factionID || key.B == factionID {
			out = append(out, rel.Clone())
		}
	}
	return out
}

// All returns every known relationship, in no particular order.
func (r *FactionRelationshipRepository) All() []tendomain.FactionRelationship {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tendomain.FactionRelationship, 0, len(r.rels))
	for _, rel := range r.rels {
		out = append(out, rel.Clone())
	}
	return out
}
