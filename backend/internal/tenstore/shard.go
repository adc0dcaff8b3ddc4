// Package tenstore holds the in-memory repositories backing environmental
// tension state, faction relationships, and the bounded sample history used
// by the analysis and prediction engines. Every repository here is safe for
// concurrent use; callers never take a lock themselves.
package tenstore

import (
	"hash/fnv"
	"sync"

	"github.com/duskmere/tension-engine/backend/internal/tendomain"
)

// shardCount is the number of mutex shards backing each repository. It's a
// fixed power of two so index derivation from a hash is a cheap mask.
const shardCount = 32

// shardFor hashes key into [0, shardCount).
func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}

func locationShardKey(loc tendomain.LocationKey) string {
	return loc.RegionID + "\x00" + loc.POIID
}

func factionShardKey(a, b string) string {
	aID, bID := tendomain.CanonicalPair(a, b)
	return aID + "\x00" + bID
}

// shardedLocks is an array of mutexes indexed by a string key's hash, giving
// per-key exclusivity without a single global lock serializing every
// location or faction pair in the simulation.
type shardedLocks [shardCount]sync.Mutex

func (s *shardedLocks) lock(key string)   { s[shardFor(key)].Lock() }
func (s *shardedLocks) unlock(key string) { s[shardFor(key)].Unlock() }
