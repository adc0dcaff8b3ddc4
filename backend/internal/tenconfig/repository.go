// Package tenconfig resolves the per-location-type and calculation
// configuration the rest of the tension core needs. It never reads a clock
// or opens a socket on the hot path: whatever it loads from disk at startup
// or reload time is held as an immutable snapshot, swapped atomically.
package tenconfig

import (
	"sync/atomic"

	"github.com/duskmere/tension-engine/backend/internal/tendomain"
)

// ConfigRepository is the read surface every engine depends on. Callers
// never see a partially-reloaded configuration: Reload swaps in a brand new
// Snapshot atomically.
type ConfigRepository interface {
	LocationConfig(locationType string) tendomain.TensionConfig
	ResolveLocationType(poiType string) string
	EventImpactConfig(kind tendomain.EventKind) EventImpactConfig
	RevoltConfig() tendomain.RevoltConfig
	ConflictTriggers() []tendomain.ConflictTrigger
	CalculationConstants() tendomain.CalculationConstants
}

// EventImpactConfig is the per-event-kind impact configuration consumed by
// internal/impact.Calculate.
type EventImpactConfig struct {
	BaseImpact float64
	Modifiers  map[string]float64
}

// Snapshot is an immutable, fully-resolved configuration. Both
// InMemoryRepository and YAMLRepository hold one behind an atomic.Pointer.
type Snapshot struct {
	LocationConfigs   map[string]tendomain.TensionConfig
	DefaultLocation   string
	POITypeMapping    map[string]string
	EventImpacts      map[tendomain.EventKind]EventImpactConfig
	Revolt            tendomain.RevoltConfig
	Triggers          []tendomain.ConflictTrigger
	Constants         tendomain.CalculationConstants
}

// atomicRepository implements ConfigRepository lookups against a Snapshot
// held behind an atomic.Pointer, shared by InMemoryRepository and
// YAMLRepository so reload semantics stay identical between the two.
type atomicRepository struct {
	snap atomic.Pointer[Snapshot]
}

func (r *atomicRepository) current() *Snapshot {
	return r.snap.Load()
}

func (r *atomicRepository) store(s *Snapshot) {
	r.snap.Store(s)
}

// LocationConfig returns the TensionConfig for locationType, falling back to
// DefaultLocation if unknown.
func (r *atomicRepository) LocationConfig(locationType string) tendomain.TensionConfig {
	s := r.current()
	if cfg, ok := s.LocationConfigs[locationType]; ok {
		return cfg
	}
	return s.LocationConfigs[s.DefaultLocation]
}

// ResolveLocationType maps an external POI type string to one of the
// location types known to LocationConfig.
func (r *atomicRepository) ResolveLocationType(poiType string) string {
	s := r.current()
	if lt, ok := s.POITypeMapping[poiType]; ok {
		return lt
	}
	if lt, ok := s.POITypeMapping["default"]; ok {
		return lt
	}
	return s.DefaultLocation
}

// EventImpactConfig returns the impact configuration for kind, falling back
// to a zero-impact config for anything unconfigured.
func (r *atomicRepository) EventImpactConfig(kind tendomain.EventKind) EventImpactConfig {
	s := r.current()
	if cfg, ok := s.EventImpacts[kind]; ok {
		return cfg
	}
	return EventImpactConfig{BaseImpact: 0, Modifiers: map[string]float64{}}
}

// RevoltConfig returns the current revolt configuration.
func (r *atomicRepository) RevoltConfig() tendomain.RevoltConfig {
	return r.current().Revolt
}

// ConflictTriggers returns the current configured conflict triggers.
func (r *atomicRepository) ConflictTriggers() []tendomain.ConflictTrigger {
	return r.current().Triggers
}

// CalculationConstants returns the current calculation constants.
func (r *atomicRepository) CalculationConstants() tendomain.CalculationConstants {
	return r.current().Constants
}
