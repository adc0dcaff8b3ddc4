// Package tendomain holds the pure data entities of the tension simulation
// core: locations, tension state, faction relationships, configuration
// snapshots and the derived records the analysis/prediction layers produce.
// Nothing in this package performs I/O or reads a clock.
package tendomain

import "time"

// LocationKey identifies a point of interest within a region. Equality is by
// value; callers must not construct a LocationKey with an empty RegionID or
// POIID.
type LocationKey struct {
	RegionID string
	POIID    string
}

// TensionModifier is a temporary additive perturbation to environmental
// tension. At most one modifier exists per ModifierType per location; a new
// modifier for the same type replaces the old one in place.
type TensionModifier struct {
	ModifierType   string
	Value          float64
	ExpirationTime time.Time
	Source         string
}

// Expired reports whether the modifier should no longer be considered, i.e.
// now is at or past its expiration time.
func (m TensionModifier) Expired(now time.Time) bool {
	return !m.ExpirationTime.After(now)
}

// MaxRecentEvents bounds TensionState.RecentEvents per spec invariant 4.
const MaxRecentEvents = 10

// TensionState is the environmental tension for a single LocationKey.
type TensionState struct {
	CurrentLevel float64
	BaseLevel    float64
	LastUpdated  time.Time
	RecentEvents []string
	Modifiers    map[string]TensionModifier

	// decayLevel is the decay trajectory with active modifiers excluded. It
	// is what decay is computed against on the next settle; CurrentLevel
	// (decayLevel plus the sum of currently active modifiers, clamped) is
	// recomputed fresh every settle so a repeated settle with no elapsed
	// time and no modifier change is a no-op, per the idempotence
	// invariant. Event impacts are applied directly to decayLevel so they
	// persist through subsequent decay instead of being re-added forever.
	decayLevel float64
}

// DecayLevel exposes the modifier-free decay trajectory for callers (tests,
// snapshots) that need to inspect it; ordinary callers only need
// CurrentLevel.
func (s TensionState) DecayLevel() float64 { return s.decayLevel }

// SetDecayLevel sets the modifier-free decay trajectory.
func (s *TensionState) SetDecayLevel(v float64) { s.decayLevel = v }

// Clone returns a deep copy so callers can't mutate stored state through an
// aliased map/slice.
func (s TensionState) Clone() TensionState {
	out := s
	out.RecentEvents = append([]string(nil), s.RecentEvents...)
	out.Modifiers = make(map[string]TensionModifier, len(s.Modifiers))
	for k, v := range s.Modifiers {
		out.Modifiers[k] = v
	}
	return out
}

// AppendEvent records eventId, trimming to the most recent MaxRecentEvents.
func (s *TensionState) AppendEvent(eventID string) {
	s.RecentEvents = append(s.RecentEvents, eventID)
	if len(s.RecentEvents) > MaxRecentEvents {
		s.RecentEvents = s.RecentEvents[len(s.RecentEvents)-MaxRecentEvents:]
	}
}

// TensionConfig is the per-location-type configuration resolved via the POI
// type mapping.
type TensionConfig struct {
	BaseTension          float64
	DecayRate            float64
	MaxTension           float64
	MinTension           float64
	PlayerImpact         float64
	NPCImpact            float64
	EnvironmentalImpact  float64
}

// Clamp restricts v to the config's [MinTension, MaxTension] range.
func (c TensionConfig) Clamp(v float64) float64 {
	if v < c.MinTension {
		return c.MinTension
	}
	if v > c.MaxTension {
		return c.MaxTension
	}
	return v
}

// RegionTensionSummary is one element returned by GetRegionsByTension.
type RegionTensionSummary struct {
	RegionID       string
	AverageTension float64
	POICount       int
	POIs           []LocationKey
}
