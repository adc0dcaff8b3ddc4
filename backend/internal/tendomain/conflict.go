package tendomain

import "time"

// ConflictTrigger is a configured condition the conflict evaluator checks
// against a region's aggregated tension.
type ConflictTrigger struct {
	Name                string
	TensionThreshold    float64
	DurationHours        int
	FactionRequirements  map[string]float64
	ProbabilityModifier  float64
}

// ConflictRecord is the outcome of a triggered conflict check.
type ConflictRecord struct {
	TriggerName      string
	RegionID         string
	TensionThreshold float64
	DurationHours    int
	ProbabilityModifier float64
	StartTime        time.Time
	EstimatedEnd     time.Time
}

// RevoltConfig parameterizes SimulateRevolt.
type RevoltConfig struct {
	BaseProbabilityThreshold float64
	FactionInfluenceModifier float64
	MinDurationHours         int
	MaxDurationHours         int
	CasualtyMultiplier       float64
	EconomicImpactFactor     float64
}

// RevoltCasualties breaks down a RevoltRecord's losses.
type RevoltCasualties struct {
	Civilians      int
	FactionMembers int
	Authorities    int
}

// RevoltRecord is the outcome of a SimulateRevolt call.
type RevoltRecord struct {
	RegionID      string
	POIID         string
	Occurred      bool
	Probability   float64
	StartedAt     time.Time
	DurationHours int
	Casualties    RevoltCasualties
}
