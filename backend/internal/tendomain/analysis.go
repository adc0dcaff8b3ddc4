package tendomain

import "time"

// PatternType names the shape a tension time series is classified as.
type PatternType string

const (
	PatternCyclic   PatternType = "cyclic"
	PatternTrending PatternType = "trending"
	PatternSpike    PatternType = "spike"
	PatternStable   PatternType = "stable"
	PatternVolatile PatternType = "volatile"
)

// ConfidenceLevel buckets a baseline's trustworthiness by sample size, used
// wherever a baseline (not a single detection) needs a confidence label.
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// ConfidenceFromSampleSize buckets a sample count into a ConfidenceLevel
// against the configured minimum sample thresholds for high/medium
// confidence (PatternMinSamplesHigh/PatternMinSamplesMed).
func ConfidenceFromSampleSize(n, minHigh, minMedium int) ConfidenceLevel {
	switch {
	case n >= minHigh:
		return ConfidenceHigh
	case n >= minMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// PatternDetection is one identified pattern in a location's tension
// history. Confidence is the detector's own numeric score, not a baseline
// bucket -- callers filter on Confidence >= 0.7.
type PatternDetection struct {
	Location    LocationKey
	Type        PatternType
	Confidence  float64
	SampleSize  int
	DetectedAt  time.Time
	Description string
	Parameters  map[string]float64
	PeakHours   []int
}

// AnomalyKind classifies why a sample was flagged anomalous.
type AnomalyKind string

const (
	AnomalyStatistical AnomalyKind = "statistical"
	AnomalyTemporal    AnomalyKind = "temporal"
	AnomalyContextual  AnomalyKind = "contextual"
)

// AnomalyDetection is one flagged outlier sample. Deviation holds the
// z-score for statistical anomalies, or the raw delta from expectation for
// temporal/contextual ones.
type AnomalyDetection struct {
	Location    LocationKey
	Kind        AnomalyKind
	Severity    float64
	Deviation   float64
	DetectedAt  time.Time
	Description string
}

// PlayerBehaviorProfile aggregates a single player's observed impact on
// tension across their recent actions.
type PlayerBehaviorProfile struct {
	PlayerID          string
	ActionFrequencies map[string]float64
	ImpactHistory     []float64
	PreferredRegions  []string
	MostActiveHour    int
	RiskFactors       map[string]float64
	LastUpdated       time.Time
}

// RegionalPattern summarizes cross-POI tension behavior within a region.
type RegionalPattern struct {
	RegionID            string
	POIPatterns         map[string][]PatternDetection
	RegionalTrend       string
	AverageTension      float64
	Correlations        map[string]float64
	CollectiveBehaviors []string
}
