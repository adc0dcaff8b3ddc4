package tendomain

import "time"

// PredictionTrend classifies the direction and magnitude of a predicted
// tension change relative to the current level.
type PredictionTrend string

const (
	TrendStable   PredictionTrend = "stable"
	TrendRising   PredictionTrend = "rising"
	TrendFalling  PredictionTrend = "falling"
	TrendVolatile PredictionTrend = "volatile"
	TrendCritical PredictionTrend = "critical"
)

// TensionPrediction is a forward projection of a single location's tension.
type TensionPrediction struct {
	Location                      LocationKey
	CurrentLevel                  float64
	PredictedLevel                float64
	HorizonHours                  float64
	Confidence                    ConfidenceLevel
	Trend                         PredictionTrend
	ContributingFactors           []string
	ConflictProbability           float64
	ViolenceProbability           float64
	MassExodusProbability         float64
	EconomicDisruptionProbability float64
	GeneratedAt                   time.Time
}

// ConflictOutbreakPrediction estimates the likelihood of a conflict breaking
// out somewhere within a region within the prediction horizon.
type ConflictOutbreakPrediction struct {
	RegionID      string
	Probability   float64
	Severity      float64
	Timeframe     string
	Interventions []string
	GeneratedAt   time.Time
}
