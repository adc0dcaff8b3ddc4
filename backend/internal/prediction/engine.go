// Package prediction forecasts where tension is heading and how likely a
// region is to break into open conflict, using the same historical samples
// internal/analysis draws its patterns from.
package prediction

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/internal/tenstore"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
	"github.com/duskmere/tension-engine/backend/pkg/tenmetrics"
)

// trendSensitivity is the |delta| band below which tension is considered
// stable rather than rising/falling.
const trendSensitivity = 0.1

// RegionFaction is a faction present in a region, as reported by a
// RegionFactionProvider.
type RegionFaction struct {
	ID    string
	Power float64
}

// RegionFactionProvider is the external faction-roster collaborator, the
// same shape conflict.FactionProvider exposes. A nil provider or a provider
// error degrades PredictConflictOutbreak's faction-tension risk factor to
// zero rather than failing the prediction.
type RegionFactionProvider interface {
	FactionsInRegion(ctx context.Context, regionID string) ([]RegionFaction, error)
}

// Dependencies are the collaborators Engine needs. Config, History and
// Locations are required; the rest are optional and degrade gracefully.
type Dependencies struct {
	Config        tenconfig.ConfigRepository
	History       *tenstore.SampleHistoryRepository
	Locations     *tenstore.TensionStateRepository
	Accuracy      *tenstore.PredictionAccuracyRepository
	Relationships *tenstore.FactionRelationshipRepository
	Factions      RegionFactionProvider
	Metrics       *tenmetrics.Registry
	Log           *logger.Logger
}

// Engine produces tension escalation and conflict outbreak forecasts.
type Engine struct {
	config        tenconfig.ConfigRepository
	history       *tenstore.SampleHistoryRepository
	locations     *tenstore.TensionStateRepository
	accuracy      *tenstore.PredictionAccuracyRepository
	relationships *tenstore.FactionRelationshipRepository
	factions      RegionFactionProvider
	metrics       *tenmetrics.Registry
	log           *logger.Logger
}

// NewEngine constructs an Engine from deps.
func NewEngine(deps Dependencies) *Engine {
	return &Engine{
		config:        deps.Config,
		history:       deps.History,
		locations:     deps.Locations,
		accuracy:      deps.Accuracy,
		relationships: deps.Relationships,
		factions:      deps.Factions,
		metrics:       deps.Metrics,
		log:           deps.Log,
	}
}

// PredictTensionEscalation forecasts the tension level at (regionID, poiID)
// hoursAhead from now, capped at the configured prediction horizon.
func (e *Engine) PredictTensionEscalation(ctx context.Context, regionID, poiID string, hoursAhead float64, now time.Time) tendomain.TensionPrediction {
	constants := e.config.CalculationConstants()
	if max := constants.PredictionHorizonHours; max > 0 && hoursAhead > max {
		hoursAhead = max
	}

	loc := tendomain.LocationKey{RegionID: regionID, POIID: poiID}
	current := e.currentTension(loc)
	samples := e.history.History(loc)

	slope := leastSquaresSlope(samples)
	volatility := sampleVolatility(samples)
	significant := e.significantFactors(samples, now)

	factorAdjustment := 0.0
	for _, kind := range significant {
		factorAdjustment += e.config.EventImpactConfig(kind).BaseImpact * 0.1
	}

	predicted := current + (slope * hoursAhead / 24)
	predicted += factorAdjustment
	predicted = clamp01(predicted)

	confidence := e.predictionConfidence(constants, len(samples), len(significant), volatility)
	delta := predicted - current
	trend := determineTrend(delta, volatility)
	thresholds := probabilityThresholds(predicted, hasFactionDispute(significant))

	e.recordGenerated("escalation")

	factors := make([]string, 0, len(significant))
	for _, kind := range significant {
		factors = append(factors, string(kind))
	}
	sort.Strings(factors)

	return tendomain.TensionPrediction{
		Location:                      loc,
		CurrentLevel:                  current,
		PredictedLevel:                predicted,
		HorizonHours:                  hoursAhead,
		Confidence:                    confidence,
		Trend:                         trend,
		ContributingFactors:           factors,
		ConflictProbability:           thresholds.conflict,
		ViolenceProbability:           thresholds.violence,
		MassExodusProbability:         thresholds.massExodus,
		EconomicDisruptionProbability: thresholds.economicDisruption,
		GeneratedAt:                   now,
	}
}

func (e *Engine) currentTension(loc tendomain.LocationKey) float64 {
	state, ok := e.locations.Get(loc)
	if !ok {
		return 0
	}
	return state.CurrentLevel
}

// significantFactors returns the distinct, non-other event kinds recorded
// against loc's history in the last 24 hours, the same window the escalation
// formula weighs contributing factors over.
func (e *Engine) significantFactors(samples []tendomain.TensionSample, now time.Time) []tendomain.EventKind {
	cutoff := now.Add(-24 * time.Hour)
	seen := make(map[tendomain.EventKind]bool)
	var out []tendomain.EventKind
	for _, s := range samples {
		if s.EventKind == "" || s.EventKind == tendomain.EventOther {
			continue
		}
		if s.Timestamp.Before(cutoff) {
			continue
		}
		if !seen[s.EventKind] {
			seen[s.EventKind] = true
			out = append(out, s.EventKind)
		}
	}
	return out
}

// hasFactionDispute reports whether any significant factor belongs to the
// political or diplomatic taxonomy groups, standing in for the
// faction-dispute signal the original model tracked directly.
func hasFactionDispute(significant []tendomain.EventKind) bool {
	for _, kind := range significant {
		if g := kind.Group(); g == "political" || g == "diplomatic" {
			return true
		}
	}
	return false
}

// predictionConfidence blends sample-size data quality, the number of
// significant factors, and historical volatility into a single score, then
// buckets it the same way the escalation model's original confidence
// thresholds did.
func (e *Engine) predictionConfidence(constants tendomain.CalculationConstants, sampleCount, factorCount int, volatility float64) tendomain.ConfidenceLevel {
	dataQuality := dataQualityScore(tendomain.ConfidenceFromSampleSize(sampleCount, constants.PatternMinSamplesHigh, constants.PatternMinSamplesMed))
	factorCertainty := math.Min(1.0, float64(factorCount)/5.0)
	score := (dataQuality + factorCertainty + (1 - clamp01(volatility))) / 3.0

	switch {
	case score >= 0.8:
		return tendomain.ConfidenceVeryHigh
	case score >= 0.6:
		return tendomain.ConfidenceHigh
	case score >= 0.4:
		return tendomain.ConfidenceMedium
	default:
		return tendomain.ConfidenceLow
	}
}

// dataQualityScore projects the sample-size confidence bucket
// (ConfidenceFromSampleSize against PatternMinSamplesHigh/Med) into the
// numeric data-quality term the escalation confidence formula weighs.
func dataQualityScore(level tendomain.ConfidenceLevel) float64 {
	switch level {
	case tendomain.ConfidenceHigh, tendomain.ConfidenceVeryHigh:
		return 1.0
	case tendomain.ConfidenceMedium:
		return 0.6
	default:
		return 0.3
	}
}

// determineTrend classifies the predicted change. Unlike the unreachable
// volatility branch in the model this was ported from, a small delta with
// high historical volatility is reported as volatile rather than silently
// folding into stable.
func determineTrend(delta, volatility float64) tendomain.PredictionTrend {
	switch {
	case math.Abs(delta) < trendSensitivity:
		if volatility > 0.3 {
			return tendomain.TrendVolatile
		}
		return tendomain.TrendStable
	case delta > 0.3:
		return tendomain.TrendCritical
	case delta > 0.1:
		return tendomain.TrendRising
	case delta < -0.1:
		return tendomain.TrendFalling
	default:
		return tendomain.TrendStable
	}
}

type thresholds struct {
	conflict           float64
	violence           float64
	massExodus         float64
	economicDisruption float64
}

func probabilityThresholds(predicted float64, factionDispute bool) thresholds {
	conflict := math.Min(0.8, predicted*0.7)
	violence := math.Min(0.6, predicted*0.5)
	if factionDispute {
		conflict *= 1.5
		violence *= 1.3
	}
	return thresholds{
		conflict:           math.Min(1.0, conflict),
		violence:           math.Min(1.0, violence),
		massExodus:         math.Min(1.0, predicted*0.3),
		economicDisruption: math.Min(1.0, predicted*0.6),
	}
}

// PredictConflictOutbreak estimates the likelihood, severity and timeframe
// of a conflict outbreak in regionID from its current average tension and
// faction risk factors.
func (e *Engine) PredictConflictOutbreak(ctx context.Context, regionID string, now time.Time) tendomain.ConflictOutbreakPrediction {
	avgTension := e.averageRegionalTension(regionID)
	riskScore := e.factionTensionRisk(ctx, regionID)

	probability := clamp01(avgTension * 0.5 * (1 + riskScore))
	severity := math.Min(2.0, probability*1.5)
	timeframe := conflictTimeframe(probability)
	interventions := recommendedInterventions(probability)

	e.recordGenerated("outbreak")

	return tendomain.ConflictOutbreakPrediction{
		RegionID:      regionID,
		Probability:   probability,
		Severity:      severity,
		Timeframe:     timeframe,
		Interventions: interventions,
		GeneratedAt:   now,
	}
}

func (e *Engine) averageRegionalTension(regionID string) float64 {
	locs := e.locations.LocationsInRegion(regionID)
	if len(locs) == 0 {
		return 0
	}
	var sum float64
	for _, loc := range locs {
		if state, ok := e.locations.Get(loc); ok {
			sum += state.CurrentLevel
		}
	}
	return sum / float64(len(locs))
}

// factionTensionRisk averages the positive (hostile-leaning) tension across
// every faction pair present in regionID, as reported by the faction
// roster. A nil or failing provider, or a region with fewer than two
// factions, yields zero risk rather than an error.
func (e *Engine) factionTensionRisk(ctx context.Context, regionID string) float64 {
	if e.factions == nil || e.relationships == nil {
		return 0
	}
	present, err := e.factions.FactionsInRegion(ctx, regionID)
	if err != nil {
		if e.log != nil {
			e.log.WithContext(ctx).Warn().Err(err).Str("region_id", regionID).Msg("faction roster unavailable, treating conflict risk as zero")
		}
		return 0
	}
	if len(present) < 2 {
		return 0
	}

	var sum float64
	var count int
	for i := 0; i < len(present); i++ {
		for j := i + 1; j < len(present); j++ {
			rel, ok := e.relationships.Get(present[i].ID, present[j].ID)
			if !ok {
				continue
			}
			risk := float64(rel.TensionLevel) / 100.0
			if risk < 0 {
				risk = 0
			}
			sum += risk
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func conflictTimeframe(probability float64) string {
	switch {
	case probability > 0.7:
		return "within_24_hours"
	case probability > 0.4:
		return "within_3_days"
	case probability > 0.2:
		return "within_1_week"
	default:
		return "none"
	}
}

func recommendedInterventions(probability float64) []string {
	switch {
	case probability > 0.7:
		return []string{"immediate_mediation", "security_deployment"}
	case probability > 0.4:
		return []string{"diplomatic_outreach", "resource_distribution"}
	default:
		return []string{"monitoring_increase", "community_engagement"}
	}
}

// UpdatePredictionAccuracy records how a past prediction for regionID
// compared to what actually happened, keeping the last 100 outcomes per
// region.
func (e *Engine) UpdatePredictionAccuracy(regionID string, predictedValue, actualValue, horizonHours float64, predictedAt time.Time) tendomain.PredictionOutcome {
	outcome := tendomain.PredictionOutcome{
		PredictedAt:    predictedAt,
		PredictedValue: predictedValue,
		ActualValue:    actualValue,
		HorizonHours:   horizonHours,
	}
	if e.accuracy != nil {
		e.accuracy.Record(regionID, outcome)
	}
	if e.metrics != nil {
		accuracy := 1.0 - outcome.AbsoluteError()
		e.metrics.PredictionAccuracy.WithLabelValues(regionID).Set(accuracy)
	}
	return outcome
}

func (e *Engine) recordGenerated(kind string) {
	if e.metrics != nil {
		e.metrics.PredictionsGenerated.WithLabelValues(kind).Inc()
	}
}

func leastSquaresSlope(samples []tendomain.TensionSample) float64 {
	n := float64(len(samples))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, s := range samples {
		x := float64(i)
		sumX += x
		sumY += s.Value
		sumXY += x * s.Value
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func sampleVolatility(samples []tendomain.TensionSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	values := make([]float64, len(samples))
	var sum float64
	for i, s := range samples {
		values[i] = s.Value
		sum += s.Value
	}
	mean := sum / float64(len(values))
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values)-1)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
