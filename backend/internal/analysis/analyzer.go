// Package analysis derives patterns, anomalies and behavior profiles from
// historical tension samples.
package analysis

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

const minPatternConfidence = 0.7

// PlayerAction is one recorded action a player took, as reported by a
// PlayerActivityProvider.
type PlayerAction struct {
	Kind          string
	RegionID      string
	TensionImpact float64
	Timestamp     time.Time
}

// PlayerActivityProvider is the external player-activity-log collaborator.
// Player action history is not owned by this core; a nil provider or a
// provider error degrades BuildPlayerBehaviorProfile to a default profile
// rather than failing.
type PlayerActivityProvider interface {
	ActionsForPlayer(ctx context.Context, playerID string) ([]PlayerAction, error)
}

// RegionTensionProvider supplies the current tension of regions
// neighboring a given region, for contextual anomaly detection. Region
// adjacency is world data this core does not own.
type RegionTensionProvider interface {
	NeighboringTensions(ctx context.Context, regionID string) ([]float64, error)
}

// Dependencies are the collaborators Analyzer needs. Config and History are
// required; the rest are optional and degrade gracefully when absent.
type Dependencies struct {
	Config          tenconfig.ConfigRepository
	History         *tenstore.SampleHistoryRepository
	Locations       *tenstore.TensionStateRepository
	Anomalies       *tenstore.AnomalyHistoryRepository
	PlayerActivity  PlayerActivityProvider
	NeighborTension RegionTensionProvider
	Metrics         *tenmetrics.Registry
	Log             *logger.Logger
}

// Analyzer detects patterns and anomalies over recorded tension history.
type Analyzer struct {
	config          tenconfig.ConfigRepository
	history         *tenstore.SampleHistoryRepository
	locations       *tenstore.TensionStateRepository
	anomalies       *tenstore.AnomalyHistoryRepository
	playerActivity  PlayerActivityProvider
	neighborTension RegionTensionProvider
	metrics         *tenmetrics.Registry
	log             *logger.Logger
}

// NewAnalyzer constructs an Analyzer from deps.
func NewAnalyzer(deps Dependencies) *Analyzer {
	return &Analyzer{
		config:          deps.Config,
		history:         deps.History,
		locations:       deps.Locations,
		anomalies:       deps.Anomalies,
		playerActivity:  deps.PlayerActivity,
		neighborTension: deps.NeighborTension,
		metrics:         deps.Metrics,
		log:             deps.Log,
	}
}

// AnalyzeTensionPatterns detects cyclic, trending, spike, stable and
// volatile patterns in the tension history at (regionID, poiID) over the
// last daysBack days, returning only detections with confidence >= 0.7.
func (a *Analyzer) AnalyzeTensionPatterns(ctx context.Context, regionID, poiID string, daysBack int, now time.Time) []tendomain.PatternDetection {
	loc := tendomain.LocationKey{RegionID: regionID, POIID: poiID}
	samples := recentSamples(a.history.History(loc), daysBack, now)
	if len(samples) == 0 {
		return nil
	}

	var patterns []tendomain.PatternDetection
	patterns = append(patterns, detectCyclic(loc, samples, now)...)
	patterns = append(patterns, detectTrending(loc, samples, now)...)
	patterns = append(patterns, detectSpike(loc, samples, now)...)
	patterns = append(patterns, detectStability(loc, samples, now)...)

	out := patterns[:0]
	for _, p := range patterns {
		if p.Confidence >= minPatternConfidence {
			out = append(out, p)
		}
	}
	return out
}

func recentSamples(all []tendomain.TensionSample, daysBack int, now time.Time) []tendomain.TensionSample {
	if daysBack <= 0 {
		return all
	}
	cutoff := now.Add(-time.Duration(daysBack) * 24 * time.Hour)
	var out []tendomain.TensionSample
	for _, s := range all {
		if !s.Timestamp.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

func detectCyclic(loc tendomain.LocationKey, samples []tendomain.TensionSample, now time.Time) []tendomain.PatternDetection {
	byHour := make(map[int][]float64)
	for _, s := range samples {
		h := s.Timestamp.Hour()
		byHour[h] = append(byHour[h], s.Value)
	}

	maxVariance := 0.0
	var peakHours []int
	for h, values := range byHour {
		if len(values) < 2 {
			continue
		}
		v := variance(values)
		switch {
		case v > maxVariance:
			maxVariance = v
			peakHours = []int{h}
		case v == maxVariance && v > 0:
			peakHours = append(peakHours, h)
		}
	}

	if maxVariance <= 0.01 {
		return nil
	}
	sort.Ints(peakHours)
	return []tendomain.PatternDetection{{
		Location:    loc,
		Type:        tendomain.PatternCyclic,
		Confidence:  0.8,
		SampleSize:  len(samples),
		DetectedAt:  now,
		Description: "daily tension cycle detected",
		Parameters:  map[string]float64{"cycle_length_hours": 24, "variance": maxVariance},
		PeakHours:   peakHours,
	}}
}

func detectTrending(loc tendomain.LocationKey, samples []tendomain.TensionSample, now time.Time) []tendomain.PatternDetection {
	if len(samples) < 10 {
		return nil
	}
	slope := leastSquaresSlope(samples)
	if math.Abs(slope) <= 0.001 {
		return nil
	}

	direction := 1.0
	if slope < 0 {
		direction = -1.0
	}
	confidence := math.Min(0.9, math.Abs(slope)*1000)
	return []tendomain.PatternDetection{{
		Location:    loc,
		Type:        tendomain.PatternTrending,
		Confidence:  confidence,
		SampleSize:  len(samples),
		DetectedAt:  now,
		Description: "tension trend detected",
		Parameters:  map[string]float64{"slope": slope, "direction": direction},
	}}
}

func leastSquaresSlope(samples []tendomain.TensionSample) float64 {
	n := float64(len(samples))
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

func detectSpike(loc tendomain.LocationKey, samples []tendomain.TensionSample, now time.Time) []tendomain.PatternDetection {
	if len(samples) < 5 {
		return nil
	}
	values := valuesOf(samples)
	mean := meanOf(values)
	stddev := math.Sqrt(variance(values))

	var spikeCount int
	var magnitudeSum float64
	for _, v := range values {
		if d := math.Abs(v - mean); d > 2*stddev {
			spikeCount++
			magnitudeSum += d
		}
	}
	if spikeCount < 2 {
		return nil
	}
	return []tendomain.PatternDetection{{
		Location:    loc,
		Type:        tendomain.PatternSpike,
		Confidence:  0.7,
		SampleSize:  len(samples),
		DetectedAt:  now,
		Description: "spike pattern detected",
		Parameters: map[string]float64{
			"spike_count":              float64(spikeCount),
			"average_spike_magnitude":  magnitudeSum / float64(spikeCount),
			"spike_threshold":          2 * stddev,
		},
	}}
}

func detectStability(loc tendomain.LocationKey, samples []tendomain.TensionSample, now time.Time) []tendomain.PatternDetection {
	if len(samples) < 5 {
		return nil
	}
	values := valuesOf(samples)
	v := variance(values)

	switch {
	case v < 0.01:
		return []tendomain.PatternDetection{{
			Location:    loc,
			Type:        tendomain.PatternStable,
			Confidence:  0.9,
			SampleSize:  len(samples),
			DetectedAt:  now,
			Description: "stable tension pattern",
			Parameters:  map[string]float64{"variance": v},
		}}
	case v > 0.05:
		return []tendomain.PatternDetection{{
			Location:    loc,
			Type:        tendomain.PatternVolatile,
			Confidence:  0.8,
			SampleSize:  len(samples),
			DetectedAt:  now,
			Description: "volatile tension pattern",
			Parameters:  map[string]float64{"variance": v},
		}}
	default:
		return nil
	}
}

// DetectAnomalies compares currentTension to the recorded baseline for
// (regionID, poiID) and flags statistical, temporal and contextual
// deviations, appending each to the bounded global anomaly history.
func (a *Analyzer) DetectAnomalies(ctx context.Context, regionID, poiID string, currentTension float64, now time.Time) []tendomain.AnomalyDetection {
	loc := tendomain.LocationKey{RegionID: regionID, POIID: poiID}
	samples := a.history.History(loc)
	if len(samples) < 2 {
		return nil
	}
	values := valuesOf(samples)
	mean := meanOf(values)
	stddev := math.Sqrt(variance(values))

	var anomalies []tendomain.AnomalyDetection
	if stddev > 0 {
		if anomaly, ok := a.detectStatisticalAnomaly(loc, currentTension, mean, stddev, now); ok {
			anomalies = append(anomalies, anomaly)
		}
	}
	if anomaly, ok := detectTemporalAnomaly(loc, currentTension, samples, now); ok {
		anomalies = append(anomalies, anomaly)
	}
	if anomaly, ok := a.detectContextualAnomaly(ctx, loc, currentTension, now); ok {
		anomalies = append(anomalies, anomaly)
	}

	if a.anomalies != nil {
		for _, an := range anomalies {
			a.anomalies.Record(an)
		}
	}
	return anomalies
}

func (a *Analyzer) detectStatisticalAnomaly(loc tendomain.LocationKey, current, mean, stddev float64, now time.Time) (tendomain.AnomalyDetection, bool) {
	z := math.Abs(current-mean) / stddev
	threshold := a.config.CalculationConstants().AnomalyZScoreThreshold
	if z <= threshold {
		return tendomain.AnomalyDetection{}, false
	}
	return tendomain.AnomalyDetection{
		Location:    loc,
		Kind:        tendomain.AnomalyStatistical,
		Severity:    math.Min(1.0, z/5.0),
		Deviation:   z,
		DetectedAt:  now,
		Description: "tension deviates sharply from its historical baseline",
	}, true
}

func detectTemporalAnomaly(loc tendomain.LocationKey, current float64, samples []tendomain.TensionSample, now time.Time) (tendomain.AnomalyDetection, bool) {
	expected, ok := expectedTensionForHour(samples, now.Hour())
	if !ok {
		return tendomain.AnomalyDetection{}, false
	}
	delta := math.Abs(current - expected)
	if delta <= 0.2 {
		return tendomain.AnomalyDetection{}, false
	}
	return tendomain.AnomalyDetection{
		Location:    loc,
		Kind:        tendomain.AnomalyTemporal,
		Severity:    math.Min(1.0, delta/0.5),
		Deviation:   delta,
		DetectedAt:  now,
		Description: "tension differs from what this hour of day usually sees",
	}, true
}

func expectedTensionForHour(samples []tendomain.TensionSample, hour int) (float64, bool) {
	var sum float64
	var count int
	for _, s := range samples {
		if s.Timestamp.Hour() == hour {
			sum += s.Value
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func (a *Analyzer) detectContextualAnomaly(ctx context.Context, loc tendomain.LocationKey, current float64, now time.Time) (tendomain.AnomalyDetection, bool) {
	if a.neighborTension == nil {
		return tendomain.AnomalyDetection{}, false
	}
	neighbors, err := a.neighborTension.NeighboringTensions(ctx, loc.RegionID)
	if err != nil || len(neighbors) == 0 {
		if err != nil && a.log != nil {
			a.log.WithContext(ctx).Warn().Err(err).Str("region_id", loc.RegionID).Msg("neighboring region tension unavailable, skipping contextual anomaly check")
		}
		return tendomain.AnomalyDetection{}, false
	}
	avg := meanOf(neighbors)
	delta := math.Abs(current - avg)
	if delta <= 0.3 {
		return tendomain.AnomalyDetection{}, false
	}
	return tendomain.AnomalyDetection{
		Location:    loc,
		Kind:        tendomain.AnomalyContextual,
		Severity:    0.6,
		Deviation:   delta,
		DetectedAt:  now,
		Description: "tension diverges from neighboring regions",
	}, true
}

// BuildPlayerBehaviorProfile aggregates playerID's observed actions into a
// behavior profile. A nil or failing PlayerActivityProvider yields a default
// zero profile rather than an error.
func (a *Analyzer) BuildPlayerBehaviorProfile(ctx context.Context, playerID string, now time.Time) tendomain.PlayerBehaviorProfile {
	actions, ok := a.fetchPlayerActions(ctx, playerID)
	if !ok || len(actions) == 0 {
		return tendomain.PlayerBehaviorProfile{PlayerID: playerID, LastUpdated: now}
	}

	freq := actionFrequencies(actions)
	impacts := make([]float64, len(actions))
	for i, act := range actions {
		impacts[i] = act.TensionImpact
	}

	return tendomain.PlayerBehaviorProfile{
		PlayerID:          playerID,
		ActionFrequencies: freq,
		ImpactHistory:     impacts,
		PreferredRegions:  preferredRegions(actions),
		MostActiveHour:    mostActiveHour(actions),
		RiskFactors:       riskFactors(freq, impacts),
		LastUpdated:       now,
	}
}

func (a *Analyzer) fetchPlayerActions(ctx context.Context, playerID string) ([]PlayerAction, bool) {
	if a.playerActivity == nil {
		return nil, false
	}
	actions, err := a.playerActivity.ActionsForPlayer(ctx, playerID)
	if err != nil {
		if a.log != nil {
			a.log.WithContext(ctx).Warn().Err(err).Str("player_id", playerID).Msg("player activity unavailable, returning default behavior profile")
		}
		return nil, false
	}
	return actions, true
}

func actionFrequencies(actions []PlayerAction) map[string]float64 {
	counts := make(map[string]int, len(actions))
	for _, act := range actions {
		counts[act.Kind]++
	}
	out := make(map[string]float64, len(counts))
	total := float64(len(actions))
	for kind, n := range counts {
		out[kind] = float64(n) / total
	}
	return out
}

func preferredRegions(actions []PlayerAction) []string {
	counts := make(map[string]int)
	var order []string
	for _, act := range actions {
		if _, ok := counts[act.RegionID]; !ok {
			order = append(order, act.RegionID)
		}
		counts[act.RegionID]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > 3 {
		order = order[:3]
	}
	return order
}

func mostActiveHour(actions []PlayerAction) int {
	counts := make(map[int]int)
	best, bestCount := 12, -1
	for _, act := range actions {
		h := act.Timestamp.Hour()
		counts[h]++
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return best
}

func riskFactors(freq map[string]float64, impacts []float64) map[string]float64 {
	var escalations int
	for _, v := range impacts {
		if v > 0.1 {
			escalations++
		}
	}
	risk := map[string]float64{
		"combat_risk":     freq["combat"],
		"escalation_risk": math.Min(1.0, float64(escalations)/10.0),
	}
	if len(impacts) > 0 {
		risk["unpredictability"] = math.Min(1.0, variance(impacts)*10)
	} else {
		risk["unpredictability"] = 0.0
	}
	return risk
}

// AnalyzeRegionalPatterns analyzes every known POI in regionID, plus
// cross-POI correlation and collective-behavior heuristics.
func (a *Analyzer) AnalyzeRegionalPatterns(ctx context.Context, regionID string, daysBack int, now time.Time) tendomain.RegionalPattern {
	locs := a.locations.LocationsInRegion(regionID)
	sort.Slice(locs, func(i, j int) bool { return locs[i].POIID < locs[j].POIID })

	poiPatterns := make(map[string][]tendomain.PatternDetection, len(locs))
	var tensionSum float64
	var tensionCount int
	for _, loc := range locs {
		poiPatterns[loc.POIID] = a.AnalyzeTensionPatterns(ctx, regionID, loc.POIID, daysBack, now)
		if state, ok := a.currentLevel(loc); ok {
			tensionSum += state
			tensionCount++
		}
	}

	avgTension := 0.0
	if tensionCount > 0 {
		avgTension = tensionSum / float64(tensionCount)
	}

	correlations := make(map[string]float64)
	for i := 0; i < len(locs); i++ {
		for j := i + 1; j < len(locs); j++ {
			correlations[locs[i].POIID+"-"+locs[j].POIID] = 0.3
		}
	}

	return tendomain.RegionalPattern{
		RegionID:            regionID,
		POIPatterns:         poiPatterns,
		RegionalTrend:       regionalTrend(avgTension),
		AverageTension:      avgTension,
		Correlations:        correlations,
		CollectiveBehaviors: collectiveBehaviors(poiPatterns),
	}
}

func (a *Analyzer) currentLevel(loc tendomain.LocationKey) (float64, bool) {
	state, ok := a.locations.Get(loc)
	if !ok {
		return 0, false
	}
	return state.CurrentLevel, true
}

func regionalTrend(avgTension float64) string {
	switch {
	case avgTension > 0.6:
		return "rising"
	case avgTension < 0.2:
		return "calm"
	default:
		return "stable"
	}
}

func collectiveBehaviors(poiPatterns map[string][]tendomain.PatternDetection) []string {
	var risingOrSpiking []string
	for poiID, patterns := range poiPatterns {
		for _, p := range patterns {
			if p.Type == tendomain.PatternTrending || p.Type == tendomain.PatternSpike {
				risingOrSpiking = append(risingOrSpiking, poiID)
				break
			}
		}
	}
	if len(risingOrSpiking) >= 2 {
		return []string{"synchronized_tension_increase"}
	}
	return nil
}

func valuesOf(samples []tendomain.TensionSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values)-1)
}
