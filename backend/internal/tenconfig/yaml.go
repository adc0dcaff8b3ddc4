package tenconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/pkg/logger"
)

// YAMLRepository loads configuration from a directory of YAML files,
// falling back to the hardcoded defaults section-by-section whenever a file
// is missing or fails validation. It never returns a construction error for
// a missing file -- only a logged warning -- since the core must still be
// able to start with no configuration directory present at all.
type YAMLRepository struct {
	atomicRepository
	dataDir  string
	validate *validator.Validate
	log      *logger.Logger
}

// locationConfigYAML mirrors tendomain.TensionConfig with validator tags for
// the ranges location_configs.yaml entries must respect.
type locationConfigYAML struct {
	BaseTension         float64 `yaml:"base_tension" validate:"gte=0,lte=1"`
	DecayRate           float64 `yaml:"decay_rate" validate:"gt=0,lte=0.5"`
	MaxTension          float64 `yaml:"max_tension" validate:"gte=0,lte=1"`
	MinTension          float64 `yaml:"min_tension" validate:"gte=0,lte=1"`
	PlayerImpact        float64 `yaml:"player_impact" validate:"gt=0"`
	NPCImpact           float64 `yaml:"npc_impact" validate:"gt=0"`
	EnvironmentalImpact float64 `yaml:"environmental_impact" validate:"gt=0"`
}

type eventImpactYAML struct {
	BaseImpact float64            `yaml:"base_impact" validate:"gte=-1,lte=1"`
	Modifiers  map[string]float64 `yaml:"modifiers"`
}

type revoltConfigYAML struct {
	BaseProbabilityThreshold float64 `yaml:"base_probability_threshold" validate:"gte=0"`
	FactionInfluenceModifier float64 `yaml:"faction_influence_modifier" validate:"gte=0"`
	MinDurationHours         int     `yaml:"min_duration_hours" validate:"gt=0"`
	MaxDurationHours         int     `yaml:"max_duration_hours" validate:"gtfield=MinDurationHours"`
	CasualtyMultiplier       float64 `yaml:"casualty_multiplier" validate:"gte=0"`
	EconomicImpactFactor     float64 `yaml:"economic_impact_factor" validate:"gte=0"`
}

type conflictTriggerYAML struct {
	Name                string             `yaml:"name" validate:"required"`
	TensionThreshold    float64            `yaml:"tension_threshold" validate:"gte=0"`
	DurationHours       int                `yaml:"duration_hours" validate:"gte=0"`
	FactionRequirements map[string]float64 `yaml:"faction_requirements"`
	ProbabilityModifier float64            `yaml:"probability_modifier" validate:"gte=0"`
}

type calculationConstantsYAML struct {
	DecayIntervalHours     float64 `yaml:"decay_interval_hours" validate:"gt=0"`
	ModifierDecayFloor     float64 `yaml:"modifier_decay_floor"`
	SeverityLowMax         float64 `yaml:"severity_low_max" validate:"gte=0"`
	SeverityMediumMax      float64 `yaml:"severity_medium_max" validate:"gtefield=SeverityLowMax"`
	SeverityHighMax        float64 `yaml:"severity_high_max" validate:"gtefield=SeverityMediumMax"`
	RevoltBaseChance       float64 `yaml:"revolt_base_chance" validate:"gte=0,lte=1"`
	RevoltTensionExponent  float64 `yaml:"revolt_tension_exponent" validate:"gt=0"`
	PatternMinSamplesHigh  int     `yaml:"pattern_min_samples_high" validate:"gt=0"`
	PatternMinSamplesMed   int     `yaml:"pattern_min_samples_med" validate:"gt=0,ltefield=PatternMinSamplesHigh"`
	AnomalyZScoreThreshold float64 `yaml:"anomaly_zscore_threshold" validate:"gt=0"`
	PredictionHorizonHours float64 `yaml:"prediction_horizon_hours" validate:"gt=0"`
	FactionBaseDecayRate   float64 `yaml:"faction_base_decay_rate" validate:"gt=0"`
}

// NewYAMLRepository loads configuration from dataDir, logging a warning and
// using defaults for any file that's absent or invalid. log may be nil, in
// which case warnings are silently dropped.
func NewYAMLRepository(dataDir string, log *logger.Logger) *YAMLRepository {
	r := &YAMLRepository{
		dataDir:  dataDir,
		validate: validator.New(),
		log:      log,
	}
	r.store(r.load())
	return r
}

// Reload re-reads every configuration file from disk and atomically swaps
// in the new snapshot.
func (r *YAMLRepository) Reload() {
	r.store(r.load())
}

func (r *YAMLRepository) warn(format string, args ...interface{}) {
	if r.log == nil {
		return
	}
	r.log.Warn().Msg(fmt.Sprintf(format, args...))
}

func (r *YAMLRepository) load() *Snapshot {
	defaults := defaultSnapshot()

	snap := &Snapshot{
		LocationConfigs: r.loadLocationConfigs(defaults.LocationConfigs),
		DefaultLocation: defaults.DefaultLocation,
		POITypeMapping:  r.loadPOITypeMapping(defaults.POITypeMapping),
		EventImpacts:    r.loadEventImpacts(defaults.EventImpacts),
		Revolt:          r.loadRevoltConfig(defaults.Revolt),
		Triggers:        r.loadConflictTriggers(defaults.Triggers),
		Constants:       r.loadCalculationConstants(defaults.Constants),
	}
	return snap
}

func (r *YAMLRepository) readFile(name string) ([]byte, bool) {
	path := filepath.Join(r.dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.warn("could not read %s: %v", path, err)
		}
		return nil, false
	}
	return data, true
}

func (r *YAMLRepository) loadLocationConfigs(fallback map[string]tendomain.TensionConfig) map[string]tendomain.TensionConfig {
	data, ok := r.readFile("location_configs.yaml")
	if !ok {
		return fallback
	}

	var raw map[string]locationConfigYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		r.warn("could not parse location_configs.yaml: %v", err)
		return fallback
	}

	out := make(map[string]tendomain.TensionConfig, len(fallback)+len(raw))
	for locationType, cfg := range fallback {
		out[locationType] = cfg
	}
	for locationType, entry := range raw {
		if err := r.validate.Struct(entry); err != nil {
			r.warn("invalid location config %q: %v", locationType, err)
			if fb, ok := fallback[locationType]; ok {
				out[locationType] = fb
			}
			continue
		}
		if entry.MinTension >= entry.MaxTension {
			r.warn("invalid location config %q: min_tension >= max_tension", locationType)
			continue
		}
		out[locationType] = tendomain.TensionConfig{
			BaseTension:         entry.BaseTension,
			DecayRate:           entry.DecayRate,
			MaxTension:          entry.MaxTension,
			MinTension:          entry.MinTension,
			PlayerImpact:        entry.PlayerImpact,
			NPCImpact:           entry.NPCImpact,
			EnvironmentalImpact: entry.EnvironmentalImpact,
		}
	}
	if _, ok := out["default"]; !ok {
		out["default"] = fallback["default"]
	}
	return out
}

func (r *YAMLRepository) loadPOITypeMapping(fallback map[string]string) map[string]string {
	data, ok := r.readFile("poi_type_mapping.yaml")
	if !ok {
		return fallback
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		r.warn("could not parse poi_type_mapping.yaml: %v", err)
		return fallback
	}
	return raw
}

func (r *YAMLRepository) loadEventImpacts(fallback map[tendomain.EventKind]EventImpactConfig) map[tendomain.EventKind]EventImpactConfig {
	data, ok := r.readFile("event_impacts.yaml")
	if !ok {
		return fallback
	}

	var raw map[string]eventImpactYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		r.warn("could not parse event_impacts.yaml: %v", err)
		return fallback
	}

	out := make(map[tendomain.EventKind]EventImpactConfig, len(raw))
	for rawKind, entry := range raw {
		if err := r.validate.Struct(entry); err != nil {
			r.warn("invalid event impact %q: %v", rawKind, err)
			continue
		}
		if entry.Modifiers == nil {
			entry.Modifiers = map[string]float64{}
		}
		out[tendomain.ParseEventKind(rawKind)] = EventImpactConfig{
			BaseImpact: entry.BaseImpact,
			Modifiers:  entry.Modifiers,
		}
	}
	return out
}

func (r *YAMLRepository) loadRevoltConfig(fallback tendomain.RevoltConfig) tendomain.RevoltConfig {
	data, ok := r.readFile("revolt_config.yaml")
	if !ok {
		return fallback
	}

	var entry revoltConfigYAML
	if err := yaml.Unmarshal(data, &entry); err != nil {
		r.warn("could not parse revolt_config.yaml: %v", err)
		return fallback
	}
	if err := r.validate.Struct(entry); err != nil {
		r.warn("invalid revolt_config.yaml: %v", err)
		return fallback
	}

	return tendomain.RevoltConfig{
		BaseProbabilityThreshold: entry.BaseProbabilityThreshold,
		FactionInfluenceModifier: entry.FactionInfluenceModifier,
		MinDurationHours:         entry.MinDurationHours,
		MaxDurationHours:         entry.MaxDurationHours,
		CasualtyMultiplier:       entry.CasualtyMultiplier,
		EconomicImpactFactor:     entry.EconomicImpactFactor,
	}
}

func (r *YAMLRepository) loadConflictTriggers(fallback []tendomain.ConflictTrigger) []tendomain.ConflictTrigger {
	data, ok := r.readFile("conflict_triggers.yaml")
	if !ok {
		return fallback
	}

	var raw []conflictTriggerYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		r.warn("could not parse conflict_triggers.yaml: %v", err)
		return fallback
	}

	out := make([]tendomain.ConflictTrigger, 0, len(raw))
	for _, entry := range raw {
		if err := r.validate.Struct(entry); err != nil {
			r.warn("invalid conflict trigger %q: %v", entry.Name, err)
			continue
		}
		out = append(out, tendomain.ConflictTrigger{
			Name:                entry.Name,
			TensionThreshold:    entry.TensionThreshold,
			DurationHours:       entry.DurationHours,
			FactionRequirements: entry.FactionRequirements,
			ProbabilityModifier: entry.ProbabilityModifier,
		})
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (r *YAMLRepository) loadCalculationConstants(fallback tendomain.CalculationConstants) tendomain.CalculationConstants {
	data, ok := r.readFile("calculation_constants.yaml")
	if !ok {
		return fallback
	}

	var entry calculationConstantsYAML
	if err := yaml.Unmarshal(data, &entry); err != nil {
		r.warn("could not parse calculation_constants.yaml: %v", err)
		return fallback
	}
	if err := r.validate.Struct(entry); err != nil {
		r.warn("invalid calculation_constants.yaml: %v", err)
		return fallback
	}

	return tendomain.CalculationConstants{
		DecayIntervalHours:     entry.DecayIntervalHours,
		ModifierDecayFloor:     entry.ModifierDecayFloor,
		SeverityLowMax:         entry.SeverityLowMax,
		SeverityMediumMax:      entry.SeverityMediumMax,
		SeverityHighMax:        entry.SeverityHighMax,
		RevoltBaseChance:       entry.RevoltBaseChance,
		RevoltTensionExponent:  entry.RevoltTensionExponent,
		PatternMinSamplesHigh:  entry.PatternMinSamplesHigh,
		PatternMinSamplesMed:   entry.PatternMinSamplesMed,
		AnomalyZScoreThreshold: entry.AnomalyZScoreThreshold,
		PredictionHorizonHours: entry.PredictionHorizonHours,
		FactionBaseDecayRate:   entry.FactionBaseDecayRate,
	}
}
