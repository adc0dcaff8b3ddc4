package tenconfig

import "github.com/duskmere/tension-engine/backend/internal/tendomain"

// defaultSnapshot builds the hardcoded configuration snapshot every
// repository falls back to when no file-backed override is supplied, or
// when a section of a file-backed override fails validation.
func defaultSnapshot() *Snapshot {
	return &Snapshot{
		LocationConfigs: defaultLocationConfigs(),
		DefaultLocation: "default",
		POITypeMapping:  defaultPOITypeMapping(),
		EventImpacts:    defaultEventImpacts(),
		Revolt:          defaultRevoltConfig(),
		Triggers:        defaultConflictTriggers(),
		Constants:       defaultCalculationConstants(),
	}
}

func defaultLocationConfigs() map[string]tendomain.TensionConfig {
	return map[string]tendomain.TensionConfig{
		"city": {
			BaseTension: 0.2, DecayRate: 0.05, MaxTension: 1.0, MinTension: 0.1,
			PlayerImpact: 1.5, NPCImpact: 1.0, EnvironmentalImpact: 0.5,
		},
		"town": {
			BaseTension: 0.15, DecayRate: 0.06, MaxTension: 0.9, MinTension: 0.05,
			PlayerImpact: 1.2, NPCImpact: 0.8, EnvironmentalImpact: 0.6,
		},
		"village": {
			BaseTension: 0.1, DecayRate: 0.08, MaxTension: 0.8, MinTension: 0.0,
			PlayerImpact: 1.0, NPCImpact: 0.6, EnvironmentalImpact: 0.8,
		},
		"dungeon": {
			BaseTension: 0.7, DecayRate: 0.02, MaxTension: 1.0, MinTension: 0.5,
			PlayerImpact: 2.0, NPCImpact: 1.5, EnvironmentalImpact: 1.0,
		},
		"ruins": {
			BaseTension: 0.6, DecayRate: 0.03, MaxTension: 0.9, MinTension: 0.4,
			PlayerImpact: 1.8, NPCImpact: 1.3, EnvironmentalImpact: 1.2,
		},
		"wilderness": {
			BaseTension: 0.4, DecayRate: 0.03, MaxTension: 1.0, MinTension: 0.2,
			PlayerImpact: 1.0, NPCImpact: 0.8, EnvironmentalImpact: 2.0,
		},
		"forest": {
			BaseTension: 0.3, DecayRate: 0.04, MaxTension: 0.9, MinTension: 0.1,
			PlayerImpact: 0.9, NPCImpact: 0.7, EnvironmentalImpact: 1.8,
		},
		"mountains": {
			BaseTension: 0.5, DecayRate: 0.025, MaxTension: 1.0, MinTension: 0.3,
			PlayerImpact: 1.1, NPCImpact: 0.9, EnvironmentalImpact: 2.2,
		},
		"swamp": {
			BaseTension: 0.6, DecayRate: 0.02, MaxTension: 1.0, MinTension: 0.4,
			PlayerImpact: 1.3, NPCImpact: 1.1, EnvironmentalImpact: 2.5,
		},
		"coastal": {
			BaseTension: 0.25, DecayRate: 0.05, MaxTension: 0.8, MinTension: 0.1,
			PlayerImpact: 1.0, NPCImpact: 0.9, EnvironmentalImpact: 1.2,
		},
		"default": {
			BaseTension: 0.3, DecayRate: 0.04, MaxTension: 1.0, MinTension: 0.1,
			PlayerImpact: 1.0, NPCImpact: 1.0, EnvironmentalImpact: 1.0,
		},
	}
}

func defaultPOITypeMapping() map[string]string {
	return map[string]string{
		"CITY":     "city",
		"TOWN":     "town",
		"VILLAGE":  "village",
		"DUNGEON":  "dungeon",
		"RUINS":    "ruins",
		"CAMP":     "wilderness",
		"TOWER":    "ruins",
		"TEMPLE":   "city",
		"MINE":     "wilderness",
		"FORTRESS": "city",
		"default":  "default",
	}
}

func defaultEventImpacts() map[tendomain.EventKind]EventImpactConfig {
	return map[tendomain.EventKind]EventImpactConfig{
		tendomain.EventPlayerCombat: {
			BaseImpact: 0.15,
			Modifiers:  map[string]float64{"lethal_modifier": 0.3, "stealth_modifier": -0.1},
		},
		tendomain.EventNPCDeath: {
			BaseImpact: 0.1,
			Modifiers:  map[string]float64{"important_npc_modifier": 0.3, "civilian_modifier": 0.2},
		},
		tendomain.EventEnvironmentalDisaster: {
			BaseImpact: 0.3,
			Modifiers:  map[string]float64{"severity_multiplier": 2.0},
		},
		tendomain.EventMagicalAccident: {
			BaseImpact: 0.2,
			Modifiers:  map[string]float64{"beneficial_modifier": -0.3, "harmful_modifier": 0.4},
		},
		tendomain.EventEconomicCrisis: {
			BaseImpact: 0.1,
			Modifiers:  map[string]float64{"prosperity_modifier": -0.2, "recession_modifier": 0.3},
		},
		tendomain.EventPoliticalChange: {
			BaseImpact: 0.2,
			Modifiers:  map[string]float64{"regime_change_modifier": 0.5, "peaceful_transition_modifier": -0.1},
		},
		tendomain.EventFestival: {
			BaseImpact: -0.1,
			Modifiers:  map[string]float64{},
		},
		tendomain.EventSocialUnrest: {
			BaseImpact: 0.2,
			Modifiers:  map[string]float64{"riot_modifier": 0.3},
		},
		tendomain.EventFactionWarfare: {
			BaseImpact: 0.35,
			Modifiers:  map[string]float64{"siege_modifier": 0.25},
		},
		tendomain.EventDiplomaticVisit: {
			BaseImpact: -0.05,
			Modifiers:  map[string]float64{"treaty_modifier": -0.15},
		},
	}
}

func defaultRevoltConfig() tendomain.RevoltConfig {
	return tendomain.RevoltConfig{
		BaseProbabilityThreshold: 0.5,
		FactionInfluenceModifier: 0.05,
		MinDurationHours:         24,
		MaxDurationHours:         72,
		CasualtyMultiplier:       1.0,
		EconomicImpactFactor:     0.2,
	}
}

func defaultConflictTriggers() []tendomain.ConflictTrigger {
	return []tendomain.ConflictTrigger{
		{
			Name:             "revolt_risk",
			TensionThreshold: 0.8,
			DurationHours:    48,
			ProbabilityModifier: 1.0,
		},
		{
			Name:             "regional_unrest",
			TensionThreshold: 0.9,
			DurationHours:    72,
			FactionRequirements: map[string]float64{"min_factions": 2},
			ProbabilityModifier: 1.0,
		},
		{
			Name:             "border_skirmish",
			TensionThreshold: 0.6,
			DurationHours:    12,
			ProbabilityModifier: 0.15,
		},
	}
}

func defaultCalculationConstants() tendomain.CalculationConstants {
	return tendomain.CalculationConstants{
		DecayIntervalHours:     1.0,
		ModifierDecayFloor:     0.0,
		SeverityLowMax:         0.1,
		SeverityMediumMax:      0.3,
		SeverityHighMax:        0.6,
		RevoltBaseChance:       0.5,
		RevoltTensionExponent:  2.0,
		PatternMinSamplesHigh:  30,
		PatternMinSamplesMed:   10,
		AnomalyZScoreThreshold: 2.5,
		PredictionHorizonHours: 72,
		FactionBaseDecayRate:   2.0,
	}
}
