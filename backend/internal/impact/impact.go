// Package impact computes the scalar tension impact of a single
// TensionEvent given its configured EventImpactConfig. Calculate is a pure
// function: no state reads, no I/O, no clock reads.
package impact

import (
	"github.com/duskmere/tension-engine/backend/internal/tendomain"
	"github.com/duskmere/tension-engine/backend/internal/tenconfig"
)

// Calculate maps (kind, data, cfg) to a signed tension delta. The result is
// not scaled by a location's player/NPC/environmental impact multipliers;
// callers apply those themselves if they choose to.
func Calculate(kind tendomain.EventKind, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := cfg.BaseImpact

	switch kind {
	case tendomain.EventPlayerCombat, tendomain.EventNPCCombat, tendomain.EventFactionWarfare,
		tendomain.EventSiegeWarfare, tendomain.EventSkirmish, tendomain.EventAssassination, tendomain.EventDuel:
		impact = combatImpact(impact, data, cfg)

	case tendomain.EventNPCDeath, tendomain.EventMassCasualties, tendomain.EventExecution,
		tendomain.EventMurder, tendomain.EventSuicide:
		impact = deathImpact(impact, data, cfg)

	case tendomain.EventEnvironmentalDisaster, tendomain.EventNaturalDisaster, tendomain.EventPlagueOutbreak,
		tendomain.EventFamine, tendomain.EventFireOutbreak, tendomain.EventFlood, tendomain.EventEarthquake,
		tendomain.EventMagicalCatastrophe:
		impact = severityScaledImpact(impact, data)

	case tendomain.EventFestival, tendomain.EventReligiousCeremony, tendomain.EventCulturalEvent,
		tendomain.EventWedding:
		impact = celebrationImpact(impact, data)

	case tendomain.EventMagicalAccident, tendomain.EventSpellDisaster, tendomain.EventSummoningGoneWrong:
		impact = magicalAccidentImpact(impact, data, cfg)

	case tendomain.EventEconomicCrisis, tendomain.EventMarketCrash, tendomain.EventResourceShortage,
		tendomain.EventInflation, tendomain.EventUnemployment:
		impact = economicImpact(impact, data, cfg)

	case tendomain.EventProsperityBoom, tendomain.EventMerchantArrival:
		impact = economicImpact(impact, data, cfg)

	case tendomain.EventPoliticalChange, tendomain.EventRegimeChange, tendomain.EventCoup:
		impact = politicalImpact(impact, data, cfg)

	case tendomain.EventSocialUnrest, tendomain.EventProtest, tendomain.EventRiot, tendomain.EventRebellion:
		impact = unrestImpact(impact, data, cfg)

	case tendomain.EventDiplomaticVisit, tendomain.EventTreatySigned, tendomain.EventAllianceFormed:
		impact = diplomacyImpact(impact, data, cfg)

	default:
		if sev, ok := floatField(data, "severity"); ok {
			impact *= sev
		}
	}

	return impact
}

func combatImpact(base float64, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := base
	if boolField(data, "lethal") {
		impact += cfg.Modifiers["lethal_modifier"]
	}
	if boolField(data, "stealth") {
		impact += cfg.Modifiers["stealth_modifier"]
	}
	if defeated, ok := floatField(data, "enemies_defeated"); ok {
		impact *= minFloat(2.0, 1.0+0.2*(defeated-1))
	}
	if boolField(data, "siege") {
		impact += cfg.Modifiers["siege_modifier"]
	}
	return impact
}

func deathImpact(base float64, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := base
	if boolField(data, "important") {
		impact *= multiplierOr(cfg.Modifiers["important_npc_modifier"], 2.0)
	}
	if boolField(data, "civilian") {
		impact *= multiplierOr(cfg.Modifiers["civilian_modifier"], 1.5)
	}
	if count, ok := floatField(data, "casualty_count"); ok && count > 1 {
		impact *= minFloat(3.0, 1.0+0.1*(count-1))
	}
	return impact
}

// severityScaledImpact implements the disaster-group rule impact := baseImpact
// * data.severity. A missing severity leaves the base impact unscaled.
func severityScaledImpact(base float64, data map[string]interface{}) float64 {
	severity, ok := floatField(data, "severity")
	if !ok {
		return base
	}
	return base * severity
}

func celebrationImpact(base float64, data map[string]interface{}) float64 {
	successLevel, ok := floatField(data, "success_level")
	if !ok {
		successLevel = 1.0
	}
	return -absFloat(base) * successLevel
}

func magicalAccidentImpact(base float64, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := base
	if boolField(data, "beneficial") {
		impact += cfg.Modifiers["beneficial_modifier"]
	}
	if boolField(data, "harmful") {
		impact += cfg.Modifiers["harmful_modifier"]
	}
	return impact
}

func economicImpact(base float64, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := base
	if boolField(data, "prosperity") {
		impact += cfg.Modifiers["prosperity_modifier"]
	}
	if boolField(data, "recession") {
		impact += cfg.Modifiers["recession_modifier"]
	}
	return impact
}

func politicalImpact(base float64, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := base
	if boolField(data, "regime_change") {
		impact += cfg.Modifiers["regime_change_modifier"]
	}
	if boolField(data, "peaceful_transition") {
		impact += cfg.Modifiers["peaceful_transition_modifier"]
	}
	return impact
}

func unrestImpact(base float64, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := base
	if boolField(data, "riot") {
		impact += cfg.Modifiers["riot_modifier"]
	}
	return impact
}

func diplomacyImpact(base float64, data map[string]interface{}, cfg tenconfig.EventImpactConfig) float64 {
	impact := base
	if boolField(data, "treaty") {
		impact += cfg.Modifiers["treaty_modifier"]
	}
	return impact
}

func boolField(data map[string]interface{}, key string) bool {
	v, ok := data[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func floatField(data map[string]interface{}, key string) (float64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absFloat(a float64) float64 {
	if a < 0 {
		return -a
	}
	return a
}

func multiplierOr(configured, fallback float64) float64 {
	if configured == 0 {
		return fallback
	}
	return configured
}
