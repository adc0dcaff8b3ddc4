package tendomain

import "time"

// EventKind is the closed taxonomy of environmental tension events. Unknown
// strings from external callers are parsed into EventOther; the original
// name is preserved in TensionEvent.Data["_raw_type"] by the boundary parser
// (see ParseEventKind).
type EventKind string

// Combat group.
const (
	EventPlayerCombat  EventKind = "player_combat"
	EventNPCCombat     EventKind = "npc_combat"
	EventFactionWarfare EventKind = "faction_warfare"
	EventSiegeWarfare  EventKind = "siege_warfare"
	EventSkirmish      EventKind = "skirmish"
	EventAssassination EventKind = "assassination"
	EventDuel          EventKind = "duel"
)

// Death/violence group.
const (
	EventNPCDeath       EventKind = "npc_death"
	EventMassCasualties EventKind = "mass_casualties"
	EventExecution      EventKind = "execution"
	EventMurder         EventKind = "murder"
	EventSuicide        EventKind = "suicide"
)

// Environmental group.
const (
	EventEnvironmentalDisaster EventKind = "environmental_disaster"
	EventNaturalDisaster       EventKind = "natural_disaster"
	EventPlagueOutbreak        EventKind = "plague_outbreak"
	EventFamine                EventKind = "famine"
	EventFireOutbreak          EventKind = "fire_outbreak"
	EventFlood                 EventKind = "flood"
	EventEarthquake            EventKind = "earthquake"
	EventMagicalCatastrophe    EventKind = "magical_catastrophe"
)

// Political group.
const (
	EventPoliticalChange  EventKind = "political_change"
	EventRegimeChange     EventKind = "regime_change"
	EventRebellion        EventKind = "rebellion"
	EventCoup             EventKind = "coup"
	EventElection         EventKind = "election"
	EventPolicyChange     EventKind = "policy_change"
	EventTaxationChange   EventKind = "taxation_change"
	EventLawEnforcement   EventKind = "law_enforcement"
	EventCorruptionExposed EventKind = "corruption_exposed"
)

// Economic group.
const (
	EventEconomicCrisis  EventKind = "economic_crisis"
	EventMarketCrash     EventKind = "market_crash"
	EventTradeEmbargo    EventKind = "trade_embargo"
	EventResourceShortage EventKind = "resource_shortage"
	EventInflation       EventKind = "inflation"
	EventUnemployment    EventKind = "unemployment"
	EventProsperityBoom  EventKind = "prosperity_boom"
	EventMerchantArrival EventKind = "merchant_arrival"
)

// Social group.
const (
	EventFestival          EventKind = "festival"
	EventReligiousCeremony EventKind = "religious_ceremony"
	EventSocialUnrest      EventKind = "social_unrest"
	EventProtest           EventKind = "protest"
	EventRiot              EventKind = "riot"
	EventCulturalEvent     EventKind = "cultural_event"
	EventWedding           EventKind = "wedding"
	EventFuneral           EventKind = "funeral"
)

// Criminal group.
const (
	EventTheft           EventKind = "theft"
	EventBurglary        EventKind = "burglary"
	EventKidnapping      EventKind = "kidnapping"
	EventSmuggling       EventKind = "smuggling"
	EventBanditry        EventKind = "banditry"
	EventPiracy          EventKind = "piracy"
	EventDrugTrade       EventKind = "drug_trade"
	EventOrganizedCrime  EventKind = "organized_crime"
)

// Religious group.
const (
	EventReligiousConflict     EventKind = "religious_conflict"
	EventHeresy                EventKind = "heresy"
	EventDivineIntervention    EventKind = "divine_intervention"
	EventTempleDesecration     EventKind = "temple_desecration"
	EventPilgrimage            EventKind = "pilgrimage"
	EventReligiousPersecution  EventKind = "religious_persecution"
)

// Magical group.
const (
	EventMagicalAccident      EventKind = "magical_accident"
	EventSpellDisaster        EventKind = "spell_disaster"
	EventArtifactDiscovery    EventKind = "artifact_discovery"
	EventMagicalResearch      EventKind = "magical_research"
	EventSummoningGoneWrong   EventKind = "summoning_gone_wrong"
	EventPlanarIncursion      EventKind = "planar_incursion"
)

// Military group.
const (
	EventMilitaryDeployment     EventKind = "military_deployment"
	EventMilitaryRetreat        EventKind = "military_retreat"
	EventFortificationBuilt     EventKind = "fortification_built"
	EventFortificationDestroyed EventKind = "fortification_destroyed"
	EventWeaponsCacheFound      EventKind = "weapons_cache_found"
	EventDesertion              EventKind = "desertion"
)

// Diplomatic group.
const (
	EventDiplomaticVisit     EventKind = "diplomatic_visit"
	EventTreatySigned        EventKind = "treaty_signed"
	EventAllianceFormed      EventKind = "alliance_formed"
	EventAllianceBroken      EventKind = "alliance_broken"
	EventDiplomaticIncident  EventKind = "diplomatic_incident"
	EventHostageSituation    EventKind = "hostage_situation"
)

// Information group.
const (
	EventRumorsSpread        EventKind = "rumors_spread"
	EventPropaganda          EventKind = "propaganda"
	EventInformationLeak     EventKind = "information_leak"
	EventEspionageDiscovered EventKind = "espionage_discovered"
	EventSecretRevealed      EventKind = "secret_revealed"
)

// Infrastructure group.
const (
	EventConstructionProject   EventKind = "construction_project"
	EventInfrastructureDamage  EventKind = "infrastructure_damage"
	EventBridgeCollapse        EventKind = "bridge_collapse"
	EventRoadBlockade          EventKind = "road_blockade"
	EventSupplyLineCut         EventKind = "supply_line_cut"
)

// EventOther is the explicit fallback for any string the closed taxonomy does
// not recognize; the raw name is preserved by the boundary parser.
const EventOther EventKind = "other"

// eventKindGroup labels each known kind with its taxonomy group, used only
// for metrics/log labeling — the impact calculator never branches on it.
var eventKindGroup = map[EventKind]string{
	EventPlayerCombat: "combat", EventNPCCombat: "combat", EventFactionWarfare: "combat",
	EventSiegeWarfare: "combat", EventSkirmish: "combat", EventAssassination: "combat", EventDuel: "combat",

	EventNPCDeath: "death", EventMassCasualties: "death", EventExecution: "death",
	EventMurder: "death", EventSuicide: "death",

	EventEnvironmentalDisaster: "environmental", EventNaturalDisaster: "environmental",
	EventPlagueOutbreak: "environmental", EventFamine: "environmental", EventFireOutbreak: "environmental",
	EventFlood: "environmental", EventEarthquake: "environmental", EventMagicalCatastrophe: "environmental",

	EventPoliticalChange: "political", EventRegimeChange: "political", EventRebellion: "political",
	EventCoup: "political", EventElection: "political", EventPolicyChange: "political",
	EventTaxationChange: "political", EventLawEnforcement: "political", EventCorruptionExposed: "political",

	EventEconomicCrisis: "economic", EventMarketCrash: "economic", EventTradeEmbargo: "economic",
	EventResourceShortage: "economic", EventInflation: "economic", EventUnemployment: "economic",
	EventProsperityBoom: "economic", EventMerchantArrival: "economic",

	EventFestival: "social", EventReligiousCeremony: "social", EventSocialUnrest: "social",
	EventProtest: "social", EventRiot: "social", EventCulturalEvent: "social",
	EventWedding: "social", EventFuneral: "social",

	EventTheft: "criminal", EventBurglary: "criminal", EventKidnapping: "criminal",
	EventSmuggling: "criminal", EventBanditry: "criminal", EventPiracy: "criminal",
	EventDrugTrade: "criminal", EventOrganizedCrime: "criminal",

	EventReligiousConflict: "religious", EventHeresy: "religious", EventDivineIntervention: "religious",
	EventTempleDesecration: "religious", EventPilgrimage: "religious", EventReligiousPersecution: "religious",

	EventMagicalAccident: "magical", EventSpellDisaster: "magical", EventArtifactDiscovery: "magical",
	EventMagicalResearch: "magical", EventSummoningGoneWrong: "magical", EventPlanarIncursion: "magical",

	EventMilitaryDeployment: "military", EventMilitaryRetreat: "military", EventFortificationBuilt: "military",
	EventFortificationDestroyed: "military", EventWeaponsCacheFound: "military", EventDesertion: "military",

	EventDiplomaticVisit: "diplomatic", EventTreatySigned: "diplomatic", EventAllianceFormed: "diplomatic",
	EventAllianceBroken: "diplomatic", EventDiplomaticIncident: "diplomatic", EventHostageSituation: "diplomatic",

	EventRumorsSpread: "information", EventPropaganda: "information", EventInformationLeak: "information",
	EventEspionageDiscovered: "information", EventSecretRevealed: "information",

	EventConstructionProject: "infrastructure", EventInfrastructureDamage: "infrastructure",
	EventBridgeCollapse: "infrastructure", EventRoadBlockade: "infrastructure", EventSupplyLineCut: "infrastructure",
}

// Group returns the taxonomy group for k, or "" if k is unknown/other.
func (k EventKind) Group() string {
	return eventKindGroup[k]
}

// ParseEventKind maps an external string to its EventKind, falling back to
// EventOther for anything the closed taxonomy doesn't recognize.
func ParseEventKind(raw string) EventKind {
	k := EventKind(raw)
	if _, known := eventKindGroup[k]; known {
		return k
	}
	return EventOther
}

// TensionEvent is the input record that mutates environmental tension.
type TensionEvent struct {
	EventID       string
	EventType     EventKind
	RegionID      string
	POIID         string
	Timestamp     time.Time
	Data          map[string]interface{}
	Severity      float64
	DurationHours *float64
}

// Location returns the event's LocationKey.
func (e TensionEvent) Location() LocationKey {
	return LocationKey{RegionID: e.RegionID, POIID: e.POIID}
}
