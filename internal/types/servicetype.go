package types

// Telecom service types known to the engine. Rates and categories reference
// these as free-form strings so tenants can add their own; the constants
// below are the ones the built-in federal catalog cares about.
const (
	ServiceTypeLocal        = "local"
	ServiceTypeLongDistance = "long_distance"
	ServiceTypeVoIPFixed    = "voip_fixed"
	ServiceTypeVoIPNomadic  = "voip_nomadic"
	ServiceTypeTollFree     = "toll_free"
	ServiceTypePrivateLine  = "private_line"
	ServiceTypeEquipment    = "equipment"
	ServiceTypeInternet     = "internet"
)

// FederalExciseServiceTypes enumerates the service types subject to the
// federal excise tax.
var FederalExciseServiceTypes = []string{
	ServiceTypeLocal,
	ServiceTypeLongDistance,
	ServiceTypeVoIPFixed,
	ServiceTypeVoIPNomadic,
}

// USFServiceTypes enumerates the service types subject to the Universal
// Service Fund contribution. Broader than the excise set.
var USFServiceTypes = []string{
	ServiceTypeLocal,
	ServiceTypeLongDistance,
	ServiceTypeVoIPFixed,
	ServiceTypeVoIPNomadic,
	ServiceTypeTollFree,
	ServiceTypePrivateLine,
}
