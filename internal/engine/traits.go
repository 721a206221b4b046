package engine

// Trait ids and property keys the engine interprets itself.
const (
	TraitRelationship = "openassetio-mediacreation:usage.Relationship"
	TraitVersion      = "openassetio-mediacreation:lifecycle.Version"
	TraitStable       = "openassetio-mediacreation:lifecycle.Stable"
	TraitManaged      = "openassetio-mediacreation:managementPolicy.Managed"

	// PropStableTag is the concrete version a locator resolved to.
	PropStableTag = "stableTag"

	// PropSpecifiedTag is the version the caller asked for, or "latest".
	PropSpecifiedTag = "specifiedTag"

	latestTag = "latest"
)
