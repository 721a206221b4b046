package manager

import (
	"errors"
	"fmt"
)

// Capability names a family of calls the manager can answer.
type Capability string

const (
	CapEntityReferenceIdentification Capability = "entityReferenceIdentification"
	CapManagementPolicyQueries       Capability = "managementPolicyQueries"
	CapEntityTraitIntrospection      Capability = "entityTraitIntrospection"
	CapResolution                    Capability = "resolution"
	CapPublishing                    Capability = "publishing"
	CapRelationshipQueries           Capability = "relationshipQueries"
	CapExistenceQueries              Capability = "existenceQueries"
	CapDefaultEntityReferences       Capability = "defaultEntityReferences"
)

// AllCapabilities lists everything the manager supports.
var AllCapabilities = []Capability{
	CapEntityReferenceIdentification,
	CapManagementPolicyQueries,
	CapEntityTraitIntrospection,
	CapResolution,
	CapPublishing,
	CapRelationshipQueries,
	CapExistenceQueries,
	CapDefaultEntityReferences,
}

// ErrCapabilityNotSupported is returned, wrapped with the capability name,
// for calls the loaded library has opted out of.
var ErrCapabilityNotSupported = errors.New("capability not supported")

// capabilitySet resolves a library's declared capability list. A nil list
// means all capabilities.
func capabilitySet(declared []string) (map[Capability]bool, error) {
	caps := make(map[Capability]bool, len(AllCapabilities))
	if declared == nil {
		for _, c := range AllCapabilities {
			caps[c] = true
		}
		return caps, nil
	}

	known := make(map[Capability]bool, len(AllCapabilities))
	for _, c := range AllCapabilities {
		known[c] = true
	}
	for _, name := range declared {
		c := Capability(name)
		if !known[c] {
			return nil, fmt.Errorf("library declares unknown capability %q", name)
		}
		caps[c] = true
	}
	return caps, nil
}

func notSupported(c Capability) error {
	return fmt.Errorf("%w: %s", ErrCapabilityNotSupported, c)
}
