package engine

import (
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// ManagementPolicy returns the policy for set under access.
//
// Rules declared for the exact access mode are consulted first, then
// those of its policy scope (read or write). Within one set of rules, an
// override whose trait set equals set exactly wins over the default.
// Exact rules that neither override set nor declare a default fall
// through to the scope rules. Nothing applicable is a *PolicyConfigError.
func (s *Snapshot) ManagementPolicy(set trait.Set, access ref.Access) (trait.Data, error) {
	for _, a := range policyAccesses(access) {
		rules, ok := s.lib.ManagementPolicy[a]
		if !ok {
			continue
		}
		for _, override := range rules.OverrideByTraitSet {
			if override.TraitSet.Equal(set) {
				return override.Policy.Clone(), nil
			}
		}
		if rules.Default != nil {
			return rules.Default.Clone(), nil
		}
	}
	return nil, &PolicyConfigError{Access: access.PolicyAccess()}
}

func policyAccesses(access ref.Access) []ref.Access {
	if scope := access.PolicyAccess(); scope != access {
		return []ref.Access{access, scope}
	}
	return []ref.Access{access}
}

// IsManaged reports whether the policy for set under access marks it as
// managed.
func (s *Snapshot) IsManaged(set trait.Set, access ref.Access) (bool, error) {
	policy, err := s.ManagementPolicy(set, access)
	if err != nil {
		return false, err
	}
	return policy.Has(TraitManaged), nil
}

// DefaultEntity returns the first default entity declared for exactly set
// under access.
func (s *Snapshot) DefaultEntity(set trait.Set, access ref.Access) (ref.Locator, error) {
	for _, d := range s.lib.DefaultEntities[access] {
		if d.Traits.Equal(set) {
			return ref.NewLocator(d.Entity, access), nil
		}
	}
	return ref.Locator{}, newUnknownTraitSet(set)
}

// ValidatePublish checks that traits may be published to loc: the trait
// set must be managed for writing and, when the entity already has a
// published version, must include every trait that version carries.
//
// A broken policy table is returned as *PolicyConfigError, everything
// else as a per-element *Error.
func (s *Snapshot) ValidatePublish(loc ref.Locator, traits trait.Data) error {
	set := traits.TraitSet()
	writeLoc := loc.WithAccess(ref.Write)

	managed, err := s.IsManaged(set, ref.Write)
	if err != nil {
		return err
	}
	if !managed {
		return newInvalidTraitSetForPublish(loc, set, "trait set is not managed for writing")
	}

	required, unrestricted, err := s.EntityTraits(writeLoc)
	if err != nil {
		return err
	}
	if unrestricted {
		return nil
	}

	var missing []string
	for _, id := range required {
		if !set.Contains(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return newInvalidTraitSetForPublish(loc, set,
			"missing traits "+trait.NewSet(missing...).String()+" held by the existing entity")
	}
	return nil
}
