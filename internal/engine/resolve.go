package engine

import (
	"slices"
	"strconv"

	"github.com/roach88/bal/internal/library"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/subst"
	"github.com/roach88/bal/internal/trait"
)

// Resolved is a fully materialized entity. It is computed per call and
// never cached.
type Resolved struct {
	Locator ref.Locator

	// Tag is the concrete version that answered. It is nil when an access
	// override answered a request that named no version.
	Tag *int

	// Traits has every string property substituted.
	Traits trait.Data

	Relations []library.Relation
}

// TraitSet returns the ids of the resolved traits.
func (r *Resolved) TraitSet() trait.Set {
	return r.Traits.TraitSet()
}

// SpecifiedTag is the version the caller asked for, or "latest".
func (r *Resolved) SpecifiedTag() string {
	if r.Locator.Version == nil {
		return latestTag
	}
	return strconv.Itoa(*r.Locator.Version)
}

// StableTag is the concrete version as a string, or "" when unknown.
func (r *Resolved) StableTag() string {
	if r.Tag == nil {
		return ""
	}
	return strconv.Itoa(*r.Tag)
}

// TraitsFor returns the subset of traits named in set. Requested traits
// the entity does not have are omitted. When the version trait is
// requested, it is populated with the stable and specified tags.
func (r *Resolved) TraitsFor(set trait.Set) trait.Data {
	out := r.Traits.Filter(set)
	if set.Contains(TraitVersion) {
		out.Add(TraitVersion)
		if stable := r.StableTag(); stable != "" {
			out.Set(TraitVersion, PropStableTag, trait.String(stable))
		}
		out.Set(TraitVersion, PropSpecifiedTag, trait.String(r.SpecifiedTag()))
	}
	return out
}

// selectVersion picks the record answering loc:
//
//  1. an access override for loc.Access, paired with loc's own tag
//  2. nothing, if there are no versions
//  3. the explicitly requested version, if in range
//  4. the last version
//
// A nil record means "not found", including explicit nulls in the
// document.
func selectVersion(e *library.Entity, loc ref.Locator) (*library.Version, *int) {
	if override, ok := e.OverrideByAccess[loc.Access]; ok {
		return override, cloneTag(loc.Version)
	}

	if len(e.Versions) == 0 {
		return nil, nil
	}

	if loc.Version != nil {
		idx := *loc.Version - 1
		if idx < 0 || idx >= len(e.Versions) {
			return nil, nil
		}
		return e.Versions[idx], cloneTag(loc.Version)
	}

	latest := len(e.Versions)
	return e.Versions[latest-1], &latest
}

func cloneTag(tag *int) *int {
	if tag == nil {
		return nil
	}
	v := *tag
	return &v
}

// Resolve materializes the entity addressed by loc.
func (s *Snapshot) Resolve(loc ref.Locator) (*Resolved, error) {
	e, ok := s.lib.Entity(loc.Name)
	if !ok {
		return nil, newUnknownEntity(loc)
	}

	version, tag := selectVersion(e, loc)
	if version == nil {
		return nil, newInvalidEntityVersion(loc)
	}
	if version.Traits == nil {
		return nil, newInaccessibleEntity(loc)
	}

	return &Resolved{
		Locator:   loc,
		Tag:       tag,
		Traits:    subst.Expand(version.Traits, s.lib.Variables, s.env),
		Relations: slices.Clone(e.Relations),
	}, nil
}

// Exists reports whether loc names an entity whose selected record is
// present. An inaccessible record still exists.
func (s *Snapshot) Exists(loc ref.Locator) bool {
	e, ok := s.lib.Entity(loc.Name)
	if !ok {
		return false
	}
	version, _ := selectVersion(e, loc)
	return version != nil
}

// EntityTraits reports the trait set of the entity for loc.Access.
//
// For read-like access this is the resolved trait set plus the version
// trait. For write-like access it is the set a publish must keep: the
// current trait ids, or unrestricted (second result true) when the entity
// has nothing published yet.
func (s *Snapshot) EntityTraits(loc ref.Locator) (trait.Set, bool, error) {
	if loc.Access.IsWrite() {
		e, ok := s.lib.Entity(loc.Name)
		if !ok {
			return nil, true, nil
		}
		version, _ := selectVersion(e, loc)
		if version == nil {
			return nil, true, nil
		}
		if version.Traits == nil {
			return nil, false, newInaccessibleEntity(loc)
		}
		return version.Traits.TraitSet(), false, nil
	}

	resolved, err := s.Resolve(loc)
	if err != nil {
		return nil, false, err
	}
	return resolved.TraitSet().Union(trait.NewSet(TraitVersion)), false, nil
}
