package engine

import (
	"strconv"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// RelationshipKind is the shape of a relationship query.
type RelationshipKind int

const (
	// KindGeneric matches stored relations by pattern.
	KindGeneric RelationshipKind = iota

	// KindEntityVersions lists every version, plus an always-latest locator.
	KindEntityVersions

	// KindStableEntityVersions lists every concrete version.
	KindStableEntityVersions

	// KindStableReference pins a locator to a concrete version.
	KindStableReference
)

func (k RelationshipKind) String() string {
	switch k {
	case KindEntityVersions:
		return "entityVersions"
	case KindStableEntityVersions:
		return "stableEntityVersions"
	case KindStableReference:
		return "stableReference"
	default:
		return "generic"
	}
}

var (
	entityVersionsShape       = trait.NewSet(TraitRelationship, TraitVersion)
	stableEntityVersionsShape = trait.NewSet(TraitRelationship, TraitVersion, TraitStable)
	stableReferenceShape      = trait.NewSet(TraitRelationship, TraitStable)
)

// Classify maps a relationship pattern to its kind by exact trait set.
func Classify(pattern trait.Data) RelationshipKind {
	set := pattern.TraitSet()
	switch {
	case set.Equal(entityVersionsShape):
		return KindEntityVersions
	case set.Equal(stableEntityVersionsShape):
		return KindStableEntityVersions
	case set.Equal(stableReferenceShape):
		return KindStableReference
	default:
		return KindGeneric
	}
}

// Related returns the locators related to loc by pattern, in stored
// order. resultFilter, when non-empty, drops generic results whose trait
// set does not contain it.
func (s *Snapshot) Related(loc ref.Locator, pattern trait.Data, resultFilter trait.Set) ([]ref.Locator, error) {
	switch kind := Classify(pattern); kind {
	case KindEntityVersions, KindStableEntityVersions:
		return s.versions(loc, pattern, kind == KindEntityVersions)
	case KindStableReference:
		return s.stableReference(loc)
	default:
		return s.related(loc, pattern, resultFilter)
	}
}

// versions lists the entity's versions newest first. A specifiedTag in
// the pattern narrows the list to at most one concrete version and drops
// the always-latest locator.
func (s *Snapshot) versions(loc ref.Locator, pattern trait.Data, includeLatest bool) ([]ref.Locator, error) {
	e, ok := s.lib.Entity(loc.Name)
	if !ok {
		return nil, newUnknownEntity(loc)
	}

	base := loc.Latest()
	concrete := make([]ref.Locator, 0, len(e.Versions))
	for tag := len(e.Versions); tag >= 1; tag-- {
		concrete = append(concrete, base.WithVersion(tag))
	}

	if specified, ok := specifiedTag(pattern); ok {
		if specified == latestTag {
			if len(concrete) == 0 {
				return []ref.Locator{}, nil
			}
			return concrete[:1], nil
		}
		want, err := strconv.Atoi(specified)
		if err != nil {
			return []ref.Locator{}, nil
		}
		for _, l := range concrete {
			if l.VersionTag() == want {
				return []ref.Locator{l}, nil
			}
		}
		return []ref.Locator{}, nil
	}

	if !includeLatest {
		return concrete, nil
	}
	return append([]ref.Locator{base}, concrete...), nil
}

// specifiedTag reads the requested tag from a versions pattern. Integer
// properties are accepted as well as strings.
func specifiedTag(pattern trait.Data) (string, bool) {
	v, ok := pattern.Get(TraitVersion, PropSpecifiedTag)
	if !ok {
		return "", false
	}
	return trait.Format(v), true
}

// stableReference returns loc unchanged when it names a version, else loc
// pinned to the latest concrete version.
func (s *Snapshot) stableReference(loc ref.Locator) ([]ref.Locator, error) {
	e, ok := s.lib.Entity(loc.Name)
	if !ok {
		return nil, newUnknownEntity(loc)
	}
	if loc.Version != nil {
		return []ref.Locator{loc}, nil
	}
	latest := e.LatestTag()
	if latest == 0 {
		return nil, newInvalidEntityVersion(loc)
	}
	return []ref.Locator{loc.WithVersion(latest)}, nil
}

// related walks the stored relations of the resolved source entity.
// Every related name is resolved; a dangling name is an error, never
// skipped.
func (s *Snapshot) related(loc ref.Locator, pattern trait.Data, resultFilter trait.Set) ([]ref.Locator, error) {
	source, err := s.Resolve(loc)
	if err != nil {
		return nil, err
	}

	results := []ref.Locator{}
	for _, rel := range source.Relations {
		if rel.RelationAccess() != loc.Access {
			continue
		}
		if !rel.Traits.Matches(pattern) {
			continue
		}
		for _, name := range rel.Entities {
			target := ref.NewLocator(name, loc.Access)
			resolved, err := s.Resolve(target)
			if err != nil {
				return nil, err
			}
			if len(resultFilter) > 0 && !resolved.TraitSet().ContainsAll(resultFilter) {
				continue
			}
			results = append(results, target)
		}
	}
	return results, nil
}
