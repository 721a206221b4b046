package library

import (
	"maps"
	"slices"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

// Implicit variable names injected at load time.
const (
	VarLibraryPath   = "bal_library_path"
	VarLibraryDir    = "bal_library_dir"
	VarLibraryDirURL = "bal_library_dir_url"
)

// Library is the root aggregate of a loaded document.
type Library struct {
	Entities         map[string]*Entity
	ManagementPolicy map[ref.Access]PolicyRules
	DefaultEntities  map[ref.Access][]DefaultEntity
	Variables        map[string]string

	// Capabilities narrows what the boundary advertises. Nil means the
	// document did not declare any and everything is supported.
	Capabilities []string

	// Path is the absolute source path, or empty for inline documents.
	Path string
}

// Entity is the stored record for one name.
type Entity struct {
	// Versions is 1-indexed by tag: Versions[tag-1]. A nil entry is an
	// explicit null in the document and never resolves.
	Versions []*Version `json:"versions"`

	Relations []Relation `json:"relations,omitempty"`

	// OverrideByAccess bypasses version selection entirely for the given
	// access mode. A present key with a nil value never resolves.
	OverrideByAccess map[ref.Access]*Version `json:"overrideByAccess,omitempty"`
}

// Version holds the trait data of one published version.
type Version struct {
	// Traits is nil when the document marks the version inaccessible.
	Traits trait.Data `json:"traits"`
}

// Relation is an unversioned edge from an entity to other entities.
type Relation struct {
	Traits   trait.Data `json:"traits"`
	Entities []string   `json:"entities"`
	Access   ref.Access `json:"access,omitempty"`
}

// PolicyRules is the management policy for one access mode.
type PolicyRules struct {
	Default            trait.Data       `json:"default,omitempty"`
	OverrideByTraitSet []PolicyOverride `json:"overrideByTraitSet,omitempty"`
}

// PolicyOverride applies Policy to queries for exactly TraitSet.
type PolicyOverride struct {
	TraitSet trait.Set  `json:"traitSet"`
	Policy   trait.Data `json:"policy"`
}

// DefaultEntity names the entity to use for a trait set.
type DefaultEntity struct {
	Traits trait.Set `json:"traits"`
	Entity string    `json:"entity"`
}

// Empty returns a library with no entities and empty implicit variables.
func Empty() *Library {
	lib := &Library{
		Entities:         map[string]*Entity{},
		ManagementPolicy: map[ref.Access]PolicyRules{},
		DefaultEntities:  map[ref.Access][]DefaultEntity{},
	}
	lib.Variables = implicitVariables("")
	return lib
}

// Entity returns the record for name.
func (l *Library) Entity(name string) (*Entity, bool) {
	e, ok := l.Entities[name]
	return e, ok
}

// Names returns all entity names in sorted order.
func (l *Library) Names() []string {
	return slices.Sorted(maps.Keys(l.Entities))
}

// EnsureEntity returns the record for name, creating one with no versions
// if needed.
func (l *Library) EnsureEntity(name string) *Entity {
	if e, ok := l.Entities[name]; ok {
		return e
	}
	e := &Entity{Versions: []*Version{}}
	l.Entities[name] = e
	return e
}

// AppendVersion adds a new version holding traits and returns it along
// with its 1-indexed tag. Identical data is still a new version.
func (l *Library) AppendVersion(name string, traits trait.Data) (*Version, int) {
	e := l.EnsureEntity(name)
	v := &Version{Traits: traits}
	e.Versions = append(e.Versions, v)
	return v, len(e.Versions)
}

// CloneForWrite returns a copy of l that is safe to mutate for the named
// entity. The entity map and the named entity's version list are copied;
// every other entity is shared with l.
func (l *Library) CloneForWrite(name string) *Library {
	cp := *l
	cp.Entities = maps.Clone(l.Entities)
	if cp.Entities == nil {
		cp.Entities = map[string]*Entity{}
	}
	if e, ok := l.Entities[name]; ok {
		ec := *e
		ec.Versions = slices.Clone(e.Versions)
		cp.Entities[name] = &ec
	}
	return &cp
}

// LatestTag returns the highest version tag, or 0 when there are none.
func (e *Entity) LatestTag() int {
	return len(e.Versions)
}

// RelationAccess returns the access mode the relation answers to.
func (r Relation) RelationAccess() ref.Access {
	if r.Access == "" {
		return ref.Read
	}
	return r.Access
}
