package ref

import "fmt"

// Locator identifies a request target: an entity name, an optional
// version and the access mode of the query.
//
// A nil Version means "latest" unless an access override applies.
// Locators are values; use WithVersion/WithAccess to derive new ones.
type Locator struct {
	Name    string
	Version *int
	Access  Access
}

// NewLocator creates an unversioned locator.
func NewLocator(name string, access Access) Locator {
	return Locator{Name: name, Access: access}
}

// WithVersion returns a copy pinned to the given version tag.
func (l Locator) WithVersion(v int) Locator {
	l.Version = &v
	return l
}

// Latest returns a copy with no version pinned.
func (l Locator) Latest() Locator {
	l.Version = nil
	return l
}

// WithAccess returns a copy with a different access mode.
func (l Locator) WithAccess(a Access) Locator {
	l.Access = a
	return l
}

// IsLatest reports whether no version is pinned.
func (l Locator) IsLatest() bool {
	return l.Version == nil
}

// VersionTag returns the pinned version or 0 when unversioned.
func (l Locator) VersionTag() int {
	if l.Version == nil {
		return 0
	}
	return *l.Version
}

// Equal compares name, version and access.
func (l Locator) Equal(other Locator) bool {
	if l.Name != other.Name || l.Access != other.Access {
		return false
	}
	if l.Version == nil || other.Version == nil {
		return l.Version == nil && other.Version == nil
	}
	return *l.Version == *other.Version
}

func (l Locator) String() string {
	if l.Version == nil {
		return fmt.Sprintf("%s@latest (%s)", l.Name, l.Access)
	}
	return fmt.Sprintf("%s@%d (%s)", l.Name, *l.Version, l.Access)
}
