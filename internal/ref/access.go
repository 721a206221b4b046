package ref

import "fmt"

// Access is the purpose of a query. It decides which version or
// access-override record is selected for an entity.
type Access string

const (
	// Read is used when resolving or browsing existing entities.
	Read Access = "read"

	// Write is used when publishing.
	Write Access = "write"

	// ManagerDriven is used when the manager chooses where data goes.
	ManagerDriven Access = "managerDriven"

	// CreateRelated is used when publishing an entity related to another.
	CreateRelated Access = "createRelated"

	// Required is used for queries the host cannot proceed without.
	Required Access = "required"
)

// AllAccess lists every access mode in declaration order.
var AllAccess = []Access{Read, Write, ManagerDriven, CreateRelated, Required}

// ParseAccess converts the document spelling of an access mode.
func ParseAccess(s string) (Access, error) {
	for _, a := range AllAccess {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown access mode %q", s)
}

// IsRead reports whether this is a read-like access (read or required).
func (a Access) IsRead() bool {
	return a == Read || a == Required
}

// IsWrite reports whether this is a write-like access.
func (a Access) IsWrite() bool {
	return a == Write || a == ManagerDriven || a == CreateRelated
}

// PolicyAccess maps an access mode onto the two policy scopes used by
// library documents: "read" or "write".
func (a Access) PolicyAccess() Access {
	if a.IsWrite() {
		return Write
	}
	return Read
}

func (a Access) String() string {
	return string(a)
}
