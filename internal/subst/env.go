package subst

import "os"

// Environment supplies fallback values for placeholders that the library
// does not define.
type Environment interface {
	Lookup(key string) (string, bool)
}

// OSEnvironment reads the process environment.
type OSEnvironment struct{}

// Lookup implements Environment.
func (OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnvironment is a fixed environment, mostly for tests.
type MapEnvironment map[string]string

// Lookup implements Environment.
func (m MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// emptyEnvironment is used when callers pass a nil Environment.
type emptyEnvironment struct{}

func (emptyEnvironment) Lookup(string) (string, bool) { return "", false }
