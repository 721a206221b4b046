package ref

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultScheme is the URL scheme used for entity references unless
// configured otherwise.
const DefaultScheme = "bal"

// latestTag is the query value meaning "no specific version".
const latestTag = "latest"

// versionParam is the query parameter holding the version tag.
const versionParam = "v"

var validScheme = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// MalformedError reports a reference string that failed structural
// parsing. It is always a per-element error.
type MalformedError struct {
	Reference string
	Reason    string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("Malformed BAL reference: %s '%s'", e.Reason, e.Reference)
}

// IsMalformed reports whether err is (or wraps) a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// Codec converts between reference strings and Locators for one scheme.
//
// Reference format:
//
//	<scheme>:///<entity-name>[?v=<version>|latest]
type Codec struct {
	scheme string
	prefix string
}

// NewCodec creates a codec for the given scheme. The scheme must be
// non-empty and contain only ASCII letters, digits and hyphens.
func NewCodec(scheme string) (*Codec, error) {
	if err := ValidateScheme(scheme); err != nil {
		return nil, err
	}
	return &Codec{scheme: scheme, prefix: scheme + ":///"}, nil
}

// MustCodec is NewCodec that panics on an invalid scheme.
// Intended for package-level defaults and tests.
func MustCodec(scheme string) *Codec {
	c, err := NewCodec(scheme)
	if err != nil {
		panic(err)
	}
	return c
}

// ValidateScheme checks a URL scheme token.
func ValidateScheme(scheme string) error {
	if !validScheme.MatchString(scheme) {
		return fmt.Errorf("invalid entity reference URL scheme %q: must be non-empty and contain only alphanumerics and hyphens", scheme)
	}
	return nil
}

// Scheme returns the configured scheme.
func (c *Codec) Scheme() string {
	return c.scheme
}

// Prefix returns the string every reference of this codec starts with.
func (c *Codec) Prefix() string {
	return c.prefix
}

// IsReference reports whether s looks like a reference for this codec.
// It does not check that s is well formed.
func (c *Codec) IsReference(s string) bool {
	return strings.HasPrefix(s, c.prefix)
}

// Parse decomposes a reference string into a Locator for the given access.
//
// The scheme must be the codec's, compared case-insensitively. The path
// (minus its leading separator) is the entity name and must not be empty.
// The optional "v" query parameter selects a version; when it is repeated
// the last occurrence wins.
func (c *Codec) Parse(reference string, access Access) (Locator, error) {
	u, err := url.Parse(reference)
	if err != nil {
		return Locator{}, &MalformedError{Reference: reference, Reason: "Invalid URI"}
	}

	if !strings.EqualFold(u.Scheme, c.scheme) {
		return Locator{}, &MalformedError{Reference: reference, Reason: fmt.Sprintf("Scheme must be '%s'", c.scheme)}
	}

	if len(u.Path) <= 1 {
		return Locator{}, &MalformedError{Reference: reference, Reason: "Missing entity name in path component"}
	}
	if !strings.HasPrefix(u.Path, "/") {
		return Locator{}, &MalformedError{Reference: reference, Reason: "Entity name must follow an absolute path"}
	}

	loc := Locator{Name: u.Path[1:], Access: access}

	values := u.Query()[versionParam]
	if len(values) == 0 {
		return loc, nil
	}

	tag := values[len(values)-1]
	if tag == latestTag {
		return loc, nil
	}

	v, err := strconv.Atoi(tag)
	if err != nil {
		return Locator{}, &MalformedError{Reference: reference, Reason: "Version query parameter 'v' must be an integer"}
	}
	if v < 1 {
		return Locator{}, &MalformedError{Reference: reference, Reason: "Version query parameter 'v' must be greater than 1"}
	}

	return loc.WithVersion(v), nil
}

// Format builds the reference string for a locator. Unversioned locators
// have no query string and so always address the latest version.
func (c *Codec) Format(loc Locator) string {
	var b strings.Builder
	b.WriteString(c.prefix)
	b.WriteString(escapeName(loc.Name))
	if loc.Version != nil {
		b.WriteString("?")
		b.WriteString(versionParam)
		b.WriteString("=")
		b.WriteString(strconv.Itoa(*loc.Version))
	}
	return b.String()
}

// escapeName percent-encodes only the characters that would otherwise
// change how the reference parses. Spaces and non-ASCII text stay raw.
func escapeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch == '%' || ch == '?' || ch == '#' || ch < 0x20 || ch == 0x7f:
			fmt.Fprintf(&b, "%%%02X", ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
