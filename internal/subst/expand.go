package subst

import (
	"strings"

	"github.com/roach88/bal/internal/trait"
)

// Expand returns a deep copy of data with placeholders in every string
// property replaced, then file URLs normalized. Non-string values are
// copied unchanged. vars takes precedence over env; env may be nil.
func Expand(data trait.Data, vars map[string]string, env Environment) trait.Data {
	if env == nil {
		env = emptyEnvironment{}
	}
	lookup := func(name string) (string, bool) {
		if v, ok := vars[name]; ok {
			return v, true
		}
		return env.Lookup(name)
	}

	out := make(trait.Data, len(data))
	for id, props := range data {
		if props == nil {
			out[id] = trait.Properties{}
			continue
		}
		cp := make(trait.Properties, len(props))
		for key, value := range props {
			if s, ok := value.(trait.String); ok {
				expanded := NormalizeFileURL(Substitute(string(s), lookup))
				cp[key] = trait.String(expanded)
				continue
			}
			cp[key] = value
		}
		out[id] = cp
	}
	return out
}

// Substitute replaces $name and ${name} tokens in s using lookup.
//
// Names are [A-Za-z_][A-Za-z0-9_]*. Tokens whose name lookup does not
// resolve, and lone or malformed $ sequences, are copied verbatim.
func Substitute(s string, lookup func(string) (string, bool)) string {
	if strings.IndexByte(s, '$') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++
			continue
		}

		rest := s[i+1:]
		switch {
		case strings.HasPrefix(rest, "$"):
			b.WriteByte('$')
			i += 2

		case strings.HasPrefix(rest, "{"):
			end := strings.IndexByte(rest, '}')
			name := ""
			if end > 0 {
				name = rest[1:end]
			}
			if end < 0 || !isIdentifier(name) {
				b.WriteByte('$')
				i++
				continue
			}
			if v, ok := lookup(name); ok {
				b.WriteString(v)
			} else {
				b.WriteString(s[i : i+end+2])
			}
			i += end + 2

		default:
			n := identifierLen(rest)
			if n == 0 {
				b.WriteByte('$')
				i++
				continue
			}
			if v, ok := lookup(rest[:n]); ok {
				b.WriteString(v)
			} else {
				b.WriteString(s[i : i+n+1])
			}
			i += n + 1
		}
	}
	return b.String()
}

// identifierLen returns the length of the identifier prefix of s.
func identifierLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z'):
		case i > 0 && '0' <= c && c <= '9':
		default:
			return i
		}
	}
	return len(s)
}

func isIdentifier(s string) bool {
	return s != "" && identifierLen(s) == len(s)
}
