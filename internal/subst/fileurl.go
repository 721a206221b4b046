package subst

import (
	"path"
	"strings"
)

const fileScheme = "file:"

// NormalizeFileURL collapses "." and ".." segments in the path of a file:
// URL. A trailing slash is kept. Strings that are not file URLs, and file
// URLs whose path is already clean, are returned exactly as given so that
// forms like "file:123" are not rewritten.
func NormalizeFileURL(s string) string {
	if !strings.HasPrefix(s, fileScheme) {
		return s
	}

	rest := s[len(fileScheme):]

	// Split off query and fragment; they are never touched.
	tail := ""
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest, tail = rest[:i], rest[i:]
	}

	authority := ""
	if strings.HasPrefix(rest, "//") {
		end := strings.IndexByte(rest[2:], '/')
		if end < 0 {
			return s
		}
		authority, rest = rest[:end+2], rest[end+2:]
	}

	cleaned := cleanPath(rest)
	if cleaned == rest {
		return s
	}
	return fileScheme + authority + cleaned + tail
}

// cleanPath is path.Clean with POSIX normpath conventions: an empty path
// stays empty, exactly two leading slashes are kept and a trailing slash
// survives.
func cleanPath(p string) string {
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	if strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "///") {
		cleaned = "/" + cleaned
	}
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(cleaned, "/") {
		cleaned += "/"
	}
	return cleaned
}
