package subst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFileURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"file:///a/b/../c", "file:///a/c"},
		{"file:///a/./b/c", "file:///a/b/c"},
		{"file:///a/b/../c/", "file:///a/c/"},
		{"file:///a/b/c", "file:///a/b/c"},
		{"file:///a/b/c/", "file:///a/b/c/"},
		{"file://host/share/x/../y", "file://host/share/y"},
		{"file:/a/../b", "file:/b"},
		{"file:///a b/x/../c d", "file:///a b/c d"},
		{"file:///a/../b?q=1#frag", "file:///b?q=1#frag"},
		{"file:123", "file:123"},
		{"file:", "file:"},
		{"file://host", "file://host"},
		{"http://x/a/../b", "http://x/a/../b"},
		{"not a url", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFileURL(tt.in))
		})
	}
}

func TestNormalizeFileURLFixedPoint(t *testing.T) {
	for _, s := range []string{"file:///a/c", "file:///x/y/", "file:relative/path"} {
		assert.Equal(t, s, NormalizeFileURL(s))
		assert.Equal(t, NormalizeFileURL(s), NormalizeFileURL(NormalizeFileURL(s)))
	}
}
