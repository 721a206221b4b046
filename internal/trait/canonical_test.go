package trait

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	d := Data{
		"zebra": Properties{"b": Int(2), "a": Int(1)},
		"apple": Properties{},
	}
	data, err := MarshalCanonical(d)
	require.NoError(t, err)
	assert.Equal(t, `{"apple":{},"zebra":{"a":1,"b":2}}`, string(data))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to a single code point
	data, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	// A literal backslash followed by u2028 text stays escaped
	data, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestMarshalCanonicalMixed(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"ok":     true,
		"refs":   []string{"bal:///a", "bal:///b"},
		"traits": NewSet("b", "a"),
		"ratio":  Float(3),
		"none":   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"none":null,"ok":true,"ratio":3.0,"refs":["bal:///a","bal:///b"],"traits":["a","b"]}`, string(data))
}

func TestMarshalCanonicalUnsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestCompareKeysRFC8785(t *testing.T) {
	keys := []string{"b", "a", "A", "aa", "\U0001F600", "\uFFFD"}
	sortKeysRFC8785(keys)
	// The surrogate pair of U+1F600 (0xD83D) sorts before U+FFFD in UTF-16
	assert.Equal(t, []string{"A", "a", "aa", "b", "\U0001F600", "\uFFFD"}, keys)
}
