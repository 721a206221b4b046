package trait

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Properties maps property keys to scalar values for a single trait.
type Properties map[string]Value

// Data maps trait ids to their properties.
// A trait can be present with no properties (an empty, non-nil Properties).
type Data map[string]Properties

// NewData creates trait data imbued with the given trait ids and no
// properties.
func NewData(traitIDs ...string) Data {
	d := make(Data, len(traitIDs))
	for _, id := range traitIDs {
		d[id] = Properties{}
	}
	return d
}

// Has reports whether the trait id is present.
func (d Data) Has(traitID string) bool {
	_, ok := d[traitID]
	return ok
}

// Add imbues the trait id without touching existing properties.
func (d Data) Add(traitID string) {
	if props, ok := d[traitID]; !ok || props == nil {
		d[traitID] = Properties{}
	}
}

// Set stores a property, imbuing the trait if needed.
func (d Data) Set(traitID, key string, v Value) {
	d.Add(traitID)
	d[traitID][key] = v
}

// Get returns the property value and whether it was set.
func (d Data) Get(traitID, key string) (Value, bool) {
	props, ok := d[traitID]
	if !ok {
		return nil, false
	}
	v, ok := props[key]
	return v, ok
}

// GetString returns a string property. The second result is false when
// the property is unset or not a String.
func (d Data) GetString(traitID, key string) (string, bool) {
	v, ok := d.Get(traitID, key)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// GetInt returns an integer property. The second result is false when the
// property is unset or not an Int.
func (d Data) GetInt(traitID, key string) (int64, bool) {
	v, ok := d.Get(traitID, key)
	if !ok {
		return 0, false
	}
	i, ok := v.(Int)
	return int64(i), ok
}

// TraitSet returns the ids of all imbued traits.
func (d Data) TraitSet() Set {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	return NewSet(ids...)
}

// Clone returns a deep copy. Values are immutable scalars so only the maps
// are copied.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for id, props := range d {
		cp := make(Properties, len(props))
		for k, v := range props {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

// Equal reports whether both have the same traits and property values.
func (d Data) Equal(other Data) bool {
	if len(d) != len(other) {
		return false
	}
	for id, props := range d {
		otherProps, ok := other[id]
		if !ok || len(props) != len(otherProps) {
			return false
		}
		for k, v := range props {
			if ov, ok := otherProps[k]; !ok || ov != v {
				return false
			}
		}
	}
	return true
}

// Matches reports whether d satisfies pattern.
//
// A match is when every trait id of the pattern is present in d, and every
// property set in the pattern exists in d with an equal value. Int and
// Float compare by numeric value. Additional traits or properties in d
// are ignored.
func (d Data) Matches(pattern Data) bool {
	for id, wanted := range pattern {
		props, ok := d[id]
		if !ok {
			return false
		}
		for k, v := range wanted {
			if have, ok := props[k]; !ok || !SameValue(have, v) {
				return false
			}
		}
	}
	return true
}

// Filter returns a copy holding only the traits in set.
func (d Data) Filter(set Set) Data {
	out := make(Data, len(set))
	for _, id := range set {
		props, ok := d[id]
		if !ok {
			continue
		}
		cp := make(Properties, len(props))
		for k, v := range props {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler for Properties.
func (p *Properties) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Properties{}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = make(Properties, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		(*p)[k] = val
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Properties with sorted keys.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range sortedKeys(p) {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(p[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromMap builds Data from plain Go maps such as those decoded from YAML.
func FromMap(m map[string]map[string]any) (Data, error) {
	d := make(Data, len(m))
	for id, props := range m {
		d.Add(id)
		for k, raw := range props {
			v, err := FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("trait %q property %q: %w", id, k, err)
			}
			d[id][k] = v
		}
	}
	return d, nil
}

// ToMap converts Data into plain Go maps.
func (d Data) ToMap() map[string]any {
	out := make(map[string]any, len(d))
	for id, props := range d {
		m := make(map[string]any, len(props))
		for k, v := range props {
			m[k] = ToAny(v)
		}
		out[id] = m
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortKeysRFC8785(keys)
	return keys
}
