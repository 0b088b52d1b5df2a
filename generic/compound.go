/*
compound.go - NBT-like persisted state

PURPOSE:
  Compound is the tree format machines are saved in and resource tags are
  expressed in. It is a string-keyed map whose values are strings, bools,
  int64, float64, nested Compounds or lists of those.

MALFORMED DATA:
  Saved worlds must stay loadable. Typed getters never fail: a missing key or
  a value of the wrong type yields the zero value.

ENCODING:
  Compounds are encoded as JSON. Decoding normalizes numbers (integral
  values become int64) and nested maps (they become Compound), so a decoded
  tag compares equal to the tag that was encoded.

SEE ALSO:
  - variant.go: Tags on resource variants
  - slot.go, storage.go, energy.go: Save/Load helpers
*/
package generic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Compound is a string-keyed tree of persisted values.
type Compound map[string]any

// DecodeCompound parses the JSON encoding of a compound.
func DecodeCompound(data []byte) (Compound, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode compound: %w", err)
	}
	return normalizeMap(raw), nil
}

// Encode returns the JSON encoding of c.
func (c Compound) Encode() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// UnmarshalJSON normalizes decoded values.
func (c *Compound) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeCompound(data)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

func normalizeMap(m map[string]any) Compound {
	out := make(Compound, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case Compound:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case []Compound:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeMap(e)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	}
	return v
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// Copy returns a deep copy of c.
func (c Compound) Copy() Compound {
	if c == nil {
		return nil
	}
	return normalizeMap(c)
}

// Equal compares two compounds structurally. nil and empty are equal.
func (c Compound) Equal(other Compound) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		ov, ok := other[k]
		if !ok || !valueEqual(normalizeValue(v), normalizeValue(ov)) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case Compound:
		bv, ok := b.(Compound)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(normalizeValue(av[i]), normalizeValue(bv[i])) {
				return false
			}
		}
		return true
	}
	return a == b
}

// Keys returns the keys of c in sorted order.
func (c Compound) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// TYPED GETTERS - Default on malformed data
// =============================================================================

func (c Compound) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Compound) String(key string) string {
	s, _ := c[key].(string)
	return s
}

func (c Compound) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

func (c Compound) Int64(key string) int64 {
	switch v := normalizeValue(c[key]).(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Int64Or returns def when key is missing or not numeric.
func (c Compound) Int64Or(key string, def int64) int64 {
	switch normalizeValue(c[key]).(type) {
	case int64, float64:
		return c.Int64(key)
	}
	return def
}

// Compound returns the nested compound under key, or nil.
func (c Compound) Compound(key string) Compound {
	switch v := c[key].(type) {
	case Compound:
		return v
	case map[string]any:
		return normalizeMap(v)
	}
	return nil
}

// List returns the list under key, or nil.
func (c Compound) List(key string) []any {
	switch v := c[key].(type) {
	case []any:
		return v
	case []Compound:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	}
	return nil
}

// CompoundList returns the entries of the list under key as compounds.
// Entries that are not compounds become empty compounds so indices line up.
func (c Compound) CompoundList(key string) []Compound {
	list := c.List(key)
	out := make([]Compound, len(list))
	for i, e := range list {
		switch v := e.(type) {
		case Compound:
			out[i] = v
		case map[string]any:
			out[i] = normalizeMap(v)
		default:
			out[i] = Compound{}
		}
	}
	return out
}
