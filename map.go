package vdf

import "strings"

// Entry is a single key/value pair in a Map.
type Entry struct {
	Key   string
	Value *Value
}

// Map is an ordered mapping from string keys to Values. Keys are unique
// within one map; setting an existing key replaces its value in place
// without moving it.
//
// A Map built by NewCaseFoldMap or CaseFoldMapFromPairs lowercases every
// key at insertion and lookup, for files whose key casing is known to be
// inconsistent (Steam's config/*.vdf).
type Map struct {
	entries []Entry
	index   map[string]int
	fold    bool
}

// MapFactory builds a Map from an ordered pair list. The text and binary
// decoders call the configured factory once per (sub)map.
type MapFactory func(pairs []Entry) (*Map, error)

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// NewCaseFoldMap creates an empty case-folding Map.
func NewCaseFoldMap() *Map {
	return &Map{index: make(map[string]int), fold: true}
}

// MapFromPairs builds a Map from an ordered pair list. A repeated key
// keeps the first occurrence's position and takes the last value, matching
// the text format's behavior for duplicate keys. The error return is
// always nil; the signature exists to satisfy MapFactory.
func MapFromPairs(pairs []Entry) (*Map, error) {
	m := NewMap()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m, nil
}

// CaseFoldMapFromPairs builds a case-folding Map from an ordered pair
// list. Two keys that collide after lowercasing are a *DuplicateKeyError.
//
// Note the asymmetry: bulk construction rejects duplicates, but Set on
// an existing map silently overwrites. Callers rely on both behaviors,
// so neither side gets "fixed".
func CaseFoldMapFromPairs(pairs []Entry) (*Map, error) {
	m := NewCaseFoldMap()
	for _, p := range pairs {
		key := strings.ToLower(p.Key)
		if _, dup := m.index[key]; dup {
			return nil, &DuplicateKeyError{Key: key}
		}
		m.Set(p.Key, p.Value)
	}
	return m, nil
}

func (m *Map) norm(key string) string {
	if m.fold {
		return strings.ToLower(key)
	}
	return key
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Get returns the value for key.
func (m *Map) Get(key string) (*Value, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[m.norm(key)]
	if !ok {
		return nil, false
	}
	return m.entries[i].Value, true
}

// Set inserts or replaces the value for key. Replacing keeps the entry's
// original position.
func (m *Map) Set(key string, v *Value) {
	key = m.norm(key)
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = v
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: v})
}

// SetMap is shorthand for Set(key, FromMap(sub)).
func (m *Map) SetMap(key string, sub *Map) {
	m.Set(key, FromMap(sub))
}

// SetString is shorthand for Set(key, String(s)).
func (m *Map) SetString(key, s string) {
	m.Set(key, String(s))
}

// GetMap returns the nested Map for key, or nil if absent or a scalar.
func (m *Map) GetMap(key string) *Map {
	v, ok := m.Get(key)
	if !ok || !v.IsMap() {
		return nil
	}
	return v.m
}

// GetString returns the scalar for key coerced to text, or def if absent
// or a Map.
func (m *Map) GetString(key, def string) string {
	v, ok := m.Get(key)
	if !ok || v.IsMap() {
		return def
	}
	return v.Text()
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the underlying entry slice in insertion order. The
// slice is shared with the Map; callers must not reorder it.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// Equal reports whether both maps hold the same keys in the same order
// with equal values.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m.Len() == other.Len()
	}
	if len(m.entries) != len(other.entries) {
		return false
	}
	for i, e := range m.entries {
		o := other.entries[i]
		if e.Key != o.Key || !e.Value.Equal(o.Value) {
			return false
		}
	}
	return true
}
