// Package menu resolves a selected dish name to its description.
//
// A Map is built once from a delimited table (see Load) and is read-only
// afterwards, so it is safe for concurrent lookups.
package menu

import "strings"

// DefaultFallback is returned by Lookup when a dish is not in the map.
const DefaultFallback = "説明は見つかりませんでした"

// Map is a read-only dish name to description mapping.
type Map struct {
	entries  map[string]string
	fallback string
}

// Option configures a Map.
type Option func(*Map)

// WithFallback replaces the text Lookup returns on a miss.
func WithFallback(text string) Option {
	return func(m *Map) {
		if text != "" {
			m.fallback = text
		}
	}
}

// New builds a Map from name/description pairs. Keys and values are
// trimmed; pairs with an empty name or description are skipped and later
// duplicates replace earlier ones.
func New(pairs map[string]string, opts ...Option) *Map {
	m := &Map{
		entries:  make(map[string]string, len(pairs)),
		fallback: DefaultFallback,
	}
	for _, opt := range opts {
		opt(m)
	}
	for name, desc := range pairs {
		m.add(name, desc)
	}
	return m
}

func (m *Map) add(name, desc string) bool {
	name = strings.TrimSpace(name)
	desc = strings.TrimSpace(desc)
	if name == "" || desc == "" {
		return false
	}
	m.entries[name] = desc
	return true
}

// Find returns the description for name. The match is exact and
// case-sensitive after trimming surrounding whitespace from name.
func (m *Map) Find(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	desc, ok := m.entries[strings.TrimSpace(name)]
	return desc, ok
}

// Lookup returns the description for name, or the fallback text on a miss.
// A miss is an expected outcome, not an error.
func (m *Map) Lookup(name string) string {
	if desc, ok := m.Find(name); ok {
		return desc
	}
	return m.Fallback()
}

// Fallback returns the miss text.
func (m *Map) Fallback() string {
	if m == nil || m.fallback == "" {
		return DefaultFallback
	}
	return m.fallback
}

// Len returns the number of dishes.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}
