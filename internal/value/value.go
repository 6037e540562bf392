// Package value models a parsed Home Assistant YAML document as a closed
// set of node types. Consumers type-switch over [Mapping], [Sequence],
// [String], [Number], [Bool] and [Null] instead of poking at
// map[string]any, so every traversal has to say what it does with each
// shape.
package value

import (
	"strconv"
)

// Value is one node of a parsed document. The set of implementations is
// closed; see the package documentation.
type Value interface {
	isValue()
}

// Entry is one key/value pair of a Mapping. YAML allows non-string keys,
// so Key is itself a Value.
type Entry struct {
	Key   Value
	Value Value
}

// Mapping is an ordered list of entries. Lookups are linear; documents
// are small and order is preserved for stable diagnostics.
type Mapping []Entry

// Sequence is an ordered list of values.
type Sequence []Value

// String is a string scalar. Directive-tagged nodes also decode to a
// String holding their "!tag value" placeholder.
type String string

// Number is a numeric scalar kept in its source spelling, so that "1.0"
// and "1" stay distinguishable when rendered back as text.
type Number string

// Bool is a boolean scalar.
type Bool bool

// Null is an explicit or implicit null.
type Null struct{}

func (Mapping) isValue()  {}
func (Sequence) isValue() {}
func (String) isValue()   {}
func (Number) isValue()   {}
func (Bool) isValue()     {}
func (Null) isValue()     {}

// Float returns the numeric value of n.
func (n Number) Float() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Get returns the value stored under the string key k.
func (m Mapping) Get(k string) (Value, bool) {
	for _, e := range m {
		if s, ok := e.Key.(String); ok && string(s) == k {
			return e.Value, true
		}
	}
	return nil, false
}

// Has reports whether the string key k is present, whatever its value.
func (m Mapping) Has(k string) bool {
	_, ok := m.Get(k)
	return ok
}

// StringKeys returns the keys that are strings, in document order.
// Numeric or boolean keys are skipped.
func (m Mapping) StringKeys() []string {
	keys := make([]string, 0, len(m))
	for _, e := range m {
		if s, ok := e.Key.(String); ok {
			keys = append(keys, string(s))
		}
	}
	return keys
}

// AsMapping returns v as a Mapping when it is one.
func AsMapping(v Value) (Mapping, bool) {
	m, ok := v.(Mapping)
	return m, ok
}

// AsSequence returns v as a Sequence when it is one.
func AsSequence(v Value) (Sequence, bool) {
	s, ok := v.(Sequence)
	return s, ok
}

// AsString returns the string held by v when v is a String.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// Text renders a scalar as text. Strings and numbers come back verbatim,
// booleans as "true"/"false". Mappings, sequences, null and nil report
// false.
func Text(v Value) (string, bool) {
	switch t := v.(type) {
	case String:
		return string(t), true
	case Number:
		return string(t), true
	case Bool:
		return strconv.FormatBool(bool(t)), true
	default:
		return "", false
	}
}

// IsEmpty reports whether v carries no content: nil, Null, an empty
// string, zero, false, or an empty collection. Optional name-like
// fields are read through it.
func IsEmpty(v Value) bool {
	switch t := v.(type) {
	case nil, Null:
		return true
	case String:
		return t == ""
	case Number:
		f, err := t.Float()
		return err == nil && f == 0
	case Bool:
		return !bool(t)
	case Mapping:
		return len(t) == 0
	case Sequence:
		return len(t) == 0
	default:
		return false
	}
}

// Walk visits v depth-first. For every mapping entry fn is called with
// the entry's key and value; when fn returns true the value is walked in
// turn. Sequence elements are passed to fn with a nil key and are walked
// under the same rule, so fn sees every node reachable from v exactly
// once unless it prunes a branch.
func Walk(v Value, fn func(key Value, v Value) bool) {
	switch t := v.(type) {
	case Mapping:
		for _, e := range t {
			if fn(e.Key, e.Value) {
				Walk(e.Value, fn)
			}
		}
	case Sequence:
		for _, item := range t {
			if fn(nil, item) {
				Walk(item, fn)
			}
		}
	}
}
