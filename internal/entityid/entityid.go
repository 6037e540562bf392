// Package entityid holds the identifier rules shared by reference
// extraction and config-derived entity resolution: entity id shape,
// registry id shape, and the name-to-object-id slug Home Assistant uses
// when a configured entity has no explicit id.
package entityid

import (
	"regexp"
	"sort"
	"strings"
)

var (
	objectIDRe   = regexp.MustCompile(`^[a-z0-9_]+$`)
	registryIDRe = regexp.MustCompile(`^[a-f0-9]{32}$`)
	templateRe   = regexp.MustCompile(`\{\{.*?\}\}`)
	slugRunRe    = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRe = regexp.MustCompile(`_+`)
)

// Builtins are entities Home Assistant always provides even though they
// never appear in the entity registry.
var Builtins = []string{"sun.sun", "zone.home"}

// BuiltinDomains lists domains exempt from reference checks as a whole.
// It is intentionally empty: zone and persistent_notification ids are
// validated like any other.
var BuiltinDomains = map[string]bool{}

// IsValidObjectID reports whether s is a non-empty run of [a-z0-9_].
func IsValidObjectID(s string) bool {
	return objectIDRe.MatchString(s)
}

// IsValid reports whether s has the form domain.object_id with both
// halves valid object ids.
func IsValid(s string) bool {
	domain, objectID, ok := strings.Cut(s, ".")
	if !ok {
		return false
	}
	return IsValidObjectID(domain) && IsValidObjectID(objectID)
}

// Domain returns the part of an entity id before the first dot, or ""
// when there is none.
func Domain(s string) string {
	domain, _, ok := strings.Cut(s, ".")
	if !ok {
		return ""
	}
	return domain
}

// IsBuiltinDomain reports whether the domain of s is in BuiltinDomains.
func IsBuiltinDomain(s string) bool {
	return BuiltinDomains[Domain(s)]
}

// IsRegistryID reports whether s looks like an entity registry id: 32
// lowercase hex characters, the dashless UUID form Home Assistant stores.
func IsRegistryID(s string) bool {
	return registryIDRe.MatchString(s)
}

// IsTemplate reports whether s contains a {{ ... }} expression.
func IsTemplate(s string) bool {
	return templateRe.MatchString(s)
}

// IsDirective reports whether s is a directive-tag placeholder such as
// "!input motion_sensor" or "!secret token".
func IsDirective(s string) bool {
	return strings.HasPrefix(s, "!")
}

// Slugify derives an object id from a free-text name: lowercase, runs of
// anything outside [a-z0-9_] become "_", repeated underscores collapse,
// and leading or trailing underscores are trimmed. It returns "" when
// nothing usable remains.
//
// Only name- or alias-derived ids go through here. Ids the user typed as
// keys are accepted or rejected as-is with IsValidObjectID.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugRunRe.ReplaceAllString(slug, "_")
	slug = underscoreRe.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

// Set is an unordered collection of identifier strings.
type Set map[string]struct{}

// NewSet returns a Set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id.
func (s Set) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is present. A nil Set has nothing.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Union adds every member of other to s.
func (s Set) Union(other Set) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
