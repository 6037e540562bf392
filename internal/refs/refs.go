// Package refs extracts identifier references from a parsed Home
// Assistant configuration document.
//
// Extraction is driven by key names rather than a schema: wherever a
// mapping carries entity_id, device_id, area_id (or their plural forms)
// the values are collected, however deeply they are nested. Template
// strings are scanned for literal states('x.y')-style calls.
package refs

import (
	"github.com/nugget/hacheck/internal/entityid"
	"github.com/nugget/hacheck/internal/value"
)

// Kind tags a reference with the identifier space it belongs to.
type Kind int

const (
	// KindEntity is a human-readable entity id such as light.kitchen.
	KindEntity Kind = iota
	// KindDevice is an opaque device registry id.
	KindDevice
	// KindArea is an area registry id.
	KindArea
	// KindRegistryID is an entity registry id used by device automations.
	KindRegistryID
)

// Kinds lists every Kind in the order findings are reported.
var Kinds = []Kind{KindEntity, KindRegistryID, KindDevice, KindArea}

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindDevice:
		return "device"
	case KindArea:
		return "area"
	case KindRegistryID:
		return "entity registry id"
	default:
		return "unknown"
	}
}

var (
	entityKeys = map[string]bool{"entity_id": true, "entity_ids": true, "entities": true}
	deviceKeys = map[string]bool{"device_id": true, "device_ids": true}
	areaKeys   = map[string]bool{"area_id": true, "area_ids": true}
)

// specialKeywords are values accepted by entity_id fields that are not
// entity ids.
var specialKeywords = map[string]bool{"all": true, "none": true}

// References holds the candidates found in one document, one set per
// identifier space.
type References struct {
	Entities    entityid.Set
	Devices     entityid.Set
	Areas       entityid.Set
	RegistryIDs entityid.Set
}

// Of returns the set for kind k.
func (r References) Of(k Kind) entityid.Set {
	switch k {
	case KindEntity:
		return r.Entities
	case KindDevice:
		return r.Devices
	case KindArea:
		return r.Areas
	case KindRegistryID:
		return r.RegistryIDs
	default:
		return nil
	}
}

// Extract walks doc and returns every reference candidate. It has no
// side effects; calling it twice on the same document yields equal sets.
func Extract(doc value.Value) References {
	return References{
		Entities:    Entities(doc),
		Devices:     Devices(doc),
		Areas:       Areas(doc),
		RegistryIDs: RegistryIDs(doc),
	}
}

// SkipEntity reports whether an entity_id value is not a checkable
// entity id: a directive placeholder, a registry id, a template, or one
// of the keywords "all" and "none".
func SkipEntity(s string) bool {
	return entityid.IsDirective(s) ||
		entityid.IsRegistryID(s) ||
		entityid.IsTemplate(s) ||
		specialKeywords[s]
}

// skipTarget is the filter for device and area values.
func skipTarget(s string) bool {
	return entityid.IsDirective(s) || entityid.IsTemplate(s)
}

// Entities returns the entity id candidates in doc. Values under device
// and area keys are never visited, so a device id that happens to look
// like an entity id is not counted twice.
func Entities(doc value.Value) entityid.Set {
	out := entityid.Set{}
	value.Walk(doc, func(key value.Value, v value.Value) bool {
		k, _ := key.(value.String)
		switch {
		case entityKeys[string(k)]:
			collect(out, v, SkipEntity)
			return false
		case deviceKeys[string(k)], areaKeys[string(k)]:
			return false
		}

		// Service payloads nest entity ids under data:; they are reached
		// by the plain descent below.
		if s, ok := v.(value.String); ok && hasTemplateCall(string(s)) {
			out.Union(FromTemplate(string(s)))
			return false
		}
		return true
	})
	return out
}

// Devices returns the device id candidates in doc.
func Devices(doc value.Value) entityid.Set {
	return collectKeyed(doc, deviceKeys)
}

// Areas returns the area id candidates in doc.
func Areas(doc value.Value) entityid.Set {
	return collectKeyed(doc, areaKeys)
}

// RegistryIDs returns entity registry ids found as the string value of
// an entity_id key. They are the complement of what Entities skips as
// registry ids.
func RegistryIDs(doc value.Value) entityid.Set {
	out := entityid.Set{}
	value.Walk(doc, func(key value.Value, v value.Value) bool {
		k, _ := key.(value.String)
		if k != "entity_id" {
			return true
		}
		s, ok := v.(value.String)
		if !ok {
			return true
		}
		if entityid.IsRegistryID(string(s)) {
			out.Add(string(s))
		}
		return false
	})
	return out
}

func collectKeyed(doc value.Value, keys map[string]bool) entityid.Set {
	out := entityid.Set{}
	value.Walk(doc, func(key value.Value, v value.Value) bool {
		k, _ := key.(value.String)
		if !keys[string(k)] {
			return true
		}
		collect(out, v, skipTarget)
		return false
	})
	return out
}

// collect adds v, or each string element of v, unless skip rejects it.
func collect(out entityid.Set, v value.Value, skip func(string) bool) {
	switch t := v.(type) {
	case value.String:
		if !skip(string(t)) {
			out.Add(string(t))
		}
	case value.Sequence:
		for _, item := range t {
			if s, ok := item.(value.String); ok && !skip(string(s)) {
				out.Add(string(s))
			}
		}
	}
}
