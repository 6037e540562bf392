// Package derived computes the entity ids that Home Assistant creates
// from YAML configuration rather than from the entity registry: groups,
// input helpers, template entities, automations, scripts, scenes, zones
// and calendar platforms.
//
// The derivation mirrors Home Assistant's own naming: keyed entities
// take their key as object id, named entities take the slug of their
// name. A registry entry always wins over a derived guess, so these ids
// only rescue references that would otherwise be reported unknown.
package derived

import (
	"strings"

	"github.com/nugget/hacheck/internal/entityid"
	"github.com/nugget/hacheck/internal/value"
)

// Sources holds the parsed documents that can define entities. A nil
// field means the source was absent or could not be read.
type Sources struct {
	Configuration value.Value // configuration.yaml
	Groups        value.Value // groups.yaml
	Automations   value.Value // automations.yaml
	Scripts       value.Value // scripts.yaml
	Scenes        value.Value // scenes.yaml
	StoredZones   []string    // zone names from .storage/core.zone
}

var inputHelpers = []string{
	"input_boolean",
	"input_number",
	"input_text",
	"input_select",
	"input_datetime",
	"input_button",
}

var templateDomains = []string{"sensor", "binary_sensor", "number", "select", "button"}

// Derive returns every entity id defined by src, always including the
// built-ins. It never fails: a source of the wrong shape contributes
// nothing.
func Derive(src Sources) entityid.Set {
	out := entityid.NewSet(entityid.Builtins...)

	addKeys(out, "group", src.Groups)

	if cfg, ok := value.AsMapping(src.Configuration); ok {
		if v, ok := cfg.Get("group"); ok {
			addKeys(out, "group", v)
		}
		for _, helper := range inputHelpers {
			if v, ok := cfg.Get(helper); ok {
				addKeys(out, helper, v)
			}
		}
		if v, ok := cfg.Get("template"); ok {
			templateEntities(out, v)
		}
		for _, domain := range []string{"sensor", "binary_sensor"} {
			if v, ok := cfg.Get(domain); ok {
				platformEntities(out, domain, v)
			}
		}
		if v, ok := cfg.Get("zone"); ok {
			namedItems(out, "zone", "name", v)
		}
		if v, ok := cfg.Get("calendar"); ok {
			calendarEntities(out, v)
		}
	}

	// The automation id is a UI handle, not an object id.
	namedItems(out, "automation", "alias", src.Automations)
	addKeys(out, "script", src.Scripts)
	namedItems(out, "scene", "name", src.Scenes)

	for _, name := range src.StoredZones {
		addSlug(out, "zone", name)
	}
	return out
}

// addKeys adds domain.<key> for every valid object-id key of v.
func addKeys(out entityid.Set, domain string, v value.Value) {
	m, ok := value.AsMapping(v)
	if !ok {
		return
	}
	for _, k := range m.StringKeys() {
		if entityid.IsValidObjectID(k) {
			out.Add(domain + "." + k)
		}
	}
}

// addSlug adds domain.<slug(name)> when the slug is not empty.
func addSlug(out entityid.Set, domain, name string) {
	if id := entityid.Slugify(name); id != "" {
		out.Add(domain + "." + id)
	}
}

// namedItems adds domain.<slug(item[field])> for each mapping in the
// sequence v whose field is set.
func namedItems(out entityid.Set, domain, field string, v value.Value) {
	seq, ok := value.AsSequence(v)
	if !ok {
		return
	}
	for _, item := range seq {
		m, ok := value.AsMapping(item)
		if !ok {
			continue
		}
		name, _ := m.Get(field)
		if value.IsEmpty(name) {
			continue
		}
		if s, ok := value.Text(name); ok {
			addSlug(out, domain, s)
		}
	}
}

// templateEntities handles the modern template: integration, given as a
// list of blocks or a single block.
func templateEntities(out entityid.Set, v value.Value) {
	switch t := v.(type) {
	case value.Sequence:
		for _, block := range t {
			templateBlock(out, block)
		}
	case value.Mapping:
		templateBlock(out, t)
	}
}

func templateBlock(out entityid.Set, v value.Value) {
	block, ok := value.AsMapping(v)
	if !ok {
		return
	}
	for _, domain := range templateDomains {
		items, _ := block.Get(domain)
		seq, ok := value.AsSequence(items)
		if !ok {
			continue
		}
		for _, item := range seq {
			if m, ok := value.AsMapping(item); ok {
				templateItem(out, domain, m)
			}
		}
	}
}

// templateItem derives one template entity. default_entity_id wins over
// name; unique_id never names the entity.
func templateItem(out entityid.Set, domain string, item value.Mapping) {
	if v, _ := item.Get("default_entity_id"); !value.IsEmpty(v) {
		id, ok := value.Text(v)
		if !ok {
			return
		}
		if strings.Contains(id, ".") {
			// A full id is accepted only within the item's own domain.
			if entityid.IsValid(id) && entityid.Domain(id) == domain {
				out.Add(id)
			}
		} else if entityid.IsValidObjectID(id) {
			out.Add(domain + "." + id)
		}
		return
	}

	name, _ := item.Get("name")
	if value.IsEmpty(name) {
		return
	}
	if s, ok := value.Text(name); ok {
		addSlug(out, domain, s)
	}
}

// platformEntities handles legacy sensor:/binary_sensor: platform lists.
func platformEntities(out entityid.Set, domain string, v value.Value) {
	seq, ok := value.AsSequence(v)
	if !ok {
		return
	}
	for _, item := range seq {
		m, ok := value.AsMapping(item)
		if !ok || !m.Has("platform") {
			continue
		}
		if p, _ := m.Get("platform"); p == value.String("template") {
			sensors, _ := m.Get("sensors")
			addKeys(out, domain, sensors)
		}
		if name, ok := m.Get("name"); ok {
			if s, ok := value.AsString(name); ok {
				addSlug(out, domain, s)
			}
		}
	}
}

// calendarEntities handles calendar platforms. CalDAV lists calendar
// names under calendars:; other platforms carry a single name.
func calendarEntities(out entityid.Set, v value.Value) {
	seq, ok := value.AsSequence(v)
	if !ok {
		return
	}
	for _, item := range seq {
		m, ok := value.AsMapping(item)
		if !ok {
			continue
		}
		if cals, ok := m.Get("calendars"); ok {
			if list, ok := value.AsSequence(cals); ok {
				for _, c := range list {
					if s, ok := value.AsString(c); ok {
						addSlug(out, "calendar", s)
					}
				}
			}
		}
		if name, ok := m.Get("name"); ok {
			if s, ok := value.AsString(name); ok {
				addSlug(out, "calendar", s)
			}
		}
	}
}
