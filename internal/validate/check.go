package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nugget/hacheck/internal/config"
	"github.com/nugget/hacheck/internal/entityid"
	"github.com/nugget/hacheck/internal/refs"
	"github.com/nugget/hacheck/internal/registry"
	"github.com/nugget/hacheck/internal/value"
)

// Check classifies every reference in doc against snap and the
// config-derived set. It reads its inputs only, so one snapshot may be
// shared by concurrent calls. Messages follow sorted reference order.
func Check(label string, doc value.Value, snap *registry.Snapshot, derived entityid.Set) Result {
	return classify(context.Background(), nil, label, refs.Extract(doc), snap, derived)
}

// classify is Check over already extracted references. Each decision is
// logged at trace level when logger is non-nil.
func classify(ctx context.Context, logger *slog.Logger, label string, found refs.References, snap *registry.Snapshot, derived entityid.Set) Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, k := range refs.Kinds {
		logger.Log(ctx, config.LevelTrace, "references extracted",
			"file", label, "kind", k.String(), "count", len(found.Of(k)))
	}

	var r Result
	for _, e := range found.Entities.Sorted() {
		if entityid.IsRegistryID(e) {
			continue
		}
		source := entitySource(e, snap, derived)
		logger.Log(ctx, config.LevelTrace, "entity classified", "file", label, "entity", e, "source", source)

		switch source {
		case "registry":
			if snap.Entities[e].Disabled() {
				r.warnf("%s: References disabled entity '%s'", label, e)
			}
		case "unknown":
			if snap.Restore.Has(e) {
				r.warnf("%s: Entity '%s' not in registry but found in restore state", label, e)
			}
			r.errorf("%s: Unknown entity '%s'", label, e)
		}
	}

	for _, id := range found.RegistryIDs.Sorted() {
		e, ok := snap.ByRegistryID[id]
		if !ok {
			r.errorf("%s: Unknown entity registry ID '%s'", label, id)
			continue
		}
		if ent, ok := snap.Entities[e]; ok && ent.Disabled() {
			r.warnf("%s: Entity registry ID '%s' references disabled entity '%s'", label, id, e)
		}
	}

	for _, d := range found.Devices.Sorted() {
		if _, ok := snap.Devices[d]; !ok {
			r.errorf("%s: Unknown device '%s'", label, d)
		}
	}

	for _, a := range found.Areas.Sorted() {
		if _, ok := snap.Areas[a]; !ok {
			r.warnf("%s: Unknown area '%s'", label, a)
		}
	}
	return r
}

// entitySource names where entity id e resolves: registry, derived,
// builtin, or unknown.
func entitySource(e string, snap *registry.Snapshot, derived entityid.Set) string {
	switch {
	case hasEntity(snap, e):
		return "registry"
	case derived.Has(e):
		return "derived"
	case entityid.IsBuiltinDomain(e):
		return "builtin"
	default:
		return "unknown"
	}
}

func hasEntity(snap *registry.Snapshot, e string) bool {
	_, ok := snap.Entities[e]
	return ok
}

// Automations checks the shape of an automations list: each item must
// be a mapping with triggers and actions unless it instantiates a
// blueprint. A missing alias is only a warning. A nil document is an
// empty file and passes.
func Automations(label string, doc value.Value) Result {
	var r Result
	if doc == nil {
		return r
	}
	list, ok := value.AsSequence(doc)
	if !ok {
		r.errorf("%s: Automations must be a list", label)
		return r
	}

	seen := make(map[string]int, len(list))
	for i, item := range list {
		a, ok := value.AsMapping(item)
		if !ok {
			r.errorf("%s: Automation %d must be a dictionary", label, i)
			continue
		}
		key := value.IdentityKey(a)
		if first, dup := seen[key]; dup {
			r.warnf("%s: Automation %d duplicates automation %d (%s)", label, i, first, sameWhat(key))
		} else {
			seen[key] = i
		}
		if !a.Has("use_blueprint") {
			if !a.Has("trigger") && !a.Has("triggers") {
				r.errorf("%s: Automation %d missing 'trigger' or 'triggers'", label, i)
			}
			if !a.Has("action") && !a.Has("actions") {
				r.errorf("%s: Automation %d missing 'action' or 'actions'", label, i)
			}
		}
		if !a.Has("alias") {
			r.warnf("%s: Automation %d missing 'alias' (recommended)", label, i)
		}
	}
	return r
}

// sameWhat describes an identity key collision.
func sameWhat(key string) string {
	field, v, _ := strings.Cut(key, ":")
	if field == "id" || field == "alias" {
		return fmt.Sprintf("same %s '%s'", field, v)
	}
	return "same content"
}
