// Package registry loads the entity, device and area registries that
// configuration references are checked against. A registry can come from
// a live Home Assistant instance or from the JSON snapshots Home
// Assistant keeps under .storage; [Loader] tries the live source first,
// falls back to storage, and loads each collection at most once.
package registry

import "context"

// Entity is one entity registry row.
type Entity struct {
	EntityID string `json:"entity_id"`
	// RegistryID is the internal id device automations use in place of
	// the entity id. May be empty for hand-built snapshots.
	RegistryID string `json:"id"`
	// DisabledBy names who disabled the entity ("user", "integration",
	// ...). Empty means enabled.
	DisabledBy string `json:"disabled_by"`
}

// Disabled reports whether the entity is disabled.
func (e Entity) Disabled() bool { return e.DisabledBy != "" }

// Device is one device registry row.
type Device struct {
	ID string `json:"id"`
}

// Area is one area registry row.
type Area struct {
	ID string `json:"id"`
}

// Provider supplies registry collections. Implementations return an
// error when a collection cannot be produced; the [Loader] decides what
// that means for a validation run.
type Provider interface {
	Entities(ctx context.Context) ([]Entity, error)
	Devices(ctx context.Context) ([]Device, error)
	Areas(ctx context.Context) ([]Area, error)
}

// Static is a Provider over collections already held in memory, for
// hosts that have their registries at hand.
type Static struct {
	EntityList []Entity
	DeviceList []Device
	AreaList   []Area
}

// Entities implements Provider.
func (s *Static) Entities(context.Context) ([]Entity, error) { return s.EntityList, nil }

// Devices implements Provider.
func (s *Static) Devices(context.Context) ([]Device, error) { return s.DeviceList, nil }

// Areas implements Provider.
func (s *Static) Areas(context.Context) ([]Area, error) { return s.AreaList, nil }

// Diagnostics collects load problems. Errors make a run fail; warnings
// do not.
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

func (d *Diagnostics) addError(msg string) { d.Errors = append(d.Errors, msg) }

func (d *Diagnostics) addWarning(msg string) { d.Warnings = append(d.Warnings, msg) }
