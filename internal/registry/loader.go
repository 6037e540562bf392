package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/nugget/hacheck/internal/entityid"
)

// Snapshot is a fully loaded, read-only view of the registries. It is
// safe to share between goroutines once built.
type Snapshot struct {
	Entities     map[string]Entity
	ByRegistryID map[string]string // registry id -> entity id
	Devices      map[string]Device
	Areas        map[string]Area
	Restore      entityid.Set
}

// Loader resolves registry collections on first use and keeps them for
// its own lifetime. There is no package-level cache: two Loaders never
// share state.
//
// A Loader is not safe for concurrent first use. Call [Loader.Load]
// before handing the result to parallel workers.
type Loader struct {
	live    Provider
	storage *Storage
	logger  *slog.Logger

	liveTried bool

	entities     map[string]Entity
	byRegistryID map[string]string
	devices      map[string]Device
	areas        map[string]Area
	restore      entityid.Set

	diag Diagnostics
}

// NewLoader returns a Loader that prefers live and falls back to storage.
// Either may be nil.
func NewLoader(live Provider, storage *Storage, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{live: live, storage: storage, logger: logger}
}

// Diagnostics returns the load problems recorded so far. Each problem is
// recorded once, on the load that hit it.
func (l *Loader) Diagnostics() Diagnostics {
	return Diagnostics{
		Errors:   append([]string(nil), l.diag.Errors...),
		Warnings: append([]string(nil), l.diag.Warnings...),
	}
}

// Load resolves every collection and returns them as a Snapshot.
func (l *Loader) Load(ctx context.Context) *Snapshot {
	return &Snapshot{
		Entities:     l.Entities(ctx),
		ByRegistryID: l.RegistryIDs(ctx),
		Devices:      l.Devices(ctx),
		Areas:        l.Areas(ctx),
		Restore:      l.RestoreEntities(),
	}
}

// loadLive fetches all three collections from the live provider the
// first time any of them is needed. A failure on any collection
// abandons the live source for the whole Loader, so a run never mixes
// live and on-disk data.
func (l *Loader) loadLive(ctx context.Context) {
	if l.live == nil || l.liveTried {
		return
	}
	l.liveTried = true

	entities, err := l.live.Entities(ctx)
	if err == nil {
		var devices []Device
		devices, err = l.live.Devices(ctx)
		if err == nil {
			var areas []Area
			areas, err = l.live.Areas(ctx)
			if err == nil {
				l.setEntities(entities)
				l.setDevices(devices)
				l.setAreas(areas)
				l.logger.Debug("registries loaded from live provider",
					"entities", len(entities), "devices", len(devices), "areas", len(areas))
				return
			}
		}
	}

	l.logger.Warn("live registry unavailable, falling back to storage", "error", err)
	l.diag.addWarning(fmt.Sprintf("Registry API unavailable: %v", err))
}

// Entities returns the entity registry keyed by entity id. On failure an
// error is recorded and an empty map is returned, so every entity
// reference in the run is then reported unknown.
func (l *Loader) Entities(ctx context.Context) map[string]Entity {
	if l.entities != nil {
		return l.entities
	}
	l.loadLive(ctx)
	if l.entities != nil {
		return l.entities
	}

	if l.storage == nil {
		l.diag.addError("Entity registry not available: no storage directory")
		l.setEntities(nil)
		return l.entities
	}

	entities, err := l.storage.Entities(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.diag.addError(fmt.Sprintf("Entity registry not found: %s", l.storage.Path(EntityRegistryFile)))
	case err != nil:
		l.diag.addError(fmt.Sprintf("Failed to load entity registry: %v", err))
	}
	l.setEntities(entities)
	return l.entities
}

// RegistryIDs returns the registry id -> entity id index.
func (l *Loader) RegistryIDs(ctx context.Context) map[string]string {
	l.Entities(ctx)
	return l.byRegistryID
}

// Devices returns the device registry keyed by id. On failure an error
// is recorded and an empty map is returned.
func (l *Loader) Devices(ctx context.Context) map[string]Device {
	if l.devices != nil {
		return l.devices
	}
	l.loadLive(ctx)
	if l.devices != nil {
		return l.devices
	}

	if l.storage == nil {
		l.diag.addError("Device registry not available: no storage directory")
		l.setDevices(nil)
		return l.devices
	}

	devices, err := l.storage.Devices(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.diag.addError(fmt.Sprintf("Device registry not found: %s", l.storage.Path(DeviceRegistryFile)))
	case err != nil:
		l.diag.addError(fmt.Sprintf("Failed to load device registry: %v", err))
	}
	l.setDevices(devices)
	return l.devices
}

// Areas returns the area registry keyed by id. Area checks are
// advisory, so load failures are recorded as warnings.
func (l *Loader) Areas(ctx context.Context) map[string]Area {
	if l.areas != nil {
		return l.areas
	}
	l.loadLive(ctx)
	if l.areas != nil {
		return l.areas
	}

	if l.storage == nil {
		l.diag.addWarning("Area registry not available: no storage directory")
		l.setAreas(nil)
		return l.areas
	}

	areas, err := l.storage.Areas(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.diag.addWarning(fmt.Sprintf("Area registry not found: %s", l.storage.Path(AreaRegistryFile)))
	case err != nil:
		l.diag.addWarning(fmt.Sprintf("Failed to load area registry: %v", err))
	}
	l.setAreas(areas)
	return l.areas
}

// RestoreEntities returns entity ids seen in core.restore_state. Only
// storage carries restore state; without it the set is empty.
func (l *Loader) RestoreEntities() entityid.Set {
	if l.restore != nil {
		return l.restore
	}
	if l.storage == nil {
		l.restore = entityid.Set{}
		return l.restore
	}

	ids, err := l.storage.RestoreEntityIDs()
	if err != nil {
		l.diag.addWarning(fmt.Sprintf("Failed to load restore state: %v", err))
		ids = entityid.Set{}
	}
	l.restore = ids
	return l.restore
}

func (l *Loader) setEntities(list []Entity) {
	l.entities = make(map[string]Entity, len(list))
	l.byRegistryID = make(map[string]string, len(list))
	for _, e := range list {
		if e.EntityID == "" {
			continue
		}
		l.entities[e.EntityID] = e
		if e.RegistryID != "" {
			l.byRegistryID[e.RegistryID] = e.EntityID
		}
	}
}

func (l *Loader) setDevices(list []Device) {
	l.devices = make(map[string]Device, len(list))
	for _, d := range list {
		if d.ID != "" {
			l.devices[d.ID] = d
		}
	}
}

func (l *Loader) setAreas(list []Area) {
	l.areas = make(map[string]Area, len(list))
	for _, a := range list {
		if a.ID != "" {
			l.areas[a.ID] = a
		}
	}
}
