package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nugget/hacheck/internal/entityid"
)

// Files Home Assistant keeps under <config>/.storage.
const (
	EntityRegistryFile = "core.entity_registry"
	DeviceRegistryFile = "core.device_registry"
	AreaRegistryFile   = "core.area_registry"
	ZoneFile           = "core.zone"
	RestoreStateFile   = "core.restore_state"
)

// Storage reads registry snapshots from a .storage directory. It is a
// Provider; it also exposes the zone and restore-state files that only
// exist on disk.
type Storage struct {
	Dir string
}

// NewStorage returns a Storage for the .storage directory under configDir.
func NewStorage(configDir string) *Storage {
	return &Storage{Dir: filepath.Join(configDir, ".storage")}
}

// Path returns the full path of a storage file.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Entities implements Provider by reading core.entity_registry.
func (s *Storage) Entities(context.Context) ([]Entity, error) {
	var doc struct {
		Data struct {
			Entities []Entity `json:"entities"`
		} `json:"data"`
	}
	if err := s.readJSON(EntityRegistryFile, &doc); err != nil {
		return nil, err
	}
	return doc.Data.Entities, nil
}

// Devices implements Provider by reading core.device_registry.
func (s *Storage) Devices(context.Context) ([]Device, error) {
	var doc struct {
		Data struct {
			Devices []Device `json:"devices"`
		} `json:"data"`
	}
	if err := s.readJSON(DeviceRegistryFile, &doc); err != nil {
		return nil, err
	}
	return doc.Data.Devices, nil
}

// Areas implements Provider by reading core.area_registry.
func (s *Storage) Areas(context.Context) ([]Area, error) {
	var doc struct {
		Data struct {
			Areas []Area `json:"areas"`
		} `json:"data"`
	}
	if err := s.readJSON(AreaRegistryFile, &doc); err != nil {
		return nil, err
	}
	return doc.Data.Areas, nil
}

// ZoneNames returns the names of zones created through the UI, read
// from core.zone. Items without a string name are skipped.
func (s *Storage) ZoneNames() ([]string, error) {
	var doc struct {
		Data struct {
			Items []map[string]any `json:"items"`
		} `json:"data"`
	}
	if err := s.readJSON(ZoneFile, &doc); err != nil {
		return nil, err
	}

	var names []string
	for _, item := range doc.Data.Items {
		if name, ok := item["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// RestoreEntityIDs returns the well-formed entity ids mentioned in
// core.restore_state. The file is often stale after renames, so callers
// use it for diagnostics only. A missing file yields an empty set.
func (s *Storage) RestoreEntityIDs() (entityid.Set, error) {
	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	if err := s.readJSON(RestoreStateFile, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entityid.Set{}, nil
		}
		return nil, err
	}

	ids := entityid.Set{}

	// Anything other than a list of objects carrying state.entity_id is
	// ignored rather than rejected.
	var items []json.RawMessage
	if err := json.Unmarshal(doc.Data, &items); err != nil {
		return ids, nil
	}
	for _, raw := range items {
		var item struct {
			State struct {
				EntityID string `json:"entity_id"`
			} `json:"state"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if entityid.IsValid(item.State.EntityID) {
			ids.Add(item.State.EntityID)
		}
	}
	return ids, nil
}

func (s *Storage) readJSON(name string, out any) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
