package derived

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/nugget/hacheck/internal/entityid"
	"github.com/nugget/hacheck/internal/registry"
	"github.com/nugget/hacheck/internal/value"
)

// Load reads every source under configDir. zones supplies UI-created
// zones and may be nil. A source that is missing or fails to parse is
// left nil and logged at debug level; the YAML itself is reported by
// the per-file check, not here.
func Load(configDir string, zones *registry.Storage, logger *slog.Logger) Sources {
	if logger == nil {
		logger = slog.Default()
	}

	read := func(name string) value.Value {
		path := filepath.Join(configDir, name)
		v, err := value.ParseFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case err != nil:
			logger.Debug("config source skipped", "file", name, "error", err)
			return nil
		}
		return v
	}

	src := Sources{
		Configuration: read("configuration.yaml"),
		Groups:        read("groups.yaml"),
		Automations:   read("automations.yaml"),
		Scripts:       read("scripts.yaml"),
		Scenes:        read("scenes.yaml"),
	}

	if zones != nil {
		names, err := zones.ZoneNames()
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			logger.Debug("zone storage skipped", "error", err)
		default:
			src.StoredZones = names
		}
	}
	return src
}

// Entities is Derive(Load(...)).
func Entities(configDir string, zones *registry.Storage, logger *slog.Logger) entityid.Set {
	return Derive(Load(configDir, zones, logger))
}
