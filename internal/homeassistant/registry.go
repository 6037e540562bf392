package homeassistant

// EntityRegistryEntry is one row of config/entity_registry/list.
type EntityRegistryEntry struct {
	// ID is the registry's internal id: 32 lowercase hex characters.
	// Device triggers and conditions reference entities by this id.
	ID           string `json:"id"`
	EntityID     string `json:"entity_id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	AreaID       string `json:"area_id"`
	DeviceID     string `json:"device_id"`
	Platform     string `json:"platform"`
	DisabledBy   string `json:"disabled_by"`
}

// IsDisabled reports whether the entity is disabled in Home Assistant.
func (e EntityRegistryEntry) IsDisabled() bool {
	return e.DisabledBy != ""
}

// Device is one row of config/device_registry/list.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AreaID     string `json:"area_id"`
	DisabledBy string `json:"disabled_by"`
}

// Area is one row of config/area_registry/list. Unlike the other
// registries the key field is area_id.
type Area struct {
	AreaID  string   `json:"area_id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}
