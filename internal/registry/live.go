package registry

import (
	"context"

	"github.com/nugget/hacheck/internal/homeassistant"
)

// RegistryClient is the slice of [homeassistant.WSClient] the live
// provider needs.
type RegistryClient interface {
	GetEntityRegistry(ctx context.Context) ([]homeassistant.EntityRegistryEntry, error)
	GetDeviceRegistry(ctx context.Context) ([]homeassistant.Device, error)
	GetAreaRegistry(ctx context.Context) ([]homeassistant.Area, error)
}

// LiveProvider reads registries from a running Home Assistant instance.
type LiveProvider struct {
	client RegistryClient
}

// NewLiveProvider wraps a connected registry client.
func NewLiveProvider(client RegistryClient) *LiveProvider {
	return &LiveProvider{client: client}
}

// Entities implements Provider.
func (p *LiveProvider) Entities(ctx context.Context) ([]Entity, error) {
	entries, err := p.client.GetEntityRegistry(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entity{
			EntityID:   e.EntityID,
			RegistryID: e.ID,
			DisabledBy: e.DisabledBy,
		})
	}
	return out, nil
}

// Devices implements Provider.
func (p *LiveProvider) Devices(ctx context.Context) ([]Device, error) {
	devices, err := p.client.GetDeviceRegistry(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, Device{ID: d.ID})
	}
	return out, nil
}

// Areas implements Provider.
func (p *LiveProvider) Areas(ctx context.Context) ([]Area, error) {
	areas, err := p.client.GetAreaRegistry(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Area, 0, len(areas))
	for _, a := range areas {
		out = append(out, Area{ID: a.AreaID})
	}
	return out, nil
}
