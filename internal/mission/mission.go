// Package mission models a planned drone mission and the route/settings
// blob persisted alongside it.
package mission

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightzone/internal/geo"
)

// Mission is a named flight route with its zone settings.
type Mission struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Route     []geo.GeoPoint   `json:"route"`
	Settings  geo.ZoneSettings `json:"zone_settings"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Blob is the persisted form of a mission's geometry inputs.
type Blob struct {
	Route        []geo.GeoPoint   `json:"route"`
	ZoneSettings geo.ZoneSettings `json:"zoneSettings"`
}

// Blob returns the persisted geometry inputs of m.
func (m Mission) Blob() Blob {
	return Blob{Route: m.Route, ZoneSettings: m.Settings}
}

// Zones builds the mission's safety zones.
func (m Mission) Zones(opts ...geo.ComposeOption) geo.Result {
	return geo.Compose(m.Route, m.Settings, opts...)
}

// Validate checks the fields a mission needs before it is stored.
func (m Mission) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return eris.New("mission: name is required")
	}
	if err := m.Settings.Validate(); err != nil {
		return eris.Wrap(err, "mission: zone settings")
	}
	return nil
}

// EncodeBlob marshals the mission's route and settings.
func EncodeBlob(m Mission) ([]byte, error) {
	data, err := json.Marshal(m.Blob())
	if err != nil {
		return nil, eris.Wrap(err, "mission: encode blob")
	}
	return data, nil
}

// DecodeBlob validates data against the blob schema and unmarshals it.
func DecodeBlob(data []byte) (Blob, error) {
	if err := ValidateBlob(data); err != nil {
		return Blob{}, err
	}
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Blob{}, eris.Wrap(err, "mission: decode blob")
	}
	return b, nil
}

// Apply copies a decoded blob onto m.
func (m *Mission) Apply(b Blob) {
	m.Route = b.Route
	m.Settings = b.ZoneSettings
}
