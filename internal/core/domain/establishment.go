package domain

import "time"

type Establishment struct {
	ID           int64     `json:"id"`
	SiteID       int64     `json:"site_id"`
	Siren        string    `json:"siren"`
	Nic          string    `json:"nic"`
	Siret        string    `json:"siret"`
	BusinessName string    `json:"business_name,omitempty"`
	NAFCode      string    `json:"naf_code,omitempty"`
	NAFLabel     string    `json:"naf_label,omitempty"`
	Address      string    `json:"address,omitempty"`
	PostalCode   string    `json:"postal_code,omitempty"`
	City         string    `json:"city,omitempty"`
	Department   string    `json:"department,omitempty"`
	IsActive     bool      `json:"is_active"`
	ClosureLabel string    `json:"closure_label,omitempty"`
	GeoLat       *float64  `json:"geo_lat,omitempty"`
	GeoLon       *float64  `json:"geo_lon,omitempty"`
	GeoStatus    string    `json:"geo_status,omitempty"`
	ImportedAt   time.Time `json:"imported_at,omitzero"`
	LastSeenAt   time.Time `json:"last_seen_at,omitzero"`
}

// Geocoded reports whether both coordinates are present.
func (e Establishment) Geocoded() bool {
	return e.GeoLat != nil && e.GeoLon != nil
}

// DisplayName is the business name, or the siret when the name is missing.
func (e Establishment) DisplayName() string {
	if e.BusinessName != "" {
		return e.BusinessName
	}
	return e.Siret
}

// EstablishmentFilter narrows an establishment listing. Nil/empty fields are ignored.
type EstablishmentFilter struct {
	Active     *bool
	PostalCode string
}
