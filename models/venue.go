package models

import "github.com/amirphl/nightpulse/utils"

// Venue is a read-only directory entry. It is not persisted by the engine.
type Venue struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Lat      float64 `json:"lat" yaml:"lat"`
	Lng      float64 `json:"lng" yaml:"lng"`
	Baseline int     `json:"baseline" yaml:"baseline"`
	City     string  `json:"city" yaml:"city"`
}

// Location returns the venue coordinate
func (v Venue) Location() utils.LatLng {
	return utils.LatLng{Lat: v.Lat, Lng: v.Lng}
}

// VenueStatus is the moderation state of a directory venue
type VenueStatus string

const (
	VenueStatusVisible VenueStatus = "visible"
	VenueStatusHidden  VenueStatus = "hidden"
)
