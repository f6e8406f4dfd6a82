package services

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/amirphl/nightpulse/models"
	"gopkg.in/yaml.v3"
)

//go:embed default_venues.yaml
var defaultVenuesYAML []byte

type venueFile struct {
	Venues []models.Venue `yaml:"venues"`
}

// VenueDirectory is the read-only set of venues votes may point at
type VenueDirectory struct {
	byID   map[string]models.Venue
	sorted []models.Venue
}

// LoadVenueDirectory reads the directory file at path, or the built-in
// directory when path is empty
func LoadVenueDirectory(path string) (*VenueDirectory, error) {
	raw := defaultVenuesYAML
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read venue directory %s: %w", path, err)
		}
	}
	return ParseVenueDirectory(raw)
}

// ParseVenueDirectory decodes and validates a YAML venue list
func ParseVenueDirectory(raw []byte) (*VenueDirectory, error) {
	var file venueFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode venue directory: %w", err)
	}
	if len(file.Venues) == 0 {
		return nil, fmt.Errorf("venue directory is empty")
	}

	dir := &VenueDirectory{byID: make(map[string]models.Venue, len(file.Venues))}
	for i, v := range file.Venues {
		v.ID = strings.TrimSpace(v.ID)
		v.Name = strings.TrimSpace(v.Name)
		v.City = strings.ToLower(strings.TrimSpace(v.City))
		switch {
		case v.ID == "":
			return nil, fmt.Errorf("venue %d has no id", i)
		case v.Name == "":
			return nil, fmt.Errorf("venue %s has no name", v.ID)
		case !v.Location().Valid():
			return nil, fmt.Errorf("venue %s has invalid coordinates", v.ID)
		case v.Baseline < 0:
			return nil, fmt.Errorf("venue %s has a negative baseline", v.ID)
		}
		if _, dup := dir.byID[v.ID]; dup {
			return nil, fmt.Errorf("venue %s is listed twice", v.ID)
		}
		dir.byID[v.ID] = v
		dir.sorted = append(dir.sorted, v)
	}
	sort.Slice(dir.sorted, func(i, j int) bool { return dir.sorted[i].ID < dir.sorted[j].ID })
	return dir, nil
}

// Venue looks a venue up by id
func (d *VenueDirectory) Venue(id string) (models.Venue, bool) {
	v, ok := d.byID[id]
	return v, ok
}

// All returns every venue ordered by id
func (d *VenueDirectory) All() []models.Venue {
	return append([]models.Venue(nil), d.sorted...)
}

// Len returns the number of venues
func (d *VenueDirectory) Len() int {
	return len(d.sorted)
}
