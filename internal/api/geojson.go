package api

import (
	"github.com/mr1hm/flood-alerts/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// sheltersToGeoJSON renders shelters as points. A shelter whose location
// cannot be parsed keeps a null geometry so it still appears in listings.
func sheltersToGeoJSON(shelters []models.Shelter) FeatureCollection {
	features := make([]Feature, 0, len(shelters))

	for _, s := range shelters {
		f := Feature{
			Type: "Feature",
			Properties: map[string]any{
				"id":               s.ID,
				"name":             s.Name,
				"location":         s.Location,
				"max_capacity":     s.MaxCapacity,
				"current_capacity": s.CurrentCapacity,
				"available":        max(0, s.MaxCapacity-s.CurrentCapacity),
				"address":          s.Address,
				"contact":          s.Contact,
				"status":           s.Status,
			},
		}
		if coords, ok := s.Coordinates(); ok {
			f.Geometry = &Geometry{
				Type:        "Point",
				Coordinates: []float64{coords.Longitude, coords.Latitude},
			}
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
