package models

import (
	"strconv"
	"strings"
	"time"
)

type EvacuationRoute struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	KeyPoints      string `json:"key_points"`
	Status         string `json:"status"`
	AssociatedRisk string `json:"associated_risk"`
}

type Shelter struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Location        string `json:"location"` // "Lat:-23.55, Lon:-46.63"
	MaxCapacity     int    `json:"max_capacity"`
	CurrentCapacity int    `json:"current_capacity"`
	Address         string `json:"address"`
	Contact         string `json:"contact"`
	Status          string `json:"status"`
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Coordinates parses the "Lat:x, Lon:y" location format. ok is false when
// either component is missing or malformed.
func (s *Shelter) Coordinates() (Coordinates, bool) {
	return ParseCoordinates(s.Location)
}

func ParseCoordinates(location string) (Coordinates, bool) {
	var c Coordinates
	var haveLat, haveLon bool

	for _, part := range strings.Split(location, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "Lat:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(part, "Lat:")), 64)
			if err != nil {
				return Coordinates{}, false
			}
			c.Latitude, haveLat = v, true
		case strings.HasPrefix(part, "Lon:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(part, "Lon:")), 64)
			if err != nil {
				return Coordinates{}, false
			}
			c.Longitude, haveLon = v, true
		}
	}

	return c, haveLat && haveLon
}

type MobilityData struct {
	ID                     string    `json:"id"`
	Location               string    `json:"location"`
	TrafficLevel           string    `json:"traffic_level"`
	EstimatedTravelMinutes int       `json:"estimated_travel_minutes"`
	Timestamp              time.Time `json:"timestamp"`
}
