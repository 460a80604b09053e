package models

import "time"

type SensorType string

const (
	SensorTypeWaterLevel   SensorType = "WATER_LEVEL"
	SensorTypeRainGauge    SensorType = "RAIN_GAUGE"
	SensorTypeSoilMoisture SensorType = "SOIL_MOISTURE"
	SensorTypeWind         SensorType = "WIND"
	SensorTypeTemperature  SensorType = "TEMPERATURE"
)

var SensorTypes = []SensorType{
	SensorTypeWaterLevel,
	SensorTypeRainGauge,
	SensorTypeSoilMoisture,
	SensorTypeWind,
	SensorTypeTemperature,
}

func (t SensorType) Valid() bool {
	switch t {
	case SensorTypeWaterLevel, SensorTypeRainGauge, SensorTypeSoilMoisture, SensorTypeWind, SensorTypeTemperature:
		return true
	}
	return false
}

// Unit is the unit readings of this type are reported in.
func (t SensorType) Unit() string {
	switch t {
	case SensorTypeWaterLevel:
		return "m"
	case SensorTypeRainGauge:
		return "mm/h"
	case SensorTypeSoilMoisture:
		return "%"
	case SensorTypeWind:
		return "km/h"
	case SensorTypeTemperature:
		return "°C"
	default:
		return ""
	}
}

// Label is the human-readable name used in alert descriptions.
func (t SensorType) Label() string {
	switch t {
	case SensorTypeWaterLevel:
		return "Water Level"
	case SensorTypeRainGauge:
		return "Rain Gauge"
	case SensorTypeSoilMoisture:
		return "Soil Moisture"
	case SensorTypeWind:
		return "Wind"
	case SensorTypeTemperature:
		return "Temperature"
	default:
		return string(t)
	}
}

type SensorStatus string

const (
	SensorStatusActive   SensorStatus = "ACTIVE"
	SensorStatusInactive SensorStatus = "INACTIVE"
)

type Sensor struct {
	ID          string       `json:"id"`
	Type        SensorType   `json:"type"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Status      SensorStatus `json:"status"`
	InstalledAt time.Time    `json:"installed_at"`
}

// SensorReading is immutable once stored.
type SensorReading struct {
	ID         string     `json:"id"`
	SensorID   string     `json:"sensor_id"`
	SensorType SensorType `json:"sensor_type"`
	Location   string     `json:"location"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	Timestamp  time.Time  `json:"timestamp"`
}
