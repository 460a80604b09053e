package alerting

import "github.com/mr1hm/flood-alerts/internal/models"

// Thresholds are the lower bounds of the LOW, MEDIUM, HIGH and CRITICAL
// levels. Cut points must be strictly increasing.
type Thresholds struct {
	Low      float64 `json:"low"`
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

var (
	// WaterLevelThresholds in meters.
	WaterLevelThresholds = Thresholds{Low: 2.0, Medium: 3.5, High: 5.0, Critical: 6.5}
	// RainfallThresholds in mm/h.
	RainfallThresholds = Thresholds{Low: 5, Medium: 20, High: 40, Critical: 60}
)

// Classify maps a value onto a level. A value equal to a cut point belongs
// to the higher level; anything below Low, including negatives and NaN, is SAFE.
func Classify(value float64, t Thresholds) models.AlertLevel {
	switch {
	case value >= t.Critical:
		return models.AlertLevelCritical
	case value >= t.High:
		return models.AlertLevelHigh
	case value >= t.Medium:
		return models.AlertLevelMedium
	case value >= t.Low:
		return models.AlertLevelLow
	default:
		return models.AlertLevelSafe
	}
}

// ThresholdsFor returns the cut points registered for a sensor type.
func ThresholdsFor(st models.SensorType) (Thresholds, bool) {
	switch st {
	case models.SensorTypeWaterLevel:
		return WaterLevelThresholds, true
	case models.SensorTypeRainGauge:
		return RainfallThresholds, true
	default:
		return Thresholds{}, false
	}
}

// ClassifySensor classifies a reading value by its sensor type. Types with no
// registered thresholds are always SAFE.
func ClassifySensor(value float64, st models.SensorType) models.AlertLevel {
	t, ok := ThresholdsFor(st)
	if !ok {
		return models.AlertLevelSafe
	}
	return Classify(value, t)
}

func Recommendation(level models.AlertLevel) string {
	switch level {
	case models.AlertLevelLow:
		return "Monitor the situation and stay informed."
	case models.AlertLevelMedium:
		return "Attention in risk areas. Prepare for possible evacuation."
	case models.AlertLevelHigh:
		return "Immediate evacuation of riverside and flood-risk areas. Seek safe shelters."
	case models.AlertLevelCritical:
		return "Severe emergency. Urgent evacuation. Follow the authorities' guidance."
	default:
		return "Normal conditions. Keep monitoring."
	}
}
