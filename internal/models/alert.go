package models

import (
	"fmt"
	"strings"
	"time"
)

// AlertLevel is ordered by severity, so levels compare with < and >.
type AlertLevel int

const (
	AlertLevelSafe AlertLevel = iota
	AlertLevelLow
	AlertLevelMedium
	AlertLevelHigh
	AlertLevelCritical
)

var alertLevelNames = [...]string{"SAFE", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (l AlertLevel) String() string {
	if l < AlertLevelSafe || l > AlertLevelCritical {
		return fmt.Sprintf("AlertLevel(%d)", int(l))
	}
	return alertLevelNames[l]
}

func ParseAlertLevel(s string) (AlertLevel, bool) {
	for i, name := range alertLevelNames {
		if strings.EqualFold(s, name) {
			return AlertLevel(i), true
		}
	}
	return AlertLevelSafe, false
}

func (l AlertLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *AlertLevel) UnmarshalText(b []byte) error {
	level, ok := ParseAlertLevel(string(b))
	if !ok {
		return fmt.Errorf("unknown alert level %q", string(b))
	}
	*l = level
	return nil
}

type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "ACTIVE"
	AlertStatusResolved AlertStatus = "RESOLVED"
)

// Alert only ever changes through the ACTIVE to RESOLVED status transition.
type Alert struct {
	ID             string      `json:"id"`
	Type           SensorType  `json:"type"`
	Level          AlertLevel  `json:"level"`
	Value          float64     `json:"value"`
	Unit           string      `json:"unit"`
	Location       string      `json:"location"`
	Timestamp      time.Time   `json:"timestamp"`
	Recommendation string      `json:"recommendation"`
	Description    string      `json:"description"`
	Status         AlertStatus `json:"status"`
}
