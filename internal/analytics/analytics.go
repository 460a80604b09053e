// Package analytics aggregates post-event history into daily series.
package analytics

import (
	"sort"
	"time"

	"github.com/mr1hm/flood-alerts/internal/models"
)

const dayLayout = "2006-01-02"

func day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

type DailyLevelCount struct {
	Day   string            `json:"day"`
	Level models.AlertLevel `json:"level"`
	Count int               `json:"count"`
}

// AlertsByDay counts alerts per UTC day and level, ordered by day then
// severity.
func AlertsByDay(alerts []models.Alert) []DailyLevelCount {
	type key struct {
		day   string
		level models.AlertLevel
	}
	counts := make(map[key]int)
	for _, a := range alerts {
		counts[key{day(a.Timestamp), a.Level}]++
	}

	out := make([]DailyLevelCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, DailyLevelCount{Day: k.day, Level: k.level, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Level < out[j].Level
	})
	return out
}

type DailyMean struct {
	Day        string            `json:"day"`
	SensorType models.SensorType `json:"sensor_type"`
	Location   string            `json:"location"`
	Mean       float64           `json:"mean"`
	Min        float64           `json:"min"`
	Max        float64           `json:"max"`
	Count      int               `json:"count"`
}

// ReadingsByDay summarizes readings per UTC day, sensor type and location.
func ReadingsByDay(readings []models.SensorReading) []DailyMean {
	type key struct {
		day      string
		st       models.SensorType
		location string
	}
	agg := make(map[key]*DailyMean)
	for _, r := range readings {
		k := key{day(r.Timestamp), r.SensorType, r.Location}
		m, ok := agg[k]
		if !ok {
			m = &DailyMean{Day: k.day, SensorType: k.st, Location: k.location, Min: r.Value, Max: r.Value}
			agg[k] = m
		}
		m.Mean += r.Value
		m.Count++
		m.Min = min(m.Min, r.Value)
		m.Max = max(m.Max, r.Value)
	}

	out := make([]DailyMean, 0, len(agg))
	for _, m := range agg {
		m.Mean /= float64(m.Count)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.SensorType != b.SensorType {
			return a.SensorType < b.SensorType
		}
		return a.Location < b.Location
	})
	return out
}

type DailyTotal struct {
	Day      string  `json:"day"`
	Resource string  `json:"resource"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

// AllocationsByDay sums allocated quantities per UTC day and resource.
func AllocationsByDay(allocs []models.Allocation) []DailyTotal {
	type key struct {
		day      string
		resource string
	}
	agg := make(map[key]*DailyTotal)
	for _, a := range allocs {
		name := a.ResourceName
		if name == "" {
			name = a.ResourceID
		}
		k := key{day(a.AllocatedAt), name}
		t, ok := agg[k]
		if !ok {
			t = &DailyTotal{Day: k.day, Resource: name, Unit: a.Unit}
			agg[k] = t
		}
		t.Quantity += a.Quantity
	}

	out := make([]DailyTotal, 0, len(agg))
	for _, t := range agg {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Resource < out[j].Resource
	})
	return out
}

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// RequestsBy counts aid requests by an arbitrary attribute, most frequent
// first.
func RequestsBy(reqs []models.AidRequest, attr func(models.AidRequest) string) []Count {
	counts := make(map[string]int)
	for _, r := range reqs {
		counts[attr(r)]++
	}
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func ByStatus(r models.AidRequest) string  { return string(r.Status) }
func ByAidType(r models.AidRequest) string { return r.AidType }
