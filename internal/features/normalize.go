package features

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mr1hm/flood-alerts/internal/models"
)

// NormalizeLabel folds a free-text label into a stable identifier: accents
// removed, lowercased, every run of non-alphanumerics collapsed to "_".
func NormalizeLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// ColumnKey identifies the series a reading belongs to.
func ColumnKey(st models.SensorType, location string) string {
	return NormalizeLabel(string(st)) + "_" + NormalizeLabel(location)
}

// ParseSensorType resolves enum names and the free-text labels operators use
// ("Nível da Água", "rain gauge", "Pluviômetro") to a sensor type.
func ParseSensorType(label string) (models.SensorType, bool) {
	n := NormalizeLabel(label)
	for _, st := range models.SensorTypes {
		if n == NormalizeLabel(string(st)) {
			return st, true
		}
	}

	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(n, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("water", "agua") && has("level", "nivel"):
		return models.SensorTypeWaterLevel, true
	case has("rain", "pluvi", "chuva", "precip"):
		return models.SensorTypeRainGauge, true
	case has("soil", "solo") && has("moist", "umidade"):
		return models.SensorTypeSoilMoisture, true
	case has("wind", "vento"):
		return models.SensorTypeWind, true
	case has("temp"):
		return models.SensorTypeTemperature, true
	}
	return "", false
}

// ColumnRegistry records the sensor type behind each series column. Family
// membership is looked up here, never inferred from the column name.
type ColumnRegistry struct {
	types map[string]models.SensorType
}

func NewColumnRegistry() *ColumnRegistry {
	return &ColumnRegistry{types: make(map[string]models.SensorType)}
}

func (r *ColumnRegistry) Register(st models.SensorType, location string) string {
	key := ColumnKey(st, location)
	r.types[key] = st
	return key
}

func (r *ColumnRegistry) Lookup(column string) (models.SensorType, bool) {
	st, ok := r.types[column]
	return st, ok
}

// Columns returns every registered column in sorted order.
func (r *ColumnRegistry) Columns() []string {
	cols := make([]string, 0, len(r.types))
	for c := range r.types {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func (r *ColumnRegistry) ColumnsOf(st models.SensorType) []string {
	var cols []string
	for _, c := range r.Columns() {
		if r.types[c] == st {
			cols = append(cols, c)
		}
	}
	return cols
}
