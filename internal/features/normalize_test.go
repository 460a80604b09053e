package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr1hm/flood-alerts/internal/models"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rio Tietê - Ponte A", "rio_tiete_ponte_a"},
		{"  São Paulo!! ", "sao_paulo"},
		{"WATER_LEVEL", "water_level"},
		{"Córrego   do Ipiranga (km 3)", "corrego_do_ipiranga_km_3"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLabel(tt.in), "input %q", tt.in)
	}
}

func TestColumnKey_StableAcrossLabelDrift(t *testing.T) {
	a := ColumnKey(models.SensorTypeWaterLevel, "Rio Tietê - Ponte A")
	b := ColumnKey(models.SensorTypeWaterLevel, "rio tiete, ponte a")

	assert.Equal(t, "water_level_rio_tiete_ponte_a", a)
	assert.Equal(t, a, b)
}

func TestParseSensorType(t *testing.T) {
	tests := []struct {
		label string
		want  models.SensorType
		ok    bool
	}{
		{"WATER_LEVEL", models.SensorTypeWaterLevel, true},
		{"Nível da Água", models.SensorTypeWaterLevel, true},
		{"water level", models.SensorTypeWaterLevel, true},
		{"Pluviômetro", models.SensorTypeRainGauge, true},
		{"rain_gauge", models.SensorTypeRainGauge, true},
		{"Umidade do Solo", models.SensorTypeSoilMoisture, true},
		{"Vento", models.SensorTypeWind, true},
		{"Temperatura", models.SensorTypeTemperature, true},
		{"seismograph", "", false},
		{"water", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseSensorType(tt.label)
		assert.Equal(t, tt.ok, ok, "label %q", tt.label)
		assert.Equal(t, tt.want, got, "label %q", tt.label)
	}
}

func TestColumnRegistry(t *testing.T) {
	reg := NewColumnRegistry()
	reg.Register(models.SensorTypeRainGauge, "Centro")
	reg.Register(models.SensorTypeWaterLevel, "Ponte B")
	reg.Register(models.SensorTypeWaterLevel, "Ponte A")
	reg.Register(models.SensorTypeWaterLevel, "ponte a")

	assert.Equal(t, []string{
		"rain_gauge_centro",
		"water_level_ponte_a",
		"water_level_ponte_b",
	}, reg.Columns())
	assert.Equal(t, []string{"water_level_ponte_a", "water_level_ponte_b"}, reg.ColumnsOf(models.SensorTypeWaterLevel))

	st, ok := reg.Lookup("rain_gauge_centro")
	assert.True(t, ok)
	assert.Equal(t, models.SensorTypeRainGauge, st)

	_, ok = reg.Lookup("water_level_centro")
	assert.False(t, ok)
}
