package ingestion

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/flood-alerts/internal/models"
)

// Simulator produces synthetic readings for registered sensors. Water level
// is uniform in [2.5, 6.0) m. Rainfall is uniform in [0, 50) mm/h with a 10%
// chance of a storm in [50, 80). Other sensor types read 0.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock clockwork.Clock
}

// NewSimulator seeds the generator. A zero seed picks a random one.
func NewSimulator(seed int64, clock clockwork.Clock) *Simulator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s1, s2 := uint64(seed), uint64(seed)>>1|1
	if seed == 0 {
		s1, s2 = rand.Uint64(), rand.Uint64()
	}
	return &Simulator{
		rng:   rand.New(rand.NewPCG(s1, s2)),
		clock: clock,
	}
}

func (s *Simulator) Value(st models.SensorType) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v float64
	switch st {
	case models.SensorTypeWaterLevel:
		v = uniform(s.rng, 2.5, 6.0)
	case models.SensorTypeRainGauge:
		v = uniform(s.rng, 0, 50)
		if s.rng.Float64() < 0.1 {
			v = uniform(s.rng, 50, 80)
		}
	default:
		return 0
	}
	return math.Round(v*100) / 100
}

func (s *Simulator) Reading(sensor models.Sensor) models.SensorReading {
	return models.SensorReading{
		ID:         uuid.NewString(),
		SensorID:   sensor.ID,
		SensorType: sensor.Type,
		Location:   sensor.Location,
		Value:      s.Value(sensor.Type),
		Unit:       sensor.Type.Unit(),
		Timestamp:  s.clock.Now().UTC(),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
