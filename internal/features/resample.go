package features

import (
	"math"
	"sort"
	"time"

	"github.com/mr1hm/flood-alerts/internal/models"
)

// grid is a dense time series: one value per column per cadence bucket.
type grid struct {
	times   []time.Time
	columns []string
	values  map[string][]float64
}

type accum struct {
	sum   float64
	count int
}

// resample pivots readings into one column per series and averages them into
// buckets aligned to midnight UTC of the first reading's day. Readings that
// share an exact timestamp are averaged first, then bucket means are taken
// over those per-timestamp values. Gaps are forward-filled, then
// back-filled.
func resample(readings []models.SensorReading, cadence time.Duration, reg *ColumnRegistry) *grid {
	sorted := make([]models.SensorReading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	type cell struct {
		column string
		ts     int64
	}
	pivot := make(map[cell]*accum)
	var cells []cell
	for _, r := range sorted {
		c := cell{column: reg.Register(r.SensorType, r.Location), ts: r.Timestamp.UnixNano()}
		a, ok := pivot[c]
		if !ok {
			a = &accum{}
			pivot[c] = a
			cells = append(cells, c)
		}
		a.sum += r.Value
		a.count++
	}

	first := sorted[0].Timestamp.UTC()
	origin := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	bucketOf := func(ts int64) int {
		return int((time.Unix(0, ts).Sub(origin)) / cadence)
	}

	start := bucketOf(first.UnixNano())
	end := bucketOf(sorted[len(sorted)-1].Timestamp.UnixNano())
	n := end - start + 1

	g := &grid{
		times:   make([]time.Time, n),
		columns: reg.Columns(),
		values:  make(map[string][]float64, len(pivot)),
	}
	for i := range g.times {
		g.times[i] = origin.Add(time.Duration(start+i) * cadence)
	}

	buckets := make(map[string][]accum, len(g.columns))
	for _, col := range g.columns {
		buckets[col] = make([]accum, n)
	}
	for _, c := range cells {
		a := pivot[c]
		b := &buckets[c.column][bucketOf(c.ts)-start]
		b.sum += a.sum / float64(a.count)
		b.count++
	}

	for _, col := range g.columns {
		vals := make([]float64, n)
		for i, b := range buckets[col] {
			if b.count == 0 {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = b.sum / float64(b.count)
		}
		fill(vals)
		g.values[col] = vals
	}

	return g
}

// fill forward-fills then back-fills NaN gaps in place.
func fill(vals []float64) {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
			continue
		}
		last = v
	}

	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			vals[i] = next
			continue
		}
		next = vals[i]
	}
}
