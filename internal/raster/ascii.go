package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MaxCells bounds the grid size a header may declare. A cell takes at least
// two bytes of text, so this covers uploads up to 32 MiB.
const MaxCells = 1 << 24

var (
	ErrMalformed = errors.New("malformed raster")
	ErrNoValid   = errors.New("raster has no valid cells")
)

// Grid is a single-band raster read from an ESRI ASCII grid.
type Grid struct {
	Cols      int
	Rows      int
	XLL       float64
	YLL       float64
	CellSize  float64
	NoData    float64
	HasNoData bool
	Values    []float64 // row-major, top row first
}

type Stats struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Std   float64 `json:"std"`
	Valid int     `json:"valid_cells"`
	Total int     `json:"total_cells"`
}

func ReadFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening raster: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	g := &Grid{}
	var pending string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			pending = key
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: header %q has no value", ErrMalformed, key)
		}
		val := sc.Text()
		if err := g.setHeader(key, val); err != nil {
			return nil, err
		}
	}
	if g.Cols <= 0 || g.Rows <= 0 {
		return nil, fmt.Errorf("%w: ncols and nrows must be positive", ErrMalformed)
	}
	if g.Cols > MaxCells/g.Rows {
		return nil, fmt.Errorf("%w: %d x %d grid exceeds %d cells", ErrMalformed, g.Cols, g.Rows, MaxCells)
	}

	g.Values = make([]float64, 0, g.Cols*g.Rows)
	push := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("%w: cell %d: %v", ErrMalformed, len(g.Values), err)
		}
		g.Values = append(g.Values, v)
		return nil
	}
	if pending != "" {
		if err := push(pending); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := push(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading raster: %w", err)
	}
	if len(g.Values) != g.Cols*g.Rows {
		return nil, fmt.Errorf("%w: expected %d cells, got %d", ErrMalformed, g.Cols*g.Rows, len(g.Values))
	}
	return g, nil
}

func (g *Grid) setHeader(key, val string) error {
	var err error
	switch key {
	case "ncols":
		g.Cols, err = strconv.Atoi(val)
	case "nrows":
		g.Rows, err = strconv.Atoi(val)
	case "xllcorner", "xllcenter":
		g.XLL, err = strconv.ParseFloat(val, 64)
	case "yllcorner", "yllcenter":
		g.YLL, err = strconv.ParseFloat(val, 64)
	case "cellsize":
		g.CellSize, err = strconv.ParseFloat(val, 64)
	case "nodata_value":
		g.NoData, err = strconv.ParseFloat(val, 64)
		g.HasNoData = true
	default:
		return fmt.Errorf("%w: unknown header %q", ErrMalformed, key)
	}
	if err != nil {
		return fmt.Errorf("%w: header %s: %v", ErrMalformed, key, err)
	}
	return nil
}

// Stats summarizes the valid cells. Cells equal to the nodata value, NaN or
// infinite are skipped. Std is the population standard deviation.
func (g *Grid) Stats() (Stats, error) {
	valid := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) || (g.HasNoData && v == g.NoData) {
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		return Stats{}, ErrNoValid
	}

	mean, variance := stat.PopMeanVariance(valid, nil)
	return Stats{
		Mean:  mean,
		Min:   floats.Min(valid),
		Max:   floats.Max(valid),
		Std:   math.Sqrt(variance),
		Valid: len(valid),
		Total: len(g.Values),
	}, nil
}

// MeanFromFile reads a raster and returns the mean of its valid cells.
func MeanFromFile(path string) (float64, error) {
	g, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	s, err := g.Stats()
	if err != nil {
		return 0, err
	}
	return s.Mean, nil
}
