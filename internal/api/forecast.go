package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/flood-alerts/internal/features"
	"github.com/mr1hm/flood-alerts/internal/forecast"
	"github.com/mr1hm/flood-alerts/internal/raster"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

var errBundleNotFound = fmt.Errorf("forecast bundle: %w", repository.ErrNotFound)

const maxRasterUpload = 32 << 20

type trainRequest struct {
	PeriodDays   int `json:"period_days"`
	CadenceHours int `json:"cadence_hours"`
}

type modelResultResponse struct {
	Name    string           `json:"name"`
	Metrics forecast.Metrics `json:"metrics"`
	Error   string           `json:"error,omitempty"`
}

type bundleResponse struct {
	BundleID     string                `json:"bundle_id"`
	DefaultModel string                `json:"default_model,omitempty"`
	TargetColumn string                `json:"target_column"`
	FeatureNames []string              `json:"feature_names"`
	LastKnown    map[string]float64    `json:"last_known"`
	TrainSize    int                   `json:"train_size"`
	TestSize     int                   `json:"test_size"`
	TrainedAt    time.Time             `json:"trained_at"`
	Results      []modelResultResponse `json:"results"`
}

func toBundleResponse(b *forecast.ModelBundle) bundleResponse {
	resp := bundleResponse{
		BundleID:     b.ID,
		TargetColumn: b.TargetColumn,
		FeatureNames: b.FeatureNames,
		LastKnown:    make(map[string]float64, len(b.FeatureNames)),
		TrainSize:    b.TrainSize,
		TestSize:     b.TestSize,
		TrainedAt:    b.TrainedAt,
	}
	resp.DefaultModel, _ = b.DefaultModel()
	for i, name := range b.FeatureNames {
		if i < len(b.LastKnown) {
			resp.LastKnown[name] = b.LastKnown[i]
		}
	}
	for _, r := range b.Results {
		mr := modelResultResponse{Name: r.Name, Metrics: r.Metrics}
		if r.Err != nil {
			mr.Error = r.Err.Error()
		}
		resp.Results = append(resp.Results, mr)
	}
	return resp
}

func (h *Handler) train(c *gin.Context) {
	req := trainRequest{
		PeriodDays:   h.forecast.PeriodDays,
		CadenceHours: h.forecast.CadenceHours,
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.CadenceHours < 1 {
		respondError(c, features.ErrInvalidCadence)
		return
	}

	start := time.Now()
	h.metrics.TrainingRuns.Inc()
	b, err := forecast.TrainFromSource(c.Request.Context(), h.store, req.PeriodDays, req.CadenceHours)
	h.metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		respondError(c, err)
		return
	}
	for _, r := range b.Results {
		if !r.OK() {
			h.metrics.CandidateFailures.WithLabelValues(r.Name).Inc()
		}
	}

	h.bundles.Put(b)
	c.JSON(http.StatusCreated, toBundleResponse(b))
}

func (h *Handler) bundle(id string) (*forecast.ModelBundle, error) {
	b, ok := h.bundles.Get(id)
	if !ok {
		return nil, errBundleNotFound
	}
	return b, nil
}

type predictRequest struct {
	BundleID string             `json:"bundle_id"`
	Model    string             `json:"model"`
	Features map[string]float64 `json:"features"`
}

func (h *Handler) predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.bundle(req.BundleID)
	if err != nil {
		respondError(c, err)
		return
	}

	vec, err := b.VectorFrom(req.Features)
	if err != nil {
		respondError(c, err)
		return
	}
	f, err := forecast.Predict(b, req.Model, vec)
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.Predictions.WithLabelValues("point").Inc()
	c.JSON(http.StatusOK, gin.H{"bundle_id": b.ID, "forecast": f})
}

type scenarioRequest struct {
	BundleID      string   `json:"bundle_id"`
	Model         string   `json:"model"`
	RainfallMM    *float64 `json:"rainfall_mm" binding:"required"`
	DurationHours *float64 `json:"duration_hours" binding:"required"`
	InitialLevel  *float64 `json:"initial_level" binding:"required"`
}

func (h *Handler) scenario(c *gin.Context) {
	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.bundle(req.BundleID)
	if err != nil {
		respondError(c, err)
		return
	}

	sf, err := forecast.SimulateScenario(b, req.Model, *req.RainfallMM, *req.DurationHours, *req.InitialLevel)
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.Predictions.WithLabelValues("scenario").Inc()
	c.JSON(http.StatusOK, gin.H{"bundle_id": b.ID, "scenario": sf})
}

// rasterEstimate reads an uploaded ESRI ASCII grid of NDWI values and maps
// its mean onto a water level forecast. ?format=csv returns a report.
func (h *Handler) rasterEstimate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRasterUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field 'file' is required")
		return
	}
	b, err := h.bundle(c.PostForm("bundle_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer f.Close()

	grid, err := raster.Read(f)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := grid.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	est, err := forecast.EstimateFromRaster(b, c.PostForm("model"), stats.Mean)
	if err != nil {
		respondError(c, err)
		return
	}
	h.metrics.Predictions.WithLabelValues("raster").Inc()

	if c.Query("format") == "csv" {
		writeRasterReport(c, fh.Filename, stats, est)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bundle_id":   b.ID,
		"stats":       stats,
		"forecast":    est,
		"approximate": true,
	})
}

func writeRasterReport(c *gin.Context, source string, stats raster.Stats, est forecast.Forecast) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="raster-report.csv"`)
	c.Status(http.StatusOK)

	num := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	w := csv.NewWriter(c.Writer)
	rows := [][]string{
		{"metric", "value"},
		{"source", source},
		{"mean_ndwi", num(stats.Mean)},
		{"min_ndwi", num(stats.Min)},
		{"max_ndwi", num(stats.Max)},
		{"std_ndwi", num(stats.Std)},
		{"valid_cells", strconv.Itoa(stats.Valid)},
		{"total_cells", strconv.Itoa(stats.Total)},
		{"model", est.Model},
		{"predicted_level_m", strconv.FormatFloat(est.Level, 'f', 2, 64)},
		{"risk", est.Risk.String()},
		{"recommendation", est.Recommendation},
	}
	if err := w.WriteAll(rows); err != nil {
		_ = c.Error(errors.Join(errors.New("writing raster report"), err))
	}
}
