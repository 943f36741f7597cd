package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"gofestat/app"
	"gofestat/domain/core"
	"gofestat/domain/pta"
	"gofestat/internal/config"
	"gofestat/internal/errors"
	"gofestat/ports"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	defaultGridTheta = 16
	defaultGridPhi   = 32
)

// RunHandler serves stored sky maps and starts new scans
type RunHandler struct {
	repo          ports.RunRepository
	search        *app.SearchService
	maxGridPoints int
}

// NewRunHandler creates a run handler. search may be nil, in which case the
// scan endpoint answers 503.
func NewRunHandler(repo ports.RunRepository, search *app.SearchService) *RunHandler {
	return &RunHandler{
		repo:          repo,
		search:        search,
		maxGridPoints: config.DefaultMaxGridPoints,
	}
}

// WithGridLimit caps the sky positions a single scan request may ask for
func (h *RunHandler) WithGridLimit(maxPoints int) *RunHandler {
	if maxPoints > 0 {
		h.maxGridPoints = maxPoints
	}
	return h
}

// ScanRequest is the body of POST /api/scans. Either Frequency or
// Frequencies must be set. An explicit Theta/Phi grid wins over NTheta/NPhi.
type ScanRequest struct {
	Frequency   float64   `json:"frequency"`
	Frequencies []float64 `json:"frequencies"`
	Theta       []float64 `json:"theta"`
	Phi         []float64 `json:"phi"`
	NTheta      int       `json:"n_theta"`
	NPhi        int       `json:"n_phi"`
	Brave       bool      `json:"brave"`
}

// RegisterRoutes mounts the handler on r
func (h *RunHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:runId", h.GetRun)
	api.GET("/runs/:runId/top", h.GetTopPoints)
	api.POST("/scans", h.CreateScan)
}

// Health reports liveness
func (h *RunHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"persistence": h.repo != nil,
		"scans":       h.search != nil,
	})
}

// ListRuns returns the most recent runs, newest first
func (h *RunHandler) ListRuns(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence is not configured"})
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun returns one run with its full sky map
func (h *RunHandler) GetRun(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence is not configured"})
		return
	}

	id, err := core.ParseRunID(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetTopPoints returns the loudest sky points of a run
func (h *RunHandler) GetTopPoints(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence is not configured"})
		return
	}

	id, err := core.ParseRunID(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}
	n, err := strconv.Atoi(c.DefaultQuery("n", "10"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
		return
	}

	run, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "points": app.TopPoints(run, n)})
}

// CreateScan evaluates one or more sky maps synchronously and returns them
func (h *RunHandler) CreateScan(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No pulsar array is loaded"})
		return
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	grid, err := req.grid(h.maxGridPoints)
	if err != nil {
		respondError(c, err)
		return
	}
	freqs := req.Frequencies
	if len(freqs) == 0 && req.Frequency != 0 {
		freqs = []float64{req.Frequency}
	}

	runs, err := h.search.ScanFrequencies(c.Request.Context(), freqs, grid, req.Brave)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"runs": runs, "count": len(runs)}
	if best := app.Loudest(runs); best != nil {
		resp["loudest"] = best.ID
	}
	c.JSON(http.StatusCreated, resp)
}

func (r ScanRequest) grid(maxPoints int) (pta.SkyGrid, error) {
	if len(r.Theta) > 0 || len(r.Phi) > 0 {
		if len(r.Theta) > maxPoints {
			return nil, errors.InvalidInput(fmt.Sprintf("grid of %d points exceeds the limit of %d", len(r.Theta), maxPoints))
		}
		return pta.NewSkyGrid(r.Theta, r.Phi)
	}
	nTheta, nPhi := r.NTheta, r.NPhi
	if nTheta == 0 {
		nTheta = defaultGridTheta
	}
	if nPhi == 0 {
		nPhi = defaultGridPhi
	}
	if err := pta.CheckGridSize(nTheta, nPhi, maxPoints); err != nil {
		return nil, err
	}
	return pta.UniformSkyGrid(nTheta, nPhi), nil
}

// respondError maps application error codes onto HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeShapeMismatch:
		status = http.StatusBadRequest
	case errors.CodeLinearAlgebra:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	body := gin.H{"error": err.Error(), "code": errors.GetCode(err)}
	if p := errors.PulsarOf(err); p != errors.NoPulsar {
		body["pulsar"] = p
	}
	c.JSON(status, body)
}
