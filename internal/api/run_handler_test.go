package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"gofestat/app"
	"gofestat/domain/core"
	"gofestat/domain/pta"
	"gofestat/domain/stats"
	"gofestat/internal/config"
	"gofestat/internal/errors"
	"gofestat/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Save(ctx context.Context, run *stats.FeRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockRepository) Get(ctx context.Context, id core.RunID) (*stats.FeRun, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*stats.FeRun)
	return run, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, limit int) ([]*stats.FeRun, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]*stats.FeRun)
	return runs, args.Error(1)
}

type mockEvaluator struct {
	mock.Mock
	psrs []*pta.Pulsar
}

func (m *mockEvaluator) ComputeFe(ctx context.Context, f0 float64, grid pta.SkyGrid, brave bool) ([]float64, error) {
	args := m.Called(ctx, f0, grid, brave)
	v, _ := args.Get(0).([]float64)
	return v, args.Error(1)
}

func (m *mockEvaluator) Pulsars() []*pta.Pulsar {
	return m.psrs
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(h *RunHandler) *gin.Engine {
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleRun() *stats.FeRun {
	grid := pta.UniformSkyGrid(1, 3)
	values := stats.Values{2, math.NaN(), 5}
	return &stats.FeRun{
		ID:          core.NewRunID(),
		Frequency:   2e-8,
		PulsarNames: []string{"A", "B"},
		Grid:        grid,
		Values:      values,
		Summary:     app.Summarize(grid, values),
		CreatedAt:   core.Now(),
	}
}

func TestHealth(t *testing.T) {
	w := do(t, newRouter(NewRunHandler(nil, nil)), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["persistence"])
	assert.Equal(t, false, body["scans"])
}

func TestListRuns(t *testing.T) {
	repo := new(mockRepository)
	run := sampleRun()
	repo.On("List", mock.Anything, 50).Return([]*stats.FeRun{run}, nil)
	repo.On("List", mock.Anything, 5).Return([]*stats.FeRun{}, nil)
	r := newRouter(NewRunHandler(repo, nil))

	w := do(t, r, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Runs  []*stats.FeRun `json:"runs"`
		Count int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, run.ID, body.Runs[0].ID)
	assert.True(t, math.IsNaN(body.Runs[0].Values[1]))

	w = do(t, r, http.MethodGet, "/api/runs?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertExpectations(t)
}

func TestListRuns_NoRepository(t *testing.T) {
	w := do(t, newRouter(NewRunHandler(nil, nil)), http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetRun(t *testing.T) {
	repo := new(mockRepository)
	run := sampleRun()
	missing := core.NewRunID()
	repo.On("Get", mock.Anything, run.ID).Return(run, nil)
	repo.On("Get", mock.Anything, missing).Return(nil, errors.NotFound("run "+missing.String()))
	r := newRouter(NewRunHandler(repo, nil))

	w := do(t, r, http.MethodGet, "/api/runs/"+run.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got stats.FeRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, run.Summary.ArgMax, got.Summary.ArgMax)
	assert.Equal(t, 5.0, got.Values[2])

	w = do(t, r, http.MethodGet, "/api/runs/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeNotFound)

	w = do(t, r, http.MethodGet, "/api/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTopPoints(t *testing.T) {
	repo := new(mockRepository)
	run := sampleRun()
	repo.On("Get", mock.Anything, run.ID).Return(run, nil)
	r := newRouter(NewRunHandler(repo, nil))

	w := do(t, r, http.MethodGet, "/api/runs/"+run.ID.String()+"/top?n=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Points []app.SkyPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Points, 1)
	assert.Equal(t, 5.0, body.Points[0].Fe)

	w = do(t, r, http.MethodGet, "/api/runs/"+run.ID.String()+"/top?n=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateScan(t *testing.T) {
	psrs := testkit.NewArray(testkit.EightPulsarSky[:2], testkit.DefaultArrayConfig())
	eval := &mockEvaluator{psrs: psrs}
	grid := pta.SkyGrid{{Theta: 1, Phi: 2}, {Theta: 0.5, Phi: 4}}
	eval.On("ComputeFe", mock.Anything, 2e-8, grid, true).Return([]float64{3, 7}, nil)
	eval.On("ComputeFe", mock.Anything, 3e-8, grid, true).Return([]float64{1, 1}, nil)

	repo := new(mockRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	search := app.NewSearchService(eval, pta.NoiseParams{}, repo)
	r := newRouter(NewRunHandler(repo, search))

	w := do(t, r, http.MethodPost, "/api/scans", ScanRequest{
		Frequencies: []float64{2e-8, 3e-8},
		Theta:       []float64{1, 0.5},
		Phi:         []float64{2, 4},
		Brave:       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Runs    []*stats.FeRun `json:"runs"`
		Count   int            `json:"count"`
		Loudest core.RunID     `json:"loudest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, body.Runs[0].ID, body.Loudest)
	assert.Equal(t, 7.0, body.Runs[0].Summary.Max)
	repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestCreateScan_UniformGrid(t *testing.T) {
	eval := &mockEvaluator{psrs: testkit.NewArray(testkit.EightPulsarSky[:2], testkit.DefaultArrayConfig())}
	grid := pta.UniformSkyGrid(2, 3)
	eval.On("ComputeFe", mock.Anything, 1e-8, grid, false).Return(make([]float64, 6), nil)
	r := newRouter(NewRunHandler(nil, app.NewSearchService(eval, pta.NoiseParams{}, nil)))

	w := do(t, r, http.MethodPost, "/api/scans", ScanRequest{Frequency: 1e-8, NTheta: 2, NPhi: 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	eval.AssertExpectations(t)
}

func TestCreateScan_GridLimit(t *testing.T) {
	eval := &mockEvaluator{psrs: testkit.NewArray(testkit.EightPulsarSky[:2], testkit.DefaultArrayConfig())}
	r := newRouter(NewRunHandler(nil, app.NewSearchService(eval, pta.NoiseParams{}, nil)).WithGridLimit(100))

	w := do(t, r, http.MethodPost, "/api/scans", ScanRequest{Frequency: 1e-8, NTheta: 1 << 20, NPhi: 1 << 20})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeInvalidInput, body["code"])

	w = do(t, r, http.MethodPost, "/api/scans", ScanRequest{Frequency: 1e-8, NTheta: 11, NPhi: 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	theta := make([]float64, 101)
	w = do(t, r, http.MethodPost, "/api/scans", ScanRequest{Frequency: 1e-8, Theta: theta, Phi: theta})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/scans", ScanRequest{Frequency: 1e-8, NTheta: -1, NPhi: 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	eval.AssertNotCalled(t, "ComputeFe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScanRequestGrid_DefaultLimit(t *testing.T) {
	_, err := ScanRequest{NTheta: 1 << 20, NPhi: 1 << 20}.grid(config.DefaultMaxGridPoints)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	grid, err := ScanRequest{}.grid(config.DefaultMaxGridPoints)
	require.NoError(t, err)
	assert.Len(t, grid, defaultGridTheta*defaultGridPhi)
}

func TestCreateScan_Errors(t *testing.T) {
	eval := &mockEvaluator{psrs: testkit.NewArray(testkit.EightPulsarSky[:2], testkit.DefaultArrayConfig())}
	eval.On("ComputeFe", mock.Anything, 4e-8, mock.Anything, false).
		Return(nil, errors.LinearAlgebra(1, "sigma", "not positive definite"))
	r := newRouter(NewRunHandler(nil, app.NewSearchService(eval, pta.NoiseParams{}, nil)))

	w := do(t, r, http.MethodPost, "/api/scans", ScanRequest{Frequency: 4e-8})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeLinearAlgebra, body["code"])
	assert.Equal(t, 1.0, body["pulsar"])

	w = do(t, r, http.MethodPost, "/api/scans", ScanRequest{Theta: []float64{1}, Phi: []float64{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/scans", ScanRequest{NTheta: 2})
	assert.Equal(t, http.StatusBadRequest, w.Code, "no frequency")

	req := httptest.NewRequest(http.MethodPost, "/api/scans", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = do(t, newRouter(NewRunHandler(nil, nil)), http.MethodPost, "/api/scans", ScanRequest{Frequency: 1e-8})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
