package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
	"github.com/deepaksuthar40128/RemoteDx/pkg/monitoring"
	"github.com/deepaksuthar40128/RemoteDx/pkg/report"
)

type passingSim struct{}

func (passingSim) Latency(float64, float64) float64 { return 20 }
func (passingSim) PacketLost(float64) bool { return false }
func (passingSim) Drift(float64, float64) float64 { return 0.1 }
func (passingSim) Pause(time.Duration, time.Duration) time.Duration { return 0 }
func (passingSim) Installed(map[string][]string) map[string]string {
	return map[string]string{"nginx": "1.21.0"}
}

const inventoryJSON = `[
  {"name": "web-01", "ip_address": "10.0.0.1", "machine_type": "live", "expected_software": ["nginx==1.20"]},
  {"name": "ci-02", "ip_address": "10.0.0.2", "machine_type": "test", "expected_software": ["postgres"]}
]`

func setupTestAPI(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	opts.MachineOptions = append([]machine.Option{
		machine.WithSimulator(passingSim{}),
		machine.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		machine.WithRetryDelay(0),
	}, opts.MachineOptions...)
	return New(opts).Router()
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), method, path, strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRun(t *testing.T) {
	r := setupTestAPI(t, Options{})

	w := do(r, http.MethodPost, "/api/v1/diagnostics", inventoryJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var run Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.NotEmpty(t, run.ID)
	assert.Len(t, run.Rows, 6)
	assert.Empty(t, run.Skipped)
	assert.Equal(t, 6, run.Summary.Total)
	assert.Equal(t, 5, run.Summary.Passed)

	var software report.Row
	for _, row := range run.Rows {
		if row.MachineName == "ci-02" && row.CheckName == machine.CheckSoftware {
			software = row
		}
	}
	assert.Equal(t, "Missing: 'postgres'", software.Details)

	w = do(r, http.MethodGet, "/api/v1/diagnostics/"+run.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stored Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, run.ID, stored.ID)
	assert.Len(t, stored.Rows, 6)

	w = do(r, http.MethodGet, "/api/v1/diagnostics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), run.ID)
}

func TestCreateRunYAML(t *testing.T) {
	r := setupTestAPI(t, Options{})
	body := "- name: edge-1\n  ip_address: 192.168.0.9\n  machine_type: dev\n  expected_software: []\n"

	w := do(r, http.MethodPost, "/api/v1/diagnostics", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "edge-1")
}

func TestCreateRunRejectsBadConfig(t *testing.T) {
	r := setupTestAPI(t, Options{})

	w := do(r, http.MethodPost, "/api/v1/diagnostics", `[{"name": "x"}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ip_address")

	w = do(r, http.MethodPost, "/api/v1/diagnostics", `{"not": "a list"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRunNoBuildableMachines(t *testing.T) {
	r := setupTestAPI(t, Options{})
	body := `[{"name": "x", "ip_address": "h", "machine_type": "dev", "expected_software": ["==1.0"]}]`

	w := do(r, http.MethodPost, "/api/v1/diagnostics", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "skipped")
}

func TestGetRunNotFound(t *testing.T) {
	r := setupTestAPI(t, Options{})
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/diagnostics/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/diagnostics/nope/csv", "").Code)
}

func TestGetRunCSV(t *testing.T) {
	r := setupTestAPI(t, Options{})
	w := do(r, http.MethodPost, "/api/v1/diagnostics", inventoryJSON)
	require.Equal(t, http.StatusCreated, w.Code)
	var run Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))

	w = do(r, http.MethodGet, "/api/v1/diagnostics/"+run.ID+"/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), csvFilename)

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 7)
	assert.Equal(t, report.Header, records[0])
}

func TestRunStoreEvictsOldest(t *testing.T) {
	s := newRunStore(3)
	for i := 0; i < 5; i++ {
		s.put(&Run{ID: fmt.Sprintf("run-%d", i)})
	}
	_, ok := s.get("run-0")
	assert.False(t, ok)
	_, ok = s.get("run-4")
	assert.True(t, ok)

	runs := s.list()
	require.Len(t, runs, 3)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-2", runs[2].ID)
}

func TestHealthAndMetrics(t *testing.T) {
	mc := monitoring.NewMetricsCollector("remotedx", "test", "none")
	r := setupTestAPI(t, Options{Metrics: mc})

	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health monitoring.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, monitoring.StatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "active_runs")

	do(r, http.MethodPost, "/api/v1/diagnostics", inventoryJSON)
	w = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "remotedx_http_requests_total")
}

func TestRequestIDEchoed(t *testing.T) {
	r := setupTestAPI(t, Options{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
