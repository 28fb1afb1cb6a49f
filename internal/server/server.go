// Package server exposes diagnostics runs over HTTP: submit an inventory,
// get back the summary and rows, download the CSV later.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deepaksuthar40128/RemoteDx/pkg/inventory"
	"github.com/deepaksuthar40128/RemoteDx/pkg/logging"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
	"github.com/deepaksuthar40128/RemoteDx/pkg/middleware"
	"github.com/deepaksuthar40128/RemoteDx/pkg/monitoring"
	"github.com/deepaksuthar40128/RemoteDx/pkg/orchestrator"
	"github.com/deepaksuthar40128/RemoteDx/pkg/report"
	httpserver "github.com/deepaksuthar40128/RemoteDx/pkg/server"
	"github.com/deepaksuthar40128/RemoteDx/pkg/version"
)

const (
	defaultMaxRuns    = 20
	defaultMaxActive  = 4
	defaultRunTimeout = 2 * time.Minute
	csvFilename       = "diagnostics_report.csv"
)

// Options configures the API.
type Options struct {
	Logger         logging.Logger
	Orchestrator   *orchestrator.Orchestrator
	Metrics        *monitoring.MetricsCollector
	MachineOptions []machine.Option
	// Seed, when non-zero, makes every run reproducible.
	Seed       int64
	RunTimeout time.Duration
	MaxRuns    int
	MaxActive  int
}

// API serves diagnostics runs.
type API struct {
	logger     logging.Logger
	orch       *orchestrator.Orchestrator
	metrics    *monitoring.MetricsCollector
	health     *monitoring.HealthChecker
	store      *runStore
	machineOpt []machine.Option
	seed       int64
	runTimeout time.Duration
	maxActive  int
	active     atomic.Int32
}

// New builds the API from opts, filling in defaults.
func New(opts Options) *API {
	a := &API{
		logger:     opts.Logger,
		orch:       opts.Orchestrator,
		metrics:    opts.Metrics,
		machineOpt: opts.MachineOptions,
		seed:       opts.Seed,
		runTimeout: opts.RunTimeout,
		maxActive:  opts.MaxActive,
	}
	if a.logger == nil {
		a.logger = logging.NewDiscardLogger()
	}
	if a.orch == nil {
		a.orch = orchestrator.New(nil, orchestrator.WithLogger(a.logger))
	}
	if a.runTimeout <= 0 {
		a.runTimeout = defaultRunTimeout
	}
	if a.maxActive <= 0 {
		a.maxActive = defaultMaxActive
	}
	maxRuns := opts.MaxRuns
	if maxRuns <= 0 {
		maxRuns = defaultMaxRuns
	}
	a.store = newRunStore(maxRuns)

	a.health = monitoring.NewHealthChecker("remotedx", version.Version)
	a.health.AddCheck("active_runs", monitoring.CapacityHealthCheck("active runs",
		func() int { return int(a.active.Load()) }, a.maxActive))
	return a
}

// Router returns the gin engine with every route registered.
func (a *API) Router() *gin.Engine {
	r := httpserver.SetupRouter(a.logger, a.health, a.metrics)

	v1 := r.Group("/api/v1")
	v1.GET("/diagnostics", a.listRuns)
	v1.POST("/diagnostics", a.createRun)
	v1.GET("/diagnostics/:id", a.getRun)
	v1.GET("/diagnostics/:id/csv", a.getRunCSV)
	return r
}

func (a *API) createRun(c *gin.Context) {
	log := middleware.ContextLogger(c, a.logger)

	if n := a.active.Add(1); int(n) > a.maxActive {
		a.active.Add(-1)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many diagnostics runs in progress"})
		return
	}
	defer a.active.Add(-1)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("could not read request body: %v", err)})
		return
	}

	configs, err := inventory.Parse(body, "request body")
	if err != nil {
		log.WithError(err).Warn("Rejected machine configuration")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	machines, buildErrs := inventory.BuildMachines(configs, a.seed, a.machineOpt...)
	skipped := make([]string, 0, len(buildErrs))
	for _, e := range buildErrs {
		skipped = append(skipped, e.Error())
	}
	if len(machines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid machines to diagnose", "skipped": skipped})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), a.runTimeout)
	defer cancel()

	runErr := a.orch.RunAll(ctx, machines)
	run := &Run{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Summary:   report.Summarize(machines),
		Rows:      report.Rows(machines),
		Skipped:   skipped,
		Cancelled: errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded),
	}
	a.store.put(run)

	log.WithFields(logging.Fields{
		"run_id":    run.ID,
		"machines":  len(machines),
		"skipped":   len(skipped),
		"pass_rate": run.Summary.PassRate,
	}).Info("Diagnostics run stored")

	c.JSON(http.StatusCreated, run)
}

type runListItem struct {
	ID        string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Machines  int       `json:"machines"`
	PassRate  float64   `json:"pass_rate"`
}

func (a *API) listRuns(c *gin.Context) {
	runs := a.store.list()
	items := make([]runListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, runListItem{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Machines:  len(r.Summary.Machines),
			PassRate:  r.Summary.PassRate,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": items})
}

func (a *API) getRun(c *gin.Context) {
	run, ok := a.store.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (a *API) getRunCSV(c *gin.Context) {
	run, ok := a.store.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if len(run.Rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": report.ErrNoRows.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvFilename))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, run.Rows); err != nil {
		middleware.ContextLogger(c, a.logger).WithError(err).Error("Failed to write CSV")
	}
}
