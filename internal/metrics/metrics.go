// Package metrics holds the Prometheus collectors for the planner.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rsned/production-planner/pkg/planner"
)

// Metric names
const (
	MetricNameOptimizations        = "planner_optimizations_total"
	MetricNameSolveDuration        = "planner_solve_duration_seconds"
	MetricNamePlanRecipes          = "planner_plan_recipes"
	MetricNameCatalogCache         = "planner_catalog_cache_total"
	MetricNameHTTPRequestsTotal    = "planner_http_requests_total"
	MetricNameHTTPRequestDuration  = "planner_http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "planner_http_requests_in_flight"
)

// Label names
const (
	LabelOutcome = "outcome"
	LabelResult  = "result"
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
)

// Optimization outcomes
const (
	OutcomeOK            = "ok"
	OutcomeInfeasible    = "infeasible"
	OutcomeEmpty         = "empty_candidates"
	OutcomeInvalidRecipe = "invalid_recipe"
	OutcomeTimeout       = "timeout"
	OutcomeIntegrity     = "data_integrity"
	OutcomeCanceled      = "canceled"
	OutcomeInvalidReq    = "invalid_request"
	OutcomeError         = "error"
)

// LatencyBuckets range from 1ms to 30s, the default solver timeout.
var LatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Optimizer metrics
var (
	Optimizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameOptimizations,
			Help: "Total number of optimization requests by outcome",
		},
		[]string{LabelOutcome},
	)

	SolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameSolveDuration,
			Help:    "LP solve latency in seconds",
			Buckets: LatencyBuckets,
		},
	)

	PlanRecipes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNamePlanRecipes,
			Help:    "Number of recipes retained in a production plan",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		},
	)

	CatalogCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameCatalogCache,
			Help: "Catalog snapshot cache lookups by result",
		},
		[]string{LabelResult},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    "HTTP request latency in seconds",
			Buckets: LatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Outcome classifies an optimization result for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, planner.ErrInfeasible):
		return OutcomeInfeasible
	case errors.Is(err, planner.ErrEmptyCandidateSet):
		return OutcomeEmpty
	case errors.Is(err, planner.ErrInvalidRecipe):
		return OutcomeInvalidRecipe
	case errors.Is(err, planner.ErrSolverTimeout):
		return OutcomeTimeout
	case errors.Is(err, planner.ErrDataIntegrity):
		return OutcomeIntegrity
	case errors.Is(err, planner.ErrInvalidRequest):
		return OutcomeInvalidReq
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	}
	return OutcomeError
}

// ObserveOptimization records one finished optimization.
func ObserveOptimization(err error, solve time.Duration, planSize int) {
	Optimizations.WithLabelValues(Outcome(err)).Inc()
	if solve > 0 {
		SolveDuration.Observe(solve.Seconds())
	}
	if err == nil {
		PlanRecipes.Observe(float64(planSize))
	}
}
