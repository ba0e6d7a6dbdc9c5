// Package engine contains the production planning optimizer and the
// catalog lookup operations built on the same collaborators.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rsned/production-planner/internal/config"
	"github.com/rsned/production-planner/internal/logger"
	"github.com/rsned/production-planner/internal/metrics"
	"github.com/rsned/production-planner/pkg/planner"
)

// Catalog supplies recipe data to the optimizer.
type Catalog interface {
	CandidateRecipes(ctx context.Context) ([]planner.Recipe, error)
	RecipeDetails(ctx context.Context, ids []int) ([]planner.Recipe, error)
}

// SelectionSource loads a user's recipe configuration.
type SelectionSource interface {
	LoadSelection(ctx context.Context, userKey string) (planner.RecipeSelection, error)
}

// RecipeIndex answers catalog lookups by recipe and item.
type RecipeIndex interface {
	GetRecipe(ctx context.Context, id int) (*planner.Recipe, error)
	GetRecipeDetails(ctx context.Context, ids []int) ([]planner.Recipe, error)
	SearchRecipes(ctx context.Context, term string, limit int) ([]planner.RecipeSearchHit, error)
	GetRecipesUsingItem(ctx context.Context, itemID int) ([]int, error)
	GetRecipesProducingItem(ctx context.Context, itemID int) ([]int, error)
}

// ItemSource looks up catalog items.
type ItemSource interface {
	GetItem(ctx context.Context, id int) (*planner.Item, error)
}

// ErrLookupUnavailable is returned by lookups on an engine built without
// a RecipeIndex.
var ErrLookupUnavailable = errors.New("catalog lookups are not configured")

// Engine is the production planning optimizer. It keeps no per-request
// state; concurrent Optimize calls are safe.
type Engine struct {
	world      *config.WorldConfig
	catalog    Catalog
	selections SelectionSource
	recipes    RecipeIndex
	items      ItemSource
	solver     Solver
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSolver replaces the default SimplexSolver.
func WithSolver(s Solver) Option {
	return func(e *Engine) { e.solver = s }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSelectionSource sets where user selections are loaded from when a
// request carries none.
func WithSelectionSource(s SelectionSource) Option {
	return func(e *Engine) { e.selections = s }
}

// WithLookup enables RecipeLookup and ItemUses.
func WithLookup(recipes RecipeIndex, items ItemSource) Option {
	return func(e *Engine) {
		e.recipes = recipes
		e.items = items
	}
}

// New creates an Engine for world backed by catalog. A nil world uses
// config.DefaultWorld.
func New(world *config.WorldConfig, catalog Catalog, opts ...Option) *Engine {
	if world == nil {
		world = config.DefaultWorld()
	}
	e := &Engine{
		world:   world,
		catalog: catalog,
		solver:  SimplexSolver{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// World returns the engine's world config.
func (e *Engine) World() *config.WorldConfig {
	return e.world
}

// Optimize computes the cheapest production plan meeting req.Targets.
func (e *Engine) Optimize(ctx context.Context, req planner.OptimizeRequest) (resp *planner.OptimizeResponse, err error) {
	ctx, _ = logger.EnsureRequestID(ctx)
	log := logger.FromContext(ctx, e.logger)
	start := time.Now()

	var (
		solveTime time.Duration
		planSize  int
	)
	defer func() {
		metrics.ObserveOptimization(err, solveTime, planSize)
		if err != nil {
			log.Warn("optimization failed", "outcome", metrics.Outcome(err), "error", err, "duration", time.Since(start))
			return
		}
		log.Info("optimization complete", "recipes", planSize, "objective", resp.Objective, "duration", time.Since(start))
	}()

	targets, err := normalizeTargets(req.Targets)
	if err != nil {
		return nil, err
	}
	log.Info("optimization started", "targets", len(targets), "user", req.UserKey)

	recipes, selection, err := e.loadInputs(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates := FilterCandidates(recipes, selection, e.world.UnpackageRecipes, log)
	candidates, err = validateCandidates(candidates, e.world.StrictRecipes, log)
	if err != nil {
		return nil, err
	}

	m, err := BuildFlowMatrix(candidates)
	if err != nil {
		return nil, err
	}
	items, cols := m.Dims()
	log.Debug("flow matrix built", "items", items, "recipes", cols)

	cs, err := AssembleConstraints(m, e.world.RawResourceLimits, targets, OverlapPolicy{
		CapTargetedResources: e.world.CapTargetedResources,
	})
	if err != nil {
		return nil, err
	}
	for _, id := range cs.UncappedTargets {
		log.Warn("raw resource is also a target, extraction cap not applied", "item_id", id)
	}

	c := BuildObjective(m, e.world.RawResourceLimits, e.world.TieBreakCost)
	problem := NewProblem(m, cs, c)

	// One budget covers the solve and any infeasibility diagnosis. A
	// deadline on ctx that comes sooner wins.
	budget := e.world.Timeout()
	solveCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	solveStart := time.Now()
	sol, err := solveWithTimeout(solveCtx, e.solver, problem, budget)
	if err != nil {
		var infeasible *planner.OptimizationInfeasibleError
		if errors.As(err, &infeasible) && infeasible.Family == planner.FamilyUnknown {
			infeasible.Family = diagnoseInfeasible(solveCtx, e.solver, m, cs, c, budget)
		}
		solveTime = time.Since(solveStart)
		return nil, err
	}
	solveTime = time.Since(solveStart)
	log.Debug("solve finished", "duration", solveTime, "objective", sol.Objective)

	resp, err = Interpret(ctx, e.catalog, m, sol, targets, e.world.RawResourceLimits, e.world.Significance)
	if err != nil {
		return nil, err
	}
	planSize = len(resp.ProductionLine)
	return resp, nil
}

// loadInputs fetches the candidate recipes and the user's selection in
// parallel.
func (e *Engine) loadInputs(ctx context.Context, req planner.OptimizeRequest) ([]planner.Recipe, planner.RecipeSelection, error) {
	var (
		recipes   []planner.Recipe
		selection = req.Selection
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recipes, err = e.catalog.CandidateRecipes(gctx)
		if err != nil {
			return fmt.Errorf("loading candidate recipes: %w", err)
		}
		return nil
	})
	if selection == nil && req.UserKey != "" && e.selections != nil {
		g.Go(func() error {
			var err error
			selection, err = e.selections.LoadSelection(gctx, req.UserKey)
			if err != nil {
				return fmt.Errorf("loading recipe selection: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if selection == nil {
		selection = DefaultSelection(recipes)
	}
	return recipes, selection, nil
}

// normalizeTargets validates targets. A product listed more than once
// keeps its first position and its last rate.
func normalizeTargets(targets []planner.Target) ([]planner.Target, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: at least one target is required", planner.ErrInvalidRequest)
	}

	index := make(map[int]int, len(targets))
	out := make([]planner.Target, 0, len(targets))
	for _, t := range targets {
		if t.ProductID <= 0 {
			return nil, fmt.Errorf("%w: target product id %d must be positive", planner.ErrInvalidRequest, t.ProductID)
		}
		if math.IsNaN(t.Rate) || math.IsInf(t.Rate, 0) || t.Rate < 0 {
			return nil, fmt.Errorf("%w: target %d rate %v must be finite and non-negative", planner.ErrInvalidRequest, t.ProductID, t.Rate)
		}
		if i, dup := index[t.ProductID]; dup {
			out[i].Rate = t.Rate
			continue
		}
		index[t.ProductID] = len(out)
		out = append(out, t)
	}
	return out, nil
}
