// Package catalog caches recipe data read by the optimizer.
package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rsned/production-planner/internal/metrics"
	"github.com/rsned/production-planner/pkg/planner"
)

// Store is the backing recipe source, normally *db.RecipeStore.
type Store interface {
	GetCandidateRecipes(ctx context.Context) ([]planner.Recipe, error)
	GetRecipeDetails(ctx context.Context, ids []int) ([]planner.Recipe, error)
}

const snapshotKey = "candidates"

// Catalog serves candidate recipes from a TTL snapshot and recipe details
// from a size bounded LRU, falling back to the store on a miss.
type Catalog struct {
	store    Store
	snapshot *expirable.LRU[string, []planner.Recipe]
	recipes  *expirable.LRU[int, planner.Recipe]
}

// New creates a Catalog over store. size bounds the recipe detail cache
// (0 is unbounded) and ttl is how long a loaded entry stays valid
// (0 never expires).
func New(store Store, size int, ttl time.Duration) *Catalog {
	return &Catalog{
		store:    store,
		snapshot: expirable.NewLRU[string, []planner.Recipe](1, nil, ttl),
		recipes:  expirable.NewLRU[int, planner.Recipe](size, nil, ttl),
	}
}

// CandidateRecipes returns every recipe in the catalog.
func (c *Catalog) CandidateRecipes(ctx context.Context) ([]planner.Recipe, error) {
	if cached, ok := c.snapshot.Get(snapshotKey); ok {
		metrics.CatalogCache.WithLabelValues("hit").Inc()
		return append([]planner.Recipe(nil), cached...), nil
	}
	metrics.CatalogCache.WithLabelValues("miss").Inc()

	recipes, err := c.store.GetCandidateRecipes(ctx)
	if err != nil {
		return nil, err
	}
	c.snapshot.Add(snapshotKey, recipes)
	for _, r := range recipes {
		c.recipes.Add(r.ID, r)
	}
	return append([]planner.Recipe(nil), recipes...), nil
}

// RecipeDetails returns the recipes with the given ids in request order.
// Unknown ids are skipped.
func (c *Catalog) RecipeDetails(ctx context.Context, ids []int) ([]planner.Recipe, error) {
	found := make(map[int]planner.Recipe, len(ids))
	var missing []int
	for _, id := range ids {
		if r, ok := c.recipes.Get(id); ok {
			found[id] = r
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		metrics.CatalogCache.WithLabelValues("miss").Inc()
		loaded, err := c.store.GetRecipeDetails(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, r := range loaded {
			c.recipes.Add(r.ID, r)
			found[r.ID] = r
		}
	} else if len(ids) > 0 {
		metrics.CatalogCache.WithLabelValues("hit").Inc()
	}

	out := make([]planner.Recipe, 0, len(found))
	seen := make(map[int]bool, len(found))
	for _, id := range ids {
		if r, ok := found[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// Invalidate drops every cached entry. Call it after the catalog tables
// change.
func (c *Catalog) Invalidate() {
	c.snapshot.Purge()
	c.recipes.Purge()
}
