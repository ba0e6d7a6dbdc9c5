package engine

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/internal/config"
	"github.com/rsned/production-planner/pkg/planner"
)

// Item ids used by the test catalog.
const (
	itemOre    = 1
	itemIngot  = 2
	itemPlate  = 3
	itemWater  = 4
	itemScrew  = 5
	itemSlag   = 6
	itemRod    = 7
	itemFrame  = 8
	itemBundle = 9
)

// Recipe ids used by the test catalog.
const (
	recipeIngot      = 10
	recipePlate      = 11
	recipePureIngot  = 12
	recipeRod        = 13
	recipeScrew      = 14
	recipeFrame      = 15
	recipeSlagIngot  = 16
	recipeUnpackPlt  = 17
	recipeCastScrew  = 18
	recipeWaterPumps = 19
)

func amounts(pairs ...float64) []planner.ItemAmount {
	out := make([]planner.ItemAmount, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, planner.ItemAmount{ID: int(pairs[i]), Amount: pairs[i+1]})
	}
	return out
}

var smelter = &planner.Building{ID: 100, ClassName: "Build_SmelterMk1_C", DisplayName: "Smelter", PowerConsumption: 4}
var constructor = &planner.Building{ID: 101, ClassName: "Build_ConstructorMk1_C", DisplayName: "Constructor", PowerConsumption: 4}

func ingotRecipe() planner.Recipe {
	return planner.Recipe{ID: recipeIngot, DisplayName: "Iron Ingot", Duration: 2,
		Ingredients: amounts(itemOre, 1), Products: amounts(itemIngot, 1), ProducedIn: smelter}
}

func plateRecipe() planner.Recipe {
	return planner.Recipe{ID: recipePlate, DisplayName: "Iron Plate", Duration: 2,
		Ingredients: amounts(itemIngot, 1), Products: amounts(itemPlate, 2), ProducedIn: constructor}
}

func pureIngotRecipe() planner.Recipe {
	return planner.Recipe{ID: recipePureIngot, DisplayName: "Alternate: Pure Iron Ingot", Duration: 12,
		Ingredients: amounts(itemOre, 7, itemWater, 4), Products: amounts(itemIngot, 13)}
}

// testCatalog is a small iron production chain.
func testCatalog() []planner.Recipe {
	return []planner.Recipe{
		ingotRecipe(),
		plateRecipe(),
		pureIngotRecipe(),
		{ID: recipeRod, DisplayName: "Iron Rod", Duration: 4,
			Ingredients: amounts(itemIngot, 1), Products: amounts(itemRod, 1), ProducedIn: constructor},
		{ID: recipeScrew, DisplayName: "Screw", Duration: 6,
			Ingredients: amounts(itemRod, 1), Products: amounts(itemScrew, 4), ProducedIn: constructor},
		{ID: recipeFrame, DisplayName: "Reinforced Plate", Duration: 12,
			Ingredients: amounts(itemPlate, 6, itemScrew, 12), Products: amounts(itemFrame, 1)},
		{ID: recipeCastScrew, DisplayName: "Alternate: Cast Screw", Duration: 24,
			Ingredients: amounts(itemIngot, 5), Products: amounts(itemScrew, 20)},
	}
}

// memCatalog serves recipes from memory.
type memCatalog struct {
	recipes []planner.Recipe
	hide    map[int]bool // ids RecipeDetails pretends not to know
}

func (c *memCatalog) CandidateRecipes(context.Context) ([]planner.Recipe, error) {
	return append([]planner.Recipe(nil), c.recipes...), nil
}

func (c *memCatalog) RecipeDetails(_ context.Context, ids []int) ([]planner.Recipe, error) {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []planner.Recipe
	for _, r := range c.recipes {
		if want[r.ID] && !c.hide[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// memSelections serves a fixed selection for every user.
type memSelections struct {
	selection planner.RecipeSelection
	calls     int
}

func (s *memSelections) LoadSelection(context.Context, string) (planner.RecipeSelection, error) {
	s.calls++
	return s.selection, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorld(t *testing.T, limits map[int]float64) *config.WorldConfig {
	t.Helper()
	w := config.DefaultWorld()
	w.RawResourceLimits = limits
	w.UnpackageRecipes = nil
	require.NoError(t, w.Validate())
	return w
}

func newTestEngine(t *testing.T, world *config.WorldConfig, recipes []planner.Recipe, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(world, &memCatalog{recipes: recipes}, opts...)
}

// netFlows recomputes the per-minute net rate of every item from a plan.
func netFlows(resp *planner.OptimizeResponse) map[int]float64 {
	net := make(map[int]float64)
	for _, entry := range resp.ProductionLine {
		rpm := entry.RecipeData.RunsPerMinute() * entry.Scale
		for _, in := range entry.RecipeData.Ingredients {
			net[in.ID] -= in.Amount * rpm
		}
		for _, out := range entry.RecipeData.Products {
			net[out.ID] += out.Amount * rpm
		}
	}
	return net
}

func planIDs(resp *planner.OptimizeResponse) []int {
	ids := make([]int, 0, len(resp.ProductionLine))
	for id := range resp.ProductionLine {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
