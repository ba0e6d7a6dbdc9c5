package engine

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/pkg/planner"
)

// memIndex implements RecipeIndex and ItemSource over a fixed catalog.
type memIndex struct {
	recipes []planner.Recipe
	items   map[int]planner.Item
}

func (x *memIndex) GetRecipe(_ context.Context, id int) (*planner.Recipe, error) {
	for i := range x.recipes {
		if x.recipes[i].ID == id {
			r := x.recipes[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (x *memIndex) GetRecipeDetails(_ context.Context, ids []int) ([]planner.Recipe, error) {
	want := make(map[int]bool)
	for _, id := range ids {
		want[id] = true
	}
	var out []planner.Recipe
	for _, r := range x.recipes {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (x *memIndex) SearchRecipes(_ context.Context, term string, limit int) ([]planner.RecipeSearchHit, error) {
	var hits []planner.RecipeSearchHit
	for _, r := range x.recipes {
		if strings.Contains(strings.ToLower(r.DisplayName), strings.ToLower(term)) && len(hits) < limit {
			hits = append(hits, planner.RecipeSearchHit{RecipeID: r.ID, DisplayName: r.DisplayName})
		}
	}
	return hits, nil
}

func (x *memIndex) GetRecipesUsingItem(_ context.Context, itemID int) ([]int, error) {
	var ids []int
	for _, r := range x.recipes {
		if r.Consumes(itemID) {
			ids = append(ids, r.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (x *memIndex) GetRecipesProducingItem(_ context.Context, itemID int) ([]int, error) {
	var ids []int
	for _, r := range x.recipes {
		if r.Produces(itemID) {
			ids = append(ids, r.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (x *memIndex) GetItem(_ context.Context, id int) (*planner.Item, error) {
	item, ok := x.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func newLookupEngine(t *testing.T) *Engine {
	t.Helper()
	idx := &memIndex{
		recipes: testCatalog(),
		items:   map[int]planner.Item{itemIngot: {ID: itemIngot, DisplayName: "Iron Ingot", Form: planner.FormSolid}},
	}
	return New(nil, &memCatalog{recipes: idx.recipes}, WithLogger(discardLogger()), WithLookup(idx, idx))
}

func TestRecipeLookup(t *testing.T) {
	e := newLookupEngine(t)
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		resp, err := e.RecipeLookup(ctx, planner.RecipeLookupRequest{RecipeID: recipeIngot})
		require.NoError(t, err)
		require.NotNil(t, resp.Recipe)
		assert.Equal(t, "Iron Ingot", resp.Recipe.DisplayName)
		assert.Equal(t, []int{recipePlate, recipeRod, recipeCastScrew}, resp.UsedInRecipes)
	})

	t.Run("single search hit resolves", func(t *testing.T) {
		resp, err := e.RecipeLookup(ctx, planner.RecipeLookupRequest{Search: "reinforced"})
		require.NoError(t, err)
		require.Len(t, resp.SearchResults, 1)
		require.NotNil(t, resp.Recipe)
		assert.Equal(t, recipeFrame, resp.Recipe.ID)
		assert.Empty(t, resp.UsedInRecipes)
	})

	t.Run("several hits return search only", func(t *testing.T) {
		resp, err := e.RecipeLookup(ctx, planner.RecipeLookupRequest{Search: "iron"})
		require.NoError(t, err)
		assert.Len(t, resp.SearchResults, 4)
		assert.Nil(t, resp.Recipe)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := e.RecipeLookup(ctx, planner.RecipeLookupRequest{RecipeID: 404})
		require.NoError(t, err)
		assert.Nil(t, resp.Recipe)
	})
}

func TestItemUses(t *testing.T) {
	e := newLookupEngine(t)

	resp, err := e.ItemUses(context.Background(), itemIngot)
	require.NoError(t, err)
	require.NotNil(t, resp.Item)
	assert.Equal(t, "Iron Ingot", resp.Item.DisplayName)

	require.Len(t, resp.ProducedBy, 2)
	assert.Equal(t, recipePureIngot, resp.ProducedBy[0].RecipeID)
	assert.Equal(t, 65.0, resp.ProducedBy[0].PerMinute)
	assert.Equal(t, recipeIngot, resp.ProducedBy[1].RecipeID)
	assert.Equal(t, 30.0, resp.ProducedBy[1].PerMinute)

	require.Len(t, resp.ConsumedBy, 3)
	assert.Equal(t, recipePlate, resp.ConsumedBy[0].RecipeID)
	assert.Equal(t, 1.0, resp.ConsumedBy[0].PerCycle)
	assert.Equal(t, 30.0, resp.ConsumedBy[0].PerMinute)
	assert.Equal(t, recipeRod, resp.ConsumedBy[1].RecipeID)
	assert.Equal(t, 15.0, resp.ConsumedBy[1].PerMinute)
	assert.Equal(t, recipeCastScrew, resp.ConsumedBy[2].RecipeID)
	assert.Equal(t, 12.5, resp.ConsumedBy[2].PerMinute)
}

func TestLookupUnavailable(t *testing.T) {
	e := New(nil, &memCatalog{})
	_, err := e.ItemUses(context.Background(), 1)
	assert.ErrorIs(t, err, ErrLookupUnavailable)
	_, err = e.RecipeLookup(context.Background(), planner.RecipeLookupRequest{RecipeID: 1})
	assert.ErrorIs(t, err, ErrLookupUnavailable)
}
