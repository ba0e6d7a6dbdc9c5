package engine

import (
	"context"
	"sort"

	"github.com/rsned/production-planner/pkg/planner"
)

// searchLimit caps recipe_lookup search results.
const searchLimit = 10

// RecipeLookup executes the recipe_lookup tool logic.
func (e *Engine) RecipeLookup(ctx context.Context, req planner.RecipeLookupRequest) (*planner.RecipeLookupResponse, error) {
	if e.recipes == nil {
		return nil, ErrLookupUnavailable
	}
	resp := &planner.RecipeLookupResponse{}

	// If search term provided, search first
	if req.Search != "" {
		hits, err := e.recipes.SearchRecipes(ctx, req.Search, searchLimit)
		if err != nil {
			return nil, err
		}
		resp.SearchResults = hits

		// A single hit with no explicit id is the recipe being asked for.
		if len(hits) == 1 && req.RecipeID == 0 {
			req.RecipeID = hits[0].RecipeID
		}
	}

	if req.RecipeID == 0 {
		return resp, nil
	}

	recipe, err := e.recipes.GetRecipe(ctx, req.RecipeID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return resp, nil
	}
	resp.Recipe = recipe

	// Recipes that consume any of this recipe's products.
	seen := make(map[int]bool)
	for _, p := range recipe.Products {
		usedIn, err := e.recipes.GetRecipesUsingItem(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range usedIn {
			if id != recipe.ID && !seen[id] {
				seen[id] = true
				resp.UsedInRecipes = append(resp.UsedInRecipes, id)
			}
		}
	}
	sort.Ints(resp.UsedInRecipes)

	return resp, nil
}
