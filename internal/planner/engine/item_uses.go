package engine

import (
	"context"
	"sort"

	"github.com/rsned/production-planner/pkg/planner"
)

// ItemUses lists the recipes that consume or produce itemID, with the
// per-cycle and per-minute quantity of the item in each.
func (e *Engine) ItemUses(ctx context.Context, itemID int) (*planner.ItemUsesResponse, error) {
	if e.recipes == nil {
		return nil, ErrLookupUnavailable
	}

	resp := &planner.ItemUsesResponse{
		ConsumedBy: []planner.ItemUse{},
		ProducedBy: []planner.ItemUse{},
	}

	if e.items != nil {
		item, err := e.items.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}
		resp.Item = item
	}

	consumers, err := e.recipes.GetRecipesUsingItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	producers, err := e.recipes.GetRecipesProducingItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	ids := append(append([]int(nil), consumers...), producers...)
	recipes, err := e.recipes.GetRecipeDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range recipes {
		r := &recipes[i]
		for _, in := range r.Ingredients {
			if in.ID == itemID {
				resp.ConsumedBy = append(resp.ConsumedBy, itemUse(r, in.Amount))
			}
		}
		for _, out := range r.Products {
			if out.ID == itemID {
				resp.ProducedBy = append(resp.ProducedBy, itemUse(r, out.Amount))
			}
		}
	}

	// Highest throughput first.
	byRate := func(uses []planner.ItemUse) {
		sort.SliceStable(uses, func(i, j int) bool {
			if uses[i].PerMinute != uses[j].PerMinute {
				return uses[i].PerMinute > uses[j].PerMinute
			}
			return uses[i].RecipeID < uses[j].RecipeID
		})
	}
	byRate(resp.ConsumedBy)
	byRate(resp.ProducedBy)

	return resp, nil
}

func itemUse(r *planner.Recipe, amount float64) planner.ItemUse {
	return planner.ItemUse{
		RecipeID:   r.ID,
		RecipeName: r.DisplayName,
		PerCycle:   amount,
		PerMinute:  round3(amount * r.RunsPerMinute()),
	}
}
