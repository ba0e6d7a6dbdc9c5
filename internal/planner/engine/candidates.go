package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/rsned/production-planner/pkg/planner"
)

// FilterCandidates returns the recipes a user may schedule, in catalog order.
//
// A recipe is admissible when it is known, not excluded and not listed in
// unpackage. An admissible recipe is a candidate unless its config names a
// different preferred recipe that shares one of its products and is itself
// admissible. Recipes with no selection entry are not known.
func FilterCandidates(recipes []planner.Recipe, selection planner.RecipeSelection, unpackage []int, log *slog.Logger) []planner.Recipe {
	if log == nil {
		log = slog.Default()
	}

	blocked := make(map[int]bool, len(unpackage))
	for _, id := range unpackage {
		blocked[id] = true
	}

	byID := make(map[int]*planner.Recipe, len(recipes))
	for i := range recipes {
		byID[recipes[i].ID] = &recipes[i]
	}

	admissible := func(id int) bool {
		rc, ok := selection[id]
		return ok && rc.Known && !rc.Excluded && !blocked[id] && byID[id] != nil
	}

	var candidates []planner.Recipe
	for _, r := range recipes {
		if !admissible(r.ID) {
			continue
		}

		pref := selection[r.ID].Preferred
		if pref != 0 && pref != r.ID {
			p := byID[pref]
			switch {
			case p == nil:
				log.Debug("ignoring preference for unknown recipe", "recipe_id", r.ID, "preferred", pref)
			case !sharesProduct(&r, p):
				log.Debug("ignoring preference outside product group", "recipe_id", r.ID, "preferred", pref)
			case !admissible(pref):
				log.Debug("ignoring preference for inadmissible recipe", "recipe_id", r.ID, "preferred", pref)
			default:
				continue
			}
		}

		candidates = append(candidates, r)
	}

	return candidates
}

func sharesProduct(a, b *planner.Recipe) bool {
	for _, p := range a.Products {
		if b.Produces(p.ID) {
			return true
		}
	}
	return false
}

// DefaultSelection marks every recipe known, not excluded and preferring itself.
func DefaultSelection(recipes []planner.Recipe) planner.RecipeSelection {
	sel := make(planner.RecipeSelection, len(recipes))
	for _, r := range recipes {
		sel[r.ID] = planner.RecipeConfig{RecipeID: r.ID, Known: true, Preferred: r.ID}
	}
	return sel
}

// ValidateRecipe checks that a recipe can be turned into matrix entries.
func ValidateRecipe(r *planner.Recipe) error {
	if math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0) || r.Duration <= 0 {
		return &planner.InvalidRecipeError{RecipeID: r.ID, Reason: fmt.Sprintf("duration %v must be positive", r.Duration)}
	}
	check := func(kind string, amounts []planner.ItemAmount) error {
		for _, a := range amounts {
			if math.IsNaN(a.Amount) || math.IsInf(a.Amount, 0) || a.Amount < 0 {
				return &planner.InvalidRecipeError{
					RecipeID: r.ID,
					Reason:   fmt.Sprintf("%s %d has amount %v", kind, a.ID, a.Amount),
				}
			}
		}
		return nil
	}
	if err := check("ingredient", r.Ingredients); err != nil {
		return err
	}
	return check("product", r.Products)
}

// validateCandidates applies the strictness policy. In strict mode the
// first invalid recipe fails the request; otherwise invalid recipes are
// logged and dropped.
func validateCandidates(candidates []planner.Recipe, strict bool, log *slog.Logger) ([]planner.Recipe, error) {
	valid := make([]planner.Recipe, 0, len(candidates))
	for i := range candidates {
		if err := ValidateRecipe(&candidates[i]); err != nil {
			if strict {
				return nil, err
			}
			log.Warn("excluding invalid recipe", "recipe_id", candidates[i].ID, "error", err)
			continue
		}
		valid = append(valid, candidates[i])
	}
	return valid, nil
}
