package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rsned/production-planner/pkg/planner"
)

// Average draw in MW for buildings whose catalog consumption is variable
// and therefore listed as 0.
var powerOverrides = map[string]float64{
	"Build_Converter_C":      250,
	"Build_HadronCollider_C": 500,
	"Build_QuantumEncoder_C": 1000,
}

// BuildingPower returns the average power draw of b in MW.
func BuildingPower(b *planner.Building) float64 {
	if b == nil {
		return 0
	}
	if p, ok := powerOverrides[b.ClassName]; ok {
		return p
	}
	return b.PowerConsumption
}

// Interpret turns solved scales into a production plan. Scales at or below
// significance are dropped, the rest are decorated with recipe details
// from catalog.
func Interpret(
	ctx context.Context,
	catalog Catalog,
	m *FlowMatrix,
	sol Solution,
	targets []planner.Target,
	limits map[int]float64,
	significance float64,
) (*planner.OptimizeResponse, error) {
	if len(sol.Scales) != len(m.RecipeIDs) {
		return nil, fmt.Errorf("solution has %d scales for %d recipes", len(sol.Scales), len(m.RecipeIDs))
	}

	// Retained scales only, so usage is computed over the reported plan.
	scales := make([]float64, len(sol.Scales))
	var retained []int
	for col, s := range sol.Scales {
		if s > significance {
			scales[col] = s
			retained = append(retained, m.RecipeIDs[col])
		}
	}
	sort.Ints(retained)

	details := make(map[int]planner.Recipe, len(retained))
	if len(retained) > 0 {
		recipes, err := catalog.RecipeDetails(ctx, retained)
		if err != nil {
			return nil, fmt.Errorf("loading recipe details: %w", err)
		}
		for _, r := range recipes {
			details[r.ID] = r
		}
	}

	resp := &planner.OptimizeResponse{
		TargetOutput:     make([]planner.TargetOutput, 0, len(targets)),
		ProductionLine:   make(map[int]planner.PlanEntry, len(retained)),
		RawResourceUsage: []planner.ResourceUsage{},
		Objective:        sol.Objective,
	}

	targeted := make(map[int]bool, len(targets))
	for _, t := range targets {
		targeted[t.ProductID] = true
		resp.TargetOutput = append(resp.TargetOutput, planner.TargetOutput{ItemID: t.ProductID, Amount: t.Rate})
	}

	plan := make([]planner.Recipe, 0, len(retained))
	for _, id := range retained {
		r, ok := details[id]
		if !ok {
			return nil, &planner.DataIntegrityError{Kind: "recipe", ID: id, Msg: "missing from catalog details"}
		}
		col, _ := m.RecipeCol(id)
		resp.ProductionLine[id] = planner.PlanEntry{RecipeData: r, Scale: scales[col]}
		resp.TotalPowerMW += scales[col] * BuildingPower(r.ProducedIn)
		plan = append(plan, r)
	}
	resp.TotalPowerMW = round3(resp.TotalPowerMW)

	if m.Coeffs != nil {
		for row, id := range m.ItemIDs {
			net := m.NetFlow(row, scales)
			_, raw := limits[id]
			switch {
			case raw && net < -usageEpsilon:
				resp.RawResourceUsage = append(resp.RawResourceUsage, planner.ResourceUsage{
					ItemID:        id,
					TotalQuantity: round3(-net),
				})
			case !targeted[id] && net > usageEpsilon:
				resp.Byproducts = append(resp.Byproducts, planner.Byproduct{ItemID: id, Rate: round3(net)})
			}
		}
	}

	resp.BuildOrder = buildOrder(plan)
	return resp, nil
}

// usageEpsilon is the smallest net flow reported as usage or surplus.
const usageEpsilon = 1e-6

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// buildOrder sorts the plan so that every recipe comes after the recipes
// that produce its ingredients. Ties are broken by recipe id; recipes on a
// cycle are appended in id order.
func buildOrder(plan []planner.Recipe) []int {
	if len(plan) == 0 {
		return nil
	}

	producers := make(map[int][]int) // item -> recipe ids
	for _, r := range plan {
		for _, p := range r.Products {
			producers[p.ID] = append(producers[p.ID], r.ID)
		}
	}

	inDegree := make(map[int]int, len(plan))
	adjacency := make(map[int][]int)
	for _, r := range plan {
		if _, exists := inDegree[r.ID]; !exists {
			inDegree[r.ID] = 0
		}
		deps := make(map[int]bool)
		for _, in := range r.Ingredients {
			for _, p := range producers[in.ID] {
				if p != r.ID && !deps[p] {
					deps[p] = true
					adjacency[p] = append(adjacency[p], r.ID)
					inDegree[r.ID]++
				}
			}
		}
	}

	var queue []int
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Ints(queue)

	sorted := make([]int, 0, len(plan))
	placed := make(map[int]bool, len(plan))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)
		placed[current] = true

		var ready []int
		for _, dependent := range adjacency[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		if len(ready) > 0 {
			queue = append(queue, ready...)
			sort.Ints(queue)
		}
	}

	if len(sorted) < len(plan) {
		var cyclic []int
		for _, r := range plan {
			if !placed[r.ID] {
				cyclic = append(cyclic, r.ID)
			}
		}
		sort.Ints(cyclic)
		sorted = append(sorted, cyclic...)
	}

	return sorted
}
