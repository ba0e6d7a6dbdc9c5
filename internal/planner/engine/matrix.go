package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/rsned/production-planner/pkg/planner"
)

var sixty = decimal.NewFromInt(60)

// FlowMatrix holds the per-minute net rate of every item for every
// candidate recipe at scale 1. Rows are items sorted by id; columns are
// recipes in candidate order.
type FlowMatrix struct {
	// Coeffs is nil when there are no items or no recipes.
	Coeffs    *mat.Dense
	ItemIDs   []int
	RecipeIDs []int

	// Per-cycle quantities by column.
	Inputs  []map[int]float64
	Outputs []map[int]float64

	itemIndex   map[int]int
	recipeIndex map[int]int
}

// BuildFlowMatrix computes the flow matrix for recipes. Each entry is
// (out - in) * 60 / duration, evaluated in decimal before conversion to
// float64.
func BuildFlowMatrix(recipes []planner.Recipe) (*FlowMatrix, error) {
	m := &FlowMatrix{
		RecipeIDs:   make([]int, len(recipes)),
		Inputs:      make([]map[int]float64, len(recipes)),
		Outputs:     make([]map[int]float64, len(recipes)),
		itemIndex:   make(map[int]int),
		recipeIndex: make(map[int]int, len(recipes)),
	}

	seen := make(map[int]bool)
	for col := range recipes {
		r := &recipes[col]
		if err := ValidateRecipe(r); err != nil {
			return nil, err
		}
		if _, dup := m.recipeIndex[r.ID]; dup {
			return nil, &planner.DataIntegrityError{Kind: "recipe", ID: r.ID, Msg: "duplicate candidate"}
		}
		m.RecipeIDs[col] = r.ID
		m.recipeIndex[r.ID] = col

		in := make(map[int]float64, len(r.Ingredients))
		for _, a := range r.Ingredients {
			in[a.ID] += a.Amount
			seen[a.ID] = true
		}
		out := make(map[int]float64, len(r.Products))
		for _, a := range r.Products {
			out[a.ID] += a.Amount
			seen[a.ID] = true
		}
		m.Inputs[col] = in
		m.Outputs[col] = out
	}

	m.ItemIDs = make([]int, 0, len(seen))
	for id := range seen {
		m.ItemIDs = append(m.ItemIDs, id)
	}
	sort.Ints(m.ItemIDs)
	for row, id := range m.ItemIDs {
		m.itemIndex[id] = row
	}

	if len(m.ItemIDs) == 0 || len(recipes) == 0 {
		return m, nil
	}

	m.Coeffs = mat.NewDense(len(m.ItemIDs), len(recipes), nil)
	for col := range recipes {
		duration := decimal.NewFromFloat(recipes[col].Duration)
		for _, id := range m.ItemIDs {
			out, produced := m.Outputs[col][id]
			in, consumed := m.Inputs[col][id]
			if !produced && !consumed {
				continue
			}

			rate, _ := decimal.NewFromFloat(out).
				Sub(decimal.NewFromFloat(in)).
				Mul(sixty).
				Div(duration).
				Float64()
			if math.IsNaN(rate) || math.IsInf(rate, 0) {
				return nil, &planner.InvalidRecipeError{
					RecipeID: recipes[col].ID,
					Reason:   fmt.Sprintf("rate for item %d is not finite", id),
				}
			}
			m.Coeffs.Set(m.itemIndex[id], col, rate)
		}
	}

	return m, nil
}

// ItemRow returns the row index of itemID.
func (m *FlowMatrix) ItemRow(itemID int) (int, bool) {
	row, ok := m.itemIndex[itemID]
	return row, ok
}

// RecipeCol returns the column index of recipeID.
func (m *FlowMatrix) RecipeCol(recipeID int) (int, bool) {
	col, ok := m.recipeIndex[recipeID]
	return col, ok
}

// At returns the net rate of itemID for recipeID, or 0 when either is absent.
func (m *FlowMatrix) At(itemID, recipeID int) float64 {
	row, ok := m.itemIndex[itemID]
	if !ok || m.Coeffs == nil {
		return 0
	}
	col, ok := m.recipeIndex[recipeID]
	if !ok {
		return 0
	}
	return m.Coeffs.At(row, col)
}

// Dims returns the number of items and recipes.
func (m *FlowMatrix) Dims() (items, recipes int) {
	return len(m.ItemIDs), len(m.RecipeIDs)
}

// NetFlow returns the net per-minute rate of the item at row for the given
// scales.
func (m *FlowMatrix) NetFlow(row int, scales []float64) float64 {
	if m.Coeffs == nil {
		return 0
	}
	return mat.Dot(m.Coeffs.RowView(row), mat.NewVecDense(len(scales), scales))
}
