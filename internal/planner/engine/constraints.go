package engine

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rsned/production-planner/pkg/planner"
)

// Constraint is one row of the LP: Σ m[item,r]·s_r ≥ Bound.
type Constraint struct {
	Family planner.ConstraintFamily
	ItemID int
	Row    int // row of the flow matrix
	Bound  float64
}

// ConstraintSet is the assembled constraints for one request.
type ConstraintSet struct {
	Rows []Constraint

	// Targeted raw resources whose capacity row was not emitted.
	UncappedTargets []int
}

// OverlapPolicy decides how an item that is both a target and a raw
// resource is constrained. The target row always applies.
type OverlapPolicy struct {
	CapTargetedResources bool
}

// AssembleConstraints builds target rows (request order), then flow
// balance rows and capacity rows (item id order). A target that is
// missing from the matrix, or that no recipe produces, fails with
// EmptyCandidateSetError.
func AssembleConstraints(m *FlowMatrix, limits map[int]float64, targets []planner.Target, policy OverlapPolicy) (*ConstraintSet, error) {
	cs := &ConstraintSet{}
	targeted := make(map[int]bool, len(targets))

	var unreachable []int
	for _, t := range targets {
		targeted[t.ProductID] = true
		row, ok := m.ItemRow(t.ProductID)
		if !ok || !hasPositive(m.Coeffs.RowView(row)) {
			unreachable = append(unreachable, t.ProductID)
			continue
		}
		cs.Rows = append(cs.Rows, Constraint{
			Family: planner.FamilyTarget,
			ItemID: t.ProductID,
			Row:    row,
			Bound:  t.Rate,
		})
	}
	if len(unreachable) > 0 {
		return nil, &planner.EmptyCandidateSetError{ItemIDs: unreachable}
	}

	for row, id := range m.ItemIDs {
		if targeted[id] {
			continue
		}
		if _, raw := limits[id]; raw {
			continue
		}
		cs.Rows = append(cs.Rows, Constraint{
			Family: planner.FamilyFlowBalance,
			ItemID: id,
			Row:    row,
		})
	}

	for row, id := range m.ItemIDs {
		limit, raw := limits[id]
		if !raw {
			continue
		}
		if targeted[id] && !policy.CapTargetedResources {
			cs.UncappedTargets = append(cs.UncappedTargets, id)
			continue
		}
		cs.Rows = append(cs.Rows, Constraint{
			Family: planner.FamilyRawResource,
			ItemID: id,
			Row:    row,
			Bound:  -limit,
		})
	}

	return cs, nil
}

// Without returns a copy of the set with the given families removed.
func (cs *ConstraintSet) Without(families ...planner.ConstraintFamily) *ConstraintSet {
	drop := make(map[planner.ConstraintFamily]bool, len(families))
	for _, f := range families {
		drop[f] = true
	}
	out := &ConstraintSet{UncappedTargets: cs.UncappedTargets}
	for _, c := range cs.Rows {
		if !drop[c.Family] {
			out.Rows = append(out.Rows, c)
		}
	}
	return out
}

// Count returns the number of rows in family.
func (cs *ConstraintSet) Count(family planner.ConstraintFamily) int {
	n := 0
	for _, c := range cs.Rows {
		if c.Family == family {
			n++
		}
	}
	return n
}

func hasPositive(v mat.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		if v.AtVec(i) > 0 {
			return true
		}
	}
	return false
}
