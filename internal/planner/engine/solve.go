package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/rsned/production-planner/pkg/planner"
)

// simplexTol is the reduced-cost tolerance passed to lp.Simplex.
const simplexTol = 1e-10

// Problem is an LP over recipe scales s ≥ 0:
//
//	minimize  Cᵀs
//	s.t.      A s ≥ B
type Problem struct {
	C        []float64
	A        *mat.Dense
	B        []float64
	Families []planner.ConstraintFamily // per row of A
}

// Solution holds the optimal scales, one per recipe column.
type Solution struct {
	Scales    []float64
	Objective float64
}

// Solver solves a Problem. Implementations must be safe for concurrent use.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// NewProblem builds the LP for the constraint rows of m.
func NewProblem(m *FlowMatrix, cs *ConstraintSet, c []float64) Problem {
	_, n := m.Dims()
	p := Problem{
		C:        c,
		B:        make([]float64, len(cs.Rows)),
		Families: make([]planner.ConstraintFamily, len(cs.Rows)),
	}
	if len(cs.Rows) == 0 || n == 0 {
		return p
	}

	p.A = mat.NewDense(len(cs.Rows), n, nil)
	for i, row := range cs.Rows {
		p.A.SetRow(i, mat.Row(nil, row.Row, m.Coeffs))
		p.B[i] = row.Bound
		p.Families[i] = row.Family
	}
	return p
}

// SimplexSolver solves problems with gonum's simplex implementation. Each
// ≥ row gets a surplus column, giving the standard form
// [A | -I][s; surplus] = B. Recipe columns that are zero in every row are
// fixed at 0 and left out of the solve.
type SimplexSolver struct{}

// Solve implements Solver. The simplex itself cannot be interrupted; ctx is
// only checked before starting.
func (SimplexSolver) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}

	n := len(p.C)
	sol := Solution{Scales: make([]float64, n)}
	if p.A == nil {
		// No rows: s = 0 is optimal for non-negative costs.
		return sol, nil
	}
	m, _ := p.A.Dims()

	var keep []int
	for col := 0; col < n; col++ {
		for row := 0; row < m; row++ {
			if p.A.At(row, col) != 0 {
				keep = append(keep, col)
				break
			}
		}
	}

	k := len(keep)
	std := mat.NewDense(m, k+m, nil)
	c := make([]float64, k+m)
	for j, col := range keep {
		c[j] = p.C[col]
		for row := 0; row < m; row++ {
			std.Set(row, j, p.A.At(row, col))
		}
	}
	for row := 0; row < m; row++ {
		std.Set(row, k+row, -1)
	}

	_, x, err := lp.Simplex(c, std, p.B, simplexTol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return Solution{}, &planner.OptimizationInfeasibleError{Family: planner.FamilyUnknown, Err: err}
	case errors.Is(err, lp.ErrUnbounded):
		return Solution{}, &planner.OptimizationInfeasibleError{Family: planner.FamilyUnbounded, Err: err}
	case err != nil:
		return Solution{}, fmt.Errorf("simplex: %w", err)
	}

	for j, col := range keep {
		if x[j] > 0 {
			sol.Scales[col] = x[j]
		}
	}
	// Recomputed over the clamped scales.
	sol.Objective = floats.Dot(p.C, sol.Scales)
	return sol, nil
}

// solveWithTimeout runs solver on its own goroutine and waits for the
// result, the end of ctx or timeout, whichever comes first. Running out of
// time, whether through timeout or a deadline on ctx, is a
// SolverTimeoutError; cancellation of ctx is returned wrapped.
func solveWithTimeout(ctx context.Context, solver Solver, p Problem, timeout time.Duration) (Solution, error) {
	type result struct {
		sol Solution
		err error
	}

	solveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		sol, err := solver.Solve(solveCtx, p)
		done <- result{sol: sol, err: err}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, context.DeadlineExceeded) || errors.Is(r.err, context.Canceled) {
			return Solution{}, solveStopped(ctx, timeout)
		}
		return r.sol, r.err
	case <-solveCtx.Done():
		return Solution{}, solveStopped(ctx, timeout)
	}
}

func solveStopped(ctx context.Context, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("solve canceled: %w", ctx.Err())
	}
	return &planner.SolverTimeoutError{Timeout: timeout}
}

// diagnoseInfeasible names the constraint family behind an infeasible
// solve by relaxing families one at a time: first the capacity rows, then
// flow balance. The relaxed solves share the deadline on ctx; running out
// of time or any other solve error leaves the family unknown.
func diagnoseInfeasible(ctx context.Context, solver Solver, m *FlowMatrix, cs *ConstraintSet, c []float64, timeout time.Duration) planner.ConstraintFamily {
	if ctx.Err() != nil {
		return planner.FamilyUnknown
	}
	if cs.Count(planner.FamilyRawResource) > 0 {
		_, err := solveWithTimeout(ctx, solver, NewProblem(m, cs.Without(planner.FamilyRawResource), c), timeout)
		if err == nil {
			return planner.FamilyRawResource
		}
		if !errors.Is(err, planner.ErrInfeasible) {
			return planner.FamilyUnknown
		}
	}

	if cs.Count(planner.FamilyFlowBalance) > 0 {
		if ctx.Err() != nil {
			return planner.FamilyUnknown
		}
		_, err := solveWithTimeout(ctx, solver, NewProblem(m, cs.Without(planner.FamilyRawResource, planner.FamilyFlowBalance), c), timeout)
		if err == nil {
			return planner.FamilyFlowBalance
		}
		if !errors.Is(err, planner.ErrInfeasible) {
			return planner.FamilyUnknown
		}
	}

	return planner.FamilyTarget
}
