package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentinel errors. Every typed error below unwraps to one of these.
var (
	ErrInvalidRecipe     = errors.New("invalid recipe")
	ErrEmptyCandidateSet = errors.New("no admissible recipe for target")
	ErrInfeasible        = errors.New("optimization infeasible")
	ErrSolverTimeout     = errors.New("solver timeout")
	ErrDataIntegrity     = errors.New("data integrity")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidRequest    = errors.New("invalid request")
)

// InvalidRecipeError reports a recipe with a non-positive duration or
// malformed quantities.
type InvalidRecipeError struct {
	RecipeID int
	Reason   string
}

func (e *InvalidRecipeError) Error() string {
	return fmt.Sprintf("invalid recipe %d: %s", e.RecipeID, e.Reason)
}

func (e *InvalidRecipeError) Unwrap() error { return ErrInvalidRecipe }

// EmptyCandidateSetError lists the target items no candidate recipe produces.
type EmptyCandidateSetError struct {
	ItemIDs []int
}

func (e *EmptyCandidateSetError) Error() string {
	return fmt.Sprintf("no admissible recipe produces target items %s", joinIDs(e.ItemIDs))
}

func (e *EmptyCandidateSetError) Unwrap() error { return ErrEmptyCandidateSet }

// ConstraintFamily names a group of LP constraints.
type ConstraintFamily string

const (
	FamilyTarget      ConstraintFamily = "target"
	FamilyFlowBalance ConstraintFamily = "flow_balance"
	FamilyRawResource ConstraintFamily = "raw_resource"
	FamilyUnbounded   ConstraintFamily = "unbounded"
	FamilyUnknown     ConstraintFamily = "unknown"
)

// OptimizationInfeasibleError reports an LP with no feasible point.
// Family is the constraint family implicated, when it can be determined.
type OptimizationInfeasibleError struct {
	Family ConstraintFamily
	Err    error
}

func (e *OptimizationInfeasibleError) Error() string {
	msg := fmt.Sprintf("optimization infeasible (%s constraints)", e.Family)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OptimizationInfeasibleError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInfeasible}
	}
	return []error{ErrInfeasible, e.Err}
}

// SolverTimeoutError reports a solve that did not finish within Timeout.
type SolverTimeoutError struct {
	Timeout time.Duration
}

func (e *SolverTimeoutError) Error() string {
	return fmt.Sprintf("solver did not finish within %s", e.Timeout)
}

func (e *SolverTimeoutError) Unwrap() error { return ErrSolverTimeout }

// DataIntegrityError reports an item or recipe id missing from the
// matrix index or the catalog.
type DataIntegrityError struct {
	Kind string // "item" or "recipe"
	ID   int
	Msg  string
}

func (e *DataIntegrityError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("data integrity: %s %d: %s", e.Kind, e.ID, e.Msg)
	}
	return fmt.Sprintf("data integrity: %s %d missing", e.Kind, e.ID)
}

func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

func joinIDs(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
