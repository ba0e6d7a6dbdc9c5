package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/pkg/planner"
)

func candidateIDs(recipes []planner.Recipe) []int {
	ids := make([]int, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
	}
	return ids
}

func TestFilterCandidates(t *testing.T) {
	recipes := []planner.Recipe{ingotRecipe(), plateRecipe(), pureIngotRecipe()}

	tests := []struct {
		name      string
		edit      func(sel planner.RecipeSelection)
		unpackage []int
		want      []int
	}{
		{
			name: "all known",
			want: []int{recipeIngot, recipePlate, recipePureIngot},
		},
		{
			name: "unknown recipe dropped",
			edit: func(sel planner.RecipeSelection) {
				sel[recipePureIngot] = planner.RecipeConfig{RecipeID: recipePureIngot, Known: false, Preferred: recipePureIngot}
			},
			want: []int{recipeIngot, recipePlate},
		},
		{
			name: "missing selection entry means unknown",
			edit: func(sel planner.RecipeSelection) { delete(sel, recipePlate) },
			want: []int{recipeIngot, recipePureIngot},
		},
		{
			name: "excluded recipe dropped",
			edit: func(sel planner.RecipeSelection) {
				sel[recipeIngot] = planner.RecipeConfig{RecipeID: recipeIngot, Known: true, Excluded: true}
			},
			want: []int{recipePlate, recipePureIngot},
		},
		{
			name:      "unpackage recipe dropped",
			unpackage: []int{recipePlate},
			want:      []int{recipeIngot, recipePureIngot},
		},
		{
			name: "superseded by admissible preferred recipe",
			edit: func(sel planner.RecipeSelection) {
				sel[recipeIngot] = planner.RecipeConfig{RecipeID: recipeIngot, Known: true, Preferred: recipePureIngot}
			},
			want: []int{recipePlate, recipePureIngot},
		},
		{
			name: "zero preferred means no preference",
			edit: func(sel planner.RecipeSelection) {
				sel[recipeIngot] = planner.RecipeConfig{RecipeID: recipeIngot, Known: true}
			},
			want: []int{recipeIngot, recipePlate, recipePureIngot},
		},
		{
			name: "preference outside product group ignored",
			edit: func(sel planner.RecipeSelection) {
				sel[recipeIngot] = planner.RecipeConfig{RecipeID: recipeIngot, Known: true, Preferred: recipePlate}
			},
			want: []int{recipeIngot, recipePlate, recipePureIngot},
		},
		{
			name: "preference for excluded recipe ignored",
			edit: func(sel planner.RecipeSelection) {
				sel[recipeIngot] = planner.RecipeConfig{RecipeID: recipeIngot, Known: true, Preferred: recipePureIngot}
				sel[recipePureIngot] = planner.RecipeConfig{RecipeID: recipePureIngot, Known: true, Excluded: true}
			},
			want: []int{recipeIngot, recipePlate},
		},
		{
			name:      "preference for unpackage recipe ignored",
			unpackage: []int{recipePureIngot},
			edit: func(sel planner.RecipeSelection) {
				sel[recipeIngot] = planner.RecipeConfig{RecipeID: recipeIngot, Known: true, Preferred: recipePureIngot}
			},
			want: []int{recipeIngot, recipePlate},
		},
		{
			name: "preference for recipe missing from catalog ignored",
			edit: func(sel planner.RecipeSelection) {
				sel[recipeIngot] = planner.RecipeConfig{RecipeID: recipeIngot, Known: true, Preferred: 404}
			},
			want: []int{recipeIngot, recipePlate, recipePureIngot},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := DefaultSelection(recipes)
			if tt.edit != nil {
				tt.edit(sel)
			}
			got := FilterCandidates(recipes, sel, tt.unpackage, discardLogger())
			assert.Equal(t, tt.want, candidateIDs(got))
		})
	}
}

func TestValidateRecipe(t *testing.T) {
	tests := []struct {
		name    string
		recipe  planner.Recipe
		wantErr bool
	}{
		{"valid", ingotRecipe(), false},
		{"zero duration", planner.Recipe{ID: 1, Duration: 0}, true},
		{"negative duration", planner.Recipe{ID: 1, Duration: -2}, true},
		{"nan duration", planner.Recipe{ID: 1, Duration: math.NaN()}, true},
		{"negative ingredient", planner.Recipe{ID: 1, Duration: 1, Ingredients: amounts(itemOre, -1)}, true},
		{"infinite product", planner.Recipe{ID: 1, Duration: 1, Products: amounts(itemOre, math.Inf(1))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecipe(&tt.recipe)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var invalid *planner.InvalidRecipeError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.recipe.ID, invalid.RecipeID)
		})
	}
}

func TestValidateCandidates(t *testing.T) {
	broken := planner.Recipe{ID: 99, Duration: 0}
	in := []planner.Recipe{ingotRecipe(), broken, plateRecipe()}

	got, err := validateCandidates(in, false, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []int{recipeIngot, recipePlate}, candidateIDs(got))
	assert.Len(t, in, 3, "input is not modified")

	_, err = validateCandidates(in, true, discardLogger())
	assert.ErrorIs(t, err, planner.ErrInvalidRecipe)
}
