// Package planner contains the core types for the production planning server.
package planner

// ============================================
// CATALOG TYPES
// ============================================

// Form is the physical form of an item.
type Form string

const (
	FormSolid   Form = "solid"
	FormLiquid  Form = "liquid"
	FormGas     Form = "gas"
	FormInvalid Form = "invalid"
)

// ParseForm maps a catalog form tag to a Form. Unknown tags map to FormInvalid.
func ParseForm(s string) Form {
	switch Form(s) {
	case FormSolid, FormLiquid, FormGas:
		return Form(s)
	}
	// The game dump uses RF_ prefixed enum names.
	switch s {
	case "RF_SOLID":
		return FormSolid
	case "RF_LIQUID":
		return FormLiquid
	case "RF_GAS":
		return FormGas
	}
	return FormInvalid
}

// Item represents a catalog item.
type Item struct {
	ID          int    `json:"id"`
	ClassName   string `json:"class_name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Form        Form   `json:"form"`
}

// Building represents a machine a recipe can run in.
type Building struct {
	ID               int     `json:"id"`
	ClassName        string  `json:"class_name"`
	DisplayName      string  `json:"display_name"`
	Description      string  `json:"description,omitempty"`
	PowerConsumption float64 `json:"power_consumption"`
}

// ItemAmount is an item with the quantity consumed or produced per cycle.
type ItemAmount struct {
	ID          int     `json:"id"`
	DisplayName string  `json:"display_name,omitempty"`
	Amount      float64 `json:"amount"`
}

// Recipe is a fixed conversion of ingredients into products over one cycle.
type Recipe struct {
	ID            int          `json:"id"`
	ClassName     string       `json:"class_name"`
	DisplayName   string       `json:"display_name"`
	Duration      float64      `json:"manufactoring_duration"` // seconds per cycle
	Ingredients   []ItemAmount `json:"ingredients"`
	Products      []ItemAmount `json:"products"`
	ProducedIn    *Building    `json:"produced_in,omitempty"`
	PowerConstant float64      `json:"variable_power_consumption_constant,omitempty"`
	PowerFactor   float64      `json:"variable_power_consumption_factor,omitempty"`
}

// RunsPerMinute returns the cycle frequency of the recipe at scale 1.
// It returns 0 for a recipe without a positive duration.
func (r *Recipe) RunsPerMinute() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return 60 / r.Duration
}

// Produces reports whether the recipe lists itemID among its products.
func (r *Recipe) Produces(itemID int) bool {
	for _, p := range r.Products {
		if p.ID == itemID {
			return true
		}
	}
	return false
}

// Consumes reports whether the recipe lists itemID among its ingredients.
func (r *Recipe) Consumes(itemID int) bool {
	for _, in := range r.Ingredients {
		if in.ID == itemID {
			return true
		}
	}
	return false
}

// ============================================
// USER CONFIGURATION TYPES
// ============================================

// RecipeConfig is a user's setting for one recipe.
type RecipeConfig struct {
	RecipeID  int  `json:"recipe_id" validate:"required,gt=0"`
	Known     bool `json:"known"`
	Excluded  bool `json:"excluded"`
	Preferred int  `json:"preferred,omitempty" validate:"gte=0"` // recipe id preferred for this recipe's product group
}

// RecipeSelection maps recipe IDs to the user's configuration.
type RecipeSelection map[int]RecipeConfig

// Target is a requested minimum net output rate for an item.
type Target struct {
	ProductID int     `json:"product_id" validate:"required,gt=0"`
	Rate      float64 `json:"rate" validate:"gte=0"`
}

// ProductionLine is a saved set of targets belonging to a user.
type ProductionLine struct {
	ID      string   `json:"id"`
	Name    string   `json:"name" validate:"max=200"`
	Targets []Target `json:"production_targets" validate:"dive"`
}

// ============================================
// OPTIMIZATION TYPES
// ============================================

// OptimizeRequest is the input for an optimization.
// When Selection is nil it is loaded for UserKey.
type OptimizeRequest struct {
	UserKey   string          `json:"user_key,omitempty"`
	Targets   []Target        `json:"targets" validate:"required,min=1,dive"`
	Selection RecipeSelection `json:"recipe_selection,omitempty"`
}

// TargetOutput echoes a requested target.
type TargetOutput struct {
	ItemID int     `json:"item_id"`
	Amount float64 `json:"amount"`
}

// PlanEntry is a recipe retained in the production plan.
type PlanEntry struct {
	RecipeData Recipe  `json:"recipe_data"`
	Scale      float64 `json:"scale"`
}

// ResourceUsage is the external supply of a raw resource needed by a plan.
type ResourceUsage struct {
	ItemID        int     `json:"item_id"`
	TotalQuantity float64 `json:"total_quantity"`
}

// Byproduct is a surplus item produced by the plan that nothing consumes.
type Byproduct struct {
	ItemID int     `json:"item_id"`
	Rate   float64 `json:"rate"`
}

// OptimizeResponse is the output of an optimization.
type OptimizeResponse struct {
	TargetOutput     []TargetOutput    `json:"target_output"`
	ProductionLine   map[int]PlanEntry `json:"production_line"`
	RawResourceUsage []ResourceUsage   `json:"raw_resource_usage"`
	BuildOrder       []int             `json:"build_order,omitempty"`
	Byproducts       []Byproduct       `json:"byproducts,omitempty"`
	TotalPowerMW     float64           `json:"total_power_mw"`
	Objective        float64           `json:"objective"`
}

// ============================================
// LOOKUP TYPES
// ============================================

// RecipeLookupRequest is the input for the recipe_lookup tool.
type RecipeLookupRequest struct {
	RecipeID int    `json:"recipe_id,omitempty"`
	Search   string `json:"search,omitempty"`
}

// RecipeLookupResponse is the output for the recipe_lookup tool.
type RecipeLookupResponse struct {
	Recipe        *Recipe           `json:"recipe,omitempty"`
	UsedInRecipes []int             `json:"used_in_recipes,omitempty"`
	SearchResults []RecipeSearchHit `json:"search_results,omitempty"`
}

// RecipeSearchHit is a lightweight recipe match for search results.
type RecipeSearchHit struct {
	RecipeID    int    `json:"recipe_id"`
	DisplayName string `json:"display_name"`
}

// ItemUsesResponse lists the recipes that consume or produce an item.
type ItemUsesResponse struct {
	Item       *Item     `json:"item,omitempty"`
	ConsumedBy []ItemUse `json:"consumed_by"`
	ProducedBy []ItemUse `json:"produced_by"`
}

// ItemUse describes how a recipe uses an item, per cycle and per minute.
type ItemUse struct {
	RecipeID   int     `json:"recipe_id"`
	RecipeName string  `json:"recipe_name"`
	PerCycle   float64 `json:"per_cycle"`
	PerMinute  float64 `json:"per_minute"`
}
