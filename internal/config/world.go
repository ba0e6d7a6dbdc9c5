package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rsned/production-planner/pkg/planner"
)

// Optimizer defaults.
const (
	DefaultSolverTimeout = 30 * time.Second
	DefaultTieBreakCost  = 1e-6
	DefaultSignificance  = 1e-6
)

// WorldConfig is the optimizer tuning for one game world.
type WorldConfig struct {
	Name string `yaml:"name"`

	// Raw resource item id -> maximum extraction per minute.
	RawResourceLimits map[int]float64 `yaml:"raw_resource_limits"`

	// Recipes that must never be scheduled directly.
	UnpackageRecipes []int `yaml:"unpackage_recipes"`

	SolverTimeout string `yaml:"solver_timeout"`

	// Reject the whole request on an invalid candidate recipe instead of
	// dropping the recipe.
	StrictRecipes bool `yaml:"strict_recipes"`

	TieBreakCost float64 `yaml:"tie_break_cost"`
	Significance float64 `yaml:"significance"`

	// Keep the extraction cap on a raw resource that is also a target.
	CapTargetedResources bool `yaml:"cap_targeted_resources"`

	timeout time.Duration
}

// DefaultWorld returns the stock world: global extraction caps of the
// default map and the packaged-fluid unpack recipes.
func DefaultWorld() *WorldConfig {
	w := &WorldConfig{
		Name: "default",
		RawResourceLimits: map[int]float64{
			155: 92100, // Iron Ore
			156: 42300, // Coal
			157: 1e9,   // Water
			158: 12000, // Nitrogen Gas
			159: 10800, // Sulfur
			160: 10200, // SAM Ore
			161: 12300, // Bauxite
			162: 15000, // Caterium Ore
			163: 36900, // Copper Ore
			164: 13500, // Raw Quartz
			165: 69900, // Limestone
			166: 2100,  // Uranium
			167: 12600, // Crude Oil
		},
		UnpackageRecipes: []int{118, 128, 159, 197, 198, 199, 200, 201, 219, 265, 277, 293},
		SolverTimeout:    DefaultSolverTimeout.String(),
		TieBreakCost:     DefaultTieBreakCost,
		Significance:     DefaultSignificance,
	}
	w.timeout = DefaultSolverTimeout
	return w
}

// LoadWorld reads a world config from a YAML file. Omitted fields take the
// DefaultWorld values. An empty path returns DefaultWorld.
func LoadWorld(path string) (*WorldConfig, error) {
	if path == "" {
		return DefaultWorld(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world config: %w", err)
	}
	return ParseWorld(data)
}

// worldFile is the YAML form of WorldConfig. Pointer fields tell an
// omitted key apart from an explicit zero or empty value.
type worldFile struct {
	Name                 string           `yaml:"name"`
	RawResourceLimits    *map[int]float64 `yaml:"raw_resource_limits"`
	UnpackageRecipes     *[]int           `yaml:"unpackage_recipes"`
	SolverTimeout        string           `yaml:"solver_timeout"`
	StrictRecipes        bool             `yaml:"strict_recipes"`
	TieBreakCost         *float64         `yaml:"tie_break_cost"`
	Significance         *float64         `yaml:"significance"`
	CapTargetedResources bool             `yaml:"cap_targeted_resources"`
}

// ParseWorld decodes and validates YAML world config data. Keys that are
// absent take the DefaultWorld value; keys that are present are used as
// given, so an empty raw_resource_limits map means no capped resources.
func ParseWorld(data []byte) (*WorldConfig, error) {
	var f worldFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing world config: %w", err)
	}

	w := DefaultWorld()
	if f.Name != "" {
		w.Name = f.Name
	}
	if f.RawResourceLimits != nil {
		w.RawResourceLimits = *f.RawResourceLimits
		if w.RawResourceLimits == nil {
			w.RawResourceLimits = map[int]float64{}
		}
	}
	if f.UnpackageRecipes != nil {
		w.UnpackageRecipes = *f.UnpackageRecipes
	}
	if f.SolverTimeout != "" {
		w.SolverTimeout = f.SolverTimeout
	}
	if f.TieBreakCost != nil {
		w.TieBreakCost = *f.TieBreakCost
	}
	if f.Significance != nil {
		w.Significance = *f.Significance
	}
	w.StrictRecipes = f.StrictRecipes
	w.CapTargetedResources = f.CapTargetedResources

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks the config and caches the parsed solver timeout.
func (w *WorldConfig) Validate() error {
	for _, id := range w.RawResourceIDs() {
		limit := w.RawResourceLimits[id]
		if limit <= 0 || math.IsNaN(limit) || math.IsInf(limit, 0) {
			return fmt.Errorf("%w: raw resource %d limit %v must be positive and finite", planner.ErrInvalidConfig, id, limit)
		}
	}

	d, err := time.ParseDuration(w.SolverTimeout)
	if err != nil {
		return fmt.Errorf("%w: solver_timeout: %v", planner.ErrInvalidConfig, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: solver_timeout must be positive", planner.ErrInvalidConfig)
	}
	w.timeout = d

	if w.TieBreakCost < 0 {
		return fmt.Errorf("%w: tie_break_cost must not be negative", planner.ErrInvalidConfig)
	}
	if w.Significance <= 0 {
		return fmt.Errorf("%w: significance must be positive", planner.ErrInvalidConfig)
	}
	return nil
}

// Timeout returns the solver timeout. Validate must have succeeded first;
// otherwise the default is returned.
func (w *WorldConfig) Timeout() time.Duration {
	if w.timeout <= 0 {
		return DefaultSolverTimeout
	}
	return w.timeout
}

// RawResourceIDs returns the raw resource ids in ascending order.
func (w *WorldConfig) RawResourceIDs() []int {
	ids := make([]int, 0, len(w.RawResourceLimits))
	for id := range w.RawResourceLimits {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsRawResource reports whether itemID has an extraction cap.
func (w *WorldConfig) IsRawResource(itemID int) bool {
	_, ok := w.RawResourceLimits[itemID]
	return ok
}
