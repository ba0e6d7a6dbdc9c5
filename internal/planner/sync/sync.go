// Package sync imports catalog dumps into the planner database.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rsned/production-planner/internal/planner/db"
	"github.com/rsned/production-planner/pkg/planner"
)

// Sync metadata keys.
const (
	MetaCatalogLastSync = "catalog_last_sync"
	MetaItemsCount      = "items_count"
	MetaBuildingsCount  = "buildings_count"
	MetaRecipesCount    = "recipes_count"
)

// Syncer handles catalog imports.
type Syncer struct {
	db *db.DB
}

// NewSyncer creates a new Syncer.
func NewSyncer(database *db.DB) *Syncer {
	return &Syncer{db: database}
}

// ImportSummary counts what an import wrote.
type ImportSummary struct {
	Items     int `json:"items"`
	Buildings int `json:"buildings"`
	Recipes   int `json:"recipes"`
}

// Catalog is a parsed catalog dump.
type Catalog struct {
	Items     []planner.Item
	Buildings []planner.Building
	Recipes   []planner.Recipe
}

// ImportCatalogFromFile imports items, buildings and recipes from a JSON
// dump with top-level "items", "buildings" and "recipes" arrays.
func (s *Syncer) ImportCatalogFromFile(ctx context.Context, path string) (*ImportSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return s.ImportCatalog(ctx, data)
}

// ImportCatalog imports a JSON catalog dump already in memory.
func (s *Syncer) ImportCatalog(ctx context.Context, data []byte) (*ImportSummary, error) {
	cat, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{
		Items:     len(cat.Items),
		Buildings: len(cat.Buildings),
		Recipes:   len(cat.Recipes),
	}

	// The whole dump lands in one transaction or not at all.
	err = s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if err := db.InsertBuildings(ctx, tx, cat.Buildings); err != nil {
			return fmt.Errorf("inserting buildings: %w", err)
		}
		if err := db.InsertItems(ctx, tx, cat.Items); err != nil {
			return fmt.Errorf("inserting items: %w", err)
		}
		if err := db.InsertRecipes(ctx, tx, cat.Recipes); err != nil {
			return fmt.Errorf("inserting recipes: %w", err)
		}

		meta := []struct{ key, value string }{
			{MetaCatalogLastSync, time.Now().Format(time.RFC3339)},
			{MetaItemsCount, strconv.Itoa(summary.Items)},
			{MetaBuildingsCount, strconv.Itoa(summary.Buildings)},
			{MetaRecipesCount, strconv.Itoa(summary.Recipes)},
		}
		for _, m := range meta {
			if err := db.SetSyncMetadataTx(ctx, tx, m.key, m.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// ClearCatalog removes all recipe data before a full re-import.
func (s *Syncer) ClearCatalog(ctx context.Context) error {
	return db.NewRecipeStore(s.db).ClearRecipes(ctx)
}

// ParseCatalog decodes a catalog dump. Entries without a positive id are
// skipped.
func ParseCatalog(data []byte) (*Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing JSON: invalid document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("parsing JSON: top level must be an object")
	}

	cat := &Catalog{}

	doc.Get("buildings").ForEach(func(_, v gjson.Result) bool {
		if b, ok := transformBuilding(v); ok {
			cat.Buildings = append(cat.Buildings, b)
		}
		return true
	})

	doc.Get("items").ForEach(func(_, v gjson.Result) bool {
		if item, ok := transformItem(v); ok {
			cat.Items = append(cat.Items, item)
		}
		return true
	})

	var parseErr error
	doc.Get("recipes").ForEach(func(_, v gjson.Result) bool {
		r, ok, err := transformRecipe(v)
		if err != nil {
			parseErr = err
			return false
		}
		if ok {
			cat.Recipes = append(cat.Recipes, r)
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return cat, nil
}

// firstOf returns the first of keys present on v.
func firstOf(v gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := v.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func transformItem(v gjson.Result) (planner.Item, bool) {
	id := int(firstOf(v, "id", "item_id").Int())
	if id <= 0 {
		return planner.Item{}, false
	}
	item := planner.Item{
		ID:          id,
		ClassName:   v.Get("class_name").String(),
		DisplayName: v.Get("display_name").String(),
		Description: v.Get("description").String(),
	}
	// Left empty, the store defaults the form to solid.
	if form := v.Get("form").String(); form != "" {
		item.Form = planner.ParseForm(form)
	}
	return item, true
}

func transformBuilding(v gjson.Result) (planner.Building, bool) {
	id := int(firstOf(v, "id", "building_id").Int())
	if id <= 0 {
		return planner.Building{}, false
	}
	return planner.Building{
		ID:               id,
		ClassName:        v.Get("class_name").String(),
		DisplayName:      v.Get("display_name").String(),
		Description:      v.Get("description").String(),
		PowerConsumption: v.Get("power_consumption").Float(),
	}, true
}

func transformRecipe(v gjson.Result) (planner.Recipe, bool, error) {
	id := int(firstOf(v, "id", "recipe_id").Int())
	if id <= 0 {
		return planner.Recipe{}, false, nil
	}

	duration, err := parseDuration(firstOf(v, "manufactoring_duration", "manufacturing_duration", "duration"))
	if err != nil {
		return planner.Recipe{}, false, fmt.Errorf("recipe %d: %w", id, err)
	}

	r := planner.Recipe{
		ID:            id,
		ClassName:     v.Get("class_name").String(),
		DisplayName:   firstOf(v, "display_name", "name").String(),
		Duration:      duration,
		Ingredients:   transformAmounts(v.Get("ingredients")),
		Products:      transformAmounts(v.Get("products")),
		PowerConstant: v.Get("variable_power_consumption_constant").Float(),
		PowerFactor:   v.Get("variable_power_consumption_factor").Float(),
	}
	if b := producedIn(v.Get("produced_in")); b > 0 {
		r.ProducedIn = &planner.Building{ID: b}
	}
	return r, true, nil
}

func transformAmounts(list gjson.Result) []planner.ItemAmount {
	var out []planner.ItemAmount
	list.ForEach(func(_, a gjson.Result) bool {
		id := int(firstOf(a, "item_id", "id").Int())
		if id <= 0 {
			return true
		}
		out = append(out, planner.ItemAmount{
			ID:     id,
			Amount: firstOf(a, "amount", "quantity").Float(),
		})
		return true
	})
	return out
}

// producedIn accepts a building id, a building object, or a list of
// buildings (the first one wins).
func producedIn(v gjson.Result) int {
	switch {
	case !v.Exists():
		return 0
	case v.IsArray():
		arr := v.Array()
		if len(arr) == 0 {
			return 0
		}
		return producedIn(arr[0])
	case v.IsObject():
		return int(firstOf(v, "id", "building_id").Int())
	}
	return int(v.Int())
}

// parseDuration reads seconds from a number or a string such as "6.00s".
func parseDuration(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), nil
	case gjson.String:
		s := strings.TrimSuffix(strings.TrimSpace(v.Str), "s")
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v.Str)
		}
		return d, nil
	case gjson.Null:
		return 0, nil
	}
	return 0, fmt.Errorf("invalid duration %s", v.Raw)
}
