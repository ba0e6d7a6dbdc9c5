package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/pkg/planner"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndInit(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedCatalog loads a small iron chain: ore -> ingot -> plate.
func seedCatalog(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, NewItemStore(db).BulkInsertItems(ctx, []planner.Item{
		{ID: 155, ClassName: "Desc_OreIron_C", DisplayName: "Iron Ore", Form: planner.FormSolid},
		{ID: 10, ClassName: "Desc_IronIngot_C", DisplayName: "Iron Ingot", Form: planner.FormSolid},
		{ID: 11, ClassName: "Desc_IronPlate_C", DisplayName: "Iron Plate"},
		{ID: 157, ClassName: "Desc_Water_C", DisplayName: "Water", Form: planner.FormLiquid},
	}))
	require.NoError(t, NewBuildingStore(db).BulkInsertBuildings(ctx, []planner.Building{
		{ID: 1, ClassName: "Build_SmelterMk1_C", DisplayName: "Smelter", PowerConsumption: 4},
		{ID: 2, ClassName: "Build_ConstructorMk1_C", DisplayName: "Constructor", PowerConsumption: 4},
	}))
	require.NoError(t, NewRecipeStore(db).BulkInsertRecipes(ctx, []planner.Recipe{
		{
			ID: 1, ClassName: "Recipe_IngotIron_C", DisplayName: "Iron Ingot", Duration: 2,
			Ingredients: []planner.ItemAmount{{ID: 155, Amount: 1}},
			Products:    []planner.ItemAmount{{ID: 10, Amount: 1}},
			ProducedIn:  &planner.Building{ID: 1},
		},
		{
			ID: 2, ClassName: "Recipe_IronPlate_C", DisplayName: "Iron Plate", Duration: 6,
			Ingredients: []planner.ItemAmount{{ID: 10, Amount: 3}},
			Products:    []planner.ItemAmount{{ID: 11, Amount: 2}},
			ProducedIn:  &planner.Building{ID: 2},
		},
		{
			ID: 3, ClassName: "Recipe_Alternate_PureIronIngot_C", DisplayName: "Alternate: Pure Iron Ingot", Duration: 12,
			Ingredients: []planner.ItemAmount{{ID: 155, Amount: 7}, {ID: 157, Amount: 4}},
			Products:    []planner.ItemAmount{{ID: 10, Amount: 13}},
		},
	}))
}

func TestSyncMetadata(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	v, err := db.GetSyncMetadata(ctx, "last_import")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SetSyncMetadata(ctx, "last_import", "a"))
	require.NoError(t, db.SetSyncMetadata(ctx, "last_import", "b"))

	v, err = db.GetSyncMetadata(ctx, "last_import")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InitSchema(context.Background(), db.DB))
}
