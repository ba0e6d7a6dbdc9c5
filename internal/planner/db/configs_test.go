package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/production-planner/pkg/planner"
)

func TestConfigStore_LoadSelectionSeedsDefaults(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	store := NewConfigStore(db)
	ctx := context.Background()

	sel, err := store.LoadSelection(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, sel, 3)
	for id, rc := range sel {
		assert.True(t, rc.Known, "recipe %d", id)
		assert.False(t, rc.Excluded, "recipe %d", id)
		assert.Equal(t, id, rc.Preferred, "recipe %d prefers itself", id)
	}
}

func TestConfigStore_SaveSelection(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	store := NewConfigStore(db)
	ctx := context.Background()

	_, err := store.LoadSelection(ctx, "user-alice")
	require.NoError(t, err)

	require.NoError(t, store.SaveSelection(ctx, "user-alice", []planner.RecipeConfig{
		{RecipeID: 1, Known: true, Excluded: false, Preferred: 3},
		{RecipeID: 3, Known: true, Excluded: false, Preferred: 3},
		{RecipeID: 2, Known: false, Excluded: true, Preferred: 2},
	}))

	sel, err := store.LoadSelection(ctx, "user-alice")
	require.NoError(t, err)
	assert.Equal(t, 3, sel[1].Preferred)
	assert.False(t, sel[2].Known)
	assert.True(t, sel[2].Excluded)

	other, err := store.LoadSelection(ctx, "user-bob")
	require.NoError(t, err)
	assert.Equal(t, 1, other[1].Preferred, "users are isolated")
}

func TestConfigStore_EmptyUserKey(t *testing.T) {
	db := openTestDB(t)
	store := NewConfigStore(db)

	_, err := store.LoadSelection(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyUserKey)
}

func TestConfigStore_ProductionLines(t *testing.T) {
	db := openTestDB(t)
	store := NewConfigStore(db)
	ctx := context.Background()

	lines, err := store.LoadProductionLines(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, DefaultLineID, lines[0].ID)
	assert.Equal(t, DefaultLineName, lines[0].Name)
	assert.Empty(t, lines[0].Targets)

	require.NoError(t, store.SaveProductionLine(ctx, "user-alice", planner.ProductionLine{
		ID:   "1",
		Name: "Plates",
		Targets: []planner.Target{
			{ProductID: 11, Rate: 20},
			{ProductID: 10, Rate: 5},
		},
	}))

	line, err := store.GetProductionLine(ctx, "user-alice", "1")
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, "Plates", line.Name)
	// Targets come back in the order they were saved.
	assert.Equal(t, []planner.Target{{ProductID: 11, Rate: 20}, {ProductID: 10, Rate: 5}}, line.Targets)

	// Saving again replaces the target list.
	require.NoError(t, store.SaveProductionLine(ctx, "user-alice", planner.ProductionLine{
		ID: "1", Name: "Plates", Targets: []planner.Target{{ProductID: 11, Rate: 30}},
	}))
	line, err = store.GetProductionLine(ctx, "user-alice", "1")
	require.NoError(t, err)
	assert.Equal(t, []planner.Target{{ProductID: 11, Rate: 30}}, line.Targets)

	// A repeated item keeps its first position and its last rate.
	require.NoError(t, store.SaveProductionLine(ctx, "user-alice", planner.ProductionLine{
		ID: "1", Name: "Plates", Targets: []planner.Target{
			{ProductID: 12, Rate: 1},
			{ProductID: 10, Rate: 2},
			{ProductID: 12, Rate: 3},
		},
	}))
	line, err = store.GetProductionLine(ctx, "user-alice", "1")
	require.NoError(t, err)
	assert.Equal(t, []planner.Target{{ProductID: 12, Rate: 3}, {ProductID: 10, Rate: 2}}, line.Targets)

	missing, err := store.GetProductionLine(ctx, "user-alice", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	lines, err = store.LoadProductionLines(ctx, "user-alice")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestItemStore(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	store := NewItemStore(db)
	ctx := context.Background()

	item, err := store.GetItem(ctx, 157)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, planner.FormLiquid, item.Form)

	plate, err := store.GetItem(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, planner.FormSolid, plate.Form, "empty form defaults to solid")

	missing, err := store.GetItem(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	items, err := store.GetItems(ctx, []int{10, 11, 9999})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "Iron Ingot", items[10].DisplayName)

	b, err := NewBuildingStore(db).GetBuilding(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Build_SmelterMk1_C", b.ClassName)
}
