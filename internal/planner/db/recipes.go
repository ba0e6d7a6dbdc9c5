package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/production-planner/pkg/planner"
)

// RecipeStore handles recipe data access.
type RecipeStore struct {
	db *DB
}

// NewRecipeStore creates a new RecipeStore.
func NewRecipeStore(db *DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// GetCandidateRecipes returns every catalog recipe with its ingredients,
// products and building, ordered by id.
func (s *RecipeStore) GetCandidateRecipes(ctx context.Context) ([]planner.Recipe, error) {
	return s.loadRecipes(ctx, nil)
}

// GetRecipeDetails returns the recipes with the given ids, ordered by id.
// Unknown ids are skipped; callers compare lengths to detect them.
func (s *RecipeStore) GetRecipeDetails(ctx context.Context, ids []int) ([]planner.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.loadRecipes(ctx, ids)
}

// GetRecipe retrieves a single recipe by ID with all its ingredients and products.
func (s *RecipeStore) GetRecipe(ctx context.Context, id int) (*planner.Recipe, error) {
	recipes, err := s.loadRecipes(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, nil
	}
	return &recipes[0], nil
}

// loadRecipes loads recipes, restricted to ids when ids is non-nil.
func (s *RecipeStore) loadRecipes(ctx context.Context, ids []int) ([]planner.Recipe, error) {
	query := `
		SELECT r.id, r.class_name, r.display_name, r.duration, r.power_constant, r.power_factor,
			b.id, b.class_name, b.display_name, b.description, b.power_consumption
		FROM recipes r
		LEFT JOIN buildings b ON b.id = r.produced_in`
	var args []any
	if ids != nil {
		var in string
		in, args = inClause(ids)
		query += fmt.Sprintf(" WHERE r.id IN (%s)", in)
	}
	query += " ORDER BY r.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recipes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recipes []planner.Recipe
	index := make(map[int]int)
	for rows.Next() {
		var (
			r         planner.Recipe
			bID       sql.NullInt64
			bClass    sql.NullString
			bName     sql.NullString
			bDesc     sql.NullString
			bPowerUse sql.NullFloat64
		)
		if err := rows.Scan(
			&r.ID, &r.ClassName, &r.DisplayName, &r.Duration, &r.PowerConstant, &r.PowerFactor,
			&bID, &bClass, &bName, &bDesc, &bPowerUse,
		); err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		if bID.Valid {
			r.ProducedIn = &planner.Building{
				ID:               int(bID.Int64),
				ClassName:        bClass.String,
				DisplayName:      bName.String,
				Description:      bDesc.String,
				PowerConsumption: bPowerUse.Float64,
			}
		}
		index[r.ID] = len(recipes)
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, nil
	}

	ingredients, err := s.loadAmounts(ctx, "recipe_ingredients", ids)
	if err != nil {
		return nil, err
	}
	products, err := s.loadAmounts(ctx, "recipe_products", ids)
	if err != nil {
		return nil, err
	}
	for recipeID, amounts := range ingredients {
		if i, ok := index[recipeID]; ok {
			recipes[i].Ingredients = amounts
		}
	}
	for recipeID, amounts := range products {
		if i, ok := index[recipeID]; ok {
			recipes[i].Products = amounts
		}
	}

	return recipes, nil
}

// loadAmounts reads an ingredient or product table keyed by recipe id.
func (s *RecipeStore) loadAmounts(ctx context.Context, table string, ids []int) (map[int][]planner.ItemAmount, error) {
	query := fmt.Sprintf(`
		SELECT a.recipe_id, a.item_id, COALESCE(i.display_name, ''), a.amount
		FROM %s a
		LEFT JOIN items i ON i.id = a.item_id`, table)
	var args []any
	if ids != nil {
		var in string
		in, args = inClause(ids)
		query += fmt.Sprintf(" WHERE a.recipe_id IN (%s)", in)
	}
	query += " ORDER BY a.recipe_id, a.position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	amounts := make(map[int][]planner.ItemAmount)
	for rows.Next() {
		var (
			recipeID int
			a        planner.ItemAmount
		)
		if err := rows.Scan(&recipeID, &a.ID, &a.DisplayName, &a.Amount); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		amounts[recipeID] = append(amounts[recipeID], a)
	}

	return amounts, rows.Err()
}

// SearchRecipes searches recipes by name (case-insensitive partial match).
func (s *RecipeStore) SearchRecipes(ctx context.Context, term string, limit int) ([]planner.RecipeSearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name
		FROM recipes
		WHERE display_name LIKE ?
		ORDER BY display_name, id
		LIMIT ?
	`, "%"+term+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching recipes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []planner.RecipeSearchHit
	for rows.Next() {
		var hit planner.RecipeSearchHit
		if err := rows.Scan(&hit.RecipeID, &hit.DisplayName); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		results = append(results, hit)
	}

	return results, rows.Err()
}

// GetRecipesUsingItem finds recipes that consume itemID as an ingredient.
func (s *RecipeStore) GetRecipesUsingItem(ctx context.Context, itemID int) ([]int, error) {
	return s.recipeIDs(ctx, `
		SELECT DISTINCT recipe_id
		FROM recipe_ingredients
		WHERE item_id = ?
		ORDER BY recipe_id
	`, itemID)
}

// GetRecipesProducingItem finds recipes that list itemID among their products.
func (s *RecipeStore) GetRecipesProducingItem(ctx context.Context, itemID int) ([]int, error) {
	return s.recipeIDs(ctx, `
		SELECT DISTINCT recipe_id
		FROM recipe_products
		WHERE item_id = ?
		ORDER BY recipe_id
	`, itemID)
}

// GetAllRecipeIDs returns all recipe IDs in the database.
func (s *RecipeStore) GetAllRecipeIDs(ctx context.Context) ([]int, error) {
	return s.recipeIDs(ctx, `SELECT id FROM recipes ORDER BY id`)
}

func (s *RecipeStore) recipeIDs(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recipe ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning recipe id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountRecipes returns the total number of recipes.
func (s *RecipeStore) CountRecipes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting recipes: %w", err)
	}
	return count, nil
}

// BulkInsertRecipes inserts multiple recipes in a transaction.
// A recipe that already exists is replaced along with its item lists.
func (s *RecipeStore) BulkInsertRecipes(ctx context.Context, recipes []planner.Recipe) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		return InsertRecipes(ctx, tx, recipes)
	})
}

// InsertRecipes inserts recipes within tx, replacing existing recipes
// along with their item lists.
func InsertRecipes(ctx context.Context, tx *sql.Tx, recipes []planner.Recipe) error {
	recipeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO recipes
		(id, class_name, display_name, duration, produced_in, power_constant, power_factor)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing recipe statement: %w", err)
	}
	defer func() { _ = recipeStmt.Close() }()

	ingStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO recipe_ingredients (recipe_id, position, item_id, amount)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing ingredient statement: %w", err)
	}
	defer func() { _ = ingStmt.Close() }()

	prodStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO recipe_products (recipe_id, position, item_id, amount)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing product statement: %w", err)
	}
	defer func() { _ = prodStmt.Close() }()

	for _, r := range recipes {
		var producedIn any
		if r.ProducedIn != nil {
			producedIn = r.ProducedIn.ID
		}

		// REPLACE on recipes deletes the old row; clear item lists explicitly
		// in case foreign keys are off for this connection.
		for _, table := range []string{"recipe_ingredients", "recipe_products"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE recipe_id = ?`, r.ID); err != nil {
				return fmt.Errorf("clearing %s for %d: %w", table, r.ID, err)
			}
		}

		if _, err := recipeStmt.ExecContext(ctx,
			r.ID, r.ClassName, r.DisplayName, r.Duration,
			producedIn, r.PowerConstant, r.PowerFactor,
		); err != nil {
			return fmt.Errorf("inserting recipe %d: %w", r.ID, err)
		}

		for i, a := range r.Ingredients {
			if _, err := ingStmt.ExecContext(ctx, r.ID, i, a.ID, a.Amount); err != nil {
				return fmt.Errorf("inserting ingredient for %d: %w", r.ID, err)
			}
		}

		for i, a := range r.Products {
			if _, err := prodStmt.ExecContext(ctx, r.ID, i, a.ID, a.Amount); err != nil {
				return fmt.Errorf("inserting product for %d: %w", r.ID, err)
			}
		}
	}

	return nil
}

// ClearRecipes removes all recipe data (for re-sync).
func (s *RecipeStore) ClearRecipes(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"recipe_ingredients", "recipe_products", "recipes"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
}
