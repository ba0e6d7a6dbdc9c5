package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/production-planner/pkg/planner"
)

// ItemStore handles item data access.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// GetItem retrieves a single item by ID. It returns nil, nil when the item
// does not exist.
func (s *ItemStore) GetItem(ctx context.Context, id int) (*planner.Item, error) {
	item := &planner.Item{ID: id}
	var form string

	err := s.db.QueryRowContext(ctx, `
		SELECT class_name, display_name, description, form
		FROM items WHERE id = ?
	`, id).Scan(
		&item.ClassName,
		&item.DisplayName,
		&item.Description,
		&form,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	item.Form = planner.ParseForm(form)

	return item, nil
}

// GetItems retrieves the items with the given ids, keyed by id.
func (s *ItemStore) GetItems(ctx context.Context, ids []int) (map[int]planner.Item, error) {
	items := make(map[int]planner.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	in, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, class_name, display_name, description, form
		FROM items WHERE id IN (%s)
	`, in), args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			item planner.Item
			form string
		)
		if err := rows.Scan(&item.ID, &item.ClassName, &item.DisplayName, &item.Description, &form); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Form = planner.ParseForm(form)
		items[item.ID] = item
	}

	return items, rows.Err()
}

// CountItems returns the total number of items.
func (s *ItemStore) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// BulkInsertItems inserts or replaces multiple items in a transaction.
func (s *ItemStore) BulkInsertItems(ctx context.Context, items []planner.Item) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		return InsertItems(ctx, tx, items)
	})
}

// InsertItems inserts or replaces items within tx. An item without a form
// is stored as solid.
func InsertItems(ctx context.Context, tx *sql.Tx, items []planner.Item) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO items (id, class_name, display_name, description, form)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing item statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		form := item.Form
		if form == "" {
			form = planner.FormSolid
		}
		if _, err := stmt.ExecContext(ctx,
			item.ID, item.ClassName, item.DisplayName, item.Description, string(form),
		); err != nil {
			return fmt.Errorf("inserting item %d: %w", item.ID, err)
		}
	}

	return nil
}
