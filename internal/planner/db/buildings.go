package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/production-planner/pkg/planner"
)

// BuildingStore handles building data access.
type BuildingStore struct {
	db *DB
}

// NewBuildingStore creates a new BuildingStore.
func NewBuildingStore(db *DB) *BuildingStore {
	return &BuildingStore{db: db}
}

// GetBuilding retrieves a building by ID, or nil when it does not exist.
func (s *BuildingStore) GetBuilding(ctx context.Context, id int) (*planner.Building, error) {
	b := &planner.Building{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT class_name, display_name, description, power_consumption
		FROM buildings WHERE id = ?
	`, id).Scan(&b.ClassName, &b.DisplayName, &b.Description, &b.PowerConsumption)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying building: %w", err)
	}
	return b, nil
}

// BulkInsertBuildings inserts or replaces multiple buildings in a transaction.
func (s *BuildingStore) BulkInsertBuildings(ctx context.Context, buildings []planner.Building) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		return InsertBuildings(ctx, tx, buildings)
	})
}

// InsertBuildings inserts or replaces buildings within tx.
func InsertBuildings(ctx context.Context, tx *sql.Tx, buildings []planner.Building) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO buildings (id, class_name, display_name, description, power_consumption)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing building statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, b := range buildings {
		if _, err := stmt.ExecContext(ctx,
			b.ID, b.ClassName, b.DisplayName, b.Description, b.PowerConsumption,
		); err != nil {
			return fmt.Errorf("inserting building %d: %w", b.ID, err)
		}
	}

	return nil
}
