package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rsned/production-planner/pkg/planner"
)

// Default production line created for every user.
const (
	DefaultLineID   = "0"
	DefaultLineName = "Default Production Line"
)

// ErrEmptyUserKey is returned when a user-scoped call has no user key.
var ErrEmptyUserKey = errors.New("user key is required")

// ConfigStore handles per-user recipe configuration and production lines.
type ConfigStore struct {
	db *DB
}

// NewConfigStore creates a new ConfigStore.
func NewConfigStore(db *DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// ensureUser returns the row id for userKey, creating the user if needed.
func ensureUser(ctx context.Context, tx *sql.Tx, userKey string) (int64, error) {
	if userKey == "" {
		return 0, ErrEmptyUserKey
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO users (user_key) VALUES (?)`, userKey); err != nil {
		return 0, fmt.Errorf("creating user: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE user_key = ?`, userKey).Scan(&id); err != nil {
		return 0, fmt.Errorf("querying user: %w", err)
	}
	return id, nil
}

// LoadSelection returns the user's recipe configuration. Catalog recipes
// the user has no row for are seeded as known, not excluded and
// preferring themselves.
func (s *ConfigStore) LoadSelection(ctx context.Context, userKey string) (planner.RecipeSelection, error) {
	selection := make(planner.RecipeSelection)

	err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, userKey)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO user_recipe_configs (user_id, recipe_id, known, excluded, preferred)
			SELECT ?, id, 1, 0, id FROM recipes
		`, userID); err != nil {
			return fmt.Errorf("seeding recipe configs: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT recipe_id, known, excluded, preferred
			FROM user_recipe_configs
			WHERE user_id = ?
		`, userID)
		if err != nil {
			return fmt.Errorf("querying recipe configs: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var rc planner.RecipeConfig
			if err := rows.Scan(&rc.RecipeID, &rc.Known, &rc.Excluded, &rc.Preferred); err != nil {
				return fmt.Errorf("scanning recipe config: %w", err)
			}
			selection[rc.RecipeID] = rc
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return selection, nil
}

// SaveSelection upserts the given recipe configs for the user.
func (s *ConfigStore) SaveSelection(ctx context.Context, userKey string, updates []planner.RecipeConfig) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, userKey)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO user_recipe_configs (user_id, recipe_id, known, excluded, preferred)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, recipe_id) DO UPDATE SET
				known = excluded.known,
				excluded = excluded.excluded,
				preferred = excluded.preferred
		`)
		if err != nil {
			return fmt.Errorf("preparing recipe config statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, rc := range updates {
			if _, err := stmt.ExecContext(ctx, userID, rc.RecipeID, rc.Known, rc.Excluded, rc.Preferred); err != nil {
				return fmt.Errorf("saving recipe config %d: %w", rc.RecipeID, err)
			}
		}
		return nil
	})
}

// LoadProductionLines returns all of the user's production lines ordered
// by id. The default line is created when the user has none.
func (s *ConfigStore) LoadProductionLines(ctx context.Context, userKey string) ([]planner.ProductionLine, error) {
	var lines []planner.ProductionLine

	err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, userKey)
		if err != nil {
			return err
		}
		if err := ensureDefaultLine(ctx, tx, userID); err != nil {
			return err
		}

		lines, err = queryLines(ctx, tx, userID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	return lines, nil
}

// GetProductionLine returns one of the user's production lines, or nil
// when lineID does not exist.
func (s *ConfigStore) GetProductionLine(ctx context.Context, userKey, lineID string) (*planner.ProductionLine, error) {
	var line *planner.ProductionLine

	err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, userKey)
		if err != nil {
			return err
		}
		if err := ensureDefaultLine(ctx, tx, userID); err != nil {
			return err
		}

		lines, err := queryLines(ctx, tx, userID, lineID)
		if err != nil {
			return err
		}
		if len(lines) > 0 {
			line = &lines[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return line, nil
}

// SaveProductionLine creates or replaces a production line and its targets.
// Targets keep their order; an item listed twice keeps its first position
// and its last rate.
func (s *ConfigStore) SaveProductionLine(ctx context.Context, userKey string, line planner.ProductionLine) error {
	if line.ID == "" {
		return errors.New("production line id is required")
	}

	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		userID, err := ensureUser(ctx, tx, userKey)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO production_lines (user_id, line_id, name)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id, line_id) DO UPDATE SET name = excluded.name
		`, userID, line.ID, line.Name); err != nil {
			return fmt.Errorf("saving production line: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM production_line_targets WHERE user_id = ? AND line_id = ?
		`, userID, line.ID); err != nil {
			return fmt.Errorf("clearing production line targets: %w", err)
		}

		for i, t := range line.Targets {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO production_line_targets (user_id, line_id, item_id, position, rate)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(user_id, line_id, item_id) DO UPDATE SET rate = excluded.rate
			`, userID, line.ID, t.ProductID, i, t.Rate); err != nil {
				return fmt.Errorf("saving production line target %d: %w", t.ProductID, err)
			}
		}
		return nil
	})
}

func ensureDefaultLine(ctx context.Context, tx *sql.Tx, userID int64) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM production_lines WHERE user_id = ?`, userID,
	).Scan(&count); err != nil {
		return fmt.Errorf("counting production lines: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO production_lines (user_id, line_id, name) VALUES (?, ?, ?)
	`, userID, DefaultLineID, DefaultLineName); err != nil {
		return fmt.Errorf("creating default production line: %w", err)
	}
	return nil
}

// queryLines loads the user's lines, or only lineID when it is non-empty.
func queryLines(ctx context.Context, tx *sql.Tx, userID int64, lineID string) ([]planner.ProductionLine, error) {
	query := `
		SELECT l.line_id, l.name, t.item_id, t.rate
		FROM production_lines l
		LEFT JOIN production_line_targets t ON t.user_id = l.user_id AND t.line_id = l.line_id
		WHERE l.user_id = ?`
	args := []any{userID}
	if lineID != "" {
		query += ` AND l.line_id = ?`
		args = append(args, lineID)
	}
	query += ` ORDER BY l.line_id, t.position`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying production lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []planner.ProductionLine
	for rows.Next() {
		var (
			id, name string
			itemID   sql.NullInt64
			rate     sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &itemID, &rate); err != nil {
			return nil, fmt.Errorf("scanning production line: %w", err)
		}
		if len(lines) == 0 || lines[len(lines)-1].ID != id {
			lines = append(lines, planner.ProductionLine{ID: id, Name: name, Targets: []planner.Target{}})
		}
		if itemID.Valid {
			last := &lines[len(lines)-1]
			last.Targets = append(last.Targets, planner.Target{ProductID: int(itemID.Int64), Rate: rate.Float64})
		}
	}

	return lines, rows.Err()
}
