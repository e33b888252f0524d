package database

import (
	"context"
	"fmt"
	"time"

	"jobtracker/internal/models"
)

// AddEquipment привязывает оборудование к существующей работе.
func (db *DB) AddEquipment(ctx context.Context, eq *models.Equipment) error {
	if eq.CreatedAt.IsZero() {
		eq.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO equipment (id, job_id, name, category, quantity, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := db.ExecContext(ctx, query,
		eq.ID,
		eq.JobID,
		eq.Name,
		eq.Category,
		eq.Quantity,
		eq.Notes,
		eq.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("insert equipment: %w", err)
	}
	return nil
}

func (db *DB) ListEquipment(ctx context.Context, jobID string) ([]*models.Equipment, error) {
	query := `
        SELECT id, job_id, name, category, quantity, notes, created_at
        FROM equipment
        WHERE job_id = ?
        ORDER BY created_at, name
    `
	rows, err := db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Equipment, 0)
	for rows.Next() {
		var eq models.Equipment
		if err := rows.Scan(
			&eq.ID,
			&eq.JobID,
			&eq.Name,
			&eq.Category,
			&eq.Quantity,
			&eq.Notes,
			&eq.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		items = append(items, &eq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return items, nil
}
