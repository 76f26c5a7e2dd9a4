package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/nilotpaul/meetsync/types"
)

// CreateAutomation inserts a new automation row.
func CreateAutomation(ctx context.Context, db *sql.DB, a *types.Automation) error {
	const query = `
		INSERT INTO automations (id, user_id, name, enabled, tags, steps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	steps, err := json.Marshal(a.Steps)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Name,
		a.Enabled,
		pq.Array(a.Tags),
		string(steps),
		a.CreatedAt,
	)

	return err
}

// ListAutomations gets the user's automations, oldest first.
func ListAutomations(ctx context.Context, db *sql.DB, userID string) ([]*types.Automation, error) {
	const query = `
		SELECT id, user_id, name, enabled, tags, steps, created_at
		FROM automations
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*types.Automation
	for rows.Next() {
		var (
			a     types.Automation
			steps []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Enabled, pq.Array(&a.Tags), &steps, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(steps, &a.Steps); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}

	return list, rows.Err()
}
