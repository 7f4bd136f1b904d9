package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Get returns the stored value and whether one exists.
func (r *Repo) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT value
		FROM preferences
		WHERE client_id = ? AND key = ?
	`, clientID, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get preference: %w", err)
	}
	return value, true, nil
}

func (r *Repo) Set(ctx context.Context, clientID, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO preferences (client_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(client_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, clientID, key, value)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}
