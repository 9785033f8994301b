package database

import (
	"context"
	"errors"

	"craftbox-server/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password_hash, display_name, created_at, storage_quota_bytes, storage_used_bytes`

func scanUser(row pgx.Row, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayName,
		&user.CreatedAt,
		&user.StorageQuotaBytes,
		&user.StorageUsedBytes,
	)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	var user models.User
	err := scanUser(s.pool.QueryRow(ctx, query, username), &user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user models.User
	err := scanUser(s.pool.QueryRow(ctx, query, id), &user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// UpdateUserStorageUsed persists the cached usage counter. The value is
// always derived from the node records, never trusted on its own.
func (s *PostgresStore) UpdateUserStorageUsed(ctx context.Context, userID int64, usedBytes int64) error {
	query := `UPDATE users SET storage_used_bytes = $1 WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, usedBytes, userID)
	return err
}
