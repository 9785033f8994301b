package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"craftbox-server/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicateNodeName = errors.New("a node with the same name already exists in this folder")

const nodeColumns = `id, owner_id, parent_id, name, node_type, path, size_bytes, mime_type, content_ref, created_at, modified_at`

func scanNode(row pgx.Row, node *models.Node) error {
	return row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.NodeType,
		&node.Path,
		&node.SizeBytes,
		&node.MimeType,
		&node.ContentRef,
		&node.CreatedAt,
		&node.ModifiedAt,
	)
}

func (s *PostgresStore) InsertNode(ctx context.Context, node *models.Node) error {
	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, node_type, path, size_bytes, mime_type, content_ref, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now()
	node.CreatedAt = now
	node.ModifiedAt = now

	_, err := s.pool.Exec(ctx, query,
		node.ID,
		node.OwnerID,
		node.ParentID,
		node.Name,
		node.NodeType,
		node.Path,
		node.SizeBytes,
		node.MimeType,
		node.ContentRef,
		now,
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateNodeName
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("parent folder does not exist")
		}
		return err
	}

	return nil
}

func (s *PostgresStore) NodeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)"
	err := s.pool.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) GetNodeByID(ctx context.Context, id string, ownerID int64) (*models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM nodes WHERE id = $1 AND owner_id = $2`, nodeColumns)

	var node models.Node
	err := scanNode(s.pool.QueryRow(ctx, query, id, ownerID), &node)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &node, nil
}

func (s *PostgresStore) GetNodesByParentID(ctx context.Context, ownerID int64, parentID *string) ([]models.Node, error) {
	var rows pgx.Rows
	var err error

	if parentID == nil {
		query := fmt.Sprintf(`SELECT %s FROM nodes
				 WHERE owner_id = $1 AND parent_id IS NULL
				 ORDER BY node_type DESC, name`, nodeColumns)
		rows, err = s.pool.Query(ctx, query, ownerID)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM nodes
				 WHERE owner_id = $1 AND parent_id = $2
				 ORDER BY node_type DESC, name`, nodeColumns)
		rows, err = s.pool.Query(ctx, query, ownerID, *parentID)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

func (s *PostgresStore) GetAllNodes(ctx context.Context, ownerID int64) ([]models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM nodes WHERE owner_id = $1`, nodeColumns)
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	var nodes []models.Node
	for rows.Next() {
		var node models.Node
		if err := scanNode(rows, &node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if nodes == nil {
		return []models.Node{}, nil
	}

	return nodes, nil
}

func (s *PostgresStore) UpdateNodePath(ctx context.Context, id string, ownerID int64, newPath string) (bool, error) {
	query := `
		UPDATE nodes
		SET path = $1, modified_at = $2
		WHERE id = $3 AND owner_id = $4
	`
	now := time.Now()
	res, err := s.pool.Exec(ctx, query, newPath, now, id, ownerID)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (s *PostgresStore) RenameNode(ctx context.Context, id string, ownerID int64, newName, newPath string) (bool, error) {
	query := `
		UPDATE nodes
		SET name = $1, path = $2, modified_at = $3
		WHERE id = $4 AND owner_id = $5
	`
	now := time.Now()
	res, err := s.pool.Exec(ctx, query, newName, newPath, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicateNodeName
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (s *PostgresStore) MoveNode(ctx context.Context, id string, ownerID int64, newParentID *string, newPath string) (bool, error) {
	query := `
		UPDATE nodes
		SET parent_id = $1, path = $2, modified_at = $3
		WHERE id = $4 AND owner_id = $5
	`
	now := time.Now()
	res, err := s.pool.Exec(ctx, query, newParentID, newPath, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, fmt.Errorf("target folder does not exist")
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicateNodeName
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteNode(ctx context.Context, id string, ownerID int64) (bool, error) {
	query := `DELETE FROM nodes WHERE id = $1 AND owner_id = $2`
	res, err := s.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}
