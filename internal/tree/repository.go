package tree

import (
	"context"
	"io"

	"craftbox-server/internal/models"
)

// Separator joins path segments in the materialized path. Node names
// must never contain it.
const Separator = "/"

// NodeRepository is the per-record contract against the metadata store.
// Every call is scoped to one owner; none of the methods span more than
// a single record, so the engine above cannot rely on transactions.
type NodeRepository interface {
	InsertNode(ctx context.Context, node *models.Node) error
	NodeExists(ctx context.Context, id string) (bool, error)
	GetNodeByID(ctx context.Context, id string, ownerID int64) (*models.Node, error)
	GetNodesByParentID(ctx context.Context, ownerID int64, parentID *string) ([]models.Node, error)
	GetAllNodes(ctx context.Context, ownerID int64) ([]models.Node, error)
	UpdateNodePath(ctx context.Context, id string, ownerID int64, newPath string) (bool, error)
	RenameNode(ctx context.Context, id string, ownerID int64, newName, newPath string) (bool, error)
	MoveNode(ctx context.Context, id string, ownerID int64, newParentID *string, newPath string) (bool, error)
	DeleteNode(ctx context.Context, id string, ownerID int64) (bool, error)
	UpdateUserStorageUsed(ctx context.Context, userID int64, usedBytes int64) error
}

// BlobStore is the binary content store. Refs are opaque and stable:
// renames and moves in the tree never relocate a blob.
type BlobStore interface {
	Save(ctx context.Context, ref string, data io.Reader) error
	Get(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}
