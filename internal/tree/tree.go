// Package tree is the hierarchy-consistency engine: the single place
// that mutates the folder/file tree. It keeps three things mutually
// consistent without cross-record transactions: the parent_id pointers
// (the source of truth for structure), the denormalized materialized
// paths (a derived cache maintained eagerly), and the per-owner storage
// usage counters (always recomputable from the node records).
package tree

import (
	"context"
	"fmt"
	"log"
	"time"

	"craftbox-server/internal/models"

	"github.com/jaevor/go-nanoid"
)

type Service struct {
	repo  NodeRepository
	blobs BlobStore
	quota *QuotaAggregator
}

func NewService(repo NodeRepository, blobs BlobStore) *Service {
	return &Service{
		repo:  repo,
		blobs: blobs,
		quota: NewQuotaAggregator(repo),
	}
}

func (s *Service) Quota() *QuotaAggregator {
	return s.quota
}

func (s *Service) generateUniqueID(ctx context.Context) (string, error) {
	maxRetries := 10

	generateID, err := nanoid.Standard(21)
	if err != nil {
		return "", fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	for i := 0; i < maxRetries; i++ {
		id := generateID()
		exists, err := s.repo.NodeExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for node existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

// resolveParent loads and checks the destination folder for a create.
// A nil parentID means the owner's root.
func (s *Service) resolveParent(ctx context.Context, ownerID int64, parentID *string) (*models.Node, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := s.repo.GetNodeByID(ctx, *parentID, ownerID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: parent folder", ErrNotFound)
	}
	if parent.NodeType != "folder" {
		return nil, fmt.Errorf("%w: parent is not a folder", ErrValidation)
	}
	return parent, nil
}

func (s *Service) CreateFolder(ctx context.Context, ownerID int64, parentID *string, name string) (*models.Node, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	parent, err := s.resolveParent(ctx, ownerID, parentID)
	if err != nil {
		return nil, err
	}

	parentPath := ""
	if parent != nil {
		parentPath = parent.Path
	}

	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	node := &models.Node{
		ID:       id,
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     name,
		NodeType: "folder",
		Path:     joinPath(parentPath, name),
	}

	if err := s.repo.InsertNode(ctx, node); err != nil {
		return nil, err
	}

	return node, nil
}

// CreateFile records a completed upload. The blob must already be
// durably stored under contentRef before this is called; the metadata
// record is only ever created second.
func (s *Service) CreateFile(ctx context.Context, ownerID int64, parentID *string, name string, sizeBytes int64, mimeType, contentRef string) (*models.Node, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	parent, err := s.resolveParent(ctx, ownerID, parentID)
	if err != nil {
		return nil, err
	}

	parentPath := ""
	if parent != nil {
		parentPath = parent.Path
	}

	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	node := &models.Node{
		ID:         id,
		OwnerID:    ownerID,
		ParentID:   parentID,
		Name:       name,
		NodeType:   "file",
		Path:       joinPath(parentPath, name),
		SizeBytes:  &sizeBytes,
		MimeType:   &mimeType,
		ContentRef: &contentRef,
	}

	if err := s.repo.InsertNode(ctx, node); err != nil {
		return nil, err
	}

	s.refreshUsage(ctx, ownerID)
	return node, nil
}

// Rename changes a node's display name and path, then propagates the
// new path prefix through the subtree for folders. Bytes stored never
// change, so usage is left alone.
func (s *Service) Rename(ctx context.Context, ownerID int64, nodeID, newName string) (*models.Node, error) {
	node, err := s.repo.GetNodeByID(ctx, nodeID, ownerID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNotFound
	}

	if err := validateRename(node, newName); err != nil {
		return nil, err
	}

	oldPath := node.Path
	newPath := replaceLastSegment(oldPath, newName)

	ok, err := s.repo.RenameNode(ctx, nodeID, ownerID, newName, newPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	node.Name = newName
	node.Path = newPath
	node.ModifiedAt = time.Now()

	if node.NodeType == "folder" {
		// Rename jest już trwały; niedokończona propagacja wraca jako
		// PartialError i jest domykana przez RepairPaths.
		if _, err := s.repath(ctx, ownerID, nodeID, oldPath, newPath); err != nil {
			return node, fmt.Errorf("rename applied, path propagation incomplete: %w", err)
		}
	}

	return node, nil
}

// Move re-parents a node. The validator runs strictly before the first
// write, so an illegal move leaves no record touched.
func (s *Service) Move(ctx context.Context, ownerID int64, nodeID string, destinationID *string) (*models.Node, error) {
	node, err := s.repo.GetNodeByID(ctx, nodeID, ownerID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNotFound
	}

	var destination *models.Node
	if destinationID != nil {
		destination, err = s.repo.GetNodeByID(ctx, *destinationID, ownerID)
		if err != nil {
			return nil, err
		}
		if destination == nil {
			return nil, fmt.Errorf("%w: destination folder", ErrNotFound)
		}
	}

	if err := validateMove(node, destination); err != nil {
		return nil, err
	}

	destinationPath := ""
	if destination != nil {
		destinationPath = destination.Path
	}

	oldPath := node.Path
	newPath := joinPath(destinationPath, node.Name)

	ok, err := s.repo.MoveNode(ctx, nodeID, ownerID, destinationID, newPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	node.ParentID = destinationID
	node.Path = newPath
	node.ModifiedAt = time.Now()

	if node.NodeType == "folder" {
		if _, err := s.repath(ctx, ownerID, nodeID, oldPath, newPath); err != nil {
			return node, fmt.Errorf("move applied, path propagation incomplete: %w", err)
		}
	}

	return node, nil
}

// Delete removes a node and, for folders, its whole subtree. The
// returned node lets callers redirect away from a deleted location
// (its ParentID is the former parent). On PartialFailure the usage
// counter is still refreshed, because some bytes are already gone.
func (s *Service) Delete(ctx context.Context, ownerID int64, nodeID string) (*models.Node, error) {
	node, err := s.repo.GetNodeByID(ctx, nodeID, ownerID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNotFound
	}

	deleteErr := s.deleteSubtree(ctx, node)
	s.refreshUsage(ctx, ownerID)

	return node, deleteErr
}

// Usage returns the owner's consumed bytes. Served from the per-owner
// cache, which refreshUsage drops and rebuilds after every mutation
// that changes stored bytes; a cold cache falls back to a full
// recompute over the node records.
func (s *Service) Usage(ctx context.Context, ownerID int64) (int64, error) {
	return s.quota.Usage(ctx, ownerID)
}

// refreshUsage re-derives the owner's usage and persists the cached
// counter on the user record. The counter is display-only, so a failure
// here is logged, never surfaced.
func (s *Service) refreshUsage(ctx context.Context, ownerID int64) {
	s.quota.Invalidate(ownerID)
	total, err := s.quota.Recompute(ctx, ownerID)
	if err != nil {
		log.Printf("WARN: usage recompute for owner %d failed: %v", ownerID, err)
		return
	}
	if err := s.repo.UpdateUserStorageUsed(ctx, ownerID, total); err != nil {
		log.Printf("WARN: persisting usage for owner %d failed: %v", ownerID, err)
	}
}
