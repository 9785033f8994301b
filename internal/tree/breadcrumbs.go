package tree

import (
	"context"

	"craftbox-server/internal/models"
)

// breadcrumbDepthLimit caps the upward walk so a corrupted parent chain
// (a cycle the validator should have made impossible) cannot loop
// forever.
const breadcrumbDepthLimit = 256

// ResolvePath reconstructs the ancestor chain of a node, ordered from
// the root-most ancestor down to the node itself. A dangling or foreign
// parent reference breaks the walk: the partial chain gathered so far
// is returned instead of an error, so callers can still render a
// shortened breadcrumb. Read-only; safe to call concurrently with
// structural mutations (it may observe a mid-update tree).
func (s *Service) ResolvePath(ctx context.Context, ownerID int64, nodeID string) ([]models.Node, error) {
	node, err := s.repo.GetNodeByID(ctx, nodeID, ownerID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNotFound
	}

	chain := []models.Node{*node}
	current := node

	for depth := 0; current.ParentID != nil && depth < breadcrumbDepthLimit; depth++ {
		parent, err := s.repo.GetNodeByID(ctx, *current.ParentID, ownerID)
		if err != nil || parent == nil {
			// Broken link: the parent vanished or belongs to someone
			// else. Degrade to the chain collected so far.
			break
		}
		chain = append([]models.Node{*parent}, chain...)
		current = parent
	}

	return chain, nil
}
