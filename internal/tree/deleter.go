package tree

import (
	"context"
	"log"

	"craftbox-server/internal/models"
)

type deleteFrame struct {
	node     models.Node
	parent   *deleteFrame
	expanded bool
	blocked  bool
}

// deleteSubtree removes the node and, for folders, its entire subtree.
// Traversal is post-order with an explicit stack: leaves and the
// deepest folders go first, the subtree root last, so a parent record
// is only removed once every child is confirmed gone.
//
// A failure on one child does not stop its siblings, but it blocks
// every ancestor up to the root; those stay in place and are reported
// in a PartialError together with the failed nodes, so a retry can be
// scoped to exactly what remains.
//
// For files the blob is removed before the metadata record. A blob
// delete failure is logged and ignored: an orphaned blob is preferred
// over a metadata record pointing at nothing.
func (s *Service) deleteSubtree(ctx context.Context, node *models.Node) error {
	root := &deleteFrame{node: *node}
	stack := []*deleteFrame{root}
	var failedIDs []string

	fail := func(f *deleteFrame) {
		failedIDs = append(failedIDs, f.node.ID)
		if f.parent != nil {
			f.parent.blocked = true
		}
	}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]

		if frame.node.NodeType == "folder" && !frame.expanded {
			frame.expanded = true
			children, err := s.repo.GetNodesByParentID(ctx, frame.node.OwnerID, &frame.node.ID)
			if err != nil {
				log.Printf("WARN: delete: listing children of %s failed: %v", frame.node.ID, err)
				stack = stack[:len(stack)-1]
				fail(frame)
				continue
			}
			for _, child := range children {
				stack = append(stack, &deleteFrame{node: child, parent: frame})
			}
			continue
		}

		stack = stack[:len(stack)-1]

		if frame.blocked {
			// Some descendant is still present; keep this folder too.
			fail(frame)
			continue
		}

		if frame.node.NodeType == "file" && frame.node.ContentRef != nil {
			if err := s.blobs.Delete(ctx, *frame.node.ContentRef); err != nil {
				log.Printf("WARN: delete: blob %s for node %s not removed: %v", *frame.node.ContentRef, frame.node.ID, err)
			}
		}

		// A false return means the record is already gone (raced
		// delete); that counts as success.
		if _, err := s.repo.DeleteNode(ctx, frame.node.ID, frame.node.OwnerID); err != nil {
			log.Printf("WARN: delete: node %s not removed: %v", frame.node.ID, err)
			fail(frame)
		}
	}

	if len(failedIDs) > 0 {
		return &PartialError{FailedIDs: failedIDs}
	}
	return nil
}
