package tree

import (
	"context"
	"log"
	"strings"

	"craftbox-server/internal/models"
)

type repathFrame struct {
	folderID string
	oldPath  string
	newPath  string
}

// repath propagates a path prefix change into every descendant of the
// given folder. The folder's own record must already be persisted with
// its new path. The traversal uses an explicit stack instead of
// recursion, so depth is bounded only by memory, and a child's record
// is always updated before its own children are visited.
//
// A failed write does not stop the traversal: the child is recorded and
// its subtree skipped, siblings and the rest of the tree still get
// repathed. The failures come back as a *PartialError naming the roots
// of every subtree still carrying the old prefix, so a retry (the same
// repath, or RepairPaths on the folder) can be scoped to exactly what
// remains. Re-running with the same arguments writes nothing for
// descendants already carrying the new prefix but still descends
// through them, so an interrupted run converges on retry.
func (s *Service) repath(ctx context.Context, ownerID int64, folderID, oldPath, newPath string) (int, error) {
	stack := []repathFrame{{folderID: folderID, oldPath: oldPath, newPath: newPath}}
	updated := 0
	var failedIDs []string

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.repo.GetNodesByParentID(ctx, ownerID, &frame.folderID)
		if err != nil {
			log.Printf("WARN: repath: listing children of %s failed: %v", frame.folderID, err)
			failedIDs = append(failedIDs, frame.folderID)
			continue
		}

		for _, child := range children {
			childOldPath := frame.oldPath + Separator + child.Name
			childNewPath := frame.newPath + Separator + child.Name

			if strings.HasPrefix(child.Path, frame.oldPath+Separator) {
				if _, err := s.repo.UpdateNodePath(ctx, child.ID, ownerID, childNewPath); err != nil {
					log.Printf("WARN: repath: updating %s failed: %v", child.ID, err)
					// Całe poddrzewo dziecka zostaje przy starym
					// prefiksie; jego ID wystarczy do ponowienia.
					failedIDs = append(failedIDs, child.ID)
					continue
				}
				updated++
			}

			// A child already carrying the new prefix is not rewritten,
			// but its subtree may still hold the old one after an
			// interrupted run, so descend regardless.
			if child.NodeType == "folder" {
				stack = append(stack, repathFrame{folderID: child.ID, oldPath: childOldPath, newPath: childNewPath})
			}
		}
	}

	if len(failedIDs) > 0 {
		return updated, &PartialError{FailedIDs: failedIDs}
	}
	return updated, nil
}

// RepairPaths re-derives descendant paths from the current parent
// chain, starting at the given folder. It is the retry-to-completion
// hook for a repath that was interrupted: each child's path is forced
// to parent.path + separator + child.name regardless of what prefix it
// carries now. Like repath it keeps going past failed records and
// reports them in a *PartialError.
func (s *Service) RepairPaths(ctx context.Context, ownerID int64, folderID string) (int, error) {
	folder, err := s.repo.GetNodeByID(ctx, folderID, ownerID)
	if err != nil {
		return 0, err
	}
	if folder == nil {
		return 0, ErrNotFound
	}

	stack := []models.Node{*folder}
	repaired := 0
	var failedIDs []string

	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.repo.GetNodesByParentID(ctx, ownerID, &parent.ID)
		if err != nil {
			log.Printf("WARN: repair: listing children of %s failed: %v", parent.ID, err)
			failedIDs = append(failedIDs, parent.ID)
			continue
		}

		for _, child := range children {
			want := joinPath(parent.Path, child.Name)
			if child.Path != want {
				if _, err := s.repo.UpdateNodePath(ctx, child.ID, ownerID, want); err != nil {
					log.Printf("WARN: repair: updating %s failed: %v", child.ID, err)
					failedIDs = append(failedIDs, child.ID)
					continue
				}
				child.Path = want
				repaired++
			}
			if child.NodeType == "folder" {
				stack = append(stack, child)
			}
		}
	}

	if len(failedIDs) > 0 {
		return repaired, &PartialError{FailedIDs: failedIDs}
	}
	return repaired, nil
}
