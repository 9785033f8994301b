package tree

import (
	"fmt"
	"strings"

	"craftbox-server/internal/models"
)

// validateName checks a display name before any record is touched.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if strings.Contains(name, Separator) {
		return fmt.Errorf("%w: name cannot contain %q", ErrValidation, Separator)
	}
	return nil
}

func validateRename(subject *models.Node, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	if newName == subject.Name {
		return fmt.Errorf("%w: name is unchanged", ErrValidation)
	}
	return nil
}

// validateMove decides whether moving subject under destination (nil =
// owner's root) is structurally legal. It relies on the path invariant:
// destination lies inside subject's subtree exactly when its path has
// subject's path as a proper prefix, so no tree walk is needed. Must be
// called before any mutation; it has no side effects.
func validateMove(subject, destination *models.Node) error {
	if destination == nil {
		if subject.ParentID == nil {
			return fmt.Errorf("%w: node is already in the root folder", ErrInvalidMove)
		}
		return nil
	}
	if destination.NodeType != "folder" {
		return fmt.Errorf("%w: destination is not a folder", ErrInvalidMove)
	}
	if destination.ID == subject.ID {
		return fmt.Errorf("%w: cannot move a folder into itself", ErrInvalidMove)
	}
	if subject.NodeType == "folder" && strings.HasPrefix(destination.Path, subject.Path+Separator) {
		return fmt.Errorf("%w: cannot move a folder into its own subtree", ErrInvalidMove)
	}
	if subject.ParentID != nil && *subject.ParentID == destination.ID {
		return fmt.Errorf("%w: node is already in this folder", ErrInvalidMove)
	}
	return nil
}

// joinPath derives a child path from its parent's path. Root-level
// nodes carry just their name, with no leading separator.
func joinPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + Separator + name
}

// replaceLastSegment swaps the final segment of a path for a new name.
func replaceLastSegment(path, newName string) string {
	if idx := strings.LastIndex(path, Separator); idx >= 0 {
		return path[:idx+1] + newName
	}
	return newName
}
