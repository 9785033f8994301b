package tree

import (
	"testing"

	"craftbox-server/internal/models"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, validateName("raport.pdf"))
	require.NoError(t, validateName("Nowy folder"))

	err := validateName("")
	require.ErrorIs(t, err, ErrValidation)

	err = validateName("   ")
	require.ErrorIs(t, err, ErrValidation)

	err = validateName("a/b")
	require.ErrorIs(t, err, ErrValidation)
}

func TestValidateRenameUnchangedName(t *testing.T) {
	node := &models.Node{ID: "n1", Name: "raport.pdf", NodeType: "file"}

	err := validateRename(node, "raport.pdf")
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, validateRename(node, "raport-v2.pdf"))
}

func TestValidateMove(t *testing.T) {
	folderA := &models.Node{ID: "a", Name: "A", NodeType: "folder", Path: "A"}
	folderAB := &models.Node{ID: "ab", ParentID: strPtr("a"), Name: "B", NodeType: "folder", Path: "A/B"}
	file := &models.Node{ID: "f", ParentID: strPtr("a"), Name: "plik.txt", NodeType: "file", Path: "A/plik.txt"}
	// Sam prefiks tekstowy to za mało - "AB" nie leży wewnątrz "A".
	folderABSibling := &models.Node{ID: "absib", Name: "AB", NodeType: "folder", Path: "AB"}

	// Do roota: legalne, chyba że węzeł już tam jest.
	require.NoError(t, validateMove(folderAB, nil))
	require.ErrorIs(t, validateMove(folderA, nil), ErrInvalidMove)

	// Cel musi być folderem.
	require.ErrorIs(t, validateMove(folderAB, file), ErrInvalidMove)

	// Folder do samego siebie.
	require.ErrorIs(t, validateMove(folderA, folderA), ErrInvalidMove)

	// Folder do własnego poddrzewa.
	require.ErrorIs(t, validateMove(folderA, folderAB), ErrInvalidMove)

	// Przeniesienie do obecnego rodzica to no-op.
	require.ErrorIs(t, validateMove(file, folderA), ErrInvalidMove)

	// Folder o nazwie z tym samym prefiksem znakowym nie jest potomkiem.
	require.NoError(t, validateMove(folderA, folderABSibling))
}

func TestJoinPath(t *testing.T) {
	require.Equal(t, "notes.txt", joinPath("", "notes.txt"))
	require.Equal(t, "Builds/v1", joinPath("Builds", "v1"))
}

func TestReplaceLastSegment(t *testing.T) {
	require.Equal(t, "Builds/v2", replaceLastSegment("Builds/v1", "v2"))
	require.Equal(t, "Releases", replaceLastSegment("Builds", "Releases"))
}
