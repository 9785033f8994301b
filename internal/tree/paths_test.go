package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const testOwner = int64(1)

// seedBuildTree lays out:
//
//	Builds/            (folder, root)
//	Builds/v1          (folder)
//	Builds/v1/notes.txt (file)
//	Builds/latest.log   (file)
func seedBuildTree(repo *memRepo) {
	seedFolder(repo, "builds", testOwner, nil, "Builds", "Builds")
	seedFolder(repo, "v1", testOwner, strPtr("builds"), "v1", "Builds/v1")
	seedFile(repo, "notes", testOwner, strPtr("v1"), "notes.txt", "Builds/v1/notes.txt", 200, "ref-notes")
	seedFile(repo, "latest", testOwner, strPtr("builds"), "latest.log", "Builds/latest.log", 1000, "ref-latest")
}

func TestRepathPropagatesToAllDescendants(t *testing.T) {
	repo := newMemRepo()
	seedBuildTree(repo)
	svc := NewService(repo, newMemBlobs())

	// Folder sam w sobie jest już zapisany z nową ścieżką - repath
	// dotyczy wyłącznie potomków.
	repo.nodes["builds"].Path = "Releases"
	repo.nodes["builds"].Name = "Releases"

	updated, err := svc.repath(context.Background(), testOwner, "builds", "Builds", "Releases")
	require.NoError(t, err)
	require.Equal(t, 3, updated)

	require.Equal(t, "Releases/v1", repo.get("v1").Path)
	require.Equal(t, "Releases/v1/notes.txt", repo.get("notes").Path)
	require.Equal(t, "Releases/latest.log", repo.get("latest").Path)
}

func TestRepathIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	seedBuildTree(repo)
	svc := NewService(repo, newMemBlobs())

	repo.nodes["builds"].Path = "Releases"

	_, err := svc.repath(context.Background(), testOwner, "builds", "Builds", "Releases")
	require.NoError(t, err)

	// Drugie uruchomienie z tymi samymi argumentami nie dotyka żadnego
	// rekordu: potomkowie nie niosą już starego prefiksu.
	before := repo.pathUpdates
	updated, err := svc.repath(context.Background(), testOwner, "builds", "Builds", "Releases")
	require.NoError(t, err)
	require.Equal(t, 0, updated)
	require.Equal(t, before, repo.pathUpdates)
}

func TestRepathInterruptedThenRetried(t *testing.T) {
	repo := newMemRepo()
	seedBuildTree(repo)
	svc := NewService(repo, newMemBlobs())

	repo.nodes["builds"].Path = "Releases"

	// Pierwsze podejście pada na pliku w podfolderze. Błąd wymienia
	// dokładnie ten rekord, a reszta drzewa i tak zostaje przepisana.
	repo.failPathFor["notes"] = true
	_, err := svc.repath(context.Background(), testOwner, "builds", "Builds", "Releases")
	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, []string{"notes"}, partial.FailedIDs)

	require.Equal(t, "Builds/v1/notes.txt", repo.get("notes").Path)
	require.Equal(t, "Releases/v1", repo.get("v1").Path)
	require.Equal(t, "Releases/latest.log", repo.get("latest").Path)

	// Ponowienie tego samego repath domyka resztę bez podwójnych zapisów.
	repo.failPathFor["notes"] = false
	_, err = svc.repath(context.Background(), testOwner, "builds", "Builds", "Releases")
	require.NoError(t, err)

	require.Equal(t, "Releases/v1", repo.get("v1").Path)
	require.Equal(t, "Releases/v1/notes.txt", repo.get("notes").Path)
	require.Equal(t, "Releases/latest.log", repo.get("latest").Path)
}

func TestRepairPathsForcesDerivedPaths(t *testing.T) {
	repo := newMemRepo()
	seedBuildTree(repo)
	svc := NewService(repo, newMemBlobs())

	// Symulacja przerwanej propagacji: folder ma nową ścieżkę, potomkowie
	// noszą mieszankę starych prefiksów.
	repo.nodes["builds"].Path = "Releases"
	repo.nodes["v1"].Path = "Releases/v1"
	// "notes" wciąż pod starym prefiksem.

	repaired, err := svc.RepairPaths(context.Background(), testOwner, "builds")
	require.NoError(t, err)
	require.Equal(t, 2, repaired) // notes + latest

	require.Equal(t, "Releases/v1/notes.txt", repo.get("notes").Path)
	require.Equal(t, "Releases/latest.log", repo.get("latest").Path)

	// Kolejny przebieg niczego nie zmienia.
	repaired, err = svc.RepairPaths(context.Background(), testOwner, "builds")
	require.NoError(t, err)
	require.Equal(t, 0, repaired)
}

func TestRepathListingFailureNamesTheFolder(t *testing.T) {
	repo := newMemRepo()
	seedBuildTree(repo)
	svc := NewService(repo, newMemBlobs())

	repo.nodes["builds"].Path = "Releases"

	// Nie da się wylistować dzieci v1 - całe to poddrzewo zostaje przy
	// starym prefiksie poniżej samego v1, a błąd wskazuje v1 jako korzeń
	// do ponowienia.
	repo.failListFor["v1"] = true
	_, err := svc.repath(context.Background(), testOwner, "builds", "Builds", "Releases")
	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, []string{"v1"}, partial.FailedIDs)

	// Rodzeństwo poza uszkodzonym poddrzewem zostało przepisane.
	require.Equal(t, "Releases/v1", repo.get("v1").Path)
	require.Equal(t, "Releases/latest.log", repo.get("latest").Path)
	require.Equal(t, "Builds/v1/notes.txt", repo.get("notes").Path)

	repo.failListFor["v1"] = false
	_, err = svc.repath(context.Background(), testOwner, "builds", "Builds", "Releases")
	require.NoError(t, err)
	require.Equal(t, "Releases/v1/notes.txt", repo.get("notes").Path)
}

func TestRepairPathsUnknownFolder(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, newMemBlobs())

	_, err := svc.RepairPaths(context.Background(), testOwner, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
