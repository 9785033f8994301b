package tree

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"craftbox-server/internal/models"
)

// memRepo to pamięciowa implementacja NodeRepository na potrzeby testów.
// Awarie pojedynczych rekordów można wstrzykiwać po ID, co pozwala
// deterministycznie symulować przerwane przejścia po drzewie.
type memRepo struct {
	mu            sync.Mutex
	nodes         map[string]*models.Node
	storageUsed   map[int64]int64
	failPathFor   map[string]bool
	failDeleteFor map[string]bool
	failListFor   map[string]bool
	pathUpdates   int
}

func newMemRepo() *memRepo {
	return &memRepo{
		nodes:         make(map[string]*models.Node),
		storageUsed:   make(map[int64]int64),
		failPathFor:   make(map[string]bool),
		failDeleteFor: make(map[string]bool),
		failListFor:   make(map[string]bool),
	}
}

func (r *memRepo) InsertNode(ctx context.Context, node *models.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[node.ID]; ok {
		return fmt.Errorf("node %s already exists", node.ID)
	}
	now := time.Now()
	node.CreatedAt = now
	node.ModifiedAt = now
	copied := *node
	r.nodes[node.ID] = &copied
	return nil
}

func (r *memRepo) NodeExists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.nodes[id]
	return ok, nil
}

func (r *memRepo) GetNodeByID(ctx context.Context, id string, ownerID int64) (*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return nil, nil
	}
	copied := *node
	return &copied, nil
}

func (r *memRepo) GetNodesByParentID(ctx context.Context, ownerID int64, parentID *string) ([]models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if parentID != nil && r.failListFor[*parentID] {
		return nil, fmt.Errorf("injected list failure for %s", *parentID)
	}
	var result []models.Node
	for _, node := range r.nodes {
		if node.OwnerID != ownerID {
			continue
		}
		switch {
		case parentID == nil && node.ParentID == nil:
			result = append(result, *node)
		case parentID != nil && node.ParentID != nil && *node.ParentID == *parentID:
			result = append(result, *node)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].NodeType != result[j].NodeType {
			return result[i].NodeType > result[j].NodeType
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (r *memRepo) GetAllNodes(ctx context.Context, ownerID int64) ([]models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Node
	for _, node := range r.nodes {
		if node.OwnerID == ownerID {
			result = append(result, *node)
		}
	}
	return result, nil
}

func (r *memRepo) UpdateNodePath(ctx context.Context, id string, ownerID int64, newPath string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPathFor[id] {
		return false, fmt.Errorf("injected path update failure for %s", id)
	}
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return false, nil
	}
	node.Path = newPath
	node.ModifiedAt = time.Now()
	r.pathUpdates++
	return true, nil
}

func (r *memRepo) RenameNode(ctx context.Context, id string, ownerID int64, newName, newPath string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return false, nil
	}
	node.Name = newName
	node.Path = newPath
	node.ModifiedAt = time.Now()
	return true, nil
}

func (r *memRepo) MoveNode(ctx context.Context, id string, ownerID int64, newParentID *string, newPath string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return false, nil
	}
	node.ParentID = newParentID
	node.Path = newPath
	node.ModifiedAt = time.Now()
	return true, nil
}

func (r *memRepo) DeleteNode(ctx context.Context, id string, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDeleteFor[id] {
		return false, fmt.Errorf("injected delete failure for %s", id)
	}
	node, ok := r.nodes[id]
	if !ok || node.OwnerID != ownerID {
		return false, nil
	}
	delete(r.nodes, id)
	return true, nil
}

func (r *memRepo) UpdateUserStorageUsed(ctx context.Context, userID int64, usedBytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storageUsed[userID] = usedBytes
	return nil
}

func (r *memRepo) get(id string) *models.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok {
		return nil
	}
	copied := *node
	return &copied
}

func (r *memRepo) count(ownerID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, node := range r.nodes {
		if node.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// memBlobs is an in-memory BlobStore with injectable delete failures.
type memBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failFor map[string]bool
	deleted []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{
		blobs:   make(map[string][]byte),
		failFor: make(map[string]bool),
	}
}

func (b *memBlobs) Save(ctx context.Context, ref string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[ref] = content
	return nil
}

func (b *memBlobs) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", ref)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (b *memBlobs) Delete(ctx context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failFor[ref] {
		return fmt.Errorf("injected blob delete failure for %s", ref)
	}
	delete(b.blobs, ref)
	b.deleted = append(b.deleted, ref)
	return nil
}

func strPtr(s string) *string { return &s }

// seedFolder and seedFile bypass the service so tests can lay out a tree
// with known IDs and paths.
func seedFolder(r *memRepo, id string, ownerID int64, parentID *string, name, path string) *models.Node {
	node := &models.Node{
		ID:       id,
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     name,
		NodeType: "folder",
		Path:     path,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *node
	r.nodes[id] = &copied
	return node
}

func seedFile(r *memRepo, id string, ownerID int64, parentID *string, name, path string, sizeBytes int64, contentRef string) *models.Node {
	node := &models.Node{
		ID:         id,
		OwnerID:    ownerID,
		ParentID:   parentID,
		Name:       name,
		NodeType:   "file",
		Path:       path,
		SizeBytes:  &sizeBytes,
		ContentRef: &contentRef,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *node
	r.nodes[id] = &copied
	return node
}
