package tree

import (
	"context"

	"github.com/puzpuzpuz/xsync/v4"
)

// QuotaAggregator computes an owner's consumed storage: the sum of
// size_bytes over their file nodes, independent of folder structure.
// A full recomputation over the node records is always the ground
// truth; the per-owner cache only saves repeated scans between
// mutations and is dropped whenever stored bytes change.
type QuotaAggregator struct {
	repo  NodeRepository
	cache *xsync.Map[int64, int64]
}

func NewQuotaAggregator(repo NodeRepository) *QuotaAggregator {
	return &QuotaAggregator{
		repo:  repo,
		cache: xsync.NewMap[int64, int64](),
	}
}

func (q *QuotaAggregator) Usage(ctx context.Context, ownerID int64) (int64, error) {
	if cached, ok := q.cache.Load(ownerID); ok {
		return cached, nil
	}
	return q.Recompute(ctx, ownerID)
}

// Recompute scans the owner's full node set and refreshes the cache.
func (q *QuotaAggregator) Recompute(ctx context.Context, ownerID int64) (int64, error) {
	nodes, err := q.repo.GetAllNodes(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, node := range nodes {
		if node.NodeType == "file" && node.SizeBytes != nil {
			total += *node.SizeBytes
		}
	}

	q.cache.Store(ownerID, total)
	return total, nil
}

func (q *QuotaAggregator) Invalidate(ownerID int64) {
	q.cache.Delete(ownerID)
}
