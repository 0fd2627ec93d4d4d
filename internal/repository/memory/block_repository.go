package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"propchat/internal/entity"
	"propchat/internal/repository"

	"github.com/google/uuid"
)

type blockKey struct {
	blocker string
	blocked string
}

type blockRepository struct {
	mu     sync.RWMutex
	blocks map[blockKey]entity.Block
}

func NewBlockRepository() repository.BlockRepository {
	return &blockRepository{
		blocks: make(map[blockKey]entity.Block),
	}
}

func (r *blockRepository) Exists(ctx context.Context, blockerId, blockedId string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.blocks[blockKey{blockerId, blockedId}]
	return ok, nil
}

func (r *blockRepository) ExistsEither(ctx context.Context, partyA, partyB string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, forward := r.blocks[blockKey{partyA, partyB}]
	_, reverse := r.blocks[blockKey{partyB, partyA}]
	return forward || reverse, nil
}

func (r *blockRepository) Create(ctx context.Context, block entity.Block) (entity.Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := blockKey{block.BlockerId, block.BlockedId}
	if _, ok := r.blocks[key]; ok {
		return entity.Block{}, repository.ErrDuplicate
	}
	if block.Id == "" {
		block.Id = uuid.New().String()
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now()
	}
	r.blocks[key] = block

	return block, nil
}

func (r *blockRepository) Delete(ctx context.Context, blockerId, blockedId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := blockKey{blockerId, blockedId}
	if _, ok := r.blocks[key]; !ok {
		return repository.ErrBlockNotFound
	}
	delete(r.blocks, key)

	return nil
}

func (r *blockRepository) IndexByBlocker(ctx context.Context, blockerId string) ([]entity.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Block
	for key, b := range r.blocks {
		if key.blocker == blockerId {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}
