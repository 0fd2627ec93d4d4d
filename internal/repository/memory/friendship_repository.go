package memory

import (
	"context"
	"sync"
	"time"

	"propchat/internal/entity"
	"propchat/internal/repository"

	"github.com/google/uuid"
)

type friendshipRepository struct {
	mu          sync.RWMutex
	friendships map[string]entity.Friendship
}

func NewFriendshipRepository() repository.FriendshipRepository {
	return &friendshipRepository{
		friendships: make(map[string]entity.Friendship),
	}
}

func (r *friendshipRepository) GetByPair(ctx context.Context, partyLow, partyHigh string) (entity.Friendship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.findByPair(partyLow, partyHigh)
}

func (r *friendshipRepository) Create(ctx context.Context, friendship entity.Friendship) (entity.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.findByPair(friendship.PartyLow, friendship.PartyHigh); err == nil {
		return entity.Friendship{}, repository.ErrDuplicate
	}
	if friendship.Id == "" {
		friendship.Id = uuid.New().String()
	}
	now := time.Now()
	friendship.CreatedAt = now
	friendship.UpdatedAt = now
	r.friendships[friendship.Id] = friendship

	return friendship, nil
}

func (r *friendshipRepository) SetActive(ctx context.Context, friendshipId string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.friendships[friendshipId]
	if !ok {
		return repository.ErrFriendshipNotFound
	}
	f.IsActive = active
	f.UpdatedAt = time.Now()
	r.friendships[friendshipId] = f

	return nil
}

func (r *friendshipRepository) IndexActiveByParty(ctx context.Context, partyId string) ([]entity.Friendship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Friendship
	for _, f := range r.friendships {
		if f.IsActive && (f.PartyLow == partyId || f.PartyHigh == partyId) {
			out = append(out, f)
		}
	}

	return out, nil
}

func (r *friendshipRepository) findByPair(partyLow, partyHigh string) (entity.Friendship, error) {
	for _, f := range r.friendships {
		if f.PartyLow == partyLow && f.PartyHigh == partyHigh {
			return f, nil
		}
	}
	return entity.Friendship{}, repository.ErrFriendshipNotFound
}
