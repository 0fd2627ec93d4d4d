package usecase

import (
	"context"
	"errors"

	"propchat/internal/entity"
	"propchat/internal/repository"
)

// FriendshipUsecase keeps the derived friendship record of a pair. It does not
// lock: callers run it inside the pair's unit of work.
type FriendshipUsecase interface {
	CreateOrActivate(ctx context.Context, x, y string) error
	Deactivate(ctx context.Context, x, y string) error
	IsActive(ctx context.Context, x, y string) (bool, error)
	ListActiveFor(ctx context.Context, partyId string) ([]entity.Friendship, error)
	ListFriends(ctx context.Context, partyId string) ([]entity.PartyView, error)
}

type friendshipUsecase struct {
	friendshipRepo repository.FriendshipRepository
	views          *ViewAssembler
}

func NewFriendshipUsecase(friendshipRepo repository.FriendshipRepository, views *ViewAssembler) FriendshipUsecase {
	return &friendshipUsecase{
		friendshipRepo: friendshipRepo,
		views:          views,
	}
}

// CreateOrActivate is idempotent; a concurrent insert surfaces as
// repository.ErrDuplicate for the unit of work to retry
func (f *friendshipUsecase) CreateOrActivate(ctx context.Context, x, y string) error {
	if x == y {
		return ErrSelfPair
	}
	low, high := entity.CanonicalPair(x, y)

	friendship, err := f.friendshipRepo.GetByPair(ctx, low, high)
	if errors.Is(err, repository.ErrFriendshipNotFound) {
		_, err = f.friendshipRepo.Create(ctx, entity.Friendship{
			PartyLow:  low,
			PartyHigh: high,
			IsActive:  true,
		})
		return err
	}
	if err != nil {
		return err
	}

	if friendship.IsActive {
		return nil
	}
	return f.friendshipRepo.SetActive(ctx, friendship.Id, true)
}

// Deactivate is a no-op when there is no active row
func (f *friendshipUsecase) Deactivate(ctx context.Context, x, y string) error {
	if x == y {
		return ErrSelfPair
	}
	low, high := entity.CanonicalPair(x, y)

	friendship, err := f.friendshipRepo.GetByPair(ctx, low, high)
	if errors.Is(err, repository.ErrFriendshipNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if !friendship.IsActive {
		return nil
	}
	return f.friendshipRepo.SetActive(ctx, friendship.Id, false)
}

func (f *friendshipUsecase) IsActive(ctx context.Context, x, y string) (bool, error) {
	low, high := entity.CanonicalPair(x, y)

	friendship, err := f.friendshipRepo.GetByPair(ctx, low, high)
	if errors.Is(err, repository.ErrFriendshipNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return friendship.IsActive, nil
}

func (f *friendshipUsecase) ListActiveFor(ctx context.Context, partyId string) ([]entity.Friendship, error) {
	return f.friendshipRepo.IndexActiveByParty(ctx, partyId)
}

func (f *friendshipUsecase) ListFriends(ctx context.Context, partyId string) ([]entity.PartyView, error) {
	friendships, err := f.ListActiveFor(ctx, partyId)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(friendships))
	for _, friendship := range friendships {
		ids = append(ids, friendship.Other(partyId))
	}
	return f.views.Parties(ctx, ids), nil
}
