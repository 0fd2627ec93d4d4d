package usecase

import (
	"context"
	"errors"

	"propchat/internal/entity"
	"propchat/internal/repository"
	"propchat/pkg/logger"
	"propchat/pkg/metrics"

	"go.uber.org/zap"
)

// BlockUsecase owns directional blocks. Blocking leaves the conversation
// status untouched; only friendship and notifications react to it.
type BlockUsecase interface {
	Block(ctx context.Context, blockerId, blockedId string) error
	Unblock(ctx context.Context, blockerId, blockedId string) error
	IsBlocked(ctx context.Context, blockerId, blockedId string) (bool, error)
	AreBlocked(ctx context.Context, a, b string) (bool, error)
	ListBlocked(ctx context.Context, blockerId string) ([]entity.PartyView, error)
}

type blockUsecase struct {
	blockRepo    repository.BlockRepository
	friendshipUc FriendshipUsecase
	parties      PartyResolver
	views        *ViewAssembler
	uow          UnitOfWork
	log          *logger.Logger
}

func NewBlockUsecase(blockRepo repository.BlockRepository, friendshipUc FriendshipUsecase, parties PartyResolver, views *ViewAssembler, uow UnitOfWork, log *logger.Logger) BlockUsecase {
	if log == nil {
		log = logger.Global()
	}
	return &blockUsecase{
		blockRepo:    blockRepo,
		friendshipUc: friendshipUc,
		parties:      parties,
		views:        views,
		uow:          uow,
		log:          log,
	}
}

func (b *blockUsecase) Block(ctx context.Context, blockerId, blockedId string) error {
	if blockerId == blockedId {
		return b.record("block", ErrSelfBlock)
	}
	if _, err := b.parties.Get(ctx, blockedId); err != nil {
		return b.record("block", err)
	}

	err := b.uow.Do(ctx, entity.PairKey(blockerId, blockedId), func(ctx context.Context) error {
		exists, err := b.blockRepo.Exists(ctx, blockerId, blockedId)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyBlocked
		}

		_, err = b.blockRepo.Create(ctx, entity.Block{BlockerId: blockerId, BlockedId: blockedId})
		if err != nil {
			return err
		}

		return b.friendshipUc.Deactivate(ctx, blockerId, blockedId)
	})
	if errors.Is(err, ErrConcurrentUpdate) {
		// every attempt lost the insert race to an identical block
		err = ErrAlreadyBlocked
	}
	if err == nil {
		b.log.Info("party blocked", zap.String("blocker_id", blockerId), zap.String("blocked_id", blockedId))
	}

	return b.record("block", err)
}

func (b *blockUsecase) Unblock(ctx context.Context, blockerId, blockedId string) error {
	err := b.uow.Do(ctx, entity.PairKey(blockerId, blockedId), func(ctx context.Context) error {
		err := b.blockRepo.Delete(ctx, blockerId, blockedId)
		if errors.Is(err, repository.ErrBlockNotFound) {
			return ErrNotBlocked
		}
		if err != nil {
			return err
		}
		return b.friendshipUc.CreateOrActivate(ctx, blockerId, blockedId)
	})
	if err == nil {
		b.log.Info("party unblocked", zap.String("blocker_id", blockerId), zap.String("blocked_id", blockedId))
	}

	return b.record("unblock", err)
}

func (b *blockUsecase) IsBlocked(ctx context.Context, blockerId, blockedId string) (bool, error) {
	return b.blockRepo.Exists(ctx, blockerId, blockedId)
}

func (b *blockUsecase) AreBlocked(ctx context.Context, x, y string) (bool, error) {
	return b.blockRepo.ExistsEither(ctx, x, y)
}

func (b *blockUsecase) ListBlocked(ctx context.Context, blockerId string) ([]entity.PartyView, error) {
	blocks, err := b.blockRepo.IndexByBlocker(ctx, blockerId)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(blocks))
	for _, block := range blocks {
		ids = append(ids, block.BlockedId)
	}
	return b.views.Parties(ctx, ids), nil
}

func (b *blockUsecase) record(operation string, err error) error {
	metrics.BlockOperations.WithLabelValues(operation, outcomeOf(err)).Inc()
	return err
}
