package usecase

import (
	"context"
	"errors"
	"time"

	"propchat/internal/entity"
	"propchat/internal/repository"
	"propchat/pkg/logger"

	"go.uber.org/zap"
)

// ConversationUsecase serves a party's view of its conversations: listing,
// hiding and read position.
type ConversationUsecase interface {
	Index(ctx context.Context, partyId string) ([]entity.ConversationView, error)
	Hide(ctx context.Context, conversationId, partyId string) error
	// Unhide is driven by message arrival, not exposed to end users.
	Unhide(ctx context.Context, conversationId, partyId string) error
	MarkRead(ctx context.Context, conversationId, partyId string) error
	// Authorize returns the conversation when partyId is one of its participants.
	Authorize(ctx context.Context, conversationId, partyId string) (entity.Conversation, error)
}

type conversationUsecase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	views            *ViewAssembler
	uow              UnitOfWork
	now              func() time.Time
	log              *logger.Logger
}

func NewConversationUsecase(conversationRepo repository.ConversationRepository, messageRepo repository.MessageRepository, views *ViewAssembler, uow UnitOfWork, log *logger.Logger) ConversationUsecase {
	if log == nil {
		log = logger.Global()
	}
	return &conversationUsecase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		views:            views,
		uow:              uow,
		now:              time.Now,
		log:              log,
	}
}

// Index returns the party's visible conversations, most recently updated first
func (c *conversationUsecase) Index(ctx context.Context, partyId string) ([]entity.ConversationView, error) {
	participants, err := c.conversationRepo.IndexParticipantsByParty(ctx, partyId, false)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return []entity.ConversationView{}, nil
	}

	byConversation := make(map[string]entity.Participant, len(participants))
	ids := make([]string, 0, len(participants))
	for _, participant := range participants {
		byConversation[participant.ConversationId] = participant
		ids = append(ids, participant.ConversationId)
	}

	conversations, err := c.conversationRepo.IndexByIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]entity.ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		self := byConversation[conversation.Id]

		var since int64
		if self.LastReadAt != nil {
			since = self.LastReadAt.UnixMilli()
		}
		unread, err := c.messageRepo.CountSince(ctx, conversation.Id, partyId, since)
		if err != nil {
			c.log.Warn("count unread failed", zap.String("conversation_id", conversation.Id), zap.Error(err))
		}

		views = append(views, c.views.Conversation(ctx, conversation, self, unread))
	}

	return views, nil
}

// Hide hides the conversation for partyId and marks everything read
func (c *conversationUsecase) Hide(ctx context.Context, conversationId, partyId string) error {
	conversation, err := c.Authorize(ctx, conversationId, partyId)
	if err != nil {
		return err
	}

	return c.uow.Do(ctx, entity.PairKey(conversation.PartyLow, conversation.PartyHigh), func(ctx context.Context) error {
		err := c.conversationRepo.HideParticipant(ctx, conversationId, partyId, c.now())
		if errors.Is(err, repository.ErrNotParticipant) {
			return ErrNotParticipant
		}
		return err
	})
}

// Unhide clears the hidden flag; the read position is left as hide set it
func (c *conversationUsecase) Unhide(ctx context.Context, conversationId, partyId string) error {
	err := c.conversationRepo.UnhideParticipant(ctx, conversationId, partyId)
	if errors.Is(err, repository.ErrNotParticipant) {
		return ErrNotParticipant
	}
	return err
}

func (c *conversationUsecase) MarkRead(ctx context.Context, conversationId, partyId string) error {
	if _, err := c.Authorize(ctx, conversationId, partyId); err != nil {
		return err
	}
	return c.conversationRepo.MarkRead(ctx, conversationId, partyId, c.now())
}

func (c *conversationUsecase) Authorize(ctx context.Context, conversationId, partyId string) (entity.Conversation, error) {
	conversation, err := c.conversationRepo.Get(ctx, conversationId)
	if errors.Is(err, repository.ErrConversationNotFound) {
		return entity.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return entity.Conversation{}, err
	}

	if !conversation.HasParty(partyId) {
		return entity.Conversation{}, ErrNotParticipant
	}
	return conversation, nil
}
