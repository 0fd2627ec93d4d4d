package usecase

import (
	"context"
	"strings"
	"time"

	"propchat/internal/entity"
	"propchat/internal/notification"
	"propchat/internal/repository"
	"propchat/pkg/logger"
	"propchat/pkg/metrics"

	"go.uber.org/zap"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
)

// MessageAppender is what the invitation flow needs from message storage.
type MessageAppender interface {
	AppendInitialMessage(ctx context.Context, conversationId, senderId, text string) error
}

// MessageUsecase stores and pages messages of ACTIVE conversations.
type MessageUsecase interface {
	MessageAppender
	Send(ctx context.Context, conversationId, senderId, text string) (entity.Message, error)
	GetMessages(ctx context.Context, conversationId, partyId string, limit, offset int) ([]entity.Message, error)
}

type messageUsecase struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	conversationUc   ConversationUsecase
	blockUc          BlockUsecase
	notifier         notification.Gateway
	now              func() time.Time
	log              *logger.Logger
}

func NewMessageUseCase(messageRepo repository.MessageRepository, conversationRepo repository.ConversationRepository, conversationUc ConversationUsecase, blockUc BlockUsecase, notifier notification.Gateway, log *logger.Logger) MessageUsecase {
	if log == nil {
		log = logger.Global()
	}
	return &messageUsecase{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		conversationUc:   conversationUc,
		blockUc:          blockUc,
		notifier:         notifier,
		now:              time.Now,
		log:              log,
	}
}

// AppendInitialMessage stores an invitation greeting; blank text is ignored
func (m *messageUsecase) AppendInitialMessage(ctx context.Context, conversationId, senderId, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	_, err := m.store(ctx, conversationId, senderId, text, entity.MessageInitial)
	return err
}

// Send appends a message to an ACTIVE conversation, brings it back for
// recipients who hid it, and notifies them unless the pair is blocked
func (m *messageUsecase) Send(ctx context.Context, conversationId, senderId, text string) (entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.Message{}, ErrEmptyMessage
	}

	conversation, err := m.conversationUc.Authorize(ctx, conversationId, senderId)
	if err != nil {
		return entity.Message{}, err
	}
	if conversation.Status != entity.ConversationActive {
		return entity.Message{}, ErrConversationNotActive
	}

	message, err := m.store(ctx, conversationId, senderId, text, entity.MessageText)
	if err != nil {
		return entity.Message{}, err
	}

	if err := m.conversationRepo.MarkRead(ctx, conversationId, senderId, time.UnixMilli(message.Timestamp)); err != nil {
		m.log.Warn("mark sender read failed", zap.String("conversation_id", conversationId), zap.Error(err))
	}

	recipientId := conversation.Other(senderId)
	recipient, err := m.conversationRepo.GetParticipant(ctx, conversationId, recipientId)
	if err != nil {
		m.log.Warn("recipient row missing", zap.String("conversation_id", conversationId), zap.Error(err))
	} else if recipient.IsHidden {
		if err := m.conversationUc.Unhide(ctx, conversationId, recipientId); err != nil {
			m.log.Warn("unhide failed", zap.String("conversation_id", conversationId), zap.Error(err))
		}
	}

	blocked, err := m.blockUc.AreBlocked(ctx, senderId, recipientId)
	if err != nil {
		m.log.Warn("block lookup failed", zap.String("conversation_id", conversationId), zap.Error(err))
	}
	if err == nil && !blocked {
		m.notify(ctx, recipientId, entity.NotifyMessageNew, message)
	}

	return message, nil
}

func (m *messageUsecase) GetMessages(ctx context.Context, conversationId, partyId string, limit, offset int) ([]entity.Message, error) {
	if _, err := m.conversationUc.Authorize(ctx, conversationId, partyId); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := m.messageRepo.Index(ctx, entity.MessageIndexFilter{
		ConversationId: conversationId,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []entity.Message{}
	}
	return messages, nil
}

func (m *messageUsecase) store(ctx context.Context, conversationId, senderId, text string, kind entity.MessageKind) (entity.Message, error) {
	now := m.now()
	message := entity.Message{
		ConversationId: conversationId,
		SenderId:       senderId,
		Message:        text,
		Kind:           kind,
		Timestamp:      now.UnixMilli(),
	}

	id, err := m.messageRepo.Create(ctx, message)
	if err != nil {
		return entity.Message{}, err
	}
	message.Id = id
	metrics.MessagesTotal.WithLabelValues(string(kind)).Inc()

	if err := m.conversationRepo.TouchLastMessage(ctx, conversationId, now); err != nil {
		m.log.Warn("touch conversation failed", zap.String("conversation_id", conversationId), zap.Error(err))
	}
	return message, nil
}

func (m *messageUsecase) notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) {
	if err := m.notifier.Notify(ctx, partyId, kind, payload); err != nil {
		m.log.Warn("notify failed", zap.String("party_id", partyId), zap.String("kind", string(kind)), zap.Error(err))
	}
}
