package memory

import (
	"context"
	"sort"
	"sync"

	"propchat/internal/entity"
	"propchat/internal/repository"

	"github.com/google/uuid"
)

type messageRepository struct {
	mu       sync.RWMutex
	messages []entity.Message
}

func NewMessageRepository() repository.MessageRepository {
	return &messageRepository{}
}

func (r *messageRepository) Index(ctx context.Context, filter entity.MessageIndexFilter) ([]entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []entity.Message
	for _, m := range r.messages {
		if filter.ConversationId == "" || m.ConversationId == filter.ConversationId {
			matched = append(matched, m)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp > matched[j].Timestamp })

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (r *messageRepository) Get(ctx context.Context, messageId string) (entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.messages {
		if m.Id == messageId {
			return m, nil
		}
	}
	return entity.Message{}, repository.ErrMessageNotFound
}

func (r *messageRepository) Create(ctx context.Context, message entity.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.Id = uuid.New().String()
	r.messages = append(r.messages, message)

	return message.Id, nil
}

func (r *messageRepository) CountSince(ctx context.Context, conversationId, excludeSenderId string, since int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, m := range r.messages {
		if m.ConversationId == conversationId && m.SenderId != excludeSenderId && m.Timestamp > since {
			n++
		}
	}
	return n, nil
}
