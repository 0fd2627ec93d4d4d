// Package memory holds in-process implementations of the repository
// interfaces. They enforce the same unique constraints as the Mongo indexes.
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

type conversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]entity.Conversation
	participants  map[string]entity.Participant
}

func NewConversationRepository() repository.ConversationRepository {
	return &conversationRepository{
		conversations: make(map[string]entity.Conversation),
		participants:  make(map[string]entity.Participant),
	}
}

func (r *conversationRepository) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conversation, ok := r.conversations[conversationId]
	if !ok {
		return entity.Conversation{}, repository.ErrConversationNotFound
	}
	return conversation, nil
}

func (r *conversationRepository) GetByPair(ctx context.Context, partyLow, partyHigh string) (entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conversations {
		if c.PartyLow == partyLow && c.PartyHigh == partyHigh {
			return c, nil
		}
	}
	return entity.Conversation{}, repository.ErrConversationNotFound
}

func (r *conversationRepository) Create(ctx context.Context, conversation entity.Conversation) (entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conversations {
		if c.PartyLow == conversation.PartyLow && c.PartyHigh == conversation.PartyHigh {
			return entity.Conversation{}, repository.ErrDuplicate
		}
	}
	if conversation.Id == "" {
		conversation.Id = uuid.New().String()
	}
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now()
	}
	conversation.UpdatedAt = conversation.CreatedAt
	r.conversations[conversation.Id] = conversation

	return conversation, nil
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, conversationId string, status entity.ConversationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[conversationId]
	if !ok {
		return repository.ErrConversationNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	r.conversations[conversationId] = c

	return nil
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, conversationId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[conversationId]
	if !ok {
		return repository.ErrConversationNotFound
	}
	c.LastMessageAt = &at
	c.UpdatedAt = at
	r.conversations[conversationId] = c

	return nil
}

func (r *conversationRepository) Touch(ctx context.Context, conversationId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[conversationId]
	if !ok {
		return repository.ErrConversationNotFound
	}
	c.UpdatedAt = at
	r.conversations[conversationId] = c

	return nil
}

func (r *conversationRepository) IndexByIds(ctx context.Context, conversationIds []string) ([]entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Conversation
	for _, id := range conversationIds {
		if c, ok := r.conversations[id]; ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	return out, nil
}

func (r *conversationRepository) AddParticipants(ctx context.Context, participants []entity.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range participants {
		if _, err := r.findParticipant(p.ConversationId, p.PartyId); err == nil {
			return repository.ErrDuplicate
		}
	}
	for _, p := range participants {
		if p.Id == "" {
			p.Id = uuid.New().String()
		}
		if p.JoinedAt.IsZero() {
			p.JoinedAt = time.Now()
		}
		r.participants[p.Id] = p
	}

	return nil
}

func (r *conversationRepository) GetParticipant(ctx context.Context, conversationId, partyId string) (entity.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.findParticipant(conversationId, partyId)
}

func (r *conversationRepository) GetParticipants(ctx context.Context, conversationId string) ([]entity.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Participant
	for _, p := range r.participants {
		if p.ConversationId == conversationId {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartyId < out[j].PartyId })

	return out, nil
}

func (r *conversationRepository) IndexParticipantsByParty(ctx context.Context, partyId string, includeHidden bool) ([]entity.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Participant
	for _, p := range r.participants {
		if p.PartyId != partyId {
			continue
		}
		if p.IsHidden && !includeHidden {
			continue
		}
		out = append(out, p)
	}

	return out, nil
}

func (r *conversationRepository) HideParticipant(ctx context.Context, conversationId, partyId string, at time.Time) error {
	return r.updateParticipant(conversationId, partyId, func(p *entity.Participant) {
		p.IsHidden = true
		p.HiddenAt = &at
		p.LastReadAt = &at
	})
}

func (r *conversationRepository) UnhideParticipant(ctx context.Context, conversationId, partyId string) error {
	return r.updateParticipant(conversationId, partyId, func(p *entity.Participant) {
		p.IsHidden = false
		p.HiddenAt = nil
	})
}

func (r *conversationRepository) MarkRead(ctx context.Context, conversationId, partyId string, at time.Time) error {
	return r.updateParticipant(conversationId, partyId, func(p *entity.Participant) {
		p.LastReadAt = &at
	})
}

func (r *conversationRepository) updateParticipant(conversationId, partyId string, mutate func(p *entity.Participant)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.findParticipant(conversationId, partyId)
	if err != nil {
		return err
	}
	mutate(&p)
	r.participants[p.Id] = p

	return nil
}

// findParticipant expects r.mu to be held.
func (r *conversationRepository) findParticipant(conversationId, partyId string) (entity.Participant, error) {
	for _, p := range r.participants {
		if p.ConversationId == conversationId && p.PartyId == partyId {
			return p, nil
		}
	}
	return entity.Participant{}, repository.ErrNotParticipant
}
