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

type invitationRepository struct {
	mu          sync.RWMutex
	invitations map[string]entity.Invitation
}

func NewInvitationRepository() repository.InvitationRepository {
	return &invitationRepository{
		invitations: make(map[string]entity.Invitation),
	}
}

func (r *invitationRepository) Get(ctx context.Context, invitationId string) (entity.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invitations[invitationId]
	if !ok {
		return entity.Invitation{}, repository.ErrInvitationNotFound
	}
	return inv, nil
}

func (r *invitationRepository) GetDirected(ctx context.Context, conversationId, inviterId, inviteeId string) (entity.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.findDirected(conversationId, inviterId, inviteeId)
}

func (r *invitationRepository) Create(ctx context.Context, invitation entity.Invitation) (entity.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.findDirected(invitation.ConversationId, invitation.InviterId, invitation.InviteeId); err == nil {
		return entity.Invitation{}, repository.ErrDuplicate
	}
	if invitation.Id == "" {
		invitation.Id = uuid.New().String()
	}
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = time.Now()
	}
	invitation.UpdatedAt = invitation.CreatedAt
	r.invitations[invitation.Id] = invitation

	return invitation, nil
}

func (r *invitationRepository) Update(ctx context.Context, invitation entity.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.invitations[invitation.Id]
	if !ok {
		return repository.ErrInvitationNotFound
	}
	current.Status = invitation.Status
	current.InitialMessage = invitation.InitialMessage
	current.ExpiresAt = invitation.ExpiresAt
	current.RespondedAt = invitation.RespondedAt
	current.UpdatedAt = time.Now()
	r.invitations[invitation.Id] = current

	return nil
}

func (r *invitationRepository) GetPendingForInvitee(ctx context.Context, inviteeId string) ([]entity.Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Invitation
	for _, inv := range r.invitations {
		if inv.InviteeId == inviteeId && inv.Status == entity.InvitationPending {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (r *invitationRepository) findDirected(conversationId, inviterId, inviteeId string) (entity.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.ConversationId == conversationId && inv.InviterId == inviterId && inv.InviteeId == inviteeId {
			return inv, nil
		}
	}
	return entity.Invitation{}, repository.ErrInvitationNotFound
}
