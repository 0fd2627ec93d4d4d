package usecase

import (
	"context"

	"propchat/internal/entity"
	"propchat/pkg/logger"

	"go.uber.org/zap"
)

// NameLookup is the part of PartyResolver the read side needs.
type NameLookup interface {
	DisplayName(ctx context.Context, partyId string) (string, error)
}

// ViewAssembler turns stored rows into flat response views. It never writes.
type ViewAssembler struct {
	names NameLookup
	log   *logger.Logger
}

func NewViewAssembler(names NameLookup, log *logger.Logger) *ViewAssembler {
	if log == nil {
		log = logger.Global()
	}
	return &ViewAssembler{names: names, log: log}
}

// name degrades to an empty string; a missing display name never fails a read.
func (a *ViewAssembler) name(ctx context.Context, partyId string) string {
	n, err := a.names.DisplayName(ctx, partyId)
	if err != nil {
		a.log.Debug("display name lookup failed", zap.String("party_id", partyId), zap.Error(err))
		return ""
	}
	return n
}

func (a *ViewAssembler) Invitation(ctx context.Context, inv entity.Invitation) entity.InvitationView {
	return entity.InvitationView{
		Id:             inv.Id,
		ConversationId: inv.ConversationId,
		InviterId:      inv.InviterId,
		InviterName:    a.name(ctx, inv.InviterId),
		InviteeId:      inv.InviteeId,
		InviteeName:    a.name(ctx, inv.InviteeId),
		Status:         inv.Status,
		InitialMessage: inv.InitialMessage,
		ExpiresAt:      inv.ExpiresAt,
		RespondedAt:    inv.RespondedAt,
		CreatedAt:      inv.CreatedAt,
	}
}

func (a *ViewAssembler) Invitations(ctx context.Context, invs []entity.Invitation) []entity.InvitationView {
	views := make([]entity.InvitationView, 0, len(invs))
	for _, inv := range invs {
		views = append(views, a.Invitation(ctx, inv))
	}
	return views
}

func (a *ViewAssembler) Conversation(ctx context.Context, conv entity.Conversation, self entity.Participant, unread int64) entity.ConversationView {
	other := conv.Other(self.PartyId)
	return entity.ConversationView{
		Id:            conv.Id,
		Status:        conv.Status,
		OtherPartyId:  other,
		OtherName:     a.name(ctx, other),
		LastReadAt:    self.LastReadAt,
		LastMessageAt: conv.LastMessageAt,
		UnreadCount:   unread,
	}
}

func (a *ViewAssembler) Parties(ctx context.Context, partyIds []string) []entity.PartyView {
	views := make([]entity.PartyView, 0, len(partyIds))
	for _, id := range partyIds {
		views = append(views, entity.PartyView{Id: id, Name: a.name(ctx, id)})
	}
	return views
}
