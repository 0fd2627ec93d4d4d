package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"propchat/internal/entity"
	"propchat/internal/notification"
	"propchat/internal/repository"
	appErrors "propchat/pkg/errors"
	"propchat/pkg/logger"
	"propchat/pkg/metrics"

	"go.uber.org/zap"
)

const DefaultInvitationTTL = 7 * 24 * time.Hour

// Outcomes of a create call, also used as metric labels.
const (
	outcomeCreated   = "created"
	outcomeRefreshed = "refreshed"
	outcomeReopened  = "reopened"
	outcomeCollapsed = "collapsed"
	outcomeRepaired  = "repaired"
	outcomeUnchanged = "unchanged"
	outcomeAccepted  = "accepted"
	outcomeDeclined  = "declined"
)

// InvitationUsecase runs the direct-chat handshake between two parties.
type InvitationUsecase interface {
	Create(ctx context.Context, inviterId, inviteeId, initialMessage string) (entity.InvitationView, error)
	Accept(ctx context.Context, invitationId, callerId string) (entity.InvitationView, error)
	Decline(ctx context.Context, invitationId, callerId string) error
	ListPending(ctx context.Context, partyId string) ([]entity.InvitationView, error)
}

type invitationUsecase struct {
	conversationRepo repository.ConversationRepository
	invitationRepo   repository.InvitationRepository
	friendshipUc     FriendshipUsecase
	blockUc          BlockUsecase
	messages         MessageAppender
	parties          PartyResolver
	views            *ViewAssembler
	notifier         notification.Gateway
	uow              UnitOfWork
	ttl              time.Duration
	now              func() time.Time
	log              *logger.Logger
}

func NewInvitationUsecase(
	conversationRepo repository.ConversationRepository,
	invitationRepo repository.InvitationRepository,
	friendshipUc FriendshipUsecase,
	blockUc BlockUsecase,
	messages MessageAppender,
	parties PartyResolver,
	views *ViewAssembler,
	notifier notification.Gateway,
	uow UnitOfWork,
	ttl time.Duration,
	log *logger.Logger,
) InvitationUsecase {
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	if log == nil {
		log = logger.Global()
	}
	return &invitationUsecase{
		conversationRepo: conversationRepo,
		invitationRepo:   invitationRepo,
		friendshipUc:     friendshipUc,
		blockUc:          blockUc,
		messages:         messages,
		parties:          parties,
		views:            views,
		notifier:         notifier,
		uow:              uow,
		ttl:              ttl,
		now:              time.Now,
		log:              log,
	}
}

// createResult is what one pass over the decision table produced.
type createResult struct {
	invitation entity.Invitation
	outcome    string
}

// Create sends, refreshes or reopens the inviter's invitation, collapsing it
// with a live reverse invitation into an active conversation
func (u *invitationUsecase) Create(ctx context.Context, inviterId, inviteeId, initialMessage string) (entity.InvitationView, error) {
	if inviterId == "" || inviteeId == "" {
		return entity.InvitationView{}, u.record("create", ErrMissingPartyId)
	}
	if inviterId == inviteeId {
		return entity.InvitationView{}, u.record("create", ErrSelfInvite)
	}
	if _, err := u.parties.Get(ctx, inviteeId); err != nil {
		return entity.InvitationView{}, u.record("create", err)
	}

	var result createResult
	err := u.uow.Do(ctx, entity.PairKey(inviterId, inviteeId), func(ctx context.Context) error {
		blocked, err := u.blockUc.AreBlocked(ctx, inviterId, inviteeId)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}

		result, err = u.decide(ctx, inviterId, inviteeId, initialMessage)
		return err
	})
	if err != nil {
		return entity.InvitationView{}, u.record("create", err)
	}
	metrics.RecordInvitation("create", result.outcome)

	inv := result.invitation
	log := u.log.With(
		zap.String("invitation_id", inv.Id),
		zap.String("conversation_id", inv.ConversationId),
		zap.String("outcome", result.outcome),
	)
	log.Info("invitation created")

	// The greeting is appended on every successful call, whichever branch ran,
	// so a refresh or repair repeats it. Rejected calls (AlreadyPending,
	// AlreadyActive, Blocked) append nothing: they must leave no partial write.
	if strings.TrimSpace(initialMessage) != "" {
		if err := u.messages.AppendInitialMessage(ctx, inv.ConversationId, inviterId, initialMessage); err != nil {
			log.Error("append initial message failed", zap.Error(err))
		}
	}

	view := u.views.Invitation(ctx, inv)
	switch result.outcome {
	case outcomeCollapsed, outcomeRepaired:
		u.notify(ctx, inviterId, entity.NotifyConversationActivated, view)
		u.notify(ctx, inviteeId, entity.NotifyConversationActivated, view)
	case outcomeCreated, outcomeRefreshed, outcomeReopened:
		u.notify(ctx, inviteeId, entity.NotifyInvitationReceived, view)
	}

	return view, nil
}

// decide evaluates the directed invitation E (inviter -> invitee) against the
// reverse R (invitee -> inviter). It runs inside the pair's unit of work.
func (u *invitationUsecase) decide(ctx context.Context, inviterId, inviteeId, initialMessage string) (createResult, error) {
	now := u.now()

	conversation, err := u.ensureConversation(ctx, inviterId, inviteeId, now)
	if err != nil {
		return createResult{}, err
	}

	e, hasE, err := u.directed(ctx, conversation.Id, inviterId, inviteeId)
	if err != nil {
		return createResult{}, err
	}
	r, hasR, err := u.directed(ctx, conversation.Id, inviteeId, inviterId)
	if err != nil {
		return createResult{}, err
	}
	reverseLive := hasR && r.IsLivePending(now)

	if !hasE {
		if reverseLive {
			return u.collapse(ctx, conversation, nil, r, inviterId, inviteeId, initialMessage, now)
		}
		return u.createPending(ctx, conversation, inviterId, inviteeId, initialMessage, now)
	}

	switch e.Status {
	case entity.InvitationPending:
		if e.IsExpired(now) {
			u.restart(&e, initialMessage, now)
			if err := u.invitationRepo.Update(ctx, e); err != nil {
				return createResult{}, err
			}
			if err := u.reopenConversation(ctx, conversation); err != nil {
				return createResult{}, err
			}
			return createResult{invitation: e, outcome: outcomeRefreshed}, nil
		}
		if reverseLive {
			return u.collapse(ctx, conversation, &e, r, inviterId, inviteeId, initialMessage, now)
		}
		return createResult{}, ErrAlreadyPending

	case entity.InvitationAccepted:
		if conversation.Status == entity.ConversationActive {
			return createResult{}, ErrAlreadyActive
		}
		if reverseLive {
			if err := u.acceptRow(ctx, &r, now); err != nil {
				return createResult{}, err
			}
			if err := u.activate(ctx, conversation, inviterId, inviteeId); err != nil {
				return createResult{}, err
			}
			return createResult{invitation: e, outcome: outcomeRepaired}, nil
		}
		u.log.Warn("accepted invitation on inactive conversation left as is",
			zap.String("invitation_id", e.Id),
			zap.String("conversation_id", conversation.Id),
			zap.String("conversation_status", string(conversation.Status)),
		)
		return createResult{invitation: e, outcome: outcomeUnchanged}, nil

	default:
		// DECLINED or EXPIRED: the same row starts a new cycle
		u.restart(&e, initialMessage, now)
		if err := u.invitationRepo.Update(ctx, e); err != nil {
			return createResult{}, err
		}
		if err := u.reopenConversation(ctx, conversation); err != nil {
			return createResult{}, err
		}
		return createResult{invitation: e, outcome: outcomeReopened}, nil
	}
}

// createPending inserts a fresh E, then re-reads R: a reverse invitation that
// committed after our first read is collapsed here instead of being left
// pending next to ours.
func (u *invitationUsecase) createPending(ctx context.Context, conversation entity.Conversation, inviterId, inviteeId, initialMessage string, now time.Time) (createResult, error) {
	e, err := u.invitationRepo.Create(ctx, entity.Invitation{
		ConversationId: conversation.Id,
		InviterId:      inviterId,
		InviteeId:      inviteeId,
		Status:         entity.InvitationPending,
		InitialMessage: initialMessage,
		ExpiresAt:      now.Add(u.ttl),
		CreatedAt:      now,
	})
	if err != nil {
		return createResult{}, err
	}

	if err := u.reopenConversation(ctx, conversation); err != nil {
		return createResult{}, err
	}

	r, hasR, err := u.directed(ctx, conversation.Id, inviteeId, inviterId)
	if err != nil {
		return createResult{}, err
	}
	if hasR && r.IsLivePending(now) {
		return u.collapse(ctx, conversation, &e, r, inviterId, inviteeId, initialMessage, now)
	}

	return createResult{invitation: e, outcome: outcomeCreated}, nil
}

// collapse accepts both directions, creating E as ACCEPTED when it does not exist
func (u *invitationUsecase) collapse(ctx context.Context, conversation entity.Conversation, e *entity.Invitation, r entity.Invitation, inviterId, inviteeId, initialMessage string, now time.Time) (createResult, error) {
	if err := u.acceptRow(ctx, &r, now); err != nil {
		return createResult{}, err
	}

	var accepted entity.Invitation
	if e == nil {
		responded := now
		created, err := u.invitationRepo.Create(ctx, entity.Invitation{
			ConversationId: conversation.Id,
			InviterId:      inviterId,
			InviteeId:      inviteeId,
			Status:         entity.InvitationAccepted,
			InitialMessage: initialMessage,
			ExpiresAt:      now.Add(u.ttl),
			RespondedAt:    &responded,
			CreatedAt:      now,
		})
		if err != nil {
			return createResult{}, err
		}
		accepted = created
	} else {
		accepted = *e
		if err := u.acceptRow(ctx, &accepted, now); err != nil {
			return createResult{}, err
		}
	}

	if err := u.activate(ctx, conversation, inviterId, inviteeId); err != nil {
		return createResult{}, err
	}

	return createResult{invitation: accepted, outcome: outcomeCollapsed}, nil
}

// Accept answers an invitation addressed to callerId
func (u *invitationUsecase) Accept(ctx context.Context, invitationId, callerId string) (entity.InvitationView, error) {
	inv, err := u.authorize(ctx, invitationId, callerId)
	if err != nil {
		return entity.InvitationView{}, u.record("accept", err)
	}

	var (
		accepted entity.Invitation
		outErr   error
	)
	err = u.uow.Do(ctx, entity.PairKey(inv.InviterId, inv.InviteeId), func(ctx context.Context) error {
		outErr = nil
		now := u.now()

		current, err := u.respondable(ctx, invitationId, now)
		if err != nil {
			// the EXPIRED transition must commit before the error is reported
			if errors.Is(err, ErrExpired) {
				outErr = err
				return nil
			}
			return err
		}

		if err := u.acceptRow(ctx, &current, now); err != nil {
			return err
		}

		conversation, err := u.conversationRepo.Get(ctx, current.ConversationId)
		if err != nil {
			return translateConversationErr(err)
		}

		// keep the reverse lineage consistent without the other party acting
		r, hasR, err := u.directed(ctx, current.ConversationId, current.InviteeId, current.InviterId)
		if err != nil {
			return err
		}
		if hasR && r.Status == entity.InvitationPending {
			if err := u.acceptRow(ctx, &r, now); err != nil {
				return err
			}
		}

		if err := u.activate(ctx, conversation, current.InviterId, current.InviteeId); err != nil {
			return err
		}

		accepted = current
		return nil
	})
	if err == nil {
		err = outErr
	}
	if err != nil {
		return entity.InvitationView{}, u.record("accept", err)
	}
	metrics.RecordInvitation("accept", outcomeAccepted)

	u.log.Info("invitation accepted",
		zap.String("invitation_id", accepted.Id),
		zap.String("conversation_id", accepted.ConversationId),
	)

	view := u.views.Invitation(ctx, accepted)
	u.notify(ctx, accepted.InviterId, entity.NotifyInvitationAccepted, view)

	return view, nil
}

// Decline closes the conversation; friendship is left as it is
func (u *invitationUsecase) Decline(ctx context.Context, invitationId, callerId string) error {
	inv, err := u.authorize(ctx, invitationId, callerId)
	if err != nil {
		return u.record("decline", err)
	}

	var (
		declined entity.Invitation
		outErr   error
	)
	err = u.uow.Do(ctx, entity.PairKey(inv.InviterId, inv.InviteeId), func(ctx context.Context) error {
		outErr = nil
		now := u.now()

		current, err := u.respondable(ctx, invitationId, now)
		if err != nil {
			if errors.Is(err, ErrExpired) {
				outErr = err
				return nil
			}
			return err
		}

		responded := now
		current.Status = entity.InvitationDeclined
		current.RespondedAt = &responded
		if err := u.invitationRepo.Update(ctx, current); err != nil {
			return err
		}

		if err := u.conversationRepo.UpdateStatus(ctx, current.ConversationId, entity.ConversationClosed); err != nil {
			return translateConversationErr(err)
		}

		declined = current
		return nil
	})
	if err == nil {
		err = outErr
	}
	if err != nil {
		return u.record("decline", err)
	}
	metrics.RecordInvitation("decline", outcomeDeclined)

	u.log.Info("invitation declined",
		zap.String("invitation_id", declined.Id),
		zap.String("conversation_id", declined.ConversationId),
	)

	u.notify(ctx, declined.InviterId, entity.NotifyInvitationDeclined, u.views.Invitation(ctx, declined))
	return nil
}

// ListPending returns PENDING invitations addressed to partyId, including ones
// whose deadline passed; expiry is applied when they are answered
func (u *invitationUsecase) ListPending(ctx context.Context, partyId string) ([]entity.InvitationView, error) {
	invitations, err := u.invitationRepo.GetPendingForInvitee(ctx, partyId)
	if err != nil {
		return nil, err
	}
	return u.views.Invitations(ctx, invitations), nil
}

func (u *invitationUsecase) authorize(ctx context.Context, invitationId, callerId string) (entity.Invitation, error) {
	inv, err := u.invitationRepo.Get(ctx, invitationId)
	if errors.Is(err, repository.ErrInvitationNotFound) {
		return entity.Invitation{}, ErrInvitationNotFound
	}
	if err != nil {
		return entity.Invitation{}, err
	}
	if inv.InviteeId != callerId {
		return entity.Invitation{}, ErrForbidden
	}
	return inv, nil
}

// respondable re-reads the invitation under the lock and checks it can still
// be answered. Expiry is evaluated before status: a PENDING or DECLINED
// invitation past its deadline is persisted as EXPIRED. ACCEPTED rows back an
// active conversation and are never expired retroactively.
func (u *invitationUsecase) respondable(ctx context.Context, invitationId string, now time.Time) (entity.Invitation, error) {
	inv, err := u.invitationRepo.Get(ctx, invitationId)
	if errors.Is(err, repository.ErrInvitationNotFound) {
		return entity.Invitation{}, ErrInvitationNotFound
	}
	if err != nil {
		return entity.Invitation{}, err
	}

	switch {
	case inv.Status == entity.InvitationExpired:
		return entity.Invitation{}, ErrExpired
	case inv.Status == entity.InvitationAccepted:
		return entity.Invitation{}, ErrAlreadyResponded
	case inv.IsExpired(now):
		previous := inv.Status
		responded := now
		inv.Status = entity.InvitationExpired
		inv.RespondedAt = &responded
		if err := u.invitationRepo.Update(ctx, inv); err != nil {
			return entity.Invitation{}, err
		}
		u.log.Info("invitation expired",
			zap.String("invitation_id", inv.Id),
			zap.String("previous_status", string(previous)),
		)
		return entity.Invitation{}, ErrExpired
	case inv.Status != entity.InvitationPending:
		return entity.Invitation{}, ErrAlreadyResponded
	}

	return inv, nil
}

// ensureConversation returns the pair's conversation, creating it and both
// participant rows when absent, and touching it otherwise. Missing participant
// rows are backfilled.
func (u *invitationUsecase) ensureConversation(ctx context.Context, inviterId, inviteeId string, now time.Time) (entity.Conversation, error) {
	low, high := entity.CanonicalPair(inviterId, inviteeId)

	conversation, err := u.conversationRepo.GetByPair(ctx, low, high)
	switch {
	case errors.Is(err, repository.ErrConversationNotFound):
		conversation, err = u.conversationRepo.Create(ctx, entity.Conversation{
			PartyLow:  low,
			PartyHigh: high,
			Status:    entity.ConversationPending,
			CreatedBy: inviterId,
			CreatedAt: now,
		})
	case err == nil:
		// Every decision writes the pair's conversation document, so two
		// snapshot transactions on the same pair conflict instead of both
		// committing a PENDING row without seeing each other.
		if err = u.conversationRepo.Touch(ctx, conversation.Id, now); err == nil {
			conversation.UpdatedAt = now
		}
	}
	if err != nil {
		return entity.Conversation{}, translateConversationErr(err)
	}

	participants, err := u.conversationRepo.GetParticipants(ctx, conversation.Id)
	if err != nil {
		return entity.Conversation{}, err
	}
	if len(participants) == 2 {
		return conversation, nil
	}

	present := make(map[string]bool, len(participants))
	for _, participant := range participants {
		present[participant.PartyId] = true
	}
	var missing []entity.Participant
	for _, partyId := range []string{low, high} {
		if !present[partyId] {
			missing = append(missing, entity.Participant{
				ConversationId: conversation.Id,
				PartyId:        partyId,
				JoinedAt:       now,
			})
		}
	}
	if err := u.conversationRepo.AddParticipants(ctx, missing); err != nil {
		return entity.Conversation{}, err
	}

	return conversation, nil
}

func (u *invitationUsecase) directed(ctx context.Context, conversationId, inviterId, inviteeId string) (entity.Invitation, bool, error) {
	inv, err := u.invitationRepo.GetDirected(ctx, conversationId, inviterId, inviteeId)
	if errors.Is(err, repository.ErrInvitationNotFound) {
		return entity.Invitation{}, false, nil
	}
	if err != nil {
		return entity.Invitation{}, false, err
	}
	return inv, true, nil
}

// restart puts an invitation back to a fresh PENDING cycle.
func (u *invitationUsecase) restart(inv *entity.Invitation, initialMessage string, now time.Time) {
	inv.Status = entity.InvitationPending
	inv.ExpiresAt = now.Add(u.ttl)
	inv.RespondedAt = nil
	inv.InitialMessage = initialMessage
}

func (u *invitationUsecase) acceptRow(ctx context.Context, inv *entity.Invitation, now time.Time) error {
	responded := now
	inv.Status = entity.InvitationAccepted
	inv.RespondedAt = &responded
	return u.invitationRepo.Update(ctx, *inv)
}

func (u *invitationUsecase) activate(ctx context.Context, conversation entity.Conversation, x, y string) error {
	if conversation.Status != entity.ConversationActive {
		if err := u.conversationRepo.UpdateStatus(ctx, conversation.Id, entity.ConversationActive); err != nil {
			return translateConversationErr(err)
		}
	}
	return u.friendshipUc.CreateOrActivate(ctx, x, y)
}

// reopenConversation moves a CLOSED (or BLOCKED) conversation back to PENDING
// when a new handshake cycle starts on it.
func (u *invitationUsecase) reopenConversation(ctx context.Context, conversation entity.Conversation) error {
	if conversation.Status == entity.ConversationPending || conversation.Status == entity.ConversationActive {
		return nil
	}
	return translateConversationErr(u.conversationRepo.UpdateStatus(ctx, conversation.Id, entity.ConversationPending))
}

func (u *invitationUsecase) notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) {
	if err := u.notifier.Notify(ctx, partyId, kind, payload); err != nil {
		u.log.Warn("notify failed",
			zap.String("party_id", partyId),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (u *invitationUsecase) record(operation string, err error) error {
	metrics.RecordInvitation(operation, outcomeOf(err))
	return err
}

func translateConversationErr(err error) error {
	if errors.Is(err, repository.ErrConversationNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// outcomeOf labels a result for metrics: "ok" or the lower-case error code.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(appErrors.CodeOf(err)))
}
