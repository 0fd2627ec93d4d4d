package usecase

import (
	"errors"
	"sync"
	"testing"
	"time"

	"propchat/infrastructure/lock"
	"propchat/internal/entity"
	appErrors "propchat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvitation_Fresh(t *testing.T) {
	f := newFixture(t)

	view, err := f.invitations.Create(f.ctx, f.alice, f.bob, "hi")
	require.NoError(t, err)

	assert.Equal(t, entity.InvitationPending, view.Status)
	assert.Equal(t, "Alice", view.InviterName)
	assert.Equal(t, "Bob", view.InviteeName)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), view.ExpiresAt)
	assert.Nil(t, view.RespondedAt)

	conversation := f.conversation(t, f.alice, f.bob)
	assert.Equal(t, entity.ConversationPending, conversation.Status)
	assert.Equal(t, f.alice, conversation.CreatedBy)
	assert.Less(t, conversation.PartyLow, conversation.PartyHigh)

	participants, err := f.conversationRepo.GetParticipants(f.ctx, conversation.Id)
	require.NoError(t, err)
	assert.Len(t, participants, 2)

	assert.Equal(t, []string{"hi"}, f.messageTexts(t, conversation.Id))
	assert.Equal(t, []entity.NotificationKind{entity.NotifyInvitationReceived}, f.notifier.kindsFor(f.bob))
	assert.Empty(t, f.notifier.kindsFor(f.alice))
}

func TestCreateInvitation_RepeatIsAlreadyPending(t *testing.T) {
	f := newFixture(t)

	_, err := f.invitations.Create(f.ctx, f.alice, f.bob, "hi")
	require.NoError(t, err)

	_, err = f.invitations.Create(f.ctx, f.alice, f.bob, "hi again")
	assert.ErrorIs(t, err, ErrAlreadyPending)
	assert.Equal(t, appErrors.CodeFailedPrecondition, appErrors.CodeOf(err))

	pending, err := f.invitationRepo.GetPendingForInvitee(f.ctx, f.bob)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// the rejected call appends nothing
	conversation := f.conversation(t, f.alice, f.bob)
	assert.Equal(t, []string{"hi"}, f.messageTexts(t, conversation.Id))
}

func TestCreateInvitation_MutualCollapse(t *testing.T) {
	f := newFixture(t)

	_, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	view, err := f.invitations.Create(f.ctx, f.bob, f.alice, "")
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationAccepted, view.Status)
	assert.NotNil(t, view.RespondedAt)

	assert.Equal(t, entity.ConversationActive, f.conversation(t, f.alice, f.bob).Status)
	assert.Equal(t, entity.InvitationAccepted, f.directed(t, f.alice, f.bob).Status)
	assert.Equal(t, entity.InvitationAccepted, f.directed(t, f.bob, f.alice).Status)
	assert.True(t, f.friends(t, f.alice, f.bob))

	assert.Contains(t, f.notifier.kindsFor(f.alice), entity.NotifyConversationActivated)
	assert.Contains(t, f.notifier.kindsFor(f.bob), entity.NotifyConversationActivated)
}

func TestCreateInvitation_ConcurrentMutualConverges(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		pairs := [][2]string{{f.alice, f.bob}, {f.bob, f.alice}}
		for n, pair := range pairs {
			wg.Add(1)
			go func(n int, inviter, invitee string) {
				defer wg.Done()
				_, errs[n] = f.invitations.Create(f.ctx, inviter, invitee, "")
			}(n, pair[0], pair[1])
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assertConverged(t, f)
	}
}

// Two coordinators that share storage but not a lock still converge through
// the post-insert reverse check.
func TestCreateInvitation_ConcurrentWithoutSharedLock(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t)

		low, high := entity.CanonicalPair(f.alice, f.bob)
		conversation, err := f.conversationRepo.Create(f.ctx, entity.Conversation{
			PartyLow: low, PartyHigh: high, Status: entity.ConversationPending, CreatedBy: f.alice,
		})
		require.NoError(t, err)
		require.NoError(t, f.conversationRepo.AddParticipants(f.ctx, []entity.Participant{
			{ConversationId: conversation.Id, PartyId: low},
			{ConversationId: conversation.Id, PartyId: high},
		}))

		first := f.newInvitations(NewUnitOfWork(lock.NewMemoryLocker(), nil))
		second := f.newInvitations(NewUnitOfWork(lock.NewMemoryLocker(), nil))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = first.Create(f.ctx, f.alice, f.bob, "")
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = second.Create(f.ctx, f.bob, f.alice, "")
		}()
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadyActive)
			}
		}
		assertConverged(t, f)
	}
}

func assertConverged(t *testing.T, f *fixture) {
	t.Helper()
	assert.Equal(t, entity.ConversationActive, f.conversation(t, f.alice, f.bob).Status)
	assert.Equal(t, entity.InvitationAccepted, f.directed(t, f.alice, f.bob).Status)
	assert.Equal(t, entity.InvitationAccepted, f.directed(t, f.bob, f.alice).Status)
	assert.True(t, f.friends(t, f.alice, f.bob))
}

func TestCreateInvitation_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.invitations.Create(f.ctx, f.alice, f.alice, "")
	assert.ErrorIs(t, err, ErrSelfInvite)

	_, err = f.invitations.Create(f.ctx, f.alice, "no-such-party", "")
	assert.ErrorIs(t, err, ErrPartyNotFound)

	_, err = f.invitations.Create(f.ctx, f.alice, "", "")
	assert.ErrorIs(t, err, ErrMissingPartyId)
}

func TestCreateInvitation_BlockedEitherDirection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.blocks.Block(f.ctx, f.alice, f.bob))

	_, err := f.invitations.Create(f.ctx, f.bob, f.alice, "hello?")
	assert.ErrorIs(t, err, ErrBlocked)

	_, err = f.invitations.Create(f.ctx, f.alice, f.bob, "")
	assert.ErrorIs(t, err, ErrBlocked)

	low, high := entity.CanonicalPair(f.alice, f.bob)
	_, err = f.conversationRepo.GetByPair(f.ctx, low, high)
	assert.Error(t, err, "no conversation is created for a blocked pair")
}

func TestCreateInvitation_AlreadyActive(t *testing.T) {
	f := newFixture(t)
	f.connect(t, f.alice, f.bob)

	_, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestCreateInvitation_RefreshesExpiredPending(t *testing.T) {
	f := newFixture(t)

	first, err := f.invitations.Create(f.ctx, f.alice, f.bob, "hi")
	require.NoError(t, err)

	f.clock.Advance(8 * 24 * time.Hour)
	second, err := f.invitations.Create(f.ctx, f.alice, f.bob, "hi again")
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, entity.InvitationPending, second.Status)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), second.ExpiresAt)
	assert.Equal(t, "hi again", second.InitialMessage)

	// the greeting is appended on every successful call
	conversation := f.conversation(t, f.alice, f.bob)
	assert.ElementsMatch(t, []string{"hi", "hi again"}, f.messageTexts(t, conversation.Id))
}

func TestCreateInvitation_ReopensDeclined(t *testing.T) {
	f := newFixture(t)

	view, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	require.NoError(t, f.invitations.Decline(f.ctx, view.Id, f.bob))
	require.Equal(t, entity.ConversationClosed, f.conversation(t, f.alice, f.bob).Status)

	f.clock.Advance(time.Hour)
	reopened, err := f.invitations.Create(f.ctx, f.alice, f.bob, "second try")
	require.NoError(t, err)

	assert.Equal(t, view.Id, reopened.Id)
	assert.Equal(t, entity.InvitationPending, reopened.Status)
	assert.Nil(t, reopened.RespondedAt)
	assert.Equal(t, "second try", reopened.InitialMessage)
	assert.Equal(t, entity.ConversationPending, f.conversation(t, f.alice, f.bob).Status)
}

func TestCreateInvitation_RepairsAcceptedOnInactiveConversation(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	low, high := entity.CanonicalPair(f.alice, f.bob)
	conversation, err := f.conversationRepo.Create(f.ctx, entity.Conversation{
		PartyLow: low, PartyHigh: high, Status: entity.ConversationPending, CreatedBy: f.alice,
	})
	require.NoError(t, err)
	require.NoError(t, f.conversationRepo.AddParticipants(f.ctx, []entity.Participant{
		{ConversationId: conversation.Id, PartyId: low},
		{ConversationId: conversation.Id, PartyId: high},
	}))
	_, err = f.invitationRepo.Create(f.ctx, entity.Invitation{
		ConversationId: conversation.Id, InviterId: f.alice, InviteeId: f.bob,
		Status: entity.InvitationAccepted, ExpiresAt: now.Add(time.Hour), RespondedAt: &now,
	})
	require.NoError(t, err)

	// without a live reverse invitation the row is returned unchanged
	view, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationAccepted, view.Status)
	assert.Equal(t, entity.ConversationPending, f.conversation(t, f.alice, f.bob).Status)

	_, err = f.invitationRepo.Create(f.ctx, entity.Invitation{
		ConversationId: conversation.Id, InviterId: f.bob, InviteeId: f.alice,
		Status: entity.InvitationPending, ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationAccepted, f.directed(t, f.bob, f.alice).Status)
	assert.Equal(t, entity.ConversationActive, f.conversation(t, f.alice, f.bob).Status)
	assert.True(t, f.friends(t, f.alice, f.bob))
}

func TestCreateInvitation_NotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("push gateway down")

	view, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	_, err = f.invitations.Accept(f.ctx, view.Id, f.bob)
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationActive, f.conversation(t, f.alice, f.bob).Status)
}

func TestCanonicalUniquenessAcrossCycles(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		view, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
		require.NoError(t, err)
		require.NoError(t, f.invitations.Decline(f.ctx, view.Id, f.bob))

		view, err = f.invitations.Create(f.ctx, f.bob, f.alice, "")
		require.NoError(t, err)
		require.NoError(t, f.invitations.Decline(f.ctx, view.Id, f.alice))
	}

	for _, party := range []string{f.alice, f.bob} {
		rows, err := f.conversationRepo.IndexParticipantsByParty(f.ctx, party, true)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	}
}

func TestAcceptInvitation_HelloScenario(t *testing.T) {
	f := newFixture(t)

	created, err := f.invitations.Create(f.ctx, f.alice, f.bob, "hi")
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationPending, f.conversation(t, f.alice, f.bob).Status)

	f.clock.Advance(time.Hour)
	view, err := f.invitations.Accept(f.ctx, created.Id, f.bob)
	require.NoError(t, err)

	assert.Equal(t, entity.InvitationAccepted, view.Status)
	require.NotNil(t, view.RespondedAt)
	assert.Equal(t, f.clock.Now(), *view.RespondedAt)

	conversation := f.conversation(t, f.alice, f.bob)
	assert.Equal(t, entity.ConversationActive, conversation.Status)
	assert.Equal(t, []string{"hi"}, f.messageTexts(t, conversation.Id))
	assert.True(t, f.friends(t, f.alice, f.bob))
	assert.Contains(t, f.notifier.kindsFor(f.alice), entity.NotifyInvitationAccepted)
}

func TestAcceptInvitation_StalePendingListedThenExpired(t *testing.T) {
	f := newFixture(t)

	created, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	f.clock.Advance(7*24*time.Hour + time.Minute)

	pending, err := f.invitations.ListPending(f.ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, created.Id, pending[0].Id)

	_, err = f.invitations.Accept(f.ctx, created.Id, f.bob)
	assert.ErrorIs(t, err, ErrExpired)

	stored, err := f.invitationRepo.Get(f.ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationExpired, stored.Status)
	assert.NotNil(t, stored.RespondedAt)

	_, err = f.invitations.Accept(f.ctx, created.Id, f.bob)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, entity.ConversationPending, f.conversation(t, f.alice, f.bob).Status)
	assert.False(t, f.friends(t, f.alice, f.bob))
}

func TestDeclineInvitation_ExpiredCommitsTransition(t *testing.T) {
	f := newFixture(t)

	created, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	f.clock.Advance(8 * 24 * time.Hour)

	err = f.invitations.Decline(f.ctx, created.Id, f.bob)
	assert.ErrorIs(t, err, ErrExpired)

	stored, err := f.invitationRepo.Get(f.ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationExpired, stored.Status)
}

func TestAcceptInvitation_Authorization(t *testing.T) {
	f := newFixture(t)

	created, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	_, err = f.invitations.Accept(f.ctx, created.Id, f.carol)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, appErrors.CodePermissionDenied, appErrors.CodeOf(err))

	_, err = f.invitations.Accept(f.ctx, created.Id, f.alice)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.invitations.Accept(f.ctx, "missing", f.bob)
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestAcceptInvitation_AlreadyResponded(t *testing.T) {
	f := newFixture(t)

	created, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	require.NoError(t, f.invitations.Decline(f.ctx, created.Id, f.bob))

	_, err = f.invitations.Accept(f.ctx, created.Id, f.bob)
	assert.ErrorIs(t, err, ErrAlreadyResponded)

	err = f.invitations.Decline(f.ctx, created.Id, f.bob)
	assert.ErrorIs(t, err, ErrAlreadyResponded)
}

func TestRespond_AnsweredInvitationPastDeadline(t *testing.T) {
	f := newFixture(t)

	declined, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	require.NoError(t, f.invitations.Decline(f.ctx, declined.Id, f.bob))

	f.clock.Advance(8 * 24 * time.Hour)

	_, err = f.invitations.Accept(f.ctx, declined.Id, f.bob)
	assert.ErrorIs(t, err, ErrExpired)
	stored, err := f.invitationRepo.Get(f.ctx, declined.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.InvitationExpired, stored.Status)

	err = f.invitations.Decline(f.ctx, declined.Id, f.bob)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestRespond_AcceptedInvitationIsNeverExpired(t *testing.T) {
	f := newFixture(t)
	conversation := f.connect(t, f.alice, f.bob)
	accepted := f.directed(t, f.alice, f.bob)

	f.clock.Advance(8 * 24 * time.Hour)

	_, err := f.invitations.Accept(f.ctx, accepted.Id, f.bob)
	assert.ErrorIs(t, err, ErrAlreadyResponded)
	assert.Equal(t, entity.InvitationAccepted, f.directed(t, f.alice, f.bob).Status)
	assert.Equal(t, entity.ConversationActive, f.conversation(t, f.alice, f.bob).Status)
	assert.Equal(t, conversation.Id, accepted.ConversationId)
}

func TestCreateInvitation_WritesConversationOnEveryDecision(t *testing.T) {
	f := newFixture(t)

	_, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	created := f.conversation(t, f.alice, f.bob)

	// refreshing an expired invitation leaves the status PENDING, yet the
	// conversation document is still written
	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	refreshed := f.conversation(t, f.alice, f.bob)
	assert.Equal(t, entity.ConversationPending, refreshed.Status)
	assert.Equal(t, f.clock.Now(), refreshed.UpdatedAt)
	assert.True(t, refreshed.UpdatedAt.After(created.UpdatedAt))
}

func TestAcceptInvitation_AcceptsPendingReverse(t *testing.T) {
	f := newFixture(t)

	// reach a state where both directions are PENDING without a collapse
	ab, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	require.NoError(t, f.invitations.Decline(f.ctx, ab.Id, f.bob))

	ba, err := f.invitations.Create(f.ctx, f.bob, f.alice, "")
	require.NoError(t, err)
	require.Equal(t, entity.InvitationPending, ba.Status)

	ab, err = f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)
	require.Equal(t, entity.InvitationPending, ab.Status)

	_, err = f.invitations.Accept(f.ctx, ab.Id, f.bob)
	require.NoError(t, err)

	assertConverged(t, f)
}

func TestDeclineInvitation(t *testing.T) {
	f := newFixture(t)

	created, err := f.invitations.Create(f.ctx, f.alice, f.bob, "")
	require.NoError(t, err)

	require.NoError(t, f.invitations.Decline(f.ctx, created.Id, f.bob))

	stored := f.directed(t, f.alice, f.bob)
	assert.Equal(t, entity.InvitationDeclined, stored.Status)
	assert.NotNil(t, stored.RespondedAt)
	assert.Equal(t, entity.ConversationClosed, f.conversation(t, f.alice, f.bob).Status)
	assert.False(t, f.friends(t, f.alice, f.bob))
	assert.Contains(t, f.notifier.kindsFor(f.alice), entity.NotifyInvitationDeclined)

	assert.ErrorIs(t, f.invitations.Decline(f.ctx, created.Id, f.carol), ErrForbidden)
}
