package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"propchat/infrastructure/lock"
	"propchat/internal/entity"
	"propchat/internal/repository"
	"propchat/internal/repository/memory"
	"propchat/pkg/logger"

	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentNotification struct {
	partyId string
	kind    entity.NotificationKind
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{partyId: partyId, kind: kind})
	return n.err
}

func (n *recordingNotifier) kindsFor(partyId string) []entity.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()

	var kinds []entity.NotificationKind
	for _, s := range n.sent {
		if s.partyId == partyId {
			kinds = append(kinds, s.kind)
		}
	}
	return kinds
}

type fixture struct {
	ctx   context.Context
	clock *clock

	conversationRepo repository.ConversationRepository
	invitationRepo   repository.InvitationRepository
	friendshipRepo   repository.FriendshipRepository
	blockRepo        repository.BlockRepository
	messageRepo      repository.MessageRepository

	parties       PartyResolver
	views         *ViewAssembler
	friendships   FriendshipUsecase
	blocks        BlockUsecase
	conversations ConversationUsecase
	messages      MessageUsecase
	invitations   *invitationUsecase
	notifier      *recordingNotifier

	alice, bob, carol string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:              context.Background(),
		clock:            &clock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
		conversationRepo: memory.NewConversationRepository(),
		invitationRepo:   memory.NewInvitationRepository(),
		friendshipRepo:   memory.NewFriendshipRepository(),
		blockRepo:        memory.NewBlockRepository(),
		messageRepo:      memory.NewMessageRepository(),
		notifier:         &recordingNotifier{},
	}
	log := logger.NewNop()
	uow := NewUnitOfWork(lock.NewMemoryLocker(), nil)

	f.parties = NewPartyResolver(memory.NewResidentRepository(), time.Minute)
	f.views = NewViewAssembler(f.parties, log)
	f.friendships = NewFriendshipUsecase(f.friendshipRepo, f.views)
	f.blocks = NewBlockUsecase(f.blockRepo, f.friendships, f.parties, f.views, uow, log)
	f.conversations = NewConversationUsecase(f.conversationRepo, f.messageRepo, f.views, uow, log)
	f.conversations.(*conversationUsecase).now = f.clock.Now
	f.messages = NewMessageUseCase(f.messageRepo, f.conversationRepo, f.conversations, f.blocks, f.notifier, log)
	f.messages.(*messageUsecase).now = f.clock.Now
	f.invitations = f.newInvitations(uow)

	f.alice = f.register(t, "account-alice", "Alice")
	f.bob = f.register(t, "account-bob", "Bob")
	f.carol = f.register(t, "account-carol", "Carol")

	return f
}

// newInvitations builds a coordinator over the fixture's stores with its own unit of work.
func (f *fixture) newInvitations(uow UnitOfWork) *invitationUsecase {
	uc := NewInvitationUsecase(
		f.conversationRepo,
		f.invitationRepo,
		f.friendships,
		f.blocks,
		f.messages,
		f.parties,
		f.views,
		f.notifier,
		uow,
		DefaultInvitationTTL,
		logger.NewNop(),
	).(*invitationUsecase)
	uc.now = f.clock.Now
	return uc
}

func (f *fixture) register(t *testing.T, account, name string) string {
	t.Helper()
	resident, err := f.parties.Register(f.ctx, account, name)
	require.NoError(t, err)
	return resident.Id
}

func (f *fixture) conversation(t *testing.T, x, y string) entity.Conversation {
	t.Helper()
	low, high := entity.CanonicalPair(x, y)
	c, err := f.conversationRepo.GetByPair(f.ctx, low, high)
	require.NoError(t, err)
	return c
}

func (f *fixture) directed(t *testing.T, inviter, invitee string) entity.Invitation {
	t.Helper()
	c := f.conversation(t, inviter, invitee)
	inv, err := f.invitationRepo.GetDirected(f.ctx, c.Id, inviter, invitee)
	require.NoError(t, err)
	return inv
}

func (f *fixture) friends(t *testing.T, x, y string) bool {
	t.Helper()
	ok, err := f.friendships.IsActive(f.ctx, x, y)
	require.NoError(t, err)
	return ok
}

func (f *fixture) messageTexts(t *testing.T, conversationId string) []string {
	t.Helper()
	msgs, err := f.messageRepo.Index(f.ctx, entity.MessageIndexFilter{ConversationId: conversationId})
	require.NoError(t, err)
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Message)
	}
	return texts
}

// connect runs a full invite/accept handshake between inviter and invitee.
func (f *fixture) connect(t *testing.T, inviter, invitee string) entity.Conversation {
	t.Helper()
	view, err := f.invitations.Create(f.ctx, inviter, invitee, "")
	require.NoError(t, err)
	_, err = f.invitations.Accept(f.ctx, view.Id, invitee)
	require.NoError(t, err)
	return f.conversation(t, inviter, invitee)
}
