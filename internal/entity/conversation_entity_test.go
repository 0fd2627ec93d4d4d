package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	low, high := CanonicalPair("b", "a")
	assert.Equal(t, "a", low)
	assert.Equal(t, "b", high)

	low2, high2 := CanonicalPair("a", "b")
	assert.Equal(t, low, low2)
	assert.Equal(t, high, high2)
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("x-1", "x-2"), PairKey("x-2", "x-1"))
	assert.NotEqual(t, PairKey("x-1", "x-2"), PairKey("x-1", "x-3"))
}

func TestConversationOther(t *testing.T) {
	c := Conversation{PartyLow: "a", PartyHigh: "b"}
	assert.Equal(t, "b", c.Other("a"))
	assert.Equal(t, "a", c.Other("b"))
	assert.True(t, c.HasParty("a"))
	assert.False(t, c.HasParty("c"))
}

func TestInvitationIsLivePending(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inv := Invitation{Status: InvitationPending, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, inv.IsLivePending(now))
	assert.False(t, inv.IsLivePending(now.Add(2*time.Hour)))

	inv.Status = InvitationAccepted
	assert.False(t, inv.IsLivePending(now))
}
