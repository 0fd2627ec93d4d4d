package usecase

import (
	appErrors "propchat/pkg/errors"
)

var (
	ErrInvitationNotFound   = appErrors.NotFound("invitation not found")
	ErrConversationNotFound = appErrors.NotFound("conversation not found")
	ErrPartyNotFound        = appErrors.NotFound("party not found")
	ErrNotParticipant       = appErrors.NotFound("you are not a participant of this conversation")

	ErrForbidden = appErrors.Forbidden("invitation is addressed to another party")

	ErrBlocked               = appErrors.FailedPrecondition("parties are blocked")
	ErrAlreadyPending        = appErrors.FailedPrecondition("invitation already pending")
	ErrAlreadyActive         = appErrors.FailedPrecondition("conversation already active")
	ErrAlreadyResponded      = appErrors.FailedPrecondition("invitation already responded")
	ErrExpired               = appErrors.FailedPrecondition("invitation expired")
	ErrNotBlocked            = appErrors.FailedPrecondition("party is not blocked")
	ErrConversationNotActive = appErrors.FailedPrecondition("conversation is not active")
	ErrConcurrentUpdate      = appErrors.FailedPrecondition("concurrent update, try again")

	ErrAlreadyBlocked = appErrors.AlreadyExists("party already blocked")

	ErrSelfBlock      = appErrors.InvalidArg("cannot block yourself")
	ErrSelfInvite     = appErrors.InvalidArg("cannot invite yourself")
	ErrSelfPair       = appErrors.InvalidArg("a relationship needs two distinct parties")
	ErrEmptyMessage   = appErrors.InvalidArg("message is empty")
	ErrMissingPartyId = appErrors.InvalidArg("party id is required")
)
