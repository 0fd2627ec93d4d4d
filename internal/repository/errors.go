package repository

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("party is not a participant")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrFriendshipNotFound   = errors.New("friendship not found")
	ErrBlockNotFound        = errors.New("block not found")
	ErrResidentNotFound     = errors.New("resident not found")
	ErrMessageNotFound      = errors.New("message not found")

	// ErrDuplicate is returned when a unique index rejects an insert.
	ErrDuplicate = errors.New("duplicate key")
)
