package chat

import "errors"

// Sentinel errors for the messaging core. Controllers map these to HTTP
// statuses with errors.Is; everything else is a 500.
var (
	// ErrNotFound means a referenced conversation, user or listing does
	// not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means a business rule was violated, e.g. too few
	// participants or the listing owner missing from a conversation.
	ErrInvalidState = errors.New("invalid state")

	// ErrForbidden means the caller is not a participant of the
	// conversation they are trying to access.
	ErrForbidden = errors.New("forbidden")

	// ErrConversationExists is returned by Directory.Create when the
	// unique (listing, participant pair) index rejects the insert. The
	// service re-fetches the conversation that won the race.
	ErrConversationExists = errors.New("conversation already exists")
)
