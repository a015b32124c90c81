package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dengelma9898/sharelocal-go/models"
)

// ConversationDirectory is the directory surface the service needs.
// *Directory satisfies it; tests substitute fakes.
type ConversationDirectory interface {
	Create(ctx context.Context, listingID string, participantIDs []string) (*models.Conversation, error)
	FindByID(ctx context.Context, id string) (*models.Conversation, error)
	Participants(ctx context.Context, conversationID string) ([]models.Participant, error)
	FindByParticipant(ctx context.Context, userID string, limit, offset int64) ([]models.ConversationSummary, error)
	FindBetween(ctx context.Context, userIDA, userIDB string, listingID *string) (*models.Conversation, error)
	Archive(ctx context.Context, id string) error
}

// MessageStore is the store surface the service needs. *Store satisfies
// it.
type MessageStore interface {
	Append(ctx context.Context, conversationID, senderID, plaintext string) (*models.Message, error)
	FindByConversation(ctx context.Context, conversationID string, limit, offset int64) ([]models.Message, error)
	MarkConversationAsRead(ctx context.Context, conversationID, userID string) error
	Delete(ctx context.Context, messageID string) error
}

// AuthorizedConversation is the capability handle produced by Authorize.
// Send and read operations only accept the handle, so participant
// authorization provably happened before any data access. The zero value
// is unusable.
type AuthorizedConversation struct {
	conversationID string
	userID         string
}

// ConversationID returns the authorized conversation's id.
func (a AuthorizedConversation) ConversationID() string { return a.conversationID }

// UserID returns the id of the user the handle was issued for.
func (a AuthorizedConversation) UserID() string { return a.userID }

// MessageWithSender pairs a message with its resolved sender.
type MessageWithSender struct {
	models.Message
	Sender *models.User `json:"sender,omitempty"`
}

// Service orchestrates the conversation directory and the message store
// and enforces the conversation-creation rules.
type Service struct {
	directory ConversationDirectory
	store     MessageStore
	users     UserDirectory
	listings  ListingDirectory
}

// NewService wires the messaging service.
func NewService(directory ConversationDirectory, store MessageStore, users UserDirectory, listings ListingDirectory) *Service {
	return &Service{
		directory: directory,
		store:     store,
		users:     users,
		listings:  listings,
	}
}

// CreateConversation starts (or returns) the conversation between the
// creator and the given participants about a listing. The creator is
// always included; every participant must resolve to a live user; the
// listing must exist and its owner must be among the participants.
// Creation is idempotent: an existing conversation for the same pair and
// listing is returned instead of a duplicate.
func (s *Service) CreateConversation(ctx context.Context, creatorID, listingID string, participantIDs []string) (*models.Conversation, error) {
	ids := dedupe(append([]string{creatorID}, participantIDs...))

	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: a conversation needs at least two distinct participants", ErrInvalidState)
	}
	if !contains(ids, creatorID) {
		return nil, fmt.Errorf("%w: creator must be a participant", ErrInvalidState)
	}

	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user.IsDeleted() {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
	}

	if listingID == "" {
		return nil, fmt.Errorf("%w: a conversation must be anchored to a listing", ErrInvalidState)
	}
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.IsDeleted() {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	if listing.User_id == nil || !contains(ids, *listing.User_id) {
		return nil, fmt.Errorf("%w: listing owner must be a participant", ErrInvalidState)
	}

	existing, err := s.directory.FindBetween(ctx, ids[0], ids[1], &listingID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	conv, err := s.directory.Create(ctx, listingID, ids)
	if errors.Is(err, ErrConversationExists) {
		// Lost a concurrent first-contact race; the winner is the
		// conversation we were about to create.
		return s.directory.FindBetween(ctx, ids[0], ids[1], &listingID)
	}
	return conv, err
}

// Authorize checks that the user is a participant of the conversation and
// issues the capability handle the send and read operations require.
func (s *Service) Authorize(ctx context.Context, conversationID, userID string) (AuthorizedConversation, error) {
	conv, err := s.directory.FindByID(ctx, conversationID)
	if err != nil {
		return AuthorizedConversation{}, err
	}

	rows, err := s.directory.Participants(ctx, conv.ID.Hex())
	if err != nil {
		return AuthorizedConversation{}, err
	}
	for _, row := range rows {
		if row.User_id == userID {
			return AuthorizedConversation{conversationID: conv.ID.Hex(), userID: userID}, nil
		}
	}
	return AuthorizedConversation{}, fmt.Errorf("user %s is not a participant of conversation %s: %w", userID, conversationID, ErrForbidden)
}

// SendMessage appends a message from the handle's user. Surrounding
// whitespace is trimmed before encryption.
func (s *Service) SendMessage(ctx context.Context, auth AuthorizedConversation, content string) (*models.Message, error) {
	if auth.conversationID == "" {
		return nil, fmt.Errorf("unauthorized send: %w", ErrForbidden)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content must not be empty", ErrInvalidState)
	}

	return s.store.Append(ctx, auth.conversationID, auth.userID, content)
}

// Messages returns the conversation's messages oldest first with resolved
// senders, and marks the conversation read for the handle's user: fetching
// messages acknowledges receipt.
func (s *Service) Messages(ctx context.Context, auth AuthorizedConversation, limit, offset int64) ([]MessageWithSender, error) {
	if auth.conversationID == "" {
		return nil, fmt.Errorf("unauthorized read: %w", ErrForbidden)
	}

	msgs, err := s.store.FindByConversation(ctx, auth.conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkConversationAsRead(ctx, auth.conversationID, auth.userID); err != nil {
		return nil, err
	}

	senders := make(map[string]*models.User)
	result := make([]MessageWithSender, 0, len(msgs))
	for _, msg := range msgs {
		entry := MessageWithSender{Message: msg}
		if msg.Sender_id != nil {
			sender, ok := senders[*msg.Sender_id]
			if !ok {
				sender, err = s.users.FindByID(ctx, *msg.Sender_id)
				if err != nil {
					sender = nil
				}
				senders[*msg.Sender_id] = sender
			}
			entry.Sender = sender
		}
		result = append(result, entry)
	}
	return result, nil
}

// Conversations lists the user's inbox, most recently active first.
func (s *Service) Conversations(ctx context.Context, userID string, limit, offset int64) ([]models.ConversationSummary, error) {
	return s.directory.FindByParticipant(ctx, userID, limit, offset)
}

// Archive removes the conversation from both participants' inboxes.
func (s *Service) Archive(ctx context.Context, auth AuthorizedConversation) error {
	if auth.conversationID == "" {
		return fmt.Errorf("unauthorized archive: %w", ErrForbidden)
	}
	return s.directory.Archive(ctx, auth.conversationID)
}

// DeleteMessage hard-deletes a message. Moderation only.
func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	return s.store.Delete(ctx, messageID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
