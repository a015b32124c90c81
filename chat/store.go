package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dengelma9898/sharelocal-go/models"
)

// Store owns message persistence. Content is encrypted on the way in and
// decrypted on the way out; ciphertext never leaves this type.
type Store struct {
	messages      *mongo.Collection
	conversations *mongo.Collection
	participants  *mongo.Collection
	cipher        ContentCipher
}

// NewStore wires the message store to its collections and cipher.
func NewStore(messages, conversations, participants *mongo.Collection, cipher ContentCipher) *Store {
	return &Store{
		messages:      messages,
		conversations: conversations,
		participants:  participants,
		cipher:        cipher,
	}
}

// Append encrypts plaintext, persists the ciphertext and bumps the owning
// conversation's updated_at. The returned message carries the original
// plaintext, never the ciphertext.
func (s *Store) Append(ctx context.Context, conversationID, senderID, plaintext string) (*models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	ciphertext, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt message content: %w", err)
	}

	now := time.Now()
	msg := models.Message{
		ID:              primitive.NewObjectID(),
		Conversation_id: conversationID,
		Sender_id:       &senderID,
		Content:         &ciphertext,
		Read:            false,
		Created_at:      &now,
	}

	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	_, err = s.conversations.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		// The message is durably stored; a stale updated_at only affects
		// inbox ordering and is repaired by the next append.
		log.Printf("⚠️ [chat] conversation %s: failed to bump updated_at: %v", conversationID, err)
	}

	msg.Content = &plaintext
	return &msg, nil
}

// FindByConversation returns messages ordered oldest first. Each row is
// decrypted independently; one undecryptable row never aborts the batch.
func (s *Store) FindByConversation(ctx context.Context, conversationID string, limit, offset int64) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if offset > 0 {
		opts.SetSkip(offset)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	for i := range msgs {
		s.decryptInPlace(&msgs[i])
	}
	return msgs, nil
}

// Latest returns the newest message of a conversation (decrypted), or nil
// when the conversation has no messages yet.
func (s *Store) Latest(ctx context.Context, conversationID string) (*models.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var msg models.Message
	err := s.messages.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest message: %w", err)
	}

	s.decryptInPlace(&msg)
	return &msg, nil
}

// MarkAsRead flips a single message's read flag to true. The flag is
// monotonic: there is no operation that sets it back to false.
func (s *Store) MarkAsRead(ctx context.Context, messageID string) (*models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg models.Message
	err = s.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{"read": true}},
		opts,
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mark message as read: %w", err)
	}

	s.decryptInPlace(&msg)
	return &msg, nil
}

// MarkConversationAsRead flips read=true on every unread message in the
// conversation that the given user did not send, then stamps the user's
// last_read_at. Both writes are idempotent, so concurrent calls converge
// without a transaction.
func (s *Store) MarkConversationAsRead(ctx context.Context, conversationID, userID string) error {
	_, err := s.messages.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": userID},
			"read":            false,
		},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("mark conversation as read: %w", err)
	}

	_, err = s.participants.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID, "user_id": userID},
		bson.M{"$set": bson.M{"last_read_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("update last_read_at: %w", err)
	}
	return nil
}

// CountUnread counts messages the given user has not read yet. Their own
// messages never count as unread.
func (s *Store) CountUnread(ctx context.Context, conversationID, userID string) (int64, error) {
	count, err := s.messages.CountDocuments(ctx, bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": userID},
		"read":            false,
	})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// Delete removes a message permanently. Reserved for moderation; the
// primary flows never delete messages.
func (s *Store) Delete(ctx context.Context, messageID string) error {
	objID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}

	res, err := s.messages.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return nil
}

// decryptInPlace swaps a message's stored content for its plaintext. Rows
// that fail to decrypt (legacy unencrypted rows, corruption) keep their
// stored value so history stays visible; the condition is always logged.
func (s *Store) decryptInPlace(msg *models.Message) {
	if msg.Content == nil {
		return
	}
	plaintext, err := s.cipher.Decrypt(*msg.Content)
	if err != nil {
		log.Printf("⚠️ [chat] message %s: falling back to stored content: %v", msg.ID.Hex(), err)
		return
	}
	msg.Content = &plaintext
}
