package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dengelma9898/sharelocal-go/models"
)

// Directory owns conversation identity and participant membership. It does
// not enforce any business rules about who may talk to whom; that is the
// service's job.
type Directory struct {
	conversations *mongo.Collection
	participants  *mongo.Collection
	store         *Store
	users         UserDirectory
	listings      ListingDirectory
}

// NewDirectory wires the conversation directory. The store is only used
// to resolve last-message previews and unread counts for summaries.
func NewDirectory(conversations, participants *mongo.Collection, store *Store, users UserDirectory, listings ListingDirectory) *Directory {
	return &Directory{
		conversations: conversations,
		participants:  participants,
		store:         store,
		users:         users,
		listings:      listings,
	}
}

// ParticipantKey builds the order-independent dedup key for a participant
// set: the ids sorted and colon-joined.
func ParticipantKey(userIDs []string) string {
	ids := make([]string, len(userIDs))
	copy(ids, userIDs)
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Create inserts a conversation and one participant row per id. It does
// not dedup; callers go through the service, which does. A duplicate-key
// rejection from the unique (listing_id, participant_key) index surfaces
// as ErrConversationExists.
func (d *Directory) Create(ctx context.Context, listingID string, participantIDs []string) (*models.Conversation, error) {
	now := time.Now()
	conv := models.Conversation{
		ID:              primitive.NewObjectID(),
		Listing_id:      &listingID,
		Participant_key: ParticipantKey(participantIDs),
		State:           models.ConversationStateActive,
		Created_at:      &now,
		Updated_at:      &now,
	}

	if _, err := d.conversations.InsertOne(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrConversationExists
		}
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	rows := make([]interface{}, 0, len(participantIDs))
	for _, id := range participantIDs {
		rows = append(rows, models.Participant{
			Conversation_id: conv.ID.Hex(),
			User_id:         id,
		})
	}
	if _, err := d.participants.InsertMany(ctx, rows); err != nil {
		// Roll back the conversation document. Leaving it would wedge the
		// (listing, pair) dedup key on a conversation with no members:
		// FindBetween keeps returning it while Authorize keeps refusing it.
		if _, delErr := d.conversations.DeleteOne(ctx, bson.M{"_id": conv.ID}); delErr != nil {
			log.Printf("⚠️ [chat] conversation %s: rollback after participant insert failure: %v", conv.ID.Hex(), delErr)
		}
		return nil, fmt.Errorf("insert participants: %w", err)
	}

	return &conv, nil
}

// FindByID returns an active conversation by id. Archived conversations
// are unreachable through this path, matching their deleted semantics.
func (d *Directory) FindByID(ctx context.Context, id string) (*models.Conversation, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}

	var conv models.Conversation
	err = d.conversations.FindOne(ctx, bson.M{
		"_id":   objID,
		"state": models.ConversationStateActive,
	}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &conv, nil
}

// Participants returns the membership rows of a conversation.
func (d *Directory) Participants(ctx context.Context, conversationID string) ([]models.Participant, error) {
	cursor, err := d.participants.Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, fmt.Errorf("find participants: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.Participant
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return rows, nil
}

// FindByParticipant lists a user's active conversations as inbox
// summaries, most recently active first.
func (d *Directory) FindByParticipant(ctx context.Context, userID string, limit, offset int64) ([]models.ConversationSummary, error) {
	cursor, err := d.participants.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	var memberships []models.Participant
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, fmt.Errorf("decode memberships: %w", err)
	}
	if len(memberships) == 0 {
		return []models.ConversationSummary{}, nil
	}

	convIDs := make([]primitive.ObjectID, 0, len(memberships))
	for _, m := range memberships {
		objID, err := primitive.ObjectIDFromHex(m.Conversation_id)
		if err != nil {
			continue
		}
		convIDs = append(convIDs, objID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if offset > 0 {
		opts.SetSkip(offset)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err = d.conversations.Find(ctx, bson.M{
		"_id":   bson.M{"$in": convIDs},
		"state": models.ConversationStateActive,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	var convs []models.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary, err := d.summarize(ctx, conv, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// FindBetween looks up the active conversation whose participant set is
// exactly the given pair, order-independent, optionally restricted to a
// listing. Used for dedup before creation.
func (d *Directory) FindBetween(ctx context.Context, userIDA, userIDB string, listingID *string) (*models.Conversation, error) {
	filter := bson.M{
		"participant_key": ParticipantKey([]string{userIDA, userIDB}),
		"state":           models.ConversationStateActive,
	}
	if listingID != nil {
		filter["listing_id"] = *listingID
	}

	var conv models.Conversation
	err := d.conversations.FindOne(ctx, filter).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("conversation between %s and %s: %w", userIDA, userIDB, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation between users: %w", err)
	}
	return &conv, nil
}

// Archive tags a conversation as archived. Messages and participant rows
// stay in place; the conversation simply stops appearing in lookups.
func (d *Directory) Archive(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}

	res, err := d.conversations.UpdateOne(ctx,
		bson.M{"_id": objID},
		bson.M{"$set": bson.M{
			"state":      models.ConversationStateArchived,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (d *Directory) summarize(ctx context.Context, conv models.Conversation, userID string) (*models.ConversationSummary, error) {
	convID := conv.ID.Hex()

	rows, err := d.Participants(ctx, convID)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		user, err := d.users.FindByID(ctx, row.User_id)
		if err != nil {
			// A vanished account just drops out of the summary; an actual
			// lookup failure is worth knowing about.
			if !errors.Is(err, ErrNotFound) {
				log.Printf("⚠️ [chat] conversation %s: resolve participant %s: %v", convID, row.User_id, err)
			}
			continue
		}
		users = append(users, *user)
	}

	summary := models.ConversationSummary{
		Conversation: conv,
		Participants: users,
	}

	if conv.Listing_id != nil {
		listing, err := d.listings.FindByID(ctx, *conv.Listing_id)
		if err == nil {
			summary.Listing = listing
		}
	}

	last, err := d.store.Latest(ctx, convID)
	if err != nil {
		return nil, err
	}
	summary.Last_message = last

	unread, err := d.store.CountUnread(ctx, convID, userID)
	if err != nil {
		return nil, err
	}
	summary.Unread_count = unread

	return &summary, nil
}
