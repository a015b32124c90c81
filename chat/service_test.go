package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dengelma9898/sharelocal-go/models"
)

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

type fakeListings struct {
	listings map[string]*models.Listing
}

func (f *fakeListings) FindByID(_ context.Context, id string) (*models.Listing, error) {
	listing, ok := f.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return listing, nil
}

type fakeDirectory struct {
	convs map[string]*models.Conversation
	parts map[string][]models.Participant

	// rejectNextCreate simulates losing the unique-index race: the next
	// Create fails as a duplicate even though FindBetween saw nothing.
	rejectNextCreate bool
	raceWinner       *models.Conversation
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		convs: make(map[string]*models.Conversation),
		parts: make(map[string][]models.Participant),
	}
}

func (f *fakeDirectory) add(conv *models.Conversation, participantIDs []string) {
	id := conv.ID.Hex()
	f.convs[id] = conv
	for _, uid := range participantIDs {
		f.parts[id] = append(f.parts[id], models.Participant{Conversation_id: id, User_id: uid})
	}
}

func (f *fakeDirectory) Create(_ context.Context, listingID string, participantIDs []string) (*models.Conversation, error) {
	if f.rejectNextCreate {
		f.rejectNextCreate = false
		if f.raceWinner != nil {
			f.add(f.raceWinner, participantIDs)
		}
		return nil, ErrConversationExists
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:              primitive.NewObjectID(),
		Listing_id:      &listingID,
		Participant_key: ParticipantKey(participantIDs),
		State:           models.ConversationStateActive,
		Created_at:      &now,
		Updated_at:      &now,
	}
	f.add(conv, participantIDs)
	return conv, nil
}

func (f *fakeDirectory) FindByID(_ context.Context, id string) (*models.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok || conv.State != models.ConversationStateActive {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return conv, nil
}

func (f *fakeDirectory) Participants(_ context.Context, conversationID string) ([]models.Participant, error) {
	return f.parts[conversationID], nil
}

func (f *fakeDirectory) FindByParticipant(_ context.Context, userID string, _, _ int64) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	for id, conv := range f.convs {
		if conv.State != models.ConversationStateActive {
			continue
		}
		for _, p := range f.parts[id] {
			if p.User_id == userID {
				summaries = append(summaries, models.ConversationSummary{Conversation: *conv})
				break
			}
		}
	}
	return summaries, nil
}

func (f *fakeDirectory) FindBetween(_ context.Context, userIDA, userIDB string, listingID *string) (*models.Conversation, error) {
	key := ParticipantKey([]string{userIDA, userIDB})
	for _, conv := range f.convs {
		if conv.State != models.ConversationStateActive {
			continue
		}
		if conv.Participant_key != key {
			continue
		}
		if listingID != nil && (conv.Listing_id == nil || *conv.Listing_id != *listingID) {
			continue
		}
		return conv, nil
	}
	return nil, fmt.Errorf("conversation between %s and %s: %w", userIDA, userIDB, ErrNotFound)
}

func (f *fakeDirectory) Archive(_ context.Context, id string) error {
	conv, ok := f.convs[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	conv.State = models.ConversationStateArchived
	return nil
}

type fakeMessageStore struct {
	msgs       map[string][]models.Message
	readMarked []string
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{msgs: make(map[string][]models.Message)}
}

func (f *fakeMessageStore) Append(_ context.Context, conversationID, senderID, plaintext string) (*models.Message, error) {
	now := time.Now()
	msg := models.Message{
		ID:              primitive.NewObjectID(),
		Conversation_id: conversationID,
		Sender_id:       &senderID,
		Content:         &plaintext,
		Read:            false,
		Created_at:      &now,
	}
	f.msgs[conversationID] = append(f.msgs[conversationID], msg)
	return &msg, nil
}

func (f *fakeMessageStore) FindByConversation(_ context.Context, conversationID string, _, _ int64) ([]models.Message, error) {
	return f.msgs[conversationID], nil
}

func (f *fakeMessageStore) MarkConversationAsRead(_ context.Context, conversationID, userID string) error {
	f.readMarked = append(f.readMarked, conversationID+"/"+userID)
	batch := f.msgs[conversationID]
	for i := range batch {
		if batch[i].Sender_id != nil && *batch[i].Sender_id != userID {
			batch[i].Read = true
		}
	}
	return nil
}

func (f *fakeMessageStore) Delete(_ context.Context, messageID string) error {
	for convID, batch := range f.msgs {
		for i := range batch {
			if batch[i].ID.Hex() == messageID {
				f.msgs[convID] = append(batch[:i], batch[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
}

func testUser(id string) *models.User {
	name := "Test"
	return &models.User{User_id: id, First_name: &name, Last_name: &name}
}

func testListing(id, ownerID string) *models.Listing {
	return &models.Listing{Listing_id: id, User_id: &ownerID}
}

type serviceFixture struct {
	service   *Service
	directory *fakeDirectory
	store     *fakeMessageStore
	users     *fakeUsers
	listings  *fakeListings
}

func newServiceFixture() *serviceFixture {
	directory := newFakeDirectory()
	store := newFakeMessageStore()
	users := &fakeUsers{users: map[string]*models.User{
		"alice": testUser("alice"),
		"bob":   testUser("bob"),
	}}
	listings := &fakeListings{listings: map[string]*models.Listing{
		"ladder": testListing("ladder", "alice"),
	}}

	return &serviceFixture{
		service:   NewService(directory, store, users, listings),
		directory: directory,
		store:     store,
		users:     users,
		listings:  listings,
	}
}

func TestCreateConversationRequiresTwoParticipants(t *testing.T) {
	fx := newServiceFixture()

	// The creator is auto-added, so passing only themselves is one
	// distinct participant.
	_, err := fx.service.CreateConversation(context.Background(), "alice", "ladder", []string{"alice"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateConversationUnknownParticipant(t *testing.T) {
	fx := newServiceFixture()

	_, err := fx.service.CreateConversation(context.Background(), "alice", "ladder", []string{"ghost"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConversationDeletedParticipant(t *testing.T) {
	fx := newServiceFixture()
	gone := time.Now()
	carol := testUser("carol")
	carol.Deleted_at = &gone
	fx.users.users["carol"] = carol

	_, err := fx.service.CreateConversation(context.Background(), "alice", "ladder", []string{"carol"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConversationUnknownListing(t *testing.T) {
	fx := newServiceFixture()

	_, err := fx.service.CreateConversation(context.Background(), "alice", "no-such-listing", []string{"bob"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConversationDeletedListing(t *testing.T) {
	fx := newServiceFixture()
	gone := time.Now()
	fx.listings.listings["ladder"].Deleted_at = &gone

	_, err := fx.service.CreateConversation(context.Background(), "alice", "ladder", []string{"bob"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConversationRequiresListing(t *testing.T) {
	fx := newServiceFixture()

	_, err := fx.service.CreateConversation(context.Background(), "alice", "", []string{"bob"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateConversationOwnerMustParticipate(t *testing.T) {
	fx := newServiceFixture()
	fx.users.users["carol"] = testUser("carol")
	fx.listings.listings["drill"] = testListing("drill", "carol")

	_, err := fx.service.CreateConversation(context.Background(), "alice", "drill", []string{"bob"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateConversationIsIdempotent(t *testing.T) {
	fx := newServiceFixture()

	first, err := fx.service.CreateConversation(context.Background(), "bob", "ladder", []string{"alice"})
	require.NoError(t, err)

	// Same pair, other direction: the existing conversation comes back.
	second, err := fx.service.CreateConversation(context.Background(), "alice", "ladder", []string{"bob"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, fx.directory.convs, 1)
}

func TestCreateConversationSurvivesLostRace(t *testing.T) {
	fx := newServiceFixture()

	now := time.Now()
	listingID := "ladder"
	winner := &models.Conversation{
		ID:              primitive.NewObjectID(),
		Listing_id:      &listingID,
		Participant_key: ParticipantKey([]string{"alice", "bob"}),
		State:           models.ConversationStateActive,
		Created_at:      &now,
		Updated_at:      &now,
	}
	fx.directory.rejectNextCreate = true
	fx.directory.raceWinner = winner

	conv, err := fx.service.CreateConversation(context.Background(), "bob", "ladder", []string{"alice"})
	require.NoError(t, err)
	require.Equal(t, winner.ID, conv.ID)
}

func TestAuthorize(t *testing.T) {
	fx := newServiceFixture()

	conv, err := fx.service.CreateConversation(context.Background(), "bob", "ladder", []string{"alice"})
	require.NoError(t, err)

	auth, err := fx.service.Authorize(context.Background(), conv.ID.Hex(), "bob")
	require.NoError(t, err)
	require.Equal(t, conv.ID.Hex(), auth.ConversationID())
	require.Equal(t, "bob", auth.UserID())

	_, err = fx.service.Authorize(context.Background(), conv.ID.Hex(), "carol")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = fx.service.Authorize(context.Background(), primitive.NewObjectID().Hex(), "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessageTrimsWhitespace(t *testing.T) {
	fx := newServiceFixture()

	conv, err := fx.service.CreateConversation(context.Background(), "bob", "ladder", []string{"alice"})
	require.NoError(t, err)
	auth, err := fx.service.Authorize(context.Background(), conv.ID.Hex(), "bob")
	require.NoError(t, err)

	msg, err := fx.service.SendMessage(context.Background(), auth, "  hello there \n")
	require.NoError(t, err)
	require.Equal(t, "hello there", *msg.Content)
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	fx := newServiceFixture()

	conv, err := fx.service.CreateConversation(context.Background(), "bob", "ladder", []string{"alice"})
	require.NoError(t, err)
	auth, err := fx.service.Authorize(context.Background(), conv.ID.Hex(), "bob")
	require.NoError(t, err)

	_, err = fx.service.SendMessage(context.Background(), auth, "   \t\n")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestZeroHandleIsUnusable(t *testing.T) {
	fx := newServiceFixture()

	_, err := fx.service.SendMessage(context.Background(), AuthorizedConversation{}, "hi")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = fx.service.Messages(context.Background(), AuthorizedConversation{}, 0, 0)
	require.ErrorIs(t, err, ErrForbidden)

	err = fx.service.Archive(context.Background(), AuthorizedConversation{})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMessagesMarksConversationRead(t *testing.T) {
	fx := newServiceFixture()

	conv, err := fx.service.CreateConversation(context.Background(), "bob", "ladder", []string{"alice"})
	require.NoError(t, err)

	bobAuth, err := fx.service.Authorize(context.Background(), conv.ID.Hex(), "bob")
	require.NoError(t, err)
	_, err = fx.service.SendMessage(context.Background(), bobAuth, "Hello")
	require.NoError(t, err)

	aliceAuth, err := fx.service.Authorize(context.Background(), conv.ID.Hex(), "alice")
	require.NoError(t, err)

	msgs, err := fx.service.Messages(context.Background(), aliceAuth, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Hello", *msgs[0].Content)
	require.NotNil(t, msgs[0].Sender)
	require.Equal(t, "bob", msgs[0].Sender.User_id)

	// Fetching acknowledged receipt for alice.
	require.Contains(t, fx.store.readMarked, conv.ID.Hex()+"/alice")
	require.True(t, fx.store.msgs[conv.ID.Hex()][0].Read)
}

func TestArchiveHidesConversation(t *testing.T) {
	fx := newServiceFixture()

	conv, err := fx.service.CreateConversation(context.Background(), "bob", "ladder", []string{"alice"})
	require.NoError(t, err)
	auth, err := fx.service.Authorize(context.Background(), conv.ID.Hex(), "bob")
	require.NoError(t, err)

	require.NoError(t, fx.service.Archive(context.Background(), auth))

	_, err = fx.service.Authorize(context.Background(), conv.ID.Hex(), "bob")
	require.ErrorIs(t, err, ErrNotFound)

	inbox, err := fx.service.Conversations(context.Background(), "bob", 0, 0)
	require.NoError(t, err)
	require.Empty(t, inbox)
}
