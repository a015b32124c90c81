package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/dengelma9898/sharelocal-go/crypto"
)

func mockStore(mt *mtest.T) *Store {
	engine, err := crypto.NewEngine("mock-store-secret", false)
	require.NoError(mt, err)
	return NewStore(mt.Coll, mt.Coll, mt.Coll, engine)
}

func messageDoc(conversationID, senderID, content string, read bool, at time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "conversation_id", Value: conversationID},
		{Key: "sender_id", Value: senderID},
		{Key: "content", Value: content},
		{Key: "read", Value: read},
		{Key: "created_at", Value: primitive.NewDateTimeFromTime(at)},
	}
}

func TestFindByConversationOrdersOldestFirst(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("sorted ascending with per-row decryption", func(mt *mtest.T) {
		store := mockStore(mt)
		conv := primitive.NewObjectID().Hex()

		first, err := store.cipher.Encrypt("first")
		require.NoError(mt, err)
		third, err := store.cipher.Encrypt("third")
		require.NoError(mt, err)

		base := time.Now().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "sharelocal.messages", mtest.FirstBatch,
			messageDoc(conv, "bob", first, true, base),
			messageDoc(conv, "alice", "a legacy unencrypted row", false, base.Add(time.Second)),
			messageDoc(conv, "bob", third, false, base.Add(2*time.Second)),
		))

		msgs, err := store.FindByConversation(context.Background(), conv, 0, 0)
		require.NoError(mt, err)
		require.Len(mt, msgs, 3)

		// One undecryptable row falls back to its stored value without
		// disturbing its neighbours.
		require.Equal(mt, "first", *msgs[0].Content)
		require.Equal(mt, "a legacy unencrypted row", *msgs[1].Content)
		require.Equal(mt, "third", *msgs[2].Content)
		for i := 1; i < len(msgs); i++ {
			require.False(mt, msgs[i].Created_at.Before(*msgs[i-1].Created_at))
		}

		evt := mt.GetStartedEvent()
		require.Equal(mt, "find", evt.CommandName)
		sortDir, ok := evt.Command.Lookup("sort", "created_at").AsInt64OK()
		require.True(mt, ok)
		require.EqualValues(mt, 1, sortDir)
	})
}

func TestAppendToleratesBumpFailure(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("send succeeds when only the updated_at bump fails", func(mt *mtest.T) {
		store := mockStore(mt)
		conv := primitive.NewObjectID().Hex()

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11602,
				Name:    "InterruptedDueToReplStateChange",
				Message: "primary stepped down",
			}),
		)

		msg, err := store.Append(context.Background(), conv, "bob", "still delivered")
		require.NoError(mt, err)
		require.Equal(mt, "still delivered", *msg.Content)
		require.False(mt, msg.Read)
	})
}

func TestAppendRejectsMalformedConversationID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("nothing is written for a bad id", func(mt *mtest.T) {
		store := mockStore(mt)

		_, err := store.Append(context.Background(), "not-an-object-id", "bob", "hello")
		require.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMarkConversationAsReadOnlyFlipsForward(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("bulk update targets other senders' unread rows", func(mt *mtest.T) {
		store := mockStore(mt)

		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		require.NoError(mt, store.MarkConversationAsRead(context.Background(), "conv1", "alice"))

		// The message update may only select currently-unread rows from
		// other senders, and may only ever set read to true.
		evt := mt.GetStartedEvent()
		require.Equal(mt, "update", evt.CommandName)

		notSender, ok := evt.Command.Lookup("updates", "0", "q", "sender_id", "$ne").StringValueOK()
		require.True(mt, ok)
		require.Equal(mt, "alice", notSender)

		onlyUnread, ok := evt.Command.Lookup("updates", "0", "q", "read").BooleanOK()
		require.True(mt, ok)
		require.False(mt, onlyUnread)

		setRead, ok := evt.Command.Lookup("updates", "0", "u", "$set", "read").BooleanOK()
		require.True(mt, ok)
		require.True(mt, setRead)

		multi, ok := evt.Command.Lookup("updates", "0", "multi").BooleanOK()
		require.True(mt, ok)
		require.True(mt, multi)

		// The second write stamps the reader's last_read_at.
		evt = mt.GetStartedEvent()
		require.Equal(mt, "update", evt.CommandName)
		reader, ok := evt.Command.Lookup("updates", "0", "q", "user_id").StringValueOK()
		require.True(mt, ok)
		require.Equal(mt, "alice", reader)
		_, ok = evt.Command.Lookup("updates", "0", "u", "$set", "last_read_at").DateTimeOK()
		require.True(mt, ok)
	})
}

func TestMarkAsReadNeverUnsets(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("single-message flip sets true only", func(mt *mtest.T) {
		store := mockStore(mt)
		conv := primitive.NewObjectID().Hex()

		token, err := store.cipher.Encrypt("now acknowledged")
		require.NoError(mt, err)

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: messageDoc(conv, "bob", token, true, time.Now())},
		))

		msg, err := store.MarkAsRead(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		require.True(mt, msg.Read)
		require.Equal(mt, "now acknowledged", *msg.Content)

		evt := mt.GetStartedEvent()
		require.Equal(mt, "findAndModify", evt.CommandName)
		setRead, ok := evt.Command.Lookup("update", "$set", "read").BooleanOK()
		require.True(mt, ok)
		require.True(mt, setRead)
	})
}

func TestCountUnreadExcludesOwnAndReadMessages(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("filter counts only other senders' unread rows", func(mt *mtest.T) {
		store := mockStore(mt)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "sharelocal.messages", mtest.FirstBatch,
			bson.D{{Key: "n", Value: int64(2)}},
		))

		count, err := store.CountUnread(context.Background(), "conv1", "bob")
		require.NoError(mt, err)
		require.EqualValues(mt, 2, count)

		// Bob's own messages are never unread for bob, however often he
		// has read them; the exclusion lives in the filter itself.
		evt := mt.GetStartedEvent()
		require.Equal(mt, "aggregate", evt.CommandName)

		match := evt.Command.Lookup("pipeline", "0", "$match")
		notSender, ok := match.Document().Lookup("sender_id", "$ne").StringValueOK()
		require.True(mt, ok)
		require.Equal(mt, "bob", notSender)

		onlyUnread, ok := match.Document().Lookup("read").BooleanOK()
		require.True(mt, ok)
		require.False(mt, onlyUnread)

		convFilter, ok := match.Document().Lookup("conversation_id").StringValueOK()
		require.True(mt, ok)
		require.Equal(mt, "conv1", convFilter)
	})
}
