package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const databaseName = "sharelocal"

var Client *mongo.Client

func InitDB() {
	mongoURI := os.Getenv("MONGODB_URL")
	if mongoURI == "" {
		log.Fatal("❌ MONGODB_URL not found in environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerSelectionTimeout(60 * time.Second).
		SetConnectTimeout(60 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatalf("❌ [InitDB] Error connecting to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("❌ [InitDB] MongoDB ping failed: %v", err)
	}

	fmt.Println("🚀 MongoDB connected successfully")
	Client = client
}

// GetCollection returns a collection from an explicitly named database.
func GetCollection(dbName string, collectionName string) *mongo.Collection {
	if Client == nil {
		log.Fatal("❌ [GetCollection] MongoDB Client is not initialized. Call InitDB() first.")
	}
	return Client.Database(dbName).Collection(collectionName)
}

// OpenCollection is the shortcut that always uses the sharelocal database.
func OpenCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	if client == nil {
		log.Fatal("❌ [OpenCollection] MongoDB Client is not initialized. Call InitDB() first.")
	}
	return client.Database(databaseName).Collection(collectionName)
}

// EnsureChatIndexes creates the indexes the messaging core relies on. The
// unique (listing_id, participant_key) index is what makes conversation
// creation idempotent under concurrent first-contact.
func EnsureChatIndexes(ctx context.Context) error {
	conversations := OpenCollection(Client, "conversations")
	_, err := conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "listing_id", Value: 1},
			{Key: "participant_key", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create conversation dedup index: %w", err)
	}

	participants := OpenCollection(Client, "participants")
	_, err = participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "user_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create participant index: %w", err)
	}

	messages := OpenCollection(Client, "messages")
	_, err = messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create message ordering index: %w", err)
	}

	return nil
}
