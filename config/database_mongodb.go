package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client
var MongoConversations *mongo.Collection

// InitMongoDB connects the optional conversation archive. No-op when MONGO_URI is empty.
func InitMongoDB() error {
	if MongoURI == "" {
		log.Println("MONGO_URI not set, conversation archive disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Println("✅ Connected to MongoDB conversation archive")

	MongoClient = client
	MongoConversations = client.Database(MongoDB).Collection("conversations")

	return nil
}

// CloseMongoDB disconnects the archive client if one was opened.
func CloseMongoDB(ctx context.Context) error {
	if MongoClient != nil {
		return MongoClient.Disconnect(ctx)
	}
	return nil
}
