package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"chat-meter/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TurnArchive keeps a durable copy of every recorded turn, failed ones included,
// for the admin views.
// The in-memory conversation log stays the source of truth for the chat page.
type TurnArchive interface {
	SaveTurn(ctx context.Context, account, day string, turn models.Turn) error
	RecentTurns(ctx context.Context, limit int64) ([]models.ArchivedTurn, error)
	CountTurns(ctx context.Context) (int64, error)
}

// DocumentArchive stores the raw bytes of uploaded documents.
type DocumentArchive interface {
	StoreDocument(ctx context.Context, account, fileName string, data []byte) (string, error)
}

// ==== Mongo turn archive ====

type MongoTurnArchive struct {
	Collection *mongo.Collection
}

func NewMongoTurnArchive(c *mongo.Collection) *MongoTurnArchive {
	return &MongoTurnArchive{Collection: c}
}

func (a *MongoTurnArchive) SaveTurn(ctx context.Context, account, day string, turn models.Turn) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := a.Collection.InsertOne(ctx, models.ArchivedTurn{Account: account, Day: day, Turn: turn})
	if err != nil {
		return fmt.Errorf("failed to archive turn: %w", err)
	}
	return nil
}

func (a *MongoTurnArchive) RecentTurns(ctx context.Context, limit int64) ([]models.ArchivedTurn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)

	cursor, err := a.Collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived turns: %w", err)
	}
	defer cursor.Close(ctx)

	var turns []models.ArchivedTurn
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, fmt.Errorf("failed to decode archived turns: %w", err)
	}
	return turns, nil
}

func (a *MongoTurnArchive) CountTurns(ctx context.Context) (int64, error) {
	n, err := a.Collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count archived turns: %w", err)
	}
	return n, nil
}

// ==== S3 document archive ====

type S3DocumentArchive struct {
	Bucket   string
	Region   string
	uploader *manager.Uploader
}

func NewS3DocumentArchive(cfg aws.Config, bucket string) *S3DocumentArchive {
	return &S3DocumentArchive{
		Bucket:   bucket,
		Region:   cfg.Region,
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
	}
}

// StoreDocument uploads the file under uploads/<account>/ and returns its URL.
func (a *S3DocumentArchive) StoreDocument(ctx context.Context, account, fileName string, data []byte) (string, error) {
	key := DocumentKey(account, fileName)

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload document to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.Bucket, a.Region, key), nil
}

// DocumentKey builds a collision-free object key that keeps the original base name.
func DocumentKey(account, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s-%s", account, uuid.NewString(), filepath.Base(fileName))
}
