package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"video_narrator/assembler/models"
)

// Global database handles
var (
	mongoClient    *mongo.Client
	database       *mongo.Database
	runsCollection *mongo.Collection
)

// RunRecord is one assembly job as stored in MongoDB.
type RunRecord struct {
	JobID      string            `json:"job_id" bson:"job_id"`
	ProjectDir string            `json:"project_dir" bson:"project_dir"`
	Resolution string            `json:"resolution" bson:"resolution"`
	Status     string            `json:"status" bson:"status"`
	Error      string            `json:"error,omitempty" bson:"error,omitempty"`
	Report     *models.RunReport `json:"report,omitempty" bson:"report,omitempty"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" bson:"updated_at"`
}

func initializeMongoDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoURI := getMongoURI()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	mongoClient = client
	database = client.Database(getMongoDB())
	runsCollection = database.Collection("assembly_runs")

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %v", err)
	}

	fmt.Println("✓ MongoDB connected successfully")
	return nil
}

func createIndexes() error {
	ctx := context.Background()

	_, err := runsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

func insertRun(record *RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := runsCollection.InsertOne(ctx, record)
	return err
}

func updateRunStatus(jobID, status, errMsg string, report *models.RunReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errMsg != "" {
		update["error"] = errMsg
	}
	if report != nil {
		update["report"] = report
	}

	_, err := runsCollection.UpdateOne(ctx,
		bson.M{"job_id": jobID},
		bson.M{"$set": update})
	return err
}

func findRun(jobID string) (*RunRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var record RunRecord
	err := runsCollection.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func listRuns(limit int64) ([]RunRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := runsCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []RunRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func getMongoURI() string {
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

func getMongoDB() string {
	if db := os.Getenv("MONGODB_DATABASE"); db != "" {
		return db
	}
	return "video_narrator"
}
