package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vitalsense/internal/database"
	"vitalsense/internal/models"
)

// ErrRecordNotFound is returned when a vitals record doesn't exist or
// belongs to a different user
var ErrRecordNotFound = errors.New("vitals record not found")

// VitalsService stores and queries vitals records in MongoDB. Records are
// immutable: there is no update path, only create and delete.
type VitalsService struct {
	mongoDB *database.MongoDB
}

// NewVitalsService creates a new vitals service
func NewVitalsService(mongoDB *database.MongoDB) *VitalsService {
	return &VitalsService{mongoDB: mongoDB}
}

func (s *VitalsService) collection() *mongo.Collection {
	return s.mongoDB.Collection(database.CollectionVitalsRecords)
}

// Create validates and stores a new vitals record
func (s *VitalsService) Create(ctx context.Context, userID string, req *models.CreateVitalsRequest) (*models.VitalsRecord, error) {
	now := time.Now()

	timestamp := now
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	record := &models.VitalsRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		Timestamp:   timestamp,
		SystolicBP:  req.SystolicBP,
		DiastolicBP: req.DiastolicBP,
		HeartRate:   req.HeartRate,
		Weight:      req.Weight,
		Temperature: req.Temperature,
		Mood:        models.Mood(req.Mood),
		Notes:       req.Notes,
		CreatedAt:   now,
	}

	if err := record.Validate(now); err != nil {
		return nil, err
	}

	if _, err := s.collection().InsertOne(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to insert vitals record: %w", err)
	}

	if m := GetMetrics(); m != nil {
		m.VitalsRecordsCreated.Inc()
	}

	return record, nil
}

// GetRecentVitals returns up to limit records inside the window, ordered
// most-recent-first. limit <= 0 means no limit.
func (s *VitalsService) GetRecentVitals(ctx context.Context, userID string, windowDays, limit int) ([]models.VitalsRecord, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	filter := bson.M{
		"userId":    userID,
		"timestamp": bson.M{"$gte": cutoff},
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	return s.find(ctx, filter, opts)
}

// GetLatestVitals returns the count most recent records regardless of window
func (s *VitalsService) GetLatestVitals(ctx context.Context, userID string, count int) ([]models.VitalsRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(count))

	return s.find(ctx, bson.M{"userId": userID}, opts)
}

func (s *VitalsService) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.VitalsRecord, error) {
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query vitals records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.VitalsRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode vitals records: %w", err)
	}

	return records, nil
}

// Delete removes a record owned by the user
func (s *VitalsService) Delete(ctx context.Context, userID, recordID string) error {
	result, err := s.collection().DeleteOne(ctx, bson.M{"_id": recordID, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete vitals record: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrRecordNotFound
	}

	if m := GetMetrics(); m != nil {
		m.VitalsRecordsDeleted.Inc()
	}

	return nil
}

// DeleteOlderThan purges records with a timestamp before the cutoff.
// Used by the retention cleanup job.
func (s *VitalsService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.collection().DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge old vitals records: %w", err)
	}
	return result.DeletedCount, nil
}
