package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Adilet2205/CRM_Reminders/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TimerRepository handles database operations related to timers.
type TimerRepository struct {
	collection *mongo.Collection
}

// NewTimerRepository creates a new instance of TimerRepository.
func NewTimerRepository(db *mongo.Database) *TimerRepository {
	return &TimerRepository{
		collection: db.Collection("timers"),
	}
}

// CreateTimer inserts a new timer.
func (r *TimerRepository) CreateTimer(ctx context.Context, timer *models.Timer) (*models.Timer, error) {
	timer.CreatedAt = time.Now()
	timer.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, timer)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert timer")
		return nil, fmt.Errorf("failed to insert timer: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	timer.ID = insertedID

	logrus.WithField("timerID", timer.ID.Hex()).Info("Timer inserted successfully")
	return timer, nil
}

// GetTimerByID retrieves a timer by its ID.
func (r *TimerRepository) GetTimerByID(ctx context.Context, id primitive.ObjectID) (*models.Timer, error) {
	var timer models.Timer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&timer)
	if err != nil {
		return nil, fmt.Errorf("failed to find timer by id: %v", err)
	}
	return &timer, nil
}

// GetTimersByEntity returns all timers attached to a CRM entity,
// newest first.
func (r *TimerRepository) GetTimersByEntity(ctx context.Context, entityType string, entityID primitive.ObjectID) ([]models.Timer, error) {
	filter := bson.M{
		"entity_type": entityType,
		"entity_id":   entityID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timers: %v", err)
	}
	defer cursor.Close(ctx)

	var timers []models.Timer
	if err := cursor.All(ctx, &timers); err != nil {
		return nil, fmt.Errorf("failed to decode timers: %v", err)
	}
	return timers, nil
}

// GetDueTimers returns every active timer whose next_trigger is at or
// before now. This is the run-eligibility query of the dispatch engine.
func (r *TimerRepository) GetDueTimers(ctx context.Context, now time.Time) ([]models.Timer, error) {
	filter := bson.M{
		"status":       models.TimerStatusActive,
		"next_trigger": bson.M{"$lte": now},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due timers: %v", err)
	}
	defer cursor.Close(ctx)

	var timers []models.Timer
	if err := cursor.All(ctx, &timers); err != nil {
		return nil, fmt.Errorf("failed to decode due timers: %v", err)
	}
	return timers, nil
}

// UpdateTimerState persists the post-trigger state transition in a
// single update keyed by timer id.
func (r *TimerRepository) UpdateTimerState(ctx context.Context, id primitive.ObjectID, state models.TimerState) error {
	update := bson.M{"$set": bson.M{
		"status":         state.Status,
		"next_trigger":   state.NextTrigger,
		"last_triggered": state.LastTriggered,
		"trigger_count":  state.TriggerCount,
		"updated_at":     time.Now(),
	}}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"timerID": id.Hex(),
			"error":   err,
		}).Error("Failed to update timer state")
		return fmt.Errorf("failed to update timer state: %v", err)
	}
	return nil
}

// UpdateTimer applies a partial update to a timer's own fields.
func (r *TimerRepository) UpdateTimer(ctx context.Context, id primitive.ObjectID, update map[string]interface{}) error {
	update["updated_at"] = time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update timer: %v", err)
	}
	return nil
}

// DeleteTimer deletes a timer.
func (r *TimerRepository) DeleteTimer(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete timer: %v", err)
	}
	return nil
}
