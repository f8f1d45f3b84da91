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

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// CreateNotifications inserts all rows for one timer trigger in a
// single batched insert. Either every row is handed to the store or
// the whole batch fails.
func (r *NotificationRepository) CreateNotifications(ctx context.Context, notifs []models.Notification) error {
	if len(notifs) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(notifs))
	now := time.Now()
	for i := range notifs {
		notifs[i].CreatedAt = now
		docs = append(docs, notifs[i])
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notifications")
		return fmt.Errorf("failed to create notifications: %v", err)
	}
	return nil
}

// GetUserNotifications returns all notifications for a user, newest first.
func (r *NotificationRepository) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %v", err)
	}
	return notifications, nil
}

// MarkAsRead sets notification's Read to true.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"read": true}})
	return err
}

// DeleteNotification deletes a notification.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
