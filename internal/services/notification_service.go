package services

import (
	"context"

	"github.com/Adilet2205/CRM_Reminders/internal/models"
	"github.com/Adilet2205/CRM_Reminders/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService covers the inbox surface used by the CRM UI.
// Rows themselves are created by the dispatch engine.
type NotificationService struct {
	repo *repository.NotificationRepository
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{
		repo: repo,
	}
}

// GetUserNotifications returns all notifications for a user.
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.repo.GetUserNotifications(ctx, userID)
}

// MarkNotificationAsRead sets the "read" status of a notification to true.
func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, notifID primitive.ObjectID) error {
	return s.repo.MarkAsRead(ctx, notifID)
}

// DeleteNotification deletes a specific notification.
func (s *NotificationService) DeleteNotification(ctx context.Context, notifID primitive.ObjectID) error {
	return s.repo.DeleteNotification(ctx, notifID)
}
