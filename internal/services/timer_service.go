package services

import (
	"context"
	"fmt"

	"github.com/Adilet2205/CRM_Reminders/internal/models"
	"github.com/Adilet2205/CRM_Reminders/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimerService encapsulates the business logic for timer operations.
// Processing of due timers lives in the jobs package; this service
// only covers the CRM-facing lifecycle (create, read, update, complete).
type TimerService struct {
	repo *repository.TimerRepository
}

// NewTimerService creates a new instance of TimerService.
func NewTimerService(repo *repository.TimerRepository) *TimerService {
	return &TimerService{
		repo: repo,
	}
}

var validPatterns = map[string]bool{
	models.RecurrenceDaily:   true,
	models.RecurrenceWeekly:  true,
	models.RecurrenceMonthly: true,
}

// CreateTimer validates and stores a new timer. Timers always start
// active with a zero trigger count.
func (s *TimerService) CreateTimer(ctx context.Context, timer *models.Timer) (*models.Timer, error) {
	if timer.ActionRequired == "" {
		return nil, fmt.Errorf("action_required is required")
	}
	if timer.AssignedTo.IsZero() {
		return nil, fmt.Errorf("assigned_to is required")
	}
	if timer.NextTrigger == nil {
		return nil, fmt.Errorf("next_trigger is required")
	}

	if timer.RecurrenceEnabled {
		if !validPatterns[timer.RecurrencePattern] {
			return nil, fmt.Errorf("invalid recurrence pattern %q", timer.RecurrencePattern)
		}
		if timer.RecurrenceInterval < 0 {
			return nil, fmt.Errorf("recurrence interval must be positive")
		}
		if timer.RecurrenceInterval == 0 {
			timer.RecurrenceInterval = 1
		}
	}

	timer.Status = models.TimerStatusActive
	timer.TriggerCount = 0
	timer.LastTriggered = nil

	created, err := s.repo.CreateTimer(ctx, timer)
	if err != nil {
		logrus.WithError(err).Error("Failed to create timer")
		return nil, fmt.Errorf("failed to create timer: %v", err)
	}
	return created, nil
}

// GetTimer fetches a single timer by id.
func (s *TimerService) GetTimer(ctx context.Context, id primitive.ObjectID) (*models.Timer, error) {
	return s.repo.GetTimerByID(ctx, id)
}

// GetTimersByEntity lists all timers attached to a CRM entity.
func (s *TimerService) GetTimersByEntity(ctx context.Context, entityType string, entityID primitive.ObjectID) ([]models.Timer, error) {
	return s.repo.GetTimersByEntity(ctx, entityType, entityID)
}

// UpdateTimer applies a partial update to a timer's own fields. The
// dispatch state fields are owned by the engine and cannot be set here.
func (s *TimerService) UpdateTimer(ctx context.Context, id primitive.ObjectID, update map[string]interface{}) error {
	for _, reserved := range []string{"status", "trigger_count", "next_trigger", "last_triggered"} {
		delete(update, reserved)
	}
	if len(update) == 0 {
		return fmt.Errorf("no updatable fields provided")
	}
	return s.repo.UpdateTimer(ctx, id, update)
}

// CompleteTimer marks a timer completed so it never fires again.
func (s *TimerService) CompleteTimer(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.UpdateTimer(ctx, id, map[string]interface{}{
		"status":       models.TimerStatusCompleted,
		"next_trigger": nil,
	})
}

// DeleteTimer removes a timer entirely.
func (s *TimerService) DeleteTimer(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.DeleteTimer(ctx, id)
}
