// Package jobs contains the recurring timer dispatch engine: the
// scheduled run that scans due timers, fans out notifications and
// advances each timer's recurrence state.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adilet2205/CRM_Reminders/internal/models"
	"github.com/Adilet2205/CRM_Reminders/internal/recurrence"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimerStore is the slice of the record store the dispatcher needs.
type TimerStore interface {
	GetDueTimers(ctx context.Context, now time.Time) ([]models.Timer, error)
	UpdateTimerState(ctx context.Context, id primitive.ObjectID, state models.TimerState) error
}

// NotificationStore creates the in-app rows for one trigger.
type NotificationStore interface {
	CreateNotifications(ctx context.Context, notifs []models.Notification) error
}

// UserDirectory resolves recipient ids to user records.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// EmailSender is the outbound delivery channel. Send failures are
// per-recipient and never abort a timer's processing.
type EmailSender interface {
	Send(to, subject, body string) error
}

// Summary aggregates one dispatch run.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// TimerDispatcher processes all due timers of one run, each timer
// concurrently and independently of the others.
type TimerDispatcher struct {
	timers        TimerStore
	notifications NotificationStore
	users         UserDirectory
	mail          EmailSender

	now func() time.Time
}

// NewTimerDispatcher creates a new instance of TimerDispatcher.
func NewTimerDispatcher(timers TimerStore, notifications NotificationStore, users UserDirectory, mail EmailSender) *TimerDispatcher {
	return &TimerDispatcher{
		timers:        timers,
		notifications: notifications,
		users:         users,
		mail:          mail,
		now:           time.Now,
	}
}

// ProcessDueTimers runs one dispatch batch. A failure of the due-timer
// query is fatal and returns an error with no timers touched; failures
// of individual timers only show up in the summary counts. The run
// waits for every per-timer task to settle.
func (d *TimerDispatcher) ProcessDueTimers(ctx context.Context) (*Summary, error) {
	now := d.now()

	timers, err := d.timers.GetDueTimers(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due timers: %w", err)
	}

	summary := &Summary{Total: len(timers)}
	if len(timers) == 0 {
		return summary, nil
	}

	logrus.WithField("count", len(timers)).Info("Processing due timers")

	results := make(chan error, len(timers))
	var wg sync.WaitGroup
	for _, timer := range timers {
		wg.Add(1)
		go func(t models.Timer) {
			defer wg.Done()
			results <- d.ProcessTimer(ctx, &t, now)
		}(timer)
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			summary.Failed++
		} else {
			summary.Successful++
		}
	}

	logrus.WithFields(logrus.Fields{
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}).Info("Timer dispatch run completed")

	return summary, nil
}

// ProcessTimer handles one due timer: notification fan-out, optional
// email delivery, recurrence advancement and the single state update.
//
// The order is fixed. Notification rows are created before anything
// else; if that insert fails the timer is left untouched so it stays
// eligible for the next run. Email trouble is logged and swallowed.
// The state update always runs once notifications exist, so the
// trigger count advances regardless of delivery outcome.
func (d *TimerDispatcher) ProcessTimer(ctx context.Context, timer *models.Timer, now time.Time) error {
	recipients := timer.Recipients()

	notifs := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		notifs = append(notifs, models.Notification{
			TimerID:    timer.ID,
			UserID:     userID,
			Title:      notificationTitle(timer),
			Message:    notificationMessage(timer),
			Priority:   timer.Priority,
			EntityType: timer.EntityType,
			EntityID:   timer.EntityID,
			Read:       false,
		})
	}

	if err := d.notifications.CreateNotifications(ctx, notifs); err != nil {
		logrus.WithFields(logrus.Fields{
			"timerID": timer.ID.Hex(),
			"error":   err,
		}).Error("Failed to create notifications for timer")
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	if timer.HasChannel(models.ChannelEmail) {
		d.deliverEmails(ctx, timer, recipients)
	}

	result := recurrence.Next(recurrence.Config{
		Enabled:      timer.RecurrenceEnabled,
		Pattern:      timer.RecurrencePattern,
		Interval:     timer.RecurrenceInterval,
		EndCondition: timer.RecurrenceEndCondition,
		EndValue:     timer.RecurrenceEndValue,
	}, timer.TriggerCount, now)

	state := models.TimerState{
		Status:        result.Status,
		NextTrigger:   result.NextTrigger,
		LastTriggered: now,
		TriggerCount:  timer.TriggerCount + 1,
	}
	if err := d.timers.UpdateTimerState(ctx, timer.ID, state); err != nil {
		logrus.WithFields(logrus.Fields{
			"timerID": timer.ID.Hex(),
			"error":   err,
		}).Error("Failed to update timer state")
		return fmt.Errorf("failed to update timer state: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"timerID":      timer.ID.Hex(),
		"status":       state.Status,
		"triggerCount": state.TriggerCount,
	}).Info("Timer processed")
	return nil
}

// deliverEmails attempts delivery to every recipient independently.
// A directory failure skips all email for this timer; a send failure
// skips only that recipient. Nothing here propagates to the caller.
func (d *TimerDispatcher) deliverEmails(ctx context.Context, timer *models.Timer, recipients []primitive.ObjectID) {
	users, err := d.users.GetUsersByIDs(ctx, recipients)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"timerID": timer.ID.Hex(),
			"error":   err,
		}).Warn("Failed to resolve email recipients, skipping email delivery")
		return
	}

	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	subject := notificationTitle(timer)
	body := notificationMessage(timer)

	for _, userID := range recipients {
		user, ok := byID[userID]
		if !ok || user.Email == "" {
			logrus.WithFields(logrus.Fields{
				"timerID": timer.ID.Hex(),
				"userID":  userID.Hex(),
			}).Warn("No email address for recipient, skipping")
			continue
		}

		if err := d.mail.Send(user.Email, subject, body); err != nil {
			logrus.WithFields(logrus.Fields{
				"timerID": timer.ID.Hex(),
				"userID":  userID.Hex(),
				"error":   err,
			}).Warn("Failed to send timer email")
		}
	}
}

func notificationTitle(timer *models.Timer) string {
	return fmt.Sprintf("%s: %s", strings.ToUpper(timer.Priority), timer.ActionRequired)
}

func notificationMessage(timer *models.Timer) string {
	if timer.Description != "" {
		return timer.Description
	}
	return timer.ActionRequired
}
