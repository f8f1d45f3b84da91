package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timer statuses. A completed timer is terminal and never fires again.
const (
	TimerStatusActive    = "active"
	TimerStatusCompleted = "completed"
)

// Recurrence patterns supported by the dispatch engine.
const (
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Recurrence end conditions.
const (
	EndConditionNone       = "none"
	EndConditionAfterNTime = "after_n_times"
	EndConditionUntilDate  = "until_date"
)

// Delivery channels. Every channel gets an in-app notification row;
// only "email" triggers external delivery.
const (
	ChannelEmail = "email"
	ChannelInApp = "in_app"
)

// Timer is a scheduled obligation attached to an arbitrary CRM entity
// (sale, contact, deal). Timers are created by the CRM surface and
// mutated afterwards only by the dispatch engine.
type Timer struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	EntityType     string               `bson:"entity_type" json:"entity_type"`
	EntityID       primitive.ObjectID   `bson:"entity_id" json:"entity_id"`
	TimerType      string               `bson:"timer_type" json:"timer_type"`
	Priority       string               `bson:"priority" json:"priority"` // e.g. "low", "medium", "high"
	ActionRequired string               `bson:"action_required" json:"action_required"`
	Description    string               `bson:"description,omitempty" json:"description,omitempty"`
	AssignedTo     primitive.ObjectID   `bson:"assigned_to" json:"assigned_to"`
	NotifyAlso     []primitive.ObjectID `bson:"notify_also,omitempty" json:"notify_also,omitempty"`
	Channels       []string             `bson:"channels,omitempty" json:"channels,omitempty"`
	Status         string               `bson:"status" json:"status"`

	RecurrenceEnabled      bool   `bson:"recurrence_enabled" json:"recurrence_enabled"`
	RecurrencePattern      string `bson:"recurrence_pattern,omitempty" json:"recurrence_pattern,omitempty"`
	RecurrenceInterval     int    `bson:"recurrence_interval,omitempty" json:"recurrence_interval,omitempty"`
	RecurrenceEndCondition string `bson:"recurrence_end_condition,omitempty" json:"recurrence_end_condition,omitempty"`
	RecurrenceEndValue     string `bson:"recurrence_end_value,omitempty" json:"recurrence_end_value,omitempty"`

	TriggerCount  int        `bson:"trigger_count" json:"trigger_count"`
	NextTrigger   *time.Time `bson:"next_trigger" json:"next_trigger"`
	LastTriggered *time.Time `bson:"last_triggered,omitempty" json:"last_triggered,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Recipients returns assigned_to followed by notify_also. Duplicate ids
// are kept as listed; each listed id gets its own notification row.
func (t *Timer) Recipients() []primitive.ObjectID {
	recipients := make([]primitive.ObjectID, 0, len(t.NotifyAlso)+1)
	recipients = append(recipients, t.AssignedTo)
	recipients = append(recipients, t.NotifyAlso...)
	return recipients
}

// HasChannel reports whether the timer requests delivery on the given channel.
func (t *Timer) HasChannel(channel string) bool {
	for _, c := range t.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// TimerState is the per-run state transition persisted by the dispatch
// engine: a single update keyed by timer id.
type TimerState struct {
	Status        string
	NextTrigger   *time.Time
	LastTriggered time.Time
	TriggerCount  int
}
