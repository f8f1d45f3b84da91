// Package recurrence computes the next trigger of a recurring timer.
// It is pure: no clock access, no I/O; the reference time is a parameter.
package recurrence

import (
	"strconv"
	"time"

	"github.com/Adilet2205/CRM_Reminders/internal/models"
)

// Config is the recurrence sub-record of a timer.
type Config struct {
	Enabled      bool
	Pattern      string
	Interval     int
	EndCondition string
	EndValue     string
}

// Result is the state a timer transitions to after one trigger.
// NextTrigger is nil exactly when Status is completed.
type Result struct {
	Status      string
	NextTrigger *time.Time
}

// Next computes the post-trigger status and next trigger time for a
// timer. triggerCount is the count before the current trigger is added.
//
// The interval is passed to date arithmetic as-is; callers are expected
// to have validated it at creation time.
func Next(cfg Config, triggerCount int, now time.Time) Result {
	if !cfg.Enabled {
		return Result{Status: models.TimerStatusCompleted}
	}

	candidate := advance(cfg.Pattern, cfg.Interval, now)
	if candidate == nil {
		// No valid next trigger: the timer cannot fire again.
		return Result{Status: models.TimerStatusCompleted}
	}

	switch cfg.EndCondition {
	case models.EndConditionAfterNTime:
		// A missing or malformed count parses as 0 and terminates
		// the timer after the current trigger.
		n, _ := strconv.Atoi(cfg.EndValue)
		if triggerCount+1 >= n {
			return Result{Status: models.TimerStatusCompleted}
		}
	case models.EndConditionUntilDate:
		if end, ok := parseEndDate(cfg.EndValue); ok && candidate.After(end) {
			return Result{Status: models.TimerStatusCompleted}
		}
	}

	return Result{Status: models.TimerStatusActive, NextTrigger: candidate}
}

// advance adds one recurrence step to now. Monthly steps use calendar
// month arithmetic: time.AddDate normalizes month-end overflow
// (Jan 31 + 1 month = Mar 2/3) rather than clamping.
func advance(pattern string, interval int, now time.Time) *time.Time {
	var next time.Time
	switch pattern {
	case models.RecurrenceDaily:
		next = now.AddDate(0, 0, interval)
	case models.RecurrenceWeekly:
		next = now.AddDate(0, 0, 7*interval)
	case models.RecurrenceMonthly:
		next = now.AddDate(0, interval, 0)
	default:
		return nil
	}
	return &next
}

// parseEndDate accepts RFC 3339 timestamps and bare dates. An
// unparseable value never terminates the timer.
func parseEndDate(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
