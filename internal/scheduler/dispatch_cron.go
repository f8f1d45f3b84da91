package cron

import (
	"context"

	"github.com/Adilet2205/CRM_Reminders/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartDispatchCron runs the timer dispatch batch on the given cron
// spec. The HTTP endpoint remains available as an on-demand trigger.
func StartDispatchCron(dispatcher *jobs.TimerDispatcher, spec string) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		summary, err := dispatcher.ProcessDueTimers(context.Background())
		if err != nil {
			logrus.WithError(err).Error("Scheduled timer dispatch failed")
			return
		}
		if summary.Total > 0 {
			logrus.WithFields(logrus.Fields{
				"total":      summary.Total,
				"successful": summary.Successful,
				"failed":     summary.Failed,
			}).Info("Scheduled timer dispatch finished")
		}
	})
	if err != nil {
		logrus.WithError(err).Errorf("Invalid dispatch cron spec %q", spec)
		return
	}

	c.Start()
}
