package reminder

import (
	"context"
	"fmt"
	"time"

	"fieldreport/internal/notify"
	"fieldreport/pkg/types"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// UserSource lists technician accounts that have not opted out of reminders.
type UserSource interface {
	UsersWithReminders(ctx context.Context) ([]*types.User, error)
}

// Job sends the end-of-day submission reminder to every opted-in technician
// with a phone number. One recipient's delivery failure never aborts the
// batch.
type Job struct {
	users   UserSource
	gateway notify.Gateway
	logger  *logrus.Logger
	timeout time.Duration
}

func NewJob(users UserSource, gateway notify.Gateway, logger *logrus.Logger) *Job {
	return &Job{
		users:   users,
		gateway: gateway,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
}

// Run executes one reminder batch. It shares the user store read-only with
// concurrent request traffic and takes no locks; an opt-out flipped mid-run
// may or may not take effect for that run.
func (j *Job) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	users, err := j.users.UsersWithReminders(ctx)
	if err != nil {
		j.logger.WithError(err).Error("reminder job failed to load users")
		return
	}

	if len(users) == 0 {
		j.logger.Info("reminder job found no opted-in users")
		return
	}

	sent := 0
	for _, user := range users {
		if user.Phone == "" {
			continue
		}

		message := fmt.Sprintf(
			"Hi %s, this is a reminder to submit your task reports, images and task sketches for today before closing. Thank you!",
			user.Name,
		)

		if err := j.gateway.SendSMS(ctx, user.Phone, message); err != nil {
			j.logger.WithError(err).WithField("user", user.Email).Warn("failed to send reminder")
			continue
		}
		sent++
	}

	j.logger.WithFields(logrus.Fields{
		"candidates": len(users),
		"sent":       sent,
	}).Info("reminder batch completed")
}

// Schedule registers the job on a cron evaluated in the named time zone,
// never the host's local zone. The returned cron is already started.
func Schedule(spec, timezone string, job *Job, logger *logrus.Logger) (*cron.Cron, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder time zone %q: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(location))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder job: %w", err)
	}

	c.Start()
	logger.WithFields(logrus.Fields{
		"schedule": spec,
		"timezone": timezone,
	}).Info("reminder job scheduled")

	return c, nil
}
