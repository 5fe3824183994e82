package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// tickTimeout bounds one full dispatch sweep.
const tickTimeout = 50 * time.Second

// DigestService sends the daily and weekly email digests. A cron job fires
// every minute and matches each preference's configured local time against
// the wall clock in that user's timezone, so users in different zones get
// their digest at their own 08:00.
type DigestService struct {
	notificationRepo ports.NotificationRepository
	taskRepo         ports.TaskRepository
	userRepo         ports.UserRepository
	mailer           ports.Mailer
	cron             *cron.Cron
	logger           *logger.Logger
	now              func() time.Time
}

// NewDigestService creates a new digest dispatcher
func NewDigestService(notificationRepo ports.NotificationRepository, taskRepo ports.TaskRepository, userRepo ports.UserRepository, mailer ports.Mailer, logger *logger.Logger) *DigestService {
	return &DigestService{
		notificationRepo: notificationRepo,
		taskRepo:         taskRepo,
		userRepo:         userRepo,
		mailer:           mailer,
		cron:             cron.New(),
		logger:           logger,
		now:              time.Now,
	}
}

// Start schedules the minutely dispatch sweep and starts the cron runner.
func (s *DigestService) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.tick); err != nil {
		return fmt.Errorf("failed to schedule digest job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Email digest dispatcher started")
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (s *DigestService) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Email digest dispatcher stopped")
}

func (s *DigestService) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	prefs, err := s.notificationRepo.ListEmailEnabled(ctx)
	if err != nil {
		s.logger.Error("Failed to list digest subscribers", "error", err)
		return
	}

	now := s.now()
	for _, pref := range prefs {
		user, err := s.userRepo.GetByID(ctx, pref.UserID)
		if err != nil {
			s.logger.Warn("Digest subscriber has no user row", "error", err, "user_id", pref.UserID)
			continue
		}

		local := now.In(user.Location())
		hhmm := local.Format("15:04")

		if pref.DailyEmail && pref.DailyEmailTime == hhmm {
			s.send(ctx, user, "Your tasks for today", local)
		}
		if pref.WeeklyEmail && int(local.Weekday()) == pref.WeeklyEmailDay && pref.WeeklyEmailTime == hhmm {
			s.send(ctx, user, "Your week ahead", local)
		}
	}
}

// send builds the pending-task digest for the user's current day and hands it
// to the mailer. Delivery failures are logged, never retried.
func (s *DigestService) send(ctx context.Context, user *entities.User, subject string, local time.Time) {
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	tasks, err := s.taskRepo.ListDueBetween(ctx, user.ID, dayStart, dayEnd)
	if err != nil {
		s.logger.Error("Failed to build digest", "error", err, "user_id", user.ID)
		return
	}

	entities.OrderForToday(tasks)

	if err := s.mailer.Send(ctx, user.Email, subject, renderDigest(user.Name, tasks)); err != nil {
		s.logger.Error("Failed to send digest email", "error", err, "user_id", user.ID)
		return
	}

	s.logger.Info("Digest email sent", "user_id", user.ID, "tasks", len(tasks))
}

func renderDigest(name string, tasks []*entities.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)

	if len(tasks) == 0 {
		b.WriteString("Nothing on your plate today. Enjoy!\n")
		return b.String()
	}

	fmt.Fprintf(&b, "You have %d task(s) due today:\n\n", len(tasks))
	for _, task := range tasks {
		line := fmt.Sprintf("- [%s] %s", task.Priority, task.Title)
		if task.DueTime != nil {
			line += " at " + *task.DueTime
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}
