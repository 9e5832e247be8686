package service

import (
	"context"
	"log/slog"

	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/push"
	"shared-planner/internal/repository"
)

// ReminderService builds the daily summaries pushed by the hourly triggers.
type ReminderService struct {
	users    *repository.UserRepository
	groups   *repository.GroupRepository
	tasks    *repository.TaskRepository
	delivery *Delivery
	calendar Calendar
	logger   *slog.Logger
}

func NewReminderService(users *repository.UserRepository, groups *repository.GroupRepository, tasks *repository.TaskRepository, delivery *Delivery, calendar Calendar, log *slog.Logger) *ReminderService {
	return &ReminderService{
		users:    users,
		groups:   groups,
		tasks:    tasks,
		delivery: delivery,
		calendar: calendar,
		logger:   logger.OrDiscard(log),
	}
}

// DailySummary counts the caller's open tasks due today and overdue, group tasks included.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, hour int) (push.DailySummary, error) {
	groupIDs, err := s.groups.GroupIDsForUser(ctx, user.ID)
	if err != nil {
		return push.DailySummary{}, err
	}
	today, overdue, err := s.tasks.CountDue(ctx, user.ID, groupIDs, s.calendar.Today())
	if err != nil {
		return push.DailySummary{}, err
	}
	return push.DailySummary{Hour: hour, TodayCount: today, OverdueCount: overdue}, nil
}

// SendHourlySummaries pushes a summary to every user who asked for one at hour.
// It returns how many were delivered.
func (s *ReminderService) SendHourlySummaries(ctx context.Context, hour int) (int, error) {
	users, err := s.users.ListByNotifyHour(ctx, hour)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, user := range users {
		summary, err := s.DailySummary(ctx, user, hour)
		if err != nil {
			s.logger.Error("build daily summary", "user_id", user.ID, "hour", hour, "err", err)
			continue
		}
		if s.delivery.Deliver(ctx, user, summary) {
			sent++
		}
	}
	s.logger.Info("hourly summaries sent", "hour", hour, "users", len(users), "sent", sent)
	return sent, nil
}
