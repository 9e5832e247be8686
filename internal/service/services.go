package service

import (
	"log/slog"

	"gorm.io/gorm"

	"shared-planner/internal/push"
	"shared-planner/internal/repository"
)

// Services is the wired set of services one process runs.
type Services struct {
	Users        *repository.UserRepository
	Calendar     Calendar
	Access       *Access
	Replicator   *GroupReplicator
	Materializer *Materializer
	Advancer     *Advancer
	Delivery     *Delivery
	Events       *TaskEvents
	Generation   *GenerationService
	Templates    *TemplateService
	Tasks        *TaskService
	Groups       *GroupService
	Views        *CalendarService
	Reminders    *ReminderService
}

// New wires every service on top of db. A nil notifier disables push delivery.
func New(db *gorm.DB, notifier push.Notifier, calendar Calendar, log *slog.Logger) *Services {
	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	templates := repository.NewTemplateRepository(db)
	tasks := repository.NewTaskRepository(db)

	access := NewAccess(groups)
	replicator := NewGroupReplicator(groups, tasks, log)
	materializer := NewMaterializer(tasks, replicator, calendar, log)
	advancer := NewAdvancer(templates, tasks, replicator, calendar, log)
	delivery := NewDelivery(users, notifier, log)
	events := NewTaskEvents(advancer, replicator, users, delivery, log)

	return &Services{
		Users:        users,
		Calendar:     calendar,
		Access:       access,
		Replicator:   replicator,
		Materializer: materializer,
		Advancer:     advancer,
		Delivery:     delivery,
		Events:       events,
		Generation:   NewGenerationService(templates, access, materializer, log),
		Templates:    NewTemplateService(templates, groups, access, materializer, advancer, replicator, calendar, log),
		Tasks:        NewTaskService(tasks, access, replicator, advancer, events, calendar, log),
		Groups:       NewGroupService(groups, users, access, log),
		Views:        NewCalendarService(templates, tasks, groups, calendar),
		Reminders:    NewReminderService(users, groups, tasks, delivery, calendar, log),
	}
}
