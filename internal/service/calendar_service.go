package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"shared-planner/internal/apperr"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/repository"
)

// maxViewDays caps how far a single calendar request may reach.
const maxViewDays = 370

// viewSource loads one independent slice of a merged view.
type viewSource func(ctx context.Context) (sourceResult, error)

type sourceResult struct {
	persisted []model.Task
	virtual   []VirtualInstance
}

// mergeSources runs every source concurrently under one cancellable context.
// Each source writes only its own slot; the first failure cancels the rest.
func mergeSources(ctx context.Context, sources ...viewSource) ([]model.Task, []VirtualInstance, error) {
	results := make([]sourceResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := src(gctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var persisted []model.Task
	var virtual []VirtualInstance
	for _, res := range results {
		persisted = append(persisted, res.persisted...)
		virtual = append(virtual, res.virtual...)
	}
	return persisted, virtual, nil
}

// CalendarService builds the merged view a client renders: persisted instances
// of the caller and their groups, extended by virtual instances past the horizon.
type CalendarService struct {
	templates *repository.TemplateRepository
	tasks     *repository.TaskRepository
	groups    *repository.GroupRepository
	calendar  Calendar
}

func NewCalendarService(templates *repository.TemplateRepository, tasks *repository.TaskRepository, groups *repository.GroupRepository, calendar Calendar) *CalendarService {
	return &CalendarService{templates: templates, tasks: tasks, groups: groups, calendar: calendar}
}

// DefaultWindow is [today, today+30].
func (s *CalendarService) DefaultWindow() recurrence.Window {
	return recurrence.HorizonWindow(s.calendar.Today(), 30)
}

// View returns the merged entries of callerID for window.
func (s *CalendarService) View(ctx context.Context, callerID uint, window recurrence.Window) ([]Entry, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if !window.Valid() {
		return nil, apperr.InvalidArgument("invalid window")
	}
	if window.Days() > maxViewDays {
		return nil, apperr.InvalidArgument("window may span at most %d days", maxViewDays)
	}

	groupIDs, err := s.groups.GroupIDsForUser(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("list groups", err)
	}

	sources := []viewSource{s.ownerSource(model.UserOwner(callerID), window)}
	for _, groupID := range groupIDs {
		sources = append(sources, s.ownerSource(model.GroupOwner(groupID), window))
	}
	sources = append(sources, s.projectionSource(callerID, groupIDs, window))

	persisted, virtual, err := mergeSources(ctx, sources...)
	if err != nil {
		return nil, apperr.Internal("build calendar view", err)
	}
	return Merge(persisted, virtual), nil
}

func (s *CalendarService) ownerSource(owner model.Owner, window recurrence.Window) viewSource {
	return func(ctx context.Context) (sourceResult, error) {
		tasks, err := s.tasks.ListVisible(ctx, owner, window)
		if err != nil {
			return sourceResult{}, err
		}
		return sourceResult{persisted: tasks}, nil
	}
}

func (s *CalendarService) projectionSource(callerID uint, groupIDs []uint, window recurrence.Window) viewSource {
	horizonEnd := s.calendar.Horizon().End
	return func(ctx context.Context) (sourceResult, error) {
		projection, ok := beyondHorizon(window, horizonEnd)
		if !ok {
			return sourceResult{}, nil
		}
		templates, err := s.templates.ListActiveForOwners(ctx, callerID, groupIDs)
		if err != nil {
			return sourceResult{}, err
		}
		ids := make([]uint, len(templates))
		for i, tpl := range templates {
			ids[i] = tpl.ID
		}
		occupied, err := s.tasks.OccupiedByTemplate(ctx, ids, projection)
		if err != nil {
			return sourceResult{}, err
		}
		return sourceResult{virtual: Project(templates, window, horizonEnd, occupied)}, nil
	}
}
