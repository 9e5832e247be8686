package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/repository"
)

// GenerationService exposes the materialization entry points to authenticated callers.
type GenerationService struct {
	templates    *repository.TemplateRepository
	access       *Access
	materializer *Materializer
	logger       *slog.Logger
}

func NewGenerationService(templates *repository.TemplateRepository, access *Access, materializer *Materializer, log *slog.Logger) *GenerationService {
	return &GenerationService{
		templates:    templates,
		access:       access,
		materializer: materializer,
		logger:       logger.OrDiscard(log),
	}
}

// GenerateUserTasks materializes every active individual template of the caller.
func (s *GenerationService) GenerateUserTasks(ctx context.Context, callerID uint) (int, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	templates, err := s.templates.ListActiveByOwner(ctx, model.UserOwner(callerID))
	if err != nil {
		return 0, apperr.Internal("list templates", err)
	}
	return s.materializeAll(ctx, templates)
}

// GenerateTasksForTemplate materializes one template. Individual templates
// require the caller to be the owner; group templates require a managing role.
func (s *GenerationService) GenerateTasksForTemplate(ctx context.Context, callerID, templateID uint) (int, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	if templateID == 0 {
		return 0, apperr.InvalidArgument("template id is required")
	}
	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return 0, lookupErr(err, "template", templateID)
	}
	if err := s.access.CanManage(ctx, callerID, tpl.Owner()); err != nil {
		return 0, err
	}
	return s.materializeAll(ctx, []model.Template{*tpl})
}

// GenerateGroupTasks materializes every active template of a group the caller belongs to.
func (s *GenerationService) GenerateGroupTasks(ctx context.Context, callerID, groupID uint) (int, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	if groupID == 0 {
		return 0, apperr.InvalidArgument("group id is required")
	}
	if err := s.access.RequireMember(ctx, groupID, callerID); err != nil {
		return 0, err
	}
	templates, err := s.templates.ListActiveByOwner(ctx, model.GroupOwner(groupID))
	if err != nil {
		return 0, apperr.Internal("list templates", err)
	}
	return s.materializeAll(ctx, templates)
}

// Sweep materializes every active template in the store. Failures of single
// templates are logged and joined; the remaining templates still run.
func (s *GenerationService) Sweep(ctx context.Context) (int, error) {
	started := time.Now()
	templates, err := s.templates.ListActive(ctx)
	if err != nil {
		return 0, apperr.Internal("list templates", err)
	}

	var (
		total int
		errs  []error
	)
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.materializer.MaterializeHorizon(ctx, tpl)
		total += len(res.Created)
		if err != nil {
			s.logger.Error("sweep template failed", "template_id", tpl.ID, "owner", tpl.Owner().String(), "err", err)
			errs = append(errs, err)
		}
	}
	s.logger.Info("sweep finished",
		"templates", len(templates),
		"created", total,
		"failed", len(errs),
		"duration", time.Since(started).String(),
	)
	return total, errors.Join(errs...)
}

// materializeAll stops at the first failing template. Instances committed
// before the failure stay; a retry converges.
func (s *GenerationService) materializeAll(ctx context.Context, templates []model.Template) (int, error) {
	total := 0
	for _, tpl := range templates {
		res, err := s.materializer.MaterializeHorizon(ctx, tpl)
		total += len(res.Created)
		if err != nil {
			s.logger.Error("generation failed", "template_id", tpl.ID, "owner", tpl.Owner().String(), "created", total, "err", err)
			return total, err
		}
	}
	return total, nil
}
