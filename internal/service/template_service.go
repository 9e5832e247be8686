package service

import (
	"context"
	"log/slog"
	"strings"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/repository"
)

// DeleteMode selects what happens to the instances of a deleted template.
type DeleteMode string

const (
	// DeleteAll purges every instance, completed ones included.
	DeleteAll DeleteMode = "all"
	// DeleteFuture soft-deletes pending instances from a cut-off day and keeps history.
	DeleteFuture DeleteMode = "future"
)

// TemplateInput carries the writable fields of a template.
type TemplateInput struct {
	Title       string
	Description string
	Rule        recurrence.Doc
	StartDate   recurrence.Date
	// GroupID makes the template group-owned. Ignored on update.
	GroupID *uint
	Active  *bool
}

// TemplateService writes templates and keeps their instances in step.
type TemplateService struct {
	templates    *repository.TemplateRepository
	groups       *repository.GroupRepository
	access       *Access
	materializer *Materializer
	advancer     *Advancer
	replicator   *GroupReplicator
	calendar     Calendar
	logger       *slog.Logger
}

func NewTemplateService(
	templates *repository.TemplateRepository,
	groups *repository.GroupRepository,
	access *Access,
	materializer *Materializer,
	advancer *Advancer,
	replicator *GroupReplicator,
	calendar Calendar,
	log *slog.Logger,
) *TemplateService {
	return &TemplateService{
		templates:    templates,
		groups:       groups,
		access:       access,
		materializer: materializer,
		advancer:     advancer,
		replicator:   replicator,
		calendar:     calendar,
		logger:       logger.OrDiscard(log),
	}
}

// Create stores a template and immediately materializes its first window.
// Completion-gated and single-occurrence templates get one initial instance.
func (s *TemplateService) Create(ctx context.Context, callerID uint, in TemplateInput) (*model.Template, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	rule, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	owner := model.UserOwner(callerID)
	if in.GroupID != nil {
		if *in.GroupID == 0 {
			return nil, apperr.InvalidArgument("group id is required")
		}
		owner = model.GroupOwner(*in.GroupID)
	}
	if err := s.access.CanManage(ctx, callerID, owner); err != nil {
		return nil, err
	}

	tpl := model.Template{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Rule:        recurrence.Encode(rule),
		StartDate:   in.StartDate,
		IsActive:    true,
	}
	if tpl.StartDate.IsZero() {
		tpl.StartDate = s.calendar.Today()
	}
	if in.Active != nil {
		tpl.IsActive = *in.Active
	}
	tpl.SetOwner(owner)

	if err := s.templates.Create(ctx, &tpl); err != nil {
		return nil, apperr.Internal("create template", err)
	}
	s.logger.Info("template created", "template_id", tpl.ID, "owner", owner.String(), "rule", rule.String())

	if err := s.populate(ctx, tpl, tpl.StartDate); err != nil {
		return &tpl, err
	}
	return &tpl, nil
}

// Update rewrites a template. Instances already materialized keep their rule
// snapshot; the current horizon is re-materialized under the new rule.
func (s *TemplateService) Update(ctx context.Context, callerID, templateID uint, in TemplateInput) (*model.Template, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if templateID == 0 {
		return nil, apperr.InvalidArgument("template id is required")
	}
	rule, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return nil, lookupErr(err, "template", templateID)
	}
	if err := s.access.CanManage(ctx, callerID, tpl.Owner()); err != nil {
		return nil, err
	}

	previous := tpl.Rule.Kind
	tpl.Title = strings.TrimSpace(in.Title)
	tpl.Description = strings.TrimSpace(in.Description)
	tpl.Rule = recurrence.Encode(rule)
	if !in.StartDate.IsZero() {
		tpl.StartDate = in.StartDate
	}
	if in.Active != nil {
		tpl.IsActive = *in.Active
	}
	if err := s.templates.Save(ctx, tpl); err != nil {
		return nil, apperr.Internal("save template", err)
	}

	if tpl.Rule.Kind == previous && !recurrence.IsRecurring(rule) {
		return tpl, nil
	}
	if tpl.Rule.Kind == previous && recurrence.IsCompletionGated(rule) {
		return tpl, nil
	}
	from := tpl.StartDate
	if today := s.calendar.Today(); from.Before(today) {
		from = today
	}
	if err := s.populate(ctx, *tpl, from); err != nil {
		return tpl, err
	}
	return tpl, nil
}

// Delete removes a template. DeleteAll purges every instance and the template;
// DeleteFuture soft-deletes pending instances on or after from and deactivates
// the template so no sweep brings them back.
func (s *TemplateService) Delete(ctx context.Context, callerID, templateID uint, mode DeleteMode, from recurrence.Date) (int64, error) {
	if err := requireCaller(callerID); err != nil {
		return 0, err
	}
	if templateID == 0 {
		return 0, apperr.InvalidArgument("template id is required")
	}
	if mode == "" {
		mode = DeleteFuture
	}
	if mode != DeleteAll && mode != DeleteFuture {
		return 0, apperr.InvalidArgument("unknown delete mode %q", mode)
	}
	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return 0, lookupErr(err, "template", templateID)
	}
	if err := s.access.CanManage(ctx, callerID, tpl.Owner()); err != nil {
		return 0, err
	}

	switch mode {
	case DeleteAll:
		n, err := s.replicator.PurgeAll(ctx, *tpl)
		if err != nil {
			return n, apperr.Internal("purge instances", err)
		}
		if err := s.templates.Delete(ctx, tpl.ID); err != nil {
			return n, apperr.Internal("delete template", err)
		}
		s.logger.Info("template deleted", "template_id", tpl.ID, "mode", mode, "purged", n)
		return n, nil
	default:
		if from.IsZero() {
			from = s.calendar.Today()
		}
		tpl.IsActive = false
		if err := s.templates.Save(ctx, tpl); err != nil {
			return 0, apperr.Internal("deactivate template", err)
		}
		n, err := s.replicator.SoftDeleteFrom(ctx, *tpl, from)
		if err != nil {
			return n, apperr.Internal("soft-delete instances", err)
		}
		s.logger.Info("template deleted", "template_id", tpl.ID, "mode", mode, "from", from.String(), "soft_deleted", n)
		return n, nil
	}
}

// Get returns a template the caller can read.
func (s *TemplateService) Get(ctx context.Context, callerID, templateID uint) (*model.Template, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return nil, lookupErr(err, "template", templateID)
	}
	if err := s.access.CanRead(ctx, callerID, tpl.Owner()); err != nil {
		return nil, err
	}
	return tpl, nil
}

// List returns the active templates of the caller and of every group they belong to.
func (s *TemplateService) List(ctx context.Context, callerID uint) ([]model.Template, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	groupIDs, err := s.groups.GroupIDsForUser(ctx, callerID)
	if err != nil {
		return nil, apperr.Internal("list groups", err)
	}
	templates, err := s.templates.ListActiveForOwners(ctx, callerID, groupIDs)
	if err != nil {
		return nil, apperr.Internal("list templates", err)
	}
	return templates, nil
}

// populate materializes the horizon of tpl, or creates the single instance a
// non-calendar rule starts with on day from.
func (s *TemplateService) populate(ctx context.Context, tpl model.Template, from recurrence.Date) error {
	if !tpl.IsActive {
		return nil
	}
	rule, err := tpl.DecodeRule()
	if err != nil {
		return apperr.Internal("decode template rule", err)
	}
	if recurrence.IsRecurring(rule) && !recurrence.IsCompletionGated(rule) {
		_, err := s.materializer.MaterializeHorizon(ctx, tpl)
		return err
	}
	first := tpl
	first.StartDate = from
	_, err = s.advancer.Bootstrap(ctx, first)
	return err
}

func validateInput(in TemplateInput) (recurrence.Rule, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.InvalidArgument("title is required")
	}
	rule, err := in.Rule.Decode()
	if err != nil {
		return nil, apperr.InvalidArgument("%v", err)
	}
	return rule, nil
}
