package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shared-planner/internal/apperr"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/service"
)

type handlers struct {
	svc *service.Services
	log *slog.Logger
}

type generateResponse struct {
	TasksCreated int `json:"tasksCreated"`
}

type templateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Rule        recurrence.Doc  `json:"rule"`
	StartDate   recurrence.Date `json:"startDate"`
	GroupID     *uint           `json:"groupId"`
	Active      *bool           `json:"active"`
}

func (r templateRequest) input() service.TemplateInput {
	return service.TemplateInput{
		Title:       r.Title,
		Description: r.Description,
		Rule:        r.Rule,
		StartDate:   r.StartDate,
		GroupID:     r.GroupID,
		Active:      r.Active,
	}
}

type templateResponse struct {
	ID           uint            `json:"id"`
	OwnerUserID  *uint           `json:"ownerUserId"`
	OwnerGroupID *uint           `json:"ownerGroupId"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Rule         recurrence.Doc  `json:"rule"`
	StartDate    recurrence.Date `json:"startDate"`
	IsActive     bool            `json:"isActive"`
}

func toTemplateResponse(t *model.Template) templateResponse {
	return templateResponse{
		ID:           t.ID,
		OwnerUserID:  t.OwnerUserID,
		OwnerGroupID: t.OwnerGroupID,
		Title:        t.Title,
		Description:  t.Description,
		Rule:         t.Rule,
		StartDate:    t.StartDate,
		IsActive:     t.IsActive,
	}
}

type taskRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ScheduledDate recurrence.Date `json:"scheduledDate"`
	GroupID       *uint           `json:"groupId"`
}

type taskResponse struct {
	ID                  uint            `json:"id"`
	TemplateID          *uint           `json:"templateId"`
	OwnerUserID         *uint           `json:"ownerUserId"`
	OwnerGroupID        *uint           `json:"ownerGroupId"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	ScheduledDate       recurrence.Date `json:"scheduledDate"`
	CompletedAt         *time.Time      `json:"completedAt"`
	CompletedByMemberID *uint           `json:"completedByMemberId"`
	IsDeleted           bool            `json:"isDeleted"`
	RuleSnapshot        recurrence.Doc  `json:"ruleSnapshot"`
	State               model.TaskState `json:"state"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:                  t.ID,
		TemplateID:          t.TemplateID,
		OwnerUserID:         t.OwnerUserID,
		OwnerGroupID:        t.OwnerGroupID,
		Title:               t.Title,
		Description:         t.Description,
		ScheduledDate:       t.ScheduledDate,
		CompletedAt:         t.CompletedAt,
		CompletedByMemberID: t.CompletedByMemberID,
		IsDeleted:           t.IsDeleted,
		RuleSnapshot:        t.RuleSnapshot,
		State:               t.State(),
	}
}

func (h *handlers) generateUser(c *gin.Context) {
	n, err := h.svc.Generation.GenerateUserTasks(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponse{TasksCreated: n})
}

func (h *handlers) generateTemplate(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.svc.Generation.GenerateTasksForTemplate(c.Request.Context(), callerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponse{TasksCreated: n})
}

func (h *handlers) generateGroup(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.svc.Generation.GenerateGroupTasks(c.Request.Context(), callerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponse{TasksCreated: n})
}

func (h *handlers) listTemplates(c *gin.Context) {
	templates, err := h.svc.Templates.List(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]templateResponse, len(templates))
	for i := range templates {
		out[i] = toTemplateResponse(&templates[i])
	}
	c.JSON(http.StatusOK, gin.H{"templates": out})
}

func (h *handlers) createTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}
	tpl, err := h.svc.Templates.Create(c.Request.Context(), callerID(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTemplateResponse(tpl))
}

func (h *handlers) updateTemplate(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}
	tpl, err := h.svc.Templates.Update(c.Request.Context(), callerID(c), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTemplateResponse(tpl))
}

func (h *handlers) deleteTemplate(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var from recurrence.Date
	if raw := c.Query("from"); raw != "" {
		if from, err = recurrence.ParseDate(raw); err != nil {
			h.fail(c, apperr.InvalidArgument("invalid from date %q", raw))
			return
		}
	}
	mode := service.DeleteMode(c.DefaultQuery("mode", string(service.DeleteFuture)))
	n, err := h.svc.Templates.Delete(c.Request.Context(), callerID(c), id, mode, from)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasksAffected": n})
}

func (h *handlers) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}
	task, err := h.svc.Tasks.CreateAdHoc(c.Request.Context(), callerID(c), service.TaskInput{
		Title:         req.Title,
		Description:   req.Description,
		ScheduledDate: req.ScheduledDate,
		GroupID:       req.GroupID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

func (h *handlers) completeTask(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	task, err := h.svc.Tasks.Complete(c.Request.Context(), callerID(c), id, h.svc.Calendar.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (h *handlers) deleteTask(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.Tasks.Delete(c.Request.Context(), callerID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) calendar(c *gin.Context) {
	window := h.svc.Views.DefaultWindow()
	if raw := c.Query("from"); raw != "" {
		from, err := recurrence.ParseDate(raw)
		if err != nil {
			h.fail(c, apperr.InvalidArgument("invalid from date %q", raw))
			return
		}
		window.Start = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := recurrence.ParseDate(raw)
		if err != nil {
			h.fail(c, apperr.InvalidArgument("invalid to date %q", raw))
			return
		}
		window.End = to
	}
	entries, err := h.svc.Views.View(c.Request.Context(), callerID(c), window)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": window.Start, "to": window.End, "entries": entries})
}

func (h *handlers) createGroup(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}
	group, err := h.svc.Groups.CreateGroup(c.Request.Context(), callerID(c), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": group.ID, "name": group.Name, "ownerUserId": group.OwnerUserID})
}

func (h *handlers) listMembers(c *gin.Context) {
	groupID, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	members, err := h.svc.Groups.Members(c.Request.Context(), callerID(c), groupID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, len(members))
	for i, m := range members {
		out[i] = gin.H{"userId": m.UserID, "role": m.Role}
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

func (h *handlers) addMember(c *gin.Context) {
	groupID, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req struct {
		UserID uint       `json:"userId"`
		Role   model.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidArgument("invalid request body: %v", err))
		return
	}
	member, err := h.svc.Groups.AddMember(c.Request.Context(), callerID(c), groupID, req.UserID, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groupId": member.GroupID, "userId": member.UserID, "role": member.Role})
}

func (h *handlers) removeMember(c *gin.Context) {
	groupID, err := uintParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	userID, err := uintParam(c, "userId")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.Groups.RemoveMember(c.Request.Context(), callerID(c), groupID, userID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) fail(c *gin.Context, err error) {
	writeError(c, h.log, err)
}
