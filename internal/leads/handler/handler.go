package handler

import (
	"context"
	"net/http"

	"sales_crm_backend/internal/leads/transport"
	"sales_crm_backend/platform/httpkit"
	"sales_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// LeadService is the management surface the HTTP layer drives.
type LeadService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error)
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (transport.LeadResponse, error)
	Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error)
	Assign(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, assigneeID *uuid.UUID, actorID uuid.UUID) (transport.LeadResponse, error)
	BulkUpdate(ctx context.Context, tenantID uuid.UUID, req transport.BulkUpdateRequest) (transport.BulkUpdateResponse, error)
	Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
	AddInteraction(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, actorID uuid.UUID, req transport.AddInteractionRequest) (transport.AddInteractionResponse, error)
	ListInteractions(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, req transport.PageRequest) (transport.InteractionListResponse, error)
	GetScoreBreakdown(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (transport.ScoreBreakdownResponse, error)
	ListByPriority(ctx context.Context, tenantID uuid.UUID, req transport.ListByPriorityRequest) (transport.LeadListResponse, error)
	ListOverdueFollowUps(ctx context.Context, tenantID uuid.UUID, req transport.PageRequest) (transport.LeadListResponse, error)
}

type Handler struct {
	svc LeadService
	val *validator.Validator
}

func New(svc LeadService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/bulk-update", h.BulkUpdate)
	rg.GET("/priority", h.ListByPriority)
	rg.GET("/follow-ups/overdue", h.ListOverdueFollowUps)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PUT("/:id/assign", h.Assign)
	rg.POST("/:id/interactions", h.AddInteraction)
	rg.GET("/:id/interactions", h.ListInteractions)
	rg.GET("/:id/score", h.GetScoreBreakdown)
}

func (h *Handler) Create(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), id.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), leadID, id.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), leadID, id.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), leadID, id.TenantID())) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Assign(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.AssignLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Assign(c.Request.Context(), leadID, id.TenantID(), req.AssigneeID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) BulkUpdate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.BulkUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.BulkUpdate(c.Request.Context(), id.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) AddInteraction(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.AddInteractionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.AddInteraction(c.Request.Context(), leadID, id.TenantID(), id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) ListInteractions(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req transport.PageRequest
	if !h.bindQuery(c, &req) {
		return
	}

	resp, err := h.svc.ListInteractions(c.Request.Context(), leadID, id.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) GetScoreBreakdown(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	resp, err := h.svc.GetScoreBreakdown(c.Request.Context(), leadID, id.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) ListByPriority(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.ListByPriorityRequest
	if !h.bindQuery(c, &req) {
		return
	}

	resp, err := h.svc.ListByPriority(c.Request.Context(), id.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) ListOverdueFollowUps(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.PageRequest
	if !h.bindQuery(c, &req) {
		return
	}

	resp, err := h.svc.ListOverdueFollowUps(c.Request.Context(), id.TenantID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return leadID, true
}
