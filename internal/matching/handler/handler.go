package handler

import (
	"homeaccess_backend/internal/matching/service"
	"homeaccess_backend/internal/matching/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/platform/httpkit"
	"homeaccess_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Match)
	rg.GET("", h.List)
}

// Match handles POST /api/v1/match.
func (h *Handler) Match(c *gin.Context) {
	var req transport.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.ValidationError(c, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, "validation failed", err.Error())
		return
	}

	result, err := h.svc.Match(c.Request.Context(), actor.FromIdentity(httpkit.GetIdentity(c)), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List handles GET /api/v1/match?projectId=...
func (h *Handler) List(c *gin.Context) {
	var req transport.ListMatchesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.ValidationError(c, "query 'projectId' is required", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, "validation failed", err.Error())
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		httpkit.ValidationError(c, "invalid project id", nil)
		return
	}

	result, err := h.svc.ListMatches(c.Request.Context(), actor.FromIdentity(httpkit.GetIdentity(c)), projectID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
