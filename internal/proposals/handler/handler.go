package handler

import (
	"net/http"

	"homeaccess_backend/internal/proposals/service"
	"homeaccess_backend/internal/proposals/transport"
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

const (
	msgInvalidRequest    = "invalid request"
	msgValidationFailed  = "validation failed"
	msgInvalidProposalID = "invalid proposal id"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the proposal routes. replay may be nil; when set it
// replays retried sends and responses carrying an Idempotency-Key.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, replay gin.HandlerFunc) {
	send := []gin.HandlerFunc{h.Send}
	respond := []gin.HandlerFunc{h.Respond}
	if replay != nil {
		send = append([]gin.HandlerFunc{replay}, send...)
		respond = append([]gin.HandlerFunc{replay}, respond...)
	}
	rg.POST("/draft", h.Draft)
	rg.POST("", send...)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/view", h.MarkViewed)
	rg.POST("/:id/respond", respond...)
}

func (h *Handler) Draft(c *gin.Context) {
	var req transport.DraftRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Draft(c.Request.Context(), caller(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Send(c *gin.Context) {
	var req transport.SendProposalRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Send(c.Request.Context(), caller(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), caller(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) MarkViewed(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	result, err := h.svc.MarkViewed(c.Request.Context(), caller(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Respond(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	var req transport.RespondRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Respond(c.Request.Context(), caller(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.ValidationError(c, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func proposalID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.ValidationError(c, msgInvalidProposalID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func caller(c *gin.Context) actor.Actor {
	return actor.FromIdentity(httpkit.GetIdentity(c))
}
