package handler

import (
	"net/http"

	"homeaccess_backend/internal/leads/service"
	"homeaccess_backend/internal/leads/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/httpkit"
	"homeaccess_backend/platform/idempotency"
	"homeaccess_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPublicRoutes mounts the anonymous marketplace listing.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}

// RegisterAdminRoutes mounts the admin-only lead routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/metrics", h.Metrics)
}

// RegisterRoutes mounts the authenticated lead routes. replay, when set,
// fronts create and purchase, whose outcomes never change once reached.
// The lock routes stay out of it: a lock can expire and pass to another
// contractor, so only the lead row can say whether a retry still holds it.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, replay gin.HandlerFunc) {
	rg.POST("", withReplay(replay, h.Create)...)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/view", h.MarkViewed)
	rg.GET("/:id/events", h.ListEvents)
	rg.POST("/:id/purchase", withReplay(replay, h.Purchase)...)
	rg.POST("/:id/release", h.Release)
	rg.POST("/:id/lock", h.Lock)
	rg.POST("/:id/lock-and-purchase", h.LockAndPurchase)
}

func withReplay(replay, handler gin.HandlerFunc) []gin.HandlerFunc {
	if replay == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{replay, handler}
}

// List handles GET /api/v1/leads. Only AVAILABLE leads are returned, without
// party or payment data.
func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.ValidationError(c, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.ValidationError(c, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ListPublic(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Create(c *gin.Context) {
	caller := callerOf(c)
	if !caller.IsHomeowner() {
		httpkit.HandleError(c, apperr.Forbidden("only homeowners can publish leads"))
		return
	}
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), callerOf(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.svc.Transition(c.Request.Context(), callerOf(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// MarkViewed counts a view; the increment itself may happen in the background.
func (h *Handler) MarkViewed(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.RecordView(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) ListEvents(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListEvents(c.Request.Context(), callerOf(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Metrics(c *gin.Context) {
	result, err := h.svc.Metrics(c.Request.Context(), callerOf(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Lock handles POST /api/v1/leads/:id/lock. The Idempotency-Key is stored on
// the lock itself and replays only while that lock is live.
func (h *Handler) Lock(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	key, ok := h.idempotencyKey(c)
	if !ok {
		return
	}

	result, err := h.svc.Lock(c.Request.Context(), callerOf(c), id, key)
	if httpkit.HandleError(c, err) {
		return
	}
	if result.Replayed {
		httpkit.OK(c, result)
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) Purchase(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.PurchaseRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	lead, err := h.svc.Purchase(c.Request.Context(), callerOf(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) LockAndPurchase(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	key, ok := h.idempotencyKey(c)
	if !ok {
		return
	}
	var req transport.PurchaseRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	lead, err := h.svc.LockAndPurchase(c.Request.Context(), callerOf(c), id, key, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Release(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.svc.ReleaseLock(c.Request.Context(), callerOf(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
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

// idempotencyKey reads the optional Idempotency-Key header. It is stored on
// the lead row, so it has to fit the column.
func (h *Handler) idempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(idempotency.HeaderKey)
	if err := h.val.Var(key, "omitempty,max=255,printascii"); err != nil {
		httpkit.ValidationError(c, "invalid Idempotency-Key header", nil)
		return "", false
	}
	return key, true
}

// bindOptionalJSON accepts an empty body as the zero request.
func (h *Handler) bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bindJSON(c, req)
}

func leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.ValidationError(c, msgInvalidLeadID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func callerOf(c *gin.Context) actor.Actor {
	return actor.FromIdentity(httpkit.GetIdentity(c))
}
