package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	Title        string     `json:"title" validate:"required,notblank,max=200"`
	Location     string     `json:"location" validate:"required,notblank,max=300"`
	Scope        *string    `json:"scope,omitempty" validate:"omitempty,max=5000"`
	Price        *float64   `json:"price,omitempty" validate:"omitempty,gte=0,lte=100000"`
	Tags         []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	ScopeTags    []string   `json:"scopeTags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	ProjectValue *float64   `json:"projectValue,omitempty" validate:"omitempty,gte=0"`
	ScanID       *uuid.UUID `json:"scanId,omitempty"`
	ProjectID    *uuid.UUID `json:"projectId,omitempty"`
	PreviewImage *string    `json:"previewImage,omitempty" validate:"omitempty,max=500"`
}

type ListLeadsRequest struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// TransitionRequest moves a lead along the state machine. When From is empty
// the lead's current status is used as the expected status.
type TransitionRequest struct {
	From string `json:"from,omitempty" validate:"omitempty,oneof=AVAILABLE LOCKED PURCHASED IN_PROGRESS COMPLETED ARCHIVED"`
	To   string `json:"to" validate:"required,oneof=AVAILABLE LOCKED PURCHASED IN_PROGRESS COMPLETED ARCHIVED"`
}

type PurchaseRequest struct {
	PaymentReference *string `json:"paymentReference,omitempty" validate:"omitempty,max=255"`
}

// Response DTOs

// LeadResponse is the full lead as seen by its homeowner or holder.
type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	HomeownerID        uuid.UUID  `json:"homeownerId"`
	ProjectID          *uuid.UUID `json:"projectId,omitempty"`
	ScanID             *uuid.UUID `json:"scanId,omitempty"`
	AssessmentID       *uuid.UUID `json:"assessmentId,omitempty"`
	Title              string     `json:"title"`
	Location           string     `json:"location"`
	Scope              *string    `json:"scope,omitempty"`
	Tags               []string   `json:"tags"`
	ScopeTags          []string   `json:"scopeTags"`
	Price              float64    `json:"price"`
	ProjectValue       *float64   `json:"projectValue,omitempty"`
	PreviewImageURL    *string    `json:"previewImageUrl,omitempty"`
	AccessibilityScore *int       `json:"accessibilityScore,omitempty"`
	Status             string     `json:"status"`
	ViewCount          int        `json:"viewCount"`
	CurrentStage       *string    `json:"currentStage,omitempty"`
	Progress           int        `json:"progress"`
	LockedByID         *uuid.UUID `json:"lockedById,omitempty"`
	LockedAt           *time.Time `json:"lockedAt,omitempty"`
	PurchasedAt        *time.Time `json:"purchasedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// PublicLeadResponse is a lead in the anonymous marketplace listing. It has
// no homeowner, holder, scan, fingerprint or payment fields.
type PublicLeadResponse struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Location           string    `json:"location"`
	Scope              *string   `json:"scope,omitempty"`
	Tags               []string  `json:"tags"`
	ScopeTags          []string  `json:"scopeTags"`
	Price              float64   `json:"price"`
	ProjectValue       *float64  `json:"projectValue,omitempty"`
	PreviewImageURL    *string   `json:"previewImageUrl,omitempty"`
	AccessibilityScore *int      `json:"accessibilityScore,omitempty"`
	Status             string    `json:"status"`
	ViewCount          int       `json:"viewCount"`
	CreatedAt          time.Time `json:"createdAt"`
}

type PublicLeadListResponse struct {
	Items  []PublicLeadResponse `json:"items"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// LockResponse reports the lock held by the caller. Replayed is true when the
// lock already existed under the same idempotency key.
type LockResponse struct {
	Lead      LeadResponse `json:"lead"`
	Replayed  bool         `json:"replayed"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type LeadEventResponse struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	ActorID   *uuid.UUID     `json:"actorId,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
}

type LeadEventListResponse struct {
	Items []LeadEventResponse `json:"items"`
}

type LeadMetricsResponse struct {
	TotalLeads     int     `json:"totalLeads"`
	AvailableLeads int     `json:"availableLeads"`
	LockedLeads    int     `json:"lockedLeads"`
	SoldLeads      int     `json:"soldLeads"`
	Revenue        float64 `json:"revenue"`
	RevenueCents   int64   `json:"revenueCents"`
	TotalViews     int64   `json:"totalViews"`
}
