// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"homeaccess_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Events
// =============================================================================

// LeadCreated is published when a homeowner publishes a new lead.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	HomeownerID uuid.UUID `json:"homeownerId"`
	Title       string    `json:"title"`
	PriceCents  int64     `json:"priceCents"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadLocked is published when a contractor wins the lock on a lead.
type LeadLocked struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	ContractorID uuid.UUID `json:"contractorId"`
}

func (e LeadLocked) EventName() string { return "leads.lead.locked" }

// LeadPurchased is published when a locked lead is purchased.
type LeadPurchased struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	HomeownerID  uuid.UUID  `json:"homeownerId"`
	ContractorID uuid.UUID  `json:"contractorId"`
	ProjectID    *uuid.UUID `json:"projectId,omitempty"`
	Title        string     `json:"title"`
	PriceCents   int64      `json:"priceCents"`
}

func (e LeadPurchased) EventName() string { return "leads.lead.purchased" }

// LeadLockReleased is published when a lock is given up or expires.
type LeadLockReleased struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	ContractorID uuid.UUID `json:"contractorId"`
	Reason       string    `json:"reason"`
}

func (e LeadLockReleased) EventName() string { return "leads.lock.released" }

// =============================================================================
// Proposal Events
// =============================================================================

// ProposalSent is published when a contractor sends a proposal to a homeowner.
type ProposalSent struct {
	BaseEvent
	ProposalID   uuid.UUID `json:"proposalId"`
	MatchID      uuid.UUID `json:"matchId"`
	ProjectID    uuid.UUID `json:"projectId"`
	HomeownerID  uuid.UUID `json:"homeownerId"`
	ContractorID uuid.UUID `json:"contractorId"`
	TotalCents   int64     `json:"totalCents"`
}

func (e ProposalSent) EventName() string { return "proposals.proposal.sent" }

// ProposalAccepted is published when the homeowner accepts a proposal.
type ProposalAccepted struct {
	BaseEvent
	ProposalID            uuid.UUID   `json:"proposalId"`
	MatchID               uuid.UUID   `json:"matchId"`
	ProjectID             uuid.UUID   `json:"projectId"`
	HomeownerID           uuid.UUID   `json:"homeownerId"`
	ContractorID          uuid.UUID   `json:"contractorId"`
	TotalCents            int64       `json:"totalCents"`
	DeclinedMatchIDs      []uuid.UUID `json:"declinedMatchIds"`
	DeclinedContractorIDs []uuid.UUID `json:"declinedContractorIds"`
}

func (e ProposalAccepted) EventName() string { return "proposals.proposal.accepted" }

// ProposalRejected is published when the homeowner rejects a proposal.
type ProposalRejected struct {
	BaseEvent
	ProposalID   uuid.UUID `json:"proposalId"`
	MatchID      uuid.UUID `json:"matchId"`
	ProjectID    uuid.UUID `json:"projectId"`
	HomeownerID  uuid.UUID `json:"homeownerId"`
	ContractorID uuid.UUID `json:"contractorId"`
}

func (e ProposalRejected) EventName() string { return "proposals.proposal.rejected" }
