package service

import (
	"context"
	"errors"
	"strings"

	"homeaccess_backend/internal/events"
	"homeaccess_backend/internal/leads/domain"
	"homeaccess_backend/internal/leads/repository"
	"homeaccess_backend/internal/leads/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/platform/apperr"

	"github.com/google/uuid"
)

// Lock claims an AVAILABLE lead for the calling contractor with one
// conditional write. Retrying with the same idempotency key while the lock
// is still held returns the existing lock.
func (s *Service) Lock(ctx context.Context, act actor.Actor, leadID uuid.UUID, idempotencyKey string) (transport.LockResponse, error) {
	if !act.IsContractor() {
		return transport.LockResponse{}, apperr.Forbidden("only contractors can lock leads")
	}

	var key *string
	if trimmed := strings.TrimSpace(idempotencyKey); trimmed != "" {
		key = &trimmed
	}

	lead, err := s.repo.Lock(ctx, leadID, act.ID, key)
	switch {
	case err == nil:
		s.recordEvent(ctx, lead.ID, &act.ID, repository.EventTypeLocked, map[string]any{"contractorId": act.ID.String()})
		s.eventBus.Publish(ctx, events.LeadLocked{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			ContractorID: act.ID,
		})
		return s.lockResponse(ctx, lead, false), nil
	case errors.Is(err, repository.ErrNotFound):
		return transport.LockResponse{}, leadNotFound()
	case !errors.Is(err, repository.ErrConditionFailed):
		return transport.LockResponse{}, err
	}

	current, err := s.getLead(ctx, leadID)
	if err != nil {
		return transport.LockResponse{}, err
	}
	if s.isReplay(current, act.ID, key) {
		return s.lockResponse(ctx, current, true), nil
	}

	s.log.WithContext(ctx).LeadContention("lock", leadID.String(), act.ID.String(), string(current.Status))
	return transport.LockResponse{}, leadUnavailable("lead is no longer available")
}

// Purchase turns the caller's live lock into a purchase.
func (s *Service) Purchase(ctx context.Context, act actor.Actor, leadID uuid.UUID, req transport.PurchaseRequest) (transport.LeadResponse, error) {
	if !act.IsContractor() {
		return transport.LeadResponse{}, apperr.Forbidden("only contractors can purchase leads")
	}

	reference := trimmedOrNil(req.PaymentReference)
	if s.payments != nil {
		ref := ""
		if reference != nil {
			ref = *reference
		}
		if err := s.payments.ConfirmPayment(ctx, leadID, act.ID, ref); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	lockedAfter := s.now().Add(-s.lockTTL)
	lead, err := s.repo.Purchase(ctx, leadID, act.ID, lockedAfter, reference)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return transport.LeadResponse{}, leadNotFound()
	case errors.Is(err, repository.ErrConditionFailed):
		s.log.WithContext(ctx).LeadContention("purchase", leadID.String(), act.ID.String(), "lock missing or expired")
		return transport.LeadResponse{}, leadUnavailable("lead already purchased or your lock has expired")
	case err != nil:
		return transport.LeadResponse{}, err
	}

	if lead.ProjectID != nil {
		if err := s.repo.AdvanceMatchOnPurchase(ctx, *lead.ProjectID, act.ID); err != nil {
			s.log.WithContext(ctx).Warn("match not advanced after purchase", "error", err, "leadId", lead.ID)
		}
	}

	s.recordEvent(ctx, lead.ID, &act.ID, repository.EventTypePurchased, map[string]any{
		"contractorId": act.ID.String(),
		"priceCents":   lead.PriceCents,
	})
	s.eventBus.Publish(ctx, events.LeadPurchased{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		HomeownerID:  lead.HomeownerID,
		ContractorID: act.ID,
		ProjectID:    lead.ProjectID,
		Title:        lead.Title,
		PriceCents:   lead.PriceCents,
	})

	return s.toLeadResponse(ctx, lead), nil
}

// LockAndPurchase runs both phases. A failed purchase leaves the lock in
// place for the expiry sweep; it is not rolled back here.
func (s *Service) LockAndPurchase(ctx context.Context, act actor.Actor, leadID uuid.UUID, idempotencyKey string, req transport.PurchaseRequest) (transport.LeadResponse, error) {
	if _, err := s.Lock(ctx, act, leadID, idempotencyKey); err != nil {
		return transport.LeadResponse{}, err
	}
	return s.Purchase(ctx, act, leadID, req)
}

// ReleaseLock gives up the caller's lock.
func (s *Service) ReleaseLock(ctx context.Context, act actor.Actor, leadID uuid.UUID) (transport.LeadResponse, error) {
	if !act.IsContractor() {
		return transport.LeadResponse{}, apperr.Forbidden("only contractors hold locks")
	}

	lead, err := s.repo.ReleaseLock(ctx, leadID, act.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return transport.LeadResponse{}, leadNotFound()
	case errors.Is(err, repository.ErrConditionFailed):
		return transport.LeadResponse{}, leadUnavailable("you do not hold a lock on this lead")
	case err != nil:
		return transport.LeadResponse{}, err
	}

	s.lockReleased(ctx, lead.ID, act.ID, repository.ReleaseReasonHolder)
	return s.toLeadResponse(ctx, lead), nil
}

// ReleaseExpiredLocks reverts every lock older than the lock TTL to
// AVAILABLE and returns how many were released.
func (s *Service) ReleaseExpiredLocks(ctx context.Context) (int, error) {
	released, err := s.repo.ReleaseExpiredLocks(ctx, s.now().Add(-s.lockTTL))
	if err != nil {
		return 0, err
	}
	for _, rl := range released {
		s.lockReleased(ctx, rl.LeadID, rl.ContractorID, repository.ReleaseReasonExpired)
	}
	return len(released), nil
}

func (s *Service) lockReleased(ctx context.Context, leadID, contractorID uuid.UUID, reason string) {
	var actorID *uuid.UUID
	if reason == repository.ReleaseReasonHolder {
		actorID = &contractorID
	}
	s.recordEvent(ctx, leadID, actorID, repository.EventTypeLockReleased, map[string]any{
		"contractorId": contractorID.String(),
		"reason":       reason,
	})
	s.eventBus.Publish(ctx, events.LeadLockReleased{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		ContractorID: contractorID,
		Reason:       reason,
	})
}

// isReplay reports whether lead is a still-live lock taken by contractorID
// under the same idempotency key.
func (s *Service) isReplay(lead repository.Lead, contractorID uuid.UUID, key *string) bool {
	if key == nil || lead.Status != domain.StatusLocked {
		return false
	}
	if lead.LockedByID == nil || *lead.LockedByID != contractorID {
		return false
	}
	if lead.LockIdempotencyKey == nil || *lead.LockIdempotencyKey != *key {
		return false
	}
	return lead.LockedAt != nil && lead.LockedAt.After(s.now().Add(-s.lockTTL))
}

func (s *Service) lockResponse(ctx context.Context, lead repository.Lead, replayed bool) transport.LockResponse {
	resp := transport.LockResponse{Lead: s.toLeadResponse(ctx, lead), Replayed: replayed}
	if lead.LockedAt != nil {
		resp.ExpiresAt = lead.LockedAt.Add(s.lockTTL)
	}
	return resp
}

func leadUnavailable(message string) error {
	return apperr.Conflict(message).WithCode(apperr.CodeLeadUnavailable)
}
