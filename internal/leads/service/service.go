// Package service holds the lead lifecycle and the lock/purchase coordinator.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"homeaccess_backend/internal/events"
	"homeaccess_backend/internal/leads/domain"
	"homeaccess_backend/internal/leads/repository"
	"homeaccess_backend/internal/leads/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/internal/shared/money"
	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"
	"homeaccess_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultListLimit = 20

type Service struct {
	repo         repository.LeadsRepository
	eventBus     events.Bus
	signer       PreviewSigner
	views        ViewTracker
	payments     PaymentConfirmer
	lockTTL      time.Duration
	defaultPrice int64
	log          *logger.Logger
	now          func() time.Time
}

func New(repo repository.LeadsRepository, eventBus events.Bus, cfg config.MarketplaceConfig, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		eventBus:     eventBus,
		lockTTL:      cfg.GetLeadLockTTL(),
		defaultPrice: cfg.GetDefaultLeadPriceCents(),
		log:          log,
		now:          time.Now,
	}
}

func (s *Service) SetPreviewSigner(signer PreviewSigner) {
	s.signer = signer
}

func (s *Service) SetViewTracker(tracker ViewTracker) {
	s.views = tracker
}

func (s *Service) SetPaymentConfirmer(confirmer PaymentConfirmer) {
	s.payments = confirmer
}

// LockTTL is how long a lock stays purchasable.
func (s *Service) LockTTL() time.Duration {
	return s.lockTTL
}

// Create publishes a homeowner's lead. Duplicates are rejected by the
// fingerprint unique index, not by a prior read.
func (s *Service) Create(ctx context.Context, act actor.Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	if !act.IsHomeowner() {
		return transport.LeadResponse{}, apperr.Forbidden("only homeowners can publish leads")
	}

	title := sanitize.Text(req.Title)
	location := sanitize.Text(req.Location)
	if title == "" || location == "" {
		return transport.LeadResponse{}, apperr.Validation("title and location are required")
	}

	params := repository.CreateLeadParams{
		HomeownerID:       act.ID,
		ProjectID:         req.ProjectID,
		Title:             title,
		Location:          location,
		Scope:             sanitize.TextPtr(req.Scope),
		Tags:              sanitize.Tags(req.Tags),
		ScopeTags:         sanitize.Tags(req.ScopeTags),
		PriceCents:        s.defaultPrice,
		ProjectValueCents: money.OptionalCents(req.ProjectValue),
		PreviewImage:      trimmedOrNil(req.PreviewImage),
	}
	if req.Price != nil {
		params.PriceCents = money.CentsFromDollars(*req.Price)
	}

	if req.ProjectID != nil {
		project, err := s.repo.GetProjectOwner(ctx, *req.ProjectID)
		if errors.Is(err, repository.ErrProjectNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("project not found").WithCode(apperr.CodeProjectNotFound)
		}
		if err != nil {
			return transport.LeadResponse{}, err
		}
		if project.HomeownerID != act.ID {
			return transport.LeadResponse{}, apperr.Forbidden("project belongs to another user")
		}
	}

	fp := domain.FingerprintInput{HomeownerID: act.ID, Title: title, Location: location}
	if req.ScanID != nil {
		scan, err := s.repo.GetScan(ctx, *req.ScanID)
		if errors.Is(err, repository.ErrScanNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("scan not found").WithCode(apperr.CodeScanNotFound)
		}
		if err != nil {
			return transport.LeadResponse{}, err
		}
		if scan.OwnerID != act.ID {
			return transport.LeadResponse{}, apperr.Forbidden("scan belongs to another user").WithCode(apperr.CodeScanNotOwned)
		}
		fp.ScanID = &scan.ID
		fp.ScanCreatedAt = &scan.CreatedAt
		params.ScanID = &scan.ID
		params.AssessmentID = scan.AssessmentID
		params.AccessibilityScore = scan.AccessibilityScore
	}
	params.Fingerprint = domain.Fingerprint(fp)

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.recordEvent(ctx, lead.ID, &act.ID, repository.EventTypeCreated, map[string]any{
		"title":      lead.Title,
		"priceCents": lead.PriceCents,
	})
	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		HomeownerID: lead.HomeownerID,
		Title:       lead.Title,
		PriceCents:  lead.PriceCents,
	})

	return s.toLeadResponse(ctx, lead), nil
}

// ListPublic returns AVAILABLE leads without any party or payment data.
func (s *Service) ListPublic(ctx context.Context, req transport.ListLeadsRequest) (transport.PublicLeadListResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	leads, err := s.repo.ListAvailable(ctx, repository.ListParams{Limit: limit, Offset: req.Offset})
	if err != nil {
		return transport.PublicLeadListResponse{}, err
	}

	items := make([]transport.PublicLeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, s.toPublicLeadResponse(ctx, lead))
	}
	return transport.PublicLeadListResponse{Items: items, Limit: limit, Offset: req.Offset}, nil
}

// Get returns a lead to its homeowner, its holder or an admin.
func (s *Service) Get(ctx context.Context, act actor.Actor, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.getLead(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !canSee(act, lead) {
		return transport.LeadResponse{}, apperr.Forbidden("not a party to this lead")
	}
	return s.toLeadResponse(ctx, lead), nil
}

// Transition applies a status update requested by a party to the lead.
// Lock, purchase and release are not reachable here.
func (s *Service) Transition(ctx context.Context, act actor.Actor, id uuid.UUID, req transport.TransitionRequest) (transport.LeadResponse, error) {
	to, err := domain.ParseStatus(req.To)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.getLead(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !canSee(act, lead) {
		return transport.LeadResponse{}, apperr.Forbidden("not a party to this lead")
	}

	from := lead.Status
	if req.From != "" {
		if from, err = domain.ParseStatus(req.From); err != nil {
			return transport.LeadResponse{}, err
		}
	}

	updated, err := s.ApplyTransition(ctx, id, from, to)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.recordEvent(ctx, id, &act.ID, repository.EventTypeStatusChanged, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
	return s.toLeadResponse(ctx, updated), nil
}

// ApplyTransition validates from -> to against the state machine and writes
// it only if the lead is still in from.
func (s *Service) ApplyTransition(ctx context.Context, id uuid.UUID, from, to domain.Status) (repository.Lead, error) {
	if err := domain.ValidateManualTransition(from, to); err != nil {
		return repository.Lead{}, err
	}

	lead, err := s.repo.UpdateStatus(ctx, id, from, to)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return repository.Lead{}, leadNotFound()
	case errors.Is(err, repository.ErrConditionFailed):
		return repository.Lead{}, apperr.Conflict("lead status changed concurrently").WithCode(apperr.CodeStatusConflict)
	case err != nil:
		return repository.Lead{}, err
	}
	if domain.RequiresHolder(lead.Status) && lead.LockedByID == nil {
		s.log.WithContext(ctx).Error("lead has no holder after transition", "leadId", id, "status", lead.Status)
	}
	return lead, nil
}

// RecordView counts a view of the lead. With a tracker configured the
// increment happens in the background.
func (s *Service) RecordView(ctx context.Context, id uuid.UUID) error {
	if s.views != nil {
		err := s.views.TrackLeadView(ctx, id)
		if err == nil {
			return nil
		}
		s.log.Warn("view tracking enqueue failed, counting inline", "error", err, "leadId", id)
	}
	return s.IncrementViewCount(ctx, id)
}

// IncrementViewCount is the view-tracking task body.
func (s *Service) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return leadNotFound()
		}
		return err
	}
	return nil
}

// ListEvents returns the lead's audit trail to a party of the lead.
func (s *Service) ListEvents(ctx context.Context, act actor.Actor, id uuid.UUID) (transport.LeadEventListResponse, error) {
	lead, err := s.getLead(ctx, id)
	if err != nil {
		return transport.LeadEventListResponse{}, err
	}
	if !canSee(act, lead) {
		return transport.LeadEventListResponse{}, apperr.Forbidden("not a party to this lead")
	}

	evts, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return transport.LeadEventListResponse{}, err
	}

	items := make([]transport.LeadEventResponse, 0, len(evts))
	for _, e := range evts {
		metadata := e.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		items = append(items, transport.LeadEventResponse{
			ID:        e.ID,
			Type:      e.Type,
			ActorID:   e.ActorID,
			Metadata:  metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return transport.LeadEventListResponse{Items: items}, nil
}

func (s *Service) getLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, leadNotFound()
	}
	return lead, err
}

// recordEvent appends to the audit trail. Failures never fail the caller.
func (s *Service) recordEvent(ctx context.Context, leadID uuid.UUID, actorID *uuid.UUID, eventType string, metadata map[string]any) {
	if _, err := s.repo.AppendEvent(ctx, repository.AppendEventParams{
		LeadID:   leadID,
		ActorID:  actorID,
		Type:     eventType,
		Metadata: metadata,
	}); err != nil {
		s.log.WithContext(ctx).Warn("lead event not recorded", "error", err, "leadId", leadID, "type", eventType)
	}
}

func canSee(act actor.Actor, lead repository.Lead) bool {
	if act.IsZero() {
		return false
	}
	if act.Role == actor.RoleAdmin || lead.HomeownerID == act.ID {
		return true
	}
	return lead.LockedByID != nil && *lead.LockedByID == act.ID
}

func leadNotFound() error {
	return apperr.NotFound("lead not found").WithCode(apperr.CodeLeadNotFound)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Metrics returns marketplace KPIs to an admin.
func (s *Service) Metrics(ctx context.Context, act actor.Actor) (transport.LeadMetricsResponse, error) {
	if act.Role != actor.RoleAdmin {
		return transport.LeadMetricsResponse{}, apperr.Forbidden("admin only")
	}

	m, err := s.repo.GetMetrics(ctx)
	if err != nil {
		return transport.LeadMetricsResponse{}, err
	}
	return transport.LeadMetricsResponse{
		TotalLeads:     m.TotalLeads,
		AvailableLeads: m.AvailableLeads,
		LockedLeads:    m.LockedLeads,
		SoldLeads:      m.SoldLeads,
		Revenue:        money.DollarsFromCents(m.RevenueCents),
		RevenueCents:   m.RevenueCents,
		TotalViews:     m.TotalViews,
	}, nil
}
