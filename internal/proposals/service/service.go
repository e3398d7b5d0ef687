// Package service runs proposal negotiation between contractors and homeowners.
package service

import (
	"context"
	"errors"
	"time"

	"homeaccess_backend/internal/events"
	"homeaccess_backend/internal/proposals/repository"
	"homeaccess_backend/internal/proposals/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/internal/shared/money"
	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"
	"homeaccess_backend/platform/sanitize"

	"github.com/google/uuid"
)

const defaultValidity = 30 * 24 * time.Hour

type Service struct {
	repo     repository.ProposalsRepository
	eventBus events.Bus
	validity time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func New(repo repository.ProposalsRepository, eventBus events.Bus, cfg config.MarketplaceConfig, log *logger.Logger) *Service {
	validity := cfg.GetProposalValidity()
	if validity <= 0 {
		validity = defaultValidity
	}
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		validity: validity,
		log:      log,
		now:      time.Now,
	}
}

// Draft prices the match's assessment recommendations for the contractor to
// edit before sending. Nothing is stored.
func (s *Service) Draft(ctx context.Context, act actor.Actor, req transport.DraftRequest) (transport.DraftResponse, error) {
	match, err := s.contractorMatch(ctx, act, req.MatchID)
	if err != nil {
		return transport.DraftResponse{}, err
	}

	items := []repository.LineItem{}
	if match.AssessmentID != nil {
		recs, err := s.repo.GetRecommendations(ctx, *match.AssessmentID)
		if err != nil {
			return transport.DraftResponse{}, err
		}
		items = BuildFromRecommendations(recs)
	}

	return transport.DraftResponse{
		MatchID:   match.ID,
		LineItems: toLineItemResponses(items),
		Total:     money.DollarsFromCents(TotalCents(items)),
	}, nil
}

// Send stores a proposal for the match, valid for the configured period.
func (s *Service) Send(ctx context.Context, act actor.Actor, req transport.SendProposalRequest) (transport.ProposalResponse, error) {
	match, err := s.contractorMatch(ctx, act, req.MatchID)
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	items := lineItemsFromInput(req.LineItems)
	for _, item := range items {
		if item.Description == "" {
			return transport.ProposalResponse{}, apperr.Validation("every line item needs a description")
		}
	}
	total := TotalCents(items)

	now := s.now()
	proposal, err := s.repo.CreateSent(ctx, repository.SendParams{
		MatchID:           match.ID,
		ProjectID:         match.ProjectID,
		ContractorID:      act.ID,
		HomeownerID:       match.HomeownerID,
		LineItems:         items,
		TotalCents:        total,
		EstimatedDuration: sanitize.TextPtr(req.EstimatedDuration),
		Notes:             sanitize.TextPtr(req.Notes),
		SentAt:            now,
		ValidUntil:        now.Add(s.validity),
	})
	if errors.Is(err, repository.ErrConditionFailed) {
		return transport.ProposalResponse{}, proposalConflict("a proposal was already sent for this match")
	}
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	s.eventBus.Publish(ctx, events.ProposalSent{
		BaseEvent:    events.NewBaseEvent(),
		ProposalID:   proposal.ID,
		MatchID:      proposal.MatchID,
		ProjectID:    proposal.ProjectID,
		HomeownerID:  proposal.HomeownerID,
		ContractorID: proposal.ContractorID,
		TotalCents:   proposal.TotalCents,
	})
	return toResponse(proposal), nil
}

// Get returns a proposal to one of its parties. Validity is checked on read,
// and the homeowner's first read marks the proposal viewed.
func (s *Service) Get(ctx context.Context, act actor.Actor, id uuid.UUID) (transport.ProposalResponse, error) {
	proposal, err := s.partyProposal(ctx, act, id)
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	if proposal.HomeownerID == act.ID && proposal.Status == repository.StatusSent {
		if proposal, err = s.markViewed(ctx, proposal); err != nil {
			return transport.ProposalResponse{}, err
		}
	}
	return toResponse(proposal), nil
}

// MarkViewed moves a sent proposal to viewed. Repeating it is a no-op.
func (s *Service) MarkViewed(ctx context.Context, act actor.Actor, id uuid.UUID) (transport.ProposalResponse, error) {
	proposal, err := s.partyProposal(ctx, act, id)
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	if proposal.HomeownerID != act.ID {
		return transport.ProposalResponse{}, apperr.Forbidden("only the homeowner can view a proposal as received")
	}
	if proposal.Status == repository.StatusSent {
		if proposal, err = s.markViewed(ctx, proposal); err != nil {
			return transport.ProposalResponse{}, err
		}
	}
	return toResponse(proposal), nil
}

// Respond accepts or rejects an open proposal on behalf of the homeowner.
func (s *Service) Respond(ctx context.Context, act actor.Actor, id uuid.UUID, req transport.RespondRequest) (transport.ProposalResponse, error) {
	if req.Accept == nil {
		return transport.ProposalResponse{}, apperr.Validation("accept is required")
	}
	proposal, err := s.partyProposal(ctx, act, id)
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	if proposal.HomeownerID != act.ID {
		return transport.ProposalResponse{}, apperr.Forbidden("only the homeowner can respond to a proposal")
	}
	if !isOpen(proposal.Status) {
		return transport.ProposalResponse{}, proposalConflict("proposal is " + proposal.Status)
	}

	accept := *req.Accept
	result, err := s.repo.Respond(ctx, id, accept, s.now())
	switch {
	case errors.Is(err, repository.ErrProposalNotFound):
		return transport.ProposalResponse{}, proposalNotFound()
	case errors.Is(err, repository.ErrConditionFailed):
		return transport.ProposalResponse{}, proposalConflict("proposal was answered or expired concurrently")
	case err != nil:
		return transport.ProposalResponse{}, err
	}

	p := result.Proposal
	if accept {
		declinedMatches := make([]uuid.UUID, 0, len(result.Declined))
		declinedContractors := make([]uuid.UUID, 0, len(result.Declined))
		for _, d := range result.Declined {
			declinedMatches = append(declinedMatches, d.MatchID)
			declinedContractors = append(declinedContractors, d.ContractorID)
		}
		s.eventBus.Publish(ctx, events.ProposalAccepted{
			BaseEvent:             events.NewBaseEvent(),
			ProposalID:            p.ID,
			MatchID:               p.MatchID,
			ProjectID:             p.ProjectID,
			HomeownerID:           p.HomeownerID,
			ContractorID:          p.ContractorID,
			TotalCents:            p.TotalCents,
			DeclinedMatchIDs:      declinedMatches,
			DeclinedContractorIDs: declinedContractors,
		})
	} else {
		s.eventBus.Publish(ctx, events.ProposalRejected{
			BaseEvent:    events.NewBaseEvent(),
			ProposalID:   p.ID,
			MatchID:      p.MatchID,
			ProjectID:    p.ProjectID,
			HomeownerID:  p.HomeownerID,
			ContractorID: p.ContractorID,
		})
	}
	return toResponse(p), nil
}

// ExpireProposals expires every open proposal past its validity.
func (s *Service) ExpireProposals(ctx context.Context) (int, error) {
	ids, err := s.repo.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Service) contractorMatch(ctx context.Context, act actor.Actor, matchID uuid.UUID) (repository.Match, error) {
	if !act.IsContractor() {
		return repository.Match{}, apperr.Forbidden("only contractors write proposals")
	}
	match, err := s.repo.GetMatch(ctx, matchID)
	if errors.Is(err, repository.ErrMatchNotFound) {
		return repository.Match{}, apperr.NotFound("match not found").WithCode(apperr.CodeMatchNotFound)
	}
	if err != nil {
		return repository.Match{}, err
	}
	if match.ContractorID != act.ID {
		return repository.Match{}, apperr.Forbidden("match belongs to another contractor")
	}
	return match, nil
}

// partyProposal loads a proposal visible to act and applies lazy expiry.
func (s *Service) partyProposal(ctx context.Context, act actor.Actor, id uuid.UUID) (repository.Proposal, error) {
	if act.IsZero() {
		return repository.Proposal{}, apperr.Unauthorized("authentication required")
	}
	proposal, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProposalNotFound) {
		return repository.Proposal{}, proposalNotFound()
	}
	if err != nil {
		return repository.Proposal{}, err
	}
	if proposal.HomeownerID != act.ID && proposal.ContractorID != act.ID && act.Role != actor.RoleAdmin {
		return repository.Proposal{}, apperr.Forbidden("not a party to this proposal")
	}
	return s.expireIfStale(ctx, proposal)
}

func (s *Service) expireIfStale(ctx context.Context, proposal repository.Proposal) (repository.Proposal, error) {
	now := s.now()
	if !isOpen(proposal.Status) || proposal.ValidUntil.After(now) {
		return proposal, nil
	}
	expired, err := s.repo.ExpireOne(ctx, proposal.ID, now)
	if errors.Is(err, repository.ErrConditionFailed) {
		return s.repo.GetByID(ctx, proposal.ID)
	}
	return expired, err
}

func (s *Service) markViewed(ctx context.Context, proposal repository.Proposal) (repository.Proposal, error) {
	viewed, err := s.repo.MarkViewed(ctx, proposal.ID, s.now())
	if errors.Is(err, repository.ErrConditionFailed) {
		return s.repo.GetByID(ctx, proposal.ID)
	}
	return viewed, err
}

func isOpen(status string) bool {
	return status == repository.StatusSent || status == repository.StatusViewed
}

func toResponse(p repository.Proposal) transport.ProposalResponse {
	return transport.ProposalResponse{
		ID:                p.ID,
		MatchID:           p.MatchID,
		ProjectID:         p.ProjectID,
		ContractorID:      p.ContractorID,
		HomeownerID:       p.HomeownerID,
		LineItems:         toLineItemResponses(p.LineItems),
		Total:             money.DollarsFromCents(p.TotalCents),
		TotalCents:        p.TotalCents,
		EstimatedDuration: p.EstimatedDuration,
		Notes:             p.Notes,
		Status:            p.Status,
		ValidUntil:        p.ValidUntil,
		SentAt:            p.SentAt,
		ViewedAt:          p.ViewedAt,
		RespondedAt:       p.RespondedAt,
		CreatedAt:         p.CreatedAt,
	}
}

func proposalNotFound() error {
	return apperr.NotFound("proposal not found").WithCode(apperr.CodeProposalNotFound)
}

func proposalConflict(message string) error {
	return apperr.Conflict(message).WithCode(apperr.CodeProposalConflict)
}
