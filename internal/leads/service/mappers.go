package service

import (
	"context"

	"homeaccess_backend/internal/leads/repository"
	"homeaccess_backend/internal/leads/transport"
	"homeaccess_backend/internal/shared/money"
)

func (s *Service) toLeadResponse(ctx context.Context, lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                 lead.ID,
		HomeownerID:        lead.HomeownerID,
		ProjectID:          lead.ProjectID,
		ScanID:             lead.ScanID,
		AssessmentID:       lead.AssessmentID,
		Title:              lead.Title,
		Location:           lead.Location,
		Scope:              lead.Scope,
		Tags:               nonNil(lead.Tags),
		ScopeTags:          nonNil(lead.ScopeTags),
		Price:              money.DollarsFromCents(lead.PriceCents),
		ProjectValue:       money.OptionalDollars(lead.ProjectValueCents),
		PreviewImageURL:    s.previewURL(ctx, lead.PreviewImage),
		AccessibilityScore: lead.AccessibilityScore,
		Status:             string(lead.Status),
		ViewCount:          lead.ViewCount,
		CurrentStage:       lead.CurrentStage,
		Progress:           lead.Progress,
		LockedByID:         lead.LockedByID,
		LockedAt:           lead.LockedAt,
		PurchasedAt:        lead.PurchasedAt,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func (s *Service) toPublicLeadResponse(ctx context.Context, lead repository.Lead) transport.PublicLeadResponse {
	return transport.PublicLeadResponse{
		ID:                 lead.ID,
		Title:              lead.Title,
		Location:           lead.Location,
		Scope:              lead.Scope,
		Tags:               nonNil(lead.Tags),
		ScopeTags:          nonNil(lead.ScopeTags),
		Price:              money.DollarsFromCents(lead.PriceCents),
		ProjectValue:       money.OptionalDollars(lead.ProjectValueCents),
		PreviewImageURL:    s.previewURL(ctx, lead.PreviewImage),
		AccessibilityScore: lead.AccessibilityScore,
		Status:             string(lead.Status),
		ViewCount:          lead.ViewCount,
		CreatedAt:          lead.CreatedAt,
	}
}

// previewURL signs stored object keys. Absolute URLs pass through and a
// signing failure drops the image rather than the lead.
func (s *Service) previewURL(ctx context.Context, key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	if s.signer == nil || isAbsoluteURL(*key) {
		return key
	}
	url, err := s.signer.PreviewURL(ctx, *key)
	if err != nil {
		s.log.Warn("preview image not signed", "error", err, "key", *key)
		return nil
	}
	return &url
}

func isAbsoluteURL(value string) bool {
	return len(value) > 8 && (value[:7] == "http://" || value[:8] == "https://")
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
