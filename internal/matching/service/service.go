// Package service runs contractor matching for homeowner projects.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homeaccess_backend/internal/maps"
	"homeaccess_backend/internal/matching/repository"
	"homeaccess_backend/internal/matching/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/internal/shared/money"
	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/logger"
	"homeaccess_backend/platform/phone"

	"github.com/google/uuid"
)

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, addr maps.Address) (maps.Coordinates, error)
}

type Service struct {
	repo     repository.MatchingRepository
	geocoder Geocoder
	log      *logger.Logger
}

func New(repo repository.MatchingRepository, geocoder Geocoder, log *logger.Logger) *Service {
	return &Service{repo: repo, geocoder: geocoder, log: log}
}

// Match locates the project, opens it for bids and ranks contractors for it.
// An address that cannot be located, or no eligible contractor, is reported
// in the response rather than as an error.
func (s *Service) Match(ctx context.Context, act actor.Actor, req transport.MatchRequest) (transport.MatchResponse, error) {
	project, err := s.ownedProject(ctx, act, req.ProjectID)
	if err != nil {
		return transport.MatchResponse{}, err
	}
	if !project.AcceptsMatching() {
		return transport.MatchResponse{}, projectClosed(project.Status)
	}

	addr := maps.Address{
		Street: strings.TrimSpace(req.Address.Street),
		City:   strings.TrimSpace(req.Address.City),
		State:  strings.TrimSpace(req.Address.State),
		Zip:    strings.TrimSpace(req.Address.Zip),
	}
	if addr.City == "" || addr.State == "" {
		return transport.MatchResponse{}, apperr.Validation("address city and state are required")
	}

	coords, err := s.geocoder.Resolve(ctx, addr)
	if err != nil {
		if !errors.Is(err, maps.ErrNotFound) {
			s.log.WithContext(ctx).Warn("geocoding failed during matching", "error", err, "projectId", project.ID)
		}
		return transport.MatchResponse{
			Success: true,
			Message: "Your project is live, but we could not locate the address to find nearby contractors yet.",
			Skills:  []string{},
		}, nil
	}

	if err := s.repo.OpenForBids(ctx, project.ID, repository.LocationUpdate{
		Street:           addr.Street,
		City:             addr.City,
		State:            addr.State,
		Zip:              addr.Zip,
		FormattedAddress: coords.FormattedAddress,
		Latitude:         coords.Lat,
		Longitude:        coords.Lng,
		Urgency:          req.Urgency,
		BudgetRange:      req.BudgetRange,
	}); err != nil {
		return transport.MatchResponse{}, s.projectError(err)
	}

	skills, err := s.projectSkills(ctx, project)
	if err != nil {
		return transport.MatchResponse{}, err
	}

	candidates, err := s.repo.FindMatches(ctx, project.ID, skills)
	if err != nil {
		return transport.MatchResponse{}, err
	}
	if len(candidates) > 0 {
		if err := s.repo.MarkMatchingComplete(ctx, project.ID); err != nil {
			return transport.MatchResponse{}, err
		}
	}

	s.log.WithContext(ctx).Info("project matched", "projectId", project.ID, "matches", len(candidates), "skills", len(skills))

	return transport.MatchResponse{
		Success:    true,
		Message:    matchMessage(len(candidates)),
		MatchCount: len(candidates),
		Skills:     skills,
		Coordinates: &transport.CoordinatesResponse{
			Lat:              coords.Lat,
			Lng:              coords.Lng,
			FormattedAddress: coords.FormattedAddress,
			Precision:        string(coords.Precision),
		},
	}, nil
}

// ListMatches returns the project's matches, best score first.
func (s *Service) ListMatches(ctx context.Context, act actor.Actor, projectID uuid.UUID) (transport.MatchListResponse, error) {
	if _, err := s.ownedProject(ctx, act, projectID); err != nil {
		return transport.MatchListResponse{}, err
	}

	matches, err := s.repo.ListMatches(ctx, projectID)
	if err != nil {
		return transport.MatchListResponse{}, err
	}

	items := make([]transport.MatchItem, 0, len(matches))
	for _, m := range matches {
		skills := m.Skills
		if skills == nil {
			skills = []string{}
		}
		items = append(items, transport.MatchItem{
			ID:            m.ID,
			ProjectID:     m.ProjectID,
			MatchScore:    m.MatchScore,
			DistanceMiles: m.DistanceMiles,
			Status:        m.Status,
			ProposedCost:  money.OptionalDollars(m.ProposedCostCents),
			Contractor: transport.ContractorSummary{
				ID:              m.ContractorID,
				BusinessName:    m.BusinessName,
				Phone:           phone.NormalizeOptional(m.Phone),
				Skills:          skills,
				Rating:          m.Rating,
				YearsExperience: m.YearsExperience,
				IsVerified:      m.IsVerified,
			},
			CreatedAt: m.CreatedAt,
		})
	}
	return transport.MatchListResponse{Items: items}, nil
}

func (s *Service) ownedProject(ctx context.Context, act actor.Actor, id uuid.UUID) (repository.Project, error) {
	if act.IsZero() {
		return repository.Project{}, apperr.Unauthorized("authentication required")
	}
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return repository.Project{}, s.projectError(err)
	}
	if project.HomeownerID != act.ID && act.Role != actor.RoleAdmin {
		return repository.Project{}, apperr.Forbidden("not the owner of this project")
	}
	return project, nil
}

func (s *Service) projectSkills(ctx context.Context, project repository.Project) ([]string, error) {
	if project.AssessmentID == nil {
		return []string{}, nil
	}
	recs, err := s.repo.GetRecommendations(ctx, *project.AssessmentID)
	if err != nil {
		return nil, err
	}
	return DeriveSkills(recs), nil
}

func (s *Service) projectError(err error) error {
	switch {
	case errors.Is(err, repository.ErrProjectNotFound):
		return apperr.NotFound("project not found").WithCode(apperr.CodeProjectNotFound)
	case errors.Is(err, repository.ErrProjectClosed):
		return projectClosed("")
	}
	return err
}

func projectClosed(status string) error {
	msg := "project no longer accepts matching"
	if status != "" {
		msg = fmt.Sprintf("project is %s and no longer accepts matching", status)
	}
	return apperr.Conflict(msg).WithCode(apperr.CodeStatusConflict)
}

func matchMessage(count int) string {
	switch count {
	case 0:
		return "Your project is live. No contractors cover this area yet; we will keep looking."
	case 1:
		return "Found 1 contractor for your project."
	default:
		return fmt.Sprintf("Found %d contractors for your project.", count)
	}
}
