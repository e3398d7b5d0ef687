package service

import (
	"context"
	"sync"
	"time"

	"homeaccess_backend/internal/events"
	"homeaccess_backend/internal/proposals/repository"
	"homeaccess_backend/internal/shared/assessment"
	"homeaccess_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo keeps matches, project statuses and proposals in memory and
// applies the same conditional updates as the SQL repository.
type fakeRepo struct {
	mu        sync.Mutex
	matches   map[uuid.UUID]repository.Match
	projects  map[uuid.UUID]string
	proposals map[uuid.UUID]repository.Proposal
	recs      map[uuid.UUID][]assessment.Recommendation
	// purchased holds match ids whose contractor bought the project's lead.
	purchased map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		matches:   make(map[uuid.UUID]repository.Match),
		projects:  make(map[uuid.UUID]string),
		proposals: make(map[uuid.UUID]repository.Proposal),
		recs:      make(map[uuid.UUID][]assessment.Recommendation),
		purchased: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) GetMatch(_ context.Context, id uuid.UUID) (repository.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return repository.Match{}, repository.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeRepo) GetRecommendations(_ context.Context, id uuid.UUID) ([]assessment.Recommendation, error) {
	return f.recs[id], nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok {
		return repository.Proposal{}, repository.ErrProposalNotFound
	}
	return p, nil
}

func (f *fakeRepo) CreateSent(_ context.Context, params repository.SendParams) (repository.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.matches[params.MatchID]
	if m.Status != repository.MatchStatusMatched && m.Status != repository.MatchStatusLeadPurchased {
		return repository.Proposal{}, repository.ErrConditionFailed
	}
	m.Status = repository.MatchStatusProposalSent
	f.matches[m.ID] = m

	sentAt := params.SentAt
	p := repository.Proposal{
		ID: uuid.New(), MatchID: params.MatchID, ProjectID: params.ProjectID, ContractorID: params.ContractorID,
		HomeownerID: params.HomeownerID, LineItems: params.LineItems, TotalCents: params.TotalCents,
		EstimatedDuration: params.EstimatedDuration, Notes: params.Notes, Status: repository.StatusSent,
		ValidUntil: params.ValidUntil, SentAt: &sentAt, CreatedAt: params.SentAt, UpdatedAt: params.SentAt,
	}
	f.proposals[p.ID] = p
	if s := f.projects[params.ProjectID]; s == "open_for_bids" || s == "matching_complete" {
		f.projects[params.ProjectID] = "proposals_received"
	}
	return p, nil
}

func (f *fakeRepo) MarkViewed(_ context.Context, id uuid.UUID, at time.Time) (repository.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok {
		return repository.Proposal{}, repository.ErrProposalNotFound
	}
	if p.Status != repository.StatusSent {
		return repository.Proposal{}, repository.ErrConditionFailed
	}
	p.Status = repository.StatusViewed
	p.ViewedAt = &at
	f.proposals[id] = p
	return p, nil
}

func (f *fakeRepo) ExpireOne(_ context.Context, id uuid.UUID, now time.Time) (repository.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok {
		return repository.Proposal{}, repository.ErrProposalNotFound
	}
	if !isOpen(p.Status) || p.ValidUntil.After(now) {
		return repository.Proposal{}, repository.ErrConditionFailed
	}
	p.Status = repository.StatusExpired
	f.proposals[id] = p
	f.reopen(p.MatchID)
	return p, nil
}

// reopen mirrors the match reset that accompanies an expiry.
func (f *fakeRepo) reopen(matchID uuid.UUID) {
	m, ok := f.matches[matchID]
	if !ok || m.Status != repository.MatchStatusProposalSent {
		return
	}
	m.Status = repository.MatchStatusMatched
	if f.purchased[matchID] {
		m.Status = repository.MatchStatusLeadPurchased
	}
	f.matches[matchID] = m
}

func (f *fakeRepo) ExpireStale(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for id, p := range f.proposals {
		if isOpen(p.Status) && !p.ValidUntil.After(now) {
			p.Status = repository.StatusExpired
			f.proposals[id] = p
			f.reopen(p.MatchID)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRepo) Respond(_ context.Context, id uuid.UUID, accept bool, now time.Time) (repository.RespondResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[id]
	if !ok {
		return repository.RespondResult{}, repository.ErrProposalNotFound
	}
	if s := f.projects[p.ProjectID]; accept && (s == "in_progress" || s == "completed") {
		return repository.RespondResult{}, repository.ErrConditionFailed
	}
	if !isOpen(p.Status) || !p.ValidUntil.After(now) {
		return repository.RespondResult{}, repository.ErrConditionFailed
	}

	m := f.matches[p.MatchID]
	p.RespondedAt = &now
	result := repository.RespondResult{Declined: []repository.DeclinedMatch{}}
	if !accept {
		p.Status = repository.StatusRejected
		m.Status = repository.MatchStatusProposalRejected
	} else {
		p.Status = repository.StatusAccepted
		m.Status = repository.MatchStatusProposalAccepted
		f.projects[p.ProjectID] = "in_progress"
		for mid, sibling := range f.matches {
			if sibling.ProjectID != p.ProjectID || mid == m.ID {
				continue
			}
			switch sibling.Status {
			case repository.MatchStatusProposalAccepted, repository.MatchStatusProposalRejected, repository.MatchStatusDeclined:
				continue
			}
			sibling.Status = repository.MatchStatusDeclined
			f.matches[mid] = sibling
			result.Declined = append(result.Declined, repository.DeclinedMatch{MatchID: mid, ContractorID: sibling.ContractorID})
		}
		for pid, other := range f.proposals {
			if other.ProjectID == p.ProjectID && pid != p.ID && isOpen(other.Status) {
				other.Status = repository.StatusExpired
				f.proposals[pid] = other
			}
		}
	}
	f.matches[m.ID] = m
	f.proposals[id] = p
	result.Proposal = p
	return result, nil
}

func (f *fakeRepo) match(id uuid.UUID) repository.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matches[id]
}

func (f *fakeRepo) proposal(id uuid.UUID) repository.Proposal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proposals[id]
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	b.published = append(b.published, e)
	b.mu.Unlock()
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) last() events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		return nil
	}
	return b.published[len(b.published)-1]
}

type testMarketplaceConfig struct{}

func (testMarketplaceConfig) GetLeadLockTTL() time.Duration       { return 15 * time.Minute }
func (testMarketplaceConfig) GetLockSweepInterval() time.Duration { return time.Minute }
func (testMarketplaceConfig) GetIdempotencyTTL() time.Duration    { return time.Hour }
func (testMarketplaceConfig) GetDefaultLeadPriceCents() int64     { return 5000 }
func (testMarketplaceConfig) GetProposalValidity() time.Duration  { return 30 * 24 * time.Hour }

type testEnv struct {
	svc  *Service
	repo *fakeRepo
	bus  *recordingBus
	now  time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{repo: newFakeRepo(), bus: &recordingBus{}, now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	env.svc = New(env.repo, env.bus, testMarketplaceConfig{}, logger.New("development"))
	env.svc.now = func() time.Time { return env.now }
	return env
}

// seedProject creates a project with one match per contractor.
func (e *testEnv) seedProject(homeowner uuid.UUID, contractors ...uuid.UUID) (uuid.UUID, []repository.Match) {
	projectID := uuid.New()
	assessmentID := uuid.New()
	e.repo.projects[projectID] = "matching_complete"
	e.repo.recs[assessmentID] = []assessment.Recommendation{{Description: "Install grab bar"}, {Description: "Entry ramp"}}

	matches := make([]repository.Match, 0, len(contractors))
	for _, c := range contractors {
		m := repository.Match{ID: uuid.New(), ProjectID: projectID, ContractorID: c, HomeownerID: homeowner, AssessmentID: &assessmentID, Status: repository.MatchStatusLeadPurchased}
		e.repo.matches[m.ID] = m
		e.repo.purchased[m.ID] = true
		matches = append(matches, m)
	}
	return projectID, matches
}
