package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"homeaccess_backend/internal/events"
	"homeaccess_backend/internal/leads/domain"
	"homeaccess_backend/internal/leads/repository"
	"homeaccess_backend/platform/apperr"
	"homeaccess_backend/platform/logger"

	"github.com/google/uuid"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeRepo applies the same conditional writes as the SQL repository under a mutex.
type fakeRepo struct {
	mu           sync.Mutex
	clock        *testClock
	leads        map[uuid.UUID]repository.Lead
	fingerprints map[string]uuid.UUID
	scans        map[uuid.UUID]repository.Scan
	projects     map[uuid.UUID]repository.ProjectOwner
	events       []repository.LeadEvent
	advanced     [][2]uuid.UUID
	failEvents   bool
	views        map[uuid.UUID]int
}

func newFakeRepo(clock *testClock) *fakeRepo {
	return &fakeRepo{
		clock:        clock,
		leads:        make(map[uuid.UUID]repository.Lead),
		fingerprints: make(map[string]uuid.UUID),
		scans:        make(map[uuid.UUID]repository.Scan),
		projects:     make(map[uuid.UUID]repository.ProjectOwner),
		views:        make(map[uuid.UUID]int),
	}
}

func (f *fakeRepo) Create(_ context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.fingerprints[p.Fingerprint]; dup {
		return repository.Lead{}, apperr.Conflict("a lead for this scan or listing already exists").WithCode(apperr.CodeDuplicateLead)
	}
	now := f.clock.Now()
	lead := repository.Lead{
		ID: uuid.New(), HomeownerID: p.HomeownerID, ProjectID: p.ProjectID, ScanID: p.ScanID,
		AssessmentID: p.AssessmentID, Fingerprint: p.Fingerprint, Title: p.Title, Location: p.Location,
		Scope: p.Scope, Tags: p.Tags, ScopeTags: p.ScopeTags, PriceCents: p.PriceCents,
		ProjectValueCents: p.ProjectValueCents, PreviewImage: p.PreviewImage,
		AccessibilityScore: p.AccessibilityScore, Status: domain.StatusAvailable,
		CreatedAt: now, UpdatedAt: now,
	}
	f.fingerprints[p.Fingerprint] = lead.ID
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) put(lead repository.Lead) repository.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Fingerprint == "" {
		lead.Fingerprint = lead.ID.String()
	}
	f.leads[lead.ID] = lead
	f.fingerprints[lead.Fingerprint] = lead.ID
	return lead
}

func (f *fakeRepo) get(id uuid.UUID) repository.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leads[id]
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) ListAvailable(_ context.Context, p repository.ListParams) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if lead.Status == domain.StatusAvailable {
			out = append(out, lead)
		}
	}
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (f *fakeRepo) GetScan(_ context.Context, id uuid.UUID) (repository.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	scan, ok := f.scans[id]
	if !ok {
		return repository.Scan{}, repository.ErrScanNotFound
	}
	return scan, nil
}

func (f *fakeRepo) GetProjectOwner(_ context.Context, id uuid.UUID) (repository.ProjectOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return repository.ProjectOwner{}, repository.ErrProjectNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetMetrics(context.Context) (repository.LeadMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var m repository.LeadMetrics
	for _, lead := range f.leads {
		if lead.Status == domain.StatusArchived {
			continue
		}
		m.TotalLeads++
		m.TotalViews += int64(lead.ViewCount)
		switch lead.Status {
		case domain.StatusAvailable:
			m.AvailableLeads++
		case domain.StatusLocked:
			m.LockedLeads++
		}
		if lead.PurchasedAt != nil {
			m.SoldLeads++
			m.RevenueCents += lead.PriceCents
		}
	}
	return m, nil
}

// update runs mutate on the lead when cond holds, mirroring UPDATE ... WHERE.
func (f *fakeRepo) update(id uuid.UUID, cond func(repository.Lead) bool, mutate func(*repository.Lead)) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if !cond(lead) {
		return repository.Lead{}, repository.ErrConditionFailed
	}
	mutate(&lead)
	lead.UpdatedAt = f.clock.Now()
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status) (repository.Lead, error) {
	return f.update(id,
		func(l repository.Lead) bool { return l.Status == from },
		func(l *repository.Lead) {
			l.Status = to
			if to == domain.StatusCompleted {
				l.Progress = 100
			}
		})
}

func (f *fakeRepo) IncrementViewCount(_ context.Context, id uuid.UUID) error {
	_, err := f.update(id, func(repository.Lead) bool { return true }, func(l *repository.Lead) { l.ViewCount++ })
	return err
}

func (f *fakeRepo) Lock(_ context.Context, id, contractorID uuid.UUID, key *string) (repository.Lead, error) {
	return f.update(id,
		func(l repository.Lead) bool { return l.Status == domain.StatusAvailable },
		func(l *repository.Lead) {
			now := f.clock.Now()
			l.Status = domain.StatusLocked
			l.LockedByID = &contractorID
			l.LockIdempotencyKey = key
			l.LockedAt = &now
		})
}

func (f *fakeRepo) Purchase(_ context.Context, id, contractorID uuid.UUID, lockedAfter time.Time, ref *string) (repository.Lead, error) {
	return f.update(id,
		func(l repository.Lead) bool {
			return l.Status == domain.StatusLocked && l.LockedByID != nil && *l.LockedByID == contractorID &&
				l.LockedAt != nil && l.LockedAt.After(lockedAfter)
		},
		func(l *repository.Lead) {
			now := f.clock.Now()
			l.Status = domain.StatusPurchased
			l.PurchasedAt = &now
			l.LockIdempotencyKey = nil
			l.LockedAt = nil
			if ref != nil {
				l.PaymentIntentID = ref
			}
		})
}

func (f *fakeRepo) ReleaseLock(_ context.Context, id, contractorID uuid.UUID) (repository.Lead, error) {
	return f.update(id,
		func(l repository.Lead) bool {
			return l.Status == domain.StatusLocked && l.LockedByID != nil && *l.LockedByID == contractorID
		},
		clearLock)
}

func (f *fakeRepo) ReleaseExpiredLocks(_ context.Context, cutoff time.Time) ([]repository.ReleasedLock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	released := make([]repository.ReleasedLock, 0)
	for id, lead := range f.leads {
		if lead.Status == domain.StatusLocked && lead.LockedAt != nil && lead.LockedAt.Before(cutoff) {
			released = append(released, repository.ReleasedLock{LeadID: id, ContractorID: *lead.LockedByID})
			clearLock(&lead)
			f.leads[id] = lead
		}
	}
	return released, nil
}

func clearLock(l *repository.Lead) {
	l.Status = domain.StatusAvailable
	l.LockedByID = nil
	l.LockIdempotencyKey = nil
	l.LockedAt = nil
}

func (f *fakeRepo) AdvanceMatchOnPurchase(_ context.Context, projectID, contractorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced = append(f.advanced, [2]uuid.UUID{projectID, contractorID})
	return nil
}

func (f *fakeRepo) AppendEvent(_ context.Context, p repository.AppendEventParams) (repository.LeadEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEvents {
		return repository.LeadEvent{}, errors.New("audit table unavailable")
	}
	e := repository.LeadEvent{ID: uuid.New(), LeadID: p.LeadID, ActorID: p.ActorID, Type: p.Type, Metadata: p.Metadata, CreatedAt: f.clock.Now()}
	f.events = append(f.events, e)
	return e, nil
}

func (f *fakeRepo) ListEvents(_ context.Context, leadID uuid.UUID) ([]repository.LeadEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.LeadEvent, 0)
	for _, e := range f.events {
		if e.LeadID == leadID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) eventTypes(leadID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, e := range f.events {
		if e.LeadID == leadID {
			types = append(types, e.Type)
		}
	}
	return types
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

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.published))
	for _, e := range b.published {
		names = append(names, e.EventName())
	}
	return names
}

type testMarketplaceConfig struct{}

func (testMarketplaceConfig) GetLeadLockTTL() time.Duration       { return 15 * time.Minute }
func (testMarketplaceConfig) GetLockSweepInterval() time.Duration { return time.Minute }
func (testMarketplaceConfig) GetIdempotencyTTL() time.Duration    { return time.Hour }
func (testMarketplaceConfig) GetDefaultLeadPriceCents() int64     { return 5000 }
func (testMarketplaceConfig) GetProposalValidity() time.Duration  { return 30 * 24 * time.Hour }

type testEnv struct {
	svc   *Service
	repo  *fakeRepo
	bus   *recordingBus
	clock *testClock
}

func newTestEnv() *testEnv {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := newFakeRepo(clock)
	bus := &recordingBus{}
	svc := New(repo, bus, testMarketplaceConfig{}, logger.New("development"))
	svc.now = clock.Now
	return &testEnv{svc: svc, repo: repo, bus: bus, clock: clock}
}
