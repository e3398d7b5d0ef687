package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"homeaccess_backend/internal/leads/domain"
	"homeaccess_backend/internal/leads/repository"
	"homeaccess_backend/internal/leads/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/platform/apperr"

	"github.com/google/uuid"
)

func homeowner() actor.Actor  { return actor.Actor{ID: uuid.New(), Role: actor.RoleHomeowner} }
func contractor() actor.Actor { return actor.Actor{ID: uuid.New(), Role: actor.RoleContractor} }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if got := apperr.GetCode(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestCreateDefaultsPriceAndRecordsEvent(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()

	resp, err := env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{
		Title:    "Bathroom grab bars",
		Location: "Austin, TX",
		Tags:     []string{"bathroom", "Bathroom", " "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Price != 50 || resp.Status != string(domain.StatusAvailable) {
		t.Fatalf("unexpected lead %+v", resp)
	}
	if len(resp.Tags) != 1 || resp.Tags[0] != "bathroom" {
		t.Fatalf("expected deduplicated tags, got %v", resp.Tags)
	}

	stored := env.repo.get(resp.ID)
	want := domain.Fingerprint(domain.FingerprintInput{HomeownerID: owner.ID, Title: "Bathroom grab bars", Location: "Austin, TX"})
	if stored.Fingerprint != want {
		t.Fatalf("unexpected fingerprint %s", stored.Fingerprint)
	}
	if types := env.repo.eventTypes(resp.ID); len(types) != 1 || types[0] != repository.EventTypeCreated {
		t.Fatalf("expected created event, got %v", types)
	}
	if names := env.bus.names(); len(names) != 1 || names[0] != "leads.lead.created" {
		t.Fatalf("expected LeadCreated, got %v", names)
	}
}

func TestCreateConvertsPriceToCents(t *testing.T) {
	env := newTestEnv()
	price := 75.5
	resp, err := env.svc.Create(context.Background(), homeowner(), transport.CreateLeadRequest{Title: "Ramp", Location: "Denver, CO", Price: &price})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.repo.get(resp.ID).PriceCents; got != 7550 {
		t.Fatalf("expected 7550 cents, got %d", got)
	}
}

func TestCreateRejectsNonHomeowner(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.Create(context.Background(), contractor(), transport.CreateLeadRequest{Title: "x", Location: "y"})
	assertCode(t, err, apperr.CodeForbidden)
}

func TestCreateRequiresTitleAndLocation(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.Create(context.Background(), homeowner(), transport.CreateLeadRequest{Title: "<b></b>", Location: "Austin"})
	assertCode(t, err, apperr.CodeValidationFailed)
}

func TestCreateDuplicateFingerprint(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()
	req := transport.CreateLeadRequest{Title: "Stair lift", Location: "Miami, FL"}

	if _, err := env.svc.Create(context.Background(), owner, req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := env.svc.Create(context.Background(), owner, req)
	assertCode(t, err, apperr.CodeDuplicateLead)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict kind, got %v", apperr.GetKind(err))
	}

	// The same listing from another homeowner is a different lead.
	if _, err := env.svc.Create(context.Background(), homeowner(), req); err != nil {
		t.Fatalf("other homeowner: %v", err)
	}
}

func TestCreateFromScan(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()
	assessmentID := uuid.New()
	score := 62
	scan := repository.Scan{ID: uuid.New(), OwnerID: owner.ID, AssessmentID: &assessmentID, AccessibilityScore: &score, CreatedAt: env.clock.Now()}
	env.repo.scans[scan.ID] = scan

	resp, err := env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{Title: "Kitchen", Location: "Boise, ID", ScanID: &scan.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AssessmentID == nil || *resp.AssessmentID != assessmentID || resp.AccessibilityScore == nil || *resp.AccessibilityScore != 62 {
		t.Fatalf("expected provenance from scan, got %+v", resp)
	}

	// A second lead from the same scan collides even with a new title.
	_, err = env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{Title: "Kitchen v2", Location: "Boise", ScanID: &scan.ID})
	assertCode(t, err, apperr.CodeDuplicateLead)
}

func TestCreateScanErrors(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()
	missing := uuid.New()

	_, err := env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{Title: "a", Location: "b", ScanID: &missing})
	assertCode(t, err, apperr.CodeScanNotFound)

	foreign := repository.Scan{ID: uuid.New(), OwnerID: uuid.New(), CreatedAt: env.clock.Now()}
	env.repo.scans[foreign.ID] = foreign
	_, err = env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{Title: "a", Location: "b", ScanID: &foreign.ID})
	assertCode(t, err, apperr.CodeScanNotOwned)
}

func TestCreateChecksProjectOwnership(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()
	project := repository.ProjectOwner{ID: uuid.New(), HomeownerID: owner.ID}
	env.repo.projects[project.ID] = project

	_, err := env.svc.Create(context.Background(), homeowner(), transport.CreateLeadRequest{Title: "Ramp", Location: "Tulsa, OK", ProjectID: &project.ID})
	assertCode(t, err, apperr.CodeForbidden)
	if len(env.repo.leads) != 0 {
		t.Fatal("no lead may be stored for someone else's project")
	}

	missing := uuid.New()
	_, err = env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{Title: "Ramp", Location: "Tulsa, OK", ProjectID: &missing})
	assertCode(t, err, apperr.CodeProjectNotFound)

	resp, err := env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{Title: "Ramp", Location: "Tulsa, OK", ProjectID: &project.ID})
	if err != nil {
		t.Fatalf("owner create: %v", err)
	}
	if resp.ProjectID == nil || *resp.ProjectID != project.ID {
		t.Fatalf("expected project %s, got %v", project.ID, resp.ProjectID)
	}
}

func TestCreateSucceedsWhenAuditFails(t *testing.T) {
	env := newTestEnv()
	env.repo.failEvents = true
	if _, err := env.svc.Create(context.Background(), homeowner(), transport.CreateLeadRequest{Title: "a", Location: "b"}); err != nil {
		t.Fatalf("audit failure must not fail create: %v", err)
	}
}

func TestListPublicScrubsPrivateFields(t *testing.T) {
	env := newTestEnv()
	holder := uuid.New()
	key := "pi_123"
	env.repo.put(repository.Lead{HomeownerID: uuid.New(), Title: "open", Location: "x", Status: domain.StatusAvailable, PaymentIntentID: &key})
	env.repo.put(repository.Lead{HomeownerID: uuid.New(), Title: "taken", Location: "y", Status: domain.StatusLocked, LockedByID: &holder})

	resp, err := env.svc.ListPublic(context.Background(), transport.ListLeadsRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Title != "open" {
		t.Fatalf("expected only the AVAILABLE lead, got %+v", resp.Items)
	}
	if resp.Limit != defaultListLimit {
		t.Fatalf("expected default limit, got %d", resp.Limit)
	}

	raw, err := json.Marshal(resp.Items[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, private := range []string{"homeownerId", "contractorId", "scanId", "fingerprint", "paymentIntentId", "lockedById", "lastPaymentWebhookEventId"} {
		if _, ok := fields[private]; ok {
			t.Errorf("public lead exposes %s", private)
		}
	}
}

type fakeSigner struct{}

func (fakeSigner) PreviewURL(_ context.Context, key string) (string, error) {
	if key == "broken.jpg" {
		return "", errors.New("minio down")
	}
	return "https://cdn.test/" + key + "?sig=1", nil
}

func TestListPublicSignsPreviewImages(t *testing.T) {
	env := newTestEnv()
	env.svc.SetPreviewSigner(fakeSigner{})
	signed, broken, absolute := "a.jpg", "broken.jpg", "https://img.test/b.jpg"
	env.repo.put(repository.Lead{Title: "1", Status: domain.StatusAvailable, PreviewImage: &signed})
	env.repo.put(repository.Lead{Title: "2", Status: domain.StatusAvailable, PreviewImage: &broken})
	env.repo.put(repository.Lead{Title: "3", Status: domain.StatusAvailable, PreviewImage: &absolute})

	resp, err := env.svc.ListPublic(context.Background(), transport.ListLeadsRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byTitle := map[string]*string{}
	for _, item := range resp.Items {
		byTitle[item.Title] = item.PreviewImageURL
	}
	if u := byTitle["1"]; u == nil || *u != "https://cdn.test/a.jpg?sig=1" {
		t.Fatalf("expected signed url, got %v", u)
	}
	if byTitle["2"] != nil {
		t.Fatal("expected unsigned image to be dropped")
	}
	if u := byTitle["3"]; u == nil || *u != absolute {
		t.Fatalf("expected absolute url passthrough, got %v", u)
	}
}

func TestTransition(t *testing.T) {
	env := newTestEnv()
	holder := contractor()
	lead := env.repo.put(repository.Lead{HomeownerID: uuid.New(), Status: domain.StatusPurchased, LockedByID: &holder.ID})

	resp, err := env.svc.Transition(context.Background(), holder, lead.ID, transport.TransitionRequest{To: "IN_PROGRESS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "IN_PROGRESS" {
		t.Fatalf("expected IN_PROGRESS, got %s", resp.Status)
	}

	resp, err = env.svc.Transition(context.Background(), holder, lead.ID, transport.TransitionRequest{From: "IN_PROGRESS", To: "COMPLETED"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Progress != 100 {
		t.Fatalf("expected progress 100 on completion, got %d", resp.Progress)
	}

	_, err = env.svc.Transition(context.Background(), holder, lead.ID, transport.TransitionRequest{To: "ARCHIVED"})
	assertCode(t, err, apperr.CodeInvalidTransition)
}

func TestTransitionRejectsInvalidAndCoordinatorEdges(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()
	lead := env.repo.put(repository.Lead{HomeownerID: owner.ID, Status: domain.StatusAvailable})

	_, err := env.svc.Transition(context.Background(), owner, lead.ID, transport.TransitionRequest{To: "PURCHASED"})
	assertCode(t, err, apperr.CodeInvalidTransition)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("invalid transition must be a validation failure, got %v", apperr.GetKind(err))
	}

	_, err = env.svc.Transition(context.Background(), owner, lead.ID, transport.TransitionRequest{To: "LOCKED"})
	assertCode(t, err, apperr.CodeInvalidTransition)

	if got := env.repo.get(lead.ID).Status; got != domain.StatusAvailable {
		t.Fatalf("rejected transition must not write, got %s", got)
	}
}

func TestTransitionStaleFromConflicts(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()
	holder := uuid.New()
	lead := env.repo.put(repository.Lead{HomeownerID: owner.ID, Status: domain.StatusInProgress, LockedByID: &holder})

	_, err := env.svc.Transition(context.Background(), owner, lead.ID, transport.TransitionRequest{From: "PURCHASED", To: "IN_PROGRESS"})
	assertCode(t, err, apperr.CodeStatusConflict)
}

func TestTransitionForbiddenForStrangers(t *testing.T) {
	env := newTestEnv()
	lead := env.repo.put(repository.Lead{HomeownerID: uuid.New(), Status: domain.StatusAvailable})
	_, err := env.svc.Transition(context.Background(), homeowner(), lead.ID, transport.TransitionRequest{To: "ARCHIVED"})
	assertCode(t, err, apperr.CodeForbidden)
}

func TestTransitionNotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.Transition(context.Background(), homeowner(), uuid.New(), transport.TransitionRequest{To: "ARCHIVED"})
	assertCode(t, err, apperr.CodeLeadNotFound)
}

type fakeViewTracker struct {
	err    error
	leadID uuid.UUID
}

func (f *fakeViewTracker) TrackLeadView(_ context.Context, leadID uuid.UUID) error {
	f.leadID = leadID
	return f.err
}

func TestRecordView(t *testing.T) {
	env := newTestEnv()
	lead := env.repo.put(repository.Lead{Status: domain.StatusAvailable})

	tracker := &fakeViewTracker{}
	env.svc.SetViewTracker(tracker)
	if err := env.svc.RecordView(context.Background(), lead.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracker.leadID != lead.ID || env.repo.get(lead.ID).ViewCount != 0 {
		t.Fatal("expected the view to be enqueued, not counted inline")
	}

	tracker.err = errors.New("redis down")
	if err := env.svc.RecordView(context.Background(), lead.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := env.repo.get(lead.ID).ViewCount; got != 1 {
		t.Fatalf("expected inline fallback count 1, got %d", got)
	}
}

func TestListEventsForParties(t *testing.T) {
	env := newTestEnv()
	owner := homeowner()
	resp, err := env.svc.Create(context.Background(), owner, transport.CreateLeadRequest{Title: "a", Location: "b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	env.clock.Advance(time.Second)

	list, err := env.svc.ListEvents(context.Background(), owner, resp.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Type != repository.EventTypeCreated {
		t.Fatalf("unexpected events %+v", list.Items)
	}

	_, err = env.svc.ListEvents(context.Background(), contractor(), resp.ID)
	assertCode(t, err, apperr.CodeForbidden)
}
