package service

import (
	"context"
	"testing"
	"time"

	"homeaccess_backend/internal/events"
	"homeaccess_backend/internal/proposals/repository"
	"homeaccess_backend/internal/proposals/transport"
	"homeaccess_backend/internal/shared/actor"
	"homeaccess_backend/platform/apperr"

	"github.com/google/uuid"
)

func contractorActor(id uuid.UUID) actor.Actor { return actor.Actor{ID: id, Role: actor.RoleContractor} }
func homeownerActor(id uuid.UUID) actor.Actor  { return actor.Actor{ID: id, Role: actor.RoleHomeowner} }

func boolPtr(v bool) *bool { return &v }

func sendRequest(matchID uuid.UUID) transport.SendProposalRequest {
	return transport.SendProposalRequest{
		MatchID: matchID,
		LineItems: []transport.LineItemInput{
			{Description: "Grab bar", UnitPrice: 150, FromRecommendation: true},
			{Description: "Lighting", UnitPrice: 500, Included: boolPtr(false)},
			{Description: "Handrail", UnitPrice: 300},
		},
	}
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := apperr.GetCode(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestDraftBuildsFromRecommendations(t *testing.T) {
	env := newTestEnv()
	contractor := uuid.New()
	_, matches := env.seedProject(uuid.New(), contractor)

	draft, err := env.svc.Draft(context.Background(), contractorActor(contractor), transport.DraftRequest{MatchID: matches[0].ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(draft.LineItems) != 2 || draft.Total != 2650 {
		t.Fatalf("unexpected draft %+v", draft)
	}

	_, err = env.svc.Draft(context.Background(), contractorActor(uuid.New()), transport.DraftRequest{MatchID: matches[0].ID})
	expectCode(t, err, apperr.CodeForbidden)

	_, err = env.svc.Draft(context.Background(), contractorActor(contractor), transport.DraftRequest{MatchID: uuid.New()})
	expectCode(t, err, apperr.CodeMatchNotFound)
}

func TestSendComputesTotalAndValidity(t *testing.T) {
	env := newTestEnv()
	contractor := uuid.New()
	projectID, matches := env.seedProject(uuid.New(), contractor)

	resp, err := env.svc.Send(context.Background(), contractorActor(contractor), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalCents != 45000 || resp.Total != 450 {
		t.Fatalf("expected total 45000 cents, got %d", resp.TotalCents)
	}
	if resp.Status != repository.StatusSent || !resp.ValidUntil.Equal(env.now.Add(30*24*time.Hour)) {
		t.Fatalf("unexpected proposal %+v", resp)
	}
	if got := env.repo.match(matches[0].ID).Status; got != repository.MatchStatusProposalSent {
		t.Fatalf("expected match proposal_sent, got %s", got)
	}
	if got := env.repo.projects[projectID]; got != "proposals_received" {
		t.Fatalf("expected project proposals_received, got %s", got)
	}
	if _, ok := env.bus.last().(events.ProposalSent); !ok {
		t.Fatalf("expected ProposalSent, got %T", env.bus.last())
	}

	_, err = env.svc.Send(context.Background(), contractorActor(contractor), sendRequest(matches[0].ID))
	expectCode(t, err, apperr.CodeProposalConflict)
}

func TestSendRequiresContractor(t *testing.T) {
	env := newTestEnv()
	homeowner := uuid.New()
	_, matches := env.seedProject(homeowner, uuid.New())

	_, err := env.svc.Send(context.Background(), homeownerActor(homeowner), sendRequest(matches[0].ID))
	expectCode(t, err, apperr.CodeForbidden)
}

func TestHomeownerReadMarksViewedOnce(t *testing.T) {
	env := newTestEnv()
	homeowner, contractor := uuid.New(), uuid.New()
	_, matches := env.seedProject(homeowner, contractor)
	sent, err := env.svc.Send(context.Background(), contractorActor(contractor), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	byContractor, err := env.svc.Get(context.Background(), contractorActor(contractor), sent.ID)
	if err != nil || byContractor.Status != repository.StatusSent {
		t.Fatalf("contractor read must not mark viewed: %+v %v", byContractor, err)
	}

	env.now = env.now.Add(time.Hour)
	first, err := env.svc.Get(context.Background(), homeownerActor(homeowner), sent.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.Status != repository.StatusViewed || first.ViewedAt == nil || !first.ViewedAt.Equal(env.now) {
		t.Fatalf("expected viewed at %v, got %+v", env.now, first)
	}

	env.now = env.now.Add(time.Hour)
	again, err := env.svc.MarkViewed(context.Background(), homeownerActor(homeowner), sent.ID)
	if err != nil {
		t.Fatalf("repeat view must be a no-op: %v", err)
	}
	if !again.ViewedAt.Equal(*first.ViewedAt) {
		t.Fatal("viewed_at must not move on a repeat view")
	}

	_, err = env.svc.Get(context.Background(), homeownerActor(uuid.New()), sent.ID)
	expectCode(t, err, apperr.CodeForbidden)
}

func TestGetExpiresLazily(t *testing.T) {
	env := newTestEnv()
	homeowner, contractor := uuid.New(), uuid.New()
	_, matches := env.seedProject(homeowner, contractor)
	sent, err := env.svc.Send(context.Background(), contractorActor(contractor), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	env.now = env.now.Add(31 * 24 * time.Hour)
	got, err := env.svc.Get(context.Background(), homeownerActor(homeowner), sent.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != repository.StatusExpired || got.ViewedAt != nil {
		t.Fatalf("expected expired without a view, got %+v", got)
	}

	_, err = env.svc.Respond(context.Background(), homeownerActor(homeowner), sent.ID, transport.RespondRequest{Accept: boolPtr(true)})
	expectCode(t, err, apperr.CodeProposalConflict)
}

func TestAcceptDeclinesSiblings(t *testing.T) {
	env := newTestEnv()
	homeowner := uuid.New()
	winner, loser, idle := uuid.New(), uuid.New(), uuid.New()
	projectID, matches := env.seedProject(homeowner, winner, loser, idle)

	won, err := env.svc.Send(context.Background(), contractorActor(winner), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("send winner: %v", err)
	}
	lost, err := env.svc.Send(context.Background(), contractorActor(loser), sendRequest(matches[1].ID))
	if err != nil {
		t.Fatalf("send loser: %v", err)
	}

	resp, err := env.svc.Respond(context.Background(), homeownerActor(homeowner), won.ID, transport.RespondRequest{Accept: boolPtr(true)})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if resp.Status != repository.StatusAccepted || resp.RespondedAt == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := env.repo.match(matches[0].ID).Status; got != repository.MatchStatusProposalAccepted {
		t.Fatalf("expected proposal_accepted, got %s", got)
	}
	if got := env.repo.projects[projectID]; got != "in_progress" {
		t.Fatalf("expected project in_progress, got %s", got)
	}
	for _, m := range matches[1:] {
		if got := env.repo.match(m.ID).Status; got != repository.MatchStatusDeclined {
			t.Fatalf("expected sibling declined, got %s", got)
		}
	}
	if got := env.repo.proposal(lost.ID).Status; got != repository.StatusExpired {
		t.Fatalf("expected sibling proposal expired, got %s", got)
	}

	accepted, ok := env.bus.last().(events.ProposalAccepted)
	if !ok {
		t.Fatalf("expected ProposalAccepted, got %T", env.bus.last())
	}
	if len(accepted.DeclinedContractorIDs) != 2 {
		t.Fatalf("expected 2 declined contractors, got %v", accepted.DeclinedContractorIDs)
	}

	_, err = env.svc.Respond(context.Background(), homeownerActor(homeowner), won.ID, transport.RespondRequest{Accept: boolPtr(false)})
	expectCode(t, err, apperr.CodeProposalConflict)
}

func TestReject(t *testing.T) {
	env := newTestEnv()
	homeowner, contractor := uuid.New(), uuid.New()
	_, matches := env.seedProject(homeowner, contractor)
	sent, err := env.svc.Send(context.Background(), contractorActor(contractor), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	_, err = env.svc.Respond(context.Background(), contractorActor(contractor), sent.ID, transport.RespondRequest{Accept: boolPtr(false)})
	expectCode(t, err, apperr.CodeForbidden)

	resp, err := env.svc.Respond(context.Background(), homeownerActor(homeowner), sent.ID, transport.RespondRequest{Accept: boolPtr(false)})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if resp.Status != repository.StatusRejected {
		t.Fatalf("expected rejected, got %s", resp.Status)
	}
	if got := env.repo.match(matches[0].ID).Status; got != repository.MatchStatusProposalRejected {
		t.Fatalf("expected proposal_rejected, got %s", got)
	}
	if _, ok := env.bus.last().(events.ProposalRejected); !ok {
		t.Fatalf("expected ProposalRejected, got %T", env.bus.last())
	}
}

func TestExpireProposals(t *testing.T) {
	env := newTestEnv()
	homeowner := uuid.New()
	a, b := uuid.New(), uuid.New()
	_, matches := env.seedProject(homeowner, a, b)

	if _, err := env.svc.Send(context.Background(), contractorActor(a), sendRequest(matches[0].ID)); err != nil {
		t.Fatalf("send: %v", err)
	}
	env.now = env.now.Add(20 * 24 * time.Hour)
	if _, err := env.svc.Send(context.Background(), contractorActor(b), sendRequest(matches[1].ID)); err != nil {
		t.Fatalf("send: %v", err)
	}
	env.now = env.now.Add(11 * 24 * time.Hour)

	n, err := env.svc.ExpireProposals(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired proposal, got %d", n)
	}
}

func TestAcceptLeavesRejectedSiblingAlone(t *testing.T) {
	env := newTestEnv()
	homeowner := uuid.New()
	first, second := uuid.New(), uuid.New()
	_, matches := env.seedProject(homeowner, first, second)

	turnedDown, err := env.svc.Send(context.Background(), contractorActor(first), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("send first: %v", err)
	}
	chosen, err := env.svc.Send(context.Background(), contractorActor(second), sendRequest(matches[1].ID))
	if err != nil {
		t.Fatalf("send second: %v", err)
	}
	if _, err := env.svc.Respond(context.Background(), homeownerActor(homeowner), turnedDown.ID, transport.RespondRequest{Accept: boolPtr(false)}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := env.svc.Respond(context.Background(), homeownerActor(homeowner), chosen.ID, transport.RespondRequest{Accept: boolPtr(true)}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if got := env.repo.match(matches[0].ID).Status; got != repository.MatchStatusProposalRejected {
		t.Fatalf("expected rejected match to stay proposal_rejected, got %s", got)
	}
	accepted, ok := env.bus.last().(events.ProposalAccepted)
	if !ok {
		t.Fatalf("expected ProposalAccepted, got %T", env.bus.last())
	}
	if len(accepted.DeclinedContractorIDs) != 0 {
		t.Fatalf("expected no declined contractors, got %v", accepted.DeclinedContractorIDs)
	}
}

func TestAcceptOnStartedProjectConflicts(t *testing.T) {
	env := newTestEnv()
	homeowner, contractor := uuid.New(), uuid.New()
	projectID, matches := env.seedProject(homeowner, contractor)
	sent, err := env.svc.Send(context.Background(), contractorActor(contractor), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// another acceptance on the project committed first
	env.repo.projects[projectID] = "in_progress"

	_, err = env.svc.Respond(context.Background(), homeownerActor(homeowner), sent.ID, transport.RespondRequest{Accept: boolPtr(true)})
	expectCode(t, err, apperr.CodeProposalConflict)
	if got := env.repo.proposal(sent.ID).Status; got != repository.StatusSent {
		t.Fatalf("expected proposal to stay sent, got %s", got)
	}
	if got := env.repo.match(matches[0].ID).Status; got != repository.MatchStatusProposalSent {
		t.Fatalf("expected match to stay proposal_sent, got %s", got)
	}
}

func TestExpiredProposalReopensMatch(t *testing.T) {
	env := newTestEnv()
	homeowner, buyer, matchedOnly := uuid.New(), uuid.New(), uuid.New()
	_, matches := env.seedProject(homeowner, buyer, matchedOnly)
	env.repo.purchased[matches[1].ID] = false

	first, err := env.svc.Send(context.Background(), contractorActor(buyer), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := env.svc.Send(context.Background(), contractorActor(matchedOnly), sendRequest(matches[1].ID)); err != nil {
		t.Fatalf("send: %v", err)
	}
	env.now = env.now.Add(31 * 24 * time.Hour)

	if n, err := env.svc.ExpireProposals(context.Background()); err != nil || n != 2 {
		t.Fatalf("expected 2 expired proposals, got %d (%v)", n, err)
	}
	if got := env.repo.match(matches[0].ID).Status; got != repository.MatchStatusLeadPurchased {
		t.Fatalf("expected lead_purchased, got %s", got)
	}
	if got := env.repo.match(matches[1].ID).Status; got != repository.MatchStatusMatched {
		t.Fatalf("expected matched, got %s", got)
	}

	again, err := env.svc.Send(context.Background(), contractorActor(buyer), sendRequest(matches[0].ID))
	if err != nil {
		t.Fatalf("resend after expiry: %v", err)
	}
	if again.ID == first.ID || again.Status != repository.StatusSent {
		t.Fatalf("expected a fresh sent proposal, got %+v", again)
	}
}
