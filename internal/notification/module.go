// Package notification sends emails in response to marketplace domain events.
// Domain modules publish events and never talk to the email provider directly.
package notification

import (
	"context"
	"fmt"
	"strings"

	"homeaccess_backend/internal/email"
	"homeaccess_backend/internal/events"
	"homeaccess_backend/platform/config"
	"homeaccess_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	proposalPathFmt = "%s/proposals/%s"
	projectPathFmt  = "%s/projects/%s"
)

// Module is the notification subscriber.
type Module struct {
	recipients RecipientReader
	sender     email.Sender
	cfg        config.NotificationConfig
	log        *logger.Logger
}

// New creates the notification module backed by the users and projects tables.
func New(pool *pgxpool.Pool, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return newModule(newRecipientRepository(pool), sender, cfg, log)
}

func newModule(recipients RecipientReader, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{recipients: recipients, sender: sender, cfg: cfg, log: log}
}

// RegisterHandlers subscribes the module to the events it notifies about.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadPurchased{}.EventName(), m)
	bus.Subscribe(events.ProposalSent{}.EventName(), m)
	bus.Subscribe(events.ProposalAccepted{}.EventName(), m)
	bus.Subscribe(events.ProposalRejected{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadPurchased:
		return m.handleLeadPurchased(ctx, e)
	case events.ProposalSent:
		return m.handleProposalSent(ctx, e)
	case events.ProposalAccepted:
		return m.handleProposalAccepted(ctx, e)
	case events.ProposalRejected:
		return m.handleProposalRejected(ctx, e)
	default:
		m.log.Debug("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadPurchased(ctx context.Context, e events.LeadPurchased) error {
	homeowner, err := m.recipients.GetUser(ctx, e.HomeownerID)
	if err != nil {
		return m.skip(e, err)
	}
	contractor, err := m.recipients.GetContractor(ctx, e.ContractorID)
	if err != nil {
		return m.skip(e, err)
	}

	if err := m.sender.SendLeadPurchasedEmail(ctx, homeowner.Email, homeowner.Name, contractor.Name, e.Title); err != nil {
		return m.failed(e, homeowner.Email, err)
	}
	m.log.Info("lead purchased email sent", "leadId", e.LeadID)
	return nil
}

func (m *Module) handleProposalSent(ctx context.Context, e events.ProposalSent) error {
	homeowner, err := m.recipients.GetUser(ctx, e.HomeownerID)
	if err != nil {
		return m.skip(e, err)
	}
	contractor, err := m.recipients.GetContractor(ctx, e.ContractorID)
	if err != nil {
		return m.skip(e, err)
	}
	title := m.projectTitle(ctx, e.ProjectID)

	url := fmt.Sprintf(proposalPathFmt, m.baseURL(), e.ProposalID)
	if err := m.sender.SendProposalReceivedEmail(ctx, homeowner.Email, homeowner.Name, contractor.Name, title, e.TotalCents, url); err != nil {
		return m.failed(e, homeowner.Email, err)
	}
	m.log.Info("proposal received email sent", "proposalId", e.ProposalID)
	return nil
}

// handleProposalAccepted mails the winning contractor and every contractor
// whose match was declined by the acceptance.
func (m *Module) handleProposalAccepted(ctx context.Context, e events.ProposalAccepted) error {
	title := m.projectTitle(ctx, e.ProjectID)

	winner, err := m.recipients.GetContractor(ctx, e.ContractorID)
	if err != nil {
		return m.skip(e, err)
	}
	url := fmt.Sprintf(projectPathFmt, m.baseURL(), e.ProjectID)
	if err := m.sender.SendProposalAcceptedEmail(ctx, winner.Email, winner.Name, title, e.TotalCents, url); err != nil {
		m.log.Warn("proposal accepted email failed", "proposalId", e.ProposalID, "error", err)
	}

	for _, contractorID := range e.DeclinedContractorIDs {
		m.notifyRejected(ctx, e.ProposalID, contractorID, title, true)
	}

	m.log.Info("proposal accepted event processed", "proposalId", e.ProposalID, "declined", len(e.DeclinedContractorIDs))
	return nil
}

func (m *Module) handleProposalRejected(ctx context.Context, e events.ProposalRejected) error {
	m.notifyRejected(ctx, e.ProposalID, e.ContractorID, m.projectTitle(ctx, e.ProjectID), false)
	return nil
}

func (m *Module) notifyRejected(ctx context.Context, proposalID, contractorID uuid.UUID, title string, otherAccepted bool) {
	contractor, err := m.recipients.GetContractor(ctx, contractorID)
	if err != nil {
		m.log.Warn("proposal rejection recipient lookup failed", "proposalId", proposalID, "contractorId", contractorID, "error", err)
		return
	}
	if err := m.sender.SendProposalRejectedEmail(ctx, contractor.Email, contractor.Name, title, otherAccepted); err != nil {
		m.log.Warn("proposal rejected email failed", "proposalId", proposalID, "contractorId", contractorID, "error", err)
	}
}

func (m *Module) projectTitle(ctx context.Context, projectID uuid.UUID) string {
	title, err := m.recipients.GetProjectTitle(ctx, projectID)
	if err != nil || strings.TrimSpace(title) == "" {
		return "your project"
	}
	return title
}

func (m *Module) baseURL() string {
	if m.cfg == nil {
		return ""
	}
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
}

func (m *Module) skip(e events.Event, err error) error {
	m.log.Warn("notification skipped", "event", e.EventName(), "error", err)
	return nil
}

func (m *Module) failed(e events.Event, to string, err error) error {
	m.log.Error("failed to send email", "event", e.EventName(), "to", to, "error", err)
	return err
}
