package email

import (
	"context"

	"homeaccess_backend/platform/config"
)

// Sender delivers the marketplace's transactional emails.
type Sender interface {
	SendProposalReceivedEmail(ctx context.Context, toEmail, homeownerName, contractorName, projectTitle string, totalCents int64, proposalURL string) error
	SendProposalAcceptedEmail(ctx context.Context, toEmail, contractorName, projectTitle string, totalCents int64, projectURL string) error
	SendProposalRejectedEmail(ctx context.Context, toEmail, contractorName, projectTitle string, otherAccepted bool) error
	SendLeadPurchasedEmail(ctx context.Context, toEmail, homeownerName, contractorName, leadTitle string) error
}

type NoopSender struct{}

func (NoopSender) SendProposalReceivedEmail(context.Context, string, string, string, string, int64, string) error {
	return nil
}

func (NoopSender) SendProposalAcceptedEmail(context.Context, string, string, string, int64, string) error {
	return nil
}

func (NoopSender) SendProposalRejectedEmail(context.Context, string, string, string, bool) error {
	return nil
}

func (NoopSender) SendLeadPurchasedEmail(context.Context, string, string, string, string) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
