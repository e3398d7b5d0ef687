package email

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendProposalReceivedEmail(ctx context.Context, toEmail, homeownerName, contractorName, projectTitle string, totalCents int64, proposalURL string) error {
	content, err := renderProposalReceived(homeownerName, contractorName, projectTitle, totalCents, proposalURL)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectProposalReceivedFmt, contractorName), content)
}

func (s *SMTPSender) SendProposalAcceptedEmail(ctx context.Context, toEmail, contractorName, projectTitle string, totalCents int64, projectURL string) error {
	content, err := renderProposalAccepted(contractorName, projectTitle, totalCents, projectURL)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectProposalAcceptedFmt, projectTitle), content)
}

func (s *SMTPSender) SendProposalRejectedEmail(ctx context.Context, toEmail, contractorName, projectTitle string, otherAccepted bool) error {
	content, err := renderProposalRejected(contractorName, projectTitle, otherAccepted)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectProposalRejectedFmt, projectTitle), content)
}

func (s *SMTPSender) SendLeadPurchasedEmail(ctx context.Context, toEmail, homeownerName, contractorName, leadTitle string) error {
	content, err := renderLeadPurchased(homeownerName, contractorName, leadTitle)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadPurchased, content)
}

var _ Sender = (*SMTPSender)(nil)
