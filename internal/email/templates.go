package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type proposalReceivedEmailData struct {
	baseEmailData
	HomeownerName  string
	ContractorName string
	ProjectTitle   string
	TotalFormatted string
}

type proposalAcceptedEmailData struct {
	baseEmailData
	ContractorName string
	ProjectTitle   string
	TotalFormatted string
}

type proposalRejectedEmailData struct {
	baseEmailData
	ContractorName string
	ProjectTitle   string
	OtherAccepted  bool
}

type leadPurchasedEmailData struct {
	baseEmailData
	HomeownerName  string
	ContractorName string
	LeadTitle      string
}

func renderProposalReceived(homeownerName, contractorName, projectTitle string, totalCents int64, proposalURL string) (string, error) {
	return renderEmailTemplate("proposal_received.html", proposalReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New proposal",
			Heading:  "You have a new proposal",
			CTALabel: "Review proposal",
			CTAURL:   proposalURL,
		},
		HomeownerName:  defaultName(homeownerName, "there"),
		ContractorName: defaultName(contractorName, "A contractor"),
		ProjectTitle:   projectTitle,
		TotalFormatted: formatCurrencyUSD(totalCents),
	})
}

func renderProposalAccepted(contractorName, projectTitle string, totalCents int64, projectURL string) (string, error) {
	return renderEmailTemplate("proposal_accepted.html", proposalAcceptedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Proposal accepted",
			Heading:  "Your proposal was accepted",
			CTALabel: "Open project",
			CTAURL:   projectURL,
		},
		ContractorName: defaultName(contractorName, "there"),
		ProjectTitle:   projectTitle,
		TotalFormatted: formatCurrencyUSD(totalCents),
	})
}

func renderProposalRejected(contractorName, projectTitle string, otherAccepted bool) (string, error) {
	return renderEmailTemplate("proposal_rejected.html", proposalRejectedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Proposal update",
			Heading: "Proposal not selected",
		},
		ContractorName: defaultName(contractorName, "there"),
		ProjectTitle:   projectTitle,
		OtherAccepted:  otherAccepted,
	})
}

func renderLeadPurchased(homeownerName, contractorName, leadTitle string) (string, error) {
	return renderEmailTemplate("lead_purchased.html", leadPurchasedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Contractor assigned",
			Heading: "A contractor picked up your project",
		},
		HomeownerName:  defaultName(homeownerName, "there"),
		ContractorName: defaultName(contractorName, "A verified contractor"),
		LeadTitle:      leadTitle,
	})
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyUSD(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func defaultName(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}
