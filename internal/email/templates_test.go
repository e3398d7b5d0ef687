package email

import (
	"strings"
	"testing"
)

func TestRenderProposalReceived(t *testing.T) {
	html, err := renderProposalReceived("Ana", "Acme Ramps", "Bathroom grab bars", 265000, "https://app.test/proposals/1")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Hi Ana", "Acme Ramps", "Bathroom grab bars", "$2650.00", `href="https://app.test/proposals/1"`} {
		if !strings.Contains(html, want) {
			t.Errorf("expected rendered email to contain %q", want)
		}
	}
}

func TestRenderEscapesUserInput(t *testing.T) {
	html, err := renderLeadPurchased("", "<script>x</script>", "Ramp")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("expected contractor name to be escaped")
	}
	if !strings.Contains(html, "Hi there") {
		t.Fatal("expected fallback greeting")
	}
}

func TestRenderProposalRejectedVariants(t *testing.T) {
	other, err := renderProposalRejected("Bo", "Ramp", true)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(other, "chose another contractor") {
		t.Error("expected the other-contractor wording")
	}

	plain, err := renderProposalRejected("Bo", "Ramp", false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(plain, "declined your proposal") {
		t.Error("expected the declined wording")
	}
}

func TestFormatCurrencyUSD(t *testing.T) {
	cases := map[int64]string{0: "$0.00", 5: "$0.05", 7550: "$75.50", -1999: "-$19.99"}
	for cents, want := range cases {
		if got := formatCurrencyUSD(cents); got != want {
			t.Errorf("formatCurrencyUSD(%d) = %q, want %q", cents, got, want)
		}
	}
}
