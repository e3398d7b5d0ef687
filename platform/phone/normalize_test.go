package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(201) 555-0123", "+12015550123"},
		{"+1 201 555 0123", "+12015550123"},
		{"  ", ""},
		{"not a number", "not a number"},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.in); got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeOptional(t *testing.T) {
	if NormalizeOptional(nil) != nil {
		t.Fatal("nil input must stay nil")
	}
	blank := " "
	if NormalizeOptional(&blank) != nil {
		t.Fatal("blank input must become nil")
	}
}
