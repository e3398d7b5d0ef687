package assessment

import "testing"

func TestDecodeAcceptsStringsAndObjects(t *testing.T) {
	recs, err := Decode([]byte(`["Install GRAB BARS by toilet", {"title":"Ramp","description":"Add a ramp at the front door","priority":"high"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].Text() != "install grab bars by toilet" || recs[0].Label() != "Install GRAB BARS by toilet" {
		t.Fatalf("unexpected string recommendation %+v", recs[0])
	}
	if recs[1].Label() != "Ramp" || recs[1].Priority != "high" {
		t.Fatalf("unexpected object recommendation %+v", recs[1])
	}
}

func TestDecodeEmpty(t *testing.T) {
	recs, err := Decode(nil)
	if err != nil || recs != nil {
		t.Fatalf("expected nil, got %v %v", recs, err)
	}
}
