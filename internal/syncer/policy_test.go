package syncer

import "testing"

func TestParsePolicy(t *testing.T) {
	if got, err := ParsePolicy("additive"); err != nil || got != PolicyAdditive {
		t.Fatalf("ParsePolicy(additive) = (%v, %v)", got, err)
	}
	if _, err := ParsePolicy("symmetric"); err == nil {
		t.Fatalf("symmetric policy should be rejected until it is implemented")
	}
	if _, err := ParsePolicy("mirror"); err == nil {
		t.Fatalf("unknown policy should be rejected")
	}
}
