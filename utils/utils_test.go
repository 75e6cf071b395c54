package utils

import "testing"

func TestConversions(t *testing.T) {
	if got := B2S([]byte("HEARTBEAT")); got != "HEARTBEAT" {
		t.Fatalf("B2S = %q", got)
	}
	if got := string(S2B("HEARTBEAT")); got != "HEARTBEAT" {
		t.Fatalf("S2B = %q", got)
	}
	if S2B("") != nil {
		t.Fatal("S2B of empty string must be nil")
	}
}
