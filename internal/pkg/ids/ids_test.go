package ids

import (
	"strings"
	"testing"
	"time"
)

func TestNewDeterministicWithMaterial(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	a := New("cl", at, "node-abc", "tiktok")
	b := New("cl", at, "node-abc", "tiktok")
	if a != b {
		t.Fatalf("same material minted different ids: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "cl_20260314T092653_") {
		t.Fatalf("unexpected shape: %s", a)
	}
	parts := strings.Split(a, "_")
	if len(parts) != 3 || len(parts[2]) != 8 {
		t.Fatalf("expected kind_ts_hash8, got %s", a)
	}
}

func TestNewRandomWithoutMaterial(t *testing.T) {
	at := time.Now()
	a := New("run", at)
	b := New("run", at)
	if a == b {
		t.Fatalf("two nonce ids collided: %s", a)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("hook", "pov_reveal", "tiktok")
	b := Fingerprint("hook", "pov_reveal", "tiktok")
	if a != b || len(a) != 16 {
		t.Fatalf("fingerprint not stable 16-hex: %s vs %s", a, b)
	}
	if Fingerprint("hook", "pov_reveal") == Fingerprint("hook", "pov", "_reveal") {
		t.Fatal("separator must prevent concatenation collisions")
	}
}
