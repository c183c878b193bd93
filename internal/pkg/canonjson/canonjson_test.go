package canonjson

import "testing"

func TestHashIgnoresKeyOrder(t *testing.T) {
	a := []byte(`{"run_type":"CRAWLER","inputs":{"source":"mock","limit":5}}`)
	b := []byte(`{"inputs":{"limit":5,"source":"mock"},"run_type":"CRAWLER"}`)

	ha, err := HashRaw(a)
	if err != nil {
		t.Fatalf("HashRaw(a): %v", err)
	}
	hb, err := HashRaw(b)
	if err != nil {
		t.Fatalf("HashRaw(b): %v", err)
	}
	if ha != hb {
		t.Fatalf("hashes differ for equivalent documents: %s vs %s", ha, hb)
	}
	if len(ha) != 64 {
		t.Fatalf("expected sha256 hex, got %d chars", len(ha))
	}
}

func TestHashDistinguishesValues(t *testing.T) {
	ha, err := Hash(map[string]any{"limit": 5})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	hb, err := Hash(map[string]any{"limit": 6})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if ha == hb {
		t.Fatalf("different payloads produced identical hash %s", ha)
	}
}

func TestCanonicalizeNumberForm(t *testing.T) {
	out, err := CanonicalizeRaw([]byte(`{"score":1.0,"count":10}`))
	if err != nil {
		t.Fatalf("CanonicalizeRaw: %v", err)
	}
	want := `{"count":10,"score":1}`
	if string(out) != want {
		t.Fatalf("canonical form = %s, want %s", out, want)
	}
}
