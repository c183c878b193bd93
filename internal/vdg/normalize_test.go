package vdg

import (
	"encoding/json"
	"reflect"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestNormalizeHookGenomePreferred(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v3.4",
		HookGenome: &HookGenome{
			Pattern:  "problem_solution",
			StartSec: f64(0.5),
			EndSec:   f64(3.0),
			Microbeats: []Microbeat{
				{Role: "setup", Cue: "text"},
				{Role: "build", Cue: "visual"},
				{Role: "punch", Cue: "audio"},
			},
		},
		Hook: &LegacyHook{AttentionTechnique: "shock_open", HookDurationSec: 9},
	}
	dna := Normalize(doc)
	if dna.Hook.Type != "problem_solution" {
		t.Fatalf("hook type = %q, want problem_solution", dna.Hook.Type)
	}
	if dna.Hook.DurationSec != 2.5 {
		t.Fatalf("hook duration = %v, want 2.5", dna.Hook.DurationSec)
	}
	want := []string{"setup:text", "build:visual", "punch:audio"}
	if !reflect.DeepEqual(dna.MicrobeatSequence, want) {
		t.Fatalf("microbeats = %v, want %v", dna.MicrobeatSequence, want)
	}
}

func TestNormalizeLegacyHookFallback(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v3.0",
		Hook:          &LegacyHook{AttentionTechnique: "direct_question", HookDurationSec: 1.5},
	}
	dna := Normalize(doc)
	if dna.Hook.Type != "direct_question" {
		t.Fatalf("hook type = %q, want direct_question", dna.Hook.Type)
	}
	if dna.Hook.DurationSec != 1.5 {
		t.Fatalf("hook duration = %v, want 1.5", dna.Hook.DurationSec)
	}
}

func TestNormalizeSynthesizesMicrobeatsFromShots(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v3.2",
		HookGenome:    &HookGenome{Pattern: "reveal"},
		Scenes: []Scene{
			{Shots: []Shot{
				{Camera: Camera{Move: "push_in"}, VisualPattern: "close_up", AudioPattern: "beat_drop"},
				{Camera: Camera{Move: "whip_pan"}, VisualPattern: "wide", AudioPattern: "silence"},
			}},
			{Shots: []Shot{
				{Camera: Camera{Move: "static"}, VisualPattern: "product", AudioPattern: "voiceover"},
			}},
		},
	}
	dna := Normalize(doc)
	wantBeats := []string{"close_up:beat_drop", "wide:silence", "product:voiceover"}
	if !reflect.DeepEqual(dna.MicrobeatSequence, wantBeats) {
		t.Fatalf("microbeats = %v, want %v", dna.MicrobeatSequence, wantBeats)
	}
	wantMoves := []string{"push_in", "whip_pan", "static"}
	if !reflect.DeepEqual(dna.VisualPatterns, wantMoves) {
		t.Fatalf("visual patterns = %v, want %v", dna.VisualPatterns, wantMoves)
	}
}

func TestClassification(t *testing.T) {
	cases := []struct {
		name string
		doc  *Document
		want string
	}{
		{
			name: "text hook is semantic",
			doc: &Document{HookGenome: &HookGenome{
				Pattern: "text_overlay_question", Delivery: "text",
			}},
			want: PatternSemantic,
		},
		{
			name: "camera hook is visual",
			doc: &Document{HookGenome: &HookGenome{
				Pattern: "camera_whip", Delivery: "camera",
			}},
			want: PatternVisual,
		},
		{
			name: "trending audio is audio",
			doc: &Document{
				HookGenome: &HookGenome{Pattern: "reveal"},
				Audio:      &Audio{IsTrending: true},
			},
			want: PatternAudio,
		},
		{
			name: "multiple signals are hybrid",
			doc: &Document{
				HookGenome: &HookGenome{Pattern: "text_hook", Delivery: "text"},
				Audio:      &Audio{IsTrending: true},
			},
			want: PatternHybrid,
		},
		{
			name: "no signal defaults to semantic",
			doc:  &Document{HookGenome: &HookGenome{Pattern: "reveal"}},
			want: PatternSemantic,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.doc).PatternType; got != tc.want {
				t.Fatalf("pattern type = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeRawIdempotent(t *testing.T) {
	doc := &Document{
		SchemaVersion: "v3.4",
		HookGenome: &HookGenome{
			Pattern:    "problem_solution",
			StartSec:   f64(0),
			EndSec:     f64(2.5),
			Microbeats: []Microbeat{{Role: "setup", Cue: "text"}},
		},
	}
	first := Normalize(doc)

	raw, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := NormalizeRaw(raw)
	if err != nil {
		t.Fatalf("normalize raw: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-normalization changed DNA:\n first=%+v\nsecond=%+v", first, second)
	}
}

func TestDecodeV4Envelope(t *testing.T) {
	raw := []byte(`{
		"schema_version": "v4.1",
		"video_dna": {
			"hook_genome": {"pattern": "reveal", "hook_duration_sec": 2},
			"scenes": [{"shots": [{"camera": {"move": "push_in"}}]}]
		},
		"provenance": {"prompt_version": "p9", "model_id": "m1", "schema_version": "v4.1"}
	}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode v4: %v", err)
	}
	if doc.SchemaVersion != "v4.1" {
		t.Fatalf("schema version = %q", doc.SchemaVersion)
	}
	if doc.HookGenome == nil || doc.HookGenome.Pattern != "reveal" {
		t.Fatalf("hook genome not lifted from video_dna: %+v", doc.HookGenome)
	}
	if doc.Provenance == nil || doc.Provenance.PromptVersion != "p9" {
		t.Fatalf("provenance not carried: %+v", doc.Provenance)
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	if _, err := Decode([]byte(`{"schema_version": "v2.0"}`)); err == nil {
		t.Fatal("expected SchemaValidationError for v2.0")
	}
	if _, err := Decode([]byte(`{}`)); err == nil {
		t.Fatal("expected SchemaValidationError for missing version")
	}
}

func TestValidateContract(t *testing.T) {
	doc := &Document{SchemaVersion: "v3.3"}
	if _, err := ValidateContract(doc); err == nil {
		t.Fatal("expected error without hook_genome or intent_layer")
	}

	doc.HookGenome = &HookGenome{Pattern: "reveal"}
	warnings, err := ValidateContract(doc)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("want one microbeats warning, got %v", warnings)
	}

	doc.HookGenome.Microbeats = []Microbeat{{Role: "setup", Cue: "text"}}
	warnings, err = ValidateContract(doc)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("want no warnings, got %v", warnings)
	}
}
