package vdg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Pattern types a normalized DNA can classify as.
const (
	PatternSemantic = "semantic"
	PatternVisual   = "visual"
	PatternAudio    = "audio"
	PatternHybrid   = "hybrid"
)

type HookDNA struct {
	Type        string  `json:"type"`
	DurationSec float64 `json:"duration_sec"`
	Delivery    string  `json:"delivery,omitempty"`
}

type AudioFlags struct {
	IsTrending    bool     `json:"is_trending"`
	DominantStems []string `json:"dominant_stems,omitempty"`
}

// NormalizedDNA is the schema-version-independent shape downstream code
// consumes. Microbeat items are "role:cue" tokens; visual patterns are camera
// moves flattened in shot order.
type NormalizedDNA struct {
	Hook              HookDNA    `json:"hook"`
	MicrobeatSequence []string   `json:"microbeat_sequence"`
	VisualPatterns    []string   `json:"visual_patterns"`
	AudioFlags        AudioFlags `json:"audio_flags"`
	PatternType       string     `json:"pattern_type"`
}

// Normalize maps a decoded VDG document to NormalizedDNA. Every section
// degrades gracefully: missing hook fields fall back to the legacy block,
// missing microbeats are synthesized from shots, absent sections yield empty
// values. It never fails on shape drift.
func Normalize(doc *Document) NormalizedDNA {
	if doc == nil {
		return NormalizedDNA{PatternType: PatternSemantic}
	}

	dna := NormalizedDNA{
		Hook:              normalizeHook(doc),
		MicrobeatSequence: microbeatSequence(doc),
		VisualPatterns:    visualPatterns(doc),
	}
	if doc.Audio != nil {
		dna.AudioFlags = AudioFlags{
			IsTrending:    doc.Audio.IsTrending,
			DominantStems: doc.Audio.DominantStems,
		}
	}
	dna.PatternType = classify(dna)
	return dna
}

// NormalizeRaw accepts either a raw VDG payload or an already-normalized
// DNA document. Re-normalizing a normalized document is the identity.
func NormalizeRaw(raw []byte) (NormalizedDNA, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return NormalizedDNA{}, fmt.Errorf("vdg: normalize raw: %w", err)
	}
	if _, ok := probe["pattern_type"]; ok {
		if _, ok := probe["microbeat_sequence"]; ok {
			var dna NormalizedDNA
			if err := json.Unmarshal(raw, &dna); err != nil {
				return NormalizedDNA{}, fmt.Errorf("vdg: decode normalized: %w", err)
			}
			if dna.PatternType == "" {
				dna.PatternType = classify(dna)
			}
			return dna, nil
		}
	}
	doc, err := Decode(raw)
	if err != nil {
		return NormalizedDNA{}, err
	}
	return Normalize(doc), nil
}

// normalizeHook prefers hook_genome.pattern over hook.attention_technique,
// and end-start over the declared duration.
func normalizeHook(doc *Document) HookDNA {
	var h HookDNA
	if doc.HookGenome != nil {
		h.Type = doc.HookGenome.Pattern
		h.Delivery = doc.HookGenome.Delivery
		if doc.HookGenome.StartSec != nil && doc.HookGenome.EndSec != nil {
			h.DurationSec = *doc.HookGenome.EndSec - *doc.HookGenome.StartSec
		} else if doc.HookGenome.HookDurationSec > 0 {
			h.DurationSec = doc.HookGenome.HookDurationSec
		}
	}
	if doc.Hook != nil {
		if h.Type == "" {
			h.Type = doc.Hook.AttentionTechnique
		}
		if h.Delivery == "" {
			h.Delivery = doc.Hook.Delivery
		}
		if h.DurationSec == 0 && doc.Hook.HookDurationSec > 0 {
			h.DurationSec = doc.Hook.HookDurationSec
		}
	}
	if h.DurationSec < 0 {
		h.DurationSec = 0
	}
	return h
}

// microbeatSequence concatenates "role:cue" per microbeat. When the genome
// carries none, the sequence is synthesized from the scene shots by pairing
// each shot's visual pattern with its audio pattern.
func microbeatSequence(doc *Document) []string {
	if doc.HookGenome != nil && len(doc.HookGenome.Microbeats) > 0 {
		out := make([]string, 0, len(doc.HookGenome.Microbeats))
		for _, mb := range doc.HookGenome.Microbeats {
			out = append(out, mb.Role+":"+mb.Cue)
		}
		return out
	}
	var out []string
	for _, scene := range doc.Scenes {
		for _, shot := range scene.Shots {
			if shot.VisualPattern == "" && shot.AudioPattern == "" {
				continue
			}
			out = append(out, shot.VisualPattern+":"+shot.AudioPattern)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// visualPatterns flattens scenes[].shots[].camera.move, preserving insertion
// order and skipping empty moves.
func visualPatterns(doc *Document) []string {
	var out []string
	for _, scene := range doc.Scenes {
		for _, shot := range scene.Shots {
			if shot.Camera.Move == "" {
				continue
			}
			out = append(out, shot.Camera.Move)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// classify applies the rule set over the normalized fields: text signals mean
// semantic, camera signals mean visual, a trending sound means audio, and
// more than one signal means hybrid. With no signal at all the DNA defaults
// to semantic.
func classify(dna NormalizedDNA) string {
	semantic := dna.Hook.Delivery == "text" ||
		strings.Contains(dna.Hook.Type, "text") ||
		hasCue(dna.MicrobeatSequence, "text")
	visual := dna.Hook.Delivery == "camera" ||
		strings.Contains(dna.Hook.Type, "camera") ||
		hasCue(dna.MicrobeatSequence, "camera")
	audio := dna.AudioFlags.IsTrending

	n := 0
	for _, hit := range []bool{semantic, visual, audio} {
		if hit {
			n++
		}
	}
	switch {
	case n > 1:
		return PatternHybrid
	case visual:
		return PatternVisual
	case audio:
		return PatternAudio
	default:
		return PatternSemantic
	}
}

func hasCue(sequence []string, cue string) bool {
	for _, item := range sequence {
		if _, c, ok := strings.Cut(item, ":"); ok && c == cue {
			return true
		}
	}
	return false
}
