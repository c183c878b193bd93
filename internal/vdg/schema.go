// Package vdg decodes Video DNA Genome analysis blobs and normalizes them
// into the version-independent shape the clustering engine consumes. This is
// the only package that touches version-specific fields; everything
// downstream sees NormalizedDNA.
package vdg

import (
	"encoding/json"
	"strings"

	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
)

// Supported schema versions: v3.0 through v3.6 lay the genome out at the top
// level; v4.x nests it under "video_dna".
var supportedV3 = map[string]bool{
	"v3.0": true, "v3.1": true, "v3.2": true, "v3.3": true,
	"v3.4": true, "v3.5": true, "v3.6": true,
}

func SupportedVersion(v string) bool {
	if supportedV3[v] {
		return true
	}
	return strings.HasPrefix(v, "v4.")
}

// Microbeat is one beat of the hook: a role ("setup", "build", "punch") and
// the cue modality that lands it.
type Microbeat struct {
	Role  string  `json:"role"`
	Cue   string  `json:"cue"`
	AtSec float64 `json:"at_sec,omitempty"`
}

type HookGenome struct {
	Pattern         string      `json:"pattern"`
	StartSec        *float64    `json:"start_sec,omitempty"`
	EndSec          *float64    `json:"end_sec,omitempty"`
	HookDurationSec float64     `json:"hook_duration_sec,omitempty"`
	Delivery        string      `json:"delivery,omitempty"`
	Microbeats      []Microbeat `json:"microbeats,omitempty"`
}

// LegacyHook is the pre-genome hook block some v3 payloads still carry.
type LegacyHook struct {
	AttentionTechnique string  `json:"attention_technique"`
	HookDurationSec    float64 `json:"hook_duration_sec,omitempty"`
	Delivery           string  `json:"delivery,omitempty"`
}

type Camera struct {
	Move  string `json:"move"`
	Angle string `json:"angle,omitempty"`
}

type Shot struct {
	Camera        Camera `json:"camera"`
	Composition   string `json:"composition,omitempty"`
	VisualPattern string `json:"visual_pattern,omitempty"`
	AudioPattern  string `json:"audio_pattern,omitempty"`
}

type Scene struct {
	Shots []Shot `json:"shots"`
}

type FocusWindow struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Subject  string  `json:"subject,omitempty"`
}

// ViralKick marks one spike moment with its three keyframes. The quality gate
// requires all three, ordered, and inside the video.
type ViralKick struct {
	Label   string `json:"label,omitempty"`
	StartMS *int64 `json:"start_ms,omitempty"`
	PeakMS  *int64 `json:"peak_ms,omitempty"`
	EndMS   *int64 `json:"end_ms,omitempty"`
}

type CommentAnchor struct {
	Rank int    `json:"rank"`
	Text string `json:"text,omitempty"`
}

type AudienceReaction struct {
	CommentAnchors []CommentAnchor `json:"comment_anchors,omitempty"`
	Sentiment      string          `json:"sentiment,omitempty"`
}

type Audio struct {
	IsTrending    bool     `json:"is_trending"`
	DominantStems []string `json:"dominant_stems,omitempty"`
}

type Provenance struct {
	PromptVersion string `json:"prompt_version"`
	ModelID       string `json:"model_id"`
	SchemaVersion string `json:"schema_version"`
}

// Document is the decoded, version-independent view of a VDG payload. Decode
// fills it from whichever layout the schema version uses.
type Document struct {
	SchemaVersion    string            `json:"schema_version"`
	DurationMS       int64             `json:"duration_ms,omitempty"`
	HookGenome       *HookGenome       `json:"hook_genome,omitempty"`
	Hook             *LegacyHook       `json:"hook,omitempty"`
	Scenes           []Scene           `json:"scenes,omitempty"`
	IntentLayer      map[string]any    `json:"intent_layer,omitempty"`
	FocusWindows     []FocusWindow     `json:"focus_windows,omitempty"`
	ViralKicks       []ViralKick       `json:"viral_kicks,omitempty"`
	AudienceReaction *AudienceReaction `json:"audience_reaction,omitempty"`
	Audio            *Audio            `json:"audio,omitempty"`
	Provenance       *Provenance       `json:"provenance,omitempty"`
}

// v4Envelope is the v4.x layout: the genome body moved under video_dna while
// provenance stayed at the top level.
type v4Envelope struct {
	SchemaVersion string      `json:"schema_version"`
	VideoDNA      *Document   `json:"video_dna"`
	Provenance    *Provenance `json:"provenance,omitempty"`
}

// Decode parses a raw analysis payload for any supported schema version.
// Unknown keys are ignored; a missing or unsupported schema_version is a
// SchemaValidationError.
func Decode(raw []byte) (*Document, error) {
	var probe struct {
		SchemaVersion string `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &apperr.SchemaValidationError{Reason: "payload is not a JSON object: " + err.Error()}
	}
	if probe.SchemaVersion == "" {
		return nil, &apperr.SchemaValidationError{Field: "schema_version", Reason: "missing"}
	}
	if !SupportedVersion(probe.SchemaVersion) {
		return nil, &apperr.SchemaValidationError{
			SchemaVersion: probe.SchemaVersion,
			Field:         "schema_version",
			Reason:        "unsupported version",
		}
	}

	if strings.HasPrefix(probe.SchemaVersion, "v4.") {
		var env v4Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, &apperr.SchemaValidationError{SchemaVersion: probe.SchemaVersion, Reason: err.Error()}
		}
		doc := env.VideoDNA
		if doc == nil {
			doc = &Document{}
		}
		doc.SchemaVersion = env.SchemaVersion
		if doc.Provenance == nil {
			doc.Provenance = env.Provenance
		}
		return doc, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &apperr.SchemaValidationError{SchemaVersion: probe.SchemaVersion, Reason: err.Error()}
	}
	return &doc, nil
}
