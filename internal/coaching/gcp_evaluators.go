package coaching

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/gcp"
)

// VisionEvaluator reads composition metrics off a visual frame through the
// cloud vision client. Metric names carry the visual. prefix the pack rules
// target.
type VisionEvaluator struct {
	annotator gcp.FrameAnnotator
}

func NewVisionEvaluator(annotator gcp.FrameAnnotator) *VisionEvaluator {
	return &VisionEvaluator{annotator: annotator}
}

func (e *VisionEvaluator) Modality() string { return "visual" }

func (e *VisionEvaluator) Evaluate(ctx context.Context, frame Frame) ([]Measurement, error) {
	sig, err := e.annotator.AnnotateFrame(ctx, frame.Payload)
	if err != nil {
		return nil, err
	}
	return []Measurement{
		{Metric: "visual.face_count", Value: float64(sig.FaceCount), Confidence: sig.FaceConf},
		{Metric: "visual.face_area", Value: sig.FaceAreaFrac, Confidence: sig.FaceConf},
		{Metric: "visual.eye_contact", Value: eyeContact(sig), Confidence: sig.FaceConf},
		{Metric: "visual.brightness", Value: sig.Brightness, Confidence: 1},
	}, nil
}

// eyeContact degrades linearly from 1 at camera axis to 0 at 30 degrees of
// combined head rotation.
func eyeContact(sig *gcp.FrameSignals) float64 {
	if sig.FaceCount == 0 {
		return 0
	}
	off := math.Hypot(sig.PanAngle, sig.TiltAngle)
	v := 1 - off/30
	if v < 0 {
		return 0
	}
	return v
}

// SpeechEvaluator reads delivery metrics off a PCM16 mono audio chunk.
type SpeechEvaluator struct {
	transcriber gcp.SpeechTranscriber
	sampleRate  int
}

func NewSpeechEvaluator(transcriber gcp.SpeechTranscriber) *SpeechEvaluator {
	return &SpeechEvaluator{
		transcriber: transcriber,
		sampleRate:  envutil.Int("SPEECH_SAMPLE_RATE_HZ", 16000),
	}
}

func (e *SpeechEvaluator) Modality() string { return "audio" }

func (e *SpeechEvaluator) Evaluate(ctx context.Context, frame Frame) ([]Measurement, error) {
	samples := len(frame.Payload) / 2
	if samples == 0 {
		return nil, fmt.Errorf("empty audio chunk")
	}
	chunkDur := time.Duration(samples) * time.Second / time.Duration(e.sampleRate)
	sig, err := e.transcriber.RecognizeChunk(ctx, frame.Payload, chunkDur)
	if err != nil {
		return nil, err
	}
	return []Measurement{
		{Metric: "delivery.words_per_sec", Value: sig.WordsPerSec, Confidence: sig.Confidence},
		{Metric: "delivery.pause_ratio", Value: sig.PauseRatio, Confidence: sig.Confidence},
		{Metric: "delivery.filler_rate", Value: sig.FillerRate, Confidence: sig.Confidence},
		{Metric: "audio.word_count", Value: float64(sig.WordCount), Confidence: sig.Confidence},
	}, nil
}
