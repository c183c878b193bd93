package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// SpeechSignals is the delivery read of one audio chunk. WordsPerSec counts
// recognized words over spoken time; PauseRatio is the fraction of the
// chunk with no recognized speech; FillerRate is filler words per second.
type SpeechSignals struct {
	Transcript  string
	WordCount   int
	WordsPerSec float64
	PauseRatio  float64
	FillerRate  float64
	Confidence  float64
}

type SpeechTranscriber interface {
	RecognizeChunk(ctx context.Context, audio []byte, chunkDur time.Duration) (*SpeechSignals, error)
	Close() error
}

type speechTranscriber struct {
	log        *logger.Logger
	client     *speech.Client
	sampleRate int32
	language   string
}

func NewSpeechTranscriber(ctx context.Context, log *logger.Logger) (SpeechTranscriber, error) {
	client, err := speech.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &speechTranscriber{
		log:        log.With("service", "SpeechTranscriber"),
		client:     client,
		sampleRate: int32(envutil.Int("SPEECH_SAMPLE_RATE_HZ", 16000)),
		language:   envutil.String("SPEECH_LANGUAGE_CODE", "en-US"),
	}, nil
}

func (t *speechTranscriber) Close() error { return t.client.Close() }

var fillerWords = map[string]bool{
	"um": true, "uh": true, "erm": true, "hmm": true, "like": true,
}

func (t *speechTranscriber) RecognizeChunk(ctx context.Context, audio []byte, chunkDur time.Duration) (*SpeechSignals, error) {
	if chunkDur <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive")
	}
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:       t.sampleRate,
			LanguageCode:          t.language,
			EnableWordTimeOffsets: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recognize chunk: %w", err)
	}

	out := &SpeechSignals{}
	var parts []string
	var spoken time.Duration
	var confSum float64
	var confN int
	fillers := 0
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		parts = append(parts, alt.Transcript)
		confSum += float64(alt.Confidence)
		confN++
		for _, w := range alt.Words {
			out.WordCount++
			if fillerWords[strings.ToLower(strings.Trim(w.Word, ".,!?"))] {
				fillers++
			}
			if w.StartTime != nil && w.EndTime != nil {
				spoken += w.EndTime.AsDuration() - w.StartTime.AsDuration()
			}
		}
	}
	out.Transcript = strings.TrimSpace(strings.Join(parts, " "))
	secs := chunkDur.Seconds()
	out.WordsPerSec = float64(out.WordCount) / secs
	out.FillerRate = float64(fillers) / secs
	if confN > 0 {
		out.Confidence = confSum / float64(confN)
	}
	if spoken > chunkDur {
		spoken = chunkDur
	}
	out.PauseRatio = 1 - spoken.Seconds()/secs
	return out, nil
}
