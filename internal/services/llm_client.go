package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/hooklab-media/hooklab-backend/internal/pkg/apperr"
	"github.com/hooklab-media/hooklab-backend/internal/platform/envutil"
	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

// VisionLLMClient produces VDG analysis payloads from video URLs and short
// free-form transcripts for decision records. The provider speaks an
// OpenAI-compatible chat API with JSON-schema response enforcement.
type VisionLLMClient interface {
	AnalyzeVideo(ctx context.Context, videoURL string, promptVersion, schemaVersion string) (json.RawMessage, error)
	GenerateTranscript(ctx context.Context, system, user string) (string, error)
}

type visionLLMClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewVisionLLMClient(baseLog *logger.Logger) (VisionLLMClient, error) {
	apiKey := envutil.String("VISION_LLM_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("missing VISION_LLM_API_KEY")
	}
	return &visionLLMClient{
		log:     baseLog.With("service", "VisionLLMClient"),
		baseURL: envutil.String("VISION_LLM_BASE_URL", "https://api.openai.com"),
		apiKey:  apiKey,
		model:   envutil.String("VISION_LLM_MODEL", "gpt-5.2"),
		httpClient: &http.Client{
			Timeout: envutil.Duration("VISION_LLM_TIMEOUT", 180*time.Second),
		},
		maxRetries: envutil.Int("VISION_LLM_MAX_RETRIES", 4),
	}, nil
}

type llmHTTPError struct {
	StatusCode int
	Body       string
}

func (e *llmHTTPError) Error() string {
	return fmt.Sprintf("vision llm http %d: %s", e.StatusCode, e.Body)
}

func retryableLLMErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *llmHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 408 || httpErr.StatusCode == 429 ||
			(httpErr.StatusCode >= 500 && httpErr.StatusCode <= 599)
	}
	return false
}

// jitter spreads retries by +/- 20% so parallel analysis workers don't
// hammer the provider in lockstep.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	f := 1 + 0.2*(2*rand.Float64()-1)
	return time.Duration(float64(base) * f)
}

const analyzePrompt = `You are a short-form video analyst. Watch the video at the given URL and emit a Video DNA Graph document following the provided schema exactly. Report timings in milliseconds from video start. Only include elements you actually observe.`

func (c *visionLLMClient) AnalyzeVideo(ctx context.Context, videoURL string, promptVersion, schemaVersion string) (json.RawMessage, error) {
	userMsg := fmt.Sprintf("video_url: %s\nprompt_version: %s\nschema_version: %s", videoURL, promptVersion, schemaVersion)
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "system", "content": analyzePrompt},
			{"role": "user", "content": userMsg},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "video_dna_graph",
				"schema": vdgResponseSchema(schemaVersion),
			},
		},
	}
	content, err := c.chat(ctx, body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(content), nil
}

func (c *visionLLMClient) GenerateTranscript(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	return c.chat(ctx, body)
}

func (c *visionLLMClient) chat(ctx context.Context, body map[string]any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(jitter(time.Duration(attempt) * 500 * time.Millisecond)):
			}
		}
		started := time.Now()
		content, err := c.doChat(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if errors.Is(err, context.DeadlineExceeded) {
			lastErr = &apperr.ExternalTimeoutError{Op: "vision_llm.chat", Elapsed: time.Since(started), Err: err}
		}
		if ctx.Err() != nil || !retryableLLMErr(err) {
			break
		}
		c.log.Warn("vision llm retry", "attempt", attempt+1, "error", err)
	}
	return "", lastErr
}

func (c *visionLLMClient) doChat(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &llmHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// vdgResponseSchema is the declared contract the provider must satisfy. The
// normalizer and proof gate re-validate; the schema here front-loads the
// obvious failures.
func vdgResponseSchema(schemaVersion string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"schema_version": map[string]any{"type": "string", "const": schemaVersion},
			"duration_ms":    map[string]any{"type": "integer", "minimum": 0},
			"hook_genome": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type":      map[string]any{"type": "string"},
					"start_sec": map[string]any{"type": "number"},
					"end_sec":   map[string]any{"type": "number"},
				},
			},
			"microbeats": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"role": map[string]any{"type": "string"},
						"cue":  map[string]any{"type": "string"},
					},
				},
			},
			"scenes":            map[string]any{"type": "array"},
			"viral_kicks":       map[string]any{"type": "array"},
			"audience_reaction": map[string]any{"type": "object"},
			"audio":             map[string]any{"type": "object"},
			"provenance": map[string]any{
				"type":     "object",
				"required": []string{"prompt_version", "model_id", "schema_version"},
			},
		},
		"required": []string{"schema_version", "duration_ms", "provenance"},
	}
}
