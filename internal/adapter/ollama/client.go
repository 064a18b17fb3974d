// Package ollama adapts the external Ollama inference service to the
// domain.LLMClient port.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"criteria-analyzer/internal/domain"
)

const (
	generateEndpoint = "/api/generate"
	tagsEndpoint     = "/api/tags"
	keepAlive        = "5m"

	healthCheckTimeout = 5 * time.Second
)

// ParseErrorSummary is the verdict summary used when the model response is
// not the expected JSON object. It is a fixed marker so downstream consumers
// can recognize degraded events.
const ParseErrorSummary = "failed to parse model response"

const systemPrompt = `You are an expert text analyst.
Your task is to decide whether a text matches a given criterion.

Respond strictly with a single JSON object:
{
    "is_match": true/false,
    "confidence": 0.0-1.0,
    "summary": "a short explanation"
}

is_match - whether the text matches the criterion
confidence - certainty of the verdict (0.0-1.0)
summary - a short explanation`

// Options are the sampling parameters forwarded to the model.
type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

type generateRequest struct {
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	Stream    bool            `json:"stream"`
	KeepAlive string          `json:"keep_alive"`
	Options   generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// verdict is the JSON object the model is instructed to embed in its response.
type verdict struct {
	IsMatch    bool    `json:"is_match"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one model known to the inference service.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// Client calls the Ollama generate endpoint and parses structured verdicts.
type Client struct {
	baseURL    string
	model      string
	options    Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a client for the given endpoint and model name.
func NewClient(baseURL, model string, options Options, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		options: options,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Analyze evaluates the text against one criterion. Failures never propagate:
// a transport error or an unparsable response yields a fallback verdict with
// no match and zero confidence, and latency is measured around the call on
// every path.
func (c *Client) Analyze(ctx context.Context, text, criterionText string) *domain.AnalysisResult {
	start := time.Now()

	userPrompt := fmt.Sprintf("Criterion: %s\n\nText to analyze: %s\n\nAnalyze the text and decide whether it matches the criterion.", criterionText, text)

	reqBody := generateRequest{
		Model:     c.model,
		Prompt:    systemPrompt + "\n\n" + userPrompt,
		Stream:    false,
		KeepAlive: keepAlive,
		Options: generateOptions{
			Temperature: c.options.Temperature,
			TopP:        c.options.TopP,
			TopK:        c.options.TopK,
			NumPredict:  c.options.MaxTokens,
		},
	}

	raw, err := c.generate(ctx, reqBody)
	if err != nil {
		c.logger.Error("inference call failed", "model", c.model, "error", err)
		return c.fallback(fmt.Sprintf("analysis request failed: %v", err), start)
	}

	var v verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		c.logger.Warn("unparsable model response", "model", c.model, "error", err)
		return c.fallback(ParseErrorSummary, start)
	}

	return &domain.AnalysisResult{
		IsMatch:    v.IsMatch,
		Confidence: clamp01(v.Confidence),
		Summary:    v.Summary,
		ModelName:  c.model,
		LatencyMS:  time.Since(start).Milliseconds(),
	}
}

func (c *Client) generate(ctx context.Context, reqBody generateRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generateEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call generate endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("generate endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	return genResp.Response, nil
}

func (c *Client) fallback(summary string, start time.Time) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		IsMatch:    false,
		Confidence: 0.0,
		Summary:    summary,
		ModelName:  c.model,
		LatencyMS:  time.Since(start).Milliseconds(),
	}
}

// HealthCheck reports readiness via the tags metadata endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tagsEndpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Models lists the models available on the inference service.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tagsEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tags request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call tags endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tags endpoint returned %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags response: %w", err)
	}
	return tags.Models, nil
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.model
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ domain.LLMClient = (*Client)(nil)
