// Package nlp talks to the external sentiment and summarization service
// and enriches article datasets with its labels.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/observability"
)

// Provider specifies which inference backend to use.
type Provider string

const (
	ProviderHuggingFace Provider = "huggingface"
	ProviderOllama      Provider = "ollama"
	ProviderOpenAI      Provider = "openai"
	ProviderCustom      Provider = "custom"
)

// Sentiment labels.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelEmpty    = "EMPTY"
	LabelError    = "ERROR"
)

// Sentiment is one classification result.
type Sentiment struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"score"`
}

// Analyzer classifies the sentiment of a text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Sentiment, error)
}

// Summarizer condenses a text to between minLen and maxLen tokens.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// Client implements Analyzer and Summarizer against the configured provider.
type Client struct {
	cfg     config.NLPConfig
	client  *http.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

// WithMetrics records every call.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a new NLP client.
func NewClient(cfg config.NLPConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "nlp_client", "provider", cfg.Provider),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze classifies text. Callers truncate the input.
func (c *Client) Analyze(ctx context.Context, text string) (s Sentiment, err error) {
	defer func() { c.metrics.NLPCall("sentiment", err) }()

	switch Provider(c.cfg.Provider) {
	case ProviderHuggingFace:
		return c.analyzeHuggingFace(ctx, text)
	case ProviderOllama, ProviderOpenAI, ProviderCustom:
		return c.analyzeLLM(ctx, text)
	default:
		return Sentiment{}, fmt.Errorf("unsupported NLP provider: %s", c.cfg.Provider)
	}
}

// Summarize condenses text. Callers truncate the input.
func (c *Client) Summarize(ctx context.Context, text string, maxLen, minLen int) (summary string, err error) {
	defer func() { c.metrics.NLPCall("summary", err) }()

	switch Provider(c.cfg.Provider) {
	case ProviderHuggingFace:
		return c.summarizeHuggingFace(ctx, text, maxLen, minLen)
	case ProviderOllama, ProviderOpenAI, ProviderCustom:
		prompt := fmt.Sprintf("Summarize the following news article in 2-3 sentences, between %d and %d words:\n\n%s", minLen, maxLen, text)
		out, err := c.generate(ctx, c.cfg.SummaryModel, prompt)
		return strings.TrimSpace(out), err
	default:
		return "", fmt.Errorf("unsupported NLP provider: %s", c.cfg.Provider)
	}
}

// --- Hugging Face Inference API ---

func (c *Client) analyzeHuggingFace(ctx context.Context, text string) (Sentiment, error) {
	raw, err := c.postJSON(ctx, c.modelURL(c.cfg.SentimentModel), map[string]any{"inputs": text})
	if err != nil {
		return Sentiment{}, err
	}

	// The API nests scores per input: [[{label, score}, ...]]; some
	// deployments return the flat list.
	var nested [][]Sentiment
	if err := json.Unmarshal(raw, &nested); err != nil || len(nested) == 0 {
		var flat []Sentiment
		if err := json.Unmarshal(raw, &flat); err != nil {
			return Sentiment{}, fmt.Errorf("decode sentiment response: %w", err)
		}
		nested = [][]Sentiment{flat}
	}
	return best(nested[0])
}

func (c *Client) summarizeHuggingFace(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	raw, err := c.postJSON(ctx, c.modelURL(c.cfg.SummaryModel), map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"max_length": maxLen,
			"min_length": minLen,
			"do_sample":  false,
		},
	})
	if err != nil {
		return "", err
	}

	var result []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode summary response: %w", err)
	}
	if len(result) == 0 {
		return "", errors.New("no summary in response")
	}
	return strings.TrimSpace(result[0].SummaryText), nil
}

func (c *Client) modelURL(model string) string {
	return strings.TrimRight(c.cfg.Endpoint, "/") + "/models/" + model
}

// --- LLM providers ---

func (c *Client) analyzeLLM(ctx context.Context, text string) (Sentiment, error) {
	prompt := fmt.Sprintf(`Classify the sentiment of the following news text. Return only JSON with:
- "label": "POSITIVE" or "NEGATIVE"
- "score": confidence from 0.0 to 1.0

Text: %s`, text)

	out, err := c.generate(ctx, c.cfg.SentimentModel, prompt)
	if err != nil {
		return Sentiment{}, err
	}
	var s Sentiment
	if err := json.Unmarshal([]byte(extractJSON(out)), &s); err != nil {
		return Sentiment{}, fmt.Errorf("decode sentiment: %w", err)
	}
	return best([]Sentiment{s})
}

func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	switch Provider(c.cfg.Provider) {
	case ProviderOllama:
		raw, err := c.postJSON(ctx, strings.TrimRight(c.cfg.Endpoint, "/")+"/api/generate", map[string]any{
			"model":  model,
			"prompt": prompt,
			"stream": false,
		})
		if err != nil {
			return "", err
		}
		var result struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return "", fmt.Errorf("decode ollama response: %w", err)
		}
		return result.Response, nil

	case ProviderOpenAI:
		endpoint := c.cfg.Endpoint
		if endpoint == "" {
			endpoint = "https://api.openai.com/v1"
		}
		raw, err := c.postJSON(ctx, strings.TrimRight(endpoint, "/")+"/chat/completions", map[string]any{
			"model": model,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"temperature": 0,
		})
		if err != nil {
			return "", err
		}
		var result struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return "", fmt.Errorf("decode openai response: %w", err)
		}
		if len(result.Choices) == 0 {
			return "", errors.New("no choices in openai response")
		}
		return result.Choices[0].Message.Content, nil

	default:
		raw, err := c.postJSON(ctx, c.cfg.Endpoint, map[string]any{
			"prompt": prompt,
			"model":  model,
		})
		return string(raw), err
	}
}

// postJSON sends payload and returns the body of a 2xx response.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.cfg.Provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, fmt.Errorf("%s: HTTP %d: %s", c.cfg.Provider, resp.StatusCode, truncateBytes(msg, 200))
	}
	c.logger.Debug("nlp call complete", "endpoint", endpoint, "size", len(raw))
	return raw, nil
}

// best returns the highest-scoring label, upper-cased.
func best(scores []Sentiment) (Sentiment, error) {
	if len(scores) == 0 {
		return Sentiment{}, errors.New("empty sentiment response")
	}
	top := scores[0]
	for _, s := range scores[1:] {
		if s.Confidence > top.Confidence {
			top = s
		}
	}
	top.Label = strings.ToUpper(strings.TrimSpace(top.Label))
	if top.Label == "" {
		return Sentiment{}, errors.New("sentiment response has no label")
	}
	return top, nil
}

// extractJSON finds the first JSON object in an LLM response.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return "{}"
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return "{}"
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return Truncate(s, n) + "..."
}
