package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
)

const (
	DefaultURL         = "https://api.perplexity.ai/chat/completions"
	DefaultModel       = "sonar"
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.2
	DefaultTimeout     = 30 * time.Second
)

type Config struct {
	APIKey      string
	URL         string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds a request whose context carries no deadline.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the chat completions endpoint. It performs exactly one HTTP
// request per Complete; retry policy belongs to the caller.
type Client struct {
	cfg Config
}

var _ llm.Caller = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("PERPLEXITY_API_KEY not configured")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{cfg: cfg}, nil
}

func (c *Client) ModelName() string { return c.cfg.Model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model                  string    `json:"model"`
	Messages               []message `json:"messages"`
	MaxTokens              int       `json:"max_tokens"`
	Temperature            float64   `json:"temperature"`
	ReturnCitations        bool      `json:"return_citations"`
	ReturnImages           bool      `json:"return_images"`
	ReturnRelatedQuestions bool      `json:"return_related_questions"`
	Stream                 bool      `json:"stream"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Citations []string  `json:"citations"`
	Usage     llm.Usage `json:"usage"`
}

// ErrEmptyChoices is returned for a 200 response without choices.
var ErrEmptyChoices = errors.New("unexpected response structure: no choices")

func (c *Client) Complete(ctx context.Context, p llm.Prompt) (llm.Completion, error) {
	ctx, span := otel.Tracer("newsgen/perplexity").Start(ctx, "perplexity.complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.cfg.Model), attribute.Int("llm.prompt_chars", len(p.User)))

	out, code, err := c.do(ctx, p)
	span.SetAttributes(attribute.Int("http.status_code", code))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, llm.Classify(err).String())
		return llm.Completion{}, err
	}
	span.SetAttributes(attribute.Int("llm.total_tokens", out.Usage.TotalTokens))
	return out, nil
}

func (c *Client) do(ctx context.Context, p llm.Prompt) (llm.Completion, int, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var msgs []message
	if p.System != "" {
		msgs = append(msgs, message{Role: "system", Content: p.System})
	}
	msgs = append(msgs, message{Role: "user", Content: p.User})
	payload, err := json.Marshal(request{
		Model:           c.cfg.Model,
		Messages:        msgs,
		MaxTokens:       c.cfg.MaxTokens,
		Temperature:     c.cfg.Temperature,
		ReturnCitations: true,
		Stream:          false,
	})
	if err != nil {
		return llm.Completion{}, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return llm.Completion{}, 0, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<20))

	if res.StatusCode != http.StatusOK {
		return llm.Completion{}, res.StatusCode, &llm.StatusError{Code: res.StatusCode, Body: clamp(string(body), 500)}
	}
	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Completion{}, res.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return llm.Completion{}, res.StatusCode, ErrEmptyChoices
	}
	return llm.Completion{
		Content:   parsed.Choices[0].Message.Content,
		Citations: parsed.Citations,
		Usage:     parsed.Usage,
		Raw:       json.RawMessage(body),
	}, res.StatusCode, nil
}

func clamp(s string, n int) string {
	return llm.TruncateRunes(s, n)
}
