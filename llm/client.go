package llm

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

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	defaultTemperature    = 0.7
)

// ErrNotConfigured is returned when no API key has been set.
var ErrNotConfigured = errors.New("llm API key not configured")

// Config holds client settings. Empty fields fall back to defaults.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Temperature    *float64
	Timeout        time.Duration
	MaxRetries     int
}

// Client talks to an OpenAI-compatible chat completions and embeddings API.
type Client struct {
	config Config
	http   *retryablehttp.Client
	log    *logrus.Entry
}

func NewClient(config Config, log *logrus.Entry) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = DefaultEmbeddingModel
	}
	if config.Temperature == nil {
		t := defaultTemperature
		config.Temperature = &t
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	log = log.WithField("component", "llm_client")

	rc := retryablehttp.NewClient()
	rc.RetryMax = config.MaxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = config.Timeout
	rc.Logger = nil
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"url":     req.URL.String(),
			}).Warn("Retrying LLM request")
		}
	}

	return &Client{config: config, http: rc, log: log}
}

// Complete sends the conversation and returns the model's reply, including
// any tool calls it requested.
func (c *Client) Complete(ctx context.Context, messages []Message, tools []Tool) (*Completion, error) {
	req := chatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: *c.config.Temperature,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, toolSpec{Type: "function", Function: t})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	var resp chatCompletionResponse
	if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices from model")
	}

	msg := resp.Choices[0].Message
	completion := &Completion{Content: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			return nil, fmt.Errorf("tool %s returned malformed arguments", tc.Function.Name)
		}
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{Name: tc.Function.Name, Arguments: args})
	}

	c.log.WithFields(logrus.Fields{
		"model":             c.config.Model,
		"tool_calls":        len(completion.ToolCalls),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("LLM completion")

	return completion, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	err := c.post(ctx, "/embeddings", embeddingRequest{Model: c.config.EmbeddingModel, Input: text}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	if c.config.APIKey == "" {
		return ErrNotConfigured
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
