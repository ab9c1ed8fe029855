// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/paperflow/pkg/types"
)

// openRouterAPIURL is the chat-completions endpoint. Declared as a var so
// tests can substitute an httptest server.
var openRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

// gatewayTimeout bounds one chat-completion round trip.
const gatewayTimeout = 60 * time.Second

// Gateway performs one chat-completion round trip and returns the message
// content verbatim. It never parses the content itself.
type Gateway interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// GatewayError reports a transport failure, a non-2xx status, or a
// malformed response envelope. Always retryable within the stage budget.
type GatewayError struct {
	// Status is the HTTP status code, 0 for transport or envelope failures.
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway: HTTP %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("gateway: %v", e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// OpenRouterGateway calls an OpenRouter-style chat-completions endpoint.
type OpenRouterGateway struct {
	Config types.LLMConfig

	// Client overrides the default 60s-timeout client; used by tests.
	Client *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// providerOptions is the OpenRouter provider-routing object.
type providerOptions struct {
	Order             []string `json:"order,omitempty"`
	AllowFallbacks    *bool    `json:"allow_fallbacks,omitempty"`
	Sort              string   `json:"sort,omitempty"`
	Quantizations     []string `json:"quantizations,omitempty"`
	RequireParameters bool     `json:"require_parameters"`
}

type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []chatMessage    `json:"messages"`
	MaxTokens      int              `json:"max_tokens"`
	Temperature    float64          `json:"temperature"`
	ResponseFormat responseFormat   `json:"response_format"`
	Provider       *providerOptions `json:"provider,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Call posts the prompt as a single user message and returns the first
// choice's content. The request always asks for json_object output; when a
// routing block is configured and require_parameters is unset it defaults
// to true, so a routed provider must support the structured-output mode or
// the call fails loudly instead of silently degrading.
func (g *OpenRouterGateway) Call(ctx context.Context, prompt string) (string, error) {
	body := chatRequest{
		Model:          g.Config.Model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:      g.Config.MaxTokens,
		Temperature:    g.Config.Temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	if r := g.Config.Routing; r != nil {
		opts := &providerOptions{
			Order:             r.Order,
			AllowFallbacks:    r.AllowFallbacks,
			Sort:              r.Sort,
			Quantizations:     r.Quantizations,
			RequireParameters: true,
		}
		if r.RequireParameters != nil {
			opts.RequireParameters = *r.RequireParameters
		}
		body.Provider = opts
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &GatewayError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterAPIURL, bytes.NewReader(payload))
	if err != nil {
		return "", &GatewayError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+g.Config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: gatewayTimeout}
	}

	slog.Info("calling LLM", "model", g.Config.Model)
	slog.Debug("LLM request", "prompt", truncate(prompt, 500))

	resp, err := client.Do(req)
	if err != nil {
		return "", &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &GatewayError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", bytes.TrimSpace(detail)),
		}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", &GatewayError{Err: fmt.Errorf("decoding response envelope: %w", err)}
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", &GatewayError{Err: errors.New("response envelope missing choices[0].message.content")}
	}

	if cr.Usage != nil {
		slog.Info("LLM call complete", "model", g.Config.Model,
			"prompt_tokens", cr.Usage.PromptTokens,
			"completion_tokens", cr.Usage.CompletionTokens)
	}
	slog.Debug("LLM response", "content", cr.Choices[0].Message.Content)

	return cr.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
