package classify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/paperflow/pkg/types"
)

func serveChat(t *testing.T, status int, body string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			data, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatal(err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("request body is not JSON: %v", err)
			}
			*capture = decoded
			(*capture)["_authorization"] = r.Header.Get("Authorization")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func withEndpoint(t *testing.T, url string) {
	t.Helper()
	saved := openRouterAPIURL
	openRouterAPIURL = url
	t.Cleanup(func() { openRouterAPIURL = saved })
}

const okEnvelope = `{"choices":[{"message":{"content":"{\"a\":1}"}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`

func TestGatewayCallSuccess(t *testing.T) {
	var captured map[string]any
	srv := serveChat(t, http.StatusOK, okEnvelope, &captured)
	defer srv.Close()
	withEndpoint(t, srv.URL)

	g := &OpenRouterGateway{Config: types.LLMConfig{
		APIKey:      "sk-test",
		Model:       "meta-llama/llama-3-70b",
		MaxTokens:   2000,
		Temperature: 0.3,
	}}

	content, err := g.Call(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != `{"a":1}` {
		t.Errorf("content = %q, returned non-verbatim", content)
	}

	if captured["_authorization"] != "Bearer sk-test" {
		t.Errorf("authorization header = %v", captured["_authorization"])
	}
	if captured["model"] != "meta-llama/llama-3-70b" {
		t.Errorf("model = %v", captured["model"])
	}
	messages := captured["messages"].([]any)
	msg := messages[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "the prompt" {
		t.Errorf("message = %v", msg)
	}
	rf := captured["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", rf)
	}
	if _, present := captured["provider"]; present {
		t.Error("provider block sent without routing config")
	}
}

func TestGatewayRoutingBlock(t *testing.T) {
	no := false
	tests := []struct {
		name        string
		routing     *types.ProviderRouting
		wantRequire bool
	}{
		{
			name:        "require_parameters defaults to true",
			routing:     &types.ProviderRouting{Order: []string{"google-vertex", "groq"}},
			wantRequire: true,
		},
		{
			name:        "explicit false respected",
			routing:     &types.ProviderRouting{Sort: "throughput", RequireParameters: &no},
			wantRequire: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any
			srv := serveChat(t, http.StatusOK, okEnvelope, &captured)
			defer srv.Close()
			withEndpoint(t, srv.URL)

			g := &OpenRouterGateway{Config: types.LLMConfig{Model: "m", Routing: tt.routing}}
			if _, err := g.Call(context.Background(), "p"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			provider, ok := captured["provider"].(map[string]any)
			if !ok {
				t.Fatalf("provider block missing: %v", captured)
			}
			if provider["require_parameters"] != tt.wantRequire {
				t.Errorf("require_parameters = %v, want %v", provider["require_parameters"], tt.wantRequire)
			}
			if len(tt.routing.Order) > 0 {
				order := provider["order"].([]any)
				if order[0] != "google-vertex" {
					t.Errorf("order = %v", order)
				}
			}
		})
	}
}

func TestGatewayCallFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{"error": "boom"}`,
			wantStatus: 500,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       "slow down",
			wantStatus: 429,
		},
		{
			name:   "envelope not JSON",
			status: http.StatusOK,
			body:   "this is not json",
		},
		{
			name:   "empty choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
		},
		{
			name:   "missing message content",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveChat(t, tt.status, tt.body, nil)
			defer srv.Close()
			withEndpoint(t, srv.URL)

			g := &OpenRouterGateway{Config: types.LLMConfig{Model: "m"}}
			_, err := g.Call(context.Background(), "p")
			if err == nil {
				t.Fatal("expected error")
			}
			var gerr *GatewayError
			if !errors.As(err, &gerr) {
				t.Fatalf("error is %T, want *GatewayError", err)
			}
			if gerr.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", gerr.Status, tt.wantStatus)
			}
		})
	}
}

func TestGatewayTransportFailure(t *testing.T) {
	// A closed server produces a transport error, not an HTTP status.
	srv := serveChat(t, http.StatusOK, okEnvelope, nil)
	srv.Close()
	withEndpoint(t, srv.URL)

	g := &OpenRouterGateway{Config: types.LLMConfig{Model: "m"}}
	_, err := g.Call(context.Background(), "p")
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("error is %T, want *GatewayError", err)
	}
	if gerr.Status != 0 {
		t.Errorf("transport failure should carry no HTTP status, got %d", gerr.Status)
	}
}
