package generator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantName string
		wantErr  bool
	}{
		{name: "default is gemini", provider: "", apiKey: "k", wantName: "gemini/" + defaultGeminiModel},
		{name: "gemini", provider: ProviderGemini, apiKey: "k", wantName: "gemini/" + defaultGeminiModel},
		{name: "openai", provider: ProviderOpenAI, apiKey: "k", wantName: "openai/" + defaultOpenAIModel},
		{name: "unknown provider", provider: "other", apiKey: "k", wantErr: true},
		{name: "missing key", provider: ProviderGemini, apiKey: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(Config{Provider: tt.provider}, tt.apiKey)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if gen.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", gen.Name(), tt.wantName)
			}
		})
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	var received geminiRequest
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"world"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second}, "secret")
	text, err := client.Generate(context.Background(), Request{
		Prompt: "describe",
		Images: []Image{{MimeType: "image/png", Data: []byte{1, 2, 3}}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Hello world" {
		t.Errorf("Generate() = %q, want %q", text, "Hello world")
	}
	if gotPath != "/models/"+defaultGeminiModel+":generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(received.Contents) != 1 || len(received.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request contents: %+v", received.Contents)
	}
	parts := received.Contents[0].Parts
	if parts[0].Text != "describe" {
		t.Errorf("first part text = %q", parts[0].Text)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/png" {
		t.Fatalf("second part should be inline PNG data: %+v", parts[1])
	}
	if parts[1].InlineData.Data != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Errorf("inline data = %q", parts[1].InlineData.Data)
	}
}

func TestGeminiClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    error
	}{
		{name: "http error", status: http.StatusForbidden, body: `{"error":"denied"}`, wantStatus: http.StatusForbidden},
		{name: "blocked", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, wantErr: ErrBlocked},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantErr: ErrEmptyResponse},
		{name: "empty text", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`, wantErr: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewGeminiClient(Config{BaseURL: server.URL}, "k")
			_, err := client.Generate(context.Background(), Request{Prompt: "p"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantStatus != 0 {
				var statusErr *HTTPStatusError
				if !errors.As(err, &statusErr) {
					t.Fatalf("expected HTTPStatusError, got %T: %v", err, err)
				}
				if statusErr.StatusCode != tt.wantStatus {
					t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.wantStatus)
				}
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeminiClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewGeminiClient(Config{BaseURL: server.URL}, "k")
	if _, err := client.Generate(ctx, Request{Prompt: "p"}); err == nil {
		t.Fatal("expected error after context deadline")
	}
}

func TestOpenAIClient_Generate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"A leaf."}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(Config{BaseURL: server.URL + "/"}, "secret")
	text, err := client.Generate(context.Background(), Request{
		Prompt: "what is this",
		Images: []Image{{MimeType: "image/png", Data: []byte("png")}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "A leaf." {
		t.Errorf("Generate() = %q", text)
	}

	messages, ok := body["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("expected one message, got %v", body["messages"])
	}
	content, ok := messages[0].(map[string]any)["content"].([]any)
	if !ok || len(content) != 2 {
		t.Fatalf("expected two content parts, got %v", messages[0])
	}
	imagePart := content[1].(map[string]any)
	imageURL := imagePart["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(imageURL, "data:image/png;base64,") {
		t.Errorf("image url = %q", imageURL)
	}
}

func TestOpenAIClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(Config{BaseURL: server.URL + "/"}, "wrong")
	_, err := client.Generate(context.Background(), Request{Prompt: "p"})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
}

func TestDataURL(t *testing.T) {
	got := dataURL(Image{Data: []byte("x")})
	if got != "data:image/png;base64,eA==" {
		t.Errorf("dataURL() = %q", got)
	}
}
